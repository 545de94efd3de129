// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package mining implements the CPU/GPU-tiered mining pipeline that turns a
// block header template into a solved prime-gap proof: one sieve+primality
// worker per nonce, a shared prime table, and a gap accumulator per nonce
// that recognizes a qualifying constellation the moment it appears.
//
// Grounded on the original MiningPipeline/MiningEngine (mining_engine.cpp)
// for the search algorithm and on the teacher's mining/randomx.RandomXMiner
// for the Go concurrency idiom: a btclog logger, a worker pool driven by
// sync.WaitGroup and quit channels, and an atomic stop flag checked inside
// each worker's inner loop.
package mining

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rbellamy/primegap/pow/bigz"
	"github.com/rbellamy/primegap/pow/header"
	"github.com/rbellamy/primegap/pow/sieve"
)

// DefaultSegmentsPerNonce bounds how many sieve segments a single nonce is
// searched over before the pipeline abandons it and draws a fresh nonce.
// This keeps a single unlucky nonce (one with, say, an unusually large
// prime-free run) from starving the others of CPU time.
const DefaultSegmentsPerNonce = 64

// Config configures a Pipeline.
type Config struct {
	// NumWorkers is the number of concurrent nonce-search workers. Zero or
	// negative selects runtime.NumCPU().
	NumWorkers int
	// Tier selects the primality backend (see Tier, NewBackend).
	Tier Tier
	// SievePrimes is the size of the shared prime table. Zero selects
	// sieve.DefaultSievePrimes.
	SievePrimes int
	// SegmentsPerNonce bounds the search range per nonce. Zero selects
	// DefaultSegmentsPerNonce.
	SegmentsPerNonce int
}

func (c Config) numWorkers() int {
	if c.NumWorkers > 0 {
		return c.NumWorkers
	}
	return runtime.NumCPU()
}

func (c Config) sievePrimes() int {
	if c.SievePrimes > 0 {
		return c.SievePrimes
	}
	return sieve.DefaultSievePrimes
}

func (c Config) segmentsPerNonce() int {
	if c.SegmentsPerNonce > 0 {
		return c.SegmentsPerNonce
	}
	return DefaultSegmentsPerNonce
}

// ResultFunc is called with every solved header. Returning false stops the
// pipeline, mirroring PoWProcessor::process's "continue mining?" return.
type ResultFunc func(h header.Header) (continueMining bool)

// Pipeline drives a pool of sieve/primality workers against a shared block
// header template, each owning an independent nonce.
type Pipeline struct {
	cfg   Config
	stats Stats
	stop  atomic.Bool
}

// NewPipeline constructs a Pipeline with the given configuration.
func NewPipeline(cfg Config) *Pipeline {
	return &Pipeline{cfg: cfg}
}

// Stats returns a snapshot of the pipeline's running statistics.
func (p *Pipeline) Stats() StatsSnapshot {
	return p.stats.Snapshot()
}

// Stop requests all workers to stop as soon as they next check in. It does
// not block; call Mine's return to know when workers have actually exited.
func (p *Pipeline) Stop() {
	p.stop.Store(true)
}

// Mine searches for a solution to tmpl starting at nonce startNonce,
// distributing independent nonces across cfg.NumWorkers workers. It
// returns when ctx is cancelled, Stop is called, or submit returns false.
func (p *Pipeline) Mine(ctx context.Context, tmpl header.Header, startNonce uint32, submit ResultFunc) error {
	p.stop.Store(false)

	primes := sieve.NewPrimeTable(p.cfg.sievePrimes())
	backend := NewBackend(p.cfg.Tier)

	var nonceMu sync.Mutex
	nextNonceVal := startNonce
	nextNonce := func() uint32 {
		nonceMu.Lock()
		defer nonceMu.Unlock()
		n := nextNonceVal
		nextNonceVal++
		return n
	}

	results := make(chan header.Header)
	done := make(chan struct{})

	var wg sync.WaitGroup
	numWorkers := p.cfg.numWorkers()
	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func() {
			defer wg.Done()
			p.worker(ctx, tmpl, nextNonce, primes, backend, results, done)
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var stopErr error
	for h := range results {
		if !submit(h) {
			close(done)
			p.stop.Store(true)
			break
		}
	}
	p.stop.Store(true)
	wg.Wait()
	return stopErr
}

// worker repeatedly claims a fresh nonce and searches its sieve range for a
// qualifying gap, until told to stop.
func (p *Pipeline) worker(ctx context.Context, tmpl header.Header, nextNonce func() uint32,
	primes *sieve.PrimeTable, backend PrimalityBackend, results chan<- header.Header, done <-chan struct{}) {

	maxSegments := p.cfg.segmentsPerNonce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		default:
		}
		if p.stop.Load() {
			return
		}

		h := tmpl
		h.Nonce = nextNonce()
		h.Adder = [32]byte{}

		base := h.Start()
		adjust := uint64(0)
		if base.IsEven() {
			base = bigz.AddUint64(base, 1)
			adjust = 1
		}

		minGap := targetGap(base, tmpl.Difficulty)
		s := sieve.NewSieve(primes)
		s.Init(base)
		gaps := NewGapAccumulator(minGap)

		for seg := 0; seg < maxSegments; seg++ {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			default:
			}
			if p.stop.Load() {
				return
			}

			for _, off := range s.Candidates() {
				n := bigz.AddUint64(base, off)
				ok := backend.Test([]bigz.Z{n})[0]
				p.stats.addTestsPerformed(1)
				if !ok {
					continue
				}
				p.stats.addPrimesFound(1)
				adderOffset, found := gaps.Feed(off)
				if !found {
					continue
				}
				p.stats.addGapsFound(1)

				solved := h
				copy(solved.Adder[:], bigz.FromUint64(adderOffset+adjust).ToBytesLE(32))
				select {
				case results <- solved:
				case <-done:
					return
				case <-ctx.Done():
					return
				}
			}
			s.NextSegment()
			p.stats.addSieveRuns(1)
		}
	}
}

// targetGap derives the minimum gap length a header's difficulty requires,
// starting from base, rounded up to an even offset (spec §4.C "local_min_gap
// & 1" parity adjustment from the original sieve_worker).
func targetGap(base bigz.Z, diff bigz.Q48) uint64 {
	size := bigz.TargetSize(base, diff)
	g := size.Uint64()
	if g%2 == 1 {
		g++
	}
	return g
}
