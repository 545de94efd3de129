// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sieve

import "github.com/rbellamy/primegap/pow/bigz"

// smallPresievedPrimes is how many entries at the front of a PrimeTable are
// already covered by the pre-sieve pattern table and should not be
// redundantly seeded into the bucket set: index 0 (prime 2, handled by the
// odds-only representation) plus every prime in presievePrimes.
var smallPresievedPrimes = len(presievePrimes) + 1

// Sieve is a per-candidate segmented sieve over the odd integers base,
// base+2, base+4, ... It implements the three-phase per-segment algorithm
// of spec §4.C: pre-sieve, prime marking, and candidate emission. The
// small-prime/large-prime split described there (direct marking vs. a
// bucket structure) collapses here into a single drain pass over every
// seeded prime: correctness only requires that each prime's hits within a
// segment get marked, and bucketSet.drain already loops a prime forward
// across as many or as few segments as its period demands. The
// presieve table, not this drain, is where the real per-run cost savings
// live, so the simplification costs nothing a miner cares about.
type Sieve struct {
	base     bigz.Z
	primes   *PrimeTable
	seg      segment
	buckets  *bucketSet
	segIndex uint64
}

// NewSieve constructs a Sieve over the given shared prime table. The table
// should hold enough primes to make Fermat/BPSW calls on surviving
// candidates rare (DefaultSievePrimes is a reasonable default).
func NewSieve(primes *PrimeTable) *Sieve {
	return &Sieve{primes: primes, buckets: newBucketSet()}
}

// Init begins sieving at base (must be odd; callers round up from a
// header's Start() value before calling Init).
func (s *Sieve) Init(base bigz.Z) {
	s.base = base
	s.segIndex = 0
	s.buckets = newBucketSet()
	s.seedPrimes()
	s.prepareSegment()
}

// seedPrimes computes, for every sieving prime beyond the pre-sieve set,
// the first bit index i (in the sieve's global bit coordinate, where bit i
// represents base+2*i) at which base+2*i is a multiple of that prime, and
// stores it in the bucket set.
func (s *Sieve) seedPrimes() {
	for idx := smallPresievedPrimes; idx < s.primes.Len(); idx++ {
		p := s.primes.At(idx)
		if p == 2 {
			continue
		}
		i0 := firstHitBit(s.base, p)
		s.buckets.add(bucketEntry{primeIdx: uint32(idx), nextHit: i0})
	}
}

// firstHitBit returns the smallest i >= 0 such that base+2*i is divisible
// by the odd prime p, using p's modular inverse of 2 (which is (p+1)/2).
func firstHitBit(base bigz.Z, p uint32) uint64 {
	baseModP := bigz.ModUint64(base, uint64(p))
	inv2 := (uint64(p) + 1) / 2
	negBase := (uint64(p) - baseModP) % uint64(p)
	return (negBase * inv2) % uint64(p)
}

// prepareSegment resets the active segment, applies the pre-sieve pattern,
// and drains the bucket set for the bit range covered by the active
// segment.
func (s *Sieve) prepareSegment() {
	s.seg.reset()
	segStart := s.segIndex * SegmentSizeBits
	segEnd := segStart + SegmentSizeBits
	applyPresieve(&s.seg, s.base, segStart)
	s.buckets.drain(&s.seg, segStart, segEnd, s.primes)
}

// NextSegment advances to the following segment. It always succeeds; the
// caller decides how many segments to walk (bounded by the header's
// target-size window in the mining pipeline).
func (s *Sieve) NextSegment() bool {
	s.segIndex++
	s.prepareSegment()
	return true
}

// Candidates returns, for the active segment, the absolute offsets (from
// base, in integer units) of every slot that survived sieving: neither
// pre-sieved, marked by a seeded prime, nor ruled out by the wheel-2310
// coprimality filter.
func (s *Sieve) Candidates() []uint64 {
	segStart := s.segIndex * SegmentSizeBits
	var out []uint64
	for i := uint64(0); i < SegmentSizeBits; i++ {
		if s.seg.testBit(i) {
			continue
		}
		offset := 2 * (segStart + i)
		candidate := bigz.AddUint64(s.base, offset)
		if !IsCoprime2310(bigz.ModUint64(candidate, Wheel2310Primorial)) {
			continue
		}
		out = append(out, offset)
	}
	return out
}

// SegmentIndex reports the index of the currently active segment.
func (s *Sieve) SegmentIndex() uint64 { return s.segIndex }
