// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sieve

import "github.com/rbellamy/primegap/pow/bigz"

// combinedK is the number of independent candidate intervals batched
// through one prime-table walk per segment (Seth Troisi's "combined
// sieve" technique, spec §4.C "Combined sieve").
const combinedK = 4

// IntervalState is one of the K independent candidates a CombinedSieve
// advances in lock-step. Each nonce in a mining batch owns one
// IntervalState.
type IntervalState struct {
	sieve *Sieve
	done  bool
}

// NewIntervalState begins an interval at base, sharing the given prime
// table with its sibling intervals.
func NewIntervalState(primes *PrimeTable, base bigz.Z) *IntervalState {
	s := NewSieve(primes)
	s.Init(base)
	return &IntervalState{sieve: s}
}

// Candidates returns the current segment's surviving candidate offsets for
// this interval.
func (st *IntervalState) Candidates() []uint64 { return st.sieve.Candidates() }

// Advance moves this interval to its next segment.
func (st *IntervalState) Advance() { st.sieve.NextSegment() }

// CombinedSieve steps up to combinedK IntervalStates together, one segment
// at a time. Each interval tracks its own bucket/segment state and sieves
// its segment against the shared PrimeTable on its own; only the outer
// loop is batched.
type CombinedSieve struct {
	intervals []*IntervalState
}

// NewCombinedSieve begins sieving over up to combinedK bases drawn from
// bases (extra entries beyond combinedK are ignored; callers batch work in
// groups of combinedK).
func NewCombinedSieve(primes *PrimeTable, bases []bigz.Z) *CombinedSieve {
	n := len(bases)
	if n > combinedK {
		n = combinedK
	}
	cs := &CombinedSieve{intervals: make([]*IntervalState, n)}
	for i := 0; i < n; i++ {
		cs.intervals[i] = NewIntervalState(primes, bases[i])
	}
	return cs
}

// Step advances every live interval by one segment and returns each
// interval's surviving candidates for the segment just completed, indexed
// the same as the bases passed to NewCombinedSieve.
func (cs *CombinedSieve) Step() [][]uint64 {
	out := make([][]uint64, len(cs.intervals))
	for i, iv := range cs.intervals {
		out[i] = iv.Candidates()
		iv.Advance()
	}
	return out
}

// Intervals exposes the live interval states, e.g. so a caller can retire
// one (replacing it with a fresh base) without disturbing the others.
func (cs *CombinedSieve) Intervals() []*IntervalState { return cs.intervals }

// Replace swaps the interval at index i for a fresh one starting at base,
// used when a nonce's gap search concludes and the pipeline moves it to a
// new starting point.
func (cs *CombinedSieve) Replace(i int, primes *PrimeTable, base bigz.Z) {
	cs.intervals[i] = NewIntervalState(primes, base)
}
