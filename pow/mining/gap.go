// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

// gapState is the two-state machine a GapAccumulator walks as confirmed
// primes arrive in increasing offset order (spec §4.D, grounded on
// MiningPipeline::init_gap_state/reset_gap_state and the inline gap
// tracking in sieve_worker).
type gapState int

const (
	// NoPrime means no prime has been confirmed yet in this search; the
	// next confirmed prime becomes the chain's first anchor.
	NoPrime gapState = iota
	// OnePrime means one prime is anchored and every further confirmed
	// prime is checked against it for a qualifying gap.
	OnePrime
)

// GapAccumulator tracks the most recently confirmed prime's offset within
// a single nonce's sieve range and reports whenever the gap to the next
// confirmed prime meets minGap. Offsets must be fed in increasing order.
type GapAccumulator struct {
	state      gapState
	minGap     uint64
	lastOffset uint64
}

// NewGapAccumulator begins a fresh accumulator targeting minGap.
func NewGapAccumulator(minGap uint64) *GapAccumulator {
	return &GapAccumulator{state: NoPrime, minGap: minGap}
}

// Feed records a newly confirmed prime at offset and reports whether it
// closes a qualifying gap. When found is true, adder is the offset of the
// prime that starts that gap (the header's Adder field candidate).
func (g *GapAccumulator) Feed(offset uint64) (adder uint64, found bool) {
	switch g.state {
	case NoPrime:
		g.lastOffset = offset
		g.state = OnePrime
		return 0, false
	default: // OnePrime
		gap := offset - g.lastOffset
		adder = g.lastOffset
		found = gap >= g.minGap
		g.lastOffset = offset
		return adder, found
	}
}

// Reset clears the accumulator so it can begin a new search (e.g. after a
// nonce's range is exhausted with no qualifying gap).
func (g *GapAccumulator) Reset() {
	g.state = NoPrime
	g.lastOffset = 0
}
