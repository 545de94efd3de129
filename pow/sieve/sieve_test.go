// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sieve

import (
	"math/big"
	"testing"

	"github.com/rbellamy/primegap/pow/bigz"
	"github.com/stretchr/testify/require"
)

func TestFirstHitBitMarksActualMultiples(t *testing.T) {
	base := bigz.FromUint64(987_654_321)
	for _, p := range []uint32{3, 17, 101, 9_973} {
		i0 := firstHitBit(base, p)
		n := bigz.AddUint64(base, 2*i0)
		require.Zero(t, bigz.ModUint64(n, uint64(p)), "p=%d i0=%d n=%s", p, i0, n.BigInt())
	}
}

func TestApplyPresieveMarksSmallMultiples(t *testing.T) {
	// base=3: slot 0 is 3 itself, a multiple of the presieved prime 3.
	var seg segment
	base := bigz.FromUint64(3)
	applyPresieve(&seg, base, 0)
	if !seg.testBit(0) {
		t.Fatalf("expected presieve to mark slot 0 (base itself, a multiple of 3)")
	}
	// slot 3 -> integer base+2*3 = 9, also a multiple of 3.
	if !seg.testBit(3) {
		t.Fatalf("expected presieve to mark slot 3 (integer 9, a multiple of 3)")
	}
	// slot 29 -> integer 61, not a multiple of any presieved prime.
	if seg.testBit(29) {
		t.Fatalf("did not expect slot 29 (integer 61) to be marked")
	}
}

func TestSieveCandidatesHaveNoSmallFactors(t *testing.T) {
	primes := NewPrimeTable(2000)
	s := NewSieve(primes)
	base := bigz.FromUint64(100_000_001)
	s.Init(base)

	cands := s.Candidates()
	require.NotEmpty(t, cands)

	for _, off := range cands {
		n := new(big.Int).Add(base.BigInt(), new(big.Int).SetUint64(off))
		for i := 1; i < primes.Len(); i++ { // skip 2: base is odd, offsets are even, sum is always odd
			p := int64(primes.At(i))
			m := new(big.Int).Mod(n, big.NewInt(p))
			if m.Sign() == 0 {
				t.Fatalf("candidate %s divisible by sieving prime %d", n, p)
			}
		}
	}
}

func TestSieveAdvancesSegments(t *testing.T) {
	primes := NewPrimeTable(500)
	s := NewSieve(primes)
	s.Init(bigz.FromUint64(1_000_003))

	require.Equal(t, uint64(0), s.SegmentIndex())
	s.NextSegment()
	require.Equal(t, uint64(1), s.SegmentIndex())

	// Every candidate in segment 1 must lie strictly beyond segment 0's range.
	for _, off := range s.Candidates() {
		require.GreaterOrEqual(t, off, uint64(2*SegmentSizeBits))
	}
}
