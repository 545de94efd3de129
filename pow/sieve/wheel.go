// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sieve

import "github.com/jrick/bitset"

// Wheel2310Primorial is 2*3*5*7*11.
const Wheel2310Primorial = 2310

// Wheel2310Size is the number of residues mod Wheel2310Primorial that are
// coprime to it (79.2% of candidates are eliminated by this filter).
const Wheel2310Size = 480

// wheelResidues and wheelDeltas are built once at package init: the 480
// residues coprime to 2310, in increasing order, and the gap to the next
// residue (wrapping at the primorial).
var (
	wheelResidues [Wheel2310Size]uint16
	wheelDeltas   [Wheel2310Size]uint8
	// wheelMembership is a single-bit-per-residue membership test over
	// [0, 2310), used instead of a plain index table so the wheel's
	// coprimality test is a bitset lookup rather than a per-call modulo
	// chain, matching how the original's is_coprime_2310_lookup worked.
	wheelMembership = bitset.NewBytes(Wheel2310Primorial)
)

func init() {
	n := 0
	for i := 0; i < Wheel2310Primorial; i++ {
		if isCoprime2310Quick(uint64(i)) {
			wheelResidues[n] = uint16(i)
			wheelMembership.Set(i)
			n++
		}
	}
	for i := 0; i < Wheel2310Size; i++ {
		next := wheelResidues[(i+1)%Wheel2310Size]
		if i == Wheel2310Size-1 {
			wheelDeltas[i] = uint8(int(Wheel2310Primorial) - int(wheelResidues[i]) + int(next))
		} else {
			wheelDeltas[i] = uint8(next - wheelResidues[i])
		}
	}
}

func isCoprime2310Quick(n uint64) bool {
	if n&1 == 0 {
		return false
	}
	if n%3 == 0 {
		return false
	}
	if n%5 == 0 {
		return false
	}
	if n%7 == 0 {
		return false
	}
	if n%11 == 0 {
		return false
	}
	return true
}

// IsCoprime2310 reports whether n is coprime to the wheel-2310 primorial,
// using the precomputed membership bitset.
func IsCoprime2310(n uint64) bool {
	r := n % Wheel2310Primorial
	return wheelMembership.Get(int(r))
}

// WheelInit returns the first position >= start that is coprime to 2310,
// and the wheel index to resume iteration from.
func WheelInit(start uint64) (pos uint64, wheelIdx int) {
	r := uint16(start % Wheel2310Primorial)
	for i, residue := range wheelResidues {
		if residue >= r {
			return start - uint64(r) + uint64(residue), i
		}
	}
	return start - uint64(r) + Wheel2310Primorial + uint64(wheelResidues[0]), 0
}

// WheelNext advances a wheel cursor by one residue, returning the next
// position and index.
func WheelNext(pos uint64, wheelIdx int) (uint64, int) {
	delta := wheelDeltas[wheelIdx]
	return pos + uint64(delta), (wheelIdx + 1) % Wheel2310Size
}
