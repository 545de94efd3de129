// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package primality

import "github.com/rbellamy/primegap/pow/bigz"

// CandidateBatch is a limb-packed batch of candidates prepared for a
// batched (SIMD/GPU) primality back-end.
type CandidateBatch struct {
	// Limbs holds, for each candidate in order, limbBits/32 little-endian
	// uint32 limbs.
	Limbs []uint32
	// Indices maps each candidate back to its originating sieve offset.
	Indices []uint64
	// LimbBits is 320 or 352.
	LimbBits int
	Count    int
}

// PackBatch limb-packs base+offset for each offset in offsets into
// limbBits-wide little-endian integers suitable for a batched back-end.
// limbBits must be 320 or 352; any other value is a programmer error.
func PackBatch(offsets []uint64, base bigz.Z, limbBits int) CandidateBatch {
	if limbBits != 320 && limbBits != 352 {
		panic("primality: limbBits must be 320 or 352")
	}
	limbs := limbBits / 32
	out := CandidateBatch{
		Limbs:    make([]uint32, 0, limbs*len(offsets)),
		Indices:  make([]uint64, 0, len(offsets)),
		LimbBits: limbBits,
		Count:    len(offsets),
	}

	for _, off := range offsets {
		candidate := bigz.AddUint64(base, off)
		bytes := candidate.ToBytesLE(limbs * 4)
		for i := 0; i < limbs; i++ {
			v := uint32(bytes[i*4]) | uint32(bytes[i*4+1])<<8 |
				uint32(bytes[i*4+2])<<16 | uint32(bytes[i*4+3])<<24
			out.Limbs = append(out.Limbs, v)
		}
		out.Indices = append(out.Indices, off)
	}

	return out
}
