// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"math/big"

	"github.com/rbellamy/primegap/pow/bigz"
	"github.com/rbellamy/primegap/pow/header"
)

// NBitsMinLegacy and NBitsMaxLegacy are the legacy version's nBits sanity
// bounds (spec §4.E step 1), grounded on pow.cpp's literal mainnet bounds
// of 304 and 2564 packed via legacyNBitsPrefix | (raw << 8).
const (
	NBitsMinLegacy = legacyNBitsPrefix | (304 << 8)
	NBitsMaxLegacy = legacyNBitsPrefix | (2564 << 8)
)

// significativeDigits is the fixed width of a target's non-padding
// portion for both PoW versions: 1 prefix bit + 8 bits of either the
// legacy zero-fill or the V1 "L" term + 256 hash bits.
const significativeDigits = 265

// legacyTrailingZeros extracts the actual zero-padding bit count a legacy
// nBits value requests: the raw count packed into bits 8-22, less the
// significativeDigits already accounted for by the target's fixed prefix
// and hash (spec §4.E).
func legacyTrailingZeros(nBits uint32) int64 {
	return int64((nBits&0x7FFFFF)>>8) - significativeDigits
}

// v1TrailingZeros extracts the V1 shift-equivalent bit count (spec §4.E):
// (nBits >> 8) + 1 - 265.
func v1TrailingZeros(nBits uint32) int64 {
	return int64(nBits>>8) + 1 - significativeDigits
}

// reverseBits256 reverses the bit order within each byte of a 256-bit
// value, leaving byte order untouched (spec §4.E: "hash_bits_reversed"),
// grounded on pow.cpp's DeriveTarget loop: target <<= 1; target +=
// (hash[i/8] >> (i%8)) & 1 for i in 0..255 reads each byte's bits from
// its own LSB to MSB and appends them MSB-first, which reverses bit
// order per byte while byte i/8 still lands in output byte i/8.
func reverseBits256(b [32]byte) *big.Int {
	var out [32]byte
	for i := 0; i < 32; i++ {
		v := b[i]
		var r byte
		for bit := 0; bit < 8; bit++ {
			if v&(1<<uint(bit)) != 0 {
				r |= 1 << uint(7-bit)
			}
		}
		out[i] = r
	}
	return new(big.Int).SetBytes(out[:])
}

// legacyTarget builds the legacy-version target: a fixed 9-bit prefix
// "1.00000000", the bit-reversed header hash, then zero-padding of
// trailingZeros bits (spec §4.E).
func legacyTarget(hash [32]byte, trailingZeros int64) *big.Int {
	reversed := reverseBits256(hash)
	prefix := new(big.Int).Lsh(big.NewInt(1), 264) // "1" followed by 8 zero bits, above the 256-bit hash field
	target := new(big.Int).Or(prefix, reversed)
	if trailingZeros > 0 {
		target.Lsh(target, uint(trailingZeros))
	}
	return target
}

// v1LFromNBits computes the V1 target's "L" term via the closed-form
// integer formula from spec §4.E: L = (10d^3 + 7383d^2 + 5840720d +
// 3997440) >> 23, where d = nBits & 0xFF. This approximates
// round(2^(8+nBits/2^8) - 2^8) without floating point, keeping the
// consensus path bit-exact across platforms.
func v1LFromNBits(nBits uint32) uint64 {
	d := uint64(nBits & 0xFF)
	l := 10*d*d*d + 7383*d*d + 5840720*d + 3997440
	return l >> 23
}

// v1Target builds the V1-version target: 2^256 + L*2^256/256 + hash, left
// shifted by trailingZeros (spec §4.E).
func v1Target(hash [32]byte, nBits uint32, trailingZeros int64) *big.Int {
	l := v1LFromNBits(nBits)

	base := new(big.Int).Lsh(big.NewInt(1), 256)
	lTerm := new(big.Int).Lsh(big.NewInt(1), 256)
	lTerm.Mul(lTerm, new(big.Int).SetUint64(l))
	lTerm.Div(lTerm, big.NewInt(256))

	target := new(big.Int).Add(base, lTerm)
	target.Add(target, new(big.Int).SetBytes(hash[:]))

	if trailingZeros > 0 {
		target.Lsh(target, uint(trailingZeros))
	}
	return target
}

// bigzFromBig wraps a non-negative *big.Int as a bigz.Z.
func bigzFromBig(n *big.Int) bigz.Z {
	return bigz.FromBigInt(new(big.Int).Set(n))
}

// Candidate derives the starting-prime candidate a header claims for the
// given version: target (per-version formula) plus offset (the header's
// Adder for legacy, the decoded V1 nonce offset for V1).
func Candidate(h header.Header, v Version, nBits uint32) (bigz.Z, error) {
	hash := h.Hash()

	switch v {
	case VersionLegacy:
		tz := legacyTrailingZeros(nBits)
		if tz < 0 {
			return bigz.Zero(), errUndersizedNBits
		}
		target := legacyTarget(hash, tz)
		offset := bigz.FromBytesLE(h.Adder[:])
		if offset.BitLen() > int(tz) {
			return bigz.Zero(), errOffsetTooLarge
		}
		return bigz.Add(bigzFromBig(target), offset), nil

	default: // VersionV1
		tz := v1TrailingZeros(nBits)
		if tz < 0 {
			return bigz.Zero(), errUndersizedNBits
		}
		target := v1Target(hash, nBits, tz)

		nonce := DecodeV1Nonce(h.Adder)
		offset := v1NonceOffset(bigzFromBig(target), nonce)
		if offset.BitLen() > int(tz) {
			return bigz.Zero(), errOffsetTooLarge
		}
		return bigz.Add(bigzFromBig(target), offset), nil
	}
}
