// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"math/big"

	"github.com/rbellamy/primegap/pow/bigz"
	"github.com/rbellamy/primegap/pow/sieve"
)

// V1Nonce is the decoded form of a V1 header's 32-byte proof-partition
// Adder field, reinterpreted per spec §4.E as
// [primorial_number:16 | primorial_factor:128 | primorial_offset:96 |
// version:16]. This resolves spec §9's open question about the
// relationship between the hashed partition's 4-byte nonce (unaffected,
// per header.Header.Hash) and the 32-byte "nNonce" the V1 decode path
// reads: they are different fields occupying the same on-wire byte range
// only for V1 headers (see DESIGN.md decision 2).
type V1Nonce struct {
	PrimorialNumber uint16
	PrimorialFactor *big.Int // 128-bit
	PrimorialOffset *big.Int // 96-bit
	Version         uint16
}

var (
	mask16  = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 16), big.NewInt(1))
	mask96  = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 96), big.NewInt(1))
	mask128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
)

// DecodeV1Nonce unpacks a 32-byte little-endian Adder field into its four
// V1 sub-fields, lowest field first (version occupies the low 16 bits,
// primorial_number the high 16 bits) — the packing order a reader
// encounters first when scanning the integer from its least-significant
// bit, matching how the sibling fields are listed in spec §4.E.
func DecodeV1Nonce(adder [32]byte) V1Nonce {
	v := bigz.FromBytesLE(adder[:]).BigInt()
	full := new(big.Int).Set(v)

	version := new(big.Int).And(full, mask16)
	full.Rsh(full, 16)

	offset := new(big.Int).And(full, mask96)
	full.Rsh(full, 96)

	factor := new(big.Int).And(full, mask128)
	full.Rsh(full, 128)

	number := new(big.Int).And(full, mask16)

	return V1Nonce{
		PrimorialNumber: uint16(number.Uint64()),
		PrimorialFactor: factor,
		PrimorialOffset: offset,
		Version:         uint16(version.Uint64()),
	}
}

// Primorial returns the product of the first n primes (Primorial(0) == 1).
func Primorial(n uint16) bigz.Z {
	if n == 0 {
		return bigz.FromUint64(1)
	}
	table := sieve.NewPrimeTable(int(n))
	result := big.NewInt(1)
	for i := 0; i < int(n); i++ {
		result.Mul(result, big.NewInt(int64(table.At(i))))
	}
	return bigz.FromBigInt(result)
}

// v1NonceOffset computes the candidate offset a V1 nonce decodes to,
// relative to target (spec §4.E): primorial - (target mod primorial) +
// factor*primorial + primorial_offset.
func v1NonceOffset(target bigz.Z, nonce V1Nonce) bigz.Z {
	primorial := Primorial(nonce.PrimorialNumber)
	if primorial.IsZero() {
		return bigz.Zero()
	}

	targetMod := bigz.Mod(target, primorial)
	offset := bigz.Sub(primorial, targetMod)

	factor := bigz.FromBigInt(new(big.Int).Set(nonce.PrimorialFactor))
	offset = bigz.Add(offset, bigz.Mul(factor, primorial))

	po := bigz.FromBigInt(new(big.Int).Set(nonce.PrimorialOffset))
	offset = bigz.Add(offset, po)

	return offset
}
