// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbellamy/primegap/pow/bigz"
)

func TestDecodeV1NonceRoundTrips(t *testing.T) {
	want := V1Nonce{
		PrimorialNumber: 5,
		PrimorialFactor: big.NewInt(123456789),
		PrimorialOffset: big.NewInt(987654321),
		Version:         2,
	}

	full := new(big.Int).Set(want.PrimorialFactor)
	full.Lsh(full, 96)
	full.Or(full, want.PrimorialOffset)
	full.Lsh(full, 16)
	full.Or(full, big.NewInt(int64(want.Version)))
	numberShifted := new(big.Int).Lsh(big.NewInt(int64(want.PrimorialNumber)), 240)
	full.Or(full, numberShifted)

	var adder [32]byte
	copy(adder[:], bigz.FromBigInt(full).ToBytesLE(32))

	got := DecodeV1Nonce(adder)
	assert.Equal(t, want.PrimorialNumber, got.PrimorialNumber)
	assert.Equal(t, want.Version, got.Version)
	assert.Equal(t, 0, want.PrimorialFactor.Cmp(got.PrimorialFactor))
	assert.Equal(t, 0, want.PrimorialOffset.Cmp(got.PrimorialOffset))
}

func TestPrimorialMatchesKnownValues(t *testing.T) {
	require.Equal(t, uint64(1), Primorial(0).Uint64())
	require.Equal(t, uint64(2), Primorial(1).Uint64())
	require.Equal(t, uint64(6), Primorial(2).Uint64())
	require.Equal(t, uint64(30), Primorial(3).Uint64())
	require.Equal(t, uint64(210), Primorial(4).Uint64())
}

func TestV1NonceOffsetStaysBelowPrimorial(t *testing.T) {
	target := bigz.FromUint64(1000)
	nonce := V1Nonce{
		PrimorialNumber: 3, // primorial = 30
		PrimorialFactor: big.NewInt(0),
		PrimorialOffset: big.NewInt(5),
	}
	offset := v1NonceOffset(target, nonce)
	// target(1000) mod 30 == 10, so primorial-10+0*30+5 == 25.
	assert.Equal(t, uint64(25), offset.Uint64())
}
