// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompactToBigRoundTripsBigToCompact(t *testing.T) {
	cases := []uint32{0, 0x01010000, 0x02020000, 0x05009234, 0x1d00ffff}
	for _, c := range cases {
		n := CompactToBig(c)
		got := BigToCompact(n)
		assert.Equal(t, c, got, "round trip for compact 0x%08x", c)
	}
}

func TestCompactToBigMatchesKnownValue(t *testing.T) {
	// 0x1d00ffff is Bitcoin genesis difficulty-1: mantissa 0x00ffff,
	// exponent 0x1d (29), i.e. 0xffff << (8*(29-3)).
	got := CompactToBig(0x1d00ffff)
	want := new(big.Int).Lsh(big.NewInt(0xffff), 8*(29-3))
	assert.Equal(t, 0, got.Cmp(want))
}

func TestBigToCompactZero(t *testing.T) {
	assert.Equal(t, uint32(0), BigToCompact(big.NewInt(0)))
}
