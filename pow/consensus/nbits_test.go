// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rbellamy/primegap/pow/bigz"
)

func TestNBitsFromDifficultyV1RoundTrips(t *testing.T) {
	diff := bigz.Q48(1000 * uint64(bigz.OneQ48))
	nBits := NBitsFromDifficulty(diff, VersionV1)
	got := DifficultyFromNBits(nBits, VersionV1)
	assert.Equal(t, diff, got)
}

func TestNBitsFromDifficultyLegacyPacksIntegerPart(t *testing.T) {
	diff := bigz.Q48(304 * uint64(bigz.OneQ48))
	nBits := NBitsFromDifficulty(diff, VersionLegacy)
	assert.Equal(t, uint32(legacyNBitsPrefix|(304<<8)), nBits)

	back := DifficultyFromNBits(nBits, VersionLegacy)
	assert.Equal(t, diff, back)
}

func TestNBitsMinMaxLegacyMatchMainnetSanityBounds(t *testing.T) {
	assert.Equal(t, uint32(33632256), uint32(NBitsMinLegacy))
	assert.Equal(t, uint32(34210816), uint32(NBitsMaxLegacy))
}
