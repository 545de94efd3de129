// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

// asertSmoothing (N) controls how aggressively the difficulty reacts to a
// single block's solve time; asertConstellationBase (the "+23" term) is
// combined with the pattern size to scale that reaction by how much work
// a tuple of this size already represents (spec §4.E, grounded on
// pow.cpp's asert()).
const (
	asertSmoothing        = 64
	asertConstellationBase = 23
	asertFixedPointOne     = 65536
)

// legacyToV1Multiplier approximates the difficulty jump at the fork from
// the legacy 6-tuple rule to a (typically larger) V1 pattern: 2*256/3, or
// 171 in integer form, grounded on pow.cpp's GetNextWorkRequired fork
// transition.
const legacyToV1Multiplier = 171

// clampSolveTime bounds a block's observed solve time the same way the
// ASERT formula's reference implementation does: no more than
// timestampWindow seconds early, no more than 12 target spacings late.
func clampSolveTime(solveTime, targetSpacing, timestampWindow int64) int64 {
	if solveTime < -timestampWindow {
		solveTime = -timestampWindow
	}
	if solveTime > 12*targetSpacing {
		solveTime = 12 * targetSpacing
	}
	return solveTime
}

// asert computes the next nBits from the previous one given how late (in
// seconds, signed) the previous block arrived relative to targetSpacing,
// and the size of the largest accepted pattern at nextHeight (spec §4.E).
// The formula keeps all arithmetic in int64 fixed point, exactly mirroring
// the reference's own integer-only retarget so independently implemented
// nodes reach bit-identical nBits.
func asert(prevNBits uint32, solveTime int64, params *Params, patternSize int) uint32 {
	solveTime = clampSolveTime(solveTime, params.TargetSpacing, params.TimestampWindow)

	cp := int64(10*patternSize + asertConstellationBase)
	prev := int64(prevNBits)

	numerator := asertFixedPointOne - asertFixedPointOne*solveTime/params.TargetSpacing
	adjustment := 10 * numerator / (asertSmoothing * cp)
	next := prev * (asertFixedPointOne + adjustment) / asertFixedPointOne

	if next < int64(params.NBitsMin) {
		next = int64(params.NBitsMin)
	} else if next > int64(^uint32(0)) {
		next = int64(^uint32(0))
	}
	return uint32(next)
}

// largestPatternSize returns the size of the first accepted pattern at
// height, matching pow.cpp's asert() which always indexes pattern [0].
func largestPatternSize(params *Params, height int32) int {
	patterns := params.PatternsFor(VersionV1, height)
	if len(patterns) == 0 {
		return len(LegacyPattern)
	}
	return len(patterns[0])
}

// NextWorkRequired computes the nBits a block at nextHeight must satisfy,
// given the previous block's nBits and how many seconds late it arrived
// relative to params.TargetSpacing (spec §4.E ASERT retarget).
//
// The fork transition from the fixed legacy pattern to height-selected V1
// patterns is handled as a one-time special case (spec §9 supplemented
// feature): the new difficulty is approximated as 171/256 of the old one,
// floored at params.NBitsMin, rather than running ASERT across the
// discontinuity in pattern size.
func NextWorkRequired(prevNBits uint32, prevSolveTime int64, nextHeight int32, params *Params) uint32 {
	if nextHeight == params.ForkHeight {
		oldDifficulty := (prevNBits & 0x007FFFFF) >> 8
		next := oldDifficulty * legacyToV1Multiplier
		if next < params.NBitsMin {
			next = params.NBitsMin
		}
		return next
	}
	return asert(prevNBits, prevSolveTime, params, largestPatternSize(params, nextHeight))
}

// PermittedDifficultyTransition reports whether newNBits is a legal
// successor to oldNBits at height, by recomputing the extremes ASERT
// would allow for the fastest and slowest permitted solve times (spec
// §4.E, grounded on pow.cpp's PermittedDifficultyTransition).
func PermittedDifficultyTransition(height int32, oldNBits, newNBits uint32, params *Params) bool {
	if height == params.ForkHeight {
		oldDifficulty := (oldNBits & 0x007FFFFF) >> 8
		expected := oldDifficulty * legacyToV1Multiplier
		if expected < params.NBitsMin {
			expected = params.NBitsMin
		}
		return newNBits == expected
	}

	patternSize := largestPatternSize(params, height)
	largest := asert(oldNBits, -params.TimestampWindow, params, patternSize)
	smallest := asert(oldNBits, 12*params.TargetSpacing, params, patternSize)
	return newNBits >= smallest && newNBits <= largest
}
