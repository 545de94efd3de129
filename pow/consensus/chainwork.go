// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"math"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/rbellamy/primegap/pow/bigz"
)

// chainWorkExponentBase is the fixed offset added to a constellation's
// size before raising difficulty to that power: empirically, finding a
// k-tuple of a given difficulty is roughly as hard as finding a single
// prime of difficulty*(k+2.3) (spec §4: "chain work proxy"), so the
// exponent scales with pattern length the same way TargetWork scales with
// a single difficulty value.
const chainWorkExponentBase = 2.3

// ChainWorkProxy returns a block's contribution to cumulative chain work:
// difficulty^(constellationSize+2.3), truncated to an integer and wrapped
// into a fixed 256-bit width, matching how every Bitcoin-derived chain
// keeps per-block and cumulative work. float64 is used deliberately: only
// the accumulated sum across many blocks decides the best chain, not this
// single value, so bit-exactness across platforms matters less here than
// in the arithmetic kernel proper. Unlike the candidate/target math in
// target.go (genuinely unbounded — a real difficulty's target routinely
// needs far more than 256 bits), a single block's work proxy is, by
// construction, always small enough to fit 256 bits, so the fixed-width
// uint256.Int is the correct representation here, not an arbitrary-
// precision shortcut.
func ChainWorkProxy(diff bigz.Q48, constellationSize int) [32]byte {
	exponent := float64(constellationSize) + chainWorkExponentBase
	work := math.Pow(diff.Float64(), exponent)

	result, _ := big.NewFloat(work).Int(nil)
	if result == nil {
		result = big.NewInt(0)
	}

	u, overflow := uint256.FromBig(result)
	if overflow {
		u = uint256.NewInt(0).Not(uint256.NewInt(0)) // saturate at 2^256-1
	}
	return u.Bytes32()
}

// AddChainWork accumulates two per-block work proxies into a running
// chain-work total, the same fixed-width addition Bitcoin-derived chains
// use to compare candidate tips.
func AddChainWork(a, b [32]byte) [32]byte {
	x := new(uint256.Int).SetBytes32(a[:])
	y := new(uint256.Int).SetBytes32(b[:])
	sum := new(uint256.Int).Add(x, y)
	return sum.Bytes32()
}
