// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"github.com/rbellamy/primegap/pow/bigz"
	"github.com/rbellamy/primegap/pow/header"
	"github.com/rbellamy/primegap/pow/primality"
)

// versionOf selects the PoW header from h.Version itself (spec §4.E: "PoW
// version is selected ... by bits of the nonce field on legacy chains and
// by block height on current chains" — the header already carries this
// tag directly, so no separate lookup is needed; see DESIGN.md decision 1).
func versionOf(h header.Header) Version {
	if h.Version < 0 {
		return VersionLegacy
	}
	return VersionV1
}

// nBitsBounds returns the inclusive range a version's nBits must fall
// within (spec §4.E step 1).
func nBitsBounds(v Version, params *Params) (min, max uint32) {
	if v == VersionLegacy {
		return NBitsMinLegacy, NBitsMaxLegacy
	}
	return params.NBitsMin, ^uint32(0)
}

// CheckProofOfWork validates a header's proof of work at the given chain
// height (spec §4.E): nBits range check, trailingZeros derivation,
// target/offset derivation via Candidate, and finally a constellation
// check against every pattern accepted at height.
func CheckProofOfWork(h header.Header, height int32, params *Params) (bool, error) {
	if err := h.Validate(); err != nil {
		return false, err
	}

	v := versionOf(h)
	nBits := NBitsFromDifficulty(h.Difficulty, v)

	min, max := nBitsBounds(v, params)
	if nBits < min || nBits > max {
		return false, errNBitsOutOfRange
	}

	candidate, err := Candidate(h, v, nBits)
	if err != nil {
		return false, err
	}

	patterns := params.PatternsFor(v, height)
	for _, pat := range patterns {
		if checkConstellation(candidate, pat) {
			return true, nil
		}
	}
	return false, errNoPatternMatched
}

// checkConstellation tests whether candidate+pattern[i] is prime for every
// offset in pattern, cheaply screening with a single Fermat/BPSW round
// before committing to the full test (spec §4.B, §4.E: "a 1-iteration
// screen, then full BPSW confirmation" mirrors the miner's own
// cheap-reject-first ordering in pow/mining, so a quick negative doesn't
// pay for a full primality.Cache lookup).
func checkConstellation(candidate bigz.Z, pattern []uint16) bool {
	offsets := make([]bigz.Z, len(pattern))
	cumulative := uint64(0)
	for i, gap := range pattern {
		cumulative += uint64(gap)
		offsets[i] = bigz.AddUint64(candidate, cumulative)
	}

	for _, n := range offsets {
		if !primality.Fermat(n) {
			return false
		}
	}
	for _, n := range offsets {
		if !primality.ProbablePrime(n) {
			return false
		}
	}
	return true
}
