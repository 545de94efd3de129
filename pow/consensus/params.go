// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package consensus implements the header hash, dual-version proof-of-work
// check, ASERT-style difficulty retarget, and chain-work proxy shared by
// every node validating a prime-gap block (spec §4.E). Every exported
// function here is pure: no package-level mutable state, consensus
// parameters passed explicitly, matching the teacher's own "no
// globalChainParams" discipline in chaincfg.Params.
package consensus

// Version identifies which of the two recognized PoW rule sets a header
// follows. It is read directly from the header's own Version field (spec
// §4.E: "Version -1 (legacy)" / "Version 1 (post-fork)" are the two
// recognized values) rather than being derived from height or nonce bits
// separately, since the header already carries an authoritative version
// tag in its hashed partition.
type Version int32

const (
	VersionLegacy Version = -1
	VersionV1     Version = 1
)

// Pattern is the gap sequence [g0, g1, ..., gk-1] between consecutive
// members of an accepted prime constellation (spec §3 "Prime
// constellation"): member i sits at candidate + sum(pattern[0:i+1]), so
// g0 is conventionally 0.
type Pattern []uint16

// LegacyPattern is the fixed accepted pattern for Version -1 headers (spec
// §4.E): a sexy/quadruplet-adjacent hybrid six-tuple, i.e. absolute
// offsets {0, 4, 6, 10, 12, 16} expressed as gaps.
var LegacyPattern = Pattern{0, 4, 2, 4, 2, 4}

// Params bundles the consensus parameters a validation function needs,
// passed explicitly into every entry point per spec §9's "no global
// mutable chain params" redesign note.
type Params struct {
	// NBitsMin is the floor below which nBits (in either version's
	// encoding) is rejected outright.
	NBitsMin uint32

	// TargetSpacing is the desired seconds between blocks.
	TargetSpacing int64

	// TimestampWindow bounds how far a solve time can be measured early
	// (negative) before the ASERT formula's fast-side clamp engages.
	TimestampWindow int64

	// ForkHeight is the height at which Version V1 headers become valid
	// (heights below it must be VersionLegacy).
	ForkHeight int32

	// PatternsAtHeight returns the accepted V1 patterns for a given
	// height. Legacy headers always use LegacyPattern regardless of this
	// function.
	PatternsAtHeight func(height int32) []Pattern
}

// PatternsFor returns the patterns CheckProofOfWork should try for a
// header of the given version and height.
func (p *Params) PatternsFor(v Version, height int32) []Pattern {
	if v == VersionLegacy {
		return []Pattern{LegacyPattern}
	}
	if p.PatternsAtHeight == nil {
		return nil
	}
	return p.PatternsAtHeight(height)
}
