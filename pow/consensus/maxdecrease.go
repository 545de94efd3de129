// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"time"

	"github.com/rbellamy/primegap/pow/bigz"
)

// decreaseStep is how long an absent miner must be gone before difficulty
// is permitted to fall by a full 1.0 merit: 174 blocks at the 150-second
// target spacing (factor e), grounded on PoWUtils::max_difficulty_decrease.
const decreaseStep = 174 * 150 * time.Second

// MaxDifficultyDecrease bounds how far difficulty may fall after a gap of
// elapsed wall-clock time with no submitted block — a stale-tip floor, not
// a per-block retarget step. Repeatedly applying NextWorkRequired's ASERT
// formula already converges to the same place over many blocks; this
// gives header-less callers (a wallet checking a stale difficulty display,
// a peer validating a long reorg) the same answer in one step.
func MaxDifficultyDecrease(diff bigz.Q48, elapsed time.Duration, min bigz.Q48) bigz.Q48 {
	remaining := elapsed
	for remaining > 0 && diff > min {
		if diff >= bigz.OneQ48 {
			diff -= bigz.OneQ48
		} else {
			diff = min
			break
		}
		remaining -= decreaseStep
	}
	if diff < min {
		diff = min
	}
	return diff
}
