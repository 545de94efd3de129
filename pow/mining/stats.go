// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import "sync/atomic"

// Stats is a thread-safe mining statistics accumulator, field-for-field
// grounded on the original MiningStats (pow_common.h): every worker
// updates it with plain atomic adds, no locking.
type Stats struct {
	primesFound     atomic.Uint64
	testsPerformed  atomic.Uint64
	gapsFound       atomic.Uint64
	sieveRuns       atomic.Uint64
	cacheMisses     atomic.Uint64
	timeSievingUs   atomic.Uint64
	timeTestingUs   atomic.Uint64
}

// StatsSnapshot is a point-in-time, non-atomic copy of Stats suitable for
// display or logging.
type StatsSnapshot struct {
	PrimesFound    uint64
	TestsPerformed uint64
	GapsFound      uint64
	SieveRuns      uint64
	CacheMisses    uint64
	TimeSievingUs  uint64
	TimeTestingUs  uint64
}

// Snapshot copies the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		PrimesFound:    s.primesFound.Load(),
		TestsPerformed: s.testsPerformed.Load(),
		GapsFound:      s.gapsFound.Load(),
		SieveRuns:      s.sieveRuns.Load(),
		CacheMisses:    s.cacheMisses.Load(),
		TimeSievingUs:  s.timeSievingUs.Load(),
		TimeTestingUs:  s.timeTestingUs.Load(),
	}
}

func (s *Stats) addPrimesFound(n uint64)    { s.primesFound.Add(n) }
func (s *Stats) addTestsPerformed(n uint64) { s.testsPerformed.Add(n) }
func (s *Stats) addGapsFound(n uint64)      { s.gapsFound.Add(n) }
func (s *Stats) addSieveRuns(n uint64)      { s.sieveRuns.Add(n) }
