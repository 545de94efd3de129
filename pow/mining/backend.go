// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"github.com/rbellamy/primegap/pow/bigz"
	"github.com/rbellamy/primegap/pow/primality"
)

// PrimalityBackend confirms or rejects a batch of sieve survivors. Grounded
// on the original PrimalityTester's bpsw_test/fermat_test dispatch and the
// GPURequest batch-submission protocol, simplified here to a synchronous
// call since this port has no GPU runtime to hand a batch to.
type PrimalityBackend interface {
	Test(candidates []bigz.Z) []bool
}

// cpuBackend runs the full BPSW test, memoized through a shared cache, on
// every candidate sequentially.
type cpuBackend struct {
	cache *primality.Cache
}

func newCPUBackend() *cpuBackend {
	return &cpuBackend{cache: primality.NewCache(primality.DefaultCacheSize)}
}

func (b *cpuBackend) Test(candidates []bigz.Z) []bool {
	out := make([]bool, len(candidates))
	for i, c := range candidates {
		out[i] = b.cache.ProbablePrimeCached(c)
	}
	return out
}

// unsupportedBackend stands in for a tier this build has no runtime for
// (OpenCL, CUDA); it logs once per batch and falls back to the CPU
// backend rather than failing the mine.
type unsupportedBackend struct {
	tier     Tier
	fallback PrimalityBackend
}

func (b *unsupportedBackend) Test(candidates []bigz.Z) []bool {
	log.Debugf("%s backend not available in this build, using CPU BPSW", b.tier)
	return b.fallback.Test(candidates)
}

// NewBackend returns the PrimalityBackend for tier, falling back to CPU
// BPSW for any tier this build cannot actually drive.
func NewBackend(tier Tier) PrimalityBackend {
	cpu := newCPUBackend()
	if tier == TierCPU {
		return cpu
	}
	return &unsupportedBackend{tier: tier, fallback: cpu}
}
