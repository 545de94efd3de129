// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import "github.com/rbellamy/primegap/pow/sieve"

// Tier names which primality backend a Pipeline drives its sieve survivors
// through. Grounded on the original engine's three-tier architecture
// (CPU-only, CPU+OpenCL, CPU+CUDA); only TierCPU does real primality
// testing in this port, since this module has no cgo/OpenCL/CUDA bindings
// to bind to — the other tiers exist so Pipeline's dispatch surface and
// config plumbing match a build that does have them.
type Tier int

const (
	// TierCPU runs BPSW sequentially on every sieve survivor.
	TierCPU Tier = iota
	// TierOpenCL batches survivors through an OpenCL Fermat pre-filter
	// before a CPU BPSW confirmation pass.
	TierOpenCL
	// TierCUDA batches survivors through a CUDA BPSW implementation.
	TierCUDA
)

func (t Tier) String() string {
	switch t {
	case TierCPU:
		return "cpu"
	case TierOpenCL:
		return "opencl"
	case TierCUDA:
		return "cuda"
	default:
		return "unknown"
	}
}

// DetectTier probes the running machine and returns the best tier it can
// actually drive. No GPU runtime is linked into this module, so detection
// is limited to the CPU's SIMD width (which still matters for pre-sieve
// throughput); it always resolves to TierCPU.
func DetectTier() Tier {
	_ = sieve.DetectSIMDTier()
	return TierCPU
}
