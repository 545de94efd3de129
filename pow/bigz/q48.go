// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bigz

import (
	"crypto/sha256"
	"math"
	"math/big"
)

// Q48 is an unsigned fixed-point value interpreted as real * 2^48. It is the
// canonical consensus representation of merit and difficulty.
type Q48 uint64

// OneQ48 is 1.0 in Q48.
const OneQ48 Q48 = 1 << 48

// Float64 returns the human-readable value of q.
func (q Q48) Float64() float64 {
	return float64(q) / float64(OneQ48)
}

// log2e112 and log2e64 are log2(e) pre-scaled by 2^112 and 2^64
// respectively, parsed once from the same hex constants the original
// GMP-based implementation used. Keeping them as literal constants (instead
// of recomputing log2(e) at runtime) is what makes the kernel bit-exact
// across platforms.
var (
	log2e112 = mustHex("171547652b82fe1777d0ffda0d23a")
	log2e64  = mustHex("171547652b82fe177")
)

func mustHex(s string) *big.Int {
	z, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("bigz: bad constant")
	}
	return z
}

// Log2Q returns floor(log2(z) * 2^acc). z must be positive.
//
// The integer part is bit_length(z) - 1. The fractional part is computed by
// repeated squaring of the normalized residue: at each of the acc output
// bits, square the current remainder and check whether it now exceeds 2;
// if so, that bit is 1 and the remainder is halved before continuing.
func Log2Q(z Z, acc uint32) uint64 {
	if z.Sign() <= 0 {
		panic("bigz: Log2Q requires a positive value")
	}

	intLog2 := uint64(z.BitLen() - 1)
	result := new(big.Int).SetUint64(intLog2)
	result.Lsh(result, uint(acc))

	n := new(big.Int).Lsh(z.v, uint(acc))
	shift := uint(uint64(acc) + intLog2)

	tmp := new(big.Int)
	two := big.NewInt(2)
	var bits uint32
	for {
		tmp.Rsh(n, shift)
		for tmp.Cmp(two) < 0 && bits <= acc {
			n.Mul(n, n)
			n.Rsh(n, shift)
			tmp.Rsh(n, shift)
			bits++
		}
		if bits > acc {
			break
		}

		addend := new(big.Int).Lsh(bigOne, uint(acc-bits))
		result.Add(result, addend)

		n.Rsh(n, 1)
	}

	return result.Uint64()
}

var bigOne = big.NewInt(1)

// Merit returns floor((end-start) * log2(e) * 2^112 / log2(start, 64)),
// truncated to 64 bits.
func Merit(start, end Z) Q48 {
	gap := new(big.Int).Sub(end.v, start.v)

	m := new(big.Int).Mul(gap, log2e112)
	ld := new(big.Int).SetUint64(Log2Q(start, 64))
	m.Div(m, ld)

	m.And(m, new(big.Int).SetUint64(^uint64(0)))
	return Q48(m.Uint64())
}

// MinStep returns floor(2 * log2(e) * 2^112 / log2(start, 64)), the
// consensus tie-breaker modulus used by Difficulty.
func MinStep(start Z) Q48 {
	t := new(big.Int).Mul(big.NewInt(2), log2e112)
	ld := new(big.Int).SetUint64(Log2Q(start, 64))
	t.Div(t, ld)

	if !t.IsUint64() || t.Sign() == 0 {
		return 1
	}
	return Q48(t.Uint64())
}

// Rand returns a deterministic pseudo-random uint64 derived from the gap
// endpoints: the XOR-fold of SHA-256(SHA-256(le(start) || le(end))) into
// four 64-bit lanes.
func Rand(start, end Z) uint64 {
	startBytes := leBytes(start)
	endBytes := leBytes(end)

	first := sha256.New()
	first.Write(startBytes)
	first.Write(endBytes)
	tmp := first.Sum(nil)

	second := sha256.Sum256(tmp)

	var result uint64
	for lane := 0; lane < 4; lane++ {
		var v uint64
		for i := 0; i < 8; i++ {
			v |= uint64(second[lane*8+i]) << (8 * i)
		}
		result ^= v
	}
	return result
}

func leBytes(z Z) []byte {
	be := z.v.Bytes()
	le := make([]byte, len(be))
	for i, c := range be {
		le[len(be)-1-i] = c
	}
	return le
}

// Difficulty returns Merit(start, end) + (Rand(start, end) mod
// MinStep(start)). The random term keeps difficulty a strictly monotone
// function of the gap rather than merely of its size.
func Difficulty(start, end Z) Q48 {
	merit := Merit(start, end)
	step := MinStep(start)
	if step == 0 {
		step = 1
	}
	r := Rand(start, end) % uint64(step)
	return merit + Q48(r)
}

// TargetSize returns the minimum gap length needed to achieve diff at this
// start: floor(diff * log2(start, 64) / (log2(e) * 2^112)).
func TargetSize(start Z, diff Q48) Z {
	ld := new(big.Int).SetUint64(Log2Q(start, 64))
	t := new(big.Int).Mul(big.NewInt(0).SetUint64(uint64(diff)), ld)
	t.Div(t, log2e112)
	return Z{v: t}
}

// TargetWork estimates the number of primality candidates that must be
// tested to find a gap of the given difficulty: approximately e^diff.
// Diagnostic only (not consensus-critical): used for status reporting and
// benchmarking.
func TargetWork(diff Q48) Z {
	// shift = floor(diff * log2(e) / 2^48), so e^diff ~= 2^shift.
	shifted := new(big.Int).Mul(big.NewInt(0).SetUint64(uint64(diff)), log2e112)
	shifted.Rsh(shifted, 48+64)

	n := new(big.Int).Lsh(bigOne, uint(shifted.Uint64()))
	return Z{v: n}
}

// GapsPerDay estimates the number of gaps found per day given a primality
// test rate (pps, primes tested per second) and a target difficulty.
// Diagnostic only.
func GapsPerDay(pps float64, diff Q48) float64 {
	if pps <= 0 {
		return 0
	}
	work := TargetWorkFloat(diff)
	secondsPerGap := work / pps
	if secondsPerGap <= 0 {
		return 0
	}
	return (60.0 * 60.0 * 24.0) / secondsPerGap
}

// TargetWorkFloat is the floating-point sibling of TargetWork used only by
// the diagnostic GapsPerDay estimator, never by a consensus path.
func TargetWorkFloat(diff Q48) float64 {
	return math.Exp(diff.Float64())
}
