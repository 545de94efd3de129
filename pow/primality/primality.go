// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package primality implements the deterministic Baillie-PSW probable
// prime test used to confirm prime-gap endpoints, plus the fast Fermat
// pre-filter used by batched CPU/GPU back-ends.
//
// No known BPSW counterexample exists below 2^64; this package makes no
// stronger claim than that, matching the Freycoin/Gapcoin lineage this
// engine descends from.
package primality

import (
	"math/big"

	"github.com/rbellamy/primegap/pow/bigz"
)

var smallOddPrimes = [...]uint64{
	3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53, 59, 61, 67, 71,
	73, 79, 83, 89, 97,
}

var (
	big0 = big.NewInt(0)
	big1 = big.NewInt(1)
	big2 = big.NewInt(2)
)

// Fermat reports whether 2^(n-1) === 1 (mod n). It is a fast heuristic
// pre-filter: every candidate that passes Fermat must still be confirmed by
// ProbablePrime before being accepted as a prime-gap endpoint.
func Fermat(n bigz.Z) bool {
	v := n.BigInt()
	if v.Cmp(big2) < 0 {
		return false
	}
	if v.Cmp(big2) == 0 {
		return true
	}
	if v.Bit(0) == 0 {
		return false
	}
	nMinus1 := new(big.Int).Sub(v, big1)
	r := new(big.Int).Exp(big2, nMinus1, v)
	return r.Cmp(big1) == 0
}

// ProbablePrime runs the full Baillie-PSW test: trial division by the first
// 24 odd primes, Miller-Rabin base 2, and strong Lucas-Selfridge.
func ProbablePrime(n bigz.Z) bool {
	v := n.BigInt()

	if v.Cmp(big2) < 0 {
		return false
	}
	if v.Cmp(big2) == 0 {
		return true
	}
	if v.Bit(0) == 0 {
		return false
	}

	for _, p := range smallOddPrimes {
		pBig := new(big.Int).SetUint64(p)
		if v.Cmp(pBig) == 0 {
			return true
		}
		if new(big.Int).Mod(v, pBig).Sign() == 0 {
			return false
		}
	}

	if !millerRabinBase2(v) {
		return false
	}
	return strongLucasSelfridge(v)
}

// millerRabinBase2 implements step 2 of spec §4.B: write n-1 = d*2^s with d
// odd, x = 2^d mod n; accept if x in {1, n-1}, otherwise square up to s-1
// times looking for n-1.
func millerRabinBase2(n *big.Int) bool {
	nMinus1 := new(big.Int).Sub(n, big1)

	d := new(big.Int).Set(nMinus1)
	s := 0
	for d.Bit(0) == 0 {
		d.Rsh(d, 1)
		s++
	}

	x := new(big.Int).Exp(big2, d, n)
	if x.Cmp(big1) == 0 || x.Cmp(nMinus1) == 0 {
		return true
	}

	for i := 0; i < s-1; i++ {
		x.Exp(x, big2, n)
		if x.Cmp(nMinus1) == 0 {
			return true
		}
		if x.Cmp(big1) == 0 {
			return false
		}
	}
	return false
}

// isPerfectSquare reports whether n is a perfect square.
func isPerfectSquare(n *big.Int) bool {
	if n.Sign() < 0 {
		return false
	}
	r := new(big.Int).Sqrt(n)
	r.Mul(r, r)
	return r.Cmp(n) == 0
}

// selfridgeD finds the Selfridge D parameter by iterating 5, -7, 9, -11, ...
// until jacobi(D, n) == -1.
func selfridgeD(n *big.Int) int64 {
	d := int64(5)
	for {
		dBig := big.NewInt(d)
		var jn *big.Int
		if d < 0 {
			jn = new(big.Int).Mod(dBig, n)
		} else {
			jn = dBig
		}
		j := big.Jacobi(jn, n)
		if j == -1 {
			return d
		}
		if j == 0 {
			// |D| shares a factor with n: n is composite unless n == |D|.
			absD := new(big.Int).Abs(dBig)
			if absD.Cmp(n) == 0 {
				return d
			}
			return 0
		}
		if d > 0 {
			d = -(d + 2)
		} else {
			d = -(d) + 2
		}
	}
}

// strongLucasSelfridge implements step 3 of spec §4.B: reject perfect
// squares, find Selfridge D, then run the strong Lucas sequence test via
// doubling-and-increment on the bits of n+1 = d*2^s (odd d).
func strongLucasSelfridge(n *big.Int) bool {
	if isPerfectSquare(n) {
		return false
	}

	d := selfridgeD(n)
	if d == 0 {
		return false
	}

	p := int64(1)
	q := (1 - d) / 4

	nPlus1 := new(big.Int).Add(n, big1)
	dd := new(big.Int).Set(nPlus1)
	s := 0
	for dd.Bit(0) == 0 {
		dd.Rsh(dd, 1)
		s++
	}

	u, v, qk := lucasUV(dd, p, q, n)

	if u.Sign() == 0 {
		return true
	}
	if v.Sign() == 0 {
		return true
	}

	for r := 0; r < s-1; r++ {
		v = lucasDoubleV(v, qk, n)
		qk = modMul(qk, qk, n)
		if v.Sign() == 0 {
			return true
		}
	}

	return false
}

// lucasUV computes (U_d mod n, V_d mod n, Q^d mod n) via the standard
// doubling-and-increment recurrence, walking the bits of d from the top.
func lucasUV(d *big.Int, p, q int64, n *big.Int) (*big.Int, *big.Int, *big.Int) {
	pBig := big.NewInt(p)
	qBig := normalizeMod(big.NewInt(q), n)

	u := big.NewInt(0)
	v := big.NewInt(2)
	qk := big.NewInt(1)

	bits := d.BitLen()
	for i := bits - 1; i >= 0; i-- {
		// Double: U_2k = U_k*V_k, V_2k = V_k^2 - 2*Q^k.
		u = modMul(u, v, n)
		v2 := modMul(v, v, n)
		v = normalizeMod(new(big.Int).Sub(v2, new(big.Int).Lsh(qk, 1)), n)
		qk = modMul(qk, qk, n)

		if d.Bit(i) == 1 {
			// Increment: U_{k+1} = (P*U_k + V_k)/2, V_{k+1} = (D*U_k + P*V_k)/2.
			newU := halveMod(new(big.Int).Add(modMul(pBig, u, n), v), n)
			newV := halveMod(addMod(modMul(discriminant(p, q), u, n), modMul(pBig, v, n), n), n)
			u, v = newU, newV
			qk = modMul(qk, qBig, n)
		}
	}

	return normalizeMod(u, n), normalizeMod(v, n), qk
}

func lucasDoubleV(v, qk, n *big.Int) *big.Int {
	v2 := modMul(v, v, n)
	return normalizeMod(new(big.Int).Sub(v2, new(big.Int).Lsh(qk, 1)), n)
}

func discriminant(p, q int64) *big.Int {
	d := p*p - 4*q
	return big.NewInt(d)
}

func modMul(a, b, n *big.Int) *big.Int {
	r := new(big.Int).Mul(a, b)
	return normalizeMod(r, n)
}

func addMod(a, b, n *big.Int) *big.Int {
	return normalizeMod(new(big.Int).Add(a, b), n)
}

func normalizeMod(a, n *big.Int) *big.Int {
	r := new(big.Int).Mod(a, n)
	return r
}

// halveMod divides a by 2 modulo n, where n is odd: if a is odd, add n
// first to make it even before shifting.
func halveMod(a, n *big.Int) *big.Int {
	a = normalizeMod(a, n)
	if a.Bit(0) == 1 {
		a = new(big.Int).Add(a, n)
	}
	return a.Rsh(a, 1)
}
