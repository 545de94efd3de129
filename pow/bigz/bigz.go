// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package bigz implements the arbitrary-precision arithmetic kernel shared
// by the primality oracle, segmented sieve, mining pipeline, and consensus
// validator. Every consensus-visible quantity that flows through this
// package is deterministic and platform-independent: no floating point is
// used anywhere on the hot path.
package bigz

import "math/big"

// Z is a non-negative arbitrary-precision integer. It exists only in
// memory: it is never persisted, and its lifetime is bounded by the scope
// that created it.
type Z struct {
	v *big.Int
}

// Zero returns the zero value of Z.
func Zero() Z {
	return Z{v: new(big.Int)}
}

// FromUint64 builds a Z from a uint64.
func FromUint64(n uint64) Z {
	return Z{v: new(big.Int).SetUint64(n)}
}

// FromBigInt wraps an existing *big.Int. The caller must not mutate z
// afterwards; Z treats its backing big.Int as owned.
func FromBigInt(z *big.Int) Z {
	if z.Sign() < 0 {
		panic("bigz: negative value")
	}
	return Z{v: z}
}

// FromBytesLE decodes a non-negative integer from a little-endian byte
// string.
func FromBytesLE(b []byte) Z {
	be := make([]byte, len(b))
	for i, c := range b {
		be[len(b)-1-i] = c
	}
	return Z{v: new(big.Int).SetBytes(be)}
}

// ToBytesLE encodes z as a little-endian byte string of exactly size bytes,
// left-padding (i.e. right-padding in little-endian order) with zeros. If z
// does not fit in size bytes, ToBytesLE panics: callers must bounds-check
// before calling, per the kernel's "no error returns" contract.
func (z Z) ToBytesLE(size int) []byte {
	be := z.v.Bytes()
	if len(be) > size {
		panic("bigz: value does not fit in requested size")
	}
	out := make([]byte, size)
	for i, c := range be {
		out[len(be)-1-i] = c
	}
	return out
}

// BigInt returns the underlying *big.Int. Callers must treat it as
// read-only.
func (z Z) BigInt() *big.Int { return z.v }

// BitLen returns the number of bits required to represent z, with BitLen(0) == 0.
func (z Z) BitLen() int { return z.v.BitLen() }

// Sign returns -1, 0, or 1.
func (z Z) Sign() int { return z.v.Sign() }

// Cmp compares z to o.
func (z Z) Cmp(o Z) int { return z.v.Cmp(o.v) }

// IsZero reports whether z == 0.
func (z Z) IsZero() bool { return z.v.Sign() == 0 }

// IsEven reports whether z is even.
func (z Z) IsEven() bool { return z.v.Bit(0) == 0 }

// Add returns a + b.
func Add(a, b Z) Z { return Z{v: new(big.Int).Add(a.v, b.v)} }

// Sub returns a - b. Panics if the result would be negative, since Z is
// non-negative by construction and callers are expected to have already
// established a >= b.
func Sub(a, b Z) Z {
	r := new(big.Int).Sub(a.v, b.v)
	if r.Sign() < 0 {
		panic("bigz: subtraction underflow")
	}
	return Z{v: r}
}

// Mul returns a * b.
func Mul(a, b Z) Z { return Z{v: new(big.Int).Mul(a.v, b.v)} }

// Div returns the truncated quotient a / b (b != 0).
func Div(a, b Z) Z { return Z{v: new(big.Int).Div(a.v, b.v)} }

// Mod returns a mod b (b != 0), the Euclidean remainder (always non-negative
// for non-negative a, b).
func Mod(a, b Z) Z { return Z{v: new(big.Int).Mod(a.v, b.v)} }

// Lsh returns a << n.
func Lsh(a Z, n uint) Z { return Z{v: new(big.Int).Lsh(a.v, n)} }

// Rsh returns a >> n.
func Rsh(a Z, n uint) Z { return Z{v: new(big.Int).Rsh(a.v, n)} }

// Pow returns a^e.
func Pow(a Z, e uint64) Z {
	return Z{v: new(big.Int).Exp(a.v, new(big.Int).SetUint64(e), nil)}
}

// ModPow returns a^e mod m.
func ModPow(a, e, m Z) Z { return Z{v: new(big.Int).Exp(a.v, e.v, m.v)} }

// GCD returns the greatest common divisor of a and b.
func GCD(a, b Z) Z { return Z{v: new(big.Int).GCD(nil, nil, a.v, b.v)} }

// Jacobi returns the Jacobi symbol (x/y), -1, 0, or 1. y must be odd and
// positive.
func Jacobi(x, y Z) int { return big.Jacobi(x.v, y.v) }

// AddUint64 returns a + n.
func AddUint64(a Z, n uint64) Z {
	return Z{v: new(big.Int).Add(a.v, new(big.Int).SetUint64(n))}
}

// SubUint64 returns a - n.
func SubUint64(a Z, n uint64) Z {
	return Sub(a, FromUint64(n))
}

// ModUint64 returns a mod n as a uint64 (n != 0, a mod n always fits since
// n fits).
func ModUint64(a Z, n uint64) uint64 {
	return new(big.Int).Mod(a.v, new(big.Int).SetUint64(n)).Uint64()
}

// Uint64 returns the low 64 bits of z. Callers must have already verified
// BitLen(z) <= 64.
func (z Z) Uint64() uint64 { return z.v.Uint64() }

// FitsUint64 reports whether z fits in a uint64.
func (z Z) FitsUint64() bool { return z.v.IsUint64() }
