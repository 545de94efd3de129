// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sieve

import "math"

// DefaultSievePrimes is the default number of sieving primes used to build a
// PrimeTable: 250,000 primes covers numbers up to ~3.5M, eliminating the
// vast majority of composites before any Fermat/BPSW test is needed (spec
// §3, §4.C).
const DefaultSievePrimes = 250_000

// PrimeTable is the ordered, read-only, shared sequence of the first N odd
// primes, with 2 at index 0.
type PrimeTable struct {
	primes []uint32
}

// NewPrimeTable builds a PrimeTable containing the first n primes (2
// followed by the first n-1 odd primes).
func NewPrimeTable(n int) *PrimeTable {
	if n < 1 {
		n = 1
	}
	primes := make([]uint32, 0, n)
	primes = append(primes, 2)

	// Upper bound via the prime-counting approximation n*(ln n + ln ln n),
	// with a floor for small n, then grown if it undershoots.
	limit := estimateUpperBound(n)
	for {
		found := sieveUpTo(limit, n)
		if len(found) >= n {
			primes = append(primes, found[:n-1]...)
			break
		}
		limit *= 2
	}

	return &PrimeTable{primes: primes}
}

func estimateUpperBound(n int) uint64 {
	if n < 6 {
		return 15
	}
	fn := float64(n)
	lnN := math.Log(fn)
	lnlnN := math.Log(lnN)
	return uint64(fn*(lnN+lnlnN)) + 10
}

// sieveUpTo returns all odd primes <= limit, stopping early once want have
// been found (want is the number of odd primes needed).
func sieveUpTo(limit uint64, want int) []uint32 {
	isComposite := make([]bool, limit+1)
	var odd []uint32
	for p := uint64(3); p <= limit && len(odd) < want; p += 2 {
		if isComposite[p] {
			continue
		}
		odd = append(odd, uint32(p))
		if p*p <= limit {
			for m := p * p; m <= limit; m += 2 * p {
				isComposite[m] = true
			}
		}
	}
	return odd
}

// Len returns the number of primes in the table.
func (t *PrimeTable) Len() int { return len(t.primes) }

// At returns the prime at index i (0 == 2).
func (t *PrimeTable) At(i int) uint32 { return t.primes[i] }

// Slice returns the underlying read-only prime slice.
func (t *PrimeTable) Slice() []uint32 { return t.primes }
