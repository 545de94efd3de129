// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package primality

import (
	"github.com/decred/dcrd/lru"

	"github.com/rbellamy/primegap/pow/bigz"
)

// DefaultCacheSize bounds the number of recent ProbablePrime verdicts kept
// in memory, sized to roughly one sieve segment's worth of expected
// survivors.
const DefaultCacheSize = 4096

// Cache memoizes recent ProbablePrime verdicts so a candidate re-checked by
// more than one caller (e.g. mempool pre-check and connect-block check for
// the same header) does not re-run BPSW.
type Cache struct {
	primes     *lru.Cache
	composites *lru.Cache
}

// NewCache creates a Cache holding up to size entries of each verdict.
func NewCache(size uint32) *Cache {
	if size == 0 {
		size = DefaultCacheSize
	}
	return &Cache{
		primes:     lru.NewCache(size),
		composites: lru.NewCache(size),
	}
}

func key(n bigz.Z) string {
	return string(n.BigInt().Bytes())
}

// CheckCached returns the cached verdict for n, if any, and whether it was
// found.
func (c *Cache) CheckCached(n bigz.Z) (isPrime bool, found bool) {
	k := key(n)
	if c.primes.Contains(k) {
		return true, true
	}
	if c.composites.Contains(k) {
		return false, true
	}
	return false, false
}

// ProbablePrimeCached runs ProbablePrime, consulting and updating the
// cache.
func (c *Cache) ProbablePrimeCached(n bigz.Z) bool {
	if verdict, ok := c.CheckCached(n); ok {
		return verdict
	}
	verdict := ProbablePrime(n)
	k := key(n)
	if verdict {
		c.primes.Add(k)
	} else {
		c.composites.Add(k)
	}
	return verdict
}
