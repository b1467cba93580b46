package compiler

import (
	"sync"
	"sync/atomic"

	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/types"
	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/utils"
)

// DefaultCacheSize bounds the number of memoized programs
const DefaultCacheSize = 512

// Cache memoizes compiled programs keyed by assertion fingerprint
type Cache struct {
	programs sync.Map
	size     atomic.Int64
	max      int64
	evicting atomic.Bool
	hasher   *utils.Hasher

	hits   atomic.Uint64
	misses atomic.Uint64
}

// CacheStats reports cache usage
type CacheStats struct {
	Entries int    `json:"entries"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
}

// NewCache creates a cache holding up to maxEntries programs
func NewCache(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheSize
	}
	return &Cache{
		max:    int64(maxEntries),
		hasher: utils.DefaultHasher(),
	}
}

// Program returns the compiled program for assertions and its fingerprint
func (c *Cache) Program(assertions []types.Assertion) (string, string) {
	key := c.hasher.AssertionFingerprint(assertions)
	if cached, ok := c.programs.Load(key); ok {
		c.hits.Add(1)
		return cached.(string), key
	}

	c.misses.Add(1)
	program := Compile(assertions)
	if _, loaded := c.programs.LoadOrStore(key, program); !loaded {
		if c.size.Add(1) > c.max {
			c.evict()
		}
	}
	return program, key
}

// Len returns the number of cached programs
func (c *Cache) Len() int {
	return int(c.size.Load())
}

// Stats returns a usage snapshot
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Entries: c.Len(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}

// evict drops entries until the cache is back under its bound with
// headroom. sync.Map has no order, so the victims are arbitrary.
func (c *Cache) evict() {
	if !c.evicting.CompareAndSwap(false, true) {
		return
	}
	defer c.evicting.Store(false)

	current := c.size.Load()
	if current <= c.max {
		return
	}

	target := current - c.max + c.max/10
	var evicted int64
	c.programs.Range(func(key, _ interface{}) bool {
		if evicted >= target {
			return false
		}
		c.programs.Delete(key)
		evicted++
		return true
	})
	c.size.Add(-evicted)
}
