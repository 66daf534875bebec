package reader

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheBytes is the default decoded-tile cache budget of 4 GiB.
const DefaultCacheBytes int64 = 4 << 30

type tileKey struct {
	level int
	index int
}

// tileCache is a byte-budgeted LRU over decoded tile buffers. The LRU
// tracks recency; the byte budget drives eviction.
type tileCache struct {
	mu     sync.Mutex
	lru    *lru.Cache[tileKey, []byte]
	bytes  int64
	budget int64

	hits   int64
	misses int64
}

// CacheStats is a point-in-time snapshot of cache effectiveness.
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Bytes  int64 `json:"bytes"`
	Budget int64 `json:"budget"`
}

func newTileCache(budget int64) *tileCache {
	if budget <= 0 {
		budget = DefaultCacheBytes
	}
	c := &tileCache{budget: budget}
	// Entry cap is generous; the byte budget is the real limit.
	c.lru, _ = lru.NewWithEvict[tileKey, []byte](1<<20, func(_ tileKey, buf []byte) {
		c.bytes -= int64(len(buf))
	})
	return c
}

func (c *tileCache) get(k tileKey) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf, ok := c.lru.Get(k)
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return buf, ok
}

func (c *tileCache) add(k tileKey, buf []byte) {
	if int64(len(buf)) > c.budget {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.lru.Peek(k); ok {
		c.bytes -= int64(len(prev))
	}
	c.lru.Add(k, buf)
	c.bytes += int64(len(buf))
	for c.bytes > c.budget {
		if _, _, ok := c.lru.RemoveOldest(); !ok {
			break
		}
	}
}

func (c *tileCache) stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses, Bytes: c.bytes, Budget: c.budget}
}
