// Package cache keeps the latest per-product signal for read-side endpoints.
package cache

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"
	"time"
)

const numShards = 16

// Entry is the most recent engine view of one product.
type Entry struct {
	Product   string    `json:"product"`
	Fair      float64   `json:"fair"`
	Trend     string    `json:"trend,omitempty"`
	Position  int       `json:"position"`
	Orders    int       `json:"orders"`
	Failed    bool      `json:"failed"`
	Timestamp int64     `json:"timestamp"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SignalCache is a sharded product -> Entry map.
type SignalCache struct {
	shards [numShards]*shard
}

type shard struct {
	mu    sync.RWMutex
	items map[string]Entry
}

// NewSignalCache creates an empty cache.
func NewSignalCache() *SignalCache {
	c := &SignalCache{}
	for i := 0; i < numShards; i++ {
		c.shards[i] = &shard{items: make(map[string]Entry)}
	}
	return c
}

func (c *SignalCache) getShard(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return c.shards[h.Sum32()%numShards]
}

// Set stores e under e.Product, stamping UpdatedAt.
func (c *SignalCache) Set(e Entry) {
	e.UpdatedAt = time.Now()
	s := c.getShard(e.Product)
	s.mu.Lock()
	s.items[e.Product] = e
	s.mu.Unlock()
}

// Get retrieves the entry for product.
func (c *SignalCache) Get(product string) (Entry, bool) {
	s := c.getShard(product)
	s.mu.RLock()
	e, ok := s.items[product]
	s.mu.RUnlock()
	return e, ok
}

// Len returns total items across all shards.
func (c *SignalCache) Len() int {
	total := 0
	for _, s := range c.shards {
		s.mu.RLock()
		total += len(s.items)
		s.mu.RUnlock()
	}
	return total
}

// Cleanup removes entries older than maxAge.
func (c *SignalCache) Cleanup(maxAge time.Duration) int {
	removed := 0
	cutoff := time.Now().Add(-maxAge)

	for _, s := range c.shards {
		s.mu.Lock()
		for product, e := range s.items {
			if e.UpdatedAt.Before(cutoff) {
				delete(s.items, product)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// StartJanitor evicts entries older than maxAge every interval until ctx is
// done. Products that stop appearing in the book age out this way.
func (c *SignalCache) StartJanitor(ctx context.Context, interval, maxAge time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Cleanup(maxAge)
			}
		}
	}()
}

// All returns every entry ordered by product.
func (c *SignalCache) All() []Entry {
	var out []Entry
	for _, s := range c.shards {
		s.mu.RLock()
		for _, e := range s.items {
			out = append(out, e)
		}
		s.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Product < out[j].Product })
	return out
}
