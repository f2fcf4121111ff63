// Package cache implements the persistent, concurrency-safe response cache
// for segmentation results. Keys are content addresses: pure functions of
// the chunk text, model identifier, and prompt version.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/dervan/noteforge/internal/keying"
	"github.com/dervan/noteforge/pkg/types"
)

// DefaultMemoryEntries bounds the in-memory hot layer when the caller does
// not configure one.
const DefaultMemoryEntries = 1024

// ConsistencyError reports the same key observed with two different
// values. Cache keys must be pure, so this signals a broken key function
// and is fatal to the run rather than silently overwritten.
type ConsistencyError struct {
	Key string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("cache: key %s stored with two different values", e.Key)
}

// ComputeFunc produces the value for a key on cache miss.
type ComputeFunc func(ctx context.Context) ([]types.Section, error)

// Cache is a content-addressed store of segmentation results.
//
// Reads hit a bounded LRU layer first, then the persistent store. Writes
// go to both. GetOrCompute collapses concurrent callers per key via
// singleflight, so the compute function runs at most once per key at a
// time; callers for different keys never block on each other.
type Cache struct {
	hot    *lru.Cache[string, []types.Section]
	store  Store
	group  singleflight.Group
	logger *slog.Logger

	// digests tracks the value digest of every key written or observed in
	// this run, backing the purity guard.
	mu      sync.Mutex
	digests map[string]string

	hits   atomic.Int64
	misses atomic.Int64
}

// Options configures a Cache.
type Options struct {
	Store         Store
	MemoryEntries int
	Logger        *slog.Logger
}

// New creates a Cache. A nil store degrades to a process-local memory
// store: the cache is an optimization, not a source of truth.
func New(opts Options) (*Cache, error) {
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.MemoryEntries <= 0 {
		opts.MemoryEntries = DefaultMemoryEntries
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	hot, err := lru.New[string, []types.Section](opts.MemoryEntries)
	if err != nil {
		return nil, fmt.Errorf("cache: create lru: %w", err)
	}

	return &Cache{
		hot:     hot,
		store:   opts.Store,
		logger:  opts.Logger,
		digests: make(map[string]string),
	}, nil
}

// Get looks the key up without side effects beyond hot-layer promotion.
func (c *Cache) Get(ctx context.Context, key string) ([]types.Section, bool) {
	if secs, ok := c.hot.Get(key); ok {
		return cloneSections(secs), true
	}

	entry, ok, err := c.store.Get(ctx, key)
	if err != nil {
		// A broken row is a miss, not a failure.
		c.logger.Warn("cache read failed, treating as miss",
			slog.String("key", key), slog.String("error", err.Error()))
		return nil, false
	}
	if !ok {
		return nil, false
	}

	c.rememberDigest(key, entry.Sections)
	c.hot.Add(key, entry.Sections)
	return cloneSections(entry.Sections), true
}

// Put stores a value for key. A second Put with an identical value is a
// no-op; a different value for an existing key returns ConsistencyError.
func (c *Cache) Put(ctx context.Context, key string, sections []types.Section) error {
	digest := sectionsDigest(sections)

	c.mu.Lock()
	prev, seen := c.digests[key]
	if !seen {
		if entry, ok, err := c.store.Get(ctx, key); err == nil && ok {
			prev = sectionsDigest(entry.Sections)
			seen = true
		}
	}
	if seen && prev != digest {
		c.mu.Unlock()
		return &ConsistencyError{Key: key}
	}
	c.digests[key] = digest
	c.mu.Unlock()

	if seen {
		return nil
	}

	c.hot.Add(key, cloneSections(sections))
	if err := c.store.Put(ctx, Entry{Key: key, Sections: sections, CreatedAt: time.Now()}); err != nil {
		c.logger.Warn("cache write failed",
			slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}

// GetOrCompute returns the cached value for key, computing and storing it
// on miss. Concurrent callers for the same key share one computation and
// one result. A failed computation is not cached, so a later call retries.
// The second return value reports whether the value came from cache.
func (c *Cache) GetOrCompute(ctx context.Context, key string, fn ComputeFunc) ([]types.Section, bool, error) {
	type outcome struct {
		sections []types.Section
		cached   bool
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if secs, ok := c.Get(ctx, key); ok {
			return outcome{sections: secs, cached: true}, nil
		}

		secs, err := fn(ctx)
		if err != nil {
			return nil, err
		}

		if err := c.Put(ctx, key, secs); err != nil {
			return nil, err
		}
		return outcome{sections: secs}, nil
	})
	if err != nil {
		return nil, false, err
	}

	out := v.(outcome)
	if out.cached {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return cloneSections(out.sections), out.cached, nil
}

// Counters returns the cumulative hit and miss counts.
func (c *Cache) Counters() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Close flushes and releases the backing store.
func (c *Cache) Close() error {
	return c.store.Close()
}

func (c *Cache) rememberDigest(key string, sections []types.Section) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.digests[key]; !ok {
		c.digests[key] = sectionsDigest(sections)
	}
}

// sectionsDigest canonicalizes a value for the purity guard.
func sectionsDigest(sections []types.Section) string {
	data, err := json.Marshal(sections)
	if err != nil {
		// Sections are plain strings and slices; this cannot fail.
		panic(fmt.Sprintf("cache: marshal sections: %v", err))
	}
	return keying.Digest(data)
}

// cloneSections returns a copy so caller mutations never reach the cache.
func cloneSections(sections []types.Section) []types.Section {
	out := make([]types.Section, len(sections))
	copy(out, sections)
	for i := range out {
		if len(sections[i].Tags) > 0 {
			out[i].Tags = append([]string(nil), sections[i].Tags...)
		}
	}
	return out
}
