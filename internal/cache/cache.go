// Package cache provides the in-memory validation result cache.
//
// Entries expire after a TTL measured from when they were stored and the
// store is capped at MaxEntries with least-recently-used eviction. GetOrFetch
// coalesces concurrent misses for the same key so the wrapped operation runs
// at most once per key at any instant.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"golang.org/x/sync/singleflight"

	"github.com/gazette-app/valguard/internal/clock"
	"github.com/gazette-app/valguard/internal/metrics"
)

// Defaults applied by New for zero config values.
const (
	DefaultMaxEntries = 500
	DefaultTTL        = 5 * time.Minute
)

// Eviction reasons reported to the metrics recorder.
const (
	evictCapacity = "capacity"
	evictTTL      = "ttl"
)

// ErrFetchPanicked is returned to every waiter when the fetcher panics.
var ErrFetchPanicked = errors.New("cache: fetcher panicked")

// Config configures a Cache.
type Config struct {
	MaxEntries int
	TTL        time.Duration
}

// Fetcher computes the value for a missing key.
type Fetcher[V any] func(ctx context.Context) (V, error)

// FetchOptions tunes a single GetOrFetch call.
type FetchOptions struct {
	// BypassCache skips the cached value and recomputes it. Concurrent
	// requests for the same key still share one computation.
	BypassCache bool
}

// FetchInfo describes how a GetOrFetch call was served.
type FetchInfo struct {
	// Hit is true when the value came from the cache.
	Hit bool
	// Shared is true when the caller joined a computation started by
	// another caller.
	Shared bool
}

// Stats is a point-in-time view of cache counters.
type Stats struct {
	Hits       uint64
	Misses     uint64
	Coalesced  uint64
	Evictions  uint64
	Expired    uint64
	Size       int
	MaxEntries int
	InFlight   int64
	HitRate    float64
}

type entry[V any] struct {
	value     V
	createdAt time.Time
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	clock    clock.Clock
	recorder metrics.Recorder
}

// WithClock overrides the time source used for TTL checks.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// Cache is a TTL + LRU cache with single-flight fetching. It is safe for
// concurrent use.
type Cache[V any] struct {
	cfg      Config
	clock    clock.Clock
	recorder metrics.Recorder

	mu    sync.Mutex
	store *simplelru.LRU[string, entry[V]]

	group    singleflight.Group
	inFlight atomic.Int64

	hits      atomic.Uint64
	misses    atomic.Uint64
	coalesced atomic.Uint64
	evictions atomic.Uint64
	expiries  atomic.Uint64
}

// New creates a Cache. Zero config values fall back to the defaults.
func New[V any](cfg Config, opts ...Option) (*Cache[V], error) {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}

	o := options{clock: clock.Real{}, recorder: metrics.NewNoop()}
	for _, opt := range opts {
		opt(&o)
	}

	store, err := simplelru.NewLRU[string, entry[V]](cfg.MaxEntries, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU store: %w", err)
	}

	return &Cache[V]{
		cfg:      cfg,
		clock:    o.clock,
		recorder: o.recorder,
		store:    store,
	}, nil
}

// Get returns the live value for key and marks it recently used.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(key)
}

// Has reports whether key holds a live value without touching recency.
func (c *Cache[V]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.store.Peek(key)
	return ok && !c.expired(ent)
}

// Set stores value under key with a fresh TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, value)
}

// Delete removes key if present.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	c.store.Remove(key)
	c.mu.Unlock()
}

// Clear drops every entry. In-flight computations are not cancelled; their
// results are stored when they complete.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.store.Purge()
	c.mu.Unlock()
}

// Len returns the number of stored entries, including expired ones not yet purged.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Len()
}

// PurgeStale removes every expired entry and returns how many were removed.
func (c *Cache[V]) PurgeStale() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, key := range c.store.Keys() {
		ent, ok := c.store.Peek(key)
		if ok && c.expired(ent) {
			c.store.Remove(key)
			removed++
		}
	}

	if removed > 0 {
		c.expiries.Add(uint64(removed))
		for i := 0; i < removed; i++ {
			c.recorder.IncCacheEviction(evictTTL)
		}
	}
	return removed
}

// GetOrFetch returns the cached value for key, or computes it with fetcher.
func (c *Cache[V]) GetOrFetch(ctx context.Context, key string, fetcher Fetcher[V], opts ...FetchOptions) (V, error) {
	v, _, err := c.GetOrFetchInfo(ctx, key, fetcher, opts...)
	return v, err
}

// GetOrFetchInfo is GetOrFetch that also reports how the value was served.
//
// The fetcher runs on a context detached from ctx's cancellation so that one
// caller giving up does not fail the computation for the others. When ctx is
// done before the result arrives, ctx.Err() is returned and the computation
// keeps running.
func (c *Cache[V]) GetOrFetchInfo(ctx context.Context, key string, fetcher Fetcher[V], opts ...FetchOptions) (V, FetchInfo, error) {
	var opt FetchOptions
	if len(opts) > 0 {
		opt = opts[0]
	}

	if !opt.BypassCache {
		if v, ok := c.Get(key); ok {
			c.hits.Add(1)
			c.recorder.IncCacheHit()
			return v, FetchInfo{Hit: true}, nil
		}
	}

	fetchCtx := context.WithoutCancel(ctx)
	// Only the caller whose closure runs becomes the leader; the write is
	// visible once the result arrives on ch.
	var leader bool
	ch := c.group.DoChan(key, func() (any, error) {
		leader = true
		// Another flight may have stored the key between our lookup and now.
		if !opt.BypassCache {
			if v, ok := c.Get(key); ok {
				return v, nil
			}
		}
		return c.fetch(fetchCtx, key, fetcher)
	})

	select {
	case res := <-ch:
		info := FetchInfo{Shared: !leader}
		if info.Shared {
			c.coalesced.Add(1)
			c.recorder.IncCacheCoalesced()
		}
		if res.Err != nil {
			var zero V
			return zero, info, res.Err
		}
		v, _ := res.Val.(V)
		return v, info, nil
	case <-ctx.Done():
		var zero V
		return zero, FetchInfo{}, ctx.Err()
	}
}

// fetch runs fetcher once and stores its result. It executes inside the
// single-flight call for key.
func (c *Cache[V]) fetch(ctx context.Context, key string, fetcher Fetcher[V]) (v V, err error) {
	c.inFlight.Add(1)
	defer c.inFlight.Add(-1)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrFetchPanicked, r)
		}
	}()

	v, err = fetcher(ctx)
	if err != nil {
		return v, err
	}

	c.misses.Add(1)
	c.recorder.IncCacheMiss()
	c.Set(key, v)
	return v, nil
}

// Stats returns current counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	size := c.store.Len()
	c.mu.Unlock()

	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	return Stats{
		Hits:       hits,
		Misses:     misses,
		Coalesced:  c.coalesced.Load(),
		Evictions:  c.evictions.Load(),
		Expired:    c.expiries.Load(),
		Size:       size,
		MaxEntries: c.cfg.MaxEntries,
		InFlight:   c.inFlight.Load(),
		HitRate:    hitRate,
	}
}

func (c *Cache[V]) getLocked(key string) (V, bool) {
	ent, ok := c.store.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	if c.expired(ent) {
		c.store.Remove(key)
		c.expiries.Add(1)
		c.recorder.IncCacheEviction(evictTTL)
		var zero V
		return zero, false
	}
	return ent.value, true
}

func (c *Cache[V]) setLocked(key string, value V) {
	if evicted := c.store.Add(key, entry[V]{value: value, createdAt: c.clock.Now()}); evicted {
		c.evictions.Add(1)
		c.recorder.IncCacheEviction(evictCapacity)
	}
}

func (c *Cache[V]) expired(ent entry[V]) bool {
	return c.clock.Now().Sub(ent.createdAt) > c.cfg.TTL
}
