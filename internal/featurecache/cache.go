// Package featurecache provides a tiered, TTL-aware cache for
// expensive external data lookups. Entries for closed historical
// periods are effectively immutable and get a long TTL; recent
// entries may still be revised and get a short one.
package featurecache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/singleflight"

	"quant-model-lab/internal/observability"
)

// Default configuration values.
const (
	DefaultHistoricalTTL = 365 * 24 * time.Hour
	DefaultRecentTTL     = 24 * time.Hour
	DefaultHistoricalAge = 30 * 24 * time.Hour
	DefaultMaxAttempts   = 5
	DefaultInitialDelay  = 500 * time.Millisecond
	DefaultMaxDelay      = 30 * time.Second
)

// FetchFunc retrieves the raw payload for an as-of date from an
// external source. Called only on cache miss or expiry.
type FetchFunc func(ctx context.Context, asOf time.Time) (json.RawMessage, error)

// Options configures a TieredCache.
type Options struct {
	// Name identifies the cache in logs and metrics.
	Name string
	// Store persists the cache document. Required.
	Store DocumentStore
	// Bucket sets key granularity. Default BucketDay.
	Bucket Bucket

	// HistoricalTTL and RecentTTL override the default expiry windows.
	HistoricalTTL time.Duration
	RecentTTL     time.Duration
	// HistoricalAge is the as-of age beyond which data is classified
	// Historical. An as-of date strictly older than this is Historical;
	// exactly this age is still Recent.
	HistoricalAge time.Duration

	// Retry policy for fetches.
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// TieredCache caches payloads keyed by coarse time bucket, with TTL
// class derived from the as-of date being cached. Safe for concurrent
// use; concurrent misses on the same key collapse into one fetch.
type TieredCache struct {
	name   string
	store  DocumentStore
	bucket Bucket

	historicalTTL time.Duration
	recentTTL     time.Duration
	historicalAge time.Duration

	maxAttempts  int
	initialDelay time.Duration
	maxDelay     time.Duration

	now func() time.Time

	mu      sync.Mutex
	entries Document
	loaded  bool

	flight singleflight.Group
}

// New creates a TieredCache.
func New(opts Options) *TieredCache {
	c := &TieredCache{
		name:          opts.Name,
		store:         opts.Store,
		bucket:        opts.Bucket,
		historicalTTL: opts.HistoricalTTL,
		recentTTL:     opts.RecentTTL,
		historicalAge: opts.HistoricalAge,
		maxAttempts:   opts.MaxAttempts,
		initialDelay:  opts.InitialDelay,
		maxDelay:      opts.MaxDelay,
		now:           opts.Clock,
	}
	if c.name == "" {
		c.name = "default"
	}
	if c.historicalTTL == 0 {
		c.historicalTTL = DefaultHistoricalTTL
	}
	if c.recentTTL == 0 {
		c.recentTTL = DefaultRecentTTL
	}
	if c.historicalAge == 0 {
		c.historicalAge = DefaultHistoricalAge
	}
	if c.maxAttempts == 0 {
		c.maxAttempts = DefaultMaxAttempts
	}
	if c.initialDelay == 0 {
		c.initialDelay = DefaultInitialDelay
	}
	if c.maxDelay == 0 {
		c.maxDelay = DefaultMaxDelay
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Get returns the cached payload for the as-of date, fetching through
// fetch on miss or expiry. Fetch failures propagate after the retry
// policy is exhausted and are never cached.
func (c *TieredCache) Get(ctx context.Context, asOf time.Time, fetch FetchFunc) (json.RawMessage, error) {
	key := c.bucket.Key(asOf)

	if data, ok := c.lookup(ctx, key); ok {
		observability.RecordCacheHit(c.name)
		return data, nil
	}
	observability.RecordCacheMiss(c.name)

	// Collapse concurrent misses on the same key into one fetch.
	v, err, _ := c.flight.Do(key, func() (interface{}, error) {
		// A concurrent caller may have filled the entry while this
		// one waited on the flight group.
		if data, ok := c.lookup(ctx, key); ok {
			return data, nil
		}

		data, err := c.fetchWithRetry(ctx, asOf, fetch)
		if err != nil {
			observability.RecordCacheFetchFailure(c.name)
			return nil, fmt.Errorf("fetch %s key %s: %w", c.name, key, err)
		}

		if err := c.put(ctx, key, asOf, data); err != nil {
			return nil, err
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(json.RawMessage), nil
}

// Invalidate removes the entry for the as-of date's bucket and persists.
func (c *TieredCache) Invalidate(ctx context.Context, asOf time.Time) error {
	key := c.bucket.Key(asOf)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoadedLocked(ctx); err != nil {
		return err
	}
	if _, ok := c.entries[key]; !ok {
		return nil
	}
	delete(c.entries, key)
	return c.persistLocked(ctx)
}

// InvalidateAll removes every entry and persists the empty document.
func (c *TieredCache) InvalidateAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = Document{}
	c.loaded = true
	return c.persistLocked(ctx)
}

// Len returns the number of live entries (expired entries included
// until overwritten).
func (c *TieredCache) Len(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoadedLocked(ctx); err != nil {
		return 0
	}
	return len(c.entries)
}

// lookup returns the payload for key if present and not expired.
func (c *TieredCache) lookup(ctx context.Context, key string) (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoadedLocked(ctx); err != nil {
		return nil, false
	}

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if e.expired(c.now(), c.historicalTTL, c.recentTTL) {
		return nil, false
	}
	return e.Data, true
}

// put stores a freshly fetched payload and persists the document.
func (c *TieredCache) put(ctx context.Context, key string, asOf time.Time, data json.RawMessage) error {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoadedLocked(ctx); err != nil {
		return err
	}

	version := 1
	if prev, ok := c.entries[key]; ok {
		version = prev.Version + 1
	}

	c.entries[key] = &Entry{
		Date:         asOf.UTC().Format("2006-01-02"),
		Data:         data,
		Timestamp:    now.UnixMilli(),
		Version:      version,
		IsHistorical: c.isHistorical(asOf, now),
	}
	return c.persistLocked(ctx)
}

// isHistorical reports whether an as-of date belongs to the Historical
// class. Strictly older than historicalAge is Historical; exactly
// historicalAge old is Recent.
func (c *TieredCache) isHistorical(asOf, now time.Time) bool {
	return now.Sub(asOf) > c.historicalAge
}

// ensureLoadedLocked lazily loads the persisted document. Caller holds c.mu.
func (c *TieredCache) ensureLoadedLocked(ctx context.Context) error {
	if c.loaded {
		return nil
	}
	doc, err := c.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load %s cache: %w", c.name, err)
	}
	c.entries = doc
	c.loaded = true
	return nil
}

// persistLocked rewrites the durable document. Caller holds c.mu, so
// writes are single-writer and read-modify-write races cannot lose
// updates.
func (c *TieredCache) persistLocked(ctx context.Context) error {
	if err := c.store.Save(ctx, c.entries); err != nil {
		return fmt.Errorf("persist %s cache: %w", c.name, err)
	}
	observability.UpdateCacheEntries(c.name, len(c.entries))
	return nil
}

// fetchWithRetry runs fetch under the bounded exponential-backoff policy.
func (c *TieredCache) fetchWithRetry(ctx context.Context, asOf time.Time, fetch FetchFunc) (json.RawMessage, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialDelay
	bo.MaxInterval = c.maxDelay
	bo.Multiplier = 2.0
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0 // bounded by attempts and ctx, not elapsed time

	var data json.RawMessage
	op := func() error {
		d, err := fetch(ctx, asOf)
		if err != nil {
			return err
		}
		data = d
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.maxAttempts-1)), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return data, nil
}
