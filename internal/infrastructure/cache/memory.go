package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"

	"github.com/lucasrcosta20/IA-Cadastro/internal/domain"
)

// Defaults
const (
	DefaultTTL          = 24 * time.Hour
	DefaultPersistEvery = 10
)

var clog = log.WithField("component", "cache")

// Option configures a ResultCache
type Option func(*ResultCache)

// WithTTL sets the maximum entry age
func WithTTL(ttl time.Duration) Option {
	return func(c *ResultCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithPersistEvery persists the full state every n insertions (0 disables periodic persistence)
func WithPersistEvery(n int) Option {
	return func(c *ResultCache) {
		if n >= 0 {
			c.persistEvery = n
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(c *ResultCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithCleanupInterval starts a janitor that evicts expired entries periodically
func WithCleanupInterval(d time.Duration) Option {
	return func(c *ResultCache) {
		c.cleanupInterval = d
	}
}

// ResultCache is a thread-safe, content-addressed cache of successful
// generations with TTL expiry and best-effort persistence.
type ResultCache struct {
	mu      sync.Mutex
	entries map[string]domain.CacheEntry
	inserts int

	// persistMu orders snapshot+save against Clear so a stale snapshot is
	// never written after the store was removed. Always taken before mu.
	persistMu sync.Mutex
	store     domain.CacheStore
	degraded  atomic.Bool

	hits   atomic.Int64
	misses atomic.Int64

	ttl             time.Duration
	persistEvery    int
	cleanupInterval time.Duration
	now             func() time.Time

	persistCh chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewResultCache creates a cache backed by store (nil keeps it in memory only)
// and restores any persisted state. A missing or corrupt store yields an
// empty cache.
func NewResultCache(store domain.CacheStore, opts ...Option) *ResultCache {
	c := &ResultCache{
		entries:      make(map[string]domain.CacheEntry),
		store:        store,
		ttl:          DefaultTTL,
		persistEvery: DefaultPersistEvery,
		now:          time.Now,
		persistCh:    make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.load()

	c.wg.Add(1)
	go c.persistLoop()

	if c.cleanupInterval > 0 {
		c.wg.Add(1)
		go c.cleanupExpired()
	}

	return c
}

func (c *ResultCache) load() {
	if c.store == nil {
		return
	}

	entries, err := c.store.Load(context.Background())
	if err != nil {
		clog.WithError(err).Error("could not load persisted cache, starting empty")
		return
	}

	c.mu.Lock()
	for k, v := range entries {
		c.entries[k] = v
	}
	c.mu.Unlock()

	removed := c.EvictExpired()
	clog.WithFields(log.Fields{
		"entries": c.Size(),
		"expired": removed,
	}).Info("cache loaded")
}

// Lookup returns the entry for key when it is younger than the TTL.
// An expired entry is evicted. Every call counts a hit or a miss.
func (c *ResultCache) Lookup(key string) (domain.CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if ok && c.now().Sub(entry.StoredAt) > c.ttl {
		delete(c.entries, key)
		clog.WithField("key", key).Debug("expired entry evicted")
		ok = false
	}

	if !ok {
		c.misses.Add(1)
		return domain.CacheEntry{}, false
	}

	c.hits.Add(1)
	return entry, true
}

// Store saves a successful result under key. Failed results are ignored.
func (c *ResultCache) Store(key string, result domain.GenerationResult) {
	if !result.Success {
		return
	}

	c.mu.Lock()
	c.entries[key] = domain.CacheEntry{
		Description:    result.Description,
		StoredAt:       c.now(),
		GenerationTime: result.GenerationTime,
		ModelUsed:      result.ModelUsed,
	}
	c.inserts++
	shouldPersist := c.persistEvery > 0 && c.inserts%c.persistEvery == 0
	c.mu.Unlock()

	if shouldPersist {
		select {
		case c.persistCh <- struct{}{}:
		default:
		}
	}
}

// EvictExpired removes every entry older than the TTL and returns how many were removed
func (c *ResultCache) EvictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if now.Sub(entry.StoredAt) > c.ttl {
			delete(c.entries, key)
			removed++
		}
	}

	if removed > 0 {
		clog.WithField("removed", removed).Info("expired entries removed")
	}
	return removed
}

// Clear empties the cache, resets the counters and removes the persisted store
func (c *ResultCache) Clear() error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	c.entries = make(map[string]domain.CacheEntry)
	c.inserts = 0
	c.hits.Store(0)
	c.misses.Store(0)
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Remove(context.Background()); err != nil {
			clog.WithError(err).Error("could not remove persisted cache")
			return err
		}
	}

	clog.Info("cache cleared")
	return nil
}

// Size returns the current number of entries
func (c *ResultCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// TTL returns the configured time-to-live
func (c *ResultCache) TTL() time.Duration {
	return c.ttl
}

// Stats reports size, counters, hit rate and persisted store information
func (c *ResultCache) Stats() domain.CacheStats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	hitRate := 0.0
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	stats := domain.CacheStats{
		Size:      c.Size(),
		Hits:      hits,
		Misses:    misses,
		HitRate:   hitRate,
		TTLHours:  c.ttl.Hours(),
		StoreKind: StoreMemory,
		StoreSize: humanize.Bytes(0),
	}

	if c.store != nil {
		info := c.store.Info()
		stats.StoreKind = info.Kind
		stats.StoreLocation = info.Location
		stats.StoreExists = info.Exists
		stats.StoreSizeBytes = info.SizeBytes
		stats.StoreSize = humanize.Bytes(uint64(info.SizeBytes))
	}

	return stats
}

// Flush synchronously persists the current state
func (c *ResultCache) Flush() error {
	return c.persist()
}

// Close stops background work and performs a final flush
func (c *ResultCache) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.wg.Wait()

		err = c.persist()
		if c.store != nil {
			if cerr := c.store.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
	})
	return err
}

func (c *ResultCache) persist() error {
	if c.store == nil || c.degraded.Load() {
		return nil
	}

	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	snapshot := make(map[string]domain.CacheEntry, len(c.entries))
	for k, v := range c.entries {
		snapshot[k] = v
	}
	c.mu.Unlock()

	if err := c.store.Save(context.Background(), snapshot); err != nil {
		c.degraded.Store(true)
		clog.WithError(err).Error("could not persist cache, continuing in memory only")
		return err
	}

	clog.WithField("entries", len(snapshot)).Debug("cache persisted")
	return nil
}

func (c *ResultCache) persistLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.persistCh:
			_ = c.persist()
		case <-c.done:
			return
		}
	}
}

// cleanupExpired removes expired entries from the cache periodically
func (c *ResultCache) cleanupExpired() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.EvictExpired()
		case <-c.done:
			return
		}
	}
}
