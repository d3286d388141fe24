// Package ephemeris keeps a rolling in-memory window of propagated
// keyframes. A background worker extends the leading edge, evicts the
// trailing edge, and rebuilds the window when the element dataset changes,
// all without blocking readers.
package ephemeris

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/star/orbitd/internal/metrics"
	"github.com/star/orbitd/internal/propagation"
	"github.com/star/orbitd/internal/tle"
)

// Config holds ephemeris cache configuration loaded from environment variables.
type Config struct {
	Step    time.Duration // keyframe interval (default: 5s)
	Horizon time.Duration // how far ahead to cache (default: 600s)
	Buffer  time.Duration // keep frames this long past expiration (default: 60s)
}

// Cache is a rolling window of keyframes keyed by step-aligned timestamps.
// Safe for concurrent use.
type Cache struct {
	mu     sync.RWMutex
	frames map[time.Time]*propagation.Keyframe

	config Config
	prop   *propagation.Propagator
	store  *tle.Store
	logger *slog.Logger

	// dataset identity the window was built from
	builtFrom time.Time

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// New creates an empty ephemeris cache.
func New(config Config, prop *propagation.Propagator, store *tle.Store, logger *slog.Logger) *Cache {
	if config.Step <= 0 {
		config.Step = 5 * time.Second
	}
	if config.Horizon <= 0 {
		config.Horizon = 600 * time.Second
	}
	if config.Buffer <= 0 {
		config.Buffer = 60 * time.Second
	}
	logger.Info("ephemeris cache initialized",
		"step_seconds", config.Step.Seconds(),
		"horizon_seconds", config.Horizon.Seconds(),
		"buffer_seconds", config.Buffer.Seconds(),
	)
	return &Cache{
		frames: make(map[time.Time]*propagation.Keyframe),
		config: config,
		prop:   prop,
		store:  store,
		logger: logger,
	}
}

// RoundToStep aligns a timestamp to the cache's step grid, in UTC.
func (c *Cache) RoundToStep(t time.Time) time.Time {
	return t.UTC().Truncate(c.config.Step)
}

// Get returns the keyframe at the step-aligned timestamp, or nil.
func (c *Cache) Get(t time.Time) *propagation.Keyframe {
	key := c.RoundToStep(t)

	c.mu.RLock()
	kf, ok := c.frames[key]
	c.mu.RUnlock()

	if ok {
		c.hits.Add(1)
		metrics.RecordCacheHit()
		return kf
	}
	c.misses.Add(1)
	metrics.RecordCacheMiss()
	return nil
}

// GetLatest returns the keyframe closest to but not after now, looking
// back a handful of steps.
func (c *Cache) GetLatest() *propagation.Keyframe {
	now := c.RoundToStep(time.Now())

	c.mu.RLock()
	defer c.mu.RUnlock()

	for i := 0; i < 10; i++ {
		if kf, ok := c.frames[now.Add(-time.Duration(i)*c.config.Step)]; ok {
			c.hits.Add(1)
			metrics.RecordCacheHit()
			return kf
		}
	}
	c.misses.Add(1)
	metrics.RecordCacheMiss()
	return nil
}

// GetRecent returns up to count keyframes ending at time t, oldest first.
func (c *Cache) GetRecent(t time.Time, count int) []*propagation.Keyframe {
	if count <= 0 {
		return nil
	}
	key := c.RoundToStep(t)

	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]*propagation.Keyframe, 0, count)
	for i := count - 1; i >= 0; i-- {
		if kf, ok := c.frames[key.Add(-time.Duration(i)*c.config.Step)]; ok {
			result = append(result, kf)
		}
	}
	return result
}

func (c *Cache) put(kf *propagation.Keyframe) {
	key := c.RoundToStep(kf.Timestamp)

	c.mu.Lock()
	c.frames[key] = kf
	n := len(c.frames)
	c.mu.Unlock()

	metrics.SetCachedKeyframes(n)
}

// evictExpired drops frames older than now minus the buffer.
func (c *Cache) evictExpired() int {
	cutoff := time.Now().Add(-c.config.Buffer)
	var removed int

	c.mu.Lock()
	for ts := range c.frames {
		if ts.Before(cutoff) {
			delete(c.frames, ts)
			removed++
		}
	}
	n := len(c.frames)
	c.mu.Unlock()

	if removed > 0 {
		c.evictions.Add(int64(removed))
		metrics.SetCachedKeyframes(n)
		c.logger.Debug("ephemeris eviction", "frames_removed", removed)
	}
	return removed
}

// replaceAll swaps in a freshly built window.
func (c *Cache) replaceAll(frames map[time.Time]*propagation.Keyframe) {
	c.mu.Lock()
	c.frames = frames
	n := len(c.frames)
	c.mu.Unlock()
	metrics.SetCachedKeyframes(n)
}

// Stats holds cache statistics for the stats endpoint.
type Stats struct {
	Frames    int
	Oldest    time.Time
	Newest    time.Time
	Hits      int64
	Misses    int64
	Evictions int64
}

// Stats returns a snapshot of the cache counters and window bounds.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	count := len(c.frames)
	var oldest, newest time.Time
	for ts := range c.frames {
		if oldest.IsZero() || ts.Before(oldest) {
			oldest = ts
		}
		if newest.IsZero() || ts.After(newest) {
			newest = ts
		}
	}
	c.mu.RUnlock()

	return Stats{
		Frames:    count,
		Oldest:    oldest,
		Newest:    newest,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}
