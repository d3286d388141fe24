package ephemeris

import (
	"context"
	"time"

	"github.com/star/orbitd/internal/propagation"
)

// Start runs the background maintenance loop: an initial warmup filling
// [now, now+horizon], then one tick per step that extends the leading
// edge, evicts the trailing edge, and rebuilds the window when the element
// dataset has been replaced. Blocks until ctx is cancelled.
func (c *Cache) Start(ctx context.Context) {
	if !c.waitForDataset(ctx) {
		return
	}

	c.rebuild(ctx)

	ticker := time.NewTicker(c.config.Step)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("ephemeris generator stopped")
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

// waitForDataset blocks until element data is available, checking every
// second. Returns false if ctx is cancelled first.
func (c *Cache) waitForDataset(ctx context.Context) bool {
	if c.store.Get() != nil {
		return true
	}

	c.logger.Info("ephemeris cache waiting for element data")
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if c.store.Get() != nil {
				return true
			}
		}
	}
}

func (c *Cache) tick(ctx context.Context) {
	if ds := c.store.Get(); ds != nil && !ds.FetchedAt.Equal(c.builtFrom) {
		// New catalog. Old frames keep serving reads while the window is
		// rebuilt, then the swap is atomic.
		c.rebuild(ctx)
		return
	}

	c.extendLeadingEdge(ctx)
	c.evictExpired()
}

// rebuild generates a full window from the current dataset and swaps it in.
func (c *Cache) rebuild(ctx context.Context) {
	ds := c.store.Get()
	if ds == nil {
		return
	}

	now := c.RoundToStep(time.Now())
	numFrames := int(c.config.Horizon/c.config.Step) + 1

	c.logger.Info("ephemeris window rebuild starting",
		"frames", numFrames,
		"from", now.UTC().Format(time.RFC3339),
		"dataset_fetched_at", ds.FetchedAt.UTC().Format(time.RFC3339),
	)

	start := time.Now()
	generated := 0
	window := make(map[time.Time]*propagation.Keyframe, numFrames)
	for i := 0; i < numFrames; i++ {
		select {
		case <-ctx.Done():
			c.logger.Warn("ephemeris rebuild cancelled")
			return
		default:
		}

		targetTime := now.Add(time.Duration(i) * c.config.Step)
		kf, err := c.prop.PropagateToTime(ctx, targetTime)
		if err != nil {
			c.logger.Warn("ephemeris propagation failed", "timestamp", targetTime, "error", err)
			continue
		}
		window[c.RoundToStep(kf.Timestamp)] = kf
		generated++
	}

	c.replaceAll(window)
	c.builtFrom = ds.FetchedAt

	c.logger.Info("ephemeris window rebuilt",
		"generated", generated,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// extendLeadingEdge generates the frame at the front of the window if it
// is not cached yet.
func (c *Cache) extendLeadingEdge(ctx context.Context) {
	target := c.RoundToStep(time.Now().Add(c.config.Horizon))

	c.mu.RLock()
	_, ok := c.frames[target]
	c.mu.RUnlock()
	if ok {
		return
	}

	kf, err := c.prop.PropagateToTime(ctx, target)
	if err != nil {
		c.logger.Warn("leading edge generation failed",
			"timestamp", target.UTC().Format(time.RFC3339),
			"error", err,
		)
		return
	}
	c.put(kf)

	c.logger.Debug("leading edge generated", "timestamp", target.UTC().Format(time.RFC3339))
}
