package ephemeris

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/star/orbitd/internal/propagation"
	"github.com/star/orbitd/internal/sgp4"
	"github.com/star/orbitd/internal/tle"
)

const (
	issLine1 = "1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9009"
	issLine2 = "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000000001"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testSetup(t *testing.T) (*Cache, *tle.Store) {
	t.Helper()
	el, err := tle.ParseLines(issLine1, issLine2)
	if err != nil {
		t.Fatalf("ParseLines: %v", err)
	}
	store := tle.NewStore()
	store.Set(tle.NewDataset("test", time.Now(), []tle.Entry{{
		NORADID:  el.SatelliteNumber,
		Name:     "ISS",
		Epoch:    el.EpochTime(),
		Elements: el,
		Line1:    issLine1,
		Line2:    issLine2,
	}}))

	prop := propagation.NewPropagator(store, propagation.PropConfig{
		Workers: 2,
		Step:    5 * time.Second,
		Horizon: 15 * time.Second,
	}, sgp4.WGS84, testLogger())

	cfg := Config{Step: 5 * time.Second, Horizon: 15 * time.Second, Buffer: 30 * time.Second}
	return New(cfg, prop, store, testLogger()), store
}

func TestRoundToStep(t *testing.T) {
	c, _ := testSetup(t)
	ts := time.Date(2024, 4, 10, 12, 0, 7, 123, time.UTC)
	got := c.RoundToStep(ts)
	want := time.Date(2024, 4, 10, 12, 0, 5, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("RoundToStep = %v, want %v", got, want)
	}
}

func TestGetMissAndHit(t *testing.T) {
	c, _ := testSetup(t)
	now := time.Now()

	if kf := c.Get(now); kf != nil {
		t.Fatal("expected miss on empty cache")
	}

	kf, err := c.prop.PropagateToTime(context.Background(), c.RoundToStep(now))
	if err != nil {
		t.Fatalf("PropagateToTime: %v", err)
	}
	c.put(kf)

	got := c.Get(now)
	if got == nil {
		t.Fatal("expected hit after put")
	}
	if len(got.Satellites) != 1 {
		t.Errorf("expected 1 satellite, got %d", len(got.Satellites))
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Frames != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestGetRecentOrdering(t *testing.T) {
	c, _ := testSetup(t)
	base := c.RoundToStep(time.Now())

	for i := 0; i < 4; i++ {
		ts := base.Add(time.Duration(-i) * c.config.Step)
		kf, err := c.prop.PropagateToTime(context.Background(), ts)
		if err != nil {
			t.Fatalf("PropagateToTime: %v", err)
		}
		c.put(kf)
	}

	recent := c.GetRecent(base, 3)
	if len(recent) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(recent))
	}
	for i := 1; i < len(recent); i++ {
		if !recent[i].Timestamp.After(recent[i-1].Timestamp) {
			t.Errorf("frames not oldest-first: %v then %v", recent[i-1].Timestamp, recent[i].Timestamp)
		}
	}
}

func TestEviction(t *testing.T) {
	c, _ := testSetup(t)

	old := c.RoundToStep(time.Now().Add(-2 * time.Minute))
	kf, err := c.prop.PropagateToTime(context.Background(), old)
	if err != nil {
		t.Fatalf("PropagateToTime: %v", err)
	}
	c.put(kf)

	fresh := c.RoundToStep(time.Now())
	kf2, err := c.prop.PropagateToTime(context.Background(), fresh)
	if err != nil {
		t.Fatalf("PropagateToTime: %v", err)
	}
	c.put(kf2)

	removed := c.evictExpired()
	if removed != 1 {
		t.Errorf("expected 1 eviction, got %d", removed)
	}
	if c.Stats().Frames != 1 {
		t.Errorf("expected 1 frame after eviction, got %d", c.Stats().Frames)
	}
}

func TestRebuildFillsWindow(t *testing.T) {
	c, store := testSetup(t)
	ctx := context.Background()

	c.rebuild(ctx)

	stats := c.Stats()
	// 15s horizon at 5s step is 4 frames.
	if stats.Frames != 4 {
		t.Errorf("expected 4 frames after rebuild, got %d", stats.Frames)
	}
	if !c.builtFrom.Equal(store.Get().FetchedAt) {
		t.Error("rebuild did not record dataset identity")
	}

	// A replaced dataset triggers a fresh window on the next tick.
	ds := store.Get()
	store.Set(tle.NewDataset("test2", ds.FetchedAt.Add(time.Minute), ds.Satellites))
	c.tick(ctx)
	if !c.builtFrom.Equal(store.Get().FetchedAt) {
		t.Error("tick did not rebuild after dataset change")
	}
}
