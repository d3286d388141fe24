package propagation

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"testing"
	"time"

	"github.com/star/orbitd/internal/sgp4"
	"github.com/star/orbitd/internal/tle"
)

// Real ISS orbital elements (epoch 2024) with recomputed checksums.
const (
	issLine1 = "1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9009"
	issLine2 = "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000000001"
)

// Typical LEO constellation satellite.
const (
	starlinkLine1 = "1 44713U 19074A   24100.50000000  .00001000  00000-0  10000-4 0  9998"
	starlinkLine2 = "2 44713  53.0000 200.0000 0001500  90.0000 270.0000 15.06000000000007"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func makeEntry(t testing.TB, name, line1, line2 string) tle.Entry {
	t.Helper()
	el, err := tle.ParseLines(line1, line2)
	if err != nil {
		t.Fatalf("ParseLines: %v", err)
	}
	return tle.Entry{
		NORADID:  el.SatelliteNumber,
		Name:     name,
		Epoch:    el.EpochTime(),
		Elements: el,
		Line1:    line1,
		Line2:    line2,
	}
}

func makeStates(t testing.TB, entries []tle.Entry) map[int]*sgp4.State {
	t.Helper()
	states := make(map[int]*sgp4.State, len(entries))
	for _, e := range entries {
		st, err := sgp4.Initialize(e.Elements, sgp4.WGS84)
		if err != nil {
			t.Fatalf("Initialize %d: %v", e.NORADID, err)
		}
		states[e.NORADID] = st
	}
	return states
}

// TestWorkerPoolBatch verifies the worker pool processes multiple satellites correctly.
func TestWorkerPoolBatch(t *testing.T) {
	pool := NewWorkerPool(4, testLogger())

	entries := []tle.Entry{
		makeEntry(t, "ISS", issLine1, issLine2),
		makeEntry(t, "STARLINK-1007", starlinkLine1, starlinkLine2),
	}
	states := makeStates(t, entries)

	target := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)
	positions, stats := pool.PropagateBatch(context.Background(), entries, states, target)

	if stats.Succeeded != 2 || stats.Failed != 0 || stats.Decayed != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	for _, pos := range positions {
		mag := math.Sqrt(pos.PositionTEME[0]*pos.PositionTEME[0] +
			pos.PositionTEME[1]*pos.PositionTEME[1] +
			pos.PositionTEME[2]*pos.PositionTEME[2])
		if mag < 6500 || mag > 7200 {
			t.Errorf("NORAD %d: position magnitude %.1f km outside LEO band", pos.NORADID, mag)
		}
		if !pos.KeplerConverged {
			t.Errorf("NORAD %d: Kepler iteration did not converge", pos.NORADID)
		}
	}
}

// TestWorkerPoolSkipsUninitialized verifies entries without a cached state
// are silently skipped rather than failed.
func TestWorkerPoolSkipsUninitialized(t *testing.T) {
	pool := NewWorkerPool(2, testLogger())

	entries := []tle.Entry{
		makeEntry(t, "ISS", issLine1, issLine2),
		{NORADID: 11111, Name: "NO STATE"},
	}
	states := makeStates(t, entries[:1])

	target := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)
	positions, stats := pool.PropagateBatch(context.Background(), entries, states, target)

	if len(positions) != 1 || stats.Succeeded != 1 || stats.Failed != 0 {
		t.Fatalf("got %d positions, stats %+v", len(positions), stats)
	}
}

// TestWorkerPoolCancellation verifies the worker pool respects context cancellation.
func TestWorkerPoolCancellation(t *testing.T) {
	pool := NewWorkerPool(2, testLogger())

	// Many entries so some are still pending when we cancel.
	base := makeEntry(t, "TEST", issLine1, issLine2)
	st, err := sgp4.Initialize(base.Elements, sgp4.WGS84)
	if err != nil {
		t.Fatal(err)
	}
	entries := make([]tle.Entry, 100)
	states := make(map[int]*sgp4.State, 100)
	for i := range entries {
		entries[i] = base
		entries[i].NORADID = 25544 + i
		states[25544+i] = st
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately.

	target := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)
	positions, _ := pool.PropagateBatch(ctx, entries, states, target)

	// With immediate cancellation, we should get fewer results than entries.
	// (Some may still complete before cancellation propagates.)
	if len(positions) >= len(entries) {
		t.Errorf("expected fewer results with cancelled context, got %d/%d", len(positions), len(entries))
	}
}

// TestPropagatorGenerateKeyframes verifies keyframe generation over a horizon.
func TestPropagatorGenerateKeyframes(t *testing.T) {
	store := tle.NewStore()
	store.Set(tle.NewDataset("test", time.Now(), []tle.Entry{
		makeEntry(t, "ISS", issLine1, issLine2),
	}))

	cfg := PropConfig{
		Workers: 2,
		Step:    5 * time.Second,
		Horizon: 15 * time.Second, // Small horizon for test speed.
	}

	prop := NewPropagator(store, cfg, sgp4.WGS84, testLogger())
	start := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)

	keyframes, err := prop.GenerateKeyframes(context.Background(), start)
	if err != nil {
		t.Fatalf("GenerateKeyframes failed: %v", err)
	}

	// With 15s horizon and 5s step: frames at 0s, 5s, 10s, 15s = 4 frames.
	expectedFrames := 4
	if len(keyframes) != expectedFrames {
		t.Errorf("got %d keyframes, want %d", len(keyframes), expectedFrames)
	}

	for i, kf := range keyframes {
		expectedTime := start.Add(time.Duration(i) * cfg.Step)
		if !kf.Timestamp.Equal(expectedTime) {
			t.Errorf("keyframe %d: time = %v, want %v", i, kf.Timestamp, expectedTime)
		}
		if len(kf.Satellites) == 0 {
			t.Errorf("keyframe %d: no satellites", i)
		}
	}
}

// TestPropagatorStateFor verifies single-satellite queries.
func TestPropagatorStateFor(t *testing.T) {
	store := tle.NewStore()
	store.Set(tle.NewDataset("test", time.Now(), []tle.Entry{
		makeEntry(t, "ISS", issLine1, issLine2),
	}))

	cfg := PropConfig{Workers: 2, Step: 5 * time.Second, Horizon: 60 * time.Second}
	prop := NewPropagator(store, cfg, sgp4.WGS84, testLogger())

	at := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)
	st, err := prop.StateFor(25544, at)
	if err != nil {
		t.Fatalf("StateFor failed: %v", err)
	}
	if st.NORADID != 25544 || st.Name != "ISS" {
		t.Errorf("unexpected state identity: %+v", st)
	}

	_, err = prop.StateFor(1, at)
	if !errors.Is(err, ErrUnknownSatellite) {
		t.Errorf("expected ErrUnknownSatellite, got %v", err)
	}

	regime, resonance, perigee, apogee, period, err := prop.Describe(25544)
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if regime != "near-earth" || resonance != "none" {
		t.Errorf("unexpected classification: %s/%s", regime, resonance)
	}
	if perigee <= 0 || apogee < perigee || period < 90 || period > 95 {
		t.Errorf("implausible orbit figures: perigee=%.1f apogee=%.1f period=%.2f", perigee, apogee, period)
	}
}

// TestPropagatorNoDataset verifies error when no element data is loaded.
func TestPropagatorNoDataset(t *testing.T) {
	store := tle.NewStore() // Empty store.

	cfg := PropConfig{Workers: 2, Step: 5 * time.Second, Horizon: 60 * time.Second}
	prop := NewPropagator(store, cfg, sgp4.WGS84, testLogger())

	_, err := prop.PropagateToTime(context.Background(), time.Now())
	if !errors.Is(err, ErrNoDataset) {
		t.Fatalf("expected ErrNoDataset, got %v", err)
	}
}

// BenchmarkPropagate1000 benchmarks propagating 1000 satellites.
func BenchmarkPropagate1000(b *testing.B) {
	base := makeEntry(b, "TEST", issLine1, issLine2)
	entries := make([]tle.Entry, 1000)
	for i := range entries {
		entries[i] = base
		entries[i].NORADID = 25544 + i
	}

	store := tle.NewStore()
	store.Set(tle.NewDataset("bench", time.Now(), entries))

	cfg := PropConfig{Workers: 4, Step: 5 * time.Second, Horizon: 5 * time.Second}
	prop := NewPropagator(store, cfg, sgp4.WGS84, testLogger())
	target := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := prop.PropagateToTime(ctx, target); err != nil {
			b.Fatal(err)
		}
	}
}
