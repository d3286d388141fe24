package propagation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soniakeys/meeus/v3/julian"

	"github.com/star/orbitd/internal/metrics"
	"github.com/star/orbitd/internal/sgp4"
	"github.com/star/orbitd/internal/tle"
)

// ErrNoDataset is returned when no element data has been loaded yet.
var ErrNoDataset = errors.New("no TLE dataset loaded")

// ErrUnknownSatellite is returned for a NORAD ID absent from the catalog
// or whose elements failed initialization.
var ErrUnknownSatellite = errors.New("unknown satellite")

// Propagator orchestrates keyframe generation and ad-hoc state queries for
// the current dataset.
type Propagator struct {
	store   *tle.Store
	pool    *WorkerPool
	config  PropConfig
	consts  sgp4.Constants
	logger  *slog.Logger
	cache   atomic.Pointer[stateCache]
	cacheMu sync.Mutex // serializes cache rebuilds
}

// NewPropagator creates a propagation orchestrator using the given gravity
// constants for every satellite.
func NewPropagator(store *tle.Store, config PropConfig, consts sgp4.Constants, logger *slog.Logger) *Propagator {
	if config.Step <= 0 {
		config.Step = 5 * time.Second
	}
	if config.Horizon <= 0 {
		config.Horizon = 600 * time.Second
	}
	pool := NewWorkerPool(config.Workers, logger)
	return &Propagator{
		store:  store,
		pool:   pool,
		config: config,
		consts: consts,
		logger: logger,
	}
}

// cachedStates returns initialized states for the given dataset, rebuilding
// the cache when the dataset has changed (double-checked locking).
func (p *Propagator) cachedStates(ds *tle.Dataset) map[int]*sgp4.State {
	if c := p.cache.Load(); c != nil && c.fetchedAt.Equal(ds.FetchedAt) {
		return c.states
	}

	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()

	if c := p.cache.Load(); c != nil && c.fetchedAt.Equal(ds.FetchedAt) {
		return c.states
	}

	c := buildStateCache(ds, p.consts, p.logger)
	p.cache.Store(c)
	return c.states
}

// PropagateToTime generates a single keyframe at the given target time from
// the current dataset.
func (p *Propagator) PropagateToTime(ctx context.Context, targetTime time.Time) (*Keyframe, error) {
	ds := p.store.Get()
	if ds == nil {
		return nil, ErrNoDataset
	}

	states := p.cachedStates(ds)

	p.logger.Debug("propagating",
		"satellite_count", len(ds.Satellites),
		"target_time", targetTime.UTC().Format(time.RFC3339),
		"workers", p.config.Workers,
	)

	start := time.Now()
	positions, stats := p.pool.PropagateBatch(ctx, ds.Satellites, states, targetTime)
	duration := time.Since(start)

	metrics.RecordPropagation(duration, stats.Succeeded, stats.Failed)
	metrics.RecordDecayed(stats.Decayed)
	metrics.RecordKeplerNonConverged(stats.NonConverged)

	p.logger.Debug("propagation complete",
		"success", stats.Succeeded,
		"decayed", stats.Decayed,
		"errors", stats.Failed,
		"duration_ms", duration.Milliseconds(),
	)

	return &Keyframe{
		Timestamp:  targetTime,
		Satellites: positions,
	}, nil
}

// GenerateKeyframes generates keyframes from startTime over the configured
// horizon at the configured step interval.
func (p *Propagator) GenerateKeyframes(ctx context.Context, startTime time.Time) ([]*Keyframe, error) {
	ds := p.store.Get()
	if ds == nil {
		return nil, ErrNoDataset
	}

	numFrames := int(p.config.Horizon/p.config.Step) + 1
	keyframes := make([]*Keyframe, 0, numFrames)

	for i := 0; i < numFrames; i++ {
		select {
		case <-ctx.Done():
			return keyframes, ctx.Err()
		default:
		}

		targetTime := startTime.Add(time.Duration(i) * p.config.Step)
		kf, err := p.PropagateToTime(ctx, targetTime)
		if err != nil {
			return keyframes, fmt.Errorf("keyframe %d at %s: %w", i, targetTime.Format(time.RFC3339), err)
		}
		keyframes = append(keyframes, kf)
	}

	return keyframes, nil
}

// StateFor propagates a single satellite to the given time. Decay and
// model errors pass through so callers can distinguish them from an
// unknown catalog number.
func (p *Propagator) StateFor(noradID int, at time.Time) (SatelliteState, error) {
	ds := p.store.Get()
	if ds == nil {
		return SatelliteState{}, ErrNoDataset
	}

	entry, ok := ds.Find(noradID)
	if !ok {
		return SatelliteState{}, fmt.Errorf("%w: %d", ErrUnknownSatellite, noradID)
	}
	st, ok := p.cachedStates(ds)[noradID]
	if !ok {
		return SatelliteState{}, fmt.Errorf("%w: %d", ErrUnknownSatellite, noradID)
	}

	tsince := (julian.TimeToJD(at.UTC()) - st.EpochJulian()) * 24 * 60
	sv, err := st.Propagate(tsince)
	if err != nil {
		return SatelliteState{}, err
	}
	return SatelliteState{
		NORADID:         noradID,
		Name:            entry.Name,
		PositionTEME:    sv.Position,
		VelocityTEME:    sv.Velocity,
		KeplerConverged: sv.KeplerConverged,
	}, nil
}

// Describe returns the orbit classification for a satellite in the current
// dataset, for the metadata endpoint.
func (p *Propagator) Describe(noradID int) (regime, resonance string, perigeeKm, apogeeKm, periodMin float64, err error) {
	ds := p.store.Get()
	if ds == nil {
		err = ErrNoDataset
		return
	}
	st, ok := p.cachedStates(ds)[noradID]
	if !ok {
		err = fmt.Errorf("%w: %d", ErrUnknownSatellite, noradID)
		return
	}
	return st.Regime().String(), st.Resonance().String(), st.PerigeeKm(), st.ApogeeKm(), st.PeriodMinutes(), nil
}
