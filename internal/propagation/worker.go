package propagation

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/soniakeys/meeus/v3/julian"

	"github.com/star/orbitd/internal/sgp4"
	"github.com/star/orbitd/internal/tle"
)

// propagateJob is a unit of work for the worker pool.
type propagateJob struct {
	entry  tle.Entry
	state  *sgp4.State
	tsince float64 // minutes from element epoch
}

// propagateResult is the output of a single satellite propagation.
type propagateResult struct {
	state   SatelliteState
	err     error
	noradID int
}

// WorkerPool manages a fixed number of goroutines for parallel propagation.
type WorkerPool struct {
	workers int
	logger  *slog.Logger
}

// NewWorkerPool creates a worker pool with the given number of workers.
// Non-positive sizes fall back to the CPU count.
func NewWorkerPool(workers int, logger *slog.Logger) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &WorkerPool{
		workers: workers,
		logger:  logger,
	}
}

// BatchStats summarizes one batch propagation.
type BatchStats struct {
	Succeeded    int
	Decayed      int
	Failed       int
	NonConverged int
}

// PropagateBatch propagates every entry with an initialized state to the
// target time. Decayed satellites are counted and skipped; they come back
// at other target times, so a decay is not fatal to the batch.
func (wp *WorkerPool) PropagateBatch(ctx context.Context, entries []tle.Entry, states map[int]*sgp4.State, targetTime time.Time) ([]SatelliteState, BatchStats) {
	var stats BatchStats
	if len(entries) == 0 {
		return nil, stats
	}

	// One Julian date conversion for the whole batch; each job only
	// differs in its epoch offset.
	targetJD := julian.TimeToJD(targetTime.UTC())

	jobs := make(chan propagateJob, wp.workers*2)
	results := make(chan propagateResult, wp.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				result := propagateSingle(job)
				select {
				case results <- result:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, entry := range entries {
			st, ok := states[entry.NORADID]
			if !ok {
				// Initialization already failed and was logged when the
				// state cache was built.
				continue
			}
			job := propagateJob{
				entry:  entry,
				state:  st,
				tsince: (targetJD - st.EpochJulian()) * 24 * 60,
			}
			select {
			case jobs <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	positions := make([]SatelliteState, 0, len(entries))
	for result := range results {
		if result.err != nil {
			var dec *sgp4.DecayedError
			if errors.As(result.err, &dec) {
				stats.Decayed++
				wp.logger.Debug("satellite decayed", "norad_id", result.noradID, "error", result.err)
			} else {
				stats.Failed++
				wp.logger.Warn("propagation failed", "norad_id", result.noradID, "error", result.err)
			}
			continue
		}
		stats.Succeeded++
		if !result.state.KeplerConverged {
			stats.NonConverged++
		}
		positions = append(positions, result.state)
	}

	return positions, stats
}

// propagateSingle advances one satellite to its target offset.
func propagateSingle(job propagateJob) propagateResult {
	sv, err := job.state.Propagate(job.tsince)
	if err != nil {
		return propagateResult{noradID: job.entry.NORADID, err: err}
	}

	return propagateResult{
		noradID: job.entry.NORADID,
		state: SatelliteState{
			NORADID:         job.entry.NORADID,
			Name:            job.entry.Name,
			PositionTEME:    sv.Position,
			VelocityTEME:    sv.Velocity,
			KeplerConverged: sv.KeplerConverged,
		},
	}
}
