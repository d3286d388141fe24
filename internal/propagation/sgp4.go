package propagation

import (
	"log/slog"
	"time"

	"github.com/star/orbitd/internal/sgp4"
	"github.com/star/orbitd/internal/tle"
)

// stateCache holds initialized propagation states for one dataset.
// Immutable after construction; safe for concurrent reads.
type stateCache struct {
	states    map[int]*sgp4.State
	fetchedAt time.Time
}

// buildStateCache initializes a propagation state for every satellite in
// the dataset. Element sets the model rejects are logged and left out; the
// rest of the catalog is unaffected.
func buildStateCache(ds *tle.Dataset, consts sgp4.Constants, logger *slog.Logger) *stateCache {
	states := make(map[int]*sgp4.State, len(ds.Satellites))
	var skipped int
	for _, entry := range ds.Satellites {
		if _, ok := states[entry.NORADID]; ok {
			continue
		}
		st, err := sgp4.Initialize(entry.Elements, consts)
		if err != nil {
			logger.Warn("sgp4 state init failed", "norad_id", entry.NORADID, "error", err)
			skipped++
			continue
		}
		states[entry.NORADID] = st
	}

	logger.Info("sgp4 state cache rebuilt",
		"cached", len(states),
		"skipped", skipped,
		"dataset_fetched_at", ds.FetchedAt.UTC().Format(time.RFC3339),
	)
	return &stateCache{states: states, fetchedAt: ds.FetchedAt}
}
