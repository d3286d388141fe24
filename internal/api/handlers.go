package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/star/orbitd/internal/propagation"
	"github.com/star/orbitd/internal/sgp4"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type satelliteSummary struct {
	NORADID   int     `json:"norad_id"`
	Name      string  `json:"name"`
	Epoch     string  `json:"epoch"`
	Regime    string  `json:"regime"`
	Resonance string  `json:"resonance,omitempty"`
	PerigeeKm float64 `json:"perigee_km"`
	ApogeeKm  float64 `json:"apogee_km"`
	PeriodMin float64 `json:"period_min"`
}

// satellitesHandler lists every satellite in the current dataset with its
// orbit classification. Entries whose elements failed initialization are
// omitted rather than reported with zero orbits.
func (s *Server) satellitesHandler(w http.ResponseWriter, r *http.Request) {
	ds := s.store.Get()
	if ds == nil {
		writeError(w, http.StatusServiceUnavailable, "no dataset loaded")
		return
	}

	out := make([]satelliteSummary, 0, len(ds.Satellites))
	for _, sat := range ds.Satellites {
		regime, resonance, perigee, apogee, period, err := s.prop.Describe(sat.NORADID)
		if err != nil {
			continue
		}
		if resonance == "none" {
			resonance = ""
		}
		out = append(out, satelliteSummary{
			NORADID:   sat.NORADID,
			Name:      sat.Name,
			Epoch:     sat.Epoch.UTC().Format(time.RFC3339),
			Regime:    regime,
			Resonance: resonance,
			PerigeeKm: perigee,
			ApogeeKm:  apogee,
			PeriodMin: period,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":      len(out),
		"satellites": out,
	})
}

type stateResponse struct {
	NORADID      int        `json:"norad_id"`
	Name         string     `json:"name"`
	Time         string     `json:"time"`
	PositionTEME [3]float64 `json:"position_teme_km"`
	VelocityTEME [3]float64 `json:"velocity_teme_km_s"`
	Converged    bool       `json:"converged"`
}

// stateHandler returns the TEME state vector for one satellite at a requested
// time (?t=RFC3339, default now). Decayed satellites get 410 with the decay
// reason so clients can distinguish them from transient failures.
func (s *Server) stateHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("norad_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid norad_id")
		return
	}

	at := time.Now().UTC()
	if raw := r.URL.Query().Get("t"); raw != "" {
		at, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid t, want RFC3339")
			return
		}
		at = at.UTC()
	}

	st, err := s.prop.StateFor(id, at)
	if err != nil {
		var decayed *sgp4.DecayedError
		switch {
		case errors.Is(err, propagation.ErrNoDataset):
			writeError(w, http.StatusServiceUnavailable, "no dataset loaded")
		case errors.Is(err, propagation.ErrUnknownSatellite):
			writeError(w, http.StatusNotFound, "unknown satellite")
		case errors.As(err, &decayed):
			writeJSON(w, http.StatusGone, map[string]any{
				"error":      "satellite decayed",
				"norad_id":   id,
				"reason":     string(decayed.Reason),
				"tsince_min": decayed.Tsince,
				"time":       at.Format(time.RFC3339),
			})
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, stateResponse{
		NORADID:      st.NORADID,
		Name:         st.Name,
		Time:         at.Format(time.RFC3339),
		PositionTEME: st.PositionTEME,
		VelocityTEME: st.VelocityTEME,
		Converged:    st.KeplerConverged,
	})
}

// metadataHandler reports dataset provenance. Exempt from auth so dashboards
// can poll freshness without a token.
func (s *Server) metadataHandler(w http.ResponseWriter, r *http.Request) {
	ds := s.store.Get()
	if ds == nil {
		writeError(w, http.StatusServiceUnavailable, "no dataset loaded")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"source":      ds.Source,
		"fetched_at":  ds.FetchedAt.UTC().Format(time.RFC3339),
		"age_seconds": s.store.AgeSeconds(),
		"satellites":  len(ds.Satellites),
		"epoch_min":   ds.EpochRange.Min.UTC().Format(time.RFC3339),
		"epoch_max":   ds.EpochRange.Max.UTC().Format(time.RFC3339),
	})
}

// fetchHandler triggers a synchronous refresh from the upstream source.
func (s *Server) fetchHandler(w http.ResponseWriter, r *http.Request) {
	if s.refresh == nil {
		writeError(w, http.StatusNotImplemented, "refresh not configured")
		return
	}

	if err := s.refresh(r.Context()); err != nil {
		s.logger.Error("manual refresh failed", "component", "api", "error", err)
		writeError(w, http.StatusBadGateway, "refresh failed")
		return
	}

	ds := s.store.Get()
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"satellites": len(ds.Satellites),
		"fetched_at": ds.FetchedAt.UTC().Format(time.RFC3339),
	})
}

type keyframeResponse struct {
	Timestamp  string                       `json:"timestamp"`
	Count      int                          `json:"count"`
	Satellites []propagation.SatelliteState `json:"satellites"`
}

func keyframeJSON(kf *propagation.Keyframe) keyframeResponse {
	return keyframeResponse{
		Timestamp:  kf.Timestamp.UTC().Format(time.RFC3339),
		Count:      len(kf.Satellites),
		Satellites: kf.Satellites,
	}
}

func (s *Server) keyframeLatestHandler(w http.ResponseWriter, r *http.Request) {
	kf := s.eph.GetLatest()
	if kf == nil {
		writeError(w, http.StatusServiceUnavailable, "no keyframes available")
		return
	}
	writeJSON(w, http.StatusOK, keyframeJSON(kf))
}

// keyframeAtHandler serves the cached keyframe covering ?t=RFC3339. The
// requested time is rounded down to the cache step; times outside the cached
// window get 404 rather than an on-demand propagation.
func (s *Server) keyframeAtHandler(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("t")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing t, want RFC3339")
		return
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid t, want RFC3339")
		return
	}

	kf := s.eph.Get(at)
	if kf == nil {
		writeError(w, http.StatusNotFound, "no keyframe for requested time")
		return
	}
	writeJSON(w, http.StatusOK, keyframeJSON(kf))
}

func (s *Server) cacheStatsHandler(w http.ResponseWriter, r *http.Request) {
	st := s.eph.Stats()
	resp := map[string]any{
		"frames":    st.Frames,
		"hits":      st.Hits,
		"misses":    st.Misses,
		"evictions": st.Evictions,
	}
	if st.Frames > 0 {
		resp["oldest"] = st.Oldest.UTC().Format(time.RFC3339)
		resp["newest"] = st.Newest.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}
