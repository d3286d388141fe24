package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitd_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orbitd_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	propagationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orbitd_propagation_batch_duration_seconds",
			Help:    "Wall time of one batch propagation across the catalog.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	propagationSuccess = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbitd_propagation_success_total",
		Help: "Satellites propagated successfully.",
	})

	propagationErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbitd_propagation_errors_total",
		Help: "Satellites that failed to propagate for reasons other than decay.",
	})

	propagationDecayed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbitd_propagation_decayed_total",
		Help: "Propagations rejected because the orbit left the model's validity region.",
	})

	keplerNonConverged = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbitd_kepler_nonconverged_total",
		Help: "Propagations whose eccentric anomaly iteration hit the cap.",
	})

	tleDatasetAge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orbitd_tle_dataset_age_seconds",
		Help: "Age of the current element dataset. -1 when none is loaded.",
	})

	tleSatellites = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orbitd_tle_satellites",
		Help: "Number of satellites in the current dataset.",
	})

	tleFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitd_tle_fetch_total",
			Help: "Element data fetch attempts by result.",
		},
		[]string{"result"},
	)

	cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbitd_ephemeris_cache_hits_total",
		Help: "Keyframe lookups served from the ephemeris cache.",
	})

	cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbitd_ephemeris_cache_misses_total",
		Help: "Keyframe lookups that found no cached frame.",
	})

	cacheKeyframes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orbitd_ephemeris_cache_keyframes",
		Help: "Keyframes currently held by the ephemeris cache.",
	})
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		propagationDuration,
		propagationSuccess,
		propagationErrors,
		propagationDecayed,
		keplerNonConverged,
		tleDatasetAge,
		tleSatellites,
		tleFetchTotal,
		cacheHits,
		cacheMisses,
		cacheKeyframes,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordPropagation records one batch propagation.
func RecordPropagation(d time.Duration, success, errors int) {
	propagationDuration.Observe(d.Seconds())
	propagationSuccess.Add(float64(success))
	propagationErrors.Add(float64(errors))
}

// RecordDecayed counts satellites rejected as decayed in a batch.
func RecordDecayed(n int) {
	propagationDecayed.Add(float64(n))
}

// RecordKeplerNonConverged counts soft Kepler convergence failures.
func RecordKeplerNonConverged(n int) {
	keplerNonConverged.Add(float64(n))
}

// SetDatasetAge publishes the age of the current dataset.
func SetDatasetAge(seconds float64) {
	tleDatasetAge.Set(seconds)
}

// SetSatelliteCount publishes the dataset size.
func SetSatelliteCount(n int) {
	tleSatellites.Set(float64(n))
}

// RecordFetch counts one fetch attempt.
func RecordFetch(ok bool) {
	result := "success"
	if !ok {
		result = "error"
	}
	tleFetchTotal.WithLabelValues(result).Inc()
}

// RecordCacheHit counts a keyframe lookup served from cache.
func RecordCacheHit() { cacheHits.Inc() }

// RecordCacheMiss counts a keyframe lookup with no cached frame.
func RecordCacheMiss() { cacheMisses.Inc() }

// SetCachedKeyframes publishes the current cache size.
func SetCachedKeyframes(n int) { cacheKeyframes.Set(float64(n)) }

// knownRoutes are the exact paths the server serves. Everything else is
// bot noise and collapses to one label.
var knownRoutes = map[string]bool{
	"/":                        true,
	"/healthz":                 true,
	"/readyz":                  true,
	"/metrics":                 true,
	"/api/v1/satellites":       true,
	"/api/v1/tle/metadata":     true,
	"/api/v1/tle/fetch":        true,
	"/api/v1/keyframes/latest": true,
	"/api/v1/keyframes/at":     true,
	"/api/v1/cache/stats":      true,
}

// normalizeRoute keeps the metric label cardinality bounded: known routes
// pass through, per-satellite state paths collapse to a placeholder, and
// everything else becomes "other".
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if strings.HasPrefix(path, "/api/v1/state/") {
		return "/api/v1/state/{norad_id}"
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
