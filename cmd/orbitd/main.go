package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/star/orbitd/internal/api"
	"github.com/star/orbitd/internal/auth"
	"github.com/star/orbitd/internal/ephemeris"
	"github.com/star/orbitd/internal/metrics"
	"github.com/star/orbitd/internal/propagation"
	"github.com/star/orbitd/internal/sgp4"
	"github.com/star/orbitd/internal/tle"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(),
	}))

	addr := os.Getenv("ORBITD_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	consts, err := loadGravityModel()
	if err != nil {
		logger.Error("invalid gravity model", "error", err)
		os.Exit(1)
	}

	tleCfg := loadTLEConfig(logger)
	store := tle.NewStore()
	diskCache := tle.NewCache(tleCfg.CacheDir, tleCfg.MaxFiles)
	fetcher := tle.NewFetcher(tleCfg.SourceURL, logger, tleCfg.ExtraSourceURLs...)

	// Attempt to load cached element data on startup so the service is
	// usable before the first upstream fetch.
	if data, ts, err := diskCache.LoadLatest(); err != nil {
		logger.Info("no element cache found, starting empty", "error", err)
	} else if entries, err := tle.Parse(bytes.NewReader(data), logger); err != nil {
		logger.Warn("failed to parse cached element data", "error", err)
	} else if len(entries) > 0 {
		store.Set(tle.NewDataset("cache", ts, entries))
		metrics.SetSatelliteCount(len(entries))
		logger.Info("loaded element data from cache",
			"count", len(entries), "cached_at", ts.Format(time.RFC3339))
	}

	propCfg := loadPropConfig(logger)
	prop := propagation.NewPropagator(store, propCfg, consts, logger)

	ephCfg := loadEphemerisConfig(logger, propCfg)
	eph := ephemeris.New(ephCfg, prop, store, logger)

	refresh := func(ctx context.Context) error {
		return refreshDataset(ctx, fetcher, diskCache, store, logger)
	}

	srv := api.NewServer(api.Options{
		Addr:       addr,
		Auth:       authCfg,
		TrustProxy: tleCfg.TrustProxy,
		Refresh:    refresh,
	}, store, prop, eph, logger)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go eph.Start(ctx)

	if tleCfg.EnableFetch {
		go refreshLoop(ctx, refresh, store, tleCfg.MaxAge, tleCfg.RefreshInterval, logger)
	}

	// Background goroutine to update the dataset age gauge.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if age := store.AgeSeconds(); age >= 0 {
					metrics.SetDatasetAge(age)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Info("starting server",
			"addr", addr,
			"auth_enabled", authCfg.Enabled,
			"fetch_enabled", tleCfg.EnableFetch,
			"gravity_model", gravityName(consts),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// refreshDataset runs one fetch-parse-swap cycle. The store's refresh mutex
// keeps concurrent manual and scheduled refreshes from interleaving.
func refreshDataset(ctx context.Context, fetcher *tle.Fetcher, diskCache *tle.Cache, store *tle.Store, logger *slog.Logger) error {
	store.Lock()
	defer store.Unlock()

	data, err := fetcher.Fetch(ctx)
	if err != nil {
		metrics.RecordFetch(false)
		return fmt.Errorf("fetch: %w", err)
	}

	entries, err := tle.Parse(bytes.NewReader(data), logger)
	if err != nil {
		metrics.RecordFetch(false)
		return fmt.Errorf("parse: %w", err)
	}
	if len(entries) == 0 {
		metrics.RecordFetch(false)
		return errors.New("upstream returned no parseable satellites")
	}

	now := time.Now().UTC()
	store.Set(tle.NewDataset(fetcher.SourceURL(), now, entries))
	metrics.RecordFetch(true)
	metrics.SetSatelliteCount(len(entries))
	metrics.SetDatasetAge(0)

	if err := diskCache.Write(data, now); err != nil {
		logger.Warn("failed to write element cache", "error", err)
	}

	logger.Info("element data refreshed", "count", len(entries))
	return nil
}

// refreshLoop fetches immediately when the dataset is missing or older than
// maxAge, then on a fixed interval.
func refreshLoop(ctx context.Context, refresh api.RefreshFunc, store *tle.Store, maxAge, interval time.Duration, logger *slog.Logger) {
	stale := store.Get() == nil || store.AgeSeconds() > maxAge.Seconds()
	if stale {
		if err := refresh(ctx); err != nil {
			logger.Error("initial element fetch failed", "error", err)
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := refresh(ctx); err != nil {
				logger.Error("scheduled element fetch failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func logLevel() slog.Level {
	switch strings.ToLower(os.Getenv("ORBITD_LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	enabledStr := os.Getenv("ORBITD_AUTH_ENABLED")
	if enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return cfg, errors.New("ORBITD_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("ORBITD_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("ORBITD_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

func loadGravityModel() (sgp4.Constants, error) {
	switch strings.ToLower(os.Getenv("ORBITD_GRAVITY_MODEL")) {
	case "", "wgs72":
		return sgp4.WGS72, nil
	case "wgs84":
		return sgp4.WGS84, nil
	default:
		return sgp4.Constants{}, fmt.Errorf("ORBITD_GRAVITY_MODEL must be wgs72 or wgs84, got %q", os.Getenv("ORBITD_GRAVITY_MODEL"))
	}
}

func gravityName(c sgp4.Constants) string {
	if c == sgp4.WGS84 {
		return "wgs84"
	}
	return "wgs72"
}

func loadPropConfig(logger *slog.Logger) propagation.PropConfig {
	cfg := propagation.PropConfig{
		Workers: runtime.NumCPU(),
		Step:    5 * time.Second,
		Horizon: 600 * time.Second,
	}

	if v := os.Getenv("ORBITD_PROP_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ORBITD_PROP_WORKERS value, using default", "value", v, "default", cfg.Workers)
		} else {
			cfg.Workers = n
		}
	}

	if v := os.Getenv("ORBITD_KEYFRAME_STEP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ORBITD_KEYFRAME_STEP value, using default", "value", v, "default", 5)
		} else {
			cfg.Step = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("ORBITD_KEYFRAME_HORIZON"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ORBITD_KEYFRAME_HORIZON value, using default", "value", v, "default", 600)
		} else {
			cfg.Horizon = time.Duration(n) * time.Second
		}
	}

	logger.Info("propagation config",
		"workers", cfg.Workers,
		"step_seconds", cfg.Step.Seconds(),
		"horizon_seconds", cfg.Horizon.Seconds(),
	)

	return cfg
}

func loadEphemerisConfig(logger *slog.Logger, propCfg propagation.PropConfig) ephemeris.Config {
	cfg := ephemeris.Config{
		Step:    propCfg.Step,
		Horizon: propCfg.Horizon,
		Buffer:  60 * time.Second,
	}

	if v := os.Getenv("ORBITD_CACHE_BUFFER"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ORBITD_CACHE_BUFFER value, using default", "value", v, "default", 60)
		} else {
			cfg.Buffer = time.Duration(n) * time.Second
		}
	}

	logger.Info("ephemeris config",
		"step_seconds", cfg.Step.Seconds(),
		"horizon_seconds", cfg.Horizon.Seconds(),
		"buffer_seconds", cfg.Buffer.Seconds(),
	)

	return cfg
}

// tleConfig controls upstream fetching and the on-disk snapshot cache.
type tleConfig struct {
	EnableFetch     bool
	SourceURL       string
	ExtraSourceURLs []string
	CacheDir        string
	MaxFiles        int
	MaxAge          time.Duration
	RefreshInterval time.Duration
	TrustProxy      bool
}

func loadTLEConfig(logger *slog.Logger) tleConfig {
	cfg := tleConfig{
		EnableFetch:     true,
		CacheDir:        "/tmp/orbitd/tle",
		MaxFiles:        5,
		MaxAge:          24 * time.Hour,
		RefreshInterval: time.Hour,
	}

	if v := os.Getenv("ORBITD_ENABLE_TLE_FETCH"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid ORBITD_ENABLE_TLE_FETCH value, defaulting to false", "value", v)
			cfg.EnableFetch = false
		} else {
			cfg.EnableFetch = enabled
		}
	}

	if v := os.Getenv("ORBITD_TLE_SOURCE_URL"); v != "" {
		cfg.SourceURL = v
	}

	if v := os.Getenv("ORBITD_TLE_EXTRA_URLS"); v != "" {
		var urls []string
		for _, u := range strings.Split(v, ",") {
			u = strings.TrimSpace(u)
			if u != "" {
				urls = append(urls, u)
			}
		}
		cfg.ExtraSourceURLs = urls
	}

	if v := os.Getenv("ORBITD_TLE_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}

	if v := os.Getenv("ORBITD_TLE_MAX_AGE"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil || seconds < 1 {
			logger.Warn("invalid ORBITD_TLE_MAX_AGE value, defaulting to 86400", "value", v)
		} else {
			cfg.MaxAge = time.Duration(seconds) * time.Second
		}
	}

	if v := os.Getenv("ORBITD_TLE_REFRESH_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil || seconds < 60 {
			logger.Warn("invalid ORBITD_TLE_REFRESH_SECONDS value, defaulting to 3600", "value", v)
		} else {
			cfg.RefreshInterval = time.Duration(seconds) * time.Second
		}
	}

	if v := os.Getenv("ORBITD_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid ORBITD_TRUST_PROXY value, defaulting to false", "value", v)
		} else {
			cfg.TrustProxy = trust
		}
	}

	logger.Info("element source config",
		"source_url", cfg.SourceURL,
		"extra_urls", cfg.ExtraSourceURLs,
		"cache_dir", cfg.CacheDir,
		"refresh_seconds", cfg.RefreshInterval.Seconds(),
	)

	return cfg
}
