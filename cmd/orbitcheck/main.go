// Command orbitcheck propagates satellites from a TLE file and prints their
// TEME state vectors, optionally cross-checking against an independent SGP4
// implementation. It is a diagnostic tool for validating element sets and
// investigating propagation discrepancies offline.
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
	"github.com/midbel/toml"
	"gonum.org/v1/gonum/floats"

	"github.com/star/orbitd/internal/sgp4"
	"github.com/star/orbitd/internal/tle"
)

type setting struct {
	File    string // TLE file to load
	Gravity string // wgs72 (default) or wgs84

	Satellites []int // NORAD IDs, empty means all

	Start time.Time `toml:"dtstart"` // zero means now
	Step  int       `toml:"step"`    // seconds between samples
	Count int       `toml:"count"`   // number of samples
}

func configure(file string) (setting, error) {
	s := setting{
		Gravity: "wgs72",
		Step:    60,
		Count:   10,
	}
	return s, toml.DecodeFile(file, &s)
}

func main() {
	configPath := flag.String("config", "orbitcheck.toml", "path to configuration file")
	compare := flag.Bool("compare", false, "cross-check against an independent SGP4 implementation")
	flag.Parse()

	if err := run(*configPath, *compare); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}

func run(configPath string, compare bool) error {
	cfg, err := configure(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	var consts sgp4.Constants
	var refGravity satellite.Gravity
	switch cfg.Gravity {
	case "wgs72":
		consts, refGravity = sgp4.WGS72, satellite.GravityWGS72
	case "wgs84":
		consts, refGravity = sgp4.WGS84, satellite.GravityWGS84
	default:
		return fmt.Errorf("gravity must be wgs72 or wgs84, got %q", cfg.Gravity)
	}

	data, err := os.ReadFile(cfg.File)
	if err != nil {
		return fmt.Errorf("read TLE file: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	entries, err := tle.Parse(bytes.NewReader(data), logger)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	entries = filterEntries(entries, cfg.Satellites)
	if len(entries) == 0 {
		return fmt.Errorf("no matching satellites in %s", cfg.File)
	}
	fmt.Printf("loaded %d satellites from %s (%s)\n", len(entries), cfg.File, cfg.Gravity)

	start := cfg.Start
	if start.IsZero() {
		start = time.Now().UTC()
	}

	for _, e := range entries {
		if err := checkOne(e, consts, refGravity, start, cfg.Step, cfg.Count, compare); err != nil {
			fmt.Printf("NORAD %d: ERROR %v\n", e.NORADID, err)
		}
	}
	return nil
}

func filterEntries(entries []tle.Entry, ids []int) []tle.Entry {
	if len(ids) == 0 {
		return entries
	}
	want := make(map[int]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []tle.Entry
	for _, e := range entries {
		if want[e.NORADID] {
			out = append(out, e)
		}
	}
	return out
}

func checkOne(e tle.Entry, consts sgp4.Constants, refGravity satellite.Gravity, start time.Time, step, count int, compare bool) error {
	st, err := sgp4.Initialize(e.Elements, consts)
	if err != nil {
		return err
	}

	name := e.Name
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Printf("\nNORAD %d %s: %s orbit, period %.1f min, perigee %.0f km, apogee %.0f km\n",
		e.NORADID, name, st.Regime(), st.PeriodMinutes(), st.PerigeeKm(), st.ApogeeKm())

	var ref satellite.Satellite
	if compare {
		ref = satellite.TLEToSat(e.Line1, e.Line2, refGravity)
	}

	epoch := e.Elements.EpochTime()
	var worstKm float64
	for i := 0; i < count; i++ {
		at := start.Add(time.Duration(i*step) * time.Second).UTC()
		tsince := at.Sub(epoch).Minutes()

		sv, err := st.Propagate(tsince)
		if err != nil {
			var decayed *sgp4.DecayedError
			if errors.As(err, &decayed) {
				fmt.Printf("  t=%s  DECAYED (%s)\n", at.Format(time.RFC3339), decayed.Reason)
				continue
			}
			return err
		}

		r := floats.Norm(sv.Position[:], 2)
		fmt.Printf("  t=%s  r=%9.1f km  pos=[%10.2f %10.2f %10.2f]  vel=[%7.4f %7.4f %7.4f]",
			at.Format(time.RFC3339), r,
			sv.Position[0], sv.Position[1], sv.Position[2],
			sv.Velocity[0], sv.Velocity[1], sv.Velocity[2])

		if compare {
			y, mo, d := at.Date()
			h, mi, sec := at.Clock()
			refPos, _ := satellite.Propagate(ref, y, int(mo), d, h, mi, sec)
			delta := math.Sqrt(sq(sv.Position[0]-refPos.X) + sq(sv.Position[1]-refPos.Y) + sq(sv.Position[2]-refPos.Z))
			worstKm = math.Max(worstKm, delta)
			fmt.Printf("  delta=%8.3f km", delta)
		}
		fmt.Println()
	}

	if compare {
		fmt.Printf("  worst position delta: %.3f km\n", worstKm)
	}
	return nil
}

func sq(x float64) float64 { return x * x }
