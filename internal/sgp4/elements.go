package sgp4

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

const (
	deg2rad       = math.Pi / 180.0
	twoPi         = 2.0 * math.Pi
	minutesPerDay = 1440.0

	// xpdotp converts rev/day to radians/minute.
	xpdotp = minutesPerDay / twoPi
)

// Elements are the mean orbital elements of a satellite as published in a
// two-line element set. Angles are in degrees and mean motion in rev/day,
// exactly as they appear on the card; Initialize converts to the canonical
// units the model works in.
type Elements struct {
	SatelliteNumber int
	Classification  byte
	IntlDesignator  string

	EpochYear int     // two-digit year as published
	EpochDay  float64 // day of year with fraction

	MeanMotion     float64 // rev/day (Kozai convention)
	MeanMotionDot  float64 // half the first derivative, rev/day^2, as published
	MeanMotionDDot float64 // a sixth of the second derivative, rev/day^3, as published
	Bstar          float64 // drag term, 1/earth radii

	Inclination  float64 // degrees
	RAAN         float64 // degrees
	Eccentricity float64
	ArgPerigee   float64 // degrees
	MeanAnomaly  float64 // degrees

	EphemerisType int
	ElementSet    int
	RevolutionNum int64
}

// FullEpochYear resolves the two-digit epoch year. Years below 57 are taken
// as 20xx, the rest as 19xx.
func (el Elements) FullEpochYear() int {
	if el.EpochYear < 57 {
		return el.EpochYear + 2000
	}
	return el.EpochYear + 1900
}

// EpochJulian returns the element epoch as a Julian date (UTC).
func (el Elements) EpochJulian() float64 {
	// Day-of-year maps onto the meeus calendar routine as a fractional
	// January date.
	return julian.CalendarGregorianToJD(el.FullEpochYear(), 1, el.EpochDay)
}

// EpochTime returns the element epoch as a time.Time in UTC.
func (el Elements) EpochTime() time.Time {
	return julian.JDToTime(el.EpochJulian()).UTC()
}

// Validate checks the element set against the model's domain. It returns an
// InvalidElementsError naming the first offending field, or nil.
func (el Elements) Validate() error {
	switch {
	case math.IsNaN(el.Eccentricity) || el.Eccentricity < 0 || el.Eccentricity >= 1:
		return &InvalidElementsError{Field: "eccentricity", Value: el.Eccentricity}
	case math.IsNaN(el.MeanMotion) || el.MeanMotion <= 0:
		return &InvalidElementsError{Field: "mean motion", Value: el.MeanMotion}
	case math.IsNaN(el.Inclination) || el.Inclination < 0 || el.Inclination > 180:
		return &InvalidElementsError{Field: "inclination", Value: el.Inclination}
	case math.IsNaN(el.Bstar):
		return &InvalidElementsError{Field: "bstar", Value: el.Bstar}
	case el.EpochDay < 1 || el.EpochDay >= 367:
		return &InvalidElementsError{Field: "epoch day", Value: el.EpochDay}
	}
	return nil
}
