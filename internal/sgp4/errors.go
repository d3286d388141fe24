package sgp4

import "fmt"

// InvalidElementsError reports an element set that is outside the model's
// domain. It is returned by Initialize before any state is built, so a
// failed initialization never yields a partially usable State.
type InvalidElementsError struct {
	Field string
	Value float64
}

func (e *InvalidElementsError) Error() string {
	return fmt.Sprintf("sgp4: invalid elements: %s = %g", e.Field, e.Value)
}

// DecayReason identifies why a propagation was rejected.
type DecayReason string

const (
	ReasonPerigeeBelowSurface DecayReason = "perigee below earth surface"
	ReasonEccentricity        DecayReason = "perturbed eccentricity out of range"
	ReasonSemiMajorAxis       DecayReason = "semi-major axis not positive"
	ReasonSemiLatusRectum     DecayReason = "semi-latus rectum negative"
)

// DecayedError reports that the propagated orbit has left the model's
// region of validity, usually because drag has brought the satellite down.
// Other offsets for the same state may still succeed.
type DecayedError struct {
	SatelliteNumber int
	Tsince          float64 // minutes from epoch
	Reason          DecayReason
	Value           float64
}

func (e *DecayedError) Error() string {
	return fmt.Sprintf("sgp4: satellite %d decayed at tsince %.2f min: %s (%g)",
		e.SatelliteNumber, e.Tsince, e.Reason, e.Value)
}
