package propagation

import "time"

// Keyframe holds the states of all satellites at a single point in time.
type Keyframe struct {
	Timestamp  time.Time
	Satellites []SatelliteState
}

// SatelliteState is a single satellite's propagated state in the TEME frame.
type SatelliteState struct {
	NORADID         int
	Name            string
	PositionTEME    [3]float64 // km
	VelocityTEME    [3]float64 // km/s
	KeplerConverged bool
}

// PropConfig holds propagation configuration loaded from environment variables.
type PropConfig struct {
	Workers int           // Worker pool size (default: runtime.NumCPU())
	Step    time.Duration // Keyframe interval (default: 5s)
	Horizon time.Duration // Propagation horizon (default: 600s)
}
