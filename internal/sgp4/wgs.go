package sgp4

import "math"

// Constants holds the gravitational and geometric constants of a World
// Geodetic System model. Values are immutable presets; the initializer
// requires one explicitly rather than assuming a default.
type Constants struct {
	Mu       float64 // gravitational parameter, km^3/s^2
	RadiusKm float64 // equatorial radius, km
	J2       float64 // second zonal harmonic
	J3       float64 // third zonal harmonic
	J4       float64 // fourth zonal harmonic
	Xke      float64 // sqrt(mu) in (earth radii)^1.5 per minute
	Tumin    float64 // minutes per canonical time unit
}

// WGS72 are the fundamental and derived constants of WGS-72, the set the
// published SGP4 test vectors were generated with.
var WGS72 = Constants{
	Mu:       398600.8,
	RadiusKm: 6378.135,
	J2:       0.001082616,
	J3:       -0.00000253881,
	J4:       -0.00000165597,
	Xke:      0.07436691613317,
	Tumin:    13.44683969695931,
}

// WGS84 are the fundamental and derived constants of WGS-84.
var WGS84 = Constants{
	Mu:       398600.4418,
	RadiusKm: 6378.137,
	J2:       0.00108262998905,
	J3:       -0.00000253215306,
	J4:       -0.00000161098761,
	Xke:      0.07436685316871,
	Tumin:    13.44685108204498,
}

// derived holds constants normalized to earth radii (ae = 1) that the
// initializer and propagator use directly.
type derived struct {
	ck2    float64 // 0.5 * J2
	ck4    float64 // -0.375 * J4
	a3ovk2 float64 // -J3 / ck2
	qoms2t float64 // ((q0 - s0) / Re)^4, q0 = 120 km, s0 = 78 km
	s      float64 // 1 + s0 / Re
}

func (c Constants) derive() derived {
	ck2 := 0.5 * c.J2
	q := (120.0 - 78.0) / c.RadiusKm
	return derived{
		ck2:    ck2,
		ck4:    -0.375 * c.J4,
		a3ovk2: -c.J3 / ck2,
		qoms2t: math.Pow(q, 4),
		s:      1.0 + 78.0/c.RadiusKm,
	}
}
