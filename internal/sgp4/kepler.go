package sgp4

import "math"

const (
	keplerTolerance = 1e-12
	keplerMaxIter   = 10
)

// SolveKepler solves Kepler's equation M = E - e*sin(E) for the eccentric
// anomaly by Newton-Raphson, starting from E = M. The returned flag is
// false when the iteration cap was reached before the correction dropped
// below tolerance; the best estimate is still returned.
func SolveKepler(meanAnomaly, eccentricity float64) (float64, bool) {
	epw := meanAnomaly
	for i := 0; i < keplerMaxIter; i++ {
		delta := (epw - eccentricity*math.Sin(epw) - meanAnomaly) /
			(1.0 - eccentricity*math.Cos(epw))
		epw -= delta
		if math.Abs(delta) < keplerTolerance {
			return epw, true
		}
	}
	return epw, false
}

// solveKeplerUV solves the long-period form of Kepler's equation used by
// the propagator, capu = epw - axn*sin(epw) + ayn*cos(epw) rearranged so
// the trig products feed straight into the short-period corrections.
func solveKeplerUV(axn, ayn, capu float64) (epw, sinepw, cosepw, ecose, esine float64, converged bool) {
	epw = capu
	for i := 0; i < keplerMaxIter; i++ {
		sinepw = math.Sin(epw)
		cosepw = math.Cos(epw)
		ecose = axn*cosepw + ayn*sinepw
		esine = axn*sinepw - ayn*cosepw
		f := capu - epw + esine
		if math.Abs(f) < keplerTolerance {
			converged = true
			return
		}
		epw += f / (1.0 - ecose)
	}
	// Iteration cap reached. Recompute the trig terms at the final
	// estimate so the caller gets a consistent set.
	sinepw = math.Sin(epw)
	cosepw = math.Cos(epw)
	ecose = axn*cosepw + ayn*sinepw
	esine = axn*sinepw - ayn*cosepw
	return
}

// mod2pi reduces an angle to [0, 2*pi).
func mod2pi(x float64) float64 {
	x = math.Mod(x, twoPi)
	if x < 0 {
		x += twoPi
	}
	return x
}
