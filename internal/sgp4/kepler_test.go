package sgp4

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSolveKeplerResidual(t *testing.T) {
	for _, ecc := range []float64{0, 1e-4, 0.01, 0.1, 0.3, 0.6, 0.9} {
		for m := 0.0; m < twoPi; m += twoPi / 24 {
			e, converged := SolveKepler(m, ecc)
			assert.True(t, converged, "e=%g M=%g", ecc, m)
			residual := e - ecc*math.Sin(e) - m
			assert.InDelta(t, 0, residual, 1e-9, "e=%g M=%g", ecc, m)
		}
	}

	// Above e ~ 0.95 the Newton iteration may hit the cap near perigee.
	// The result must still be finite, and whenever the solver reports
	// convergence the residual bound holds all the way to e -> 1.
	for _, ecc := range []float64{0.95, 0.99} {
		for m := 0.0; m < twoPi; m += twoPi / 24 {
			e, converged := SolveKepler(m, ecc)
			assert.False(t, math.IsNaN(e), "e=%g M=%g", ecc, m)
			if converged {
				residual := e - ecc*math.Sin(e) - m
				assert.InDelta(t, 0, residual, 1e-9, "e=%g M=%g", ecc, m)
			}
		}
	}
}

func TestSolveKeplerCircular(t *testing.T) {
	e, converged := SolveKepler(1.234, 0)
	assert.True(t, converged)
	assert.Equal(t, 1.234, e)
}

func TestSolveKeplerHighEccentricity(t *testing.T) {
	// Near-parabolic orbits converge slowly near perigee; the solver must
	// still return a usable estimate instead of spinning.
	e, _ := SolveKepler(0.01, 0.999)
	residual := e - 0.999*math.Sin(e) - 0.01
	assert.InDelta(t, 0, residual, 1e-6)
}

func TestSolveKeplerUVMatchesClassic(t *testing.T) {
	ecc := 0.2
	omega := 0.7
	axn := ecc * math.Cos(omega)
	ayn := ecc * math.Sin(omega)
	for m := 0.0; m < twoPi; m += twoPi / 12 {
		capu := mod2pi(m + omega)
		epw, _, _, ecose, esine, converged := solveKeplerUV(axn, ayn, capu)
		assert.True(t, converged)
		// The long-period form reduces to capu = epw - esine.
		assert.InDelta(t, capu, epw-esine, 1e-9)
		assert.LessOrEqual(t, math.Abs(ecose), ecc+1e-12)
	}
}
