package sgp4

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeepSpaceGeosynchronousRadius(t *testing.T) {
	st, err := Initialize(geoElements(), WGS72)
	require.NoError(t, err)

	for _, tsince := range []float64{0, 360, 1440, 10000, -1440} {
		sv, err := st.Propagate(tsince)
		require.NoError(t, err, "tsince=%g", tsince)
		r := magnitude(sv.Position)
		assert.Greater(t, r, 41500.0, "tsince=%g", tsince)
		assert.Less(t, r, 42800.0, "tsince=%g", tsince)

		v := magnitude(sv.Velocity)
		assert.Greater(t, v, 2.8, "tsince=%g", tsince)
		assert.Less(t, v, 3.4, "tsince=%g", tsince)
	}
}

func TestDeepSpaceMolniyaRadiusRange(t *testing.T) {
	st, err := Initialize(molniyaElements(), WGS72)
	require.NoError(t, err)

	period := st.PeriodMinutes()
	maxR := 0.0
	for i := 0; i < 48; i++ {
		tsince := period * float64(i) / 48.0
		sv, err := st.Propagate(tsince)
		require.NoError(t, err, "tsince=%g", tsince)
		r := magnitude(sv.Position)
		assert.Greater(t, r, 7000.0, "tsince=%g", tsince)
		assert.Less(t, r, 47000.0, "tsince=%g", tsince)
		if r > maxR {
			maxR = r
		}
	}
	// A highly eccentric orbit spends most of its period near apogee, so
	// the sweep has to catch it high up.
	assert.Greater(t, maxR, 35000.0)

	// The envelope must also hold across multiple resonance integrator
	// steps in both directions, not just over one revolution.
	for tsince := -4320.0; tsince <= 4320.0; tsince += 180.0 {
		sv, err := st.Propagate(tsince)
		require.NoError(t, err, "tsince=%g", tsince)
		r := magnitude(sv.Position)
		assert.Greater(t, r, 7000.0, "tsince=%g", tsince)
		assert.Less(t, r, 47000.0, "tsince=%g", tsince)
	}
}

// TestDeepSpaceGeostationaryLongitudeHold pins the synchronous resonance
// terms: a geostationary-rate satellite must stay over the same earth
// longitude. A sign error in the resonance or lunisolar coefficients would
// walk the sub-satellite point off by degrees within days.
func TestDeepSpaceGeostationaryLongitudeHold(t *testing.T) {
	st, err := Initialize(geoElements(), WGS72)
	require.NoError(t, err)
	require.Equal(t, ResonanceSynchronous, st.Resonance())

	lonAt := func(tsince float64) float64 {
		sv, err := st.Propagate(tsince)
		require.NoError(t, err, "tsince=%g", tsince)
		gst := st.deep.thgr + tsince*thdt
		return mod2pi(math.Atan2(sv.Position[1], sv.Position[0]) - gst)
	}

	lon0 := lonAt(0)
	for tsince := 720.0; tsince <= 14400.0; tsince += 720.0 {
		drift := math.Abs(math.Remainder(lonAt(tsince)-lon0, twoPi))
		assert.Less(t, drift, 1.0*deg2rad, "tsince=%g", tsince)
	}
}

func TestDeepSpaceEquatorialNoNaN(t *testing.T) {
	// Inclination exactly zero zeroes the lunisolar node terms; the
	// combined node rate must come out zero instead of 0/0.
	el := geoElements()
	el.Inclination = 0
	st, err := Initialize(el, WGS72)
	require.NoError(t, err)

	for _, tsince := range []float64{0, 360, 1440, 10000} {
		sv, err := st.Propagate(tsince)
		require.NoError(t, err, "tsince=%g", tsince)
		r := magnitude(sv.Position)
		assert.False(t, math.IsNaN(r), "tsince=%g", tsince)
		assert.Greater(t, r, 41500.0, "tsince=%g", tsince)
		assert.Less(t, r, 42800.0, "tsince=%g", tsince)
	}
}

func TestDeepSpaceResonanceIntegration(t *testing.T) {
	// Offsets past the 720 minute step force the resonance integrator
	// through multiple steps in both directions.
	for _, el := range []Elements{geoElements(), molniyaElements()} {
		st, err := Initialize(el, WGS72)
		require.NoError(t, err)
		for _, tsince := range []float64{1500, 7200, -1500, -7200} {
			sv, err := st.Propagate(tsince)
			require.NoError(t, err, "sat=%d tsince=%g", el.SatelliteNumber, tsince)
			assert.Greater(t, magnitude(sv.Position), 6378.0)
		}
	}
}

func TestDeepSpaceOrderIndependence(t *testing.T) {
	st, err := Initialize(molniyaElements(), WGS72)
	require.NoError(t, err)

	// The integrator restarts from epoch on every call, so interleaving
	// far and near offsets cannot change anything.
	want, err := st.Propagate(500)
	require.NoError(t, err)
	_, err = st.Propagate(100000)
	require.NoError(t, err)
	_, err = st.Propagate(-30000)
	require.NoError(t, err)
	got, err := st.Propagate(500)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	fresh, err := Initialize(molniyaElements(), WGS72)
	require.NoError(t, err)
	independent, err := fresh.Propagate(500)
	require.NoError(t, err)
	assert.Equal(t, want, independent)
}

func TestDeepSpaceLowInclinationNode(t *testing.T) {
	// Near-equatorial geosynchronous orbits take the Lyddane branch of
	// the periodic corrections; the node must stay continuous.
	st, err := Initialize(geoElements(), WGS72)
	require.NoError(t, err)

	var prev StateVector
	for i, tsince := 0, 0.0; tsince <= 2880; i, tsince = i+1, tsince+30.0 {
		sv, err := st.Propagate(tsince)
		require.NoError(t, err, "tsince=%g", tsince)
		if i > 0 {
			// 30 minutes of GEO motion is about 5500 km of arc.
			dx := sv.Position[0] - prev.Position[0]
			dy := sv.Position[1] - prev.Position[1]
			dz := sv.Position[2] - prev.Position[2]
			step := magnitude([3]float64{dx, dy, dz})
			assert.Less(t, step, 8000.0, "tsince=%g", tsince)
		}
		prev = sv
	}
}
