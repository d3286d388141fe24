package sgp4

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func magnitude(v [3]float64) float64 {
	return floats.Norm(v[:], 2)
}

func TestPropagateAtEpoch(t *testing.T) {
	st, err := Initialize(issElements(), WGS72)
	require.NoError(t, err)

	sv, err := st.Propagate(0)
	require.NoError(t, err)
	assert.True(t, sv.KeplerConverged)

	r := magnitude(sv.Position)
	v := magnitude(sv.Velocity)
	assert.Greater(t, r, 6600.0)
	assert.Less(t, r, 6950.0)
	assert.Greater(t, v, 7.3)
	assert.Less(t, v, 7.9)
}

func TestPropagateRadiusStaysInOrbitBand(t *testing.T) {
	st, err := Initialize(issElements(), WGS72)
	require.NoError(t, err)

	lo := st.PerigeeKm() + st.c.RadiusKm - 20.0
	hi := st.ApogeeKm() + st.c.RadiusKm + 20.0
	for tsince := -720.0; tsince <= 720.0; tsince += 13.0 {
		sv, err := st.Propagate(tsince)
		require.NoError(t, err, "tsince=%g", tsince)
		r := magnitude(sv.Position)
		assert.Greater(t, r, lo, "tsince=%g", tsince)
		assert.Less(t, r, hi, "tsince=%g", tsince)
	}
}

func TestPropagateNegativeOffset(t *testing.T) {
	st, err := Initialize(issElements(), WGS72)
	require.NoError(t, err)

	sv, err := st.Propagate(-1440)
	require.NoError(t, err)
	assert.Greater(t, magnitude(sv.Position), 6500.0)
}

func TestPropagateIsDeterministic(t *testing.T) {
	st, err := Initialize(issElements(), WGS72)
	require.NoError(t, err)

	first, err := st.Propagate(360)
	require.NoError(t, err)
	// Later calls at other offsets must not influence the result.
	_, err = st.Propagate(90000)
	require.NoError(t, err)
	_, err = st.Propagate(-5000)
	require.NoError(t, err)
	again, err := st.Propagate(360)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	fresh, err := Initialize(issElements(), WGS72)
	require.NoError(t, err)
	independent, err := fresh.Propagate(360)
	require.NoError(t, err)
	assert.Equal(t, first, independent)
}

func TestPropagateDragShrinksOrbit(t *testing.T) {
	el := issElements()
	el.Bstar = 5.0e-4

	st, err := Initialize(el, WGS72)
	require.NoError(t, err)

	period := st.PeriodMinutes()
	meanRadius := func(center float64) float64 {
		const samples = 64
		sum := 0.0
		for i := 0; i < samples; i++ {
			tsince := center + period*float64(i)/samples
			sv, err := st.Propagate(tsince)
			require.NoError(t, err)
			sum += magnitude(sv.Position)
		}
		return sum / samples
	}

	early := meanRadius(0)
	late := meanRadius(3 * 1440)
	assert.Less(t, late, early)
}

func TestPropagateDecayedOrbit(t *testing.T) {
	// A barely-orbiting satellite with an absurd drag term comes down
	// within hours.
	el := Elements{
		SatelliteNumber: 99999,
		EpochYear:       20,
		EpochDay:        10.0,
		MeanMotion:      16.65,
		Eccentricity:    0.001,
		Inclination:     51.6,
		RAAN:            10.0,
		ArgPerigee:      20.0,
		MeanAnomaly:     30.0,
		Bstar:           0.1,
	}
	st, err := Initialize(el, WGS72)
	require.NoError(t, err)

	var decayErr error
	for tsince := 0.0; tsince <= 2000.0; tsince += 5.0 {
		if _, err := st.Propagate(tsince); err != nil {
			decayErr = err
			break
		}
	}
	require.Error(t, decayErr)
	var dec *DecayedError
	require.True(t, errors.As(decayErr, &dec))
	assert.Equal(t, 99999, dec.SatelliteNumber)

	// Decay at one offset must not poison the state for others.
	sv, err := st.Propagate(0)
	require.NoError(t, err)
	assert.Greater(t, magnitude(sv.Position), 6300.0)
}
