package sgp4

import "math"

// Regime tells which branch of the model a state uses.
type Regime int

const (
	RegimeNearEarth Regime = iota
	RegimeDeepSpace
)

func (r Regime) String() string {
	if r == RegimeDeepSpace {
		return "deep-space"
	}
	return "near-earth"
}

// Resonance classifies the gravitational resonance of a deep-space orbit.
type Resonance int

const (
	ResonanceNone Resonance = iota
	ResonanceSynchronous
	ResonanceHalfDay
)

func (r Resonance) String() string {
	switch r {
	case ResonanceSynchronous:
		return "synchronous"
	case ResonanceHalfDay:
		return "half-day"
	default:
		return "none"
	}
}

// State is an initialized propagation state for one element set. It is
// immutable after Initialize and safe for concurrent Propagate calls.
type State struct {
	el    Elements
	c     Constants
	d     derived
	ds50  float64 // epoch, days since 1950 Jan 0.0 UTC
	jd    float64 // epoch Julian date

	regime Regime
	deep   *deepSpace

	// radianized elements
	xincl, xnodeo, omegao, xmo, eo float64
	xno   float64 // Kozai mean motion, rad/min
	bstar float64

	// Brouwer mean elements
	xnodp float64 // mean motion, rad/min
	aodp  float64 // semi-major axis, earth radii

	// trig of inclination and common factors
	cosio, sinio, theta2          float64
	x3thm1, x1mth2, x7thm1        float64
	betao, betao2, eosq           float64
	eta, coef, coef1              float64
	aycof, xlcof                  float64

	// secular rates
	xmdot, omgdot, xnodot, xnodcf float64

	// drag coefficients
	c1, c4, c5           float64
	t2cof                float64
	d2, d3, d4           float64
	t3cof, t4cof, t5cof  float64
	omgcof, xmcof        float64
	delmo, sinmo         float64
	simple               bool

	perigeeKm float64
}

// Initialize validates the element set, recovers the Brouwer mean motion
// and semi-major axis, and precomputes every time-independent coefficient
// of the model. The constants set must be given explicitly; WGS72 matches
// the historical test vectors, WGS84 is the operational choice.
func Initialize(el Elements, c Constants) (*State, error) {
	if err := el.Validate(); err != nil {
		return nil, err
	}

	s := &State{
		el: el,
		c:  c,
		d:  c.derive(),
		jd: el.EpochJulian(),

		xincl:  el.Inclination * deg2rad,
		xnodeo: el.RAAN * deg2rad,
		omegao: el.ArgPerigee * deg2rad,
		xmo:    el.MeanAnomaly * deg2rad,
		eo:     el.Eccentricity,
		xno:    el.MeanMotion / xpdotp,
		bstar:  el.Bstar,
	}
	s.ds50 = s.jd - 2433281.5

	// Recover the Brouwer mean motion from the Kozai value on the card.
	s.cosio = math.Cos(s.xincl)
	s.sinio = math.Sin(s.xincl)
	s.theta2 = s.cosio * s.cosio
	s.x3thm1 = 3.0*s.theta2 - 1.0
	s.eosq = s.eo * s.eo
	s.betao2 = 1.0 - s.eosq
	s.betao = math.Sqrt(s.betao2)

	a1 := math.Pow(c.Xke/s.xno, 2.0/3.0)
	del1 := 1.5 * s.d.ck2 * s.x3thm1 / (a1 * a1 * s.betao * s.betao2)
	ao := a1 * (1.0 - del1*(0.5*(2.0/3.0)+del1*(1.0+134.0/81.0*del1)))
	delo := 1.5 * s.d.ck2 * s.x3thm1 / (ao * ao * s.betao * s.betao2)
	s.xnodp = s.xno / (1.0 + delo)
	s.aodp = ao / (1.0 - delo)

	if s.xnodp <= 0 || s.aodp <= 0 {
		return nil, &InvalidElementsError{Field: "recovered semi-major axis", Value: s.aodp}
	}
	if s.aodp*(1.0-s.eo) < 1.0 {
		// Perigee inside the earth already at epoch.
		return nil, &InvalidElementsError{Field: "perigee", Value: (s.aodp*(1.0-s.eo) - 1.0) * c.RadiusKm}
	}

	perigee := (s.aodp*(1.0-s.eo) - 1.0) * c.RadiusKm
	s.perigeeKm = perigee

	period := twoPi / s.xnodp
	if period >= 225.0 {
		s.regime = RegimeDeepSpace
	}

	// Atmospheric density fit constants, adjusted for low perigees.
	s4 := s.d.s
	qoms24 := s.d.qoms2t
	if perigee < 156.0 {
		s4 = perigee - 78.0
		if perigee < 98.0 {
			s4 = 20.0
		}
		qoms24 = math.Pow((120.0-s4)/c.RadiusKm, 4)
		s4 = s4/c.RadiusKm + 1.0
	}

	s.x1mth2 = 1.0 - s.theta2
	s.x7thm1 = 7.0*s.theta2 - 1.0

	pinvsq := 1.0 / (s.aodp * s.aodp * s.betao2 * s.betao2)
	tsi := 1.0 / (s.aodp - s4)
	s.eta = s.aodp * s.eo * tsi
	etasq := s.eta * s.eta
	eeta := s.eo * s.eta
	psisq := math.Abs(1.0 - etasq)
	s.coef = qoms24 * math.Pow(tsi, 4)
	s.coef1 = s.coef / math.Pow(psisq, 3.5)
	c2 := s.coef1 * s.xnodp * (s.aodp*(1.0+1.5*etasq+eeta*(4.0+etasq)) +
		0.75*s.d.ck2*tsi/psisq*s.x3thm1*(8.0+3.0*etasq*(8.0+etasq)))
	s.c1 = s.bstar * c2
	s.c4 = 2.0 * s.xnodp * s.coef1 * s.aodp * s.betao2 *
		(s.eta*(2.0+0.5*etasq) + s.eo*(0.5+2.0*etasq) -
			2.0*s.d.ck2*tsi/(s.aodp*psisq)*
				(-3.0*s.x3thm1*(1.0-2.0*eeta+etasq*(1.5-0.5*eeta))+
					0.75*s.x1mth2*(2.0*etasq-eeta*(1.0+etasq))*math.Cos(2.0*s.omegao)))

	theta4 := s.theta2 * s.theta2
	temp1 := 3.0 * s.d.ck2 * pinvsq * s.xnodp
	temp2 := temp1 * s.d.ck2 * pinvsq
	temp3 := 1.25 * s.d.ck4 * pinvsq * pinvsq * s.xnodp
	s.xmdot = s.xnodp + 0.5*temp1*s.betao*s.x3thm1 +
		0.0625*temp2*s.betao*(13.0-78.0*s.theta2+137.0*theta4)
	x1m5th := 1.0 - 5.0*s.theta2
	s.omgdot = -0.5*temp1*x1m5th +
		0.0625*temp2*(7.0-114.0*s.theta2+395.0*theta4) +
		temp3*(3.0-36.0*s.theta2+49.0*theta4)
	xhdot1 := -temp1 * s.cosio
	s.xnodot = xhdot1 + (0.5*temp2*(4.0-19.0*s.theta2)+
		2.0*temp3*(3.0-7.0*s.theta2))*s.cosio
	s.xnodcf = 3.5 * s.betao2 * xhdot1 * s.c1
	s.t2cof = 1.5 * s.c1

	// Long-period coefficients. The cosio+1 guard keeps xlcof finite for
	// retrograde orbits near 180 degrees inclination.
	div := 1.0 + s.cosio
	if math.Abs(div) < 1.5e-12 {
		div = 1.5e-12
	}
	s.xlcof = 0.125 * s.d.a3ovk2 * s.sinio * (3.0 + 5.0*s.cosio) / div
	s.aycof = 0.25 * s.d.a3ovk2 * s.sinio

	if s.regime == RegimeDeepSpace {
		s.deep = newDeepSpace(s)
		return s, nil
	}

	// Near-earth extras.
	c3 := 0.0
	if s.eo > 1.0e-4 {
		c3 = s.coef * tsi * s.d.a3ovk2 * s.xnodp * s.sinio / s.eo
	}
	s.c5 = 2.0 * s.coef1 * s.aodp * s.betao2 * (1.0 + 2.75*(etasq+eeta) + eeta*etasq)
	s.omgcof = s.bstar * c3 * math.Cos(s.omegao)
	s.xmcof = 0.0
	if s.eo > 1.0e-4 {
		s.xmcof = -(2.0 / 3.0) * s.coef * s.bstar / eeta
	}
	s.delmo = math.Pow(1.0+s.eta*math.Cos(s.xmo), 3)
	s.sinmo = math.Sin(s.xmo)

	// Perigees under 220 km use the truncated drag expansion.
	s.simple = perigee < 220.0
	if !s.simple {
		c1sq := s.c1 * s.c1
		s.d2 = 4.0 * s.aodp * tsi * c1sq
		temp := s.d2 * tsi * s.c1 / 3.0
		s.d3 = (17.0*s.aodp + s4) * temp
		s.d4 = 0.5 * temp * s.aodp * tsi * (221.0*s.aodp + 31.0*s4) * s.c1
		s.t3cof = s.d2 + 2.0*c1sq
		s.t4cof = 0.25 * (3.0*s.d3 + s.c1*(12.0*s.d2+10.0*c1sq))
		s.t5cof = 0.2 * (3.0*s.d4 + 12.0*s.c1*s.d3 + 6.0*s.d2*s.d2 +
			15.0*c1sq*(2.0*s.d2+c1sq))
	}
	return s, nil
}

// Elements returns a copy of the element set the state was built from.
func (s *State) Elements() Elements { return s.el }

// Regime reports whether the state uses the near-earth or deep-space branch.
func (s *State) Regime() Regime { return s.regime }

// Resonance reports the resonance class of a deep-space state, or
// ResonanceNone for near-earth states.
func (s *State) Resonance() Resonance {
	if s.deep == nil {
		return ResonanceNone
	}
	return s.deep.resonance
}

// EpochJulian returns the element epoch as a Julian date.
func (s *State) EpochJulian() float64 { return s.jd }

// PeriodMinutes returns the orbital period from the recovered mean motion.
func (s *State) PeriodMinutes() float64 { return twoPi / s.xnodp }

// PerigeeKm returns the epoch perigee height above the equatorial radius.
func (s *State) PerigeeKm() float64 { return s.perigeeKm }

// ApogeeKm returns the epoch apogee height above the equatorial radius.
func (s *State) ApogeeKm() float64 {
	return (s.aodp*(1.0+s.eo) - 1.0) * s.c.RadiusKm
}
