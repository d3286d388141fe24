package sgp4

import "math"

// StateVector is a propagated position and velocity in the TEME frame.
// KeplerConverged is false when the eccentric anomaly iteration hit its
// cap; the vector is still the best available estimate.
type StateVector struct {
	Position        [3]float64 // km
	Velocity        [3]float64 // km/s
	KeplerConverged bool
}

// Propagate advances the state tsince minutes from epoch, negative values
// included, and returns the TEME position and velocity. The call does not
// mutate the state, so concurrent and out-of-order use is fine.
func (s *State) Propagate(tsince float64) (StateVector, error) {
	if s.regime == RegimeDeepSpace {
		return s.propagateDeep(tsince)
	}
	return s.propagateNear(tsince)
}

// PropagateJD is a convenience wrapper taking an absolute Julian date
// instead of a minute offset from epoch.
func (s *State) PropagateJD(jd float64) (StateVector, error) {
	return s.Propagate((jd - s.jd) * minutesPerDay)
}

func (s *State) propagateNear(tsince float64) (StateVector, error) {
	xmdf := s.xmo + s.xmdot*tsince
	omgadf := s.omegao + s.omgdot*tsince
	xnoddf := s.xnodeo + s.xnodot*tsince
	tsq := tsince * tsince
	xnode := xnoddf + s.xnodcf*tsq

	omega := omgadf
	xmp := xmdf
	tempa := 1.0 - s.c1*tsince
	tempe := s.bstar * s.c4 * tsince
	templ := s.t2cof * tsq
	if !s.simple {
		delomg := s.omgcof * tsince
		delm := 0.0
		if s.eta != 0 {
			delm = s.xmcof * (math.Pow(1.0+s.eta*math.Cos(xmdf), 3) - s.delmo)
		}
		temp := delomg + delm
		xmp += temp
		omega -= temp
		tcube := tsq * tsince
		tfour := tsince * tcube
		tempa -= s.d2*tsq + s.d3*tcube + s.d4*tfour
		tempe += s.bstar * s.c5 * (math.Sin(xmp) - s.sinmo)
		templ += s.t3cof*tcube + s.t4cof*tfour + tsince*tfour*s.t5cof
	}

	a := s.aodp * tempa * tempa
	if a <= 0 {
		return StateVector{}, s.decayed(tsince, ReasonSemiMajorAxis, a)
	}
	e := s.eo - tempe
	if e >= 1.0 || e < -0.001 {
		return StateVector{}, s.decayed(tsince, ReasonEccentricity, e)
	}
	// Keep the iteration away from the parabolic and circular edges.
	if e < 1.0e-6 {
		e = 1.0e-6
	}
	xl := xmp + omega + xnode + s.xnodp*templ
	xn := s.c.Xke / math.Pow(a, 1.5)

	return s.finish(tsince, a, e, xn, omega, xl, xnode, s.xincl, s.cosio, s.sinio)
}

func (s *State) propagateDeep(tsince float64) (StateVector, error) {
	d := s.deep
	xmdf := s.xmo + s.xmdot*tsince
	omgadf := s.omegao + s.omgdot*tsince
	xnoddf := s.xnodeo + s.xnodot*tsince
	tsq := tsince * tsince
	xnode := xnoddf + s.xnodcf*tsq

	tempa := 1.0 - s.c1*tsince
	tempe := s.bstar * s.c4 * tsince
	templ := s.t2cof * tsq

	xll := xmdf + s.xnodp*templ
	em := s.eo
	xinc := s.xincl
	xn := s.xnodp
	xll, omgadf, xnode, em, xinc, xn = d.secular(tsince, xll, omgadf, xnode, em, xinc, xn)

	a := math.Pow(s.c.Xke/xn, 2.0/3.0) * tempa * tempa
	if a <= 0 {
		return StateVector{}, s.decayed(tsince, ReasonSemiMajorAxis, a)
	}
	em -= tempe
	if em >= 1.0 || em < -0.001 {
		return StateVector{}, s.decayed(tsince, ReasonEccentricity, em)
	}
	if em < 1.0e-6 {
		em = 1.0e-6
	}

	// Lunisolar periodics, with the Lyddane modification below 11.46
	// degrees of inclination.
	pe, pinc, pl, pgh, ph := d.periodics(tsince)
	sinis := math.Sin(xinc)
	cosis := math.Cos(xinc)
	xinc += pinc
	em += pe
	if em >= 1.0 || em < 0 {
		return StateVector{}, s.decayed(tsince, ReasonEccentricity, em)
	}
	if d.xqncl >= 0.2 {
		ph /= d.sinio
		pgh -= d.cosio * ph
		omgadf += pgh
		xnode += ph
		xll += pl
	} else {
		sinok := math.Sin(xnode)
		cosok := math.Cos(xnode)
		alfdp := sinis*sinok + ph*cosok + pinc*cosis*sinok
		betdp := sinis*cosok - ph*sinok + pinc*cosis*cosok
		xnode = mod2pi(xnode)
		xls := xll + omgadf + cosis*xnode + pl + pgh - pinc*xnode*sinis
		xnoh := xnode
		xnode = math.Atan2(alfdp, betdp)
		// Keep the node on the same branch across the atan2 cut.
		if math.Abs(xnoh-xnode) > math.Pi {
			if xnode < xnoh {
				xnode += twoPi
			} else {
				xnode -= twoPi
			}
		}
		xll += pl
		omgadf = xls - xll - math.Cos(xinc)*xnode
	}

	xl := xll + omgadf + xnode
	xn = s.c.Xke / math.Pow(a, 1.5)

	return s.finish(tsince, a, em, xn, omgadf, xl, xnode, xinc, math.Cos(xinc), math.Sin(xinc))
}

// finish runs the common tail of both branches: long-period periodics,
// Kepler's equation, short-period periodics, and the rotation into TEME.
func (s *State) finish(tsince, a, e, xn, omega, xl, xnode, xinc, cosio, sinio float64) (StateVector, error) {
	beta := math.Sqrt(1.0 - e*e)

	// The inclination factors follow the (possibly perturbed) inclination
	// handed in, not the epoch value.
	theta2 := cosio * cosio
	x3thm1 := 3.0*theta2 - 1.0
	x1mth2 := 1.0 - theta2
	x7thm1 := 7.0*theta2 - 1.0

	// long-period periodics
	axn := e * math.Cos(omega)
	temp := 1.0 / (a * beta * beta)
	xll := temp * s.xlcof * axn
	aynl := temp * s.aycof
	xlt := xl + xll
	ayn := e*math.Sin(omega) + aynl

	capu := mod2pi(xlt - xnode)
	_, sinepw, cosepw, ecose, esine, converged := solveKeplerUV(axn, ayn, capu)

	elsq := axn*axn + ayn*ayn
	if elsq >= 1.0 {
		return StateVector{}, s.decayed(tsince, ReasonEccentricity, math.Sqrt(elsq))
	}

	// short-period periodics
	temp = 1.0 - elsq
	pl := a * temp
	if pl < 0 {
		return StateVector{}, s.decayed(tsince, ReasonSemiLatusRectum, pl)
	}
	r := a * (1.0 - ecose)
	temp1 := 1.0 / r
	rdot := s.c.Xke * math.Sqrt(a) * esine * temp1
	rfdot := s.c.Xke * math.Sqrt(pl) * temp1
	temp2 := a * temp1
	betal := math.Sqrt(temp)
	temp3 := 1.0 / (1.0 + betal)
	cosu := temp2 * (cosepw - axn + ayn*esine*temp3)
	sinu := temp2 * (sinepw - ayn - axn*esine*temp3)
	u := math.Atan2(sinu, cosu)
	sin2u := 2.0 * sinu * cosu
	cos2u := 2.0*cosu*cosu - 1.0
	temp = 1.0 / pl
	temp1 = s.d.ck2 * temp
	temp2 = temp1 * temp

	rk := r*(1.0-1.5*temp2*betal*x3thm1) + 0.5*temp1*x1mth2*cos2u
	if rk < 1.0 {
		return StateVector{}, s.decayed(tsince, ReasonPerigeeBelowSurface, (rk-1.0)*s.c.RadiusKm)
	}
	uk := u - 0.25*temp2*x7thm1*sin2u
	xnodek := xnode + 1.5*temp2*cosio*sin2u
	xinck := xinc + 1.5*temp2*cosio*sinio*cos2u
	rdotk := rdot - xn*temp1*x1mth2*sin2u
	rfdotk := rfdot + xn*temp1*(x1mth2*cos2u+1.5*x3thm1)

	// orientation vectors
	sinuk := math.Sin(uk)
	cosuk := math.Cos(uk)
	sinik := math.Sin(xinck)
	cosik := math.Cos(xinck)
	sinnok := math.Sin(xnodek)
	cosnok := math.Cos(xnodek)
	xmx := -sinnok * cosik
	xmy := cosnok * cosik
	ux := xmx*sinuk + cosnok*cosuk
	uy := xmy*sinuk + sinnok*cosuk
	uz := sinik * sinuk
	vx := xmx*cosuk - cosnok*sinuk
	vy := xmy*cosuk - sinnok*sinuk
	vz := sinik * cosuk

	// earth radii and radii/min to km and km/s
	re := s.c.RadiusKm
	vcoef := re / 60.0
	return StateVector{
		Position: [3]float64{
			rk * ux * re,
			rk * uy * re,
			rk * uz * re,
		},
		Velocity: [3]float64{
			(rdotk*ux + rfdotk*vx) * vcoef,
			(rdotk*uy + rfdotk*vy) * vcoef,
			(rdotk*uz + rfdotk*vz) * vcoef,
		},
		KeplerConverged: converged,
	}, nil
}

func (s *State) decayed(tsince float64, reason DecayReason, value float64) error {
	return &DecayedError{
		SatelliteNumber: s.el.SatelliteNumber,
		Tsince:          tsince,
		Reason:          reason,
		Value:           value,
	}
}
