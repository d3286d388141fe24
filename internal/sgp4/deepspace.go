package sgp4

import "math"

// Deep-space perturbation constants (Hujsak lineage). zns/znl are the mean
// motions of the sun and moon in radians per minute, zes/zel their orbital
// eccentricities.
const (
	zns  = 1.19459e-5
	c1ss = 2.9864797e-6
	zes  = 0.01675
	znl  = 1.5835218e-4
	c1l  = 4.7968065e-7
	zel  = 0.05490

	zsinis = 0.39785416
	zcosis = 0.91744867
	zsings = -0.98088458
	zcosgs = 0.1945905

	q22 = 1.7891679e-6
	q31 = 2.1460748e-6
	q33 = 2.2123015e-7

	root22 = 1.7891679e-6
	root32 = 3.7393792e-7
	root44 = 7.3636953e-9
	root52 = 1.1428639e-7
	root54 = 2.1765803e-9

	g22 = 5.7686396
	g32 = 0.95240898
	g44 = 1.8014998
	g52 = 1.0508330
	g54 = 4.4108898

	// thdt is the rotation rate of the earth in radians per minute.
	thdt = 4.3752691e-3

	// Resonance integrator step in minutes and the matching second-order
	// Taylor factor step^2/2.
	stepMin   = 720.0
	stepHalf2 = stepMin * stepMin / 2.0
)

// deepSpace holds the time-independent deep-space coefficients for one
// state. Everything here is fixed at initialization; per-call evaluation
// keeps no mutable state, so propagation order cannot affect results.
type deepSpace struct {
	thgr   float64 // Greenwich sidereal angle at epoch
	xnq    float64 // Brouwer mean motion at epoch, rad/min
	xqncl  float64 // inclination at epoch, rad
	omegaq float64 // argument of perigee at epoch, rad
	omgdot float64
	sinio, cosio float64

	zmos, zmol float64 // solar and lunar mean anomalies at epoch

	// combined lunisolar secular rates
	sse, ssi, ssl, ssg, ssh float64

	// solar periodic coefficients
	se2, se3, si2, si3, sl2, sl3, sl4    float64
	sgh2, sgh3, sgh4, sh2, sh3           float64

	// lunar periodic coefficients
	ee2, e3, xi2, xi3, xl2, xl3, xl4     float64
	xgh2, xgh3, xgh4, xh2, xh3           float64

	resonance Resonance

	// half-day resonance coefficients
	d2201, d2211, d3210, d3222 float64
	d4410, d4422               float64
	d5220, d5232, d5421, d5433 float64

	// synchronous resonance coefficients
	del1, del2, del3 float64

	xlamo, xfact float64
}

// lunisolarTerms is one evaluation of the shared third-body expansion, run
// once with solar geometry and once with lunar geometry.
type lunisolarTerms struct {
	se, si, sl, sgh, sh float64

	ee2, e3, xi2, xi3, xl2, xl3, xl4 float64
	xgh2, xgh3, xgh4, xh2, xh3       float64
}

func computeLunisolar(zcosg, zsing, zcosi, zsini, zcosh, zsinh, cc, zn, ze float64,
	eq, eqsq, rteqsq, bsq, siniq, cosiq, sinomo, cosomo, xnoi, xqncl float64) lunisolarTerms {

	a1 := zcosg*zcosh + zsing*zcosi*zsinh
	a3 := -zsing*zcosh + zcosg*zcosi*zsinh
	a7 := -zcosg*zsinh + zsing*zcosi*zcosh
	a8 := zsing * zsini
	a9 := zsing*zsinh + zcosg*zcosi*zcosh
	a10 := zcosg * zsini
	a2 := cosiq*a7 + siniq*a8
	a4 := cosiq*a9 + siniq*a10
	a5 := -siniq*a7 + cosiq*a8
	a6 := -siniq*a9 + cosiq*a10

	x1 := a1*cosomo + a2*sinomo
	x2 := a3*cosomo + a4*sinomo
	x3 := -a1*sinomo + a2*cosomo
	x4 := -a3*sinomo + a4*cosomo
	x5 := a5 * sinomo
	x6 := a6 * sinomo
	x7 := a5 * cosomo
	x8 := a6 * cosomo

	z31 := 12.0*x1*x1 - 3.0*x3*x3
	z32 := 24.0*x1*x2 - 6.0*x3*x4
	z33 := 12.0*x2*x2 - 3.0*x4*x4
	z1 := 3.0*(a1*a1+a2*a2) + z31*eqsq
	z2 := 6.0*(a1*a3+a2*a4) + z32*eqsq
	z3 := 3.0*(a3*a3+a4*a4) + z33*eqsq
	z11 := -6.0*a1*a5 + eqsq*(-24.0*x1*x7-6.0*x3*x5)
	z12 := -6.0*(a1*a6+a3*a5) + eqsq*(-24.0*(x2*x7+x1*x8)-6.0*(x3*x6+x4*x5))
	z13 := -6.0*a3*a6 + eqsq*(-24.0*x2*x8-6.0*x4*x6)
	z21 := 6.0*a2*a5 + eqsq*(24.0*x1*x5-6.0*x3*x7)
	z22 := 6.0*(a4*a5+a2*a6) + eqsq*(24.0*(x2*x5+x1*x6)-6.0*(x4*x7+x3*x8))
	z23 := 6.0*a4*a6 + eqsq*(24.0*x2*x6-6.0*x4*x8)
	z1 = z1 + z1 + bsq*z31
	z2 = z2 + z2 + bsq*z32
	z3 = z3 + z3 + bsq*z33

	s3 := cc * xnoi
	s2 := -0.5 * s3 / rteqsq
	s4 := s3 * rteqsq
	s1 := -15.0 * eq * s4
	s5 := x1*x3 + x2*x4
	s6 := x2*x3 + x1*x4
	s7 := x2*x4 - x1*x3

	t := lunisolarTerms{
		se:  s1 * zn * s5,
		si:  s2 * zn * (z11 + z13),
		sl:  -zn * s3 * (z1 + z3 - 14.0 - 6.0*eqsq),
		sgh: s4 * zn * (z31 + z33 - 6.0),
		sh:  -zn * s2 * (z21 + z23),

		ee2:  2.0 * s1 * s6,
		e3:   2.0 * s1 * s7,
		xi2:  2.0 * s2 * z12,
		xi3:  2.0 * s2 * (z13 - z11),
		xl2:  -2.0 * s3 * z2,
		xl3:  -2.0 * s3 * (z3 - z1),
		xl4:  -2.0 * s3 * (-21.0 - 9.0*eqsq) * ze,
		xgh2: 2.0 * s4 * z32,
		xgh3: 2.0 * s4 * (z33 - z31),
		xgh4: -18.0 * s4 * ze,
		xh2:  -2.0 * s2 * z22,
		xh3:  -2.0 * s2 * (z23 - z21),
	}
	// The node terms blow up for near-equatorial orbits.
	if xqncl < 5.2359877e-2 {
		t.sh = 0.0
	}
	return t
}

// newDeepSpace computes the lunisolar and resonance coefficients for a
// state whose period is in deep-space territory.
func newDeepSpace(s *State) *deepSpace {
	d := &deepSpace{
		xnq:    s.xnodp,
		xqncl:  s.xincl,
		omegaq: s.omegao,
		omgdot: s.omgdot,
		sinio:  s.sinio,
		cosio:  s.cosio,
	}
	d.thgr = mod2pi(6.3003880987*s.ds50 + 1.72944494)

	eq := s.eo
	eqsq := s.eosq
	bsq := s.betao2
	rteqsq := s.betao
	aqnv := 1.0 / s.aodp
	xnoi := 1.0 / s.xnodp
	sinq := math.Sin(s.xnodeo)
	cosq := math.Cos(s.xnodeo)
	sinomo := math.Sin(s.omegao)
	cosomo := math.Cos(s.omegao)

	// Lunar orbit geometry at epoch, measured in days since 1899 Dec 31.5.
	day := s.ds50 + 18261.5
	xnodce := 4.5236020 - 9.2422029e-4*day
	stem := math.Sin(xnodce)
	ctem := math.Cos(xnodce)
	zcosil := 0.91375164 - 0.03568096*ctem
	zsinil := math.Sqrt(1.0 - zcosil*zcosil)
	zsinhl := 0.089683511 * stem / zsinil
	zcoshl := math.Sqrt(1.0 - zsinhl*zsinhl)
	c := 4.7199672 + 0.22997150*day
	gam := 5.8351514 + 0.0019443680*day
	d.zmol = mod2pi(c - gam)
	zx := 0.39785416 * stem / zsinil
	zy := zcoshl*ctem + 0.91744867*zsinhl*stem
	zx = math.Atan2(zx, zy)
	zx = gam + zx - xnodce
	zcosgl := math.Cos(zx)
	zsingl := math.Sin(zx)
	d.zmos = mod2pi(6.2565837 + 0.017201977*day)

	sol := computeLunisolar(zcosgs, zsings, zcosis, zsinis, cosq, sinq,
		c1ss, zns, zes,
		eq, eqsq, rteqsq, bsq, s.sinio, s.cosio, sinomo, cosomo, xnoi, d.xqncl)
	lun := computeLunisolar(zcosgl, zsingl, zcosil, zsinil,
		zcoshl*cosq+zsinhl*sinq, sinq*zcoshl-cosq*zsinhl,
		c1l, znl, zel,
		eq, eqsq, rteqsq, bsq, s.sinio, s.cosio, sinomo, cosomo, xnoi, d.xqncl)

	d.se2, d.se3 = sol.ee2, sol.e3
	d.si2, d.si3 = sol.xi2, sol.xi3
	d.sl2, d.sl3, d.sl4 = sol.xl2, sol.xl3, sol.xl4
	d.sgh2, d.sgh3, d.sgh4 = sol.xgh2, sol.xgh3, sol.xgh4
	d.sh2, d.sh3 = sol.xh2, sol.xh3

	d.ee2, d.e3 = lun.ee2, lun.e3
	d.xi2, d.xi3 = lun.xi2, lun.xi3
	d.xl2, d.xl3, d.xl4 = lun.xl2, lun.xl3, lun.xl4
	d.xgh2, d.xgh3, d.xgh4 = lun.xgh2, lun.xgh3, lun.xgh4
	d.xh2, d.xh3 = lun.xh2, lun.xh3

	d.sse = sol.se + lun.se
	d.ssi = sol.si + lun.si
	d.ssl = sol.sl + lun.sl
	// The sh terms are zeroed for near-equatorial orbits, so the node rate
	// must not divide 0 by sin(0) when the inclination is exactly zero.
	if s.sinio != 0 {
		d.ssh = (sol.sh + lun.sh) / s.sinio
	}
	d.ssg = sol.sgh + lun.sgh - s.cosio*d.ssh

	siniq := s.sinio
	cosiq := s.cosio
	cosq2 := cosiq * cosiq
	xpidot := s.omgdot + s.xnodot

	switch {
	case d.xnq > 0.0034906585 && d.xnq < 0.0052359877:
		// Synchronous resonance, one revolution per sidereal day.
		d.resonance = ResonanceSynchronous
		g200 := 1.0 + eqsq*(-2.5+0.8125*eqsq)
		g310 := 1.0 + 2.0*eqsq
		g300 := 1.0 + eqsq*(-6.0+6.60937*eqsq)
		f220 := 0.75 * (1.0 + cosiq) * (1.0 + cosiq)
		f311 := 0.9375*siniq*siniq*(1.0+3.0*cosiq) - 0.75*(1.0+cosiq)
		f330 := 1.0 + cosiq
		f330 = 1.875 * f330 * f330 * f330
		del1 := 3.0 * d.xnq * d.xnq * aqnv * aqnv
		d.del2 = 2.0 * del1 * f220 * g200 * q22
		d.del3 = 3.0 * del1 * f330 * g300 * q33 * aqnv
		d.del1 = del1 * f311 * g310 * q31 * aqnv
		d.xlamo = s.xmo + s.xnodeo + s.omegao - d.thgr
		bfact := s.xmdot + xpidot - thdt + d.ssl + d.ssg + d.ssh
		d.xfact = bfact - d.xnq

	case d.xnq >= 0.00826 && d.xnq <= 0.00924 && eq >= 0.5:
		// Half-day resonance, the Molniya class.
		d.resonance = ResonanceHalfDay
		eoc := eq * eqsq
		g201 := -0.306 - (eq-0.64)*0.440
		var g211, g310, g322, g410, g422, g520 float64
		if eq <= 0.65 {
			g211 = 3.616 - 13.247*eq + 16.290*eqsq
			g310 = -19.302 + 117.390*eq - 228.419*eqsq + 156.591*eoc
			g322 = -18.9068 + 109.7927*eq - 214.6334*eqsq + 146.5816*eoc
			g410 = -41.122 + 242.694*eq - 471.094*eqsq + 313.953*eoc
			g422 = -146.407 + 841.880*eq - 1629.014*eqsq + 1083.435*eoc
			g520 = -532.114 + 3017.977*eq - 5740.032*eqsq + 3708.276*eoc
		} else {
			g211 = -72.099 + 331.819*eq - 508.738*eqsq + 266.724*eoc
			g310 = -346.844 + 1582.851*eq - 2415.925*eqsq + 1246.113*eoc
			g322 = -342.585 + 1554.908*eq - 2366.899*eqsq + 1215.972*eoc
			g410 = -1052.797 + 4758.686*eq - 7193.992*eqsq + 3651.957*eoc
			g422 = -3581.69 + 16178.11*eq - 24462.77*eqsq + 12422.52*eoc
			if eq > 0.715 {
				g520 = -5149.66 + 29936.92*eq - 54087.36*eqsq + 31324.56*eoc
			} else {
				g520 = 1464.74 - 4664.75*eq + 3763.64*eqsq
			}
		}
		var g533, g521, g532 float64
		if eq < 0.7 {
			g533 = -919.2277 + 4988.61*eq - 9064.77*eqsq + 5542.21*eoc
			g521 = -822.71072 + 4568.6173*eq - 8491.4146*eqsq + 5337.524*eoc
			g532 = -853.666 + 4690.25*eq - 8624.77*eqsq + 5341.4*eoc
		} else {
			g533 = -37995.78 + 161616.52*eq - 229838.2*eqsq + 109377.94*eoc
			g521 = -51752.104 + 218913.95*eq - 309468.16*eqsq + 146349.42*eoc
			g532 = -40023.88 + 170470.89*eq - 242699.48*eqsq + 115605.82*eoc
		}

		sini2 := siniq * siniq
		f220 := 0.75 * (1.0 + 2.0*cosiq + cosq2)
		f221 := 1.5 * sini2
		f321 := 1.875 * siniq * (1.0 - 2.0*cosiq - 3.0*cosq2)
		f322 := -1.875 * siniq * (1.0 + 2.0*cosiq - 3.0*cosq2)
		f441 := 35.0 * sini2 * f220
		f442 := 39.3750 * sini2 * sini2
		f522 := 9.84375 * siniq * (sini2*(1.0-2.0*cosiq-5.0*cosq2) +
			0.33333333*(-2.0+4.0*cosiq+6.0*cosq2))
		f523 := siniq * (4.92187512*sini2*(-2.0-4.0*cosiq+10.0*cosq2) +
			6.56250012*(1.0+2.0*cosiq-3.0*cosq2))
		f542 := 29.53125 * siniq * (2.0 - 8.0*cosiq + cosq2*(-12.0+8.0*cosiq+10.0*cosq2))
		f543 := 29.53125 * siniq * (-2.0 - 8.0*cosiq + cosq2*(12.0+8.0*cosiq-10.0*cosq2))

		xno2 := d.xnq * d.xnq
		ainv2 := aqnv * aqnv
		temp1 := 3.0 * xno2 * ainv2
		temp := temp1 * root22
		d.d2201 = temp * f220 * g201
		d.d2211 = temp * f221 * g211
		temp1 *= aqnv
		temp = temp1 * root32
		d.d3210 = temp * f321 * g310
		d.d3222 = temp * f322 * g322
		temp1 *= aqnv
		temp = 2.0 * temp1 * root44
		d.d4410 = temp * f441 * g410
		d.d4422 = temp * f442 * g422
		temp1 *= aqnv
		temp = temp1 * root52
		d.d5220 = temp * f522 * g520
		d.d5232 = temp * f523 * g532
		temp = 2.0 * temp1 * root54
		d.d5421 = temp * f542 * g521
		d.d5433 = temp * f543 * g533

		d.xlamo = s.xmo + 2.0*s.xnodeo - 2.0*d.thgr
		bfact := s.xmdot + 2.0*s.xnodot - 2.0*thdt + d.ssl + 2.0*d.ssh
		d.xfact = bfact - d.xnq
	}
	return d
}

// dots evaluates the resonance acceleration terms at one integrator node.
func (d *deepSpace) dots(xli, xni, atime float64) (xndot, xnddt, xldot float64) {
	if d.resonance == ResonanceSynchronous {
		const (
			fasx2 = 0.13130908
			fasx4 = 2.8843198
			fasx6 = 0.37448087
		)
		xndot = d.del1*math.Sin(xli-fasx2) +
			d.del2*math.Sin(2.0*(xli-fasx4)) +
			d.del3*math.Sin(3.0*(xli-fasx6))
		xnddt = d.del1*math.Cos(xli-fasx2) +
			2.0*d.del2*math.Cos(2.0*(xli-fasx4)) +
			3.0*d.del3*math.Cos(3.0*(xli-fasx6))
	} else {
		xomi := d.omegaq + d.omgdot*atime
		x2omi := xomi + xomi
		x2li := xli + xli
		xndot = d.d2201*math.Sin(x2omi+xli-g22) +
			d.d2211*math.Sin(xli-g22) +
			d.d3210*math.Sin(xomi+xli-g32) +
			d.d3222*math.Sin(-xomi+xli-g32) +
			d.d4410*math.Sin(x2omi+x2li-g44) +
			d.d4422*math.Sin(x2li-g44) +
			d.d5220*math.Sin(xomi+xli-g52) +
			d.d5232*math.Sin(-xomi+xli-g52) +
			d.d5421*math.Sin(xomi+x2li-g54) +
			d.d5433*math.Sin(-xomi+x2li-g54)
		xnddt = d.d2201*math.Cos(x2omi+xli-g22) +
			d.d2211*math.Cos(xli-g22) +
			d.d3210*math.Cos(xomi+xli-g32) +
			d.d3222*math.Cos(-xomi+xli-g32) +
			d.d5220*math.Cos(xomi+xli-g52) +
			d.d5232*math.Cos(-xomi+xli-g52) +
			2.0*(d.d4410*math.Cos(x2omi+x2li-g44)+
				d.d4422*math.Cos(x2li-g44)+
				d.d5421*math.Cos(xomi+x2li-g54)+
				d.d5433*math.Cos(-xomi+x2li-g54))
	}
	xldot = xni + d.xfact
	xnddt *= xldot
	return
}

// secular applies the lunisolar secular rates and, for resonant orbits,
// integrates the resonance equations forward from epoch to tsince with the
// fixed 720 minute step. The integration always restarts at epoch, so the
// result depends only on tsince.
func (d *deepSpace) secular(tsince float64, xll, omgadf, xnode, em, xinc, xn float64) (float64, float64, float64, float64, float64, float64) {
	xll += d.ssl * tsince
	omgadf += d.ssg * tsince
	xnode += d.ssh * tsince
	em += d.sse * tsince
	xinc += d.ssi * tsince
	if xinc < 0 {
		xinc = -xinc
		xnode += math.Pi
		omgadf -= math.Pi
	}

	if d.resonance == ResonanceNone {
		return xll, omgadf, xnode, em, xinc, xn
	}

	xli := d.xlamo
	xni := d.xnq
	atime := 0.0
	delt := stepMin
	if tsince < 0 {
		delt = -stepMin
	}
	for math.Abs(tsince-atime) >= stepMin {
		xndot, xnddt, xldot := d.dots(xli, xni, atime)
		xli += xldot*delt + xndot*stepHalf2
		xni += xndot*delt + xnddt*stepHalf2
		atime += delt
	}
	xndot, xnddt, xldot := d.dots(xli, xni, atime)
	ft := tsince - atime
	xn = xni + xndot*ft + xnddt*ft*ft*0.5
	xl := xli + xldot*ft + xndot*ft*ft*0.5

	temp := -xnode + d.thgr + tsince*thdt
	if d.resonance == ResonanceSynchronous {
		xll = xl - omgadf + temp
	} else {
		xll = xl + temp + temp
	}
	return xll, omgadf, xnode, em, xinc, xn
}

// periodics evaluates the lunisolar periodic corrections at tsince.
func (d *deepSpace) periodics(tsince float64) (pe, pinc, pl, pgh, ph float64) {
	// solar
	zm := d.zmos + zns*tsince
	zf := zm + 2.0*zes*math.Sin(zm)
	sinzf := math.Sin(zf)
	f2 := 0.5*sinzf*sinzf - 0.25
	f3 := -0.5 * sinzf * math.Cos(zf)
	ses := d.se2*f2 + d.se3*f3
	sis := d.si2*f2 + d.si3*f3
	sls := d.sl2*f2 + d.sl3*f3 + d.sl4*sinzf
	sghs := d.sgh2*f2 + d.sgh3*f3 + d.sgh4*sinzf
	shs := d.sh2*f2 + d.sh3*f3

	// lunar
	zm = d.zmol + znl*tsince
	zf = zm + 2.0*zel*math.Sin(zm)
	sinzf = math.Sin(zf)
	f2 = 0.5*sinzf*sinzf - 0.25
	f3 = -0.5 * sinzf * math.Cos(zf)
	sel := d.ee2*f2 + d.e3*f3
	sil := d.xi2*f2 + d.xi3*f3
	sll := d.xl2*f2 + d.xl3*f3 + d.xl4*sinzf
	sghl := d.xgh2*f2 + d.xgh3*f3 + d.xgh4*sinzf
	shl := d.xh2*f2 + d.xh3*f3

	return ses + sel, sis + sil, sls + sll, sghs + sghl, shs + shl
}
