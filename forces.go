package opal

import (
	"math"
	"strings"
	"time"

	"github.com/soniakeys/meeus/julian"
)

const (
	// lightSpeed is the speed of light in km/s.
	lightSpeed = 299792.458
	// solarPressure is the solar radiation pressure at one AU in N/m^2.
	solarPressure = 4.56e-6
)

// DragModel defines the closed set of supported atmospheric drag models.
type DragModel uint8

const (
	// DragNone disables drag: the term contributes exactly zero.
	DragNone DragModel = iota + 1
	// DragExponential uses the piecewise exponential atmosphere.
	DragExponential
)

func (d DragModel) String() string {
	switch d {
	case DragNone:
		return "None"
	case DragExponential:
		return "Exponential"
	}
	panic("cannot stringify unknown drag model")
}

// DragModelFromString returns the drag model from its scenario name.
func DragModelFromString(name string) (DragModel, error) {
	switch strings.ToLower(name) {
	case "none":
		return DragNone, nil
	case "exponential":
		return DragExponential, nil
	default:
		return DragModel(0), NewConfigError("forces.drag", "undefined drag model '%s'", name)
	}
}

// ForceModel sums the configured physical effects into an acceleration. It is
// read only during integration: all file loading and ephemeris loading happens
// at Validate time, never per step.
type ForceModel struct {
	Central    CelestialObject
	Gravity    *GravityField     // nil: point mass only
	Bodies     []CelestialObject // perturbing third bodies
	Drag       DragModel
	SRP        bool
	Relativity bool
}

// Validate checks the force model consistency and loads whatever ephemerides
// the configured terms will need. Any failure is a ConfigError.
func (f *ForceModel) Validate() error {
	if f.Drag == DragModel(0) {
		f.Drag = DragNone
	}
	if f.Drag == DragExponential && !f.Central.Equals(Earth) {
		return NewConfigError("forces.drag", "exponential atmosphere is only defined about Earth, not %s", f.Central.Name)
	}
	if f.Gravity != nil {
		if f.Gravity.GM == 0 || f.Gravity.Radius == 0 {
			return NewConfigError("forces.gravityfield", "potential file carries no GM or radius")
		}
		// The potential file must describe the central body.
		if math.Abs(f.Gravity.Radius-f.Central.Radius)/f.Central.Radius > 0.01 {
			return NewConfigError("forces.gravityfield", "potential file %s does not match central body %s", f.Gravity.Name, f.Central.Name)
		}
	}
	for i := range f.Bodies {
		if f.Bodies[i].Equals(f.Central) {
			return NewConfigError("forces.thirdbodies", "%s is already the central body", f.Bodies[i].Name)
		}
		if err := f.Bodies[i].loadEphemeris(); err != nil {
			return err
		}
	}
	if len(f.Bodies) > 0 && !f.Central.Equals(Sun) {
		if err := f.Central.loadEphemeris(); err != nil {
			return err
		}
	}
	if f.SRP && !f.Central.Equals(Earth) && !f.Central.Equals(Sun) {
		if err := f.Central.loadEphemeris(); err != nil {
			return err
		}
	}
	return nil
}

// Acceleration returns the total acceleration in km/s^2 acting on the
// spacecraft at the given epoch, inertial position R (km) and velocity V
// (km/s). It is a pure function of its inputs and the configuration: terms
// switched off contribute exactly zero.
func (f ForceModel) Acceleration(dt time.Time, R, V []float64, sc *Spacecraft) []float64 {
	acc := make([]float64, 3)
	r := norm(R)
	// Central body point mass.
	bodyAcc := -f.Central.μ / (r * r * r)
	for i := 0; i < 3; i++ {
		acc[i] = bodyAcc * R[i]
	}
	if f.Gravity != nil {
		for i, a := range f.Gravity.Acceleration(dt, R) {
			acc[i] += a
		}
	}
	if len(f.Bodies) > 0 {
		for _, body := range f.Bodies {
			for i, a := range f.thirdBody(body, dt, R) {
				acc[i] += a
			}
		}
	}
	if f.Drag == DragExponential {
		for i, a := range f.dragAccel(R, V, sc) {
			acc[i] += a
		}
	}
	if f.SRP {
		for i, a := range f.srpAccel(dt, R, sc) {
			acc[i] += a
		}
	}
	if f.Relativity {
		for i, a := range f.relativisticAccel(R, V) {
			acc[i] += a
		}
	}
	return acc
}

// thirdBody returns the differential point mass acceleration of a perturbing
// body: the pull on the spacecraft minus the pull on the central body.
func (f ForceModel) thirdBody(body CelestialObject, dt time.Time, R []float64) []float64 {
	// Positions relative to the central body.
	var bodyR []float64
	if f.Central.Equals(Sun) {
		bodyR = body.HelioOrbit(dt).R()
	} else {
		mainR := f.Central.HelioOrbit(dt).R()
		if body.Equals(Sun) {
			bodyR = []float64{-mainR[0], -mainR[1], -mainR[2]}
		} else {
			pertR := body.HelioOrbit(dt).R()
			bodyR = []float64{pertR[0] - mainR[0], pertR[1] - mainR[1], pertR[2] - mainR[2]}
		}
	}
	scToBody := make([]float64, 3)
	for i := 0; i < 3; i++ {
		scToBody[i] = bodyR[i] - R[i]
	}
	bodyRNorm3 := math.Pow(norm(bodyR), 3)
	scToBodyNorm3 := math.Pow(norm(scToBody), 3)
	pert := make([]float64, 3)
	for i := 0; i < 3; i++ {
		pert[i] = body.μ * (scToBody[i]/scToBodyNorm3 - bodyR[i]/bodyRNorm3)
	}
	return pert
}

// dragAccel returns the atmospheric drag acceleration with the atmosphere
// co-rotating with the body: a = -1/2 ρ Cd A/m |v_rel| v_rel.
func (f ForceModel) dragAccel(R, V []float64, sc *Spacecraft) []float64 {
	ρ := atmDensity(norm(R) - f.Central.Radius) // kg/m^3
	// Velocity relative to the rotating atmosphere, in km/s.
	ω := []float64{0, 0, EarthRotationRate}
	ωxR := cross(ω, R)
	vRel := make([]float64, 3)
	for i := 0; i < 3; i++ {
		vRel[i] = V[i] - ωxR[i]
	}
	vRelNorm := norm(vRel)
	// SI gives m/s^2 with v in m/s; the km factors collapse to one factor of 1e3.
	factor := -0.5 * ρ * sc.Cd * sc.DragArea / sc.Mass() * vRelNorm * 1e3
	drag := make([]float64, 3)
	for i := 0; i < 3; i++ {
		drag[i] = factor * vRel[i]
	}
	return drag
}

// srpAccel returns the solar radiation pressure acceleration with a
// cylindrical shadow model.
func (f ForceModel) srpAccel(dt time.Time, R []float64, sc *Spacecraft) []float64 {
	sunR := f.sunVector(dt) // position of the Sun relative to the central body, km
	sunToSC := make([]float64, 3)
	for i := 0; i < 3; i++ {
		sunToSC[i] = R[i] - sunR[i]
	}
	if !f.Central.Equals(Sun) && inCylindricalShadow(R, sunR, f.Central.Radius) {
		return []float64{0, 0, 0}
	}
	dist := norm(sunToSC)
	// P_AU (AU/r)^2 Cr A/m gives m/s^2, so divide by 1e3 for km/s^2.
	factor := solarPressure * math.Pow(AU/dist, 2) * sc.Cr * sc.SRPArea / sc.Mass() / 1e3
	srp := make([]float64, 3)
	for i := 0; i < 3; i++ {
		srp[i] = factor * sunToSC[i] / dist
	}
	return srp
}

// relativisticAccel returns the Schwarzschild relativistic correction
// (IERS 2010 conventions, Earth terms only).
func (f ForceModel) relativisticAccel(R, V []float64) []float64 {
	r := norm(R)
	v2 := dot(V, V)
	rv := dot(R, V)
	factor := f.Central.μ / (lightSpeed * lightSpeed * r * r * r)
	rel := make([]float64, 3)
	for i := 0; i < 3; i++ {
		rel[i] = factor * ((4*f.Central.μ/r-v2)*R[i] + 4*rv*V[i])
	}
	return rel
}

// sunVector returns the position of the Sun relative to the central body. For
// a heliocentric propagation it is the origin itself. About Earth the low
// precision analytic ephemeris of Vallado Alg. 29 is used (no data files);
// about any other planet the VSOP87 heliocentric position is negated.
func (f ForceModel) sunVector(dt time.Time) []float64 {
	if f.Central.Equals(Sun) {
		return []float64{0, 0, 0}
	}
	if f.Central.Equals(Earth) {
		return earthSunVector(dt)
	}
	R := f.Central.HelioOrbit(dt).R()
	return []float64{-R[0], -R[1], -R[2]}
}

// earthSunVector implements Vallado Alg. 29 (geocentric equatorial, km).
func earthSunVector(dt time.Time) []float64 {
	tUT1 := (julian.TimeToJD(dt.UTC()) - j2000JD) / 36525.0
	λM := Deg2rad(math.Mod(280.460+36000.771*tUT1, 360))
	m := Deg2rad(math.Mod(357.5291092+35999.05034*tUT1, 360))
	λecl := λM + Deg2rad(1.914666471)*math.Sin(m) + Deg2rad(0.019994643)*math.Sin(2*m)
	rAU := 1.000140612 - 0.016708617*math.Cos(m) - 0.000139589*math.Cos(2*m)
	ε := Deg2rad(23.439291 - 0.0130042*tUT1)
	sλ, cλ := math.Sincos(λecl)
	sε, cε := math.Sincos(ε)
	r := rAU * AU
	return []float64{r * cλ, r * cε * sλ, r * sε * sλ}
}

// inCylindricalShadow returns whether the spacecraft at R is inside the
// cylinder of radius bodyRadius cast behind the body away from the Sun at sunR.
func inCylindricalShadow(R, sunR []float64, bodyRadius float64) bool {
	sunDir := unit(sunR)
	along := dot(R, sunDir)
	if along >= 0 {
		return false // on the day side
	}
	perp2 := dot(R, R) - along*along
	return perp2 < bodyRadius*bodyRadius
}

/* Piecewise exponential atmosphere, Vallado Table 8-4. */

type atmLayer struct {
	baseAlt float64 // km
	ρ0      float64 // kg/m^3
	scale   float64 // km
}

var expAtmosphere = []atmLayer{
	{0, 1.225, 7.249},
	{25, 3.899e-2, 6.349},
	{30, 1.774e-2, 6.682},
	{40, 3.972e-3, 7.554},
	{50, 1.057e-3, 8.382},
	{60, 3.206e-4, 7.714},
	{70, 8.770e-5, 6.549},
	{80, 1.905e-5, 5.799},
	{90, 3.396e-6, 5.382},
	{100, 5.297e-7, 5.877},
	{110, 9.661e-8, 7.263},
	{120, 2.438e-8, 9.473},
	{130, 8.484e-9, 12.636},
	{140, 3.845e-9, 16.149},
	{150, 2.070e-9, 22.523},
	{180, 5.464e-10, 29.740},
	{200, 2.789e-10, 37.105},
	{250, 7.248e-11, 45.546},
	{300, 2.418e-11, 53.628},
	{350, 9.518e-12, 53.298},
	{400, 3.725e-12, 58.515},
	{450, 1.585e-12, 60.828},
	{500, 6.967e-13, 63.822},
	{600, 1.454e-13, 71.835},
	{700, 3.614e-14, 88.667},
	{800, 1.170e-14, 124.64},
	{900, 5.245e-15, 181.05},
	{1000, 3.019e-15, 268.00},
}

// atmDensity returns the atmospheric density in kg/m^3 at the given altitude
// in km. Altitudes below the table are clamped to sea level; above 1000 km the
// last layer extrapolates.
func atmDensity(alt float64) float64 {
	if alt < 0 {
		alt = 0
	}
	layer := expAtmosphere[0]
	for _, l := range expAtmosphere {
		if alt < l.baseAlt {
			break
		}
		layer = l
	}
	return layer.ρ0 * math.Exp(-(alt-layer.baseAlt)/layer.scale)
}
