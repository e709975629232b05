package opal

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/soniakeys/meeus/julian"
	"github.com/soniakeys/meeus/planetposition"
	"github.com/soniakeys/meeus/pluto"
)

const (
	// AU is one astronomical unit in kilometers.
	AU = 1.49597870700e8
)

// CelestialObject defines a celestial object which may act as the central or a
// perturbing body of a propagation.
type CelestialObject struct {
	Name   string
	Radius float64 // km
	a      float64 // semi major axis of the heliocentric orbit, km
	μ      float64 // gravitational parameter, km^3/s^2
	SOI    float64 // sphere of influence with respect to the Sun, km
	J2     float64
	J3     float64
	J4     float64
	PP     *planetposition.V87Planet
}

// GM returns μ (which is unexported because it's a lowercase letter).
func (c CelestialObject) GM() float64 {
	return c.μ
}

// J returns the zonal J_n factor for the provided n. Only J2 through J4 are
// supported.
func (c CelestialObject) J(n uint8) float64 {
	switch n {
	case 2:
		return c.J2
	case 3:
		return c.J3
	case 4:
		return c.J4
	default:
		return 0.0
	}
}

// String implements the Stringer interface.
func (c CelestialObject) String() string {
	return c.Name + " body"
}

// Equals returns whether the provided celestial object is the same.
func (c *CelestialObject) Equals(b CelestialObject) bool {
	return c.Name == b.Name && c.Radius == b.Radius && c.a == b.a && c.μ == b.μ && c.SOI == b.SOI && c.J2 == b.J2
}

// loadEphemeris loads the VSOP87 ephemeris of this planet if it is not already
// loaded. The whole file is loaded at once so the first caller does not pin
// the epoch range for everybody else.
func (c *CelestialObject) loadEphemeris() error {
	if c.Name == "Sun" || c.Name == "Pluto" || c.PP != nil {
		return nil
	}
	var vsopPosition int
	switch c.Name {
	case "Venus":
		vsopPosition = 2
	case "Earth":
		vsopPosition = 3
	case "Mars":
		vsopPosition = 4
	case "Jupiter":
		vsopPosition = 5
	case "Saturn":
		vsopPosition = 6
	default:
		return NewConfigError("thirdbodies", "no ephemeris for object '%s'", c.Name)
	}
	planet, err := planetposition.LoadPlanetPath(vsopPosition-1, opalConfig().VSOP87Dir)
	if err != nil {
		return NewConfigError("thirdbodies", "could not load VSOP87 ephemeris for %s: %s", c.Name, err)
	}
	c.PP = planet
	return nil
}

// HelioOrbit returns the heliocentric position and velocity of this planet at
// a given time in equatorial coordinates. The ephemeris must have been loaded
// beforehand via loadEphemeris (force model construction does this), otherwise
// this panics.
func (c *CelestialObject) HelioOrbit(dt time.Time) Orbit {
	if c.Name == "Sun" {
		// The Sun is at rest at the origin of the heliocentric frame. It must
		// not go through RV2COE, which would divide by r=0.
		null := Orbit{Origin: *c, cachedR: []float64{0, 0, 0}, cachedV: []float64{0, 0, 0}}
		null.computeHash()
		return null
	}
	var l, b, r float64
	if c.Name == "Pluto" {
		// Special case in Sonia Keys' Meeus.
		lp, bp, rp := pluto.Heliocentric(julian.TimeToJD(dt))
		l, b, r = lp.Rad(), bp.Rad(), rp
	} else {
		if c.PP == nil {
			if err := c.loadEphemeris(); err != nil {
				panic(fmt.Errorf("HelioOrbit of %s: %s", c.Name, err))
			}
		}
		lp, bp, rp := c.PP.Position2000(julian.TimeToJD(dt))
		l, b, r = lp.Rad(), bp.Rad(), rp
	}
	r *= AU
	v := math.Sqrt(2*Sun.μ/r - Sun.μ/c.a)
	// Get the Cartesian coordinates from L,B,R.
	R, V := make([]float64, 3), make([]float64, 3)
	sB, cB := math.Sincos(b)
	sL, cL := math.Sincos(l)
	R[0] = r * cB * cL
	R[1] = r * cB * sL
	R[2] = r * sB
	// Let's find the direction of the velocity vector.
	vDir := cross(R, []float64{0, 0, -1})
	for i := 0; i < 3; i++ {
		V[i] = v * vDir[i] / norm(vDir)
	}
	return *NewOrbitFromRV(R, V, Sun)
}

// CelestialObjectFromString returns the object from its name.
func CelestialObjectFromString(name string) (CelestialObject, error) {
	switch strings.ToLower(name) {
	case "sun":
		return Sun, nil
	case "venus":
		return Venus, nil
	case "earth":
		return Earth, nil
	case "mars":
		return Mars, nil
	case "jupiter":
		return Jupiter, nil
	case "saturn":
		return Saturn, nil
	case "pluto":
		return Pluto, nil
	default:
		return CelestialObject{}, NewConfigError("centralbody", "undefined celestial object '%s'", name)
	}
}

/* Definitions */

// Sun is our closest star.
var Sun = CelestialObject{"Sun", 695700, -1, 1.32712440017987e11, -1, 0, 0, 0, nil}

// Venus is poisonous.
var Venus = CelestialObject{"Venus", 6051.8, 108208601, 3.24858599e5, 0.616e6, 0.000027, 0, 0, nil}

// Earth is home.
var Earth = CelestialObject{"Earth", 6378.1363, 149598023, 3.98600433e5, 924645.0, 1082.6269e-6, -2.5324e-6, -1.6204e-6, nil}

// Mars is the vacation place.
var Mars = CelestialObject{"Mars", 3396.19, 227939282.5616, 4.28283100e4, 576000, 1964e-6, 36e-6, -18e-6, nil}

// Jupiter is big.
var Jupiter = CelestialObject{"Jupiter", 71492.0, 778298361, 1.266865361e8, 48.2e6, 0.01475, 0, -0.00058, nil}

// Saturn floats and that's really cool.
var Saturn = CelestialObject{"Saturn", 60268.0, 1429394133, 3.7931208e7, 54.5e6, 0.01645, 0, -0.001, nil}

// Pluto is not a planet and had that down ranking coming.
// WARNING: Pluto SOI is not defined.
var Pluto = CelestialObject{"Pluto", 1151.0, 5915799000, 9.e2, 1, 0, 0, 0, nil}
