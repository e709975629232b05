package opal

import (
	"testing"
	"time"

	"github.com/gonum/floats"
)

func TestCelestialObjectFromString(t *testing.T) {
	for _, name := range []string{"Sun", "Venus", "earth", "MARS", "Jupiter", "saturn", "Pluto"} {
		body, err := CelestialObjectFromString(name)
		if err != nil {
			t.Fatalf("%s: %s", name, err)
		}
		if body.Radius <= 0 || body.GM() <= 0 {
			t.Fatalf("%s has no radius or GM", body)
		}
	}
	_, err := CelestialObjectFromString("Vulcan")
	isConfigError(t, err, "unknown body")
}

func TestCelestialJ(t *testing.T) {
	if !floats.EqualWithinAbs(Earth.J(2), 1082.6269e-6, 1e-12) {
		t.Fatalf("Earth J2 = %g", Earth.J(2))
	}
	if Earth.J(3) >= 0 {
		t.Fatal("Earth J3 must be negative")
	}
	if Earth.J(5) != 0 {
		t.Fatal("unsupported zonals must be zero")
	}
}

func TestCelestialEquals(t *testing.T) {
	if !Earth.Equals(Earth) {
		t.Fatal("Earth != Earth")
	}
	if Earth.Equals(Mars) {
		t.Fatal("Earth == Mars")
	}
}

func TestHelioOrbit(t *testing.T) {
	// The Sun is trivially at rest at its own center.
	sunOrbit := Sun.HelioOrbit(time.Now())
	if sunOrbit.RNorm() != 0 {
		t.Fatal("the Sun is not at the origin of the heliocentric frame")
	}
	sunR, sunV := sunOrbit.RV()
	for i := 0; i < 3; i++ {
		if sunR[i] != 0 || sunV[i] != 0 {
			t.Fatal("the Sun must have exactly zero heliocentric position and velocity")
		}
	}
	if opalConfig().VSOP87Dir == "" {
		t.Skip("no VSOP87 directory configured")
	}
	dt := time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)
	helio := Earth.HelioOrbit(dt)
	if !floats.EqualWithinRel(helio.RNorm(), AU, 1e-2) {
		t.Fatalf("Earth is at %f km from the Sun", helio.RNorm())
	}
	if helio.VNorm() < 29 || helio.VNorm() > 31 {
		t.Fatalf("Earth heliocentric velocity is %f km/s", helio.VNorm())
	}
}
