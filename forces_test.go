package opal

import (
	"math"
	"testing"
	"time"

	"github.com/gonum/floats"
)

func testVehicle() *Spacecraft {
	return NewSpacecraft("TestSC", 1000, 2.2, 1.8, 15, 15)
}

// TestForceModelDisabledTerms checks that a point mass only model is bit
// identical to the two body acceleration: disabled terms contribute exactly
// zero, not merely a small number.
func TestForceModelDisabledTerms(t *testing.T) {
	f := ForceModel{Central: Earth}
	if err := f.Validate(); err != nil {
		t.Fatal(err)
	}
	dt := time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)
	R := []float64{6524.834, 6862.875, 6448.296}
	V := []float64{4.901327, 5.533756, -1.976341}
	got := f.Acceleration(dt, R, V, testVehicle())
	r := norm(R)
	for i := 0; i < 3; i++ {
		exp := -Earth.μ / (r * r * r) * R[i]
		if got[i] != exp {
			t.Fatalf("component %d: %+e != %+e", i, got[i], exp)
		}
	}
}

func TestForceModelValidate(t *testing.T) {
	// Drag about anything but Earth is rejected.
	f := ForceModel{Central: Mars, Drag: DragExponential}
	isConfigError(t, f.Validate(), "drag about Mars")
	// A gravity field of the wrong body is rejected.
	moonish := &GravityField{Name: "bogus", GM: 4902.8, Radius: 1738.0}
	f = ForceModel{Central: Earth, Gravity: moonish}
	isConfigError(t, f.Validate(), "gravity field body mismatch")
	// The central body cannot perturb itself.
	f = ForceModel{Central: Earth, Bodies: []CelestialObject{Earth}}
	isConfigError(t, f.Validate(), "central body as third body")
	// An unset drag model defaults to none.
	f = ForceModel{Central: Earth}
	if err := f.Validate(); err != nil {
		t.Fatal(err)
	}
	if f.Drag != DragNone {
		t.Fatal("drag did not default to none")
	}
}

func TestDragModelFromString(t *testing.T) {
	if d, err := DragModelFromString("None"); err != nil || d != DragNone {
		t.Fatal("DragModelFromString(None)")
	}
	if d, err := DragModelFromString("exponential"); err != nil || d != DragExponential {
		t.Fatal("DragModelFromString(exponential)")
	}
	_, err := DragModelFromString("thermospheric")
	isConfigError(t, err, "unsupported drag model")
}

func TestAtmDensity(t *testing.T) {
	// Vallado table 8-4 base values.
	if !floats.EqualWithinRel(atmDensity(0), 1.225, 1e-6) {
		t.Fatalf("sea level density %e", atmDensity(0))
	}
	if !floats.EqualWithinRel(atmDensity(500), 6.967e-13, 1e-6) {
		t.Fatalf("500 km density %e", atmDensity(500))
	}
	// Below the table clamps to sea level.
	if atmDensity(-10) != atmDensity(0) {
		t.Fatal("negative altitudes must clamp to sea level")
	}
	// Monotonic decay through the layer boundaries.
	prev := atmDensity(0)
	for alt := 10.0; alt <= 1200; alt += 10 {
		ρ := atmDensity(alt)
		if ρ >= prev {
			t.Fatalf("density not decaying at %f km", alt)
		}
		prev = ρ
	}
}

func TestDragAccel(t *testing.T) {
	f := ForceModel{Central: Earth, Drag: DragExponential}
	if err := f.Validate(); err != nil {
		t.Fatal(err)
	}
	// Circular LEO at 300 km altitude.
	o := NewOrbitFromOE(Earth.Radius+300, 0.0001, 45, 0, 0, 0, Earth)
	R, V := o.RV()
	drag := f.dragAccel(R, V, testVehicle())
	// Drag opposes the velocity relative to the rotating atmosphere.
	ωxR := cross([]float64{0, 0, EarthRotationRate}, R)
	vRel := []float64{V[0] - ωxR[0], V[1] - ωxR[1], V[2] - ωxR[2]}
	if dot(drag, vRel) >= 0 {
		t.Fatal("drag must oppose the relative velocity")
	}
	// At 300 km with A/m = 0.015 m^2/kg this is around 1e-9 km/s^2.
	if norm(drag) < 1e-11 || norm(drag) > 1e-7 {
		t.Fatalf("drag magnitude %e km/s^2 out of range", norm(drag))
	}
}

func TestSRPAccel(t *testing.T) {
	f := ForceModel{Central: Earth, SRP: true}
	if err := f.Validate(); err != nil {
		t.Fatal(err)
	}
	dt := time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)
	sunR := f.sunVector(dt)
	if !floats.EqualWithinRel(norm(sunR), AU, 2e-2) {
		t.Fatalf("Earth-Sun distance %e km", norm(sunR))
	}
	// Spacecraft on the day side: pushed away from the Sun.
	dayR := unit(sunR)
	for i := 0; i < 3; i++ {
		dayR[i] *= 7000
	}
	srp := f.srpAccel(dt, dayR, testVehicle())
	if dot(srp, sunR) >= 0 {
		t.Fatal("SRP must push away from the Sun")
	}
	// A/m = 0.015 m^2/kg gives a few 1e-11 km/s^2.
	if norm(srp) < 1e-13 || norm(srp) > 1e-9 {
		t.Fatalf("SRP magnitude %e km/s^2 out of range", norm(srp))
	}
	// Spacecraft in the shadow cylinder: exactly zero.
	nightR := []float64{-dayR[0], -dayR[1], -dayR[2]}
	shadowed := f.srpAccel(dt, nightR, testVehicle())
	if norm(shadowed) != 0 {
		t.Fatal("SRP must vanish in the shadow")
	}
}

// TestSRPHeliocentric checks SRP about the Sun itself: the Sun sits at the
// origin of its own frame, so the pressure pushes radially outward and a
// derivative evaluation must come out clean.
func TestSRPHeliocentric(t *testing.T) {
	f := ForceModel{Central: Sun, SRP: true}
	if err := f.Validate(); err != nil {
		t.Fatal(err)
	}
	dt := time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)
	R := []float64{AU, 0, 0}
	srp := f.srpAccel(dt, R, testVehicle())
	if dot(srp, R) <= 0 {
		t.Fatal("SRP must push away from the Sun")
	}
	// At 1 AU the full flux applies: P Cr A/m, in km/s^2.
	exp := solarPressure * 1.8 * 15.0 / 1000.0 / 1e3
	if !floats.EqualWithinRel(norm(srp), exp, 1e-12) {
		t.Fatalf("SRP magnitude %e km/s^2", norm(srp))
	}
	acc := f.Acceleration(dt, R, []float64{0, 29.78, 0}, testVehicle())
	for i := 0; i < 3; i++ {
		if math.IsNaN(acc[i]) {
			t.Fatalf("acceleration component %d is NaN", i)
		}
	}
}

func TestInCylindricalShadow(t *testing.T) {
	sunR := []float64{AU, 0, 0}
	if inCylindricalShadow([]float64{7000, 0, 0}, sunR, Earth.Radius) {
		t.Fatal("day side is not in shadow")
	}
	if !inCylindricalShadow([]float64{-7000, 0, 0}, sunR, Earth.Radius) {
		t.Fatal("anti solar point is in shadow")
	}
	if inCylindricalShadow([]float64{-7000, 2*Earth.Radius, 0}, sunR, Earth.Radius) {
		t.Fatal("outside the cylinder is not in shadow")
	}
}

func TestRelativisticAccel(t *testing.T) {
	f := ForceModel{Central: Earth, Relativity: true}
	if err := f.Validate(); err != nil {
		t.Fatal(err)
	}
	o := NewOrbitFromOE(7000, 0.001, 45, 0, 0, 0, Earth)
	R, V := o.RV()
	rel := f.relativisticAccel(R, V)
	newton := Earth.μ / math.Pow(norm(R), 2)
	// The Schwarzschild term is roughly v^2/c^2 of the Newtonian pull.
	ratio := norm(rel) / newton
	if ratio < 1e-11 || ratio > 1e-8 {
		t.Fatalf("relativistic correction ratio %e out of range", ratio)
	}
}

func TestEarthSunVectorSeasons(t *testing.T) {
	// Around the June solstice the Sun sits at its highest declination: the z
	// component of the Earth->Sun vector peaks.
	june := earthSunVector(time.Date(2000, 6, 21, 12, 0, 0, 0, time.UTC))
	dec := time.Date(2000, 12, 21, 12, 0, 0, 0, time.UTC)
	decR := earthSunVector(dec)
	if june[2] <= 0 || decR[2] >= 0 {
		t.Fatal("solstice declinations have the wrong signs")
	}
	sinDecl := june[2] / norm(june)
	if !floats.EqualWithinAbs(sinDecl, math.Sin(Deg2rad(23.44)), 1e-2) {
		t.Fatalf("June solstice declination sine %f", sinDecl)
	}
}
