package opal

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gonum/floats"
)

const testPotentialFile = "testdata/egm96_4x4.cof"

func TestLoadGravityField(t *testing.T) {
	field, err := LoadGravityField(testPotentialFile, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	if field.Name != "EGM96" {
		t.Fatalf("field name: %s", field.Name)
	}
	if !floats.EqualWithinAbs(field.GM, 398600.4415, 1e-6) {
		t.Fatalf("GM = %f", field.GM)
	}
	if !floats.EqualWithinAbs(field.Radius, 6378.1363, 1e-6) {
		t.Fatalf("radius = %f", field.Radius)
	}
	// The unnormalized C20 must yield the well known J2.
	if !floats.EqualWithinAbs(field.J(2), 1082.63e-6, 1e-8) {
		t.Fatalf("J2 = %g", field.J(2))
	}
	// Truncation to 2x0 zeroes the tesserals.
	zonal, err := LoadGravityField(testPotentialFile, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if zonal.C[2][2] != 0 || zonal.S[2][2] != 0 {
		t.Fatal("tesseral coefficients must be dropped by the truncation")
	}
	if !floats.EqualWithinAbs(zonal.J(2), field.J(2), 1e-15) {
		t.Fatal("truncation changed J2")
	}
}

func TestLoadGravityFieldErrors(t *testing.T) {
	_, err := LoadGravityField(testPotentialFile, 1, 0)
	isConfigError(t, err, "degree below 2")
	_, err = LoadGravityField(testPotentialFile, 2, 3)
	isConfigError(t, err, "order above degree")
	_, err = LoadGravityField("testdata/no-such-file.cof", 2, 2)
	isConfigError(t, err, "missing file")
	_, err = LoadGravityField(testPotentialFile, 5, 5)
	isConfigError(t, err, "degree above the file maximum")

	malformed := filepath.Join(t.TempDir(), "bad.cof")
	if err := os.WriteFile(malformed, []byte("EGM96 398600.4415 6378.1363\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err = LoadGravityField(malformed, 2, 2)
	isConfigError(t, err, "short header")
}

func TestUnnormFactor(t *testing.T) {
	if !floats.EqualWithinAbs(unnormFactor(2, 0), math.Sqrt(5), 1e-14) {
		t.Fatalf("Π(2,0) = %f", unnormFactor(2, 0))
	}
	if !floats.EqualWithinAbs(unnormFactor(2, 2), math.Sqrt(10.0/24.0), 1e-14) {
		t.Fatalf("Π(2,2) = %f", unnormFactor(2, 2))
	}
}

// TestGravityJ2ClosedForm cross checks the harmonic evaluation truncated to the
// zonal C20 against the closed form J2 acceleration. The J2 term is invariant
// under the GMST rotation, so the two must agree at any epoch.
func TestGravityJ2ClosedForm(t *testing.T) {
	field := GravityField{Name: "J2only", GM: Earth.μ, Radius: Earth.Radius, Degree: 2, Order: 0}
	field.C = make([][]float64, 3)
	field.S = make([][]float64, 3)
	for n := range field.C {
		field.C[n] = make([]float64, 3)
		field.S[n] = make([]float64, 3)
	}
	field.C[2][0] = -Earth.J2

	dt := time.Date(2015, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, R := range [][]float64{
		{7000, 100, 200},
		{4000, 4000, 3000},
		{-5000, 2000, -4500},
	} {
		got := field.Acceleration(dt, R)
		r := norm(R)
		accJ2 := 1.5 * Earth.J2 * Earth.μ * math.Pow(Earth.Radius, 2)
		z2 := R[2] * R[2]
		exp := []float64{
			accJ2 * (5*R[0]*z2/math.Pow(r, 7) - R[0]/math.Pow(r, 5)),
			accJ2 * (5*R[1]*z2/math.Pow(r, 7) - R[1]/math.Pow(r, 5)),
			accJ2 * (5*R[2]*z2/math.Pow(r, 7) - 3*R[2]/math.Pow(r, 5)),
		}
		for i := 0; i < 3; i++ {
			if !floats.EqualWithinAbs(got[i], exp[i], 1e-12) {
				t.Fatalf("R=%+v: component %d: %+e != %+e", R, i, got[i], exp[i])
			}
		}
	}
}

// TestGravityPolarAxis evaluates the field exactly over the poles, where the
// body fixed longitude is undefined: the result must stay finite and match
// the closed form J2 acceleration on the axis.
func TestGravityPolarAxis(t *testing.T) {
	field := GravityField{Name: "J2only", GM: Earth.μ, Radius: Earth.Radius, Degree: 2, Order: 0}
	field.C = make([][]float64, 3)
	field.S = make([][]float64, 3)
	for n := range field.C {
		field.C[n] = make([]float64, 3)
		field.S[n] = make([]float64, 3)
	}
	field.C[2][0] = -Earth.J2

	dt := time.Date(2015, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, R := range [][]float64{{0, 0, 7000}, {0, 0, -7000}} {
		got := field.Acceleration(dt, R)
		r := norm(R)
		accJ2 := 1.5 * Earth.J2 * Earth.μ * math.Pow(Earth.Radius, 2)
		expZ := accJ2 * (5*math.Pow(R[2], 3)/math.Pow(r, 7) - 3*R[2]/math.Pow(r, 5))
		for i := 0; i < 3; i++ {
			if math.IsNaN(got[i]) || math.IsInf(got[i], 0) {
				t.Fatalf("R=%+v: component %d is not finite: %e", R, i, got[i])
			}
		}
		if !floats.EqualWithinAbs(got[0], 0, 1e-11) || !floats.EqualWithinAbs(got[1], 0, 1e-11) {
			t.Fatalf("R=%+v: off axis components %+e %+e", R, got[0], got[1])
		}
		if !floats.EqualWithinAbs(got[2], expZ, 1e-11) {
			t.Fatalf("R=%+v: axial component %+e != %+e", R, got[2], expZ)
		}
	}

	full, err := LoadGravityField(testPotentialFile, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	for i, a := range full.Acceleration(dt, []float64{0, 0, 7000}) {
		if math.IsNaN(a) || math.IsInf(a, 0) {
			t.Fatalf("full field component %d is not finite over the pole: %e", i, a)
		}
	}
}

// TestGravityFullField sanity checks the 4x4 field: the harmonic perturbation
// must stay several orders of magnitude below the point mass term and fall off
// with altitude.
func TestGravityFullField(t *testing.T) {
	field, err := LoadGravityField(testPotentialFile, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	dt := time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)
	leo := field.Acceleration(dt, []float64{6778, 200, 400})
	geo := field.Acceleration(dt, []float64{42164, 100, 50})
	pointMassLEO := Earth.μ / (6778.0 * 6778.0)
	if norm(leo) > 1e-2*pointMassLEO {
		t.Fatalf("harmonic perturbation suspiciously large: %e km/s^2", norm(leo))
	}
	if norm(geo) >= norm(leo) {
		t.Fatal("harmonic perturbation must fall off with altitude")
	}
	if norm(leo) == 0 {
		t.Fatal("harmonic perturbation must not be zero")
	}
}
