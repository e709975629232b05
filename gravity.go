package opal

import (
	"bufio"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

/* Spherical harmonic gravity field, loaded from a potential file.

The potential file is a plain text file. Comment lines start with '#'. The
first data line is the header:

	<name> <GM km^3/s^2> <radius km> <max degree>

and every following data line carries one fully normalized coefficient pair:

	<n> <m> <Cnm> <Snm>

Coefficients are unnormalized once at load time; nothing is read from disk
during integration. */

// GravityField holds an unnormalized spherical harmonic expansion of a
// central body's gravitational potential, truncated to the configured degree
// and order. The expansion starts at degree 2: the point mass term is owned by
// the force model.
type GravityField struct {
	Name          string
	GM            float64 // km^3/s^2
	Radius        float64 // km
	Degree, Order uint
	C, S          [][]float64 // unnormalized, indexed [n][m]
}

// LoadGravityField reads a potential file and truncates it to the requested
// degree and order. A missing or malformed file, or a degree/order the file
// does not carry, is a ConfigError: it aborts session construction and is
// never retried.
func LoadGravityField(path string, degree, order uint) (*GravityField, error) {
	if degree < 2 {
		return nil, NewConfigError("gravityfield", "degree must be at least 2 (got %d)", degree)
	}
	if order > degree {
		return nil, NewConfigError("gravityfield", "order %d exceeds degree %d", order, degree)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, NewConfigError("gravityfield", "cannot open potential file %s: %s", path, err)
	}
	defer f.Close()

	field := GravityField{Degree: degree, Order: order}
	field.C = make([][]float64, degree+1)
	field.S = make([][]float64, degree+1)
	for n := range field.C {
		field.C[n] = make([]float64, degree+1)
		field.S[n] = make([]float64, degree+1)
	}

	scanner := bufio.NewScanner(f)
	headerRead := false
	var fileDegree uint64
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if !headerRead {
			if len(fields) != 4 {
				return nil, NewConfigError("gravityfield", "%s:%d: header must be `name GM radius maxdegree`", path, lineNo)
			}
			field.Name = fields[0]
			if field.GM, err = strconv.ParseFloat(fields[1], 64); err != nil {
				return nil, NewConfigError("gravityfield", "%s:%d: bad GM: %s", path, lineNo, err)
			}
			if field.Radius, err = strconv.ParseFloat(fields[2], 64); err != nil {
				return nil, NewConfigError("gravityfield", "%s:%d: bad radius: %s", path, lineNo, err)
			}
			if fileDegree, err = strconv.ParseUint(fields[3], 10, 16); err != nil {
				return nil, NewConfigError("gravityfield", "%s:%d: bad max degree: %s", path, lineNo, err)
			}
			if uint(fileDegree) < degree {
				return nil, NewConfigError("gravityfield", "%s supports degree %d, %d requested", path, fileDegree, degree)
			}
			headerRead = true
			continue
		}
		if len(fields) != 4 {
			return nil, NewConfigError("gravityfield", "%s:%d: coefficient lines must be `n m C S`", path, lineNo)
		}
		n, errN := strconv.ParseUint(fields[0], 10, 16)
		m, errM := strconv.ParseUint(fields[1], 10, 16)
		cnm, errC := strconv.ParseFloat(fields[2], 64)
		snm, errS := strconv.ParseFloat(fields[3], 64)
		if errN != nil || errM != nil || errC != nil || errS != nil {
			return nil, NewConfigError("gravityfield", "%s:%d: malformed coefficient line", path, lineNo)
		}
		if m > n {
			return nil, NewConfigError("gravityfield", "%s:%d: order %d exceeds degree %d", path, lineNo, m, n)
		}
		if uint(n) > degree || uint(m) > order {
			continue // beyond the truncation, skip
		}
		Π := unnormFactor(uint(n), uint(m))
		field.C[n][m] = cnm * Π
		field.S[n][m] = snm * Π
	}
	if err := scanner.Err(); err != nil {
		return nil, NewConfigError("gravityfield", "reading %s: %s", path, err)
	}
	if !headerRead {
		return nil, NewConfigError("gravityfield", "%s holds no header line", path)
	}
	return &field, nil
}

// J returns the zonal J_n implied by the loaded C_{n,0} coefficient, mostly
// for cross checks against the closed form zonal accelerations.
func (g *GravityField) J(n uint) float64 {
	return -g.C[n][0]
}

// unnormFactor returns the factor converting a fully normalized coefficient
// into its unnormalized form: sqrt(k(2n+1)(n-m)!/(n+m)!) with k=1 for m=0 and
// k=2 otherwise. The factorial ratio is built as a running product, which
// keeps it exact enough through the degrees small enough for an unnormalized
// evaluation in the first place.
func unnormFactor(n, m uint) float64 {
	k := 1.0
	if m > 0 {
		k = 2.0
	}
	f := k * float64(2*n+1)
	for i := n - m + 1; i <= n+m; i++ {
		f /= float64(i)
	}
	return math.Sqrt(f)
}

// poleε is the smallest distance to the polar axis, as a fraction of the
// radius, at which the Eq. 8-27 assembly is evaluated directly.
const poleε = 1e-8

// Acceleration returns the perturbing acceleration of the harmonic terms (the
// point mass excluded) in the inertial frame, in km/s^2. The evaluation
// happens in the body fixed frame: the position is rotated by GMST, the
// gradient of the disturbing potential is computed per Vallado Eq. 8-27, and
// the result is rotated back. The Eq. 8-27 assembly divides by the distance
// to the polar axis, so a state exactly over a pole is evaluated a hair off
// the axis instead, well below the accuracy of the field itself.
func (g *GravityField) Acceleration(dt time.Time, R []float64) []float64 {
	θ := GMST(dt)
	rBF := ECI2ECEF(R, θ)
	x, y, z := rBF[0], rBF[1], rBF[2]
	r := norm(rBF)
	ρ := math.Hypot(x, y) // distance to the polar axis
	if ρ < poleε*r {
		x, y, ρ = poleε*r, 0, poleε*r
	}
	φ := math.Atan2(z, ρ)      // geocentric latitude
	λ := math.Atan2(y, x)      // body fixed longitude
	sinφ := math.Sin(φ)
	tanφ := math.Tan(φ)

	// Associated Legendre functions of sin(φ), plus one extra order for the
	// ∂P/∂φ recurrence.
	nmax := int(g.Degree)
	P := make([][]float64, nmax+1)
	for n := range P {
		P[n] = make([]float64, nmax+2)
	}
	cosφ := math.Cos(φ)
	P[0][0] = 1
	P[1][0] = sinφ
	P[1][1] = cosφ
	for n := 2; n <= nmax; n++ {
		P[n][n] = float64(2*n-1) * cosφ * P[n-1][n-1]
		for m := 0; m < n; m++ {
			pnm2 := 0.0
			if n >= 2 {
				pnm2 = P[n-2][m]
			}
			P[n][m] = (float64(2*n-1)*sinφ*P[n-1][m] - float64(n+m-1)*pnm2) / float64(n-m)
		}
	}

	// Longitude harmonics, iteratively.
	mmax := int(g.Order)
	cosmλ := make([]float64, mmax+1)
	sinmλ := make([]float64, mmax+1)
	cosmλ[0], sinmλ[0] = 1, 0
	sinλ, cosλ := math.Sincos(λ)
	for m := 1; m <= mmax; m++ {
		cosmλ[m] = cosmλ[m-1]*cosλ - sinmλ[m-1]*sinλ
		sinmλ[m] = sinmλ[m-1]*cosλ + cosmλ[m-1]*sinλ
	}

	// Partials of the disturbing potential in spherical coordinates.
	var dUdr, dUdφ, dUdλ float64
	reOverR := g.Radius / r
	rPow := reOverR * reOverR // (Re/r)^n starting at n=2
	for n := 2; n <= nmax; n++ {
		var sumR, sumφ, sumλ float64
		for m := 0; m <= mmax && m <= n; m++ {
			trig := g.C[n][m]*cosmλ[m] + g.S[n][m]*sinmλ[m]
			sumR += P[n][m] * trig
			sumφ += (P[n][m+1] - float64(m)*tanφ*P[n][m]) * trig
			sumλ += float64(m) * P[n][m] * (g.S[n][m]*cosmλ[m] - g.C[n][m]*sinmλ[m])
		}
		dUdr += rPow * float64(n+1) * sumR
		dUdφ += rPow * sumφ
		dUdλ += rPow * sumλ
		rPow *= reOverR
	}
	μ := g.GM
	dUdr *= -μ / (r * r)
	dUdφ *= μ / r
	dUdλ *= μ / r

	// Vallado Eq. 8-27.
	ρ2 := ρ * ρ
	common := dUdr/r - z/(r*r*ρ)*dUdφ
	aBF := []float64{
		common*x - dUdλ/ρ2*y,
		common*y + dUdλ/ρ2*x,
		dUdr/r*z + ρ/(r*r)*dUdφ,
	}
	return ECEF2ECI(aBF, θ)
}
