// Package geodesy converts between geodetic and Earth-centred Cartesian
// coordinates on an oblate ellipsoid and supplies the Earth-rotation and
// solar angles the coverage engine needs.
package geodesy

import (
	"errors"
	"fmt"
	"math"

	"github.com/signalsfoundry/coverage-simulator/geometry"
)

// ErrInvalidEllipsoid is returned for axes that are not a > c > 0.
var ErrInvalidEllipsoid = errors.New("invalid ellipsoid")

const (
	latTolerance = 1e-10
	maxLatIter   = 50
)

// Ellipsoid is an oblate spheroid with equatorial radius A and polar
// radius C, both in kilometres.
type Ellipsoid struct {
	A float64
	C float64
}

// WGS84 is the default Earth model.
var WGS84 = Ellipsoid{A: 6378.137, C: 6356.75231424518}

// NewEllipsoid validates the axes and returns the ellipsoid.
func NewEllipsoid(a, c float64) (Ellipsoid, error) {
	if !(a > 0) || !(c > 0) || a <= c || math.IsInf(a, 0) {
		return Ellipsoid{}, fmt.Errorf("%w: a=%v c=%v (need a > c > 0)", ErrInvalidEllipsoid, a, c)
	}
	return Ellipsoid{A: a, C: c}, nil
}

// Validate reports ErrInvalidEllipsoid for a malformed value.
func (e Ellipsoid) Validate() error {
	_, err := NewEllipsoid(e.A, e.C)
	return err
}

// Canonical returns the kernel form of the ellipsoid.
func (e Ellipsoid) Canonical() geometry.Ellipsoid {
	return geometry.Ellipsoid{A: e.A, B: e.A, C: e.C}
}

// Flattening is (a-c)/a.
func (e Ellipsoid) Flattening() float64 { return (e.A - e.C) / e.A }

// EccentricitySquared is f(2-f).
func (e Ellipsoid) EccentricitySquared() float64 {
	f := e.Flattening()
	return f * (2 - f)
}

// primeVertical returns the prime-vertical radius of curvature N at lat.
func (e Ellipsoid) primeVertical(lat float64) float64 {
	s, c := math.Sincos(lat)
	a2, c2 := e.A*e.A, e.C*e.C
	return a2 / math.Sqrt(a2*c*c+c2*s*s)
}
