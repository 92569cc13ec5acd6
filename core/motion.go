package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/coverage-simulator/geodesy"
	"github.com/signalsfoundry/coverage-simulator/geometry"
	"github.com/signalsfoundry/coverage-simulator/model"
)

// ErrPropagation is returned when an orbit cannot be evaluated at a time.
var ErrPropagation = errors.New("orbit propagation failed")

// EarthMu is the standard gravitational parameter in km³/s².
const EarthMu = 398600.4418

// Propagator yields a satellite's inertial position (km) and velocity
// (km/s) at a time. The frame must match the Earth rotation angle given to
// the footprint builder.
type Propagator interface {
	PositionVelocity(t time.Time) (pos, vel geometry.Vector3, err error)
}

// SGP4Propagator evaluates a TLE with go-satellite. Output is in the TEME
// frame, which pairs with geodesy.GMST. Times are truncated to whole seconds.
type SGP4Propagator struct {
	sat satellite.Satellite
}

// NewSGP4Propagator parses a two-line element set.
func NewSGP4Propagator(line1, line2 string) (*SGP4Propagator, error) {
	// go-satellite terminates the process on malformed lines, so check first.
	if err := validateTLELines(line1, line2); err != nil {
		return nil, err
	}
	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS72)
	if sat.Error != 0 {
		return nil, fmt.Errorf("%w: sgp4 init code=%d %s", ErrPropagation, sat.Error, sat.ErrorStr)
	}
	return &SGP4Propagator{sat: sat}, nil
}

func validateTLELines(line1, line2 string) error {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)
	if len(line1) != 69 || len(line2) != 69 {
		return fmt.Errorf("%w: TLE lines must be 69 characters, got %d and %d", ErrPropagation, len(line1), len(line2))
	}
	if line1[0] != '1' || line2[0] != '2' {
		return fmt.Errorf("%w: TLE lines must start with '1' and '2'", ErrPropagation)
	}
	return nil
}

// PositionVelocity propagates to t.
func (m *SGP4Propagator) PositionVelocity(t time.Time) (geometry.Vector3, geometry.Vector3, error) {
	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	pos, vel := satellite.Propagate(m.sat, year, int(month), day, hour, min, sec)
	p := geometry.Vec(pos.X, pos.Y, pos.Z)
	v := geometry.Vec(vel.X, vel.Y, vel.Z)

	mag := p.Norm()
	if math.IsNaN(mag) || math.IsInf(mag, 0) || math.IsNaN(v.Norm()) {
		return geometry.Vector3{}, geometry.Vector3{}, fmt.Errorf("%w: non-finite state at %s", ErrPropagation, t.Format(time.RFC3339))
	}
	if mag < 6200 || mag > 50000 {
		return geometry.Vector3{}, geometry.Vector3{}, fmt.Errorf("%w: position magnitude %.1f km at %s", ErrPropagation, mag, t.Format(time.RFC3339))
	}
	return p, v, nil
}

// CircularPropagator is a two-body circular orbit about a spherical Earth of
// radius geodesy.WGS84.A.
type CircularPropagator struct {
	orbit  model.CircularOrbit
	radius float64
	rate   float64
}

// NewCircularPropagator validates the orbit.
func NewCircularPropagator(o model.CircularOrbit) (*CircularPropagator, error) {
	if !(o.AltitudeKm > 0) {
		return nil, fmt.Errorf("%w: circular orbit altitude %v km", ErrPropagation, o.AltitudeKm)
	}
	r := geodesy.WGS84.A + o.AltitudeKm
	return &CircularPropagator{orbit: o, radius: r, rate: math.Sqrt(EarthMu / (r * r * r))}, nil
}

// Period returns the orbital period.
func (m *CircularPropagator) Period() time.Duration {
	return time.Duration(2 * math.Pi / m.rate * float64(time.Second))
}

// PositionVelocity evaluates the orbit at t.
func (m *CircularPropagator) PositionVelocity(t time.Time) (geometry.Vector3, geometry.Vector3, error) {
	u := m.orbit.Phase.Radians() + m.rate*t.Sub(m.orbit.Epoch).Seconds()
	su, cu := math.Sincos(u)
	si, ci := math.Sincos(m.orbit.Inclination.Radians())
	so, co := math.Sincos(m.orbit.RAAN.Radians())

	p := geometry.Vec(co*cu-so*su*ci, so*cu+co*su*ci, su*si).Scale(m.radius)
	v := geometry.Vec(-co*su-so*cu*ci, -so*su+co*cu*ci, cu*si).Scale(m.radius * m.rate)
	return p, v, nil
}

// NewPropagator chooses the propagator for a satellite definition.
func NewPropagator(def *model.SatelliteDefinition) (Propagator, error) {
	switch def.Source {
	case model.OrbitSourceTLE:
		return NewSGP4Propagator(def.TLE1, def.TLE2)
	case model.OrbitSourceCircular:
		return NewCircularPropagator(def.Circular)
	default:
		return nil, fmt.Errorf("%w: satellite %q has no orbit source", ErrPropagation, def.Name)
	}
}
