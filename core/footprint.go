package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang/geo/s1"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/signalsfoundry/coverage-simulator/geodesy"
	"github.com/signalsfoundry/coverage-simulator/geometry"
)

// ErrNoGroundIntersection is returned when a boresight ray misses the Earth.
// The engine treats it as a step without footprint.
var ErrNoGroundIntersection = errors.New("boresight does not reach the ground")

// SatelliteState is a satellite's position and derived ground point at one
// instant. Position, Velocity and SubPoint are inertial.
type SatelliteState struct {
	Time     time.Time
	Position geometry.Vector3
	Velocity geometry.Vector3
	Geo      geodesy.GeoCoordinate
	SubPoint geometry.Vector3
}

// Edge is the cross-track line of a swath at one instant.
type Edge struct {
	Left, Right geodesy.GeoCoordinate
}

// Swath is the ground footprint swept during one step. Vertices are ordered
// left-from, right-from, right-to, left-to.
type Swath struct {
	Vertices [4]geodesy.GeoCoordinate
	ring     orb.Ring
}

// NewSwath joins two edges into a footprint quadrilateral. Longitudes are
// unwrapped relative to the first vertex so the ring stays continuous
// across the antimeridian.
func NewSwath(from, to Edge) Swath {
	v := [4]geodesy.GeoCoordinate{from.Left, from.Right, to.Right, to.Left}
	ref := v[0].Longitude
	ring := make(orb.Ring, 0, 5)
	for _, g := range v {
		ring = append(ring, orb.Point{geodesy.UnwrapLongitude(g.Longitude, ref), g.Latitude})
	}
	ring = append(ring, ring[0])
	return Swath{Vertices: v, ring: ring}
}

// Ring returns the closed footprint ring in unwrapped degrees.
func (s Swath) Ring() orb.Ring { return s.ring }

// Contains reports whether g falls inside the footprint.
func (s Swath) Contains(g geodesy.GeoCoordinate) bool {
	if len(s.ring) == 0 {
		return false
	}
	lon := geodesy.UnwrapLongitude(g.Longitude, s.Vertices[0].Longitude)
	return planar.RingContains(s.ring, orb.Point{lon, g.Latitude})
}

// FootprintBuilder derives satellite states and swath polygons. All
// geometry is done in the inertial frame; Earth maps to and from it.
type FootprintBuilder struct {
	Ellipsoid geodesy.Ellipsoid
	Earth     geodesy.RotationAngle
}

// State evaluates p at t and derives the sub-satellite point.
func (b FootprintBuilder) State(p Propagator, t time.Time) (SatelliteState, error) {
	pos, vel, err := p.PositionVelocity(t)
	if err != nil {
		return SatelliteState{}, err
	}
	theta := b.Earth.At(t)
	geo := b.Ellipsoid.ToGeodetic(pos, theta)
	return SatelliteState{
		Time:     t,
		Position: pos,
		Velocity: vel,
		Geo:      geo,
		SubPoint: b.Ellipsoid.ToCartesian(geo.Surface(), theta),
	}, nil
}

// Edge returns the two boresight ground points for a half field of view.
func (b FootprintBuilder) Edge(s SatelliteState, half s1.Angle) (Edge, error) {
	ell := b.Ellipsoid.Canonical()
	nadir := s.SubPoint.Sub(s.Position)

	track := s.Velocity
	tangent := ell.TangentPlane(s.SubPoint)
	if proj, err := geometry.ProjectLine(geometry.Line{Point: s.Position, Direction: s.Velocity}, tangent); err == nil {
		track = proj.Direction
	}
	if track.Dot(s.Velocity) < 0 {
		track = track.Neg()
	}
	axis, err := track.Normalize()
	if err != nil {
		return Edge{}, fmt.Errorf("%w: ground track: %v", ErrNoGroundIntersection, err)
	}

	theta := b.Earth.At(s.Time)
	ground := func(angle s1.Angle) (geodesy.GeoCoordinate, error) {
		dir, err := nadir.Rotate(axis, angle)
		if err != nil {
			return geodesy.GeoCoordinate{}, err
		}
		hit, err := ell.NearestIntersection(geometry.Line{Point: s.Position, Direction: dir}, s.Position)
		if err != nil {
			return geodesy.GeoCoordinate{}, fmt.Errorf("%w: %v", ErrNoGroundIntersection, err)
		}
		return b.Ellipsoid.ToGeodetic(hit, theta).Surface(), nil
	}

	left, err := ground(half)
	if err != nil {
		return Edge{}, err
	}
	right, err := ground(-half)
	if err != nil {
		return Edge{}, err
	}
	return Edge{Left: left, Right: right}, nil
}

// Build returns the swath swept between two states.
func (b FootprintBuilder) Build(from, to SatelliteState, half s1.Angle) (Swath, error) {
	e0, err := b.Edge(from, half)
	if err != nil {
		return Swath{}, err
	}
	e1, err := b.Edge(to, half)
	if err != nil {
		return Swath{}, err
	}
	return NewSwath(e0, e1), nil
}
