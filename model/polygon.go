package model

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/signalsfoundry/coverage-simulator/geodesy"
)

var (
	// ErrDegeneratePolygon is returned for rings that enclose no area.
	ErrDegeneratePolygon = errors.New("degenerate polygon")
	// ErrEmptyPolygon is returned when a polygon has no admitted segments
	// or a percentage would be taken of zero total area.
	ErrEmptyPolygon = errors.New("empty polygon")
)

// Segment is one admitted partition cell of a ground polygon.
type Segment struct {
	Center geodesy.GeoCoordinate
	// Area is the ellipsoid-surface area in km².
	Area float64
	// Grabs counts successful captures. It only ever increases during a run.
	Grabs int
}

// GroundPolygon is a test area on the ground. The ring and bounding box are
// in degrees (longitude, latitude); longitudes may run past ±180 for rings
// that cross the antimeridian.
type GroundPolygon struct {
	Name  string
	Ring  orb.Ring
	Bound orb.Bound

	// Center is the bounding-box centre, Radius the largest surface
	// distance from Center to a ring vertex (km).
	Center geodesy.GeoCoordinate
	Radius float64

	Segments []Segment
	// Area is the sum of segment areas in km².
	Area float64

	// Cloud is the polygon's own cloud table; nil means the shared one.
	Cloud      *CloudTable
	CloudScore int
}

// NewGroundPolygon validates and closes ring. Partitioning is done
// separately.
func NewGroundPolygon(name string, ring orb.Ring) (*GroundPolygon, error) {
	if len(ring) > 1 && ring[0].Equal(ring[len(ring)-1]) {
		ring = ring[:len(ring)-1]
	}
	distinct := map[orb.Point]struct{}{}
	for _, p := range ring {
		distinct[p] = struct{}{}
	}
	if len(distinct) < 3 {
		return nil, fmt.Errorf("%w: %q has %d distinct vertices", ErrDegeneratePolygon, name, len(distinct))
	}
	closed := make(orb.Ring, 0, len(ring)+1)
	closed = append(closed, ring...)
	closed = append(closed, ring[0])

	b := closed.Bound()
	if b.Max.X() <= b.Min.X() || b.Max.Y() <= b.Min.Y() {
		return nil, fmt.Errorf("%w: %q has an empty bounding box", ErrDegeneratePolygon, name)
	}
	if b.Min.Y() < -90 || b.Max.Y() > 90 {
		return nil, fmt.Errorf("%w: %q latitude outside [-90, 90]", ErrDegeneratePolygon, name)
	}
	return &GroundPolygon{
		Name:  name,
		Ring:  closed,
		Bound: b,
		Center: geodesy.GeoCoordinate{
			Longitude: b.Center().X(),
			Latitude:  b.Center().Y(),
		},
	}, nil
}

// ClearGrabs resets every segment's grab counter.
func (p *GroundPolygon) ClearGrabs() {
	for i := range p.Segments {
		p.Segments[i].Grabs = 0
	}
}

// MaxGrabs returns the largest grab counter among the segments.
func (p *GroundPolygon) MaxGrabs() int {
	max := 0
	for _, s := range p.Segments {
		if s.Grabs > max {
			max = s.Grabs
		}
	}
	return max
}
