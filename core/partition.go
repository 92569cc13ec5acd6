package core

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/signalsfoundry/coverage-simulator/geodesy"
	"github.com/signalsfoundry/coverage-simulator/model"
)

// ErrInvalidFineness is returned for non-positive partition steps.
var ErrInvalidFineness = errors.New("invalid partition fineness")

// Fineness is the partition cell size in degrees.
type Fineness struct {
	LatStep  float64
	LongStep float64
}

// AreaFromEquator returns the ellipsoid surface area in km² of the zone
// between the equator and latitude lat (degrees), per full turn of
// longitude. It is negative south of the equator.
//
// The zone integral is scaled by a/(2c) so that the pole-to-pole difference
// equals the ellipsoid's surface area. Without the factor every area is
// about 2c/a times larger; coverage percentages are ratios of areas and do
// not depend on it.
func AreaFromEquator(e geodesy.Ellipsoid, lat float64) float64 {
	return zoneIntegral(e, e.C*math.Sin(lat*math.Pi/180)) - zoneIntegral(e, 0)
}

// zoneIntegral is the closed-form zone area at height y = c·sin(lat), up to
// an additive constant.
func zoneIntegral(e geodesy.Ellipsoid, y float64) float64 {
	a, c := e.A, e.C
	A := a*a - c*c
	B := math.Sqrt(A)
	D := math.Sqrt(c*c*c*c + y*y*A)
	return a / (2 * c) * (2 * math.Pi / c) * D * (c*c*c*c*math.Log(B*D+y*A)/(B*D) + y)
}

// CellArea returns the surface area of the cell between two latitudes
// spanning dLong degrees of longitude.
func CellArea(e geodesy.Ellipsoid, latBottom, latTop, dLong float64) float64 {
	return (AreaFromEquator(e, latTop) - AreaFromEquator(e, latBottom)) * dLong / 360
}

// BandAreas returns the area of one dLong-wide cell in each latitude band
// delimited by edges.
func BandAreas(e geodesy.Ellipsoid, edges []float64, dLong float64) []float64 {
	if len(edges) < 2 {
		return nil
	}
	out := make([]float64, len(edges)-1)
	prev := AreaFromEquator(e, edges[0])
	for i := 1; i < len(edges); i++ {
		cur := AreaFromEquator(e, edges[i])
		out[i-1] = (cur - prev) * dLong / 360
		prev = cur
	}
	return out
}

// gridEdges splits [lo, hi] into steps of size step, clipping the last one.
func gridEdges(lo, hi, step float64) []float64 {
	n := int(math.Ceil((hi-lo)/step - 1e-9))
	if n < 1 {
		n = 1
	}
	edges := make([]float64, n+1)
	for i := 0; i < n; i++ {
		edges[i] = lo + float64(i)*step
	}
	edges[n] = hi
	return edges
}

// Partition splits p into grid cells whose centres fall inside its ring
// and fills Segments, Area, Center and Radius. A polygon that admits no
// cell returns model.ErrEmptyPolygon.
func Partition(e geodesy.Ellipsoid, p *model.GroundPolygon, f Fineness) error {
	if !(f.LatStep > 0) || !(f.LongStep > 0) {
		return fmt.Errorf("%w: lat %v long %v", ErrInvalidFineness, f.LatStep, f.LongStep)
	}
	if len(p.Ring) < 4 {
		return fmt.Errorf("%w: %q", model.ErrDegeneratePolygon, p.Name)
	}
	b := p.Ring.Bound()
	latEdges := gridEdges(b.Min.Y(), b.Max.Y(), f.LatStep)
	lonEdges := gridEdges(b.Min.X(), b.Max.X(), f.LongStep)

	p.Bound = b
	p.Segments = p.Segments[:0]
	p.Area = 0
	for i := 1; i < len(latEdges); i++ {
		bottom, top := latEdges[i-1], latEdges[i]
		lat := (bottom + top) / 2
		zone := AreaFromEquator(e, top) - AreaFromEquator(e, bottom)
		for j := 1; j < len(lonEdges); j++ {
			west, east := lonEdges[j-1], lonEdges[j]
			lon := (west + east) / 2
			if !planar.RingContains(p.Ring, orb.Point{lon, lat}) {
				continue
			}
			area := zone * (east - west) / 360
			p.Segments = append(p.Segments, model.Segment{
				Center: geodesy.GeoCoordinate{Longitude: normalizeLongitude(lon), Latitude: lat},
				Area:   area,
			})
			p.Area += area
		}
	}
	if len(p.Segments) == 0 {
		return fmt.Errorf("%w: %q admits no cell at fineness %v×%v", model.ErrEmptyPolygon, p.Name, f.LatStep, f.LongStep)
	}

	p.Center = geodesy.GeoCoordinate{Longitude: normalizeLongitude(b.Center().X()), Latitude: b.Center().Y()}
	p.Radius = 0
	for _, v := range p.Ring {
		d := e.SurfaceDistance(p.Center, geodesy.GeoCoordinate{Longitude: v.X(), Latitude: v.Y()})
		p.Radius = math.Max(p.Radius, d)
	}
	return nil
}

func normalizeLongitude(lon float64) float64 {
	return geodesy.UnwrapLongitude(lon, 0)
}
