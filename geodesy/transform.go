package geodesy

import (
	"math"

	"github.com/golang/geo/s1"

	"github.com/signalsfoundry/coverage-simulator/geometry"
)

// GeoCoordinate is a geodetic position. Longitude and Latitude are in
// degrees, Altitude is kilometres above the ellipsoid along the normal.
type GeoCoordinate struct {
	Longitude float64
	Latitude  float64
	Altitude  float64
}

// Surface returns the coordinate projected onto the ellipsoid (altitude 0).
func (g GeoCoordinate) Surface() GeoCoordinate {
	return GeoCoordinate{Longitude: g.Longitude, Latitude: g.Latitude}
}

// ToCartesian places g in the Earth-centred frame. theta is the Earth
// rotation angle in radians added to the longitude; 0 yields the
// Earth-fixed frame.
func (e Ellipsoid) ToCartesian(g GeoCoordinate, theta float64) geometry.Vector3 {
	lat := (s1.Angle(g.Latitude) * s1.Degree).Radians()
	lon := (s1.Angle(g.Longitude) * s1.Degree).Radians()
	n := e.primeVertical(lat)
	sinLat, cosLat := math.Sincos(lat)
	sinLon, cosLon := math.Sincos(lon + theta)
	return geometry.Vector3{
		X: (n + g.Altitude) * cosLat * cosLon,
		Y: (n + g.Altitude) * cosLat * sinLon,
		Z: (n*(e.C*e.C)/(e.A*e.A) + g.Altitude) * sinLat,
	}
}

// ToGeodetic is the inverse of ToCartesian for the same theta. Latitude is
// found by fixed-point iteration to 1e-10 rad; longitude is wrapped into
// (-180, 180].
func (e Ellipsoid) ToGeodetic(p geometry.Vector3, theta float64) GeoCoordinate {
	r := math.Hypot(p.X, p.Y)
	lon := wrapPi(math.Atan2(p.Y, p.X) - theta)

	e2 := e.EccentricitySquared()
	var lat float64
	if r == 0 {
		lat = math.Copysign(math.Pi/2, p.Z)
	} else {
		lat = math.Atan2(p.Z, r)
		for i := 0; i < maxLatIter; i++ {
			s := math.Sin(lat)
			k := 1 / math.Sqrt(1-e2*s*s)
			next := math.Atan2(p.Z/e.A+k*e2*s, r/e.A)
			done := math.Abs(next-lat) < latTolerance
			lat = next
			if done {
				break
			}
		}
	}

	n := e.primeVertical(lat)
	sinLat, cosLat := math.Sincos(lat)
	var alt float64
	if math.Abs(cosLat) > math.Abs(sinLat) {
		alt = r/cosLat - n
	} else {
		alt = p.Z/sinLat - n*(1-e2)
	}
	return GeoCoordinate{
		Longitude: (s1.Angle(lon) * s1.Radian).Degrees(),
		Latitude:  (s1.Angle(lat) * s1.Radian).Degrees(),
		Altitude:  alt,
	}
}

// SurfaceDistance returns the straight-line distance in kilometres between
// the surface projections of two coordinates.
func (e Ellipsoid) SurfaceDistance(a, b GeoCoordinate) float64 {
	return e.ToCartesian(a.Surface(), 0).Distance(e.ToCartesian(b.Surface(), 0))
}

// UnwrapLongitude shifts lon by whole turns so it lies within 180° of ref.
func UnwrapLongitude(lon, ref float64) float64 {
	for lon-ref > 180 {
		lon -= 360
	}
	for lon-ref < -180 {
		lon += 360
	}
	return lon
}

func wrapPi(x float64) float64 {
	x = math.Mod(x, 2*math.Pi)
	if x <= -math.Pi {
		x += 2 * math.Pi
	} else if x > math.Pi {
		x -= 2 * math.Pi
	}
	return x
}
