package geodesy

import (
	"math"
	"time"

	"github.com/golang/geo/s1"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/sidereal"
	"github.com/soniakeys/meeus/v3/solar"
)

// SolarZenith returns the angle between the local ellipsoid normal at g and
// the direction to the Sun at t. Values above 90° mean the Sun is below the
// horizon.
func SolarZenith(t time.Time, g GeoCoordinate) s1.Angle {
	jd := julian.TimeToJD(t.UTC())
	ra, dec := solar.ApparentEquatorial(jd)
	sun := [3]float64{dec.Cos() * ra.Cos(), dec.Cos() * ra.Sin(), dec.Sin()}

	// local normal in the same true-of-date equatorial frame
	theta := sidereal.Apparent(jd).Angle().Rad()
	lat := (s1.Angle(g.Latitude) * s1.Degree).Radians()
	lon := (s1.Angle(g.Longitude) * s1.Degree).Radians()
	sinLat, cosLat := math.Sincos(lat)
	sinLon, cosLon := math.Sincos(lon + theta)
	normal := [3]float64{cosLat * cosLon, cosLat * sinLon, sinLat}

	cos := normal[0]*sun[0] + normal[1]*sun[1] + normal[2]*sun[2]
	cos = math.Max(-1, math.Min(1, cos))
	return s1.Angle(math.Acos(cos)) * s1.Radian
}
