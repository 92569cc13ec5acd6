package geodesy

import (
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// EarthRotationRate is the sidereal rotation rate in rad/s.
const EarthRotationRate = 7.292115e-5

// RotationAngle maps a time to the Earth rotation angle in radians between
// the inertial frame and the Earth-fixed frame. A nil RotationAngle means
// the frames coincide.
type RotationAngle func(time.Time) float64

// At evaluates the angle, treating a nil function as zero rotation.
func (r RotationAngle) At(t time.Time) float64 {
	if r == nil {
		return 0
	}
	return r(t)
}

// GMST returns Greenwich mean sidereal time at t in radians using the same
// convention go-satellite applies to SGP4 TEME output.
func GMST(t time.Time) float64 {
	return satellite.ThetaG_JD(JulianDay(t))
}

// JulianDay returns the Julian date of t, including sub-second precision.
func JulianDay(t time.Time) float64 {
	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	return jd + float64(t.Nanosecond())/1e9/86400
}

// UniformRotation returns an angle growing at rate rad/s from theta0 at epoch.
func UniformRotation(epoch time.Time, theta0, rate float64) RotationAngle {
	return func(t time.Time) float64 {
		return math.Mod(theta0+rate*t.Sub(epoch).Seconds(), 2*math.Pi)
	}
}
