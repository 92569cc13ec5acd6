package model

import (
	"time"

	"github.com/golang/geo/s1"
)

// OrbitSource indicates how a satellite's motion is determined.
type OrbitSource int

const (
	OrbitSourceUnknown  OrbitSource = iota
	OrbitSourceTLE                  // SGP4 propagation of a two-line element set
	OrbitSourceCircular             // analytic circular orbit
)

// CircularOrbit describes an ideal circular orbit around a spherical Earth.
type CircularOrbit struct {
	Epoch       time.Time
	AltitudeKm  float64
	Inclination s1.Angle
	RAAN        s1.Angle
	// Phase is the argument of latitude at Epoch.
	Phase s1.Angle
}

// SatelliteDefinition is an imaging satellite and its sensor.
type SatelliteDefinition struct {
	Name   string
	Source OrbitSource

	TLE1, TLE2 string
	Circular   CircularOrbit

	// HalfSwath is half of the sensor's cross-track field of view.
	HalfSwath s1.Angle
}
