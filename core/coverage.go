package core

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/golang/geo/s1"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/signalsfoundry/coverage-simulator/geodesy"
	"github.com/signalsfoundry/coverage-simulator/model"
)

// CloudMode selects how cloud scores are drawn each step.
type CloudMode int

const (
	// CloudShared draws one score from the shared table for every close polygon.
	CloudShared CloudMode = iota
	// CloudPerPolygon draws independently per polygon from its own table,
	// falling back to the shared one.
	CloudPerPolygon
)

// NoZenithLimit disables the sun gate.
const NoZenithLimit = 360 * s1.Degree

// closeMargin widens the proximity pre-filter.
const closeMargin = 1.1

// GateConfig holds the environmental admission parameters.
type GateConfig struct {
	MaxZenith         s1.Angle
	MaxCloudScore     int
	PartialCloudiness bool
	CloudMode         CloudMode
	// CloudRedraw keeps drawn scores for this long within a pass; 0
	// redraws every step.
	CloudRedraw time.Duration
}

// DefaultGateConfig admits everything.
func DefaultGateConfig() GateConfig {
	return GateConfig{MaxZenith: NoZenithLimit, MaxCloudScore: math.MaxInt}
}

// CoverageGate decides which segments a footprint captures. It owns the
// random source so runs are reproducible for a given seed.
type CoverageGate struct {
	cfg       GateConfig
	ellipsoid geodesy.Ellipsoid
	shared    *model.CloudTable
	src       rand.Source

	inSession   bool
	lastDraw    time.Time
	sharedScore int
	// scored holds the polygons that received a score in the current draw.
	scored map[*model.GroundPolygon]bool
}

// NewCoverageGate builds a gate. shared may be nil, in which case polygons
// without their own table are always clear.
func NewCoverageGate(cfg GateConfig, e geodesy.Ellipsoid, shared *model.CloudTable, src rand.Source) *CoverageGate {
	if src == nil {
		src = rand.NewPCG(0, 0)
	}
	return &CoverageGate{cfg: cfg, ellipsoid: e, shared: shared, src: src, scored: map[*model.GroundPolygon]bool{}}
}

// Config returns the gate parameters.
func (g *CoverageGate) Config() GateConfig { return g.cfg }

// Close reports whether p may be inside the footprint of a satellite at s.
// It is a conservative distance test, not an exact overlap test.
func (g *CoverageGate) Close(s SatelliteState, half s1.Angle, p *model.GroundPolygon) bool {
	reach := s.Geo.Altitude * math.Tan(half.Radians())
	d := g.ellipsoid.SurfaceDistance(s.Geo, p.Center)
	return d < closeMargin*(p.Radius+reach)
}

// SunAllows reports whether the solar zenith at g and t is within limits.
func (g *CoverageGate) SunAllows(t time.Time, geo geodesy.GeoCoordinate) bool {
	if g.cfg.MaxZenith >= NoZenithLimit {
		return true
	}
	return geodesy.SolarZenith(t, geo) <= g.cfg.MaxZenith
}

// BeginStep draws cloud scores for the polygons close to any satellite.
// Scores persist for CloudRedraw within a session; a step with no close
// polygon ends the session. A polygon that comes close mid-session gets the
// session's shared score, or its own draw in per-polygon mode.
func (g *CoverageGate) BeginStep(t time.Time, day int, nearby []*model.GroundPolygon) {
	if len(nearby) == 0 {
		g.Reset()
		return
	}
	if !g.inSession || g.cfg.CloudRedraw <= 0 || t.Sub(g.lastDraw) >= g.cfg.CloudRedraw {
		g.inSession = true
		g.lastDraw = t
		clear(g.scored)
		if g.cfg.CloudMode == CloudShared {
			g.sharedScore = 0
			if g.shared != nil {
				g.sharedScore = g.shared.Draw(day, g.src)
			}
		}
	}

	for _, p := range nearby {
		if g.scored[p] {
			continue
		}
		g.scored[p] = true
		if g.cfg.CloudMode == CloudShared {
			p.CloudScore = g.sharedScore
			continue
		}
		p.CloudScore = 0
		if table := g.tableFor(p); table != nil {
			p.CloudScore = table.Draw(day, g.src)
		}
	}
}

// Reset ends the current cloud session.
func (g *CoverageGate) Reset() {
	g.inSession = false
	clear(g.scored)
}

// Admit reports whether p's cloud score allows capture.
func (g *CoverageGate) Admit(p *model.GroundPolygon) bool {
	return p.CloudScore <= g.cfg.MaxCloudScore
}

// Scan increments the grab counter of every segment of p captured by
// swath and returns the captured area in km².
func (g *CoverageGate) Scan(p *model.GroundPolygon, swath Swath) (area float64, grabs int) {
	hidden := 0.0
	if g.cfg.PartialCloudiness {
		if table := g.tableFor(p); table != nil {
			f := table.Fraction(p.CloudScore)
			hidden = f * (2 - f)
		}
	}
	trial := distuv.Bernoulli{P: hidden, Src: g.src}
	for i := range p.Segments {
		seg := &p.Segments[i]
		if !swath.Contains(seg.Center) {
			continue
		}
		if hidden > 0 && trial.Rand() == 1 {
			continue
		}
		seg.Grabs++
		area += seg.Area
		grabs++
	}
	return area, grabs
}

func (g *CoverageGate) tableFor(p *model.GroundPolygon) *model.CloudTable {
	if g.cfg.CloudMode == CloudPerPolygon && p.Cloud != nil {
		return p.Cloud
	}
	return g.shared
}
