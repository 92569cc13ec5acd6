// Package config loads a coverage task from a TOML file.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/golang/geo/s1"
	"github.com/paulmach/orb"

	"github.com/signalsfoundry/coverage-simulator/core"
	"github.com/signalsfoundry/coverage-simulator/geodesy"
	"github.com/signalsfoundry/coverage-simulator/internal/polysource"
	"github.com/signalsfoundry/coverage-simulator/model"
	"github.com/signalsfoundry/coverage-simulator/periods"
	"github.com/signalsfoundry/coverage-simulator/timectrl"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is a complete coverage task.
type Config struct {
	Simulation Simulation  `toml:"simulation"`
	Window     *Window     `toml:"window"`
	Partition  Partition   `toml:"partition"`
	Ellipsoid  *Ellipsoid  `toml:"ellipsoid"`
	Cloud      *Cloud      `toml:"cloud"`
	Report     Report      `toml:"report"`
	Satellites []Satellite `toml:"satellites"`
	Polygons   []Polygon   `toml:"polygons"`

	// PolygonsGeoJSON is an optional GeoJSON file of further polygons,
	// relative to the config file.
	PolygonsGeoJSON string `toml:"polygons_geojson"`
}

// Simulation bounds the run and configures the coverage gate.
type Simulation struct {
	Start time.Time     `toml:"start"`
	End   time.Time     `toml:"end"`
	Step  time.Duration `toml:"step"`

	MaxZenithDeg float64 `toml:"max_zenith_deg"`
	// MaxCloudScore is unlimited when omitted.
	MaxCloudScore      *int          `toml:"max_cloud_score"`
	MinPercentForSolve float64       `toml:"min_percent_for_solve"`
	PartialCloudiness  bool          `toml:"partial_cloudiness"`
	CloudMode          string        `toml:"cloud_mode"`
	CloudRedraw        time.Duration `toml:"cloud_redraw_interval"`
	Seed               uint64        `toml:"seed"`
}

// Window is the annual observation window in 365-calendar days.
type Window struct {
	StartDay int `toml:"start_day"`
	EndDay   int `toml:"end_day"`
}

// Partition is the segment grid in degrees.
type Partition struct {
	LatStepDeg  float64 `toml:"lat_step_deg"`
	LongStepDeg float64 `toml:"long_step_deg"`
}

// Ellipsoid overrides the WGS-84 Earth model (km).
type Ellipsoid struct {
	A float64 `toml:"a"`
	C float64 `toml:"c"`
}

// Cloud is a cloud-score table: one row per calendar period bounded by
// Ranges, one column per score.
type Cloud struct {
	Table  [][]float64 `toml:"table"`
	Ranges []int       `toml:"ranges"`
}

// Report selects how statistics are printed.
type Report struct {
	Unit              string `toml:"unit"`
	SkipOutsideWindow bool   `toml:"skip_outside_window"`
	Histogram         bool   `toml:"histogram"`
}

// Satellite is either a TLE or a circular orbit, plus the sensor's full
// cross-track field of view.
type Satellite struct {
	Name     string    `toml:"name"`
	TLE1     string    `toml:"tle1"`
	TLE2     string    `toml:"tle2"`
	Circular *Circular `toml:"circular"`
	SwathDeg float64   `toml:"swath_deg"`
}

// Circular is an analytic circular orbit.
type Circular struct {
	Epoch          time.Time `toml:"epoch"`
	AltitudeKm     float64   `toml:"altitude_km"`
	InclinationDeg float64   `toml:"inclination_deg"`
	RAANDeg        float64   `toml:"raan_deg"`
	PhaseDeg       float64   `toml:"phase_deg"`
}

// Polygon is an inline ground polygon as [lon, lat] pairs in degrees.
type Polygon struct {
	Name  string      `toml:"name"`
	Ring  [][]float64 `toml:"ring"`
	Cloud *Cloud      `toml:"cloud"`
}

// Default returns the settings a task file is decoded over.
func Default() Config {
	return Config{
		Simulation: Simulation{
			Step:               10 * time.Second,
			MaxZenithDeg:       360,
			MinPercentForSolve: 100,
			CloudMode:          "shared",
		},
		Partition: Partition{LatStepDeg: 0.1, LongStepDeg: 0.1},
		Report:    Report{Unit: "hours"},
	}
}

// Load decodes path over Default and validates the result. Unknown keys are
// rejected so typos do not silently fall back to defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.PolygonsGeoJSON != "" && !filepath.IsAbs(cfg.PolygonsGeoJSON) {
		cfg.PolygonsGeoJSON = filepath.Join(filepath.Dir(path), cfg.PolygonsGeoJSON)
	}
	return cfg, nil
}

// Parse decodes a TOML document over Default and validates it.
func Parse(doc string) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(doc, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%w: unknown keys %s", ErrInvalidConfig, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate checks every section without touching the filesystem.
func (c Config) Validate() error {
	s := c.Simulation
	switch {
	case s.Start.IsZero() || s.End.IsZero():
		return invalid("simulation start and end are required")
	case !s.End.After(s.Start):
		return invalid("simulation end %s is not after start %s", s.End, s.Start)
	case s.Step <= 0:
		return invalid("step %v must be positive", s.Step)
	case !(s.MaxZenithDeg > 0) || s.MaxZenithDeg > 360:
		return invalid("max_zenith_deg %v outside (0, 360]", s.MaxZenithDeg)
	case s.MaxCloudScore != nil && *s.MaxCloudScore < 0:
		return invalid("max_cloud_score %d is negative", *s.MaxCloudScore)
	case !(s.MinPercentForSolve > 0) || s.MinPercentForSolve > 100:
		return invalid("min_percent_for_solve %v outside (0, 100]", s.MinPercentForSolve)
	case s.CloudRedraw < 0:
		return invalid("cloud_redraw_interval %v is negative", s.CloudRedraw)
	}
	if _, err := c.cloudMode(); err != nil {
		return err
	}
	if _, err := c.ObservationWindow(); err != nil {
		return err
	}
	if _, err := c.Fineness(); err != nil {
		return err
	}
	if _, err := c.EarthModel(); err != nil {
		return err
	}
	if _, err := c.SharedCloud(); err != nil {
		return err
	}
	if _, err := periods.ParseUnit(c.Report.Unit); err != nil {
		return invalid("report unit: %v", err)
	}
	if len(c.Satellites) == 0 {
		return invalid("at least one satellite is required")
	}
	if _, err := c.SatelliteDefinitions(); err != nil {
		return err
	}
	if len(c.Polygons) == 0 && c.PolygonsGeoJSON == "" {
		return invalid("no polygons and no polygons_geojson")
	}
	if _, err := c.inlinePolygons(); err != nil {
		return err
	}
	return nil
}

func (c Config) cloudMode() (core.CloudMode, error) {
	switch strings.ToLower(c.Simulation.CloudMode) {
	case "", "shared":
		return core.CloudShared, nil
	case "per_polygon", "per-polygon":
		return core.CloudPerPolygon, nil
	default:
		return core.CloudShared, invalid("cloud_mode %q must be shared or per_polygon", c.Simulation.CloudMode)
	}
}

// ObservationWindow returns the configured window, or the whole year.
func (c Config) ObservationWindow() (timectrl.ObservationWindow, error) {
	if c.Window == nil {
		return timectrl.ObservationWindow{}, nil
	}
	w, err := timectrl.NewObservationWindow(c.Window.StartDay, c.Window.EndDay)
	if err != nil {
		return timectrl.ObservationWindow{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return w, nil
}

// Fineness returns the partition grid.
func (c Config) Fineness() (core.Fineness, error) {
	f := core.Fineness{LatStep: c.Partition.LatStepDeg, LongStep: c.Partition.LongStepDeg}
	if !(f.LatStep > 0) || !(f.LongStep > 0) {
		return f, invalid("partition steps %v, %v must be positive", f.LatStep, f.LongStep)
	}
	return f, nil
}

// EarthModel returns the configured ellipsoid, WGS-84 by default.
func (c Config) EarthModel() (geodesy.Ellipsoid, error) {
	if c.Ellipsoid == nil {
		return geodesy.WGS84, nil
	}
	e, err := geodesy.NewEllipsoid(c.Ellipsoid.A, c.Ellipsoid.C)
	if err != nil {
		return geodesy.Ellipsoid{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return e, nil
}

// Parameters returns the clock settings.
func (c Config) Parameters() (timectrl.Parameters, error) {
	w, err := c.ObservationWindow()
	if err != nil {
		return timectrl.Parameters{}, err
	}
	return timectrl.Parameters{
		Start:        c.Simulation.Start,
		End:          c.Simulation.End,
		Tick:         c.Simulation.Step,
		Window:       w,
		SolvePercent: c.Simulation.MinPercentForSolve,
	}, nil
}

// GateConfig returns the coverage gate settings.
func (c Config) GateConfig() (core.GateConfig, error) {
	mode, err := c.cloudMode()
	if err != nil {
		return core.GateConfig{}, err
	}
	g := core.DefaultGateConfig()
	if c.Simulation.MaxZenithDeg < 360 {
		g.MaxZenith = s1.Angle(c.Simulation.MaxZenithDeg) * s1.Degree
	}
	if c.Simulation.MaxCloudScore != nil {
		g.MaxCloudScore = *c.Simulation.MaxCloudScore
	} else {
		g.MaxCloudScore = math.MaxInt
	}
	g.PartialCloudiness = c.Simulation.PartialCloudiness
	g.CloudMode = mode
	g.CloudRedraw = c.Simulation.CloudRedraw
	return g, nil
}

// SharedCloud returns the shared cloud table, or nil when none is set.
func (c Config) SharedCloud() (*model.CloudTable, error) {
	return c.Cloud.table("cloud")
}

func (cl *Cloud) table(where string) (*model.CloudTable, error) {
	if cl == nil {
		return nil, nil
	}
	t, err := model.NewCloudTable(cl.Table, cl.Ranges)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, where, err)
	}
	return t, nil
}

// SatelliteDefinitions converts the satellites section.
func (c Config) SatelliteDefinitions() ([]*model.SatelliteDefinition, error) {
	out := make([]*model.SatelliteDefinition, 0, len(c.Satellites))
	for i, s := range c.Satellites {
		name := s.Name
		if name == "" {
			return nil, invalid("satellite %d has no name", i+1)
		}
		if !(s.SwathDeg > 0) || s.SwathDeg >= 180 {
			return nil, invalid("satellite %q swath_deg %v outside (0, 180)", name, s.SwathDeg)
		}
		def := &model.SatelliteDefinition{Name: name, HalfSwath: s1.Angle(s.SwathDeg/2) * s1.Degree}
		hasTLE := s.TLE1 != "" || s.TLE2 != ""
		switch {
		case hasTLE && s.Circular != nil:
			return nil, invalid("satellite %q has both a TLE and a circular orbit", name)
		case hasTLE:
			def.Source = model.OrbitSourceTLE
			def.TLE1, def.TLE2 = strings.TrimSpace(s.TLE1), strings.TrimSpace(s.TLE2)
		case s.Circular != nil:
			if !(s.Circular.AltitudeKm > 0) {
				return nil, invalid("satellite %q altitude_km %v must be positive", name, s.Circular.AltitudeKm)
			}
			epoch := s.Circular.Epoch
			if epoch.IsZero() {
				epoch = c.Simulation.Start
			}
			def.Source = model.OrbitSourceCircular
			def.Circular = model.CircularOrbit{
				Epoch:       epoch,
				AltitudeKm:  s.Circular.AltitudeKm,
				Inclination: s1.Angle(s.Circular.InclinationDeg) * s1.Degree,
				RAAN:        s1.Angle(s.Circular.RAANDeg) * s1.Degree,
				Phase:       s1.Angle(s.Circular.PhaseDeg) * s1.Degree,
			}
		default:
			return nil, invalid("satellite %q needs tle1/tle2 or a circular orbit", name)
		}
		out = append(out, def)
	}
	return out, nil
}

func (c Config) inlinePolygons() ([]*model.GroundPolygon, error) {
	out := make([]*model.GroundPolygon, 0, len(c.Polygons))
	for i, p := range c.Polygons {
		ring := make(orb.Ring, 0, len(p.Ring))
		for j, v := range p.Ring {
			if len(v) != 2 {
				return nil, invalid("polygon %d vertex %d has %d coordinates, want [lon, lat]", i+1, j+1, len(v))
			}
			ring = append(ring, orb.Point{v[0], v[1]})
		}
		gp, err := model.NewGroundPolygon(p.Name, ring)
		if err != nil {
			return nil, fmt.Errorf("%w: polygon %d: %w", ErrInvalidConfig, i+1, err)
		}
		if gp.Cloud, err = p.Cloud.table(fmt.Sprintf("polygon %d cloud", i+1)); err != nil {
			return nil, err
		}
		out = append(out, gp)
	}
	return out, nil
}

// GroundPolygons returns the inline polygons followed by those of
// PolygonsGeoJSON.
func (c Config) GroundPolygons() ([]*model.GroundPolygon, error) {
	polys, err := c.inlinePolygons()
	if err != nil {
		return nil, err
	}
	if c.PolygonsGeoJSON == "" {
		return polys, nil
	}
	more, err := polysource.LoadFile(c.PolygonsGeoJSON)
	if err != nil {
		return nil, err
	}
	return append(polys, more...), nil
}

// ReportUnit returns the parsed report unit.
func (c Config) ReportUnit() periods.Unit {
	u, err := periods.ParseUnit(c.Report.Unit)
	if err != nil {
		return periods.Hours
	}
	return u
}
