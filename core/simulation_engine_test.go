package core

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/golang/geo/s1"

	"github.com/signalsfoundry/coverage-simulator/geodesy"
	"github.com/signalsfoundry/coverage-simulator/geometry"
	"github.com/signalsfoundry/coverage-simulator/kb"
	"github.com/signalsfoundry/coverage-simulator/model"
	"github.com/signalsfoundry/coverage-simulator/timectrl"
)

var _ timectrl.Stepper = (*SimulationEngine)(nil)

type failingPropagator struct{}

func (failingPropagator) PositionVelocity(time.Time) (geometry.Vector3, geometry.Vector3, error) {
	return geometry.Vector3{}, geometry.Vector3{}, ErrPropagation
}

// equatorPass sets up a polar satellite crossing the equator at (0, 0) at
// cross, with the Earth rotating uniformly from zero at that instant.
func equatorPass(t *testing.T, cross time.Time) (*SimulationEngine, *kb.KnowledgeBase, *CircularPropagator) {
	t.Helper()
	return polarOrbiter(t, cross, geodesy.EarthRotationRate)
}

// polarOrbiter is equatorPass with the Earth turning at rate rad/s. A zero
// rate repeats the ground track every orbit.
func polarOrbiter(t *testing.T, cross time.Time, rate float64) (*SimulationEngine, *kb.KnowledgeBase, *CircularPropagator) {
	t.Helper()
	store := kb.NewKnowledgeBase()
	engine := NewSimulationEngine(store,
		WithEarthRotation(geodesy.UniformRotation(cross, 0, rate)),
	)

	target := mustPolygon(t, "target", square(0, 0, 0.5))
	if err := engine.AddPolygon(context.Background(), target, Fineness{LatStep: 0.05, LongStep: 0.05}); err != nil {
		t.Fatalf("AddPolygon: %v", err)
	}

	orbit := model.CircularOrbit{Epoch: cross, AltitudeKm: 700, Inclination: 90 * s1.Degree}
	prop, err := NewCircularPropagator(orbit)
	if err != nil {
		t.Fatalf("NewCircularPropagator: %v", err)
	}
	def := &model.SatelliteDefinition{
		Name:      "polar-1",
		Source:    model.OrbitSourceCircular,
		Circular:  orbit,
		HalfSwath: 10 * s1.Degree,
	}
	if err := engine.AddSatellite(def, prop); err != nil {
		t.Fatalf("AddSatellite: %v", err)
	}
	return engine, store, prop
}

func TestSimulationEngine_PolarPassCoversTargetOnce(t *testing.T) {
	cross := time.Date(2023, 3, 20, 12, 0, 0, 0, time.UTC)
	engine, store, prop := equatorPass(t, cross)

	start := cross.Add(-prop.Period() / 2)
	params := timectrl.Parameters{
		Start:        start,
		End:          start.Add(5 * prop.Period()),
		Tick:         10 * time.Second,
		SolvePercent: 100,
	}
	clock, err := timectrl.NewSimulationClock(engine, store, params)
	if err != nil {
		t.Fatalf("NewSimulationClock: %v", err)
	}
	log, err := clock.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	coverage, err := store.Coverage(true)
	if err != nil {
		t.Fatalf("Coverage: %v", err)
	}
	if len(coverage) != 1 {
		t.Fatalf("coverage by multiplicity = %v, want exactly one full pass", coverage)
	}
	if math.Abs(coverage[0]-100) > 1e-6 {
		t.Fatalf("single coverage = %.6f%%, want 100%%", coverage[0])
	}
	if len(log.Solutions) != 1 {
		t.Fatalf("solutions = %v, want one", log.Solutions)
	}
	if d := log.Solutions[0].Sub(cross); d < 0 || d > time.Minute {
		t.Fatalf("solution at %s, want shortly after the equator crossing at %s", log.Solutions[0], cross)
	}
	if len(log.Growth) == 0 {
		t.Fatalf("expected area growth entries")
	}
	for _, g := range log.Growth {
		if g.Time.Sub(cross).Abs() > 2*time.Minute {
			t.Fatalf("area captured at %s, far from the only pass", g.Time)
		}
	}
}

func TestSimulationEngine_RepeatedPassesOnlyAccumulate(t *testing.T) {
	cross := time.Date(2023, 3, 20, 12, 0, 0, 0, time.UTC)
	engine, store, prop := polarOrbiter(t, cross, 0)

	start := cross.Add(-prop.Period() / 2)
	params := timectrl.Parameters{
		Start:        start,
		End:          start.Add(5 * prop.Period()),
		Tick:         10 * time.Second,
		SolvePercent: 100,
	}
	clock, err := timectrl.NewSimulationClock(engine, store, params)
	if err != nil {
		t.Fatalf("NewSimulationClock: %v", err)
	}

	var prev []int
	clock.AddListener(func(res timectrl.StepResult) {
		var grabs []int
		for _, p := range store.Polygons() {
			for _, seg := range p.Segments {
				grabs = append(grabs, seg.Grabs)
			}
		}
		for i := range prev {
			if grabs[i] < prev[i] {
				t.Errorf("segment %d grabs fell from %d to %d at %s", i, prev[i], grabs[i], res.To)
			}
		}
		prev = grabs
	})

	log, err := clock.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	coverage, err := store.Coverage(true)
	if err != nil {
		t.Fatalf("Coverage: %v", err)
	}
	if len(coverage) != 5 {
		t.Fatalf("coverage by multiplicity = %v, want five passes", coverage)
	}
	if len(log.Solutions) > len(coverage) {
		t.Fatalf("%d solutions for %d multiplicities", len(log.Solutions), len(coverage))
	}
	if len(log.Solutions) != 5 {
		t.Fatalf("solutions = %v, want one per pass", log.Solutions)
	}
	for i := 1; i < len(log.Solutions); i++ {
		if !log.Solutions[i].After(log.Solutions[i-1]) {
			t.Fatalf("solutions not strictly increasing: %v", log.Solutions)
		}
	}
}

func TestSimulationEngine_StepReportsPropagationFailures(t *testing.T) {
	cross := time.Date(2023, 3, 20, 12, 0, 0, 0, time.UTC)
	engine, store, _ := equatorPass(t, cross)

	broken := &model.SatelliteDefinition{Name: "broken", HalfSwath: 10 * s1.Degree}
	if err := engine.AddSatellite(broken, failingPropagator{}); err != nil {
		t.Fatalf("AddSatellite: %v", err)
	}

	res := engine.Step(context.Background(), cross.Add(-10*time.Second), cross.Add(10*time.Second))
	if res.PropagationFailures != 1 {
		t.Fatalf("propagation failures = %d, want 1", res.PropagationFailures)
	}
	if res.Close != 1 {
		t.Fatalf("close polygons = %d, want 1", res.Close)
	}
	if res.Grabs == 0 || res.Area <= 0 {
		t.Fatalf("healthy satellite captured nothing: %+v", res)
	}
	total := 0.0
	for _, p := range store.Polygons() {
		for _, s := range p.Segments {
			if s.Grabs > 0 {
				total += s.Area
			}
		}
	}
	if math.Abs(total-res.Area) > 1e-6 {
		t.Fatalf("step area %v differs from grabbed segment area %v", res.Area, total)
	}
}

func TestSimulationEngine_CloudsBlockCapture(t *testing.T) {
	cross := time.Date(2023, 3, 20, 12, 0, 0, 0, time.UTC)
	cfg := DefaultGateConfig()
	cfg.MaxCloudScore = 0
	gate := NewCoverageGate(cfg, geodesy.WGS84, certainTable(t, 1, 2), nil)

	store := kb.NewKnowledgeBase()
	engine := NewSimulationEngine(store,
		WithGate(gate),
		WithEarthRotation(geodesy.UniformRotation(cross, 0, geodesy.EarthRotationRate)),
	)
	if err := engine.AddPolygon(context.Background(), mustPolygon(t, "", square(0, 0, 0.5)), Fineness{LatStep: 0.1, LongStep: 0.1}); err != nil {
		t.Fatalf("AddPolygon: %v", err)
	}
	def := &model.SatelliteDefinition{
		Name:      "polar-1",
		Source:    model.OrbitSourceCircular,
		Circular:  model.CircularOrbit{Epoch: cross, AltitudeKm: 700, Inclination: 90 * s1.Degree},
		HalfSwath: 10 * s1.Degree,
	}
	if err := engine.AddSatellite(def, nil); err != nil {
		t.Fatalf("AddSatellite: %v", err)
	}

	res := engine.Step(context.Background(), cross.Add(-10*time.Second), cross.Add(10*time.Second))
	if res.Close != 1 || res.Grabs != 0 {
		t.Fatalf("overcast step = %+v, want one close polygon and no grabs", res)
	}
	if name := store.Polygons()[0].Name; name != "Polygon 1" {
		t.Fatalf("auto name = %q, want Polygon 1", name)
	}
}

func TestSimulationEngine_AddErrors(t *testing.T) {
	store := kb.NewKnowledgeBase()
	engine := NewSimulationEngine(store)

	def := &model.SatelliteDefinition{Name: "dup", Source: model.OrbitSourceCircular, Circular: model.CircularOrbit{AltitudeKm: 500}}
	if err := engine.AddSatellite(def, nil); err != nil {
		t.Fatalf("AddSatellite: %v", err)
	}
	if err := engine.AddSatellite(def, nil); !errors.Is(err, kb.ErrSatelliteExists) {
		t.Fatalf("duplicate satellite err = %v, want ErrSatelliteExists", err)
	}
	if err := engine.AddSatellite(&model.SatelliteDefinition{Name: "none"}, nil); !errors.Is(err, ErrPropagation) {
		t.Fatalf("sourceless satellite err = %v, want ErrPropagation", err)
	}

	err := engine.AddPolygon(context.Background(), mustPolygon(t, "bad", square(0, 0, 0.5)), Fineness{})
	if !errors.Is(err, ErrInvalidFineness) || !IsFatal(err) {
		t.Fatalf("zero fineness err = %v, want fatal ErrInvalidFineness", err)
	}
	if IsFatal(ErrPropagation) {
		t.Fatalf("propagation errors only degrade a step")
	}
}
