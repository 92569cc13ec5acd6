package core

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/coverage-simulator/geodesy"
	"github.com/signalsfoundry/coverage-simulator/internal/logging"
	"github.com/signalsfoundry/coverage-simulator/internal/observability"
	"github.com/signalsfoundry/coverage-simulator/kb"
	"github.com/signalsfoundry/coverage-simulator/model"
	"github.com/signalsfoundry/coverage-simulator/timectrl"
)

type trackedSatellite struct {
	def  *model.SatelliteDefinition
	prop Propagator

	// trailing edge of the previous step, reused as the next leading edge
	trailing   Edge
	trailingAt time.Time
	hasEdge    bool
}

// SimulationEngine advances satellites, footprints and coverage one step at
// a time. It owns no clock; timectrl.SimulationClock drives it.
type SimulationEngine struct {
	KB         *kb.KnowledgeBase
	Footprints FootprintBuilder
	Gate       *CoverageGate

	log        logging.Logger
	satellites []*trackedSatellite
}

// EngineOption configures a SimulationEngine.
type EngineOption func(*SimulationEngine)

// WithEllipsoid sets the Earth model; the default is WGS-84.
func WithEllipsoid(e geodesy.Ellipsoid) EngineOption {
	return func(se *SimulationEngine) { se.Footprints.Ellipsoid = e }
}

// WithEarthRotation sets the inertial-to-Earth-fixed rotation angle. The
// default is geodesy.GMST, matching SGP4 output.
func WithEarthRotation(r geodesy.RotationAngle) EngineOption {
	return func(se *SimulationEngine) { se.Footprints.Earth = r }
}

// WithGate sets the coverage gate; the default admits everything.
func WithGate(g *CoverageGate) EngineOption {
	return func(se *SimulationEngine) { se.Gate = g }
}

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) EngineOption {
	return func(se *SimulationEngine) {
		if l != nil {
			se.log = l
		}
	}
}

// NewSimulationEngine constructs an engine over kb.
func NewSimulationEngine(store *kb.KnowledgeBase, opts ...EngineOption) *SimulationEngine {
	se := &SimulationEngine{
		KB: store,
		Footprints: FootprintBuilder{
			Ellipsoid: geodesy.WGS84,
			Earth:     geodesy.GMST,
		},
		log: logging.Noop(),
	}
	for _, opt := range opts {
		opt(se)
	}
	if se.Gate == nil {
		se.Gate = NewCoverageGate(DefaultGateConfig(), se.Footprints.Ellipsoid, nil, nil)
	}
	return se
}

// AddPolygon partitions p and stores it in the knowledge base.
func (se *SimulationEngine) AddPolygon(ctx context.Context, p *model.GroundPolygon, f Fineness) error {
	_, span := observability.Tracer("core").Start(ctx, "partition")
	defer span.End()

	if err := Partition(se.Footprints.Ellipsoid, p, f); err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttributes(
		attribute.String("polygon", p.Name),
		attribute.Int("segments", len(p.Segments)),
		attribute.Float64("area_km2", p.Area),
	)
	if err := se.KB.AddPolygon(p); err != nil {
		return err
	}
	se.log.Debug(ctx, "polygon partitioned",
		logging.String("polygon", p.Name),
		logging.Int("segments", len(p.Segments)),
		logging.Float("area_km2", p.Area),
	)
	return nil
}

// AddSatellite stores def and tracks it with prop. A nil prop is built
// from the definition with NewPropagator.
func (se *SimulationEngine) AddSatellite(def *model.SatelliteDefinition, prop Propagator) error {
	if prop == nil {
		var err error
		if prop, err = NewPropagator(def); err != nil {
			return err
		}
	}
	if err := se.KB.AddSatellite(def); err != nil {
		return err
	}
	se.satellites = append(se.satellites, &trackedSatellite{def: def, prop: prop})
	se.log.Debug(context.Background(), "satellite tracked",
		logging.String("satellite", def.Name),
		logging.Angle("half_swath", def.HalfSwath),
	)
	return nil
}

// Reset forgets cached swath edges and ends the cloud session. The clock
// calls it whenever simulated time jumps.
func (se *SimulationEngine) Reset() {
	for _, s := range se.satellites {
		s.hasEdge = false
	}
	se.Gate.Reset()
}

// Step advances every satellite from from to to and applies coverage. A
// satellite whose orbit or footprint cannot be computed contributes
// nothing to this step.
func (se *SimulationEngine) Step(ctx context.Context, from, to time.Time) timectrl.StepResult {
	res := timectrl.StepResult{From: from, To: to}
	polygons := se.KB.Polygons()

	type pass struct {
		sat    *trackedSatellite
		from   SatelliteState
		to     SatelliteState
		nearby []*model.GroundPolygon
	}
	passes := make([]pass, 0, len(se.satellites))
	seen := map[*model.GroundPolygon]struct{}{}
	var union []*model.GroundPolygon

	for _, sat := range se.satellites {
		s0, err := se.Footprints.State(sat.prop, from)
		if err == nil {
			var s1 SatelliteState
			s1, err = se.Footprints.State(sat.prop, to)
			if err == nil {
				p := pass{sat: sat, from: s0, to: s1}
				for _, poly := range polygons {
					if se.Gate.Close(s0, sat.def.HalfSwath, poly) || se.Gate.Close(s1, sat.def.HalfSwath, poly) {
						p.nearby = append(p.nearby, poly)
						if _, ok := seen[poly]; !ok {
							seen[poly] = struct{}{}
							union = append(union, poly)
						}
					}
				}
				passes = append(passes, p)
				continue
			}
		}
		sat.hasEdge = false
		res.PropagationFailures++
		se.log.Debug(ctx, "propagation failed; satellite skipped for step",
			logging.String("satellite", sat.def.Name),
			logging.Time("time", from),
			logging.Err(err),
		)
	}

	res.Close = len(union)
	se.Gate.BeginStep(to, timectrl.DayOfYear(to), union)

	for _, p := range passes {
		if len(p.nearby) == 0 {
			p.sat.hasEdge = false
			continue
		}
		swath, err := se.swath(p.sat, p.from, p.to)
		if err != nil {
			p.sat.hasEdge = false
			res.FootprintFailures++
			se.log.Debug(ctx, "footprint unavailable; satellite contributes nothing",
				logging.String("satellite", p.sat.def.Name),
				logging.Time("time", from),
				logging.Err(err),
			)
			continue
		}
		if !se.Gate.SunAllows(to, p.to.Geo) {
			continue
		}
		for _, poly := range p.nearby {
			if !se.Gate.Admit(poly) {
				continue
			}
			area, grabs := se.Gate.Scan(poly, swath)
			res.Area += area
			res.Grabs += grabs
		}
	}
	return res
}

func (se *SimulationEngine) swath(sat *trackedSatellite, from, to SatelliteState) (Swath, error) {
	lead := sat.trailing
	if !sat.hasEdge || !sat.trailingAt.Equal(from.Time) {
		var err error
		if lead, err = se.Footprints.Edge(from, sat.def.HalfSwath); err != nil {
			return Swath{}, err
		}
	}
	trail, err := se.Footprints.Edge(to, sat.def.HalfSwath)
	if err != nil {
		return Swath{}, err
	}
	sat.trailing, sat.trailingAt, sat.hasEdge = trail, to.Time, true
	return NewSwath(lead, trail), nil
}

// IsFatal reports whether err indicates malformed input that must abort a
// run rather than degrade a single step.
func IsFatal(err error) bool {
	return errors.Is(err, geodesy.ErrInvalidEllipsoid) ||
		errors.Is(err, model.ErrDegeneratePolygon) ||
		errors.Is(err, model.ErrEmptyPolygon) ||
		errors.Is(err, ErrInvalidFineness)
}
