package timectrl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/coverage-simulator/internal/logging"
	"github.com/signalsfoundry/coverage-simulator/internal/observability"
	"github.com/signalsfoundry/coverage-simulator/kb"
)

// ErrInvalidParameters is returned by SetParameters for an unusable task.
var ErrInvalidParameters = errors.New("invalid simulation parameters")

// solveTolerance absorbs summation rounding in coverage percentages.
const solveTolerance = 1e-9

// StepResult is what a Stepper reports for one step.
type StepResult struct {
	From, To time.Time
	// Area is the captured area in km², counting every admitted segment once
	// per satellite that captured it.
	Area  float64
	Grabs int
	// Failures count satellites that contributed nothing because of an error.
	PropagationFailures int
	FootprintFailures   int
	// Close is the number of distinct polygons within reach of any satellite.
	Close int
}

// Stepper advances the simulated world over one interval.
type Stepper interface {
	Step(ctx context.Context, from, to time.Time) StepResult
	// Reset drops state that assumes contiguous steps.
	Reset()
}

// Parameters bound a run.
type Parameters struct {
	Start, End time.Time
	Tick       time.Duration
	Window     ObservationWindow
	// SolvePercent is the coverage percentage at which a multiplicity
	// bucket counts as solved.
	SolvePercent float64
}

func (p Parameters) validate() error {
	switch {
	case p.Tick <= 0:
		return fmt.Errorf("%w: step %v must be positive", ErrInvalidParameters, p.Tick)
	case !p.End.After(p.Start):
		return fmt.Errorf("%w: end %s not after start %s", ErrInvalidParameters, p.End, p.Start)
	case !(p.SolvePercent > 0) || p.SolvePercent > 100:
		return fmt.Errorf("%w: solve percentage %v outside (0, 100]", ErrInvalidParameters, p.SolvePercent)
	}
	return nil
}

// AreaSample is one entry of the scanned-area time series.
type AreaSample struct {
	Time time.Time
	Area float64
}

// EventLog is the record of a run. Growth omits steps that captured
// nothing; Solutions is strictly increasing.
type EventLog struct {
	Growth    []AreaSample
	Solutions []time.Time
}

// SimulationClock drives a Stepper over simulated time, skipping days
// outside the observation window, and owns the run's event log.
type SimulationClock struct {
	mu          sync.RWMutex
	params      Parameters
	currentTime time.Time
	log         EventLog

	stepper Stepper
	store   *kb.KnowledgeBase
	logger  logging.Logger
	metrics *observability.RunCollector

	listeners []func(StepResult)
}

// ClockOption configures a SimulationClock.
type ClockOption func(*SimulationClock)

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) ClockOption {
	return func(c *SimulationClock) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records run metrics into m.
func WithMetrics(m *observability.RunCollector) ClockOption {
	return func(c *SimulationClock) { c.metrics = m }
}

// NewSimulationClock constructs a clock. The event log is cleared whenever
// polygons or satellites are added to store.
func NewSimulationClock(stepper Stepper, store *kb.KnowledgeBase, params Parameters, opts ...ClockOption) (*SimulationClock, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	c := &SimulationClock{
		params:      params,
		currentTime: params.Start,
		stepper:     stepper,
		store:       store,
		logger:      logging.Noop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	store.Subscribe(func(ev kb.Event) {
		if ev.Type == kb.EventPolygonAdded || ev.Type == kb.EventSatelliteAdded {
			c.clearLog()
		}
	})
	return c, nil
}

// AddListener registers a callback invoked after every in-window step.
func (c *SimulationClock) AddListener(fn func(StepResult)) {
	c.listeners = append(c.listeners, fn)
}

// Now returns the current simulated time.
func (c *SimulationClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentTime
}

// Parameters returns the current run bounds.
func (c *SimulationClock) Parameters() Parameters {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.params
}

// SetParameters replaces the run bounds, clearing the event log and every
// grab counter.
func (c *SimulationClock) SetParameters(p Parameters) error {
	if err := p.validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.params = p
	c.currentTime = p.Start
	c.mu.Unlock()

	c.store.ClearGrabs()
	c.stepper.Reset()
	c.clearLog()
	return nil
}

// Log returns a copy of the event log.
func (c *SimulationClock) Log() EventLog {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return EventLog{
		Growth:    append([]AreaSample(nil), c.log.Growth...),
		Solutions: append([]time.Time(nil), c.log.Solutions...),
	}
}

func (c *SimulationClock) clearLog() {
	c.mu.Lock()
	c.log = EventLog{}
	c.mu.Unlock()
}

func (c *SimulationClock) setNow(t time.Time) {
	c.mu.Lock()
	c.currentTime = t
	c.mu.Unlock()
}

// Run simulates from the start to the end time. Cancelling ctx stops the
// loop between steps; the log collected so far stays valid and is returned
// together with ctx's error.
func (c *SimulationClock) Run(ctx context.Context) (EventLog, error) {
	p := c.Parameters()
	ctx, span := observability.Tracer("timectrl").Start(ctx, "clock.run")
	defer span.End()

	c.logger.Info(ctx, "simulation started",
		logging.Time("start", p.Start),
		logging.Time("end", p.End),
		logging.Duration("step", p.Tick),
	)

	t := p.Start
	steps := 0
	for t.Before(p.End) {
		if err := ctx.Err(); err != nil {
			c.logger.Warn(ctx, "simulation cancelled", logging.Time("at", t))
			return c.Log(), err
		}

		if !p.Window.Contains(t) {
			next := p.Window.NextStart(t)
			c.stepper.Reset()
			c.metrics.WindowSkip(next)
			c.logger.Info(ctx, "outside observation window; skipping",
				logging.Time("from", t),
				logging.Time("to", next),
			)
			t = next
			c.setNow(t)
			continue
		}

		to := t.Add(p.Tick)
		began := time.Now()
		res := c.stepper.Step(ctx, t, to)
		steps++
		c.metrics.ObserveStep(time.Since(began), res.Area, res.Grabs, to)
		c.metrics.StepFailures(observability.FailurePropagation, res.PropagationFailures)
		c.metrics.StepFailures(observability.FailureFootprint, res.FootprintFailures)

		if res.Area > 0 {
			if err := c.record(ctx, p, res); err != nil {
				span.RecordError(err)
				return c.Log(), err
			}
		}
		for _, fn := range c.listeners {
			fn(res)
		}
		t = to
		c.setNow(t)
	}

	out := c.Log()
	span.SetAttributes(
		attribute.Int("steps", steps),
		attribute.Int("solutions", len(out.Solutions)),
	)
	c.logger.Info(ctx, "simulation finished",
		logging.Int("steps", steps),
		logging.Int("growth_entries", len(out.Growth)),
		logging.Int("solutions", len(out.Solutions)),
	)
	return out, nil
}

// record appends a growth sample and, when the next multiplicity bucket
// reaches the solve threshold, a solution.
func (c *SimulationClock) record(ctx context.Context, p Parameters, res StepResult) error {
	coverage, err := c.store.Coverage(true)
	if err != nil {
		return err
	}
	c.metrics.SetCoverage(coverage)

	c.mu.Lock()
	c.log.Growth = append(c.log.Growth, AreaSample{Time: res.To, Area: res.Area})
	n := len(c.log.Solutions)
	solved := n < len(coverage) && coverage[n] >= p.SolvePercent-solveTolerance
	if solved {
		c.log.Solutions = append(c.log.Solutions, res.To)
	}
	c.mu.Unlock()

	if solved {
		c.metrics.Solution()
		c.logger.Info(ctx, "coverage threshold reached",
			logging.Int("multiplicity", n+1),
			logging.Float("percent", coverage[n]),
			logging.Time("at", res.To),
		)
	}
	return nil
}
