package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Failure kinds recorded by RunCollector.StepFailures.
const (
	FailurePropagation = "propagation"
	FailureFootprint   = "footprint"
)

// RunCollector bundles Prometheus metrics for a coverage simulation run.
// All methods are safe on a nil receiver.
type RunCollector struct {
	gatherer prometheus.Gatherer

	Steps         prometheus.Counter
	ScannedArea   prometheus.Counter
	Grabs         prometheus.Counter
	Solutions     prometheus.Counter
	WindowSkips   prometheus.Counter
	Failures      *prometheus.CounterVec
	StepDurations prometheus.Histogram
	Coverage      *prometheus.GaugeVec
	SimulatedTime prometheus.Gauge
}

// NewRunCollector registers run metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func NewRunCollector(reg prometheus.Registerer) (*RunCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	steps, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_steps_total",
		Help: "Simulation steps executed inside the observation window.",
	}), "sim_steps_total")
	if err != nil {
		return nil, err
	}
	area, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_scanned_area_km2_total",
		Help: "Ground area captured across all steps, counting repeats.",
	}), "sim_scanned_area_km2_total")
	if err != nil {
		return nil, err
	}
	grabs, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_segment_grabs_total",
		Help: "Successful segment captures.",
	}), "sim_segment_grabs_total")
	if err != nil {
		return nil, err
	}
	solutions, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_solutions_total",
		Help: "Times the coverage threshold was met for a new multiplicity.",
	}), "sim_solutions_total")
	if err != nil {
		return nil, err
	}
	skips, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_window_skips_total",
		Help: "Jumps over time outside the annual observation window.",
	}), "sim_window_skips_total")
	if err != nil {
		return nil, err
	}
	failures, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_step_failures_total",
		Help: "Satellite steps that contributed nothing because of a failure, labeled by kind.",
	}, []string{"kind"}), "sim_step_failures_total")
	if err != nil {
		return nil, err
	}
	durations, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_step_duration_seconds",
		Help:    "Wall-clock time spent computing one simulation step.",
		Buckets: []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}), "sim_step_duration_seconds")
	if err != nil {
		return nil, err
	}
	coverage, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_coverage_percent",
		Help: "Percentage of polygon area scanned at least n times.",
	}, []string{"multiplicity"}), "sim_coverage_percent")
	if err != nil {
		return nil, err
	}
	simTime, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_simulated_time_seconds",
		Help: "Current simulated time as a Unix timestamp.",
	}), "sim_simulated_time_seconds")
	if err != nil {
		return nil, err
	}

	return &RunCollector{
		gatherer:      gatherer,
		Steps:         steps,
		ScannedArea:   area,
		Grabs:         grabs,
		Solutions:     solutions,
		WindowSkips:   skips,
		Failures:      failures,
		StepDurations: durations,
		Coverage:      coverage,
		SimulatedTime: simTime,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *RunCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveStep records one in-window step.
func (c *RunCollector) ObserveStep(elapsed time.Duration, area float64, grabs int, at time.Time) {
	if c == nil {
		return
	}
	c.Steps.Inc()
	c.ScannedArea.Add(area)
	c.Grabs.Add(float64(grabs))
	c.StepDurations.Observe(elapsed.Seconds())
	c.SimulatedTime.Set(float64(at.Unix()))
}

// StepFailures adds n failures of the given kind.
func (c *RunCollector) StepFailures(kind string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.Failures.WithLabelValues(kind).Add(float64(n))
}

// WindowSkip records a jump to the next observation window.
func (c *RunCollector) WindowSkip(to time.Time) {
	if c == nil {
		return
	}
	c.WindowSkips.Inc()
	c.SimulatedTime.Set(float64(to.Unix()))
}

// Solution records a threshold crossing.
func (c *RunCollector) Solution() {
	if c == nil {
		return
	}
	c.Solutions.Inc()
}

// SetCoverage publishes per-multiplicity coverage percentages, indexed by n-1.
func (c *RunCollector) SetCoverage(percents []float64) {
	if c == nil {
		return
	}
	c.Coverage.Reset()
	for i, p := range percents {
		c.Coverage.WithLabelValues(strconv.Itoa(i + 1)).Set(p)
	}
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
