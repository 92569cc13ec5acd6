package main

import (
	"time"

	"github.com/signalsfoundry/coverage-simulator/internal/config"
	"github.com/signalsfoundry/coverage-simulator/kb"
	"github.com/signalsfoundry/coverage-simulator/periods"
	"github.com/signalsfoundry/coverage-simulator/timectrl"
)

type summaryJSON struct {
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	Variance float64 `json:"variance"`
	StdDev   float64 `json:"std_dev"`
	Max      float64 `json:"max"`
	Min      float64 `json:"min"`
}

type periodReport struct {
	// Periods are in the report unit.
	Periods   []float64   `json:"periods"`
	Summary   summaryJSON `json:"summary"`
	Histogram []int       `json:"histogram,omitempty"`
}

type binJSON struct {
	End        time.Time `json:"end"`
	AreaKm2    float64   `json:"area_km2"`
	Cumulative float64   `json:"cumulative_km2"`
}

type report struct {
	RunID   string    `json:"run_id"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Unit    string    `json:"unit"`
	Partial bool      `json:"partial,omitempty"`

	TotalAreaKm2    float64     `json:"total_area_km2"`
	CoveragePercent []float64   `json:"coverage_percent"`
	Solutions       []time.Time `json:"solutions"`

	SolutionPeriods periodReport `json:"solution_periods"`
	Overflights     periodReport `json:"overflight_periods"`
	Growth          []binJSON    `json:"growth"`
}

func newReport(cfg config.Config, p timectrl.Parameters, store *kb.KnowledgeBase, log timectrl.EventLog) (report, error) {
	coverage, err := store.Coverage(true)
	if err != nil {
		return report{}, err
	}
	unit := cfg.ReportUnit()
	skip := cfg.Report.SkipOutsideWindow

	rep := report{
		Start:           p.Start,
		End:             p.End,
		Unit:            unit.String(),
		TotalAreaKm2:    store.TotalArea(),
		CoveragePercent: coverage,
		Solutions:       log.Solutions,
		SolutionPeriods: newPeriodReport(periods.Periods(log.Solutions, p.Start, p.Window, skip), unit, cfg.Report.Histogram),
		Overflights: newPeriodReport(
			periods.Periods(periods.OverflightStarts(log.Growth, p.Tick), time.Time{}, p.Window, skip),
			unit, cfg.Report.Histogram),
	}
	for _, b := range periods.Bin(log.Growth, p.Start, p.End, unit, p.Window, skip) {
		rep.Growth = append(rep.Growth, binJSON{End: b.End, AreaKm2: b.Area, Cumulative: b.Cumulative})
	}
	return rep, nil
}

func newPeriodReport(seconds []float64, u periods.Unit, histogram bool) periodReport {
	s := periods.Summarize(seconds).InUnit(u)
	out := periodReport{
		Periods: make([]float64, len(seconds)),
		Summary: summaryJSON(s),
	}
	for i, v := range seconds {
		out.Periods[i] = periods.ToUnit(v, u)
	}
	if histogram {
		out.Histogram = periods.Histogram(seconds, u)
	}
	return out
}
