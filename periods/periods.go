// Package periods turns simulation event logs into revisit statistics:
// periods between events, their summary, histograms and binned growth.
package periods

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/signalsfoundry/coverage-simulator/timectrl"
)

// Periods returns the seconds between successive events. With a non-zero
// ref the first period runs from ref to the first event; otherwise the
// first event only opens the sequence. With skipOutside, time spent outside
// the observation window is not counted. events must be sorted.
func Periods(events []time.Time, ref time.Time, w timectrl.ObservationWindow, skipOutside bool) []float64 {
	if len(events) == 0 {
		return nil
	}
	prev := ref
	if ref.IsZero() {
		prev, events = events[0], events[1:]
	}
	out := make([]float64, 0, len(events))
	for _, t := range events {
		d := t.Sub(prev)
		if skipOutside {
			d -= w.OutsideDuration(prev, t)
		}
		out = append(out, d.Seconds())
		prev = t
	}
	return out
}

// Summary describes a list of periods in seconds. Variance and StdDev are
// population statistics.
type Summary struct {
	Count    int
	Mean     float64
	Median   float64
	Variance float64
	StdDev   float64
	Max      float64
	Min      float64
}

// Summarize computes the statistics of periods. An empty list yields the
// zero Summary.
func Summarize(periods []float64) Summary {
	if len(periods) == 0 {
		return Summary{}
	}
	mean, variance := stat.PopMeanVariance(periods, nil)
	return Summary{
		Count:    len(periods),
		Mean:     mean,
		Median:   median(periods),
		Variance: variance,
		StdDev:   math.Sqrt(variance),
		Max:      floats.Max(periods),
		Min:      floats.Min(periods),
	}
}

// InUnit converts every duration field of s into u. Variance is converted
// with the square of the unit.
func (s Summary) InUnit(u Unit) Summary {
	k := u.Seconds()
	return Summary{
		Count:    s.Count,
		Mean:     s.Mean / k,
		Median:   s.Median / k,
		Variance: s.Variance / (k * k),
		StdDev:   s.StdDev / k,
		Max:      s.Max / k,
		Min:      s.Min / k,
	}
}

// median averages the two middle values of an even-length list.
func median(x []float64) float64 {
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// OverflightStarts returns the start of each scanning session in growth.
// A session ends when consecutive samples are more than step apart.
func OverflightStarts(growth []timectrl.AreaSample, step time.Duration) []time.Time {
	if len(growth) == 0 {
		return nil
	}
	starts := []time.Time{growth[0].Time}
	for i := 1; i < len(growth); i++ {
		if growth[i].Time.Sub(growth[i-1].Time) > step {
			starts = append(starts, growth[i].Time)
		}
	}
	return starts
}

// MaxHistogramBins bounds the histogram length; longer periods share the
// last bin.
const MaxHistogramBins = 10000

// Histogram counts periods in bins one unit wide; bin i holds periods in
// [i, i+1) units. Periods of MaxHistogramBins-1 units or more fall in the
// last bin.
func Histogram(periods []float64, u Unit) []int {
	if len(periods) == 0 {
		return nil
	}
	width := u.Seconds()
	bins := make([]int, binIndex(floats.Max(periods), width)+1)
	for _, p := range periods {
		bins[binIndex(p, width)]++
	}
	return bins
}

// binIndex clamps in float space so huge or infinite periods never overflow
// the int conversion.
func binIndex(seconds, width float64) int {
	return int(math.Max(0, math.Min(math.Floor(seconds/width), MaxHistogramBins-1)))
}
