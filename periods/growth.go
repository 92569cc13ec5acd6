package periods

import (
	"time"

	"github.com/signalsfoundry/coverage-simulator/timectrl"
)

// GrowthBin is the area captured in (End-width, End].
type GrowthBin struct {
	End        time.Time
	Area       float64
	Cumulative float64
}

// Bin aggregates growth into consecutive one-unit bins from from to to.
// The last bin is shortened to end at to. Samples are stamped with their
// step's end time, so each bin includes its end and excludes its start.
// With skipOutside, bins ending on a day outside w are dropped and do not
// add to the cumulative total.
func Bin(growth []timectrl.AreaSample, from, to time.Time, u Unit, w timectrl.ObservationWindow, skipOutside bool) []GrowthBin {
	if !to.After(from) {
		return nil
	}
	width := time.Duration(u.Seconds() * float64(time.Second))
	var out []GrowthBin
	total := 0.0
	i := 0
	for start := from; start.Before(to); start = start.Add(width) {
		end := start.Add(width)
		if end.After(to) {
			end = to
		}
		area := 0.0
		for i < len(growth) && !growth[i].Time.After(end) {
			if growth[i].Time.After(start) {
				area += growth[i].Area
			}
			i++
		}
		if skipOutside && !w.Contains(end) {
			continue
		}
		total += area
		out = append(out, GrowthBin{End: end, Area: area, Cumulative: total})
	}
	return out
}
