package timectrl

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidWindow is returned for day numbers outside 1..365.
var ErrInvalidWindow = errors.New("invalid observation window")

// DaysPerYear is the length of the normalised calendar.
const DaysPerYear = 365

// IsLeap reports whether year has a 29th of February.
func IsLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DayOfYear returns t's day in a 365-day calendar (1..365). In leap years
// 29 February shares day 59 with 28 February and later days shift back one.
func DayOfYear(t time.Time) int {
	t = t.UTC()
	d := t.YearDay()
	if IsLeap(t.Year()) && d >= 60 {
		d--
	}
	return d
}

// DateFromDay returns 00:00 UTC of the given 365-calendar day in year. Day
// 366 is 1 January of the following year.
func DateFromDay(year, day int) time.Time {
	if IsLeap(year) && day >= 60 {
		day++
	}
	return time.Date(year, time.January, day, 0, 0, 0, 0, time.UTC)
}

// ObservationWindow is an annual range of 365-calendar days, both ends
// inclusive. The zero value covers the whole year.
type ObservationWindow struct {
	start, end int
	wraps      bool
}

// NewObservationWindow builds a window from start to end. A start after end
// wraps across the new year.
func NewObservationWindow(start, end int) (ObservationWindow, error) {
	if start < 1 || start > DaysPerYear || end < 1 || end > DaysPerYear {
		return ObservationWindow{}, fmt.Errorf("%w: days %d..%d must be within 1..%d", ErrInvalidWindow, start, end, DaysPerYear)
	}
	return ObservationWindow{start: start, end: end, wraps: end < start}, nil
}

// IsSet reports whether the window restricts the year at all.
func (w ObservationWindow) IsSet() bool { return w.start != 0 }

// Wraps reports whether the window crosses the year boundary.
func (w ObservationWindow) Wraps() bool { return w.wraps }

// Days returns the first and last day of the window.
func (w ObservationWindow) Days() (start, end int) { return w.start, w.end }

// Contains reports whether t falls on a day inside the window.
func (w ObservationWindow) Contains(t time.Time) bool {
	if !w.IsSet() {
		return true
	}
	d := DayOfYear(t)
	if w.wraps {
		return d >= w.start || d <= w.end
	}
	return d >= w.start && d <= w.end
}

// Start returns 00:00 UTC of the window's first day in year.
func (w ObservationWindow) Start(year int) time.Time {
	if !w.IsSet() {
		return DateFromDay(year, 1)
	}
	return DateFromDay(year, w.start)
}

// End returns the exclusive end of the window occurrence that ends in year:
// 00:00 UTC of the day after its last day.
func (w ObservationWindow) End(year int) time.Time {
	if !w.IsSet() {
		return DateFromDay(year, DaysPerYear+1)
	}
	return DateFromDay(year, w.end+1)
}

// NextStart returns the first window start strictly after t.
func (w ObservationWindow) NextStart(t time.Time) time.Time {
	t = t.UTC()
	s := w.Start(t.Year())
	if !s.After(t) {
		s = w.Start(t.Year() + 1)
	}
	return s
}

// OutsideDuration returns how much of [from, to) lies outside the window.
func (w ObservationWindow) OutsideDuration(from, to time.Time) time.Duration {
	if !w.IsSet() || !to.After(from) {
		return 0
	}
	var total time.Duration
	for y := from.UTC().Year() - 1; y <= to.UTC().Year(); y++ {
		var g0, g1 time.Time
		if w.wraps {
			g0, g1 = w.End(y), w.Start(y)
		} else {
			g0, g1 = w.End(y), w.Start(y+1)
		}
		total += overlap(from, to, g0, g1)
	}
	return total
}

func overlap(a0, a1, b0, b1 time.Time) time.Duration {
	lo, hi := a0, a1
	if b0.After(lo) {
		lo = b0
	}
	if b1.Before(hi) {
		hi = b1
	}
	if !hi.After(lo) {
		return 0
	}
	return hi.Sub(lo)
}
