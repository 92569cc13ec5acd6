package timectrl

import (
	"errors"
	"testing"
	"time"
)

const day = 24 * time.Hour

func TestDayOfYear_LeapYearsUseNormalisedCalendar(t *testing.T) {
	cases := []struct {
		at   time.Time
		want int
	}{
		{time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC), 1},
		{time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC), 365},
		{time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC), 59},
		{time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), 59},
		{time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 60},
		{time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), 365},
	}
	for _, tc := range cases {
		if got := DayOfYear(tc.at); got != tc.want {
			t.Fatalf("DayOfYear(%s) = %d, want %d", tc.at, got, tc.want)
		}
	}
}

func TestDateFromDay(t *testing.T) {
	if got, want := DateFromDay(2024, 60), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("DateFromDay(2024, 60) = %s, want %s", got, want)
	}
	if got, want := DateFromDay(2023, 366), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("DateFromDay(2023, 366) = %s, want %s", got, want)
	}
	if got, want := DateFromDay(2024, 366), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("DateFromDay(2024, 366) = %s, want %s", got, want)
	}
}

func TestNewObservationWindow_RejectsOutOfRangeDays(t *testing.T) {
	for _, days := range [][2]int{{0, 10}, {10, 366}, {-1, -1}} {
		if _, err := NewObservationWindow(days[0], days[1]); !errors.Is(err, ErrInvalidWindow) {
			t.Fatalf("NewObservationWindow(%d, %d) err = %v, want ErrInvalidWindow", days[0], days[1], err)
		}
	}
}

func TestObservationWindow_Contains(t *testing.T) {
	plain, err := NewObservationWindow(100, 200)
	if err != nil {
		t.Fatalf("NewObservationWindow: %v", err)
	}
	wrap, err := NewObservationWindow(350, 10)
	if err != nil {
		t.Fatalf("NewObservationWindow: %v", err)
	}
	if !wrap.Wraps() || plain.Wraps() {
		t.Fatalf("unexpected wrap flags: plain %v, wrapping %v", plain.Wraps(), wrap.Wraps())
	}

	cases := []struct {
		w    ObservationWindow
		day  int
		want bool
	}{
		{plain, 99, false},
		{plain, 100, true},
		{plain, 200, true},
		{plain, 201, false},
		{wrap, 5, true},
		{wrap, 10, true},
		{wrap, 11, false},
		{wrap, 180, false},
		{wrap, 350, true},
		{wrap, 365, true},
		{ObservationWindow{}, 42, true},
	}
	for _, tc := range cases {
		at := DateFromDay(2023, tc.day).Add(13 * time.Hour)
		if got := tc.w.Contains(at); got != tc.want {
			s, e := tc.w.Days()
			t.Fatalf("window %d..%d Contains(day %d) = %v, want %v", s, e, tc.day, got, tc.want)
		}
	}
}

func TestObservationWindow_NextStart(t *testing.T) {
	w, _ := NewObservationWindow(100, 200)
	if got, want := w.NextStart(DateFromDay(2023, 50)), DateFromDay(2023, 100); !got.Equal(want) {
		t.Fatalf("NextStart before window = %s, want %s", got, want)
	}
	if got, want := w.NextStart(DateFromDay(2023, 250)), DateFromDay(2024, 100); !got.Equal(want) {
		t.Fatalf("NextStart after window = %s, want %s", got, want)
	}

	wrap, _ := NewObservationWindow(350, 10)
	if got, want := wrap.NextStart(DateFromDay(2023, 180)), DateFromDay(2023, 350); !got.Equal(want) {
		t.Fatalf("NextStart for wrapping window = %s, want %s", got, want)
	}
}

func TestObservationWindow_OutsideDuration(t *testing.T) {
	plain, _ := NewObservationWindow(100, 200)
	jan1 := DateFromDay(2023, 1)

	if got, want := plain.OutsideDuration(jan1, DateFromDay(2023, 150)), 99*day; got != want {
		t.Fatalf("outside before day 150 = %v, want %v", got, want)
	}
	if got, want := plain.OutsideDuration(jan1, DateFromDay(2024, 1)), (365-101)*day; got != want {
		t.Fatalf("outside over 2023 = %v, want %v", got, want)
	}
	if got := plain.OutsideDuration(DateFromDay(2023, 120), DateFromDay(2023, 130)); got != 0 {
		t.Fatalf("outside inside window = %v, want 0", got)
	}

	wrap, _ := NewObservationWindow(350, 10)
	if got, want := wrap.OutsideDuration(jan1, DateFromDay(2024, 1)), 339*day; got != want {
		t.Fatalf("wrapping outside over 2023 = %v, want %v", got, want)
	}

	if got := (ObservationWindow{}).OutsideDuration(jan1, DateFromDay(2024, 1)); got != 0 {
		t.Fatalf("unset window outside = %v, want 0", got)
	}
}
