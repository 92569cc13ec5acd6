package periods

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownUnit is returned by ParseUnit for unrecognised names.
var ErrUnknownUnit = errors.New("unknown time unit")

// Unit is a reporting time unit. Months are 30 days and years 365 days.
type Unit int

const (
	Seconds Unit = iota
	Minutes
	Hours
	Days
	Weeks
	Months
	Years
	TenYears
)

var unitSeconds = [...]float64{
	Seconds:  1,
	Minutes:  60,
	Hours:    3600,
	Days:     86400,
	Weeks:    7 * 86400,
	Months:   30 * 86400,
	Years:    365 * 86400,
	TenYears: 3650 * 86400,
}

var unitNames = [...]string{
	Seconds:  "seconds",
	Minutes:  "minutes",
	Hours:    "hours",
	Days:     "days",
	Weeks:    "weeks",
	Months:   "months",
	Years:    "years",
	TenYears: "ten years",
}

var unitSymbols = [...]string{
	Seconds:  "s",
	Minutes:  "min",
	Hours:    "h",
	Days:     "d",
	Weeks:    "wk",
	Months:   "mo",
	Years:    "yr",
	TenYears: "10yr",
}

func (u Unit) valid() bool { return u >= Seconds && u <= TenYears }

// Seconds returns the length of one u in seconds. Invalid units count as
// one second.
func (u Unit) Seconds() float64 {
	if !u.valid() {
		return 1
	}
	return unitSeconds[u]
}

// String returns the unit's name as accepted by ParseUnit.
func (u Unit) String() string {
	if !u.valid() {
		return fmt.Sprintf("Unit(%d)", int(u))
	}
	return unitNames[u]
}

// Symbol returns a short label for tables and logs.
func (u Unit) Symbol() string {
	if !u.valid() {
		return "?"
	}
	return unitSymbols[u]
}

// ParseUnit accepts the unit names, case-insensitively; "ten_years" and
// "decades" are aliases of TenYears.
func ParseUnit(s string) (Unit, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "ten_years", "decades":
		return TenYears, nil
	case "":
		return Seconds, fmt.Errorf("%w: empty name", ErrUnknownUnit)
	}
	for u, n := range unitNames {
		if n == name {
			return Unit(u), nil
		}
	}
	return Seconds, fmt.Errorf("%w: %q", ErrUnknownUnit, s)
}

// ToUnit converts seconds into u.
func ToUnit(seconds float64, u Unit) float64 {
	return seconds / u.Seconds()
}
