package plan

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Unit is the measure of an exercise's quantity. The set of units is closed; weight units are deliberately absent
// because plans are bodyweight and cardio only.
type Unit string

const (
	UnitReps       Unit = "reps"
	UnitSeconds    Unit = "seconds"
	UnitMinutes    Unit = "minutes"
	UnitHours      Unit = "hours"
	UnitMeters     Unit = "meters"
	UnitYards      Unit = "yards"
	UnitFeet       Unit = "feet"
	UnitKilometers Unit = "kilometers"
	UnitMiles      Unit = "miles"
	UnitSteps      Unit = "steps"
	UnitLaps       Unit = "laps"
)

var ErrInvalidUnit = errors.New("invalid exercise unit")

//nolint:gochecknoglobals // closed enumeration.
var units = []Unit{
	UnitReps, UnitSeconds, UnitMinutes, UnitHours, UnitMeters, UnitYards,
	UnitFeet, UnitKilometers, UnitMiles, UnitSteps, UnitLaps,
}

// Units returns all valid units in their canonical order.
func Units() []Unit {
	return slices.Clone(units)
}

// Valid reports whether u is one of the eleven known units.
func (u Unit) Valid() bool {
	return slices.Contains(units, u)
}

// ParseUnit accepts a unit name case-insensitively, ignoring surrounding whitespace.
func ParseUnit(s string) (Unit, error) {
	u := Unit(strings.ToLower(strings.TrimSpace(s)))
	if !u.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidUnit, s)
	}
	return u, nil
}

// UnmarshalText rejects unknown units so that persisted plans can't smuggle in invalid values.
func (u *Unit) UnmarshalText(text []byte) error {
	parsed, err := ParseUnit(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// MarshalText is the inverse of [Unit.UnmarshalText].
func (u Unit) MarshalText() ([]byte, error) {
	if !u.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidUnit, string(u))
	}
	return []byte(u), nil
}
