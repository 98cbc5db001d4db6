package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Unit is the lead-time unit of a recurrence formula.
type Unit string

const (
	UnitMinutes Unit = "m"
	UnitHours   Unit = "h"
	UnitDays    Unit = "d"
	UnitMonths  Unit = "M"
)

func (u Unit) String() string { return string(u) }

func (u Unit) IsValid() bool {
	switch u {
	case UnitMinutes, UnitHours, UnitDays, UnitMonths:
		return true
	}
	return false
}

// Formula is a recurrence lead time: how long before the event a reminder
// fires, e.g. "3d" for three days before.
type Formula struct {
	Magnitude int  `json:"magnitude"`
	Unit      Unit `json:"unit"`
}

// ParseFormula parses the wire form "<magnitude><unit>", e.g. "3d", "20h".
// Unknown units are rejected here so persisted settings never carry one.
func ParseFormula(s string) (Formula, error) {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) < 2 {
		return Formula{}, fmt.Errorf("%w: invalid lead time %q", ErrValidation, s)
	}

	unit := Unit(trimmed[len(trimmed)-1:])
	if !unit.IsValid() {
		return Formula{}, fmt.Errorf("%w: unknown lead time unit in %q", ErrValidation, s)
	}

	magnitude, err := strconv.Atoi(trimmed[:len(trimmed)-1])
	if err != nil {
		return Formula{}, fmt.Errorf("%w: invalid lead time magnitude in %q", ErrValidation, s)
	}

	return Formula{Magnitude: magnitude, Unit: unit}, nil
}

func (f Formula) String() string {
	return fmt.Sprintf("%d%s", f.Magnitude, f.Unit)
}

func (f Formula) Validate() error {
	if !f.Unit.IsValid() {
		return fmt.Errorf("%w: unknown lead time unit %q", ErrValidation, f.Unit)
	}
	return nil
}
