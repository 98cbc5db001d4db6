// Package recurrence computes the absolute UTC instant at which a
// reminder for a yearly recurring date must fire. It is pure: no I/O,
// no clock reads.
package recurrence

import (
	"fmt"
	"time"

	"github.com/remindly/birthday-engine/internal/domain"
)

// FireInstant computes when a reminder fires for the given target year.
//
// The local wall clock of the target zone is authoritative: the event
// anchors at local midnight of (targetYear, birth.Month, birth.Day), and
// the lead time is subtracted in wall-clock space, so the UTC offset in
// effect at the resulting wall time is the one applied. A lead time that
// crosses a DST edge therefore lands on the wall-clock instant the user
// expects, not a fixed-offset shift of the anchor.
//
// Two year-boundary corrections keep the result in the target year's
// bucket when the lead time spans New Year (only the first matching one
// applies):
//
//  1. the subtraction rolled the UTC year behind targetYear: the UTC
//     year is forced back to targetYear;
//  2. the UTC year matches but the zone-local calendar rolled behind:
//     the instant advances by one year.
//
// An unrecognized lead-time unit degrades to a zero-offset subtraction;
// domain.ParseFormula rejects such units at the configuration boundary,
// so this path is reachable only for hand-built formulas.
func FireInstant(birth domain.BirthDate, formula domain.Formula, targetYear int, timeZone string) (time.Time, error) {
	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", domain.ErrInvalidTimeZone, timeZone)
	}

	month := time.Month(birth.Month + 1)

	var fire time.Time
	switch formula.Unit {
	case domain.UnitMinutes:
		fire = time.Date(targetYear, month, birth.Day, 0, -formula.Magnitude, 0, 0, loc)
	case domain.UnitHours:
		fire = time.Date(targetYear, month, birth.Day, -formula.Magnitude, 0, 0, 0, loc)
	case domain.UnitDays:
		fire = time.Date(targetYear, month, birth.Day-formula.Magnitude, 0, 0, 0, 0, loc)
	case domain.UnitMonths:
		fire = time.Date(targetYear, month-time.Month(formula.Magnitude), birth.Day, 0, 0, 0, 0, loc)
	default:
		fire = time.Date(targetYear, month, birth.Day, 0, 0, 0, 0, loc)
	}

	utc := fire.UTC()

	switch {
	case utc.Year() < targetYear:
		utc = time.Date(targetYear, utc.Month(), utc.Day(),
			utc.Hour(), utc.Minute(), utc.Second(), utc.Nanosecond(), time.UTC)
	case utc.Year() == targetYear && fire.Year() < targetYear:
		utc = utc.AddDate(1, 0, 0)
	}

	return utc, nil
}
