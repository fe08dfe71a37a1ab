package generic

import (
	"strconv"
	"time"
)

// =============================================================================
// PERIOD - The key under which a variable value is recorded
// =============================================================================

// PeriodType defines the calendar granularity of a variable.
//
// Examples (clock at 2025-03-14):
//   - MONTH:     "2025-03"
//   - YEAR:      "2025"
//   - LAST_YEAR: "2024" (fiscal data declared for the previous year)
//   - ETERNITY:  "ETERNITY" (birth date, constants)
type PeriodType string

const (
	PeriodMonth    PeriodType = "MONTH"
	PeriodYear     PeriodType = "YEAR"
	PeriodLastYear PeriodType = "LAST_YEAR"
	PeriodEternity PeriodType = "ETERNITY"
)

// EternityPeriod is the period string of time-independent variables.
const EternityPeriod = "ETERNITY"

// Valid reports whether pt is a known period type.
func (pt PeriodType) Valid() bool {
	switch pt {
	case PeriodMonth, PeriodYear, PeriodLastYear, PeriodEternity:
		return true
	}
	return false
}

// Format returns the period string of pt for the given date.
func (pt PeriodType) Format(at time.Time) string {
	switch pt {
	case PeriodMonth:
		return at.Format("2006-01")
	case PeriodYear:
		return strconv.Itoa(at.Year())
	case PeriodLastYear:
		return strconv.Itoa(at.Year() - 1)
	case PeriodEternity:
		return EternityPeriod
	default:
		// Unknown types fall back to the month, the engine's finest granularity.
		return at.Format("2006-01")
	}
}

// =============================================================================
// CLOCK
// =============================================================================

// Clock returns the reference date of a compilation. Injected so that
// compilations are reproducible.
type Clock func() time.Time

// SystemClock returns the current UTC time.
func SystemClock() time.Time { return time.Now().UTC() }

// FixedClock returns a clock that always answers t.
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// StartOfNextMonth returns the first day of the month following at.
func StartOfNextMonth(at time.Time) time.Time {
	return time.Date(at.Year(), at.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}
