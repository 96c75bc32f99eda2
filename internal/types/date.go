package types

import (
	"time"

	ierr "github.com/flexprice/subscriptions/internal/errors"
)

// NextBillingDate returns the billing date one cycle after from.
// The result is normalised to the start of the UTC day, and month based
// cycles clamp to the last day of the target month, so 2024-01-31 with a
// MONTHLY cycle becomes 2024-02-29.
func NextBillingDate(from time.Time, cycle BillingCycle) (time.Time, error) {
	start := StartOfDayUTC(from)

	switch cycle {
	case BillingCycleMonthly:
		return AddClampedDate(start, 0, 1, 0), nil
	case BillingCycleYearly:
		return AddClampedDate(start, 1, 0, 0), nil
	default:
		return start, ierr.NewErrorf("invalid billing cycle: %s", cycle).
			WithHint("Billing cycle must be MONTHLY or YEARLY").
			Mark(ierr.ErrValidation)
	}
}

// AddClampedDate adds years, months and days to t. When the resulting
// month is shorter than the day of t, the day is clamped to the last day
// of that month instead of overflowing into the next one.
func AddClampedDate(t time.Time, years, months, days int) time.Time {
	y, m, d := t.Date()
	h, min, sec := t.Clock()

	newY := y + years
	newM := time.Month(int(m) + months)

	for newM > 12 {
		newM -= 12
		newY++
	}
	for newM < 1 {
		newM += 12
		newY--
	}

	lastDay := DaysInMonth(newY, newM, t.Location())
	newD := d
	if newD > lastDay {
		newD = lastDay
	}

	return time.Date(newY, newM, newD, h, min, sec, t.Nanosecond(), t.Location()).AddDate(0, 0, days)
}

// DaysInMonth returns the number of days in the given month
func DaysInMonth(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// StartOfDayUTC truncates t to midnight of its UTC calendar day
func StartOfDayUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StartOfNextDayUTC returns midnight UTC of the day after t. Use it as an
// exclusive bound: Postgres rounds timestamps to microseconds, so an
// inclusive 23:59:59.999999999 bound would land on the next midnight.
func StartOfNextDayUTC(t time.Time) time.Time {
	return StartOfDayUTC(t).AddDate(0, 0, 1)
}
