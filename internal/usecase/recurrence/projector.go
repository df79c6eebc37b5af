// Package recurrence projects recurring series through time.
//
// Two date models live side by side here. ExpectedOccurrences counts periods with
// fixed day lengths (a month is 30 days) while AdvanceDueDate steps whole calendar
// months and years. The two are numerically inconsistent and both are relied on:
// the first feeds the historical missed-execution figures, the second reschedules.
package recurrence

import (
	"time"

	"github.com/simaogato/recurring-ledger/internal/domain"
)

// Fixed period lengths used for occurrence counting
const (
	weeklyDays   = 7
	biweeklyDays = 14
	monthlyDays  = 30
	yearlyDays   = 365
)

// PeriodLengthDays returns the approximate number of days in one period of f.
// Returns an error for once and for unsupported frequencies.
func PeriodLengthDays(f domain.Frequency) (int, error) {
	switch f {
	case domain.FrequencyWeekly:
		return weeklyDays, nil
	case domain.FrequencyBiweekly:
		return biweeklyDays, nil
	case domain.FrequencyMonthly:
		return monthlyDays, nil
	case domain.FrequencyYearly:
		return yearlyDays, nil
	}
	return 0, domain.NewValidationError("frequency", domain.ErrUnsupportedFrequency)
}

// DaysBetween returns the number of whole calendar days from start's date to end's date.
// Negative when end is before start.
func DaysBetween(start, end time.Time) int {
	return int(domain.DateOf(end).Sub(domain.DateOf(start)).Hours() / 24)
}

// ExpectedOccurrences returns how many times a series of frequency f should have fired
// in the window [start, end].
//
//   - once: 1 if the window is non-empty, else 0
//   - periodic: floor(days / period length), never negative
func ExpectedOccurrences(f domain.Frequency, start, end time.Time) (int, error) {
	if f == domain.FrequencyOnce {
		if DaysBetween(start, end) > 0 {
			return 1, nil
		}
		return 0, nil
	}

	period, err := PeriodLengthDays(f)
	if err != nil {
		return 0, err
	}

	days := DaysBetween(start, end)
	if days <= 0 {
		return 0, nil
	}
	return days / period, nil
}

// AdvanceDueDate moves due forward by exactly one period using calendar arithmetic.
// Months and years clamp to the last day of the target month (Jan 31 -> Feb 28/29).
// A once series has no next occurrence: due is returned unchanged.
func AdvanceDueDate(f domain.Frequency, due time.Time) (time.Time, error) {
	switch f {
	case domain.FrequencyOnce:
		return due, nil
	case domain.FrequencyWeekly:
		return due.AddDate(0, 0, weeklyDays), nil
	case domain.FrequencyBiweekly:
		return due.AddDate(0, 0, biweeklyDays), nil
	case domain.FrequencyMonthly:
		return addMonthsClamped(due, 1), nil
	case domain.FrequencyYearly:
		return addMonthsClamped(due, 12), nil
	}
	return time.Time{}, domain.NewValidationError("frequency", domain.ErrUnsupportedFrequency)
}

// addMonthsClamped adds n calendar months keeping the time of day and location,
// capping the day at the target month's length
func addMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()

	target := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	lastDay := time.Date(target.Year(), target.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(target.Year(), target.Month(), d, hh, mm, ss, t.Nanosecond(), t.Location())
}
