// Package classifier buckets recurring series relative to "now" for dashboards and batch selection.
// Everything here is a pure read: no store access, no mutation of the input.
package classifier

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/recurring-ledger/internal/domain"
	"github.com/simaogato/recurring-ledger/internal/usecase/recurrence"
)

// Window configures the classification horizon
type Window struct {
	LookaheadDays  int
	MaxDaysOverdue *int // Optional: overdue series older than this are left out
}

// Classification holds the series bucketed by due date relative to today
type Classification struct {
	DueToday []*domain.RecurringSeries
	Upcoming []*domain.RecurringSeries
	Overdue  []*domain.RecurringSeries
}

// MissedExecution pairs a series with the number of occurrences it failed to produce
type MissedExecution struct {
	Series      *domain.RecurringSeries
	MissedCount int
}

// Impact is the monthly-equivalent cash flow of a set of series.
// Expenses is a positive magnitude; Net is Income - Expenses.
type Impact struct {
	Income   decimal.Decimal
	Expenses decimal.Decimal
	Net      decimal.Decimal
}

// Rounded returns the impact rounded to 2 decimals, for external reporting only
func (i Impact) Rounded() Impact {
	return Impact{
		Income:   i.Income.Round(2),
		Expenses: i.Expenses.Round(2),
		Net:      i.Net.Round(2),
	}
}

// IsSchedulable reports whether a series takes part in classification at now.
// Inactive and paused series are never due, nor is one whose pending occurrence is past its end date.
func IsSchedulable(s *domain.RecurringSeries, now time.Time) bool {
	return s.IsActive && !s.IsPausedAt(now) && !s.IsPastEnd()
}

// DaysUntilDue returns the whole calendar days from today to the due date.
// Zero means due today, negative means overdue.
func DaysUntilDue(s *domain.RecurringSeries, now time.Time) int {
	return recurrence.DaysBetween(now, s.DueDate)
}

// Classify buckets the schedulable series into due today, upcoming and overdue.
// Input order is preserved inside every bucket.
func Classify(series []*domain.RecurringSeries, now time.Time, window Window) Classification {
	var c Classification
	for _, s := range series {
		if s == nil || !IsSchedulable(s, now) {
			continue
		}

		days := DaysUntilDue(s, now)
		switch {
		case days == 0:
			c.DueToday = append(c.DueToday, s)
		case days > 0 && days <= window.LookaheadDays:
			c.Upcoming = append(c.Upcoming, s)
		case days < 0:
			if window.MaxDaysOverdue != nil && -days > *window.MaxDaysOverdue {
				continue
			}
			c.Overdue = append(c.Overdue, s)
		}
	}
	return c
}

// Missed returns max(0, expected - executed) for a series.
// Observation ends at the series end date when it has one, otherwise at now.
func Missed(s *domain.RecurringSeries, now time.Time) (int, error) {
	endOfObservation := now
	if s.EndDate != nil {
		endOfObservation = *s.EndDate
	}

	expected, err := recurrence.ExpectedOccurrences(s.Frequency, s.StartDate, endOfObservation)
	if err != nil {
		return 0, err
	}

	missed := expected - s.TotalExecutions
	if missed < 0 {
		return 0, nil
	}
	return missed, nil
}

// MissedExecutions lists series with at least one missed occurrence,
// most missed first, ties kept in input order
func MissedExecutions(series []*domain.RecurringSeries, now time.Time) ([]MissedExecution, error) {
	result := make([]MissedExecution, 0)
	for _, s := range series {
		if s == nil {
			continue
		}
		missed, err := Missed(s, now)
		if err != nil {
			return nil, err
		}
		if missed > 0 {
			result = append(result, MissedExecution{Series: s, MissedCount: missed})
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].MissedCount > result[j].MissedCount
	})

	return result, nil
}

// MonthlyImpact sums the monthly equivalents of all active series.
// Transfers move money between own accounts and are excluded. No rounding happens here.
func MonthlyImpact(series []*domain.RecurringSeries) Impact {
	income := decimal.Zero
	expenses := decimal.Zero

	for _, s := range series {
		if s == nil || !s.IsActive {
			continue
		}
		monthly := recurrence.ToMonthlyEquivalent(s.Amount, s.Frequency)
		switch s.Kind {
		case domain.KindIncome:
			income = income.Add(monthly)
		case domain.KindExpense:
			expenses = expenses.Add(monthly)
		}
	}

	return Impact{
		Income:   income,
		Expenses: expenses,
		Net:      income.Sub(expenses),
	}
}
