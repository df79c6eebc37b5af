package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/recurring-ledger/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var allFrequencies = []domain.Frequency{
	domain.FrequencyOnce,
	domain.FrequencyWeekly,
	domain.FrequencyBiweekly,
	domain.FrequencyMonthly,
	domain.FrequencyYearly,
}

func TestExpectedOccurrences(t *testing.T) {
	tests := []struct {
		name      string
		frequency domain.Frequency
		start     time.Time
		end       time.Time
		want      int
	}{
		{"once with non-empty window", domain.FrequencyOnce, date(2024, 1, 1), date(2024, 1, 2), 1},
		{"once with reversed window", domain.FrequencyOnce, date(2024, 1, 2), date(2024, 1, 1), 0},
		{"weekly over 20 days", domain.FrequencyWeekly, date(2024, 1, 1), date(2024, 1, 21), 2},
		{"weekly exactly two weeks", domain.FrequencyWeekly, date(2024, 1, 1), date(2024, 1, 15), 2},
		{"biweekly over 41 days", domain.FrequencyBiweekly, date(2024, 1, 1), date(2024, 2, 11), 2},
		{"monthly Jan to Apr 2024 is floor(91/30)", domain.FrequencyMonthly, date(2024, 1, 1), date(2024, 4, 1), 3},
		{"monthly day count drift over a full year", domain.FrequencyMonthly, date(2023, 1, 1), date(2024, 1, 1), 12},
		{"monthly over 29 days", domain.FrequencyMonthly, date(2024, 2, 1), date(2024, 3, 1), 0},
		{"yearly leap year window", domain.FrequencyYearly, date(2024, 1, 1), date(2025, 1, 1), 1},
		{"yearly short window", domain.FrequencyYearly, date(2023, 1, 1), date(2023, 12, 31), 0},
		{"periodic reversed window", domain.FrequencyWeekly, date(2024, 3, 1), date(2024, 1, 1), 0},
		{"time of day is ignored", domain.FrequencyWeekly, time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC), time.Date(2024, 1, 8, 1, 0, 0, 0, time.UTC), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpectedOccurrences(tt.frequency, tt.start, tt.end)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpectedOccurrences_EmptyWindowIsZero(t *testing.T) {
	d := date(2024, 6, 15)
	for _, f := range allFrequencies {
		t.Run(string(f), func(t *testing.T) {
			got, err := ExpectedOccurrences(f, d, d)
			require.NoError(t, err)
			assert.Equal(t, 0, got)
		})
	}
}

func TestExpectedOccurrences_UnsupportedFrequency(t *testing.T) {
	_, err := ExpectedOccurrences(domain.Frequency("daily"), date(2024, 1, 1), date(2024, 2, 1))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFrequency)
}

func TestAdvanceDueDate(t *testing.T) {
	tests := []struct {
		name      string
		frequency domain.Frequency
		due       time.Time
		want      time.Time
	}{
		{"weekly adds 7 days", domain.FrequencyWeekly, date(2024, 1, 29), date(2024, 2, 5)},
		{"biweekly adds 14 days", domain.FrequencyBiweekly, date(2024, 12, 25), date(2025, 1, 8)},
		{"monthly adds a calendar month", domain.FrequencyMonthly, date(2024, 1, 15), date(2024, 2, 15)},
		{"monthly clamps to leap February", domain.FrequencyMonthly, date(2024, 1, 31), date(2024, 2, 29)},
		{"monthly clamps to short February", domain.FrequencyMonthly, date(2023, 1, 31), date(2023, 2, 28)},
		{"monthly clamps to 30 day month", domain.FrequencyMonthly, date(2024, 3, 31), date(2024, 4, 30)},
		{"monthly crosses the year", domain.FrequencyMonthly, date(2024, 12, 10), date(2025, 1, 10)},
		{"yearly adds a calendar year", domain.FrequencyYearly, date(2024, 3, 1), date(2025, 3, 1)},
		{"yearly clamps leap day", domain.FrequencyYearly, date(2024, 2, 29), date(2025, 2, 28)},
		{"once does not move", domain.FrequencyOnce, date(2024, 5, 5), date(2024, 5, 5)},
		{"time of day is kept", domain.FrequencyMonthly, time.Date(2024, 1, 31, 9, 30, 0, 0, time.UTC), time.Date(2024, 2, 29, 9, 30, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AdvanceDueDate(tt.frequency, tt.due)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestAdvanceDueDate_NeverMovesBackwards(t *testing.T) {
	starts := []time.Time{date(2024, 1, 31), date(2024, 2, 29), date(2023, 12, 31), date(2024, 6, 1)}

	for _, f := range allFrequencies {
		for _, start := range starts {
			current := start
			for i := 0; i < 30; i++ {
				next, err := AdvanceDueDate(f, current)
				require.NoError(t, err)
				assert.False(t, next.Before(start), "%s from %s went before start at step %d", f, start, i)
				assert.False(t, next.Before(current), "%s from %s moved backwards at step %d", f, start, i)
				current = next
			}
		}
	}
}

func TestAdvanceDueDate_UnsupportedFrequency(t *testing.T) {
	_, err := AdvanceDueDate(domain.Frequency("quarterly"), date(2024, 1, 1))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFrequency)
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 91, DaysBetween(date(2024, 1, 1), date(2024, 4, 1)))
	assert.Equal(t, -1, DaysBetween(date(2024, 1, 2), date(2024, 1, 1)))
	assert.Equal(t, 0, DaysBetween(time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC), time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC)))
}
