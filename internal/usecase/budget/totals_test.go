package budget

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/recurring-ledger/internal/domain"
)

var (
	periodStart = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
)

func expense(owner uuid.UUID, category string, amount int64, date time.Time) *domain.Transaction {
	return &domain.Transaction{
		ID:        uuid.New(),
		OwnerID:   owner,
		AccountID: uuid.New(),
		Amount:    decimal.NewFromInt(-amount),
		Kind:      domain.KindExpense,
		Category:  category,
		Date:      date,
	}
}

func TestComputeTotals(t *testing.T) {
	owner := uuid.New()
	mid := periodStart.AddDate(0, 0, 10)

	salary := expense(owner, "salary", -2000, mid)
	salary.Kind = domain.KindIncome
	salary.Amount = decimal.NewFromInt(2000)

	txs := []*domain.Transaction{
		expense(owner, "food", 300, mid),
		expense(owner, "food", 120, periodStart),
		expense(owner, "rent", 200, mid),
		expense(owner, "travel", 999, mid),
		expense(owner, "food", 50, periodEnd),                   // end is exclusive
		expense(owner, "food", 50, periodStart.Add(-time.Hour)), // before start
		expense(uuid.New(), "food", 75, mid),                    // other owner
		salary,
	}

	tests := []struct {
		name       string
		amount     int64
		categories []string
		wantSpent  string
		wantSaved  string
		wantByCat  map[string]string
	}{
		{
			name:       "overspent clamps saved at zero",
			amount:     500,
			categories: []string{"food", "rent"},
			wantSpent:  "620",
			wantSaved:  "0",
			wantByCat:  map[string]string{"food": "420", "rent": "200"},
		},
		{
			name:       "under budget",
			amount:     1000,
			categories: []string{"rent"},
			wantSpent:  "200",
			wantSaved:  "800",
			wantByCat:  map[string]string{"rent": "200"},
		},
		{
			name:      "empty category set counts everything",
			amount:    2000,
			wantSpent: "1619",
			wantSaved: "381",
			wantByCat: map[string]string{"food": "420", "rent": "200", "travel": "999"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals, err := ComputeTotals(txs, BudgetSpec{
				OwnerID:    owner,
				Amount:     decimal.NewFromInt(tt.amount),
				Categories: tt.categories,
			}, periodStart, periodEnd)
			require.NoError(t, err)

			assert.Equal(t, tt.wantSpent, totals.TotalSpent.String())
			assert.Equal(t, tt.wantSaved, totals.TotalSaved.String())

			got := make(map[string]string, len(totals.CategorySpending))
			for k, v := range totals.CategorySpending {
				got[k] = v.String()
			}
			assert.Equal(t, tt.wantByCat, got)
		})
	}
}

func TestComputeTotals_InvalidRange(t *testing.T) {
	_, err := ComputeTotals(nil, BudgetSpec{Amount: decimal.NewFromInt(1)}, periodEnd, periodStart)
	assert.ErrorIs(t, err, domain.ErrInvalidRange)

	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestComputeTotals_EmptyWindow(t *testing.T) {
	owner := uuid.New()
	totals, err := ComputeTotals([]*domain.Transaction{expense(owner, "food", 10, periodStart)},
		BudgetSpec{OwnerID: owner, Amount: decimal.NewFromInt(100)}, periodStart, periodStart)
	require.NoError(t, err)
	assert.True(t, totals.TotalSpent.IsZero())
	assert.Equal(t, "100", totals.TotalSaved.String())
}
