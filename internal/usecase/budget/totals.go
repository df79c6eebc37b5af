// Package budget aggregates spending over budget periods.
package budget

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/recurring-ledger/internal/domain"
)

// BudgetSpec is the budget definition a period is measured against
type BudgetSpec struct {
	OwnerID    uuid.UUID
	Amount     decimal.Decimal
	Categories []string // Empty means every category counts
}

// Totals is the spending of one window
type Totals struct {
	TotalSpent       decimal.Decimal
	TotalSaved       decimal.Decimal
	CategorySpending map[string]decimal.Decimal
}

// ComputeTotals sums the owner's expenses in [start, end) that fall inside the budget categories.
// TotalSaved is clamped at zero.
func ComputeTotals(txs []*domain.Transaction, spec BudgetSpec, start, end time.Time) (Totals, error) {
	if end.Before(start) {
		return Totals{}, domain.NewValidationError("end_date", domain.ErrInvalidRange)
	}

	categories := make(map[string]struct{}, len(spec.Categories))
	for _, c := range spec.Categories {
		categories[c] = struct{}{}
	}

	totals := Totals{
		TotalSpent:       decimal.Zero,
		CategorySpending: make(map[string]decimal.Decimal),
	}

	for _, tx := range txs {
		if tx == nil || tx.OwnerID != spec.OwnerID || tx.Kind != domain.KindExpense {
			continue
		}
		if tx.Date.Before(start) || !tx.Date.Before(end) {
			continue
		}
		if len(categories) > 0 {
			if _, ok := categories[tx.Category]; !ok {
				continue
			}
		}

		amount := tx.AbsAmount()
		totals.TotalSpent = totals.TotalSpent.Add(amount)
		totals.CategorySpending[tx.Category] = totals.CategorySpending[tx.Category].Add(amount)
	}

	totals.TotalSaved = spec.Amount.Sub(totals.TotalSpent)
	if totals.TotalSaved.IsNegative() {
		totals.TotalSaved = decimal.Zero
	}

	return totals, nil
}
