package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BudgetPeriod is an accounting window for a budget owner.
// The budget definition (amount and categories) is snapshotted when the period starts;
// totals are only filled in when the period is closed.
type BudgetPeriod struct {
	ID               uuid.UUID
	OwnerID          uuid.UUID
	Amount           decimal.Decimal
	Categories       []string // Empty means every category counts
	StartDate        time.Time
	EndDate          *time.Time // NULL while active
	IsActive         bool
	TotalSpent       decimal.Decimal
	TotalSaved       decimal.Decimal
	CategorySpending map[string]decimal.Decimal
}

// Validate ensures the period adheres to domain rules
func (p *BudgetPeriod) Validate() error {
	if p.OwnerID == uuid.Nil {
		return NewValidationError("owner_id", ErrMissingOwner)
	}
	if p.Amount.LessThanOrEqual(decimal.Zero) {
		return NewValidationError("amount", ErrInvalidAmount)
	}
	if p.EndDate != nil && p.EndDate.Before(p.StartDate) {
		return NewValidationError("end_date", ErrInvalidRange)
	}
	if p.IsActive && p.EndDate != nil {
		return NewValidationError("end_date", ErrInvalidRange)
	}
	return nil
}
