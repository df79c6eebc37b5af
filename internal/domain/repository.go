package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SeriesFilter narrows FindActiveSeries
type SeriesFilter struct {
	DueOnOrBefore *time.Time // Only series due on or before this calendar day
	Kinds         []CashFlowKind
}

// SeriesPatch describes a partial update of a series. Nil fields are left untouched.
type SeriesPatch struct {
	DueDate             *time.Time
	LastExecutedAt      *time.Time
	TotalExecutions     *int
	FailedExecutions    *int
	IsActive            *bool
	AppendTransactionID *uuid.UUID
}

// TransactionFilter narrows FindTransactions
type TransactionFilter struct {
	IDs           []uuid.UUID
	CounterpartID *uuid.UUID // Transactions linked to this counterpart
	Kinds         []CashFlowKind
	From          *time.Time // Inclusive
	To            *time.Time // Exclusive
}

// TransactionPatch describes a partial update of the mutable transaction fields
type TransactionPatch struct {
	IsReconciled     *bool
	CounterpartID    *uuid.UUID
	ClearCounterpart bool
	ResidualAmount   *decimal.Decimal
	ClearResidual    bool
}

// SeriesRepository defines the interface for recurring series persistence operations.
// uuid.Nil as owner means every owner.
type SeriesRepository interface {
	// FindActiveSeries retrieves active series of an owner
	FindActiveSeries(ctx context.Context, ownerID uuid.UUID, filter SeriesFilter) ([]*RecurringSeries, error)

	// GetSeries retrieves a series by its ID
	GetSeries(ctx context.Context, id uuid.UUID) (*RecurringSeries, error)

	// CreateSeries creates a new series
	CreateSeries(ctx context.Context, series *RecurringSeries) error

	// UpdateSeries applies a patch and returns the updated series
	UpdateSeries(ctx context.Context, id uuid.UUID, patch SeriesPatch) (*RecurringSeries, error)
}

// TransactionRepository defines the interface for transaction persistence operations.
// uuid.Nil as owner means every owner.
type TransactionRepository interface {
	// FindTransactions retrieves transactions of an owner matching the filter
	FindTransactions(ctx context.Context, ownerID uuid.UUID, filter TransactionFilter) ([]*Transaction, error)

	// GetTransaction retrieves a transaction by its ID
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// CreateTransaction creates a new transaction
	CreateTransaction(ctx context.Context, tx *Transaction) error

	// UpdateTransaction applies a patch and returns the updated transaction
	UpdateTransaction(ctx context.Context, id uuid.UUID, patch TransactionPatch) (*Transaction, error)
}

// PairUpdater is implemented by stores able to update two transactions atomically
type PairUpdater interface {
	UpdateTransactionPair(ctx context.Context, aID uuid.UUID, aPatch TransactionPatch, bID uuid.UUID, bPatch TransactionPatch) error
}

// BudgetPeriodRepository defines the interface for budget period persistence operations
type BudgetPeriodRepository interface {
	// GetActivePeriod retrieves the active period of an owner, ErrNotFound if none
	GetActivePeriod(ctx context.Context, ownerID uuid.UUID) (*BudgetPeriod, error)

	// CreatePeriod creates a new period
	CreatePeriod(ctx context.Context, period *BudgetPeriod) error

	// UpdatePeriod persists end date, active flag and totals of a period
	UpdatePeriod(ctx context.Context, period *BudgetPeriod) error
}

// Apply writes the non-nil fields of the patch onto s
func (p SeriesPatch) Apply(s *RecurringSeries) {
	if p.DueDate != nil {
		s.DueDate = *p.DueDate
	}
	if p.LastExecutedAt != nil {
		at := *p.LastExecutedAt
		s.LastExecutedAt = &at
	}
	if p.TotalExecutions != nil {
		s.TotalExecutions = *p.TotalExecutions
	}
	if p.FailedExecutions != nil {
		s.FailedExecutions = *p.FailedExecutions
	}
	if p.IsActive != nil {
		s.IsActive = *p.IsActive
	}
	if p.AppendTransactionID != nil && !s.HasTransaction(*p.AppendTransactionID) {
		s.TransactionIDs = append(s.TransactionIDs, *p.AppendTransactionID)
	}
}

// Apply writes the patch onto t. Clear flags win over the matching set field.
func (p TransactionPatch) Apply(t *Transaction) {
	if p.IsReconciled != nil {
		t.IsReconciled = *p.IsReconciled
	}
	if p.ClearCounterpart {
		t.CounterpartID = nil
	} else if p.CounterpartID != nil {
		id := *p.CounterpartID
		t.CounterpartID = &id
	}
	if p.ClearResidual {
		t.ResidualAmount = nil
	} else if p.ResidualAmount != nil {
		residual := *p.ResidualAmount
		t.ResidualAmount = &residual
	}
}

// Matches reports whether an active series passes the filter
func (f SeriesFilter) Matches(s *RecurringSeries) bool {
	if f.DueOnOrBefore != nil && DateOf(s.DueDate).After(DateOf(*f.DueOnOrBefore)) {
		return false
	}
	return len(f.Kinds) == 0 || containsKind(f.Kinds, s.Kind)
}

// Matches reports whether t passes the filter
func (f TransactionFilter) Matches(t *Transaction) bool {
	if len(f.IDs) > 0 {
		found := false
		for _, id := range f.IDs {
			if id == t.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.CounterpartID != nil && (t.CounterpartID == nil || *t.CounterpartID != *f.CounterpartID) {
		return false
	}
	if len(f.Kinds) > 0 && !containsKind(f.Kinds, t.Kind) {
		return false
	}
	if f.From != nil && t.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && !t.Date.Before(*f.To) {
		return false
	}
	return true
}

func containsKind(kinds []CashFlowKind, k CashFlowKind) bool {
	for _, kind := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}
