package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is an atomic monetary record.
// Only the reconciliation fields and the residual amount change after creation.
type Transaction struct {
	ID               uuid.UUID
	OwnerID          uuid.UUID
	AccountID        uuid.UUID
	CounterAccountID *uuid.UUID      // Set for transfers
	Amount           decimal.Decimal // Signed by kind: expenses are negative
	Kind             CashFlowKind
	Category         string
	Description      string
	Date             time.Time
	IsReconciled     bool
	CounterpartID    *uuid.UUID // Symmetric: the counterpart points back
	ResidualAmount   *decimal.Decimal
	SeriesID         *uuid.UUID // Originating recurring series, if any
	CreatedAt        time.Time
}

// Validate ensures the transaction adheres to domain rules
func (t *Transaction) Validate() error {
	if t.OwnerID == uuid.Nil {
		return NewValidationError("owner_id", ErrMissingOwner)
	}
	if t.AccountID == uuid.Nil {
		return NewValidationError("account_id", ErrMissingAccount)
	}
	if !t.Kind.Valid() {
		return NewValidationError("kind", ErrUnsupportedKind)
	}
	if t.Amount.IsZero() {
		return NewValidationError("amount", ErrInvalidAmount)
	}
	if t.Kind == KindTransfer {
		if t.CounterAccountID == nil || *t.CounterAccountID == uuid.Nil {
			return NewValidationError("counter_account_id", ErrMissingDestination)
		}
		if *t.CounterAccountID == t.AccountID {
			return NewValidationError("counter_account_id", ErrSameAccountTransfer)
		}
	}

	// A reconciled transaction always carries its counterpart, an unreconciled one never does
	if t.IsReconciled != (t.CounterpartID != nil) {
		return NewValidationError("counterpart_id", ErrInvalidLink)
	}
	if t.CounterpartID != nil && *t.CounterpartID == t.ID {
		return NewValidationError("counterpart_id", ErrSelfLink)
	}

	return nil
}

// AbsAmount returns the unsigned magnitude of the transaction
func (t *Transaction) AbsAmount() decimal.Decimal {
	return t.Amount.Abs()
}
