package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecurringSeries is a template for a repeating financial event.
// It is never hard-deleted by the engine: deactivation is the end of its lifecycle.
type RecurringSeries struct {
	ID                   uuid.UUID
	OwnerID              uuid.UUID
	Name                 string
	Amount               decimal.Decimal // Always positive; the kind carries the sign
	Kind                 CashFlowKind
	Category             string
	Frequency            Frequency
	AccountID            uuid.UUID
	DestinationAccountID *uuid.UUID // Required iff Kind is transfer
	StartDate            time.Time
	EndDate              *time.Time
	DueDate              time.Time
	IsActive             bool
	IsPaused             bool
	ResumeDate           *time.Time // Optional: pause lifts automatically on this date
	LastExecutedAt       *time.Time
	TotalExecutions      int
	FailedExecutions     int
	TransactionIDs       []uuid.UUID
	CreatedAt            time.Time
}

// Validate ensures the series adheres to domain rules
func (s *RecurringSeries) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return NewValidationError("name", ErrEmptyName)
	}
	if s.OwnerID == uuid.Nil {
		return NewValidationError("owner_id", ErrMissingOwner)
	}
	if s.AccountID == uuid.Nil {
		return NewValidationError("account_id", ErrMissingAccount)
	}
	if s.Amount.LessThanOrEqual(decimal.Zero) {
		return NewValidationError("amount", ErrInvalidAmount)
	}
	if !s.Kind.Valid() {
		return NewValidationError("kind", ErrUnsupportedKind)
	}
	if !s.Frequency.Valid() {
		return NewValidationError("frequency", ErrUnsupportedFrequency)
	}

	if s.Kind == KindTransfer {
		if s.DestinationAccountID == nil || *s.DestinationAccountID == uuid.Nil {
			return NewValidationError("destination_account_id", ErrMissingDestination)
		}
		if *s.DestinationAccountID == s.AccountID {
			return NewValidationError("destination_account_id", ErrSameAccountTransfer)
		}
	} else if s.DestinationAccountID != nil {
		return NewValidationError("destination_account_id", ErrUnexpectedDestination)
	}

	if DateOf(s.DueDate).Before(DateOf(s.StartDate)) {
		return NewValidationError("due_date", ErrDueBeforeStart)
	}
	if s.EndDate != nil && DateOf(*s.EndDate).Before(DateOf(s.StartDate)) {
		return NewValidationError("end_date", ErrEndBeforeStart)
	}

	return nil
}

// IsPausedAt reports whether the series is paused on the calendar day of t.
// A pause with a resume date lifts on that date.
func (s *RecurringSeries) IsPausedAt(t time.Time) bool {
	if !s.IsPaused {
		return false
	}
	if s.ResumeDate == nil {
		return true
	}
	return DateOf(t).Before(DateOf(*s.ResumeDate))
}

// HasEndedBy reports whether the series end date lies strictly before the calendar day of t
func (s *RecurringSeries) HasEndedBy(t time.Time) bool {
	return s.EndDate != nil && DateOf(*s.EndDate).Before(DateOf(t))
}

// IsPastEnd reports whether the pending occurrence falls after the end date
func (s *RecurringSeries) IsPastEnd() bool {
	return s.HasEndedBy(s.DueDate)
}

// HasTransaction reports whether id is already in the series history
func (s *RecurringSeries) HasTransaction(id uuid.UUID) bool {
	for _, existing := range s.TransactionIDs {
		if existing == id {
			return true
		}
	}
	return false
}

// OccurrenceID derives the transaction ID of the occurrence due on the given day.
// Executing the same occurrence twice yields the same ID.
func OccurrenceID(seriesID uuid.UUID, due time.Time) uuid.UUID {
	return uuid.NewSHA1(seriesID, []byte(DateOf(due).Format(time.DateOnly)))
}

// SignedAmount returns the amount with the sign of the series kind
func (s *RecurringSeries) SignedAmount() decimal.Decimal {
	return s.Amount.Mul(decimal.NewFromInt(s.Kind.Sign()))
}
