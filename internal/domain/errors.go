package domain

import (
	"errors"
	"fmt"
)

// Validation sentinels
var (
	ErrUnsupportedFrequency  = errors.New("unsupported frequency")
	ErrUnsupportedKind       = errors.New("unsupported cash flow kind")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrMissingDestination    = errors.New("transfer requires a destination account")
	ErrSameAccountTransfer   = errors.New("transfer destination must differ from origin account")
	ErrUnexpectedDestination = errors.New("destination account is only allowed for transfers")
	ErrDueBeforeStart        = errors.New("due date cannot be before start date")
	ErrEndBeforeStart        = errors.New("end date cannot be before start date")
	ErrEmptyName             = errors.New("name cannot be empty")
	ErrInvalidRange          = errors.New("invalid range: end is before start")
	ErrMissingOwner          = errors.New("owner id is required")
	ErrMissingAccount        = errors.New("account id is required")
	ErrInvalidLink           = errors.New("reconciled transaction must have a counterpart link")
	ErrUnsupportedMode       = errors.New("unsupported execution mode")
	ErrSeriesEnded           = errors.New("due date is past the series end date")
)

// Reconciliation sentinels
var (
	ErrSelfLink          = errors.New("cannot link a transaction to itself")
	ErrAlreadyReconciled = errors.New("transaction is already reconciled")
	ErrSameKindLink      = errors.New("cannot link two transactions of the same kind unless one is a transfer")
	ErrNotReconciled     = errors.New("transaction is not reconciled")
)

// Store and lifecycle sentinels
var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrActivePeriodExists = errors.New("an active budget period already exists for this owner")
	ErrNoActivePeriod     = errors.New("no active budget period for this owner")
)

// ValidationError reports malformed input to a pure function or a rejected record.
// It is always surfaced to the caller and never silently corrected.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Err.Error()
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Err.Error())
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError wraps a validation sentinel with the offending field
func NewValidationError(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Err: err}
}

// ReconciliationCode identifies a business-rule rejection of a link/unlink
type ReconciliationCode string

const (
	CodeSelfLink          ReconciliationCode = "SELF_LINK"
	CodeAlreadyReconciled ReconciliationCode = "ALREADY_RECONCILED"
	CodeSameKindLink      ReconciliationCode = "SAME_KIND_LINK"
	CodeNotReconciled     ReconciliationCode = "NOT_RECONCILED"
)

// ReconciliationError is a business-rule rejection, surfaced verbatim
type ReconciliationError struct {
	Code ReconciliationCode
	Err  error
}

func (e *ReconciliationError) Error() string { return e.Err.Error() }

func (e *ReconciliationError) Unwrap() error { return e.Err }

// NewReconciliationError maps a reconciliation sentinel to its coded error
func NewReconciliationError(err error) *ReconciliationError {
	code := ReconciliationCode("")
	switch {
	case errors.Is(err, ErrSelfLink):
		code = CodeSelfLink
	case errors.Is(err, ErrAlreadyReconciled):
		code = CodeAlreadyReconciled
	case errors.Is(err, ErrSameKindLink):
		code = CodeSameKindLink
	case errors.Is(err, ErrNotReconciled):
		code = CodeNotReconciled
	}
	return &ReconciliationError{Code: code, Err: err}
}

// StoreError wraps a failure of the external record store
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %s", e.Op, e.Err.Error())
}

func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError wraps err as a store failure for op, leaving nil untouched
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
