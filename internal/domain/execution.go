package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExecutionMode selects between simulating and persisting a batch run
type ExecutionMode string

const (
	ModeDryRun  ExecutionMode = "DRY_RUN"
	ModeExecute ExecutionMode = "EXECUTE"
)

// OutcomeState is the terminal state of one series within a batch
type OutcomeState string

const (
	StatePending    OutcomeState = "PENDING"
	StateProcessing OutcomeState = "PROCESSING"
	StateSucceeded  OutcomeState = "SUCCEEDED"
	StateFailed     OutcomeState = "FAILED"
)

// ExecutionSummary aggregates one batch run
type ExecutionSummary struct {
	TotalProcessed       int
	SuccessfulExecutions int
	FailedExecutions     int
	TotalAmount          decimal.Decimal // Signed: expenses negative
}

// ExecutionFailure describes one series that could not be processed
type ExecutionFailure struct {
	SeriesID   uuid.UUID
	SeriesName string
	Error      string
}

// ExecutionOutcome is the tagged per-series result of a batch, in candidate order
type ExecutionOutcome struct {
	SeriesID      uuid.UUID
	SeriesName    string
	State         OutcomeState
	Amount        decimal.Decimal // Signed payload amount
	TransactionID *uuid.UUID      // Only set for persisted executions
	Err           error
}

// ExecutionResult is the transient summary of one engine run
type ExecutionResult struct {
	Mode     ExecutionMode
	Summary  ExecutionSummary
	Failed   []ExecutionFailure
	Outcomes []ExecutionOutcome
}

// ExecutionNotifier is told about every transaction persisted by the engine
type ExecutionNotifier interface {
	NotifyExecuted(ctx context.Context, series *RecurringSeries, tx *Transaction) error
}
