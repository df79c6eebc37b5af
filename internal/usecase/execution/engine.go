// Package execution turns due recurring series into transactions, one batch per Run.
package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/simaogato/recurring-ledger/internal/domain"
	"github.com/simaogato/recurring-ledger/internal/logging"
	"github.com/simaogato/recurring-ledger/internal/usecase/classifier"
	"github.com/simaogato/recurring-ledger/internal/usecase/recurrence"
)

// DefaultWorkers is the number of series processed concurrently when Workers is unset
const DefaultWorkers = 4

// RunRequest selects the scope of one batch
type RunRequest struct {
	Mode           domain.ExecutionMode
	OwnerID        uuid.UUID // uuid.Nil runs every owner
	MaxDaysOverdue *int      // Optional: overdue series older than this are not picked up
}

// Engine executes due series. Series are independent; each one gets its own store calls.
// Running two Engines over overlapping scopes at the same time is not supported.
type Engine struct {
	SeriesRepo      domain.SeriesRepository
	TransactionRepo domain.TransactionRepository
	Clock           domain.Clock
	Notifier        domain.ExecutionNotifier // Optional
	Logger          logrus.FieldLogger
	Workers         int
}

// NewEngine creates a new Engine instance
func NewEngine(
	seriesRepo domain.SeriesRepository,
	transactionRepo domain.TransactionRepository,
	clock domain.Clock,
	logger logrus.FieldLogger,
) *Engine {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Engine{
		SeriesRepo:      seriesRepo,
		TransactionRepo: transactionRepo,
		Clock:           clock,
		Logger:          logging.OrDiscard(logger),
		Workers:         DefaultWorkers,
	}
}

// Run processes every due-today and overdue series in scope.
// Logic:
//  1. Load active series due on or before today and classify them
//  2. In execute mode, deactivate the series whose pending occurrence is past their end date
//  3. Process each candidate in a worker; failures are captured, never returned
//  4. After every worker is done, fold the ordered outcomes into the summary
//
// Only a failure to load the candidates is returned as an error. When ctx is cancelled
// mid-batch the remaining series are recorded as failed and the partial result is
// returned together with the context error.
func (e *Engine) Run(ctx context.Context, req RunRequest) (*domain.ExecutionResult, error) {
	if req.Mode != domain.ModeDryRun && req.Mode != domain.ModeExecute {
		return nil, domain.NewValidationError("mode", domain.ErrUnsupportedMode)
	}

	runLog := logging.NewRunLog(e.Logger)
	runLog.AddData("mode", string(req.Mode))
	runLog.AddData("owner_id", req.OwnerID.String())
	endTimer := runLog.AddTiming("duration_ms")

	now := e.Clock.Now()
	today := domain.DateOf(now)

	endLoad := runLog.AddTiming("load_ms")
	series, err := e.SeriesRepo.FindActiveSeries(ctx, req.OwnerID, domain.SeriesFilter{DueOnOrBefore: &today})
	endLoad()
	if err != nil {
		return nil, fmt.Errorf("failed to find active series: %w", err)
	}

	candidates := selectCandidates(series, now, req.MaxDaysOverdue)
	runLog.AddData("candidates", len(candidates))

	if req.Mode == domain.ModeExecute {
		runLog.AddData("deactivated", e.deactivateEnded(ctx, series))
	}

	workers := e.Workers
	if workers <= 0 {
		workers = 1
	}

	outcomes := make([]domain.ExecutionOutcome, len(candidates))
	var g errgroup.Group
	g.SetLimit(workers)

	for i, s := range candidates {
		g.Go(func() error {
			outcomes[i] = e.process(ctx, req.Mode, s, now)
			return nil
		})
	}
	_ = g.Wait()

	result := fold(req.Mode, outcomes)

	endTimer()
	runLog.AddData("processed", result.Summary.TotalProcessed)
	runLog.AddData("succeeded", result.Summary.SuccessfulExecutions)
	runLog.AddData("failed", result.Summary.FailedExecutions)
	runLog.AddData("total_amount", result.Summary.TotalAmount.StringFixed(2))
	runLog.Log().Info("Engine.Run.Complete")

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("run interrupted: %w", err)
	}
	return result, nil
}

// selectCandidates returns the overdue series (oldest first) followed by those due today
func selectCandidates(series []*domain.RecurringSeries, now time.Time, maxDaysOverdue *int) []*domain.RecurringSeries {
	c := classifier.Classify(series, now, classifier.Window{MaxDaysOverdue: maxDaysOverdue})

	candidates := make([]*domain.RecurringSeries, 0, len(c.Overdue)+len(c.DueToday))
	candidates = append(candidates, c.Overdue...)
	candidates = append(candidates, c.DueToday...)
	return candidates
}

// deactivateEnded closes the series that are still active although their pending
// occurrence falls after the end date. Returns how many were closed; errors are only logged.
func (e *Engine) deactivateEnded(ctx context.Context, series []*domain.RecurringSeries) int {
	closed := 0
	for _, s := range series {
		if !s.IsActive || !s.IsPastEnd() {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		inactive := false
		if _, err := e.SeriesRepo.UpdateSeries(ctx, s.ID, domain.SeriesPatch{IsActive: &inactive}); err != nil {
			e.Logger.WithError(err).WithField("series_id", s.ID).Warn("Engine.Deactivate.Error")
			continue
		}
		closed++
		e.Logger.WithFields(logrus.Fields{
			"series_id": s.ID,
			"due_date":  domain.DateOf(s.DueDate).Format(time.DateOnly),
			"end_date":  domain.DateOf(*s.EndDate).Format(time.DateOnly),
		}).Info("Engine.Series.Ended")
	}
	return closed
}

// process runs one series from pending to succeeded or failed
func (e *Engine) process(ctx context.Context, mode domain.ExecutionMode, s *domain.RecurringSeries, now time.Time) domain.ExecutionOutcome {
	outcome := domain.ExecutionOutcome{
		SeriesID:   s.ID,
		SeriesName: s.Name,
		State:      domain.StatePending,
	}

	if err := ctx.Err(); err != nil {
		return e.fail(outcome, fmt.Errorf("series not processed: %w", err))
	}
	outcome.State = domain.StateProcessing

	payload, patch, err := Plan(s, now)
	if err != nil {
		return e.fail(outcome, err)
	}
	outcome.Amount = payload.Amount

	if mode == domain.ModeDryRun {
		outcome.State = domain.StateSucceeded
		return outcome
	}

	// The occurrence ID is deterministic, so an existing record means an earlier run
	// created the transaction but failed to advance the series
	if err := e.TransactionRepo.CreateTransaction(ctx, payload); err != nil {
		if !errors.Is(err, domain.ErrAlreadyExists) {
			err = wrapStore("create transaction", err)
			e.recordFailure(ctx, s, err)
			return e.fail(outcome, err)
		}
		e.Logger.WithField("series_id", s.ID).WithField("transaction_id", payload.ID).Info("Engine.Execute.Resumed")
	}

	txID := payload.ID
	patch.AppendTransactionID = &txID

	updated, err := e.SeriesRepo.UpdateSeries(ctx, s.ID, patch)
	if err != nil {
		err = wrapStore("update series", err)
		e.recordFailure(ctx, s, err)
		return e.fail(outcome, err)
	}

	outcome.State = domain.StateSucceeded
	outcome.TransactionID = &txID

	if e.Notifier != nil {
		if err := e.Notifier.NotifyExecuted(ctx, updated, payload); err != nil {
			e.Logger.WithError(err).WithField("series_id", s.ID).Warn("Engine.Notify.Error")
		}
	}

	return outcome
}

// Plan computes the transaction a series produces for its current due date and the
// series patch that records it. Nothing is written.
func Plan(s *domain.RecurringSeries, now time.Time) (*domain.Transaction, domain.SeriesPatch, error) {
	if err := s.Validate(); err != nil {
		return nil, domain.SeriesPatch{}, err
	}
	if s.IsPastEnd() {
		return nil, domain.SeriesPatch{}, domain.NewValidationError("due_date", domain.ErrSeriesEnded)
	}

	next, err := recurrence.AdvanceDueDate(s.Frequency, s.DueDate)
	if err != nil {
		return nil, domain.SeriesPatch{}, err
	}

	seriesID := s.ID
	payload := &domain.Transaction{
		ID:               domain.OccurrenceID(s.ID, s.DueDate),
		OwnerID:          s.OwnerID,
		AccountID:        s.AccountID,
		CounterAccountID: s.DestinationAccountID,
		Amount:           s.SignedAmount(),
		Kind:             s.Kind,
		Category:         s.Category,
		Description:      s.Name,
		Date:             s.DueDate,
		SeriesID:         &seriesID,
		CreatedAt:        now,
	}
	if err := payload.Validate(); err != nil {
		return nil, domain.SeriesPatch{}, err
	}

	total := s.TotalExecutions + 1
	executedAt := now
	patch := domain.SeriesPatch{
		DueDate:         &next,
		LastExecutedAt:  &executedAt,
		TotalExecutions: &total,
	}

	// A one-off has no next occurrence; a bounded series stops once it steps past its end
	if s.Frequency == domain.FrequencyOnce || s.HasEndedBy(next) {
		inactive := false
		patch.IsActive = &inactive
	}

	return payload, patch, nil
}

// recordFailure bumps the failed counter of a series. Best effort: errors are only logged.
func (e *Engine) recordFailure(ctx context.Context, s *domain.RecurringSeries, cause error) {
	failed := s.FailedExecutions + 1
	if _, err := e.SeriesRepo.UpdateSeries(ctx, s.ID, domain.SeriesPatch{FailedExecutions: &failed}); err != nil {
		e.Logger.WithError(err).WithField("series_id", s.ID).Warn("Engine.RecordFailure.Error")
	}
	e.Logger.WithError(cause).WithFields(logrus.Fields{
		"series_id":   s.ID,
		"series_name": s.Name,
	}).Error("Engine.Series.Failed")
}

func (e *Engine) fail(outcome domain.ExecutionOutcome, err error) domain.ExecutionOutcome {
	outcome.State = domain.StateFailed
	outcome.Err = err
	outcome.Amount = decimal.Zero
	return outcome
}

// wrapStore marks err as a store failure unless the store rejected the record itself
func wrapStore(op string, err error) error {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return err
	}
	return domain.NewStoreError(op, err)
}

// fold reduces the ordered outcomes into the batch result
func fold(mode domain.ExecutionMode, outcomes []domain.ExecutionOutcome) *domain.ExecutionResult {
	result := &domain.ExecutionResult{
		Mode:     mode,
		Summary:  domain.ExecutionSummary{TotalAmount: decimal.Zero},
		Failed:   make([]domain.ExecutionFailure, 0),
		Outcomes: outcomes,
	}

	for _, o := range outcomes {
		result.Summary.TotalProcessed++
		switch o.State {
		case domain.StateSucceeded:
			result.Summary.SuccessfulExecutions++
			result.Summary.TotalAmount = result.Summary.TotalAmount.Add(o.Amount)
		default:
			result.Summary.FailedExecutions++
			msg := "not processed"
			if o.Err != nil {
				msg = o.Err.Error()
			}
			result.Failed = append(result.Failed, domain.ExecutionFailure{
				SeriesID:   o.SeriesID,
				SeriesName: o.SeriesName,
				Error:      msg,
			})
		}
	}

	return result
}
