package budget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/simaogato/recurring-ledger/internal/domain"
	"github.com/simaogato/recurring-ledger/internal/logging"
)

// StartPeriodInput represents the input for opening a budget period
type StartPeriodInput struct {
	OwnerID    uuid.UUID
	Amount     decimal.Decimal
	Categories []string
	StartDate  time.Time
}

// PeriodService handles the budget period lifecycle
type PeriodService struct {
	PeriodRepo      domain.BudgetPeriodRepository
	TransactionRepo domain.TransactionRepository
	Logger          logrus.FieldLogger
}

// NewPeriodService creates a new PeriodService instance
func NewPeriodService(periodRepo domain.BudgetPeriodRepository, transactionRepo domain.TransactionRepository, logger logrus.FieldLogger) *PeriodService {
	return &PeriodService{
		PeriodRepo:      periodRepo,
		TransactionRepo: transactionRepo,
		Logger:          logging.OrDiscard(logger),
	}
}

// StartPeriod opens a period for the owner. An owner has at most one active period.
func (s *PeriodService) StartPeriod(ctx context.Context, input StartPeriodInput) (*domain.BudgetPeriod, error) {
	_, err := s.PeriodRepo.GetActivePeriod(ctx, input.OwnerID)
	switch {
	case err == nil:
		return nil, domain.ErrActivePeriodExists
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("failed to get active period: %w", err)
	}

	period := &domain.BudgetPeriod{
		ID:         uuid.New(),
		OwnerID:    input.OwnerID,
		Amount:     input.Amount,
		Categories: append([]string(nil), input.Categories...),
		StartDate:  input.StartDate,
		IsActive:   true,
		TotalSpent: decimal.Zero,
		TotalSaved: decimal.Zero,
	}
	if err := period.Validate(); err != nil {
		return nil, err
	}

	if err := s.PeriodRepo.CreatePeriod(ctx, period); err != nil {
		return nil, fmt.Errorf("failed to create period: %w", err)
	}

	s.Logger.WithFields(logrus.Fields{"owner_id": period.OwnerID, "period_id": period.ID}).Info("Budget.StartPeriod.Complete")
	return period, nil
}

// ClosePeriod ends the owner's active period at end and stores its totals
// Logic:
//  1. Load the active period (ErrNoActivePeriod if none)
//  2. Fetch the owner's expenses in [start, end)
//  3. ComputeTotals against the definition snapshotted at start
//  4. Persist end date, totals and the inactive flag
func (s *PeriodService) ClosePeriod(ctx context.Context, ownerID uuid.UUID, end time.Time) (*domain.BudgetPeriod, error) {
	period, err := s.PeriodRepo.GetActivePeriod(ctx, ownerID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNoActivePeriod
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active period: %w", err)
	}

	if end.Before(period.StartDate) {
		return nil, domain.NewValidationError("end_date", domain.ErrInvalidRange)
	}

	from, to := period.StartDate, end
	txs, err := s.TransactionRepo.FindTransactions(ctx, ownerID, domain.TransactionFilter{
		Kinds: []domain.CashFlowKind{domain.KindExpense},
		From:  &from,
		To:    &to,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find transactions: %w", err)
	}

	totals, err := ComputeTotals(txs, BudgetSpec{
		OwnerID:    ownerID,
		Amount:     period.Amount,
		Categories: period.Categories,
	}, period.StartDate, end)
	if err != nil {
		return nil, err
	}

	closedAt := end
	period.EndDate = &closedAt
	period.IsActive = false
	period.TotalSpent = totals.TotalSpent
	period.TotalSaved = totals.TotalSaved
	period.CategorySpending = totals.CategorySpending

	if err := s.PeriodRepo.UpdatePeriod(ctx, period); err != nil {
		return nil, fmt.Errorf("failed to update period: %w", err)
	}

	s.Logger.WithFields(logrus.Fields{
		"owner_id":    ownerID,
		"period_id":   period.ID,
		"total_spent": totals.TotalSpent.StringFixed(2),
	}).Info("Budget.ClosePeriod.Complete")

	return period, nil
}
