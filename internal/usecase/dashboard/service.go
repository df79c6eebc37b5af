package dashboard

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/simaogato/recurring-ledger/internal/domain"
	"github.com/simaogato/recurring-ledger/internal/usecase/classifier"
)

// DefaultLookaheadDays is the upcoming horizon used when none is configured
const DefaultLookaheadDays = 7

// DashboardService handles dashboard-related operations
type DashboardService struct {
	SeriesRepo domain.SeriesRepository
	Clock      domain.Clock
	Window     classifier.Window
}

// NewDashboardService creates a new DashboardService instance
func NewDashboardService(seriesRepo domain.SeriesRepository, clock domain.Clock, window classifier.Window) *DashboardService {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if window.LookaheadDays <= 0 {
		window.LookaheadDays = DefaultLookaheadDays
	}
	return &DashboardService{
		SeriesRepo: seriesRepo,
		Clock:      clock,
		Window:     window,
	}
}

// GetDashboard builds the dashboard of an owner
// Logic:
//   - Active: every active series of the owner
//   - Due today / Upcoming / Overdue: classified against the configured window
//   - Monthly impact: monthly equivalents of income and expenses, transfers excluded, rounded to 2 decimals
func (s *DashboardService) GetDashboard(ctx context.Context, ownerID uuid.UUID) (*classifier.DashboardView, error) {
	series, err := s.SeriesRepo.FindActiveSeries(ctx, ownerID, domain.SeriesFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to find active series: %w", err)
	}

	view := classifier.BuildDashboard(series, s.Clock.Now(), s.Window)
	return &view, nil
}

// GetMissedExecutions lists the owner's series that produced fewer occurrences than expected, most missed first
func (s *DashboardService) GetMissedExecutions(ctx context.Context, ownerID uuid.UUID) ([]classifier.MissedExecution, error) {
	series, err := s.SeriesRepo.FindActiveSeries(ctx, ownerID, domain.SeriesFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to find active series: %w", err)
	}

	missed, err := classifier.MissedExecutions(series, s.Clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to compute missed executions: %w", err)
	}
	return missed, nil
}
