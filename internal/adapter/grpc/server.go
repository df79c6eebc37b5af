package grpc

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/recurring-ledger/internal/domain"
	"github.com/simaogato/recurring-ledger/internal/usecase/budget"
	"github.com/simaogato/recurring-ledger/internal/usecase/dashboard"
	"github.com/simaogato/recurring-ledger/internal/usecase/execution"
	"github.com/simaogato/recurring-ledger/internal/usecase/reconciliation"
)

// Server implements the SchedulerService gRPC server
type Server struct {
	DashboardService *dashboard.DashboardService
	Engine           *execution.Engine
	LinkService      *reconciliation.LinkService
	PeriodService    *budget.PeriodService
	Clock            domain.Clock

	// MaxDaysOverdue applies to RunDueSeries calls that do not set max_days_overdue
	MaxDaysOverdue *int
}

var _ SchedulerServiceServer = (*Server)(nil)

// NewServer creates a new gRPC server instance
func NewServer(
	dashboardService *dashboard.DashboardService,
	engine *execution.Engine,
	linkService *reconciliation.LinkService,
	periodService *budget.PeriodService,
	clock domain.Clock,
) *Server {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Server{
		DashboardService: dashboardService,
		Engine:           engine,
		LinkService:      linkService,
		PeriodService:    periodService,
		Clock:            clock,
	}
}

// GetDashboard handles the GetDashboard RPC
func (s *Server) GetDashboard(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ownerID, err := uuidField(req, "owner_id")
	if err != nil {
		return nil, err
	}

	view, err := s.DashboardService.GetDashboard(ctx, ownerID)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]any{
		"active_series":  seriesList(view.ActiveSeries),
		"due_today":      seriesList(view.DueTodaySeries),
		"upcoming":       seriesList(view.UpcomingSeries),
		"overdue":        seriesList(view.OverdueSeries),
		"monthly_impact": impactToMap(view.MonthlyImpact),
	})
}

// ListMissedExecutions handles the ListMissedExecutions RPC
func (s *Server) ListMissedExecutions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ownerID, err := uuidField(req, "owner_id")
	if err != nil {
		return nil, err
	}

	missed, err := s.DashboardService.GetMissedExecutions(ctx, ownerID)
	if err != nil {
		return nil, mapError(err)
	}

	items := make([]any, 0, len(missed))
	for _, m := range missed {
		items = append(items, map[string]any{
			"series_id":    m.Series.ID.String(),
			"series_name":  m.Series.Name,
			"missed_count": m.MissedCount,
		})
	}
	return toStruct(map[string]any{"missed": items})
}

// RunDueSeries handles the RunDueSeries RPC.
// An absent owner_id runs every owner; dry_run defaults to false.
func (s *Server) RunDueSeries(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ownerID, err := optionalUUIDField(req, "owner_id")
	if err != nil {
		return nil, err
	}
	dryRun, err := boolField(req, "dry_run")
	if err != nil {
		return nil, err
	}
	maxDaysOverdue, err := optionalIntField(req, "max_days_overdue")
	if err != nil {
		return nil, err
	}
	if maxDaysOverdue == nil {
		maxDaysOverdue = s.MaxDaysOverdue
	}

	mode := domain.ModeExecute
	if dryRun {
		mode = domain.ModeDryRun
	}

	result, err := s.Engine.Run(ctx, execution.RunRequest{
		Mode:           mode,
		OwnerID:        ownerID,
		MaxDaysOverdue: maxDaysOverdue,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(resultToMap(result))
}

// LinkTransactions handles the LinkTransactions RPC
func (s *Server) LinkTransactions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	aID, err := uuidField(req, "a_id")
	if err != nil {
		return nil, err
	}
	bID, err := uuidField(req, "b_id")
	if err != nil {
		return nil, err
	}

	pair, err := s.LinkService.Link(ctx, aID, bID)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]any{
		"parent": transactionToMap(pair.Parent),
		"child":  transactionToMap(pair.Child),
	})
}

// UnlinkTransaction handles the UnlinkTransaction RPC
func (s *Server) UnlinkTransaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := uuidField(req, "transaction_id")
	if err != nil {
		return nil, err
	}

	result, err := s.LinkService.Unlink(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]any{
		"transaction":        transactionToMap(result.Transaction),
		"counterpart_id":     result.CounterpartID.String(),
		"counterpart_closed": result.CounterpartClosed,
	})
}

// StartBudgetPeriod handles the StartBudgetPeriod RPC. start_date defaults to today.
func (s *Server) StartBudgetPeriod(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ownerID, err := uuidField(req, "owner_id")
	if err != nil {
		return nil, err
	}
	amount, err := decimalField(req, "amount")
	if err != nil {
		return nil, err
	}
	categories, err := stringListField(req, "categories")
	if err != nil {
		return nil, err
	}
	start, err := dateField(req, "start_date", domain.DateOf(s.Clock.Now()))
	if err != nil {
		return nil, err
	}

	period, err := s.PeriodService.StartPeriod(ctx, budget.StartPeriodInput{
		OwnerID:    ownerID,
		Amount:     amount,
		Categories: categories,
		StartDate:  start,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]any{"period": periodToMap(period)})
}

// CloseBudgetPeriod handles the CloseBudgetPeriod RPC. end_date defaults to today.
func (s *Server) CloseBudgetPeriod(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ownerID, err := uuidField(req, "owner_id")
	if err != nil {
		return nil, err
	}
	end, err := dateField(req, "end_date", domain.DateOf(s.Clock.Now()))
	if err != nil {
		return nil, err
	}

	period, err := s.PeriodService.ClosePeriod(ctx, ownerID, end)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]any{"period": periodToMap(period)})
}
