package classifier

import (
	"time"

	"github.com/simaogato/recurring-ledger/internal/domain"
)

// DashboardView is the caller-facing snapshot of an owner's recurring obligations.
// Monetary fields are rounded to 2 decimals.
type DashboardView struct {
	ActiveSeries   []*domain.RecurringSeries
	DueTodaySeries []*domain.RecurringSeries
	UpcomingSeries []*domain.RecurringSeries
	OverdueSeries  []*domain.RecurringSeries
	MonthlyImpact  Impact
}

// BuildDashboard classifies the series and computes the rounded monthly impact
func BuildDashboard(series []*domain.RecurringSeries, now time.Time, window Window) DashboardView {
	active := make([]*domain.RecurringSeries, 0, len(series))
	for _, s := range series {
		if s != nil && s.IsActive {
			active = append(active, s)
		}
	}

	c := Classify(active, now, window)

	return DashboardView{
		ActiveSeries:   active,
		DueTodaySeries: c.DueToday,
		UpcomingSeries: c.Upcoming,
		OverdueSeries:  c.Overdue,
		MonthlyImpact:  MonthlyImpact(active).Rounded(),
	}
}
