package grpc

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/recurring-ledger/internal/domain"
	"github.com/simaogato/recurring-ledger/internal/usecase/classifier"
)

// Request decoding

func field(req *structpb.Struct, name string) (*structpb.Value, bool) {
	v, ok := req.GetFields()[name]
	if !ok {
		return nil, false
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, false
	}
	return v, true
}

func stringField(req *structpb.Struct, name string) (string, error) {
	v, ok := field(req, name)
	if !ok {
		return "", nil
	}
	s, isString := v.GetKind().(*structpb.Value_StringValue)
	if !isString {
		return "", status.Errorf(codes.InvalidArgument, "%s must be a string", name)
	}
	return s.StringValue, nil
}

func uuidField(req *structpb.Struct, name string) (uuid.UUID, error) {
	raw, err := stringField(req, name)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", name, err)
	}
	return id, nil
}

// optionalUUIDField returns uuid.Nil when the field is absent or empty
func optionalUUIDField(req *structpb.Struct, name string) (uuid.UUID, error) {
	raw, err := stringField(req, name)
	if err != nil || raw == "" {
		return uuid.Nil, err
	}
	return uuidField(req, name)
}

func boolField(req *structpb.Struct, name string) (bool, error) {
	v, ok := field(req, name)
	if !ok {
		return false, nil
	}
	b, isBool := v.GetKind().(*structpb.Value_BoolValue)
	if !isBool {
		return false, status.Errorf(codes.InvalidArgument, "%s must be a boolean", name)
	}
	return b.BoolValue, nil
}

// optionalIntField returns nil when the field is absent
func optionalIntField(req *structpb.Struct, name string) (*int, error) {
	v, ok := field(req, name)
	if !ok {
		return nil, nil
	}
	n, isNumber := v.GetKind().(*structpb.Value_NumberValue)
	if !isNumber || n.NumberValue < 0 || n.NumberValue != math.Trunc(n.NumberValue) || n.NumberValue > math.MaxInt32 {
		return nil, status.Errorf(codes.InvalidArgument, "%s must be a non-negative integer", name)
	}
	value := int(n.NumberValue)
	return &value, nil
}

func decimalField(req *structpb.Struct, name string) (decimal.Decimal, error) {
	v, ok := field(req, name)
	if !ok {
		return decimal.Zero, status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		amount, err := decimal.NewFromString(kind.StringValue)
		if err != nil {
			return decimal.Zero, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", name, err)
		}
		return amount, nil
	case *structpb.Value_NumberValue:
		return decimal.NewFromFloat(kind.NumberValue), nil
	default:
		return decimal.Zero, status.Errorf(codes.InvalidArgument, "%s must be a decimal string", name)
	}
}

// dateField accepts YYYY-MM-DD or RFC 3339. Absent fields fall back to fallback.
func dateField(req *structpb.Struct, name string, fallback time.Time) (time.Time, error) {
	raw, err := stringField(req, name)
	if err != nil {
		return time.Time{}, err
	}
	if raw == "" {
		return fallback, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, status.Errorf(codes.InvalidArgument, "invalid %s format: expected YYYY-MM-DD", name)
	}
	return t.UTC(), nil
}

func stringListField(req *structpb.Struct, name string) ([]string, error) {
	v, ok := field(req, name)
	if !ok {
		return nil, nil
	}
	list, isList := v.GetKind().(*structpb.Value_ListValue)
	if !isList {
		return nil, status.Errorf(codes.InvalidArgument, "%s must be a list of strings", name)
	}
	out := make([]string, 0, len(list.ListValue.GetValues()))
	for _, item := range list.ListValue.GetValues() {
		s, isString := item.GetKind().(*structpb.Value_StringValue)
		if !isString {
			return nil, status.Errorf(codes.InvalidArgument, "%s must be a list of strings", name)
		}
		out = append(out, s.StringValue)
	}
	return out, nil
}

// Response encoding. Monetary values leave the service as strings with 2 decimals.

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func date(t time.Time) string {
	return t.Format(time.DateOnly)
}

func optionalDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return date(*t)
}

func optionalID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func seriesToMap(s *domain.RecurringSeries) map[string]any {
	return map[string]any{
		"id":                s.ID.String(),
		"owner_id":          s.OwnerID.String(),
		"name":              s.Name,
		"amount":            money(s.Amount),
		"kind":              string(s.Kind),
		"category":          s.Category,
		"frequency":         string(s.Frequency),
		"due_date":          date(s.DueDate),
		"end_date":          optionalDate(s.EndDate),
		"is_active":         s.IsActive,
		"is_paused":         s.IsPaused,
		"resume_date":       optionalDate(s.ResumeDate),
		"total_executions":  s.TotalExecutions,
		"failed_executions": s.FailedExecutions,
	}
}

func seriesList(series []*domain.RecurringSeries) []any {
	out := make([]any, 0, len(series))
	for _, s := range series {
		out = append(out, seriesToMap(s))
	}
	return out
}

func transactionToMap(tx *domain.Transaction) map[string]any {
	m := map[string]any{
		"id":             tx.ID.String(),
		"owner_id":       tx.OwnerID.String(),
		"account_id":     tx.AccountID.String(),
		"amount":         money(tx.Amount),
		"kind":           string(tx.Kind),
		"category":       tx.Category,
		"description":    tx.Description,
		"date":           date(tx.Date),
		"is_reconciled":  tx.IsReconciled,
		"counterpart_id": optionalID(tx.CounterpartID),
		"series_id":      optionalID(tx.SeriesID),
	}
	if tx.ResidualAmount != nil {
		m["residual_amount"] = money(*tx.ResidualAmount)
	}
	return m
}

func periodToMap(p *domain.BudgetPeriod) map[string]any {
	categories := make([]any, 0, len(p.Categories))
	for _, c := range p.Categories {
		categories = append(categories, c)
	}
	spending := make(map[string]any, len(p.CategorySpending))
	for category, amount := range p.CategorySpending {
		spending[category] = money(amount)
	}
	return map[string]any{
		"id":                p.ID.String(),
		"owner_id":          p.OwnerID.String(),
		"amount":            money(p.Amount),
		"categories":        categories,
		"start_date":        date(p.StartDate),
		"end_date":          optionalDate(p.EndDate),
		"is_active":         p.IsActive,
		"total_spent":       money(p.TotalSpent),
		"total_saved":       money(p.TotalSaved),
		"category_spending": spending,
	}
}

func impactToMap(i classifier.Impact) map[string]any {
	return map[string]any{
		"income":   money(i.Income),
		"expenses": money(i.Expenses),
		"net":      money(i.Net),
	}
}

func resultToMap(r *domain.ExecutionResult) map[string]any {
	failed := make([]any, 0, len(r.Failed))
	for _, f := range r.Failed {
		failed = append(failed, map[string]any{
			"series_id":   f.SeriesID.String(),
			"series_name": f.SeriesName,
			"error":       f.Error,
		})
	}
	outcomes := make([]any, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		outcomes = append(outcomes, map[string]any{
			"series_id":      o.SeriesID.String(),
			"series_name":    o.SeriesName,
			"state":          string(o.State),
			"amount":         money(o.Amount),
			"transaction_id": optionalID(o.TransactionID),
		})
	}
	return map[string]any{
		"mode":                  string(r.Mode),
		"total_processed":       r.Summary.TotalProcessed,
		"successful_executions": r.Summary.SuccessfulExecutions,
		"failed_executions":     r.Summary.FailedExecutions,
		"total_amount":          money(r.Summary.TotalAmount),
		"failed":                failed,
		"outcomes":              outcomes,
	}
}

func toStruct(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}
