package sqlstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Fixed width UTC layout: lexical order equals chronological order in TEXT columns
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatNullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

// parseTime accepts both our layout and the RFC3339 text database/sql produces for timestamp columns
func parseTime(column, s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", column, err)
	}
	return t.UTC(), nil
}

func parseNullTime(column string, s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(column, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullUUID(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return id.String()
}

func fromNullUUID(id uuid.NullUUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	v := id.UUID
	return &v
}

func parseDecimal(column, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse %s: %w", column, err)
	}
	return d, nil
}

func joinIDs(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}

func splitIDs(s string) ([]uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]uuid.UUID, 0, len(parts))
	for _, p := range parts {
		id, err := uuid.Parse(p)
		if err != nil {
			return nil, fmt.Errorf("failed to parse transaction_ids: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func encodeCategorySpending(m map[string]decimal.Decimal) (string, error) {
	raw := make(map[string]string, len(m))
	for k, v := range m {
		raw[k] = v.String()
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("failed to encode category_spending: %w", err)
	}
	return string(b), nil
}

func decodeCategorySpending(s string) (map[string]decimal.Decimal, error) {
	raw := make(map[string]string)
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode category_spending: %w", err)
	}
	m := make(map[string]decimal.Decimal, len(raw))
	for k, v := range raw {
		d, err := parseDecimal("category_spending", v)
		if err != nil {
			return nil, err
		}
		m[k] = d
	}
	return m, nil
}

// where accumulates AND-ed conditions with numbered placeholders
type where struct {
	conds []string
	args  []interface{}
}

// arg registers v and returns its placeholder
func (w *where) arg(v interface{}) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *where) add(cond string) {
	w.conds = append(w.conds, cond)
}

// in adds "column IN (...)"; no-op for an empty list
func (w *where) in(column string, values []interface{}) {
	if len(values) == 0 {
		return
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = w.arg(v)
	}
	w.add(fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")))
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}
