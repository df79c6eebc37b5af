package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/simaogato/recurring-ledger/internal/domain"
)

const seriesColumns = `id, owner_id, name, amount, kind, category, frequency, account_id,
	destination_account_id, start_date, end_date, due_date, is_active, is_paused, resume_date,
	last_executed_at, total_executions, failed_executions, transaction_ids, created_at`

// seriesRepository implements domain.SeriesRepository
type seriesRepository struct {
	db *DB
}

// NewSeriesRepository creates a new series repository
func NewSeriesRepository(db *DB) domain.SeriesRepository {
	return &seriesRepository{db: db}
}

// FindActiveSeries retrieves active series ordered by due date
func (r *seriesRepository) FindActiveSeries(ctx context.Context, ownerID uuid.UUID, filter domain.SeriesFilter) ([]*domain.RecurringSeries, error) {
	var w where
	w.add("is_active = " + w.arg(true))
	if ownerID != uuid.Nil {
		w.add("owner_id = " + w.arg(ownerID))
	}
	if filter.DueOnOrBefore != nil {
		// Calendar day bound: strictly before the start of the next day
		w.add("due_date < " + w.arg(formatTime(domain.DateOf(*filter.DueOnOrBefore).AddDate(0, 0, 1))))
	}
	kinds := make([]interface{}, len(filter.Kinds))
	for i, k := range filter.Kinds {
		kinds[i] = string(k)
	}
	w.in("kind", kinds)

	query := "SELECT " + seriesColumns + " FROM recurring_series" + w.String() + " ORDER BY due_date, created_at, id"

	rows, err := r.db.QueryContext(ctx, r.db.rebind(query), w.args...)
	if err != nil {
		return nil, domain.NewStoreError("find series", fmt.Errorf("failed to query series: %w", err))
	}
	defer rows.Close()

	result := make([]*domain.RecurringSeries, 0)
	for rows.Next() {
		s, err := scanSeries(rows)
		if err != nil {
			return nil, domain.NewStoreError("find series", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("find series", fmt.Errorf("failed to iterate series: %w", err))
	}

	return result, nil
}

// GetSeries retrieves a series by its ID
func (r *seriesRepository) GetSeries(ctx context.Context, id uuid.UUID) (*domain.RecurringSeries, error) {
	return getSeries(ctx, r.db, r.db.rebind, id)
}

// CreateSeries creates a new series
func (r *seriesRepository) CreateSeries(ctx context.Context, s *domain.RecurringSeries) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	query := `
		INSERT INTO recurring_series (` + seriesColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err := r.db.ExecContext(ctx, r.db.rebind(query),
		s.ID,
		s.OwnerID,
		s.Name,
		s.Amount.String(),
		string(s.Kind),
		s.Category,
		string(s.Frequency),
		s.AccountID,
		nullUUID(s.DestinationAccountID),
		formatTime(s.StartDate),
		formatNullTime(s.EndDate),
		formatTime(s.DueDate),
		s.IsActive,
		s.IsPaused,
		formatNullTime(s.ResumeDate),
		formatNullTime(s.LastExecutedAt),
		s.TotalExecutions,
		s.FailedExecutions,
		joinIDs(s.TransactionIDs),
		formatTime(s.CreatedAt),
	)
	if err != nil {
		return domain.NewStoreError("create series", fmt.Errorf("failed to create series: %w", err))
	}

	return nil
}

// UpdateSeries applies the patch inside a database transaction and returns the stored result
func (r *seriesRepository) UpdateSeries(ctx context.Context, id uuid.UUID, patch domain.SeriesPatch) (*domain.RecurringSeries, error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.NewStoreError("update series", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer dbTx.Rollback()

	s, err := getSeries(ctx, dbTx, r.db.forUpdate, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(s)

	query := `
		UPDATE recurring_series
		SET due_date = $2, last_executed_at = $3, total_executions = $4, failed_executions = $5,
			is_active = $6, transaction_ids = $7
		WHERE id = $1
	`
	_, err = dbTx.ExecContext(ctx, r.db.rebind(query),
		s.ID,
		formatTime(s.DueDate),
		formatNullTime(s.LastExecutedAt),
		s.TotalExecutions,
		s.FailedExecutions,
		s.IsActive,
		joinIDs(s.TransactionIDs),
	)
	if err != nil {
		return nil, domain.NewStoreError("update series", fmt.Errorf("failed to update series: %w", err))
	}

	if err := dbTx.Commit(); err != nil {
		return nil, domain.NewStoreError("update series", fmt.Errorf("failed to commit transaction: %w", err))
	}

	return s, nil
}

// queryer is satisfied by *sql.DB and *sql.Tx
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func getSeries(ctx context.Context, q queryer, bind func(string) string, id uuid.UUID) (*domain.RecurringSeries, error) {
	query := "SELECT " + seriesColumns + " FROM recurring_series WHERE id = $1"

	s, err := scanSeries(q.QueryRowContext(ctx, bind(query), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("series %s: %w", id, domain.ErrNotFound)
		}
		return nil, domain.NewStoreError("get series", err)
	}
	return s, nil
}

func scanSeries(row scanner) (*domain.RecurringSeries, error) {
	var s domain.RecurringSeries
	var amountStr, kind, frequency, startStr, dueStr, createdStr, txIDs string
	var destinationID uuid.NullUUID
	var endStr, resumeStr, lastExecStr sql.NullString

	err := row.Scan(
		&s.ID,
		&s.OwnerID,
		&s.Name,
		&amountStr,
		&kind,
		&s.Category,
		&frequency,
		&s.AccountID,
		&destinationID,
		&startStr,
		&endStr,
		&dueStr,
		&s.IsActive,
		&s.IsPaused,
		&resumeStr,
		&lastExecStr,
		&s.TotalExecutions,
		&s.FailedExecutions,
		&txIDs,
		&createdStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan series: %w", err)
	}

	s.Kind = domain.CashFlowKind(kind)
	s.Frequency = domain.Frequency(frequency)
	s.DestinationAccountID = fromNullUUID(destinationID)

	if s.Amount, err = parseDecimal("amount", amountStr); err != nil {
		return nil, err
	}
	if s.StartDate, err = parseTime("start_date", startStr); err != nil {
		return nil, err
	}
	if s.DueDate, err = parseTime("due_date", dueStr); err != nil {
		return nil, err
	}
	if s.CreatedAt, err = parseTime("created_at", createdStr); err != nil {
		return nil, err
	}
	if s.EndDate, err = parseNullTime("end_date", endStr); err != nil {
		return nil, err
	}
	if s.ResumeDate, err = parseNullTime("resume_date", resumeStr); err != nil {
		return nil, err
	}
	if s.LastExecutedAt, err = parseNullTime("last_executed_at", lastExecStr); err != nil {
		return nil, err
	}
	if s.TransactionIDs, err = splitIDs(txIDs); err != nil {
		return nil, err
	}

	return &s, nil
}
