package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/simaogato/recurring-ledger/internal/domain"
)

const periodColumns = `id, owner_id, amount, categories, start_date, end_date, is_active,
	total_spent, total_saved, category_spending`

// budgetPeriodRepository implements domain.BudgetPeriodRepository
type budgetPeriodRepository struct {
	db *DB
}

// NewBudgetPeriodRepository creates a new budget period repository
func NewBudgetPeriodRepository(db *DB) domain.BudgetPeriodRepository {
	return &budgetPeriodRepository{db: db}
}

// GetActivePeriod retrieves the active period of an owner
func (r *budgetPeriodRepository) GetActivePeriod(ctx context.Context, ownerID uuid.UUID) (*domain.BudgetPeriod, error) {
	query := "SELECT " + periodColumns + " FROM budget_periods WHERE owner_id = $1 AND is_active = $2"

	p, err := scanPeriod(r.db.QueryRowContext(ctx, r.db.rebind(query), ownerID, true))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("active period for %s: %w", ownerID, domain.ErrNotFound)
		}
		return nil, domain.NewStoreError("get active period", err)
	}
	return p, nil
}

// CreatePeriod creates a new period. A second active period for the owner violates the partial unique index.
func (r *budgetPeriodRepository) CreatePeriod(ctx context.Context, p *domain.BudgetPeriod) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	categories, spending, err := encodePeriod(p)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO budget_periods (` + periodColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.db.ExecContext(ctx, r.db.rebind(query),
		p.ID,
		p.OwnerID,
		p.Amount.String(),
		categories,
		formatTime(p.StartDate),
		formatNullTime(p.EndDate),
		p.IsActive,
		p.TotalSpent.String(),
		p.TotalSaved.String(),
		spending,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrActivePeriodExists
		}
		return domain.NewStoreError("create period", fmt.Errorf("failed to insert period: %w", err))
	}

	return nil
}

// UpdatePeriod persists end date, active flag and totals
func (r *budgetPeriodRepository) UpdatePeriod(ctx context.Context, p *domain.BudgetPeriod) error {
	if err := p.Validate(); err != nil {
		return err
	}

	_, spending, err := encodePeriod(p)
	if err != nil {
		return err
	}

	query := `
		UPDATE budget_periods
		SET end_date = $2, is_active = $3, total_spent = $4, total_saved = $5, category_spending = $6
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, r.db.rebind(query),
		p.ID,
		formatNullTime(p.EndDate),
		p.IsActive,
		p.TotalSpent.String(),
		p.TotalSaved.String(),
		spending,
	)
	if err != nil {
		return domain.NewStoreError("update period", fmt.Errorf("failed to update period: %w", err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return domain.NewStoreError("update period", fmt.Errorf("failed to read affected rows: %w", err))
	}
	if affected == 0 {
		return fmt.Errorf("period %s: %w", p.ID, domain.ErrNotFound)
	}

	return nil
}

func encodePeriod(p *domain.BudgetPeriod) (string, string, error) {
	categories := p.Categories
	if categories == nil {
		categories = []string{}
	}
	rawCategories, err := json.Marshal(categories)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode categories: %w", err)
	}

	spending, err := encodeCategorySpending(p.CategorySpending)
	if err != nil {
		return "", "", err
	}

	return string(rawCategories), spending, nil
}

func scanPeriod(row scanner) (*domain.BudgetPeriod, error) {
	var p domain.BudgetPeriod
	var amountStr, categoriesStr, startStr, spentStr, savedStr, spendingStr string
	var endStr sql.NullString

	err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&amountStr,
		&categoriesStr,
		&startStr,
		&endStr,
		&p.IsActive,
		&spentStr,
		&savedStr,
		&spendingStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan period: %w", err)
	}

	if p.Amount, err = parseDecimal("amount", amountStr); err != nil {
		return nil, err
	}
	if p.TotalSpent, err = parseDecimal("total_spent", spentStr); err != nil {
		return nil, err
	}
	if p.TotalSaved, err = parseDecimal("total_saved", savedStr); err != nil {
		return nil, err
	}
	if p.StartDate, err = parseTime("start_date", startStr); err != nil {
		return nil, err
	}
	if p.EndDate, err = parseNullTime("end_date", endStr); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(categoriesStr), &p.Categories); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}
	if p.CategorySpending, err = decodeCategorySpending(spendingStr); err != nil {
		return nil, err
	}

	return &p, nil
}

// isUniqueViolation recognises unique and primary key constraint failures of both drivers
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
