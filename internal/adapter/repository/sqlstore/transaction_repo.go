package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/simaogato/recurring-ledger/internal/domain"
)

const transactionColumns = `id, owner_id, account_id, counter_account_id, amount, kind, category,
	description, date, is_reconciled, counterpart_id, residual_amount, series_id, created_at`

// transactionRepository implements domain.TransactionRepository and domain.PairUpdater
type transactionRepository struct {
	db *DB
}

// NewTransactionRepository creates a new transaction repository.
// The returned value also implements domain.PairUpdater.
func NewTransactionRepository(db *DB) domain.TransactionRepository {
	return &transactionRepository{db: db}
}

var (
	_ domain.TransactionRepository = (*transactionRepository)(nil)
	_ domain.PairUpdater           = (*transactionRepository)(nil)
)

// FindTransactions retrieves transactions matching the filter ordered by date
func (r *transactionRepository) FindTransactions(ctx context.Context, ownerID uuid.UUID, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	var w where
	if ownerID != uuid.Nil {
		w.add("owner_id = " + w.arg(ownerID))
	}
	ids := make([]interface{}, len(filter.IDs))
	for i, id := range filter.IDs {
		ids[i] = id
	}
	w.in("id", ids)
	if filter.CounterpartID != nil {
		w.add("counterpart_id = " + w.arg(*filter.CounterpartID))
	}
	kinds := make([]interface{}, len(filter.Kinds))
	for i, k := range filter.Kinds {
		kinds[i] = string(k)
	}
	w.in("kind", kinds)
	if filter.From != nil {
		w.add("date >= " + w.arg(formatTime(*filter.From)))
	}
	if filter.To != nil {
		w.add("date < " + w.arg(formatTime(*filter.To)))
	}

	query := "SELECT " + transactionColumns + " FROM transactions" + w.String() + " ORDER BY date, created_at, id"

	rows, err := r.db.QueryContext(ctx, r.db.rebind(query), w.args...)
	if err != nil {
		return nil, domain.NewStoreError("find transactions", fmt.Errorf("failed to query transactions: %w", err))
	}
	defer rows.Close()

	result := make([]*domain.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, domain.NewStoreError("find transactions", err)
		}
		result = append(result, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("find transactions", fmt.Errorf("failed to iterate transactions: %w", err))
	}

	return result, nil
}

// GetTransaction retrieves a transaction by its ID
func (r *transactionRepository) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return getTransaction(ctx, r.db, r.db.rebind, id)
}

// CreateTransaction creates a new transaction
func (r *transactionRepository) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}

	var residual interface{}
	if tx.ResidualAmount != nil {
		residual = tx.ResidualAmount.String()
	}

	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(ctx, r.db.rebind(query),
		tx.ID,
		tx.OwnerID,
		tx.AccountID,
		nullUUID(tx.CounterAccountID),
		tx.Amount.String(),
		string(tx.Kind),
		tx.Category,
		tx.Description,
		formatTime(tx.Date),
		tx.IsReconciled,
		nullUUID(tx.CounterpartID),
		residual,
		nullUUID(tx.SeriesID),
		formatTime(tx.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("transaction %s: %w", tx.ID, domain.ErrAlreadyExists)
		}
		return domain.NewStoreError("create transaction", fmt.Errorf("failed to insert transaction: %w", err))
	}

	return nil
}

// UpdateTransaction applies the patch inside a database transaction
func (r *transactionRepository) UpdateTransaction(ctx context.Context, id uuid.UUID, patch domain.TransactionPatch) (*domain.Transaction, error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.NewStoreError("update transaction", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer dbTx.Rollback()

	tx, err := r.patchInTx(ctx, dbTx, id, patch)
	if err != nil {
		return nil, err
	}

	if err := dbTx.Commit(); err != nil {
		return nil, domain.NewStoreError("update transaction", fmt.Errorf("failed to commit transaction: %w", err))
	}

	return tx, nil
}

// UpdateTransactionPair patches both transactions in one database transaction
func (r *transactionRepository) UpdateTransactionPair(ctx context.Context, aID uuid.UUID, aPatch domain.TransactionPatch, bID uuid.UUID, bPatch domain.TransactionPatch) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStoreError("update transaction pair", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer dbTx.Rollback()

	if _, err := r.patchInTx(ctx, dbTx, aID, aPatch); err != nil {
		return err
	}
	if _, err := r.patchInTx(ctx, dbTx, bID, bPatch); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return domain.NewStoreError("update transaction pair", fmt.Errorf("failed to commit transaction: %w", err))
	}

	return nil
}

func (r *transactionRepository) patchInTx(ctx context.Context, dbTx *sql.Tx, id uuid.UUID, patch domain.TransactionPatch) (*domain.Transaction, error) {
	tx, err := getTransaction(ctx, dbTx, r.db.forUpdate, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(tx)

	var residual interface{}
	if tx.ResidualAmount != nil {
		residual = tx.ResidualAmount.String()
	}

	query := `
		UPDATE transactions
		SET is_reconciled = $2, counterpart_id = $3, residual_amount = $4
		WHERE id = $1
	`
	_, err = dbTx.ExecContext(ctx, r.db.rebind(query),
		tx.ID,
		tx.IsReconciled,
		nullUUID(tx.CounterpartID),
		residual,
	)
	if err != nil {
		return nil, domain.NewStoreError("update transaction", fmt.Errorf("failed to update transaction: %w", err))
	}

	return tx, nil
}

func getTransaction(ctx context.Context, q queryer, bind func(string) string, id uuid.UUID) (*domain.Transaction, error) {
	query := "SELECT " + transactionColumns + " FROM transactions WHERE id = $1"

	tx, err := scanTransaction(q.QueryRowContext(ctx, bind(query), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
		}
		return nil, domain.NewStoreError("get transaction", err)
	}
	return tx, nil
}

func scanTransaction(row scanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var amountStr, kind, dateStr, createdStr string
	var counterAccountID, counterpartID, seriesID uuid.NullUUID
	var residualStr sql.NullString

	err := row.Scan(
		&tx.ID,
		&tx.OwnerID,
		&tx.AccountID,
		&counterAccountID,
		&amountStr,
		&kind,
		&tx.Category,
		&tx.Description,
		&dateStr,
		&tx.IsReconciled,
		&counterpartID,
		&residualStr,
		&seriesID,
		&createdStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	tx.Kind = domain.CashFlowKind(kind)
	tx.CounterAccountID = fromNullUUID(counterAccountID)
	tx.CounterpartID = fromNullUUID(counterpartID)
	tx.SeriesID = fromNullUUID(seriesID)

	if tx.Amount, err = parseDecimal("amount", amountStr); err != nil {
		return nil, err
	}
	if residualStr.Valid {
		residual, err := parseDecimal("residual_amount", residualStr.String)
		if err != nil {
			return nil, err
		}
		tx.ResidualAmount = &residual
	}
	if tx.Date, err = parseTime("date", dateStr); err != nil {
		return nil, err
	}
	if tx.CreatedAt, err = parseTime("created_at", createdStr); err != nil {
		return nil, err
	}

	return &tx, nil
}
