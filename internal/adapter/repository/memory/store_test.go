package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/recurring-ledger/internal/domain"
)

func newSeries(owner uuid.UUID, due time.Time) *domain.RecurringSeries {
	return &domain.RecurringSeries{
		OwnerID:   owner,
		Name:      "rent",
		Amount:    decimal.NewFromInt(900),
		Kind:      domain.KindExpense,
		Category:  "housing",
		Frequency: domain.FrequencyMonthly,
		AccountID: uuid.New(),
		StartDate: due.AddDate(0, -3, 0),
		DueDate:   due,
		IsActive:  true,
	}
}

func newTransaction(owner uuid.UUID, kind domain.CashFlowKind, amount int64, date time.Time) *domain.Transaction {
	return &domain.Transaction{
		OwnerID:   owner,
		AccountID: uuid.New(),
		Amount:    decimal.NewFromInt(amount),
		Kind:      kind,
		Category:  "misc",
		Date:      date,
	}
}

func TestStore_FindActiveSeries(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	owner := uuid.New()
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	later := newSeries(owner, day.AddDate(0, 0, 5))
	sooner := newSeries(owner, day.AddDate(0, 0, -1))
	inactive := newSeries(owner, day)
	inactive.IsActive = false
	otherOwner := newSeries(uuid.New(), day)

	for _, s := range []*domain.RecurringSeries{later, sooner, inactive, otherOwner} {
		require.NoError(t, store.CreateSeries(ctx, s))
	}

	t.Run("owner scoped and ordered by due date", func(t *testing.T) {
		got, err := store.FindActiveSeries(ctx, owner, domain.SeriesFilter{})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, sooner.ID, got[0].ID)
		assert.Equal(t, later.ID, got[1].ID)
	})

	t.Run("nil owner means every owner", func(t *testing.T) {
		got, err := store.FindActiveSeries(ctx, uuid.Nil, domain.SeriesFilter{})
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("due on or before", func(t *testing.T) {
		got, err := store.FindActiveSeries(ctx, owner, domain.SeriesFilter{DueOnOrBefore: &day})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, sooner.ID, got[0].ID)
	})
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	s := newSeries(uuid.New(), time.Now())
	require.NoError(t, store.CreateSeries(ctx, s))

	got, err := store.GetSeries(ctx, s.ID)
	require.NoError(t, err)
	got.Name = "changed"
	got.TransactionIDs = append(got.TransactionIDs, uuid.New())

	again, err := store.GetSeries(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "rent", again.Name)
	assert.Empty(t, again.TransactionIDs)
}

func TestStore_UpdateSeries(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	s := newSeries(uuid.New(), time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, store.CreateSeries(ctx, s))

	next := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	total := 1
	txID := uuid.New()
	updated, err := store.UpdateSeries(ctx, s.ID, domain.SeriesPatch{
		DueDate:             &next,
		TotalExecutions:     &total,
		AppendTransactionID: &txID,
	})
	require.NoError(t, err)
	assert.Equal(t, next, updated.DueDate)
	assert.Equal(t, 1, updated.TotalExecutions)
	assert.Equal(t, []uuid.UUID{txID}, updated.TransactionIDs)

	_, err = store.UpdateSeries(ctx, uuid.New(), domain.SeriesPatch{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_Transactions(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	owner := uuid.New()
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	income := newTransaction(owner, domain.KindIncome, 100, day)
	expense := newTransaction(owner, domain.KindExpense, -100, day.AddDate(0, 0, 1))
	require.NoError(t, store.CreateTransaction(ctx, income))
	require.NoError(t, store.CreateTransaction(ctx, expense))

	t.Run("invalid transaction rejected", func(t *testing.T) {
		bad := newTransaction(owner, domain.KindExpense, 0, day)
		err := store.CreateTransaction(ctx, bad)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("duplicate id rejected", func(t *testing.T) {
		dup := *income
		err := store.CreateTransaction(ctx, &dup)
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)

		got, err := store.FindTransactions(ctx, owner, domain.TransactionFilter{})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("range is half open", func(t *testing.T) {
		to := day.AddDate(0, 0, 1)
		got, err := store.FindTransactions(ctx, owner, domain.TransactionFilter{From: &day, To: &to})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, income.ID, got[0].ID)
	})

	t.Run("pair update", func(t *testing.T) {
		reconciled := true
		aPatch := domain.TransactionPatch{IsReconciled: &reconciled, CounterpartID: &expense.ID}
		bPatch := domain.TransactionPatch{IsReconciled: &reconciled, CounterpartID: &income.ID}
		require.NoError(t, store.UpdateTransactionPair(ctx, income.ID, aPatch, expense.ID, bPatch))

		linked, err := store.FindTransactions(ctx, owner, domain.TransactionFilter{CounterpartID: &income.ID})
		require.NoError(t, err)
		require.Len(t, linked, 1)
		assert.Equal(t, expense.ID, linked[0].ID)
	})

	t.Run("pair update writes nothing when one side is missing", func(t *testing.T) {
		reconciled := false
		patch := domain.TransactionPatch{IsReconciled: &reconciled, ClearCounterpart: true}
		err := store.UpdateTransactionPair(ctx, income.ID, patch, uuid.New(), patch)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		got, err := store.GetTransaction(ctx, income.ID)
		require.NoError(t, err)
		assert.True(t, got.IsReconciled)
	})
}

func TestStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStore().FindActiveSeries(ctx, uuid.Nil, domain.SeriesFilter{})
	var storeErr *domain.StoreError
	assert.ErrorAs(t, err, &storeErr)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_SingleActivePeriod(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	owner := uuid.New()

	first := &domain.BudgetPeriod{OwnerID: owner, Amount: decimal.NewFromInt(500), StartDate: time.Now(), IsActive: true}
	require.NoError(t, store.CreatePeriod(ctx, first))

	second := &domain.BudgetPeriod{OwnerID: owner, Amount: decimal.NewFromInt(500), StartDate: time.Now(), IsActive: true}
	assert.ErrorIs(t, store.CreatePeriod(ctx, second), domain.ErrActivePeriodExists)

	active, err := store.GetActivePeriod(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.ID)

	_, err = store.GetActivePeriod(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
