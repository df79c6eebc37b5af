// Package memory is a process-local record store. Records are copied on the way in
// and on the way out so callers never share state with the store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/recurring-ledger/internal/domain"
)

// Store implements every repository of the domain plus domain.PairUpdater
type Store struct {
	mu           sync.RWMutex
	series       map[uuid.UUID]*domain.RecurringSeries
	transactions map[uuid.UUID]*domain.Transaction
	periods      map[uuid.UUID]*domain.BudgetPeriod
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{
		series:       make(map[uuid.UUID]*domain.RecurringSeries),
		transactions: make(map[uuid.UUID]*domain.Transaction),
		periods:      make(map[uuid.UUID]*domain.BudgetPeriod),
	}
}

var (
	_ domain.SeriesRepository       = (*Store)(nil)
	_ domain.TransactionRepository  = (*Store)(nil)
	_ domain.PairUpdater            = (*Store)(nil)
	_ domain.BudgetPeriodRepository = (*Store)(nil)
)

// FindActiveSeries returns active series ordered by due date, then creation
func (s *Store) FindActiveSeries(ctx context.Context, ownerID uuid.UUID, filter domain.SeriesFilter) ([]*domain.RecurringSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStoreError("find series", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.RecurringSeries, 0)
	for _, series := range s.series {
		if !series.IsActive {
			continue
		}
		if ownerID != uuid.Nil && series.OwnerID != ownerID {
			continue
		}
		if !filter.Matches(series) {
			continue
		}
		result = append(result, cloneSeries(series))
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})

	return result, nil
}

func (s *Store) GetSeries(ctx context.Context, id uuid.UUID) (*domain.RecurringSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStoreError("get series", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	series, ok := s.series[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneSeries(series), nil
}

func (s *Store) CreateSeries(ctx context.Context, series *domain.RecurringSeries) error {
	if err := ctx.Err(); err != nil {
		return domain.NewStoreError("create series", err)
	}
	if err := series.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if series.ID == uuid.Nil {
		series.ID = uuid.New()
	}
	s.series[series.ID] = cloneSeries(series)
	return nil
}

func (s *Store) UpdateSeries(ctx context.Context, id uuid.UUID, patch domain.SeriesPatch) (*domain.RecurringSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStoreError("update series", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	series, ok := s.series[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	patch.Apply(series)
	return cloneSeries(series), nil
}

// FindTransactions returns matching transactions ordered by date, then creation
func (s *Store) FindTransactions(ctx context.Context, ownerID uuid.UUID, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStoreError("find transactions", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Transaction, 0)
	for _, tx := range s.transactions {
		if ownerID != uuid.Nil && tx.OwnerID != ownerID {
			continue
		}
		if !filter.Matches(tx) {
			continue
		}
		result = append(result, cloneTransaction(tx))
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})

	return result, nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStoreError("get transaction", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneTransaction(tx), nil
}

func (s *Store) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	if err := ctx.Err(); err != nil {
		return domain.NewStoreError("create transaction", err)
	}
	if err := tx.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if _, ok := s.transactions[tx.ID]; ok {
		return fmt.Errorf("transaction %s: %w", tx.ID, domain.ErrAlreadyExists)
	}
	s.transactions[tx.ID] = cloneTransaction(tx)
	return nil
}

func (s *Store) UpdateTransaction(ctx context.Context, id uuid.UUID, patch domain.TransactionPatch) (*domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStoreError("update transaction", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	patch.Apply(tx)
	return cloneTransaction(tx), nil
}

// UpdateTransactionPair patches both transactions under one lock; nothing is written if either is missing
func (s *Store) UpdateTransactionPair(ctx context.Context, aID uuid.UUID, aPatch domain.TransactionPatch, bID uuid.UUID, bPatch domain.TransactionPatch) error {
	if err := ctx.Err(); err != nil {
		return domain.NewStoreError("update transaction pair", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.transactions[aID]
	if !ok {
		return domain.ErrNotFound
	}
	b, ok := s.transactions[bID]
	if !ok {
		return domain.ErrNotFound
	}

	aPatch.Apply(a)
	bPatch.Apply(b)
	return nil
}

func (s *Store) GetActivePeriod(ctx context.Context, ownerID uuid.UUID) (*domain.BudgetPeriod, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStoreError("get active period", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.periods {
		if p.OwnerID == ownerID && p.IsActive {
			return clonePeriod(p), nil
		}
	}
	return nil, domain.ErrNotFound
}

// CreatePeriod stores a period, rejecting a second active period for the same owner
func (s *Store) CreatePeriod(ctx context.Context, period *domain.BudgetPeriod) error {
	if err := ctx.Err(); err != nil {
		return domain.NewStoreError("create period", err)
	}
	if err := period.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if period.IsActive {
		for _, p := range s.periods {
			if p.OwnerID == period.OwnerID && p.IsActive {
				return domain.ErrActivePeriodExists
			}
		}
	}

	if period.ID == uuid.Nil {
		period.ID = uuid.New()
	}
	s.periods[period.ID] = clonePeriod(period)
	return nil
}

func (s *Store) UpdatePeriod(ctx context.Context, period *domain.BudgetPeriod) error {
	if err := ctx.Err(); err != nil {
		return domain.NewStoreError("update period", err)
	}
	if err := period.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.periods[period.ID]; !ok {
		return domain.ErrNotFound
	}
	s.periods[period.ID] = clonePeriod(period)
	return nil
}

func cloneSeries(s *domain.RecurringSeries) *domain.RecurringSeries {
	c := *s
	c.DestinationAccountID = cloneID(s.DestinationAccountID)
	c.EndDate = cloneTime(s.EndDate)
	c.ResumeDate = cloneTime(s.ResumeDate)
	c.LastExecutedAt = cloneTime(s.LastExecutedAt)
	if s.TransactionIDs != nil {
		c.TransactionIDs = append([]uuid.UUID(nil), s.TransactionIDs...)
	}
	return &c
}

func cloneTransaction(t *domain.Transaction) *domain.Transaction {
	c := *t
	c.CounterAccountID = cloneID(t.CounterAccountID)
	c.CounterpartID = cloneID(t.CounterpartID)
	c.SeriesID = cloneID(t.SeriesID)
	if t.ResidualAmount != nil {
		residual := *t.ResidualAmount
		c.ResidualAmount = &residual
	}
	return &c
}

func clonePeriod(p *domain.BudgetPeriod) *domain.BudgetPeriod {
	c := *p
	c.EndDate = cloneTime(p.EndDate)
	if p.Categories != nil {
		c.Categories = append([]string(nil), p.Categories...)
	}
	if p.CategorySpending != nil {
		c.CategorySpending = make(map[string]decimal.Decimal, len(p.CategorySpending))
		for k, v := range p.CategorySpending {
			c.CategorySpending[k] = v
		}
	}
	return &c
}
