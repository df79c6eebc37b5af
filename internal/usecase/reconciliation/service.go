package reconciliation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/simaogato/recurring-ledger/internal/domain"
	"github.com/simaogato/recurring-ledger/internal/logging"
)

// LinkedPair is the outcome of a successful link, ordered by IsParent
type LinkedPair struct {
	Parent *domain.Transaction
	Child  *domain.Transaction
}

// UnlinkResult reports what an unlink touched
type UnlinkResult struct {
	Transaction       *domain.Transaction
	CounterpartID     uuid.UUID
	CounterpartClosed bool // The counterpart had no other links left and was cleared too
}

// LinkService handles link and unlink of transaction pairs
type LinkService struct {
	TransactionRepo domain.TransactionRepository
	Logger          logrus.FieldLogger
}

// NewLinkService creates a new LinkService instance
func NewLinkService(transactionRepo domain.TransactionRepository, logger logrus.FieldLogger) *LinkService {
	return &LinkService{
		TransactionRepo: transactionRepo,
		Logger:          logging.OrDiscard(logger),
	}
}

func linkPatch(counterpartID uuid.UUID) domain.TransactionPatch {
	reconciled := true
	id := counterpartID
	return domain.TransactionPatch{IsReconciled: &reconciled, CounterpartID: &id}
}

func clearPatch() domain.TransactionPatch {
	reconciled := false
	return domain.TransactionPatch{IsReconciled: &reconciled, ClearCounterpart: true, ClearResidual: true}
}

// Link reconciles a and b with each other
// Logic:
//  1. Load both transactions
//  2. ValidateLink
//  3. Write both sides: in one store transaction when the repository supports it,
//     else sequentially, undoing the first write if the second fails
func (s *LinkService) Link(ctx context.Context, aID, bID uuid.UUID) (*LinkedPair, error) {
	a, err := s.TransactionRepo.GetTransaction(ctx, aID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", aID, err)
	}
	b, err := s.TransactionRepo.GetTransaction(ctx, bID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", bID, err)
	}

	if err := ValidateLink(a, b); err != nil {
		return nil, err
	}

	if err := s.writePair(ctx, a, linkPatch(b.ID), b.ID, linkPatch(a.ID)); err != nil {
		return nil, err
	}

	linkedA, linkedB := a.ID, b.ID
	a.IsReconciled, a.CounterpartID = true, &linkedB
	b.IsReconciled, b.CounterpartID = true, &linkedA

	s.Logger.WithFields(logrus.Fields{"a_id": a.ID, "b_id": b.ID}).Info("Reconciliation.Link.Complete")

	if IsParent(a, b) {
		return &LinkedPair{Parent: a, Child: b}, nil
	}
	return &LinkedPair{Parent: b, Child: a}, nil
}

// Unlink clears the reconciliation of a transaction.
// The counterpart is cleared as well once nothing else is linked to it.
func (s *LinkService) Unlink(ctx context.Context, id uuid.UUID) (*UnlinkResult, error) {
	tx, err := s.TransactionRepo.GetTransaction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", id, err)
	}
	if tx.CounterpartID == nil {
		return nil, domain.NewReconciliationError(domain.ErrNotReconciled)
	}
	counterpartID := *tx.CounterpartID

	// Siblings still pointing at the same counterpart, excluding tx itself
	linked, err := s.TransactionRepo.FindTransactions(ctx, tx.OwnerID, domain.TransactionFilter{CounterpartID: &counterpartID})
	if err != nil {
		return nil, fmt.Errorf("failed to find transactions linked to %s: %w", counterpartID, err)
	}
	siblings := 0
	for _, other := range linked {
		if other.ID != tx.ID {
			siblings++
		}
	}

	closeCounterpart := false
	if siblings == 0 {
		counterpart, err := s.TransactionRepo.GetTransaction(ctx, counterpartID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			// Dangling link: only tx is cleared
		case err != nil:
			return nil, fmt.Errorf("failed to get counterpart %s: %w", counterpartID, err)
		default:
			closeCounterpart = counterpart.IsReconciled || counterpart.CounterpartID != nil
		}
	}

	if closeCounterpart {
		err = s.writePair(ctx, tx, clearPatch(), counterpartID, clearPatch())
	} else {
		_, err = s.TransactionRepo.UpdateTransaction(ctx, tx.ID, clearPatch())
		if err != nil {
			err = fmt.Errorf("failed to clear transaction %s: %w", tx.ID, err)
		}
	}
	if err != nil {
		return nil, err
	}

	tx.IsReconciled, tx.CounterpartID, tx.ResidualAmount = false, nil, nil

	s.Logger.WithFields(logrus.Fields{
		"transaction_id":     tx.ID,
		"counterpart_id":     counterpartID,
		"counterpart_closed": closeCounterpart,
	}).Info("Reconciliation.Unlink.Complete")

	return &UnlinkResult{Transaction: tx, CounterpartID: counterpartID, CounterpartClosed: closeCounterpart}, nil
}

// writePair applies both patches so that either both or neither are observable.
// a is the state of the first transaction before the write.
func (s *LinkService) writePair(ctx context.Context, a *domain.Transaction, aPatch domain.TransactionPatch, bID uuid.UUID, bPatch domain.TransactionPatch) error {
	aID := a.ID
	if pair, ok := s.TransactionRepo.(domain.PairUpdater); ok {
		if err := pair.UpdateTransactionPair(ctx, aID, aPatch, bID, bPatch); err != nil {
			return fmt.Errorf("failed to update transaction pair: %w", err)
		}
		return nil
	}

	if _, err := s.TransactionRepo.UpdateTransaction(ctx, aID, aPatch); err != nil {
		return fmt.Errorf("failed to update transaction %s: %w", aID, err)
	}

	if _, err := s.TransactionRepo.UpdateTransaction(ctx, bID, bPatch); err != nil {
		if _, undoErr := s.TransactionRepo.UpdateTransaction(ctx, aID, restorePatch(a)); undoErr != nil {
			s.Logger.WithError(undoErr).WithField("transaction_id", aID).Error("Reconciliation.Compensate.Error")
			return fmt.Errorf("failed to update transaction %s: %w", bID, errors.Join(err, undoErr))
		}
		return fmt.Errorf("failed to update transaction %s: %w", bID, err)
	}

	return nil
}

// restorePatch rebuilds the reconciliation fields of tx as they were
func restorePatch(tx *domain.Transaction) domain.TransactionPatch {
	reconciled := tx.IsReconciled
	patch := domain.TransactionPatch{IsReconciled: &reconciled}

	if tx.CounterpartID != nil {
		id := *tx.CounterpartID
		patch.CounterpartID = &id
	} else {
		patch.ClearCounterpart = true
	}

	if tx.ResidualAmount != nil {
		residual := *tx.ResidualAmount
		patch.ResidualAmount = &residual
	} else {
		patch.ClearResidual = true
	}

	return patch
}
