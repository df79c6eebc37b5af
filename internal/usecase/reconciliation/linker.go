// Package reconciliation pairs transactions so that both legs of a movement are treated as one event.
package reconciliation

import (
	"github.com/shopspring/decimal"

	"github.com/simaogato/recurring-ledger/internal/domain"
)

// ValidateLink checks whether a and b may be reconciled with each other.
// Order of checks: self link, already reconciled, same kind without a transfer.
func ValidateLink(a, b *domain.Transaction) error {
	if a.ID == b.ID {
		return domain.NewReconciliationError(domain.ErrSelfLink)
	}
	if a.IsReconciled || b.IsReconciled {
		return domain.NewReconciliationError(domain.ErrAlreadyReconciled)
	}
	if a.Kind == b.Kind && a.Kind != domain.KindTransfer {
		return domain.NewReconciliationError(domain.ErrSameKindLink)
	}
	return nil
}

// EffectiveAmount returns the part of tx not matched by its counterpart.
//
//   - not reconciled, or no counterpart given: |amount|
//   - residual stored: |residual|
//   - otherwise: max(0, |amount| - |counterpart amount|)
func EffectiveAmount(tx, counterpart *domain.Transaction) decimal.Decimal {
	if !tx.IsReconciled || counterpart == nil {
		return tx.AbsAmount()
	}
	if tx.ResidualAmount != nil {
		return tx.ResidualAmount.Abs()
	}

	remaining := tx.AbsAmount().Sub(counterpart.AbsAmount())
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// IsParent reports whether tx is the primary side of the pair (tx, counterpart).
// Larger magnitude wins, then earlier date, then earlier creation, then smaller ID string.
func IsParent(tx, counterpart *domain.Transaction) bool {
	txAbs, cpAbs := tx.AbsAmount(), counterpart.AbsAmount()
	if !txAbs.Equal(cpAbs) {
		return txAbs.GreaterThan(cpAbs)
	}
	if !tx.Date.Equal(counterpart.Date) {
		return tx.Date.Before(counterpart.Date)
	}
	if !tx.CreatedAt.Equal(counterpart.CreatedAt) {
		return tx.CreatedAt.Before(counterpart.CreatedAt)
	}
	return tx.ID.String() < counterpart.ID.String()
}
