package domain

// Frequency represents how often a recurring series fires
type Frequency string

const (
	FrequencyOnce     Frequency = "once"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
	FrequencyYearly   Frequency = "yearly"
)

// Valid reports whether the frequency belongs to the supported set
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyOnce, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// CashFlowKind represents the direction of a cash flow
type CashFlowKind string

const (
	KindIncome   CashFlowKind = "income"
	KindExpense  CashFlowKind = "expense"
	KindTransfer CashFlowKind = "transfer"
)

// Valid reports whether the kind belongs to the supported set
func (k CashFlowKind) Valid() bool {
	switch k {
	case KindIncome, KindExpense, KindTransfer:
		return true
	}
	return false
}

// Sign returns the sign applied to amounts of this kind.
// Expenses are negative; income and transfers keep their sign.
func (k CashFlowKind) Sign() int64 {
	if k == KindExpense {
		return -1
	}
	return 1
}
