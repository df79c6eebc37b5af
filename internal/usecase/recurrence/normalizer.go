package recurrence

import (
	"github.com/shopspring/decimal"

	"github.com/simaogato/recurring-ledger/internal/domain"
)

// Average periods per month used by every historical report
var (
	weeksPerMonth   = decimal.RequireFromString("4.33")
	biweeksPerMonth = decimal.RequireFromString("2.17")
	monthsPerYear   = decimal.NewFromInt(12)
)

// ToMonthlyEquivalent converts a periodic amount into its monthly equivalent.
// once and unrecognized frequencies pass through unchanged.
func ToMonthlyEquivalent(amount decimal.Decimal, f domain.Frequency) decimal.Decimal {
	switch f {
	case domain.FrequencyWeekly:
		return amount.Mul(weeksPerMonth)
	case domain.FrequencyBiweekly:
		return amount.Mul(biweeksPerMonth)
	case domain.FrequencyYearly:
		return amount.Div(monthsPerYear)
	default:
		return amount
	}
}
