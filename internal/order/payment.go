package order

import (
	"github.com/shopspring/decimal"

	"order-service/internal/model"
)

// DerivePaymentAmount returns the amount recorded for a payment status:
// the full total when paid, the requested amount capped at the total when
// partial, and null for every other status.
func DerivePaymentAmount(status model.PaymentStatus, requested *decimal.Decimal, total decimal.Decimal) (decimal.NullDecimal, error) {
	switch status {
	case model.PaymentPaid:
		return decimal.NewNullDecimal(total), nil
	case model.PaymentPartial:
		if requested == nil || !requested.IsPositive() {
			return decimal.NullDecimal{}, ErrInvalidPaymentAmount
		}
		return decimal.NewNullDecimal(decimal.Min(*requested, total)), nil
	default:
		return decimal.NullDecimal{}, nil
	}
}
