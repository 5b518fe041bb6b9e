// Package pricing resolves the unit price a customer pays and derives tier
// prices from a base price and a discount percentage.
package pricing

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"order-service/internal/model"
)

// ErrInvalidDiscount is returned for discount percentages outside [0, 100]
var ErrInvalidDiscount = errors.New("discount percent must be between 0 and 100")

var hundred = decimal.NewFromInt(100)

// ResolvePrice returns the unit price for the given tier. A tier price that is
// absent falls back to the base price, as does an empty or unknown tier.
func ResolvePrice(p *model.Product, tier model.CustomerTier) decimal.Decimal {
	var tierPrice decimal.NullDecimal
	switch tier {
	case model.TierWholesale:
		tierPrice = p.WholesalePrice
	case model.TierTrainer:
		tierPrice = p.TrainerPrice
	case model.TierRetail:
		tierPrice = p.RetailPrice
	}
	if tierPrice.Valid {
		return tierPrice.Decimal
	}
	return p.Price
}

// DiscountedPrice computes base × (1 − percent/100) rounded to 2 decimals
func DiscountedPrice(base decimal.Decimal, percent float64) (decimal.Decimal, error) {
	if math.IsNaN(percent) || percent < 0 || percent > 100 {
		return decimal.Decimal{}, fmt.Errorf("%w: got %v", ErrInvalidDiscount, percent)
	}
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(percent).Div(hundred))
	return base.Mul(factor).Round(2), nil
}

// TierDiscounts are optional discount percentages per tier. A nil entry leaves
// the corresponding tier price unset.
type TierDiscounts struct {
	Wholesale *float64 `json:"wholesale_discount,omitempty"`
	Retail    *float64 `json:"retail_discount,omitempty"`
	Trainer   *float64 `json:"trainer_discount,omitempty"`
}

// ApplyTierDiscounts derives the tier prices of p from its base price
func ApplyTierDiscounts(p *model.Product, d TierDiscounts) error {
	targets := []struct {
		percent *float64
		price   *decimal.NullDecimal
	}{
		{d.Wholesale, &p.WholesalePrice},
		{d.Retail, &p.RetailPrice},
		{d.Trainer, &p.TrainerPrice},
	}

	for _, t := range targets {
		if t.percent == nil {
			continue
		}
		price, err := DiscountedPrice(p.Price, *t.percent)
		if err != nil {
			return err
		}
		*t.price = decimal.NewNullDecimal(price)
	}
	return nil
}
