// Package draft assembles the line items of an order before it is committed.
// Every function returns a new slice and leaves its input untouched.
package draft

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"order-service/internal/model"
	"order-service/internal/pricing"
)

var (
	// ErrInvalidSelection is returned when no product is chosen, the quantity is
	// not positive, or a line edit targets a missing line.
	ErrInvalidSelection = errors.New("invalid selection")
	// ErrInsufficientStock matches every *InsufficientStockError
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InsufficientStockError reports the stock that was available for the product
type InsufficientStockError struct {
	ProductID uint
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Item is one draft order line. Price is resolved when the line is first added
// and kept for the lifetime of the draft.
type Item struct {
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// Selection is what the user picked in the order form
type Selection struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// AddItem adds the selection to the draft, merging it into an existing line for
// the same product. The merged quantity is checked against stock again and the
// line keeps the price it was first added at.
func AddItem(items []Item, sel Selection, p *model.Product, tier model.CustomerTier) ([]Item, error) {
	if p == nil || sel.ProductID == 0 || p.ID != sel.ProductID {
		return nil, fmt.Errorf("%w: no product selected", ErrInvalidSelection)
	}
	if sel.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidSelection)
	}
	if sel.Quantity > p.Stock {
		return nil, &InsufficientStockError{ProductID: p.ID, Requested: sel.Quantity, Available: p.Stock}
	}

	next := clone(items)
	for i := range next {
		if next[i].ProductID != p.ID {
			continue
		}
		merged := next[i].Quantity + sel.Quantity
		if merged > p.Stock {
			return nil, &InsufficientStockError{ProductID: p.ID, Requested: merged, Available: p.Stock}
		}
		next[i].Quantity = merged
		next[i].Subtotal = lineSubtotal(next[i].Price, merged)
		return next, nil
	}

	unit := pricing.ResolvePrice(p, tier)
	return append(next, Item{
		ProductID:   p.ID,
		ProductName: p.Name,
		Quantity:    sel.Quantity,
		Price:       unit,
		Subtotal:    lineSubtotal(unit, sel.Quantity),
	}), nil
}

// RemoveItem drops the line at index. An out-of-range index leaves the draft as it was.
func RemoveItem(items []Item, index int) []Item {
	if index < 0 || index >= len(items) {
		return clone(items)
	}
	next := make([]Item, 0, len(items)-1)
	next = append(next, items[:index]...)
	return append(next, items[index+1:]...)
}

// OverrideSubtotal replaces the subtotal of one line with a manually entered
// value. The override is authoritative and is not checked against price × quantity.
func OverrideSubtotal(items []Item, index int, subtotal decimal.Decimal) ([]Item, error) {
	if index < 0 || index >= len(items) {
		return nil, fmt.Errorf("%w: no line at index %d", ErrInvalidSelection, index)
	}
	if subtotal.IsNegative() {
		return nil, fmt.Errorf("%w: subtotal cannot be negative", ErrInvalidSelection)
	}
	next := clone(items)
	next[index].Subtotal = subtotal
	return next, nil
}

// CalculateTotal sums the line subtotals, overridden values included
func CalculateTotal(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal)
	}
	return total
}

func lineSubtotal(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty)))
}

func clone(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
