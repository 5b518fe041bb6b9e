package order

import (
	"errors"
	"fmt"

	"order-service/internal/draft"
	"order-service/internal/pricing"
)

// Validation errors are returned before anything is written.
var (
	ErrMissingCustomer      = errors.New("customer is required")
	ErrEmptyOrder           = errors.New("order must have at least one item")
	ErrInvalidPaymentAmount = errors.New("partial payment amount must be greater than zero")
	ErrInvalidStatus        = errors.New("invalid order or payment status")
	ErrInvalidItem          = errors.New("invalid order item")
	ErrCustomerNotFound     = errors.New("customer not found")
	ErrOrderNotFound        = errors.New("order not found")
	// ErrPersistence matches every *PersistenceError
	ErrPersistence = errors.New("persistence failure")
)

// Persistence stages of an order commit
const (
	StageHeader = "header"
	StageItems  = "items"
	StageUpdate = "update"
)

// PersistenceError reports which write of the commit failed. Header and items
// share one transaction, so neither stage leaves a partial order behind.
type PersistenceError struct {
	Stage string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist order %s: %v", e.Stage, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// Side effect kinds
const (
	SideEffectStock    = "stock"
	SideEffectCustomer = "customer"
)

// SideEffectFailure describes bookkeeping that did not happen after an order was
// committed. It never fails the commit; it marks the result as degraded.
type SideEffectFailure struct {
	Kind       string `json:"kind"`
	ProductID  uint   `json:"product_id,omitempty"`
	CustomerID uint   `json:"customer_id,omitempty"`
	Message    string `json:"message"`
}

// ErrorCode maps an error from this package or the draft package to a stable
// machine-readable code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, draft.ErrInvalidSelection):
		return "invalid_selection"
	case errors.Is(err, draft.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, pricing.ErrInvalidDiscount):
		return "invalid_discount"
	case errors.Is(err, ErrMissingCustomer):
		return "missing_customer"
	case errors.Is(err, ErrEmptyOrder):
		return "empty_order"
	case errors.Is(err, ErrInvalidPaymentAmount):
		return "invalid_payment_amount"
	case errors.Is(err, ErrInvalidStatus):
		return "invalid_status"
	case errors.Is(err, ErrInvalidItem):
		return "invalid_item"
	case errors.Is(err, ErrCustomerNotFound):
		return "customer_not_found"
	case errors.Is(err, ErrOrderNotFound):
		return "order_not_found"
	case errors.Is(err, ErrPersistence):
		return "persistence_failure"
	default:
		return "internal_error"
	}
}
