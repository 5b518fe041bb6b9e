package model

// CustomerTier classifies a customer for pricing
type CustomerTier string

const (
	TierRetail    CustomerTier = "retail"
	TierWholesale CustomerTier = "wholesale"
	TierTrainer   CustomerTier = "trainer"
)

// Valid reports whether t is a known tier
func (t CustomerTier) Valid() bool {
	switch t {
	case TierRetail, TierWholesale, TierTrainer:
		return true
	}
	return false
}

// OrderStatus is the fulfilment state of an order
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// PaymentStatus is the settlement state of an order
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentPartial   PaymentStatus = "partial"
	PaymentOverdue   PaymentStatus = "overdue"
	PaymentRefunded  PaymentStatus = "refunded"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentPartial, PaymentOverdue,
		PaymentRefunded, PaymentFailed, PaymentCancelled:
		return true
	}
	return false
}
