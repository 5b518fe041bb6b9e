package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a committed order header
type Order struct {
	ID            uint                `json:"id" gorm:"primarykey"`
	TenantID      uint                `json:"tenant_id" gorm:"index;not null"`
	Reference     string              `json:"reference" gorm:"type:varchar(36);uniqueIndex;not null"`
	CustomerID    uint                `json:"customer_id" gorm:"index;not null"`
	CreatedBy     uint                `json:"created_by"`
	Status        OrderStatus         `json:"status" gorm:"type:varchar(20);index;not null;default:pending"`
	PaymentStatus PaymentStatus       `json:"payment_status" gorm:"type:varchar(20);index;not null;default:pending"`
	PaymentAmount decimal.NullDecimal `json:"payment_amount" gorm:"type:decimal(12,2)"`
	Total         decimal.Decimal     `json:"total" gorm:"type:decimal(12,2);not null"`
	Notes         string              `json:"notes" gorm:"type:text"`
	Items         []OrderItem         `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	CreatedAt     time.Time           `json:"created_at" gorm:"index"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// DueAmount is the total minus what has been paid; the full total when nothing was recorded
func (o *Order) DueAmount() decimal.Decimal {
	if !o.PaymentAmount.Valid {
		return o.Total
	}
	return o.Total.Sub(o.PaymentAmount.Decimal)
}

// OrderItem is a persisted order line. Price and Subtotal are frozen at commit time.
type OrderItem struct {
	ID          uint            `json:"id" gorm:"primarykey"`
	OrderID     uint            `json:"order_id" gorm:"index;not null"`
	ProductID   uint            `json:"product_id" gorm:"index;not null"`
	ProductName string          `json:"product_name" gorm:"type:varchar(255)"`
	Quantity    int             `json:"quantity" gorm:"not null"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	Subtotal    decimal.Decimal `json:"subtotal" gorm:"type:decimal(12,2);not null"`
}
