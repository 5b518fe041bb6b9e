package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer holds contact data, the pricing tier and the running order aggregates.
// TotalOrders and TotalSpent are derived from committed orders and only move
// through the order commit path.
type Customer struct {
	ID          uint            `json:"id" gorm:"primarykey"`
	TenantID    uint            `json:"tenant_id" gorm:"index;not null"`
	Name        string          `json:"name" gorm:"type:varchar(255);not null"`
	Email       string          `json:"email" gorm:"type:varchar(255)"`
	Phone       string          `json:"phone" gorm:"type:varchar(50)"`
	Address     string          `json:"address" gorm:"type:text"`
	Tier        CustomerTier    `json:"tier" gorm:"type:varchar(20);not null;default:retail"`
	TotalOrders int64           `json:"total_orders" gorm:"not null;default:0"`
	TotalSpent  decimal.Decimal `json:"total_spent" gorm:"type:decimal(14,2);not null;default:0"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
