package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents the product master data together with its tier prices.
// Stock is only decremented by order commits.
type Product struct {
	ID                uint                `json:"id" gorm:"primarykey"`
	TenantID          uint                `json:"tenant_id" gorm:"index;not null;uniqueIndex:idx_product_tenant_sku,priority:1"`
	Name              string              `json:"name" gorm:"type:varchar(255);not null"`
	SKU               string              `json:"sku" gorm:"type:varchar(100);not null;uniqueIndex:idx_product_tenant_sku,priority:2"`
	Price             decimal.Decimal     `json:"price" gorm:"type:decimal(12,2);not null"`
	WholesalePrice    decimal.NullDecimal `json:"wholesale_price" gorm:"type:decimal(12,2)"`
	RetailPrice       decimal.NullDecimal `json:"retail_price" gorm:"type:decimal(12,2)"`
	TrainerPrice      decimal.NullDecimal `json:"trainer_price" gorm:"type:decimal(12,2)"`
	Stock             int                 `json:"stock" gorm:"not null;default:0"`
	LowStockThreshold int                 `json:"low_stock_threshold" gorm:"not null;default:10"`
	IsActive          bool                `json:"is_active" gorm:"default:true"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
	DeletedAt         gorm.DeletedAt      `json:"deleted_at,omitempty" gorm:"index"`
}

// IsLowStock reports whether stock has fallen to the alert threshold
func (p *Product) IsLowStock() bool {
	return p.Stock <= p.LowStockThreshold
}
