// Package store persists products, customers and orders with GORM. Shared
// counters (stock, customer aggregates) are only ever changed with single
// atomic UPDATE statements.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"order-service/internal/model"
	"order-service/prometheus"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
	// ErrInsertHeader and ErrInsertItems tag which write of InsertOrder failed
	ErrInsertHeader = errors.New("insert order header")
	ErrInsertItems  = errors.New("insert order items")
)

const defaultLimit = 50

// OrderFilter narrows ListOrders. Zero values are ignored.
type OrderFilter struct {
	CustomerID    uint
	Status        model.OrderStatus
	PaymentStatus model.PaymentStatus
	From          time.Time
	To            time.Time
	Limit         int
	Offset        int
}

// ProductFilter narrows ListProducts
type ProductFilter struct {
	IsActive *bool
	LowStock bool
	Limit    int
	Offset   int
}

// CustomerFilter narrows ListCustomers
type CustomerFilter struct {
	Tier   model.CustomerTier
	Query  string
	Limit  int
	Offset int
}

// GormStore is the GORM-backed store
type GormStore struct {
	db *gorm.DB
}

// New wraps an open database
func New(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// CreateProduct inserts a product, rejecting a duplicate SKU within the tenant
func (s *GormStore) CreateProduct(ctx context.Context, p *model.Product) error {
	defer prometheus.TrackDBOperation("create_product")(time.Now())

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Product{}).
		Where("tenant_id = ? AND sku = ?", p.TenantID, p.SKU).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: sku %s", ErrConflict, p.SKU)
	}

	// gorm replaces zero values with the column defaults on insert
	active, threshold := p.IsActive, p.LowStockThreshold
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return err
	}
	if active && threshold != 0 {
		return nil
	}
	p.IsActive, p.LowStockThreshold = active, threshold
	return s.db.WithContext(ctx).Model(p).Updates(map[string]interface{}{
		"is_active":           active,
		"low_stock_threshold": threshold,
	}).Error
}

// GetProduct loads a product of the tenant
func (s *GormStore) GetProduct(ctx context.Context, tenantID, id uint) (*model.Product, error) {
	defer prometheus.TrackDBOperation("get_product")(time.Now())

	var p model.Product
	err := s.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", id, tenantID).First(&p).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// ListProducts returns the tenant's products ordered by name
func (s *GormStore) ListProducts(ctx context.Context, tenantID uint, f ProductFilter) ([]model.Product, error) {
	defer prometheus.TrackDBOperation("list_products")(time.Now())

	query := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if f.IsActive != nil {
		query = query.Where("is_active = ?", *f.IsActive)
	}
	if f.LowStock {
		query = query.Where("stock <= low_stock_threshold")
	}

	products := []model.Product{}
	err := paginate(query, f.Limit, f.Offset).Order("name, id").Find(&products).Error
	return products, err
}

// UpdateProduct saves the editable product fields. Stock is deliberately not
// among them: only order commits move stock.
func (s *GormStore) UpdateProduct(ctx context.Context, p *model.Product) error {
	defer prometheus.TrackDBOperation("update_product")(time.Now())

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Product{}).
		Where("tenant_id = ? AND sku = ? AND id <> ?", p.TenantID, p.SKU, p.ID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: sku %s", ErrConflict, p.SKU)
	}

	res := s.db.WithContext(ctx).Model(p).
		Where("tenant_id = ?", p.TenantID).
		Select("name", "sku", "price", "wholesale_price", "retail_price", "trainer_price",
			"low_stock_threshold", "is_active", "updated_at").
		Updates(p)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DecrementStock lowers the product's stock by qty in one statement, flooring
// at zero, stamps updated_at and returns the product as stored afterwards.
func (s *GormStore) DecrementStock(ctx context.Context, tenantID, productID uint, qty int) (*model.Product, error) {
	defer prometheus.TrackDBOperation("decrement_stock")(time.Now())

	res := s.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND tenant_id = ?", productID, tenantID).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("CASE WHEN stock >= ? THEN stock - ? ELSE 0 END", qty, qty),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("product %d: %w", productID, ErrNotFound)
	}
	return s.GetProduct(ctx, tenantID, productID)
}

// CreateCustomer inserts a customer. Aggregates always start at zero.
func (s *GormStore) CreateCustomer(ctx context.Context, c *model.Customer) error {
	defer prometheus.TrackDBOperation("create_customer")(time.Now())

	c.TotalOrders = 0
	c.TotalSpent = decimal.Zero
	return s.db.WithContext(ctx).Create(c).Error
}

// GetCustomer loads a customer of the tenant
func (s *GormStore) GetCustomer(ctx context.Context, tenantID, id uint) (*model.Customer, error) {
	defer prometheus.TrackDBOperation("get_customer")(time.Now())

	var c model.Customer
	err := s.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", id, tenantID).First(&c).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// ListCustomers returns the tenant's customers ordered by name
func (s *GormStore) ListCustomers(ctx context.Context, tenantID uint, f CustomerFilter) ([]model.Customer, error) {
	defer prometheus.TrackDBOperation("list_customers")(time.Now())

	query := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if f.Tier != "" {
		query = query.Where("tier = ?", f.Tier)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}

	customers := []model.Customer{}
	err := paginate(query, f.Limit, f.Offset).Order("name, id").Find(&customers).Error
	return customers, err
}

// UpdateCustomer saves contact data and tier. The aggregates are not writable here.
func (s *GormStore) UpdateCustomer(ctx context.Context, c *model.Customer) error {
	defer prometheus.TrackDBOperation("update_customer")(time.Now())

	res := s.db.WithContext(ctx).Model(c).
		Where("tenant_id = ?", c.TenantID).
		Select("name", "email", "phone", "address", "tier", "updated_at").
		Updates(c)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementCustomerTotals adds one order and its total to the customer's
// aggregates in a single UPDATE, so concurrent commits cannot lose an update.
func (s *GormStore) IncrementCustomerTotals(ctx context.Context, tenantID, customerID uint, total decimal.Decimal) error {
	defer prometheus.TrackDBOperation("increment_customer_totals")(time.Now())

	res := s.db.WithContext(ctx).Model(&model.Customer{}).
		Where("id = ? AND tenant_id = ?", customerID, tenantID).
		Updates(map[string]interface{}{
			"total_orders": gorm.Expr("total_orders + ?", 1),
			"total_spent":  gorm.Expr("total_spent + ?", total),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("customer %d: %w", customerID, ErrNotFound)
	}
	return nil
}

// InsertOrder writes the order header and its items in one transaction. On
// failure nothing is left behind and the error wraps ErrInsertHeader or
// ErrInsertItems.
func (s *GormStore) InsertOrder(ctx context.Context, o *model.Order) error {
	defer prometheus.TrackDBOperation("insert_order")(time.Now())

	items := o.Items
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(o).Error; err != nil {
			return fmt.Errorf("%w: %w", ErrInsertHeader, err)
		}
		if len(items) == 0 {
			return nil
		}
		for i := range items {
			items[i].OrderID = o.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("%w: %w", ErrInsertItems, err)
		}
		return nil
	})
	if err != nil {
		o.ID = 0
		for i := range items {
			items[i].ID = 0
			items[i].OrderID = 0
		}
		return err
	}
	o.Items = items
	return nil
}

// GetOrder loads an order of the tenant with its items
func (s *GormStore) GetOrder(ctx context.Context, tenantID, id uint) (*model.Order, error) {
	defer prometheus.TrackDBOperation("get_order")(time.Now())

	var o model.Order
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&o).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

// ListOrders returns a page of the tenant's orders, newest first, and the total match count
func (s *GormStore) ListOrders(ctx context.Context, tenantID uint, f OrderFilter) ([]model.Order, int64, error) {
	defer prometheus.TrackDBOperation("list_orders")(time.Now())

	query := s.db.WithContext(ctx).Model(&model.Order{}).Where("tenant_id = ?", tenantID)
	if f.CustomerID != 0 {
		query = query.Where("customer_id = ?", f.CustomerID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.PaymentStatus != "" {
		query = query.Where("payment_status = ?", f.PaymentStatus)
	}
	if !f.From.IsZero() {
		query = query.Where("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		query = query.Where("created_at < ?", f.To)
	}
	// shared by the count and the page query
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orders := []model.Order{}
	err := paginate(query, f.Limit, f.Offset).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Order("created_at desc, id desc").
		Find(&orders).Error
	return orders, total, err
}

// UpdateOrderHeader saves the editable header fields of an existing order
func (s *GormStore) UpdateOrderHeader(ctx context.Context, o *model.Order) error {
	defer prometheus.TrackDBOperation("update_order")(time.Now())

	res := s.db.WithContext(ctx).Model(o).
		Where("tenant_id = ?", o.TenantID).
		Select("status", "payment_status", "payment_amount", "notes", "updated_at").
		Updates(o)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func paginate(query *gorm.DB, limit, offset int) *gorm.DB {
	if limit <= 0 {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return query.Limit(limit).Offset(offset)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
