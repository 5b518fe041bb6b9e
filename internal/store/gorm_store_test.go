package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"order-service/internal/model"
	"order-service/pkg/config"
	"order-service/pkg/database"
)

const tenant = uint(1)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.Open(&config.DBConfig{
		Driver:   config.DriverSQLite,
		DSN:      ":memory:",
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedProduct(t *testing.T, s *GormStore, sku string, stock int) *model.Product {
	p := &model.Product{
		TenantID:          tenant,
		Name:              "Product " + sku,
		SKU:               sku,
		Price:             dec("100"),
		WholesalePrice:    decimal.NewNullDecimal(dec("80")),
		Stock:             stock,
		LowStockThreshold: 2,
		IsActive:          true,
	}
	require.NoError(t, s.CreateProduct(context.Background(), p))
	return p
}

func seedCustomer(t *testing.T, s *GormStore, name string) *model.Customer {
	c := &model.Customer{TenantID: tenant, Name: name, Email: name + "@example.com", Tier: model.TierWholesale}
	require.NoError(t, s.CreateCustomer(context.Background(), c))
	return c
}

func TestCreateProduct_DuplicateSKU(t *testing.T) {
	s := New(setupTestDB(t))
	seedProduct(t, s, "A-1", 5)

	dup := &model.Product{TenantID: tenant, Name: "Other", SKU: "A-1", Price: dec("1")}
	err := s.CreateProduct(context.Background(), dup)
	assert.ErrorIs(t, err, ErrConflict)

	// same SKU in another tenant is fine
	other := &model.Product{TenantID: 2, Name: "Other", SKU: "A-1", Price: dec("1")}
	assert.NoError(t, s.CreateProduct(context.Background(), other))
}

func TestGetProduct_TenantScoped(t *testing.T) {
	s := New(setupTestDB(t))
	p := seedProduct(t, s, "A-1", 5)

	got, err := s.GetProduct(context.Background(), tenant, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "A-1", got.SKU)
	assert.True(t, got.WholesalePrice.Valid)
	assert.True(t, got.WholesalePrice.Decimal.Equal(dec("80")))
	assert.False(t, got.TrainerPrice.Valid)

	_, err = s.GetProduct(context.Background(), 2, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateProduct_DoesNotTouchStock(t *testing.T) {
	s := New(setupTestDB(t))
	p := seedProduct(t, s, "A-1", 5)

	p.Name = "Renamed"
	p.Price = dec("120")
	p.Stock = 999
	require.NoError(t, s.UpdateProduct(context.Background(), p))

	got, err := s.GetProduct(context.Background(), tenant, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.True(t, got.Price.Equal(dec("120")))
	assert.Equal(t, 5, got.Stock)
}

func TestListProducts_LowStock(t *testing.T) {
	s := New(setupTestDB(t))
	seedProduct(t, s, "A-1", 1)
	seedProduct(t, s, "A-2", 50)

	all, err := s.ListProducts(context.Background(), tenant, ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	low, err := s.ListProducts(context.Background(), tenant, ProductFilter{LowStock: true})
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "A-1", low[0].SKU)
}

func TestDecrementStock(t *testing.T) {
	s := New(setupTestDB(t))
	p := seedProduct(t, s, "A-1", 10)

	got, err := s.DecrementStock(context.Background(), tenant, p.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Stock)
	assert.False(t, got.UpdatedAt.Before(p.UpdatedAt))
}

func TestDecrementStock_FloorsAtZero(t *testing.T) {
	s := New(setupTestDB(t))
	p := seedProduct(t, s, "A-1", 5)

	got, err := s.DecrementStock(context.Background(), tenant, p.ID, 8)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)
}

func TestDecrementStock_NotFound(t *testing.T) {
	s := New(setupTestDB(t))
	p := seedProduct(t, s, "A-1", 5)

	_, err := s.DecrementStock(context.Background(), tenant, 404, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.DecrementStock(context.Background(), 2, p.ID, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDecrementStock_ConcurrentCallsDoNotLoseUpdates(t *testing.T) {
	s := New(setupTestDB(t))
	p := seedProduct(t, s, "A-1", 20)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.DecrementStock(context.Background(), tenant, p.ID, 2)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.GetProduct(context.Background(), tenant, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)
}

func TestCreateCustomer_AggregatesStartAtZero(t *testing.T) {
	s := New(setupTestDB(t))
	c := &model.Customer{TenantID: tenant, Name: "Ann", TotalOrders: 9, TotalSpent: dec("500")}
	require.NoError(t, s.CreateCustomer(context.Background(), c))

	got, err := s.GetCustomer(context.Background(), tenant, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.TotalOrders)
	assert.True(t, got.TotalSpent.IsZero())
	assert.Equal(t, model.TierRetail, got.Tier)
}

func TestIncrementCustomerTotals_Concurrent(t *testing.T) {
	s := New(setupTestDB(t))
	c := seedCustomer(t, s, "ann")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.IncrementCustomerTotals(context.Background(), tenant, c.ID, dec("12.5")))
		}()
	}
	wg.Wait()

	got, err := s.GetCustomer(context.Background(), tenant, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), got.TotalOrders)
	assert.True(t, got.TotalSpent.Equal(dec("250")), "total spent %s", got.TotalSpent)
}

func TestIncrementCustomerTotals_NotFound(t *testing.T) {
	s := New(setupTestDB(t))
	err := s.IncrementCustomerTotals(context.Background(), tenant, 404, dec("1"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListCustomers_Search(t *testing.T) {
	s := New(setupTestDB(t))
	seedCustomer(t, s, "alice")
	seedCustomer(t, s, "bob")
	retail := &model.Customer{TenantID: tenant, Name: "Carol", Tier: model.TierRetail}
	require.NoError(t, s.CreateCustomer(context.Background(), retail))

	found, err := s.ListCustomers(context.Background(), tenant, CustomerFilter{Query: "ALI"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "alice", found[0].Name)

	wholesale, err := s.ListCustomers(context.Background(), tenant, CustomerFilter{Tier: model.TierWholesale})
	require.NoError(t, err)
	assert.Len(t, wholesale, 2)
}

func TestUpdateCustomer_KeepsAggregates(t *testing.T) {
	s := New(setupTestDB(t))
	c := seedCustomer(t, s, "ann")
	require.NoError(t, s.IncrementCustomerTotals(context.Background(), tenant, c.ID, dec("40")))

	c.Name = "Ann B"
	c.Tier = model.TierTrainer
	c.TotalOrders = 0
	c.TotalSpent = decimal.Zero
	require.NoError(t, s.UpdateCustomer(context.Background(), c))

	got, err := s.GetCustomer(context.Background(), tenant, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann B", got.Name)
	assert.Equal(t, model.TierTrainer, got.Tier)
	assert.Equal(t, int64(1), got.TotalOrders)
	assert.True(t, got.TotalSpent.Equal(dec("40")))
}

func newOrder(customerID, productID uint) *model.Order {
	return &model.Order{
		TenantID:      tenant,
		Reference:     "ref-" + time.Now().Format("150405.000000000"),
		CustomerID:    customerID,
		Status:        model.OrderPending,
		PaymentStatus: model.PaymentPending,
		Total:         dec("160"),
		Items: []model.OrderItem{
			{ProductID: productID, ProductName: "Widget", Quantity: 2, Price: dec("80"), Subtotal: dec("160")},
		},
	}
}

func TestInsertOrder(t *testing.T) {
	s := New(setupTestDB(t))
	c := seedCustomer(t, s, "ann")
	p := seedProduct(t, s, "A-1", 5)

	o := newOrder(c.ID, p.ID)
	require.NoError(t, s.InsertOrder(context.Background(), o))
	assert.NotZero(t, o.ID)
	require.Len(t, o.Items, 1)
	assert.Equal(t, o.ID, o.Items[0].OrderID)

	got, err := s.GetOrder(context.Background(), tenant, o.ID)
	require.NoError(t, err)
	assert.True(t, got.Total.Equal(dec("160")))
	assert.False(t, got.PaymentAmount.Valid)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Widget", got.Items[0].ProductName)
	assert.True(t, got.Items[0].Subtotal.Equal(dec("160")))
}

func TestInsertOrder_ItemFailureRollsBackHeader(t *testing.T) {
	db := setupTestDB(t)
	s := New(db)
	c := seedCustomer(t, s, "ann")
	p := seedProduct(t, s, "A-1", 5)

	err := db.Callback().Create().Before("gorm:create").Register("test:fail_items", func(tx *gorm.DB) {
		if tx.Statement.Table == "order_items" {
			tx.AddError(errors.New("disk full"))
		}
	})
	require.NoError(t, err)

	o := newOrder(c.ID, p.ID)
	err = s.InsertOrder(context.Background(), o)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsertItems)
	assert.NotErrorIs(t, err, ErrInsertHeader)
	assert.Zero(t, o.ID)

	var count int64
	require.NoError(t, db.Model(&model.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestInsertOrder_HeaderFailure(t *testing.T) {
	db := setupTestDB(t)
	s := New(db)
	c := seedCustomer(t, s, "ann")
	p := seedProduct(t, s, "A-1", 5)

	first := newOrder(c.ID, p.ID)
	require.NoError(t, s.InsertOrder(context.Background(), first))

	dup := newOrder(c.ID, p.ID)
	dup.Reference = first.Reference
	err := s.InsertOrder(context.Background(), dup)
	assert.ErrorIs(t, err, ErrInsertHeader)

	var items int64
	require.NoError(t, db.Model(&model.OrderItem{}).Count(&items).Error)
	assert.Equal(t, int64(1), items)
}

func TestListOrders_Filters(t *testing.T) {
	s := New(setupTestDB(t))
	ann := seedCustomer(t, s, "ann")
	bob := seedCustomer(t, s, "bob")
	p := seedProduct(t, s, "A-1", 50)

	for i, cust := range []uint{ann.ID, ann.ID, bob.ID} {
		o := newOrder(cust, p.ID)
		o.Reference = o.Reference + string(rune('a'+i))
		if i == 1 {
			o.PaymentStatus = model.PaymentPaid
			o.PaymentAmount = decimal.NewNullDecimal(o.Total)
		}
		require.NoError(t, s.InsertOrder(context.Background(), o))
	}

	orders, total, err := s.ListOrders(context.Background(), tenant, OrderFilter{CustomerID: ann.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, orders, 2)
	assert.Len(t, orders[0].Items, 1)

	_, total, err = s.ListOrders(context.Background(), tenant, OrderFilter{PaymentStatus: model.PaymentPaid})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	page, total, err := s.ListOrders(context.Background(), tenant, OrderFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, page, 1)

	_, total, err = s.ListOrders(context.Background(), tenant, OrderFilter{From: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestUpdateOrderHeader(t *testing.T) {
	s := New(setupTestDB(t))
	c := seedCustomer(t, s, "ann")
	p := seedProduct(t, s, "A-1", 5)
	o := newOrder(c.ID, p.ID)
	require.NoError(t, s.InsertOrder(context.Background(), o))

	o.Status = model.OrderShipped
	o.PaymentStatus = model.PaymentPartial
	o.PaymentAmount = decimal.NewNullDecimal(dec("60"))
	require.NoError(t, s.UpdateOrderHeader(context.Background(), o))

	got, err := s.GetOrder(context.Background(), tenant, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderShipped, got.Status)
	assert.True(t, got.PaymentAmount.Valid)
	assert.True(t, got.PaymentAmount.Decimal.Equal(dec("60")))

	o.PaymentStatus = model.PaymentPending
	o.PaymentAmount = decimal.NullDecimal{}
	require.NoError(t, s.UpdateOrderHeader(context.Background(), o))
	got, err = s.GetOrder(context.Background(), tenant, o.ID)
	require.NoError(t, err)
	assert.False(t, got.PaymentAmount.Valid)

	missing := &model.Order{ID: 404, TenantID: tenant, Status: model.OrderPending}
	assert.ErrorIs(t, s.UpdateOrderHeader(context.Background(), missing), ErrNotFound)
}
