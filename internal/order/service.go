// Package order commits assembled drafts as orders and keeps stock and
// customer aggregates in step with them.
package order

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"order-service/internal/draft"
	"order-service/internal/model"
	"order-service/internal/session"
	"order-service/internal/store"
	"order-service/pkg/config"
	"order-service/pkg/logger"
	"order-service/prometheus"
)

// Store is the persistence the service needs. *store.GormStore implements it.
type Store interface {
	GetCustomer(ctx context.Context, tenantID, id uint) (*model.Customer, error)
	GetProduct(ctx context.Context, tenantID, id uint) (*model.Product, error)
	InsertOrder(ctx context.Context, o *model.Order) error
	GetOrder(ctx context.Context, tenantID, id uint) (*model.Order, error)
	ListOrders(ctx context.Context, tenantID uint, f store.OrderFilter) ([]model.Order, int64, error)
	UpdateOrderHeader(ctx context.Context, o *model.Order) error
	DecrementStock(ctx context.Context, tenantID, productID uint, qty int) (*model.Product, error)
	IncrementCustomerTotals(ctx context.Context, tenantID, customerID uint, total decimal.Decimal) error
}

// CreateOrderRequest is a draft ready to be committed
type CreateOrderRequest struct {
	CustomerID    uint                `json:"customer_id"`
	Status        model.OrderStatus   `json:"status"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
	PaymentAmount *decimal.Decimal    `json:"payment_amount"`
	Notes         string              `json:"notes"`
	Items         []draft.Item        `json:"items"`
}

// CreateResult describes a committed order. Degraded means the order exists but
// some of the stock or customer bookkeeping listed in SideEffectFailures did not happen.
type CreateResult struct {
	OrderID            uint                `json:"order_id"`
	Reference          string              `json:"reference"`
	Total              decimal.Decimal     `json:"total"`
	PaymentAmount      decimal.NullDecimal `json:"payment_amount"`
	Due                decimal.Decimal     `json:"due"`
	Degraded           bool                `json:"degraded"`
	SideEffectFailures []SideEffectFailure `json:"side_effect_failures,omitempty"`
}

// OrderPatch holds the header fields an order can be edited with. Nil fields keep the stored value.
type OrderPatch struct {
	Status        *model.OrderStatus   `json:"status"`
	PaymentStatus *model.PaymentStatus `json:"payment_status"`
	PaymentAmount *decimal.Decimal     `json:"payment_amount"`
	Notes         *string              `json:"notes"`
}

// moneyPlaces matches the scale of the decimal(12,2) money columns
const moneyPlaces = 2

// Service sequences order commits
type Service struct {
	store Store
	cfg   config.OrderConfig
}

func NewService(s Store, cfg config.OrderConfig) *Service {
	if cfg.StockWorkers < 1 {
		cfg.StockWorkers = 1
	}
	return &Service{store: s, cfg: cfg}
}

// CreateOrder validates the request, writes the header and items in one
// transaction, then decrements stock and updates the customer's aggregates.
// Once the transaction has committed no error is returned: bookkeeping
// failures are reported through CreateResult.
func (s *Service) CreateOrder(ctx context.Context, sess session.Session, req CreateOrderRequest) (*CreateResult, error) {
	log := logger.FromContext(ctx).With(
		zap.Uint("tenant_id", sess.TenantID),
		zap.Uint("user_id", sess.UserID),
		zap.Uint("customer_id", req.CustomerID),
	)

	if err := validateCreate(&req); err != nil {
		prometheus.RecordCommitFailure(ErrorCode(err))
		log.Warn("Order rejected", zap.Error(err))
		return nil, err
	}

	if _, err := s.store.GetCustomer(ctx, sess.TenantID, req.CustomerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			prometheus.RecordCommitFailure(ErrorCode(ErrCustomerNotFound))
			return nil, ErrCustomerNotFound
		}
		prometheus.RecordCommitFailure("customer_lookup")
		log.Error("Failed to load customer", zap.Error(err))
		return nil, err
	}

	lines, err := s.orderItems(ctx, sess, req.Items)
	if err != nil {
		prometheus.RecordCommitFailure(ErrorCode(err))
		if !errors.Is(err, ErrInvalidItem) {
			log.Error("Failed to load order products", zap.Error(err))
		}
		return nil, err
	}

	total := decimal.Zero
	for _, it := range lines {
		total = total.Add(it.Subtotal)
	}
	paymentAmount, err := DerivePaymentAmount(req.PaymentStatus, req.PaymentAmount, total)
	if err != nil {
		prometheus.RecordCommitFailure(ErrorCode(err))
		return nil, err
	}

	o := &model.Order{
		TenantID:      sess.TenantID,
		Reference:     uuid.NewString(),
		CustomerID:    req.CustomerID,
		CreatedBy:     sess.UserID,
		Status:        req.Status,
		PaymentStatus: req.PaymentStatus,
		PaymentAmount: paymentAmount,
		Total:         total,
		Notes:         req.Notes,
		Items:         lines,
	}
	if err := s.store.InsertOrder(ctx, o); err != nil {
		perr := &PersistenceError{Stage: StageHeader, Err: err}
		if errors.Is(err, store.ErrInsertItems) {
			perr.Stage = StageItems
		}
		prometheus.RecordCommitFailure(ErrorCode(perr))
		log.Error("Failed to persist order", zap.String("stage", perr.Stage), zap.Error(err))
		return nil, perr
	}

	log = log.With(zap.Uint("order_id", o.ID), zap.String("reference", o.Reference))
	log.Info("Order committed",
		zap.String("total", total.StringFixed(2)),
		zap.String("payment_status", string(o.PaymentStatus)),
		zap.Int("items", len(o.Items)),
	)

	failures := s.applySideEffects(logger.WithContext(ctx, log), sess, o)

	result := &CreateResult{
		OrderID:            o.ID,
		Reference:          o.Reference,
		Total:              o.Total,
		PaymentAmount:      o.PaymentAmount,
		Due:                o.DueAmount(),
		Degraded:           len(failures) > 0,
		SideEffectFailures: failures,
	}
	prometheus.RecordOrderCreated(string(o.PaymentStatus), result.Degraded, total.InexactFloat64())
	return result, nil
}

// applySideEffects runs after the order is durable. The request context may be
// cancelled by then, so the work runs detached with its own timeout.
func (s *Service) applySideEffects(ctx context.Context, sess session.Session, o *model.Order) []SideEffectFailure {
	log := logger.FromContext(ctx)
	ctx = context.WithoutCancel(ctx)
	if s.cfg.SideEffectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.SideEffectTimeout)
		defer cancel()
	}

	var (
		mu       sync.Mutex
		failures []SideEffectFailure
	)
	record := func(f SideEffectFailure) {
		mu.Lock()
		failures = append(failures, f)
		mu.Unlock()
		prometheus.RecordSideEffectFailure(f.Kind)
	}

	var g errgroup.Group
	g.SetLimit(s.cfg.StockWorkers)
	for _, item := range o.Items {
		g.Go(func() error {
			p, err := s.store.DecrementStock(ctx, sess.TenantID, item.ProductID, item.Quantity)
			if err != nil {
				log.Error("Failed to decrement stock",
					zap.Uint("product_id", item.ProductID),
					zap.Int("quantity", item.Quantity),
					zap.Error(err),
				)
				record(SideEffectFailure{Kind: SideEffectStock, ProductID: item.ProductID, Message: err.Error()})
				// the remaining items still get their decrement
				return nil
			}
			prometheus.UpdateProductInventory(
				strconv.FormatUint(uint64(sess.TenantID), 10),
				strconv.FormatUint(uint64(p.ID), 10),
				float64(p.Stock),
			)
			return nil
		})
	}
	_ = g.Wait()

	if err := s.store.IncrementCustomerTotals(ctx, sess.TenantID, o.CustomerID, o.Total); err != nil {
		log.Error("Failed to update customer totals", zap.Error(err))
		record(SideEffectFailure{Kind: SideEffectCustomer, CustomerID: o.CustomerID, Message: err.Error()})
	}

	if len(failures) > 0 {
		log.Warn("Order committed with incomplete bookkeeping", zap.Int("failures", len(failures)))
	}
	return failures
}

// UpdateOrder edits the header of a committed order. The payment amount is
// derived again against the stored total. Stock and customer aggregates are
// left as they were at commit.
func (s *Service) UpdateOrder(ctx context.Context, sess session.Session, id uint, patch OrderPatch) (*model.Order, error) {
	o, err := s.GetOrder(ctx, sess, id)
	if err != nil {
		return nil, err
	}

	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, fmt.Errorf("%w: status %q", ErrInvalidStatus, *patch.Status)
		}
		o.Status = *patch.Status
	}
	if patch.PaymentStatus != nil {
		if !patch.PaymentStatus.Valid() {
			return nil, fmt.Errorf("%w: payment status %q", ErrInvalidStatus, *patch.PaymentStatus)
		}
		o.PaymentStatus = *patch.PaymentStatus
	}
	if patch.Notes != nil {
		o.Notes = *patch.Notes
	}

	requested := roundMoney(patch.PaymentAmount)
	if requested == nil && o.PaymentAmount.Valid {
		stored := o.PaymentAmount.Decimal
		requested = &stored
	}
	amount, err := DerivePaymentAmount(o.PaymentStatus, requested, o.Total)
	if err != nil {
		return nil, err
	}
	o.PaymentAmount = amount

	if err := s.store.UpdateOrderHeader(ctx, o); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		logger.FromContext(ctx).Error("Failed to update order", zap.Uint("order_id", id), zap.Error(err))
		return nil, &PersistenceError{Stage: StageUpdate, Err: err}
	}

	logger.FromContext(ctx).Info("Order updated",
		zap.Uint("order_id", o.ID),
		zap.String("status", string(o.Status)),
		zap.String("payment_status", string(o.PaymentStatus)),
	)
	return o, nil
}

// GetOrder loads one of the session tenant's orders
func (s *Service) GetOrder(ctx context.Context, sess session.Session, id uint) (*model.Order, error) {
	o, err := s.store.GetOrder(ctx, sess.TenantID, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	return o, err
}

// ListOrders returns a page of the session tenant's orders and the total match count
func (s *Service) ListOrders(ctx context.Context, sess session.Session, f store.OrderFilter) ([]model.Order, int64, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: status %q", ErrInvalidStatus, f.Status)
	}
	if f.PaymentStatus != "" && !f.PaymentStatus.Valid() {
		return nil, 0, fmt.Errorf("%w: payment status %q", ErrInvalidStatus, f.PaymentStatus)
	}
	return s.store.ListOrders(ctx, sess.TenantID, f)
}

func validateCreate(req *CreateOrderRequest) error {
	if req.CustomerID == 0 {
		return ErrMissingCustomer
	}
	if len(req.Items) == 0 {
		return ErrEmptyOrder
	}

	if req.Status == "" {
		req.Status = model.OrderPending
	}
	if req.PaymentStatus == "" {
		req.PaymentStatus = model.PaymentPending
	}
	if !req.Status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidStatus, req.Status)
	}
	if !req.PaymentStatus.Valid() {
		return fmt.Errorf("%w: payment status %q", ErrInvalidStatus, req.PaymentStatus)
	}

	req.PaymentAmount = roundMoney(req.PaymentAmount)

	for i, it := range req.Items {
		if it.ProductID == 0 || it.Quantity <= 0 {
			return fmt.Errorf("%w: line %d needs a product and a positive quantity", ErrInvalidItem, i)
		}
		if it.Subtotal.IsNegative() || it.Price.IsNegative() {
			return fmt.Errorf("%w: line %d has a negative amount", ErrInvalidItem, i)
		}
	}

	if req.PaymentStatus == model.PaymentPartial &&
		(req.PaymentAmount == nil || !req.PaymentAmount.IsPositive()) {
		return ErrInvalidPaymentAmount
	}
	return nil
}

// orderItems turns draft lines into order lines. The draft comes from the client, so
// every product is read again for the session tenant and must exist and be
// active. The order keeps the stored product name. Stock is not checked here
// since the decrement floors at zero.
func (s *Service) orderItems(ctx context.Context, sess session.Session, items []draft.Item) ([]model.OrderItem, error) {
	out := make([]model.OrderItem, len(items))
	for i, it := range items {
		p, err := s.store.GetProduct(ctx, sess.TenantID, it.ProductID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: line %d product %d does not exist", ErrInvalidItem, i, it.ProductID)
		}
		if err != nil {
			return nil, err
		}
		if !p.IsActive {
			return nil, fmt.Errorf("%w: line %d product %d is not active", ErrInvalidItem, i, p.ID)
		}
		out[i] = model.OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    it.Quantity,
			Price:       it.Price.Round(moneyPlaces),
			Subtotal:    it.Subtotal.Round(moneyPlaces),
		}
	}
	return out, nil
}

func roundMoney(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	r := d.Round(moneyPlaces)
	return &r
}
