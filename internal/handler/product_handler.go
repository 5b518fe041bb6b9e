package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"order-service/internal/model"
	"order-service/internal/pricing"
	"order-service/internal/session"
	"order-service/internal/store"
	"order-service/pkg/logger"
	"order-service/prometheus"
)

// ProductRequest creates or edits a product. Tier prices may be given
// explicitly or derived from the base price with a discount percentage; a
// discount wins over an explicit price for the same tier.
type ProductRequest struct {
	pricing.TierDiscounts

	Name              string           `json:"name"`
	SKU               string           `json:"sku"`
	Price             decimal.Decimal  `json:"price"`
	WholesalePrice    *decimal.Decimal `json:"wholesale_price"`
	RetailPrice       *decimal.Decimal `json:"retail_price"`
	TrainerPrice      *decimal.Decimal `json:"trainer_price"`
	Stock             int              `json:"stock"`
	LowStockThreshold *int             `json:"low_stock_threshold"`
	IsActive          *bool            `json:"is_active"`
}

func (r *ProductRequest) validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.SKU = strings.TrimSpace(r.SKU)
	switch {
	case r.Name == "":
		return invalid("invalid_product", "name is required")
	case r.SKU == "":
		return invalid("invalid_product", "sku is required")
	case !r.Price.IsPositive():
		return invalid("invalid_product", "price must be greater than zero")
	case r.Stock < 0:
		return invalid("invalid_product", "stock cannot be negative")
	case r.LowStockThreshold != nil && *r.LowStockThreshold < 0:
		return invalid("invalid_product", "low_stock_threshold cannot be negative")
	}
	for _, p := range []*decimal.Decimal{r.WholesalePrice, r.RetailPrice, r.TrainerPrice} {
		if p != nil && p.IsNegative() {
			return invalid("invalid_product", "tier prices cannot be negative")
		}
	}
	return nil
}

// apply copies the editable fields onto p and derives the tier prices
func (r *ProductRequest) apply(p *model.Product) error {
	p.Name = r.Name
	p.SKU = r.SKU
	p.Price = r.Price.Round(2)
	p.WholesalePrice = nullable(r.WholesalePrice)
	p.RetailPrice = nullable(r.RetailPrice)
	p.TrainerPrice = nullable(r.TrainerPrice)
	if r.LowStockThreshold != nil {
		p.LowStockThreshold = *r.LowStockThreshold
	}
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
	return pricing.ApplyTierDiscounts(p, r.TierDiscounts)
}

func nullable(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d.Round(2))
}

// ListProducts handles GET /api/products
func (h *Handler) ListProducts(c echo.Context) error {
	sess, err := session.FromEcho(c)
	if err != nil {
		return respondError(c, err)
	}

	var f store.ProductFilter
	if raw := c.QueryParam("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return respondError(c, invalid("invalid_request", "is_active must be a boolean"))
		}
		f.IsActive = &active
	}
	f.LowStock = c.QueryParam("low_stock") == "true"
	if f.Limit, err = queryInt(c, "limit"); err != nil {
		return respondError(c, err)
	}
	if f.Offset, err = queryInt(c, "offset"); err != nil {
		return respondError(c, err)
	}

	products, err := h.store.ListProducts(c.Request().Context(), sess.TenantID, f)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, products)
}

// GetProduct handles GET /api/products/:id
func (h *Handler) GetProduct(c echo.Context) error {
	sess, err := session.FromEcho(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}

	p, err := h.store.GetProduct(c.Request().Context(), sess.TenantID, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// CreateProduct handles POST /api/products
func (h *Handler) CreateProduct(c echo.Context) error {
	sess, err := session.FromEcho(c)
	if err != nil {
		return respondError(c, err)
	}
	log := logger.FromEcho(c)

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, errBadRequest)
	}
	if err := req.validate(); err != nil {
		return respondError(c, err)
	}

	p := &model.Product{
		TenantID:          sess.TenantID,
		Stock:             req.Stock,
		LowStockThreshold: 10,
		IsActive:          true,
	}
	if err := req.apply(p); err != nil {
		return respondError(c, err)
	}
	if err := h.store.CreateProduct(c.Request().Context(), p); err != nil {
		return respondError(c, err)
	}

	prometheus.UpdateProductInventory(
		strconv.FormatUint(uint64(p.TenantID), 10),
		strconv.FormatUint(uint64(p.ID), 10),
		float64(p.Stock),
	)
	log.Info("Product created",
		zap.Uint("product_id", p.ID),
		zap.String("sku", p.SKU),
		zap.String("price", p.Price.StringFixed(2)))
	return c.JSON(http.StatusCreated, p)
}

// UpdateProduct handles PUT /api/products/:id. Stock in the body is ignored.
func (h *Handler) UpdateProduct(c echo.Context) error {
	sess, err := session.FromEcho(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, errBadRequest)
	}
	req.Stock = 0
	if err := req.validate(); err != nil {
		return respondError(c, err)
	}

	ctx := c.Request().Context()
	p, err := h.store.GetProduct(ctx, sess.TenantID, id)
	if err != nil {
		return respondError(c, err)
	}
	if err := req.apply(p); err != nil {
		return respondError(c, err)
	}
	if err := h.store.UpdateProduct(ctx, p); err != nil {
		return respondError(c, err)
	}

	logger.FromEcho(c).Info("Product updated", zap.Uint("product_id", p.ID), zap.String("sku", p.SKU))
	return c.JSON(http.StatusOK, p)
}

// ResolvePrice handles GET /api/products/:id/price?tier=
func (h *Handler) ResolvePrice(c echo.Context) error {
	sess, err := session.FromEcho(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}

	// an unknown tier is priced at base
	tier := model.CustomerTier(c.QueryParam("tier"))

	p, err := h.store.GetProduct(c.Request().Context(), sess.TenantID, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"product_id": p.ID,
		"tier":       tier,
		"price":      pricing.ResolvePrice(p, tier),
	})
}
