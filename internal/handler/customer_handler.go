package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"order-service/internal/model"
	"order-service/internal/session"
	"order-service/internal/store"
	"order-service/pkg/logger"
)

// CustomerRequest creates or edits a customer. Aggregates are not accepted.
type CustomerRequest struct {
	Name    string             `json:"name"`
	Email   string             `json:"email"`
	Phone   string             `json:"phone"`
	Address string             `json:"address"`
	Tier    model.CustomerTier `json:"tier"`
}

func (r *CustomerRequest) validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	if r.Name == "" {
		return invalid("invalid_customer", "name is required")
	}
	if r.Tier == "" {
		r.Tier = model.TierRetail
	}
	if !r.Tier.Valid() {
		return invalid("invalid_customer", "unknown tier "+string(r.Tier))
	}
	return nil
}

func (r *CustomerRequest) apply(c *model.Customer) {
	c.Name = r.Name
	c.Email = r.Email
	c.Phone = r.Phone
	c.Address = r.Address
	c.Tier = r.Tier
}

// ListCustomers handles GET /api/customers?tier=&q=
func (h *Handler) ListCustomers(c echo.Context) error {
	sess, err := session.FromEcho(c)
	if err != nil {
		return respondError(c, err)
	}

	f := store.CustomerFilter{
		Tier:  model.CustomerTier(c.QueryParam("tier")),
		Query: c.QueryParam("q"),
	}
	if f.Tier != "" && !f.Tier.Valid() {
		return respondError(c, invalid("invalid_request", "unknown tier "+string(f.Tier)))
	}
	if f.Limit, err = queryInt(c, "limit"); err != nil {
		return respondError(c, err)
	}
	if f.Offset, err = queryInt(c, "offset"); err != nil {
		return respondError(c, err)
	}

	customers, err := h.store.ListCustomers(c.Request().Context(), sess.TenantID, f)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, customers)
}

// GetCustomer handles GET /api/customers/:id
func (h *Handler) GetCustomer(c echo.Context) error {
	sess, err := session.FromEcho(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}

	customer, err := h.store.GetCustomer(c.Request().Context(), sess.TenantID, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, customer)
}

// CreateCustomer handles POST /api/customers
func (h *Handler) CreateCustomer(c echo.Context) error {
	sess, err := session.FromEcho(c)
	if err != nil {
		return respondError(c, err)
	}

	var req CustomerRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, errBadRequest)
	}
	if err := req.validate(); err != nil {
		return respondError(c, err)
	}

	customer := &model.Customer{TenantID: sess.TenantID}
	req.apply(customer)
	if err := h.store.CreateCustomer(c.Request().Context(), customer); err != nil {
		return respondError(c, err)
	}

	logger.FromEcho(c).Info("Customer created",
		zap.Uint("customer_id", customer.ID),
		zap.String("tier", string(customer.Tier)))
	return c.JSON(http.StatusCreated, customer)
}

// UpdateCustomer handles PUT /api/customers/:id
func (h *Handler) UpdateCustomer(c echo.Context) error {
	sess, err := session.FromEcho(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req CustomerRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, errBadRequest)
	}
	if err := req.validate(); err != nil {
		return respondError(c, err)
	}

	ctx := c.Request().Context()
	customer, err := h.store.GetCustomer(ctx, sess.TenantID, id)
	if err != nil {
		return respondError(c, err)
	}
	req.apply(customer)
	if err := h.store.UpdateCustomer(ctx, customer); err != nil {
		return respondError(c, err)
	}

	logger.FromEcho(c).Info("Customer updated", zap.Uint("customer_id", customer.ID))
	return c.JSON(http.StatusOK, customer)
}
