package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"order-service/internal/model"
	"order-service/internal/order"
	"order-service/internal/session"
	"order-service/internal/store"
	"order-service/pkg/logger"
)

// orderView is an order as returned over the API, with what is still owed
type orderView struct {
	*model.Order
	DueAmount decimal.Decimal `json:"due_amount"`
}

func viewOf(o *model.Order) orderView {
	return orderView{Order: o, DueAmount: o.DueAmount()}
}

// CreateOrder handles POST /api/orders. A commit whose stock or customer
// bookkeeping partly failed still answers 201, flagged as degraded.
func (h *Handler) CreateOrder(c echo.Context) error {
	sess, err := session.FromEcho(c)
	if err != nil {
		return respondError(c, err)
	}

	var req order.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, errBadRequest)
	}

	result, err := h.orders.CreateOrder(c.Request().Context(), sess, req)
	if err != nil {
		return respondError(c, err)
	}

	if result.Degraded {
		logger.FromEcho(c).Warn("Order created in degraded state",
			zap.Uint("order_id", result.OrderID),
			zap.Int("side_effect_failures", len(result.SideEffectFailures)))
	}
	return c.JSON(http.StatusCreated, result)
}

// ListOrders handles GET /api/orders
func (h *Handler) ListOrders(c echo.Context) error {
	sess, err := session.FromEcho(c)
	if err != nil {
		return respondError(c, err)
	}

	f := store.OrderFilter{
		Status:        model.OrderStatus(c.QueryParam("status")),
		PaymentStatus: model.PaymentStatus(c.QueryParam("payment_status")),
	}
	customerID, err := queryInt(c, "customer_id")
	if err != nil {
		return respondError(c, err)
	}
	if customerID < 0 {
		return respondError(c, fmt.Errorf("%w: customer_id cannot be negative", errBadRequest))
	}
	f.CustomerID = uint(customerID)
	if f.From, err = queryTime(c, "from"); err != nil {
		return respondError(c, err)
	}
	if f.To, err = queryTime(c, "to"); err != nil {
		return respondError(c, err)
	}
	if f.Limit, err = queryInt(c, "limit"); err != nil {
		return respondError(c, err)
	}
	if f.Offset, err = queryInt(c, "offset"); err != nil {
		return respondError(c, err)
	}

	orders, total, err := h.orders.ListOrders(c.Request().Context(), sess, f)
	if err != nil {
		return respondError(c, err)
	}

	views := make([]orderView, len(orders))
	for i := range orders {
		views[i] = viewOf(&orders[i])
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": views, "total": total})
}

// GetOrder handles GET /api/orders/:id
func (h *Handler) GetOrder(c echo.Context) error {
	sess, err := session.FromEcho(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}

	o, err := h.orders.GetOrder(c.Request().Context(), sess, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, viewOf(o))
}

// UpdateOrder handles PATCH /api/orders/:id
func (h *Handler) UpdateOrder(c echo.Context) error {
	sess, err := session.FromEcho(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}

	var patch order.OrderPatch
	if err := c.Bind(&patch); err != nil {
		return respondError(c, errBadRequest)
	}

	o, err := h.orders.UpdateOrder(c.Request().Context(), sess, id, patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, viewOf(o))
}

// queryTime accepts RFC 3339 timestamps or plain dates
func queryTime(c echo.Context, name string) (time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be a date", errBadRequest, name)
	}
	return t, nil
}
