// Package handler exposes the order service over HTTP with echo.
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"order-service/internal/order"
	"order-service/internal/session"
	"order-service/internal/store"
	"order-service/pkg/logger"
)

// Handler serves the catalog, draft and order endpoints
type Handler struct {
	db     *gorm.DB
	store  *store.GormStore
	orders *order.Service
}

func New(db *gorm.DB, s *store.GormStore, orders *order.Service) *Handler {
	return &Handler{db: db, store: s, orders: orders}
}

// Register mounts the API routes. auth runs in front of every /api route.
func (h *Handler) Register(e *echo.Echo, auth echo.MiddlewareFunc) {
	e.GET("/health", h.HealthCheck)

	api := e.Group("/api", auth)

	drafts := api.Group("/drafts")
	drafts.POST("/items", h.AddDraftItem)
	drafts.POST("/items/remove", h.RemoveDraftItem)
	drafts.POST("/items/subtotal", h.OverrideDraftSubtotal)
	drafts.POST("/total", h.DraftTotal)

	orders := api.Group("/orders")
	orders.POST("", h.CreateOrder)
	orders.GET("", h.ListOrders)
	orders.GET("/:id", h.GetOrder)
	orders.PATCH("/:id", h.UpdateOrder)

	products := api.Group("/products")
	products.GET("", h.ListProducts)
	products.POST("", h.CreateProduct)
	products.GET("/:id", h.GetProduct)
	products.PUT("/:id", h.UpdateProduct)
	products.GET("/:id/price", h.ResolvePrice)

	customers := api.Group("/customers")
	customers.GET("", h.ListCustomers)
	customers.POST("", h.CreateCustomer)
	customers.GET("/:id", h.GetCustomer)
	customers.PUT("/:id", h.UpdateCustomer)
}

// HealthCheck reports liveness, and database reachability with ?check=db
func (h *Handler) HealthCheck(c echo.Context) error {
	response := map[string]interface{}{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	}

	if c.QueryParam("check") == "db" {
		log := logger.FromEcho(c)
		sqlDB, err := h.db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request().Context())
		}
		if err != nil {
			log.Error("Database ping error", zap.Error(err))
			response["status"] = "error"
			response["db_status"] = "error"
			return c.JSON(http.StatusServiceUnavailable, response)
		}
		response["db_status"] = "ok"
	}

	return c.JSON(http.StatusOK, response)
}

var (
	errBadRequest = errors.New("invalid request data")
	errBadID      = errors.New("invalid id")
)

// errorCode extends order.ErrorCode with the catalog and request errors
func errorCode(err error) string {
	var ve *validationError
	if errors.As(err, &ve) {
		return ve.code
	}
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, errBadID):
		return "invalid_request"
	case errors.Is(err, session.ErrNoSession):
		return "unauthorized"
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.Is(err, store.ErrConflict):
		return "conflict"
	}
	return order.ErrorCode(err)
}

func statusFor(code string) int {
	switch code {
	case "invalid_request", "invalid_selection", "invalid_discount", "missing_customer",
		"empty_order", "invalid_payment_amount", "invalid_status", "invalid_item", "invalid_product",
		"invalid_customer":
		return http.StatusBadRequest
	case "insufficient_stock":
		return http.StatusUnprocessableEntity
	case "unauthorized":
		return http.StatusUnauthorized
	case "not_found", "customer_not_found", "order_not_found":
		return http.StatusNotFound
	case "conflict":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error body and logs server-side failures
func respondError(c echo.Context, err error) error {
	code := errorCode(err)
	status := statusFor(code)
	message := err.Error()

	log := logger.FromEcho(c)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", zap.String("code", code), zap.Error(err))
		if code == "internal_error" {
			message = "internal server error"
		}
	} else {
		log.Info("Request rejected", zap.String("code", code), zap.Error(err))
	}

	return c.JSON(status, echo.Map{"success": false, "error": message, "code": code})
}

// validationError marks a malformed catalog payload with its own code
type validationError struct {
	code    string
	message string
}

func (e *validationError) Error() string { return e.message }

func invalid(code, message string) error {
	return &validationError{code: code, message: message}
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errBadID
	}
	return uint(id), nil
}

func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", errBadRequest, name)
	}
	return v, nil
}
