package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"order-service/internal/draft"
	"order-service/internal/model"
	"order-service/internal/order"
	"order-service/internal/session"
	"order-service/internal/store"
	"order-service/prometheus"
)

// Drafts live on the client: every call carries the current lines and gets the
// new lines back.

type draftAddRequest struct {
	Items      []draft.Item       `json:"items"`
	Selection  draft.Selection    `json:"selection"`
	CustomerID uint               `json:"customer_id"`
	Tier       model.CustomerTier `json:"tier"`
}

type draftLineRequest struct {
	Items    []draft.Item    `json:"items"`
	Index    int             `json:"index"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type draftResponse struct {
	Items []draft.Item    `json:"items"`
	Total decimal.Decimal `json:"total"`
}

func newDraftResponse(items []draft.Item) draftResponse {
	if items == nil {
		items = []draft.Item{}
	}
	return draftResponse{Items: items, Total: draft.CalculateTotal(items)}
}

// AddDraftItem handles POST /api/drafts/items
func (h *Handler) AddDraftItem(c echo.Context) error {
	sess, err := session.FromEcho(c)
	if err != nil {
		return respondError(c, err)
	}

	var req draftAddRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, errBadRequest)
	}

	ctx := c.Request().Context()
	tier, err := h.draftTier(ctx, sess, req)
	if err != nil {
		prometheus.RecordDraftOperation("add", errorCode(err))
		return respondError(c, err)
	}

	var product *model.Product
	if req.Selection.ProductID != 0 {
		product, err = h.store.GetProduct(ctx, sess.TenantID, req.Selection.ProductID)
		if errors.Is(err, store.ErrNotFound) {
			err = fmt.Errorf("%w: product %d does not exist", draft.ErrInvalidSelection, req.Selection.ProductID)
		}
		if err == nil && !product.IsActive {
			err = fmt.Errorf("%w: product %d is not active", draft.ErrInvalidSelection, product.ID)
		}
		if err != nil {
			prometheus.RecordDraftOperation("add", errorCode(err))
			return respondError(c, err)
		}
	}

	items, err := draft.AddItem(req.Items, req.Selection, product, tier)
	if err != nil {
		prometheus.RecordDraftOperation("add", errorCode(err))
		return respondError(c, err)
	}
	prometheus.RecordDraftOperation("add", "ok")
	return c.JSON(http.StatusOK, newDraftResponse(items))
}

// draftTier prices the draft for the customer when one is chosen, else for
// the tier in the request, else at retail. A tier without a price of its own,
// unknown ones included, resolves to the base price.
func (h *Handler) draftTier(ctx context.Context, sess session.Session, req draftAddRequest) (model.CustomerTier, error) {
	if req.CustomerID != 0 {
		customer, err := h.store.GetCustomer(ctx, sess.TenantID, req.CustomerID)
		if errors.Is(err, store.ErrNotFound) {
			return "", order.ErrCustomerNotFound
		}
		if err != nil {
			return "", err
		}
		return customer.Tier, nil
	}
	if req.Tier == "" {
		return model.TierRetail, nil
	}
	return req.Tier, nil
}

// RemoveDraftItem handles POST /api/drafts/items/remove
func (h *Handler) RemoveDraftItem(c echo.Context) error {
	var req draftLineRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, errBadRequest)
	}
	prometheus.RecordDraftOperation("remove", "ok")
	return c.JSON(http.StatusOK, newDraftResponse(draft.RemoveItem(req.Items, req.Index)))
}

// OverrideDraftSubtotal handles POST /api/drafts/items/subtotal
func (h *Handler) OverrideDraftSubtotal(c echo.Context) error {
	var req draftLineRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, errBadRequest)
	}

	items, err := draft.OverrideSubtotal(req.Items, req.Index, req.Subtotal)
	if err != nil {
		prometheus.RecordDraftOperation("override", errorCode(err))
		return respondError(c, err)
	}
	prometheus.RecordDraftOperation("override", "ok")
	return c.JSON(http.StatusOK, newDraftResponse(items))
}

// DraftTotal handles POST /api/drafts/total
func (h *Handler) DraftTotal(c echo.Context) error {
	var req draftLineRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, errBadRequest)
	}
	prometheus.RecordDraftOperation("total", "ok")
	return c.JSON(http.StatusOK, newDraftResponse(req.Items))
}
