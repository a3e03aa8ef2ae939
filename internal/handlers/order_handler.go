package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"delivery_api/internal/models"
	"delivery_api/internal/repository"
	"delivery_api/internal/services"

	"github.com/gin-gonic/gin"
)

// EventHistory returns the recent events kept for an order.
type EventHistory interface {
	RecentOrderEvents(ctx context.Context, orderID uint) ([]json.RawMessage, error)
}

type OrderHandler struct {
	orders  services.OrderService
	history EventHistory
}

// NewOrderHandler builds the order endpoints. history may be nil when Redis is
// not configured.
func NewOrderHandler(orders services.OrderService, history EventHistory) *OrderHandler {
	return &OrderHandler{orders: orders, history: history}
}

type CreatedOrder struct {
	Order        *models.Order `json:"order"`
	TrackingCode string        `json:"tracking_code"`
}

type CancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req models.CartSubmission
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), CallerFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, CreatedOrder{Order: order, TrackingCode: order.TrackingCode})
}

// List handles GET /api/orders?limit=&offset=
func (h *OrderHandler) List(c *gin.Context) {
	var page repository.Page
	var err error
	if raw := c.Query("limit"); raw != "" {
		if page.Limit, err = strconv.Atoi(raw); err != nil {
			badRequest(c, "invalid limit")
			return
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if page.Offset, err = strconv.Atoi(raw); err != nil {
			badRequest(c, "invalid offset")
			return
		}
	}

	orders, err := h.orders.ListOrders(c.Request.Context(), CallerFrom(c), page)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, orders)
}

func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(c.Request.Context(), CallerFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, order)
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req services.StatusUpdate
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), CallerFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, order)
}

// Cancel accepts an optional {"reason": "..."} body. An empty body, chunked
// or not, means no reason.
func (h *OrderHandler) Cancel(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		bindFailed(c, err)
		return
	}

	order, err := h.orders.CancelOrder(c.Request.Context(), CallerFrom(c), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, order)
}

func (h *OrderHandler) Track(c *gin.Context) {
	view, err := h.orders.TrackOrder(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, view)
}

// Events lists the most recent events published for an order, newest first.
func (h *OrderHandler) Events(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if _, err := h.orders.GetOrder(c.Request.Context(), CallerFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	if h.history == nil {
		respond(c, http.StatusOK, []json.RawMessage{})
		return
	}

	recent, err := h.history.RecentOrderEvents(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if recent == nil {
		recent = []json.RawMessage{}
	}
	respond(c, http.StatusOK, recent)
}
