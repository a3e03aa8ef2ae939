// Package events fans order lifecycle events out to best-effort sinks after
// the store transaction has committed.
package events

import (
	"context"
	"encoding/json"
	"time"

	"delivery_api/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TypeOrderCreated       = "order_created"
	TypeOrderStatusChanged = "order_status_changed"
)

// OrderEvent is the payload published for every accepted order change.
type OrderEvent struct {
	ID           string             `json:"id"`
	Type         string             `json:"type"`
	OrderID      uint               `json:"order_id"`
	CustomerID   uint               `json:"customer_id"`
	TrackingCode string             `json:"tracking_code"`
	FromStatus   models.OrderStatus `json:"from_status,omitempty"`
	Status       models.OrderStatus `json:"status"`
	Total        decimal.Decimal    `json:"total"`
	ChangedBy    uint               `json:"changed_by"`
	CourierID    *uint              `json:"courier_id,omitempty"`
	Reason       string             `json:"reason,omitempty"`
	OccurredAt   time.Time          `json:"occurred_at"`
}

func (e OrderEvent) Key() string {
	return e.TrackingCode
}

func (e OrderEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func NewOrderCreated(order *models.Order, at time.Time) OrderEvent {
	return OrderEvent{
		ID:           uuid.NewString(),
		Type:         TypeOrderCreated,
		OrderID:      order.ID,
		CustomerID:   order.CustomerID,
		TrackingCode: order.TrackingCode,
		Status:       order.Status,
		Total:        order.Total,
		ChangedBy:    order.CustomerID,
		OccurredAt:   at,
	}
}

func NewStatusChanged(order *models.Order, from models.OrderStatus, changedBy uint, reason string, at time.Time) OrderEvent {
	return OrderEvent{
		ID:           uuid.NewString(),
		Type:         TypeOrderStatusChanged,
		OrderID:      order.ID,
		CustomerID:   order.CustomerID,
		TrackingCode: order.TrackingCode,
		FromStatus:   from,
		Status:       order.Status,
		Total:        order.Total,
		ChangedBy:    changedBy,
		CourierID:    order.CourierID,
		Reason:       reason,
		OccurredAt:   at,
	}
}

// Sink receives events. Implementations must be safe for concurrent use.
type Sink interface {
	Name() string
	Publish(ctx context.Context, event OrderEvent) error
}

// Publisher is what the order service depends on.
type Publisher interface {
	Publish(event OrderEvent)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(OrderEvent) {}
