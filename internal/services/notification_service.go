package services

import (
	"context"
	"fmt"

	"delivery_api/internal/events"
	"delivery_api/internal/models"
	"delivery_api/internal/repository"
)

// MessageSender delivers a text message to a phone number.
type MessageSender interface {
	SendTextMessage(ctx context.Context, phone, message string) error
}

// WhatsAppNotifier is an event sink that texts customers about their orders.
type WhatsAppNotifier struct {
	sender MessageSender
	users  repository.UserRepository
}

func NewWhatsAppNotifier(sender MessageSender, users repository.UserRepository) *WhatsAppNotifier {
	return &WhatsAppNotifier{sender: sender, users: users}
}

func (n *WhatsAppNotifier) Name() string {
	return "whatsapp"
}

func (n *WhatsAppNotifier) Publish(ctx context.Context, event events.OrderEvent) error {
	message := OrderMessage(event)
	if message == "" {
		return nil
	}

	user, err := n.users.GetByID(ctx, event.CustomerID)
	if err != nil {
		return fmt.Errorf("failed to load customer %d: %w", event.CustomerID, err)
	}
	if user.Phone == "" {
		return nil
	}
	return n.sender.SendTextMessage(ctx, user.Phone, message)
}

// OrderMessage renders the customer text for an event, or "" when the
// customer is not notified about it.
func OrderMessage(e events.OrderEvent) string {
	code := e.TrackingCode
	if e.Type == events.TypeOrderCreated {
		return fmt.Sprintf("🧾 Order %s received. Total: %s", code, e.Total.StringFixed(2))
	}

	switch e.Status {
	case models.StatusConfirmed:
		return fmt.Sprintf("✅ Order %s confirmed by the restaurant", code)
	case models.StatusPreparing:
		return fmt.Sprintf("👨‍🍳 Order %s is being prepared", code)
	case models.StatusOutForDelivery:
		return fmt.Sprintf("🛵 Order %s is on its way", code)
	case models.StatusDelivered:
		return fmt.Sprintf("📦 Order %s delivered. Enjoy your meal!", code)
	case models.StatusCancelled:
		if e.Reason != "" {
			return fmt.Sprintf("❌ Order %s cancelled: %s", code, e.Reason)
		}
		return fmt.Sprintf("❌ Order %s cancelled", code)
	}
	return ""
}
