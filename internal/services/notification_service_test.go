package services

import (
	"context"
	"testing"
	"time"

	"delivery_api/internal/events"
	"delivery_api/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	phone   string
	message string
}

type fakeSender struct {
	sent []sentMessage
}

func (f *fakeSender) SendTextMessage(ctx context.Context, phone, message string) error {
	f.sent = append(f.sent, sentMessage{phone: phone, message: message})
	return nil
}

func TestOrderMessage(t *testing.T) {
	order := &models.Order{ID: 1, CustomerID: 1, TrackingCode: "DLV20261018-ABCDEF12", Total: decimal.RequireFromString("30")}

	created := events.NewOrderCreated(order, time.Now())
	assert.Contains(t, OrderMessage(created), "Total: 30.00")

	order.Status = models.StatusOutForDelivery
	assert.Contains(t, OrderMessage(events.NewStatusChanged(order, models.StatusPreparing, 9, "", time.Now())), "on its way")

	order.Status = models.StatusCancelled
	msg := OrderMessage(events.NewStatusChanged(order, models.StatusPending, 1, "changed my mind", time.Now()))
	assert.Contains(t, msg, "cancelled: changed my mind")

	order.Status = models.StatusPending
	assert.Empty(t, OrderMessage(events.NewStatusChanged(order, "", 1, "", time.Now())))
}

func TestWhatsAppNotifier_Publish(t *testing.T) {
	users := newFakeUsers()
	require.NoError(t, users.Create(context.Background(), &models.User{Email: "ana@example.com", Phone: "11999990000"}, models.GroupCustomer))
	require.NoError(t, users.Create(context.Background(), &models.User{Email: "nophone@example.com"}, models.GroupCustomer))

	sender := &fakeSender{}
	notifier := NewWhatsAppNotifier(sender, users)
	assert.Equal(t, "whatsapp", notifier.Name())

	order := &models.Order{ID: 5, CustomerID: 1, TrackingCode: "DLV20261018-ABCDEF12", Status: models.StatusConfirmed}
	require.NoError(t, notifier.Publish(context.Background(), events.NewStatusChanged(order, models.StatusPending, 9, "", time.Now())))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "11999990000", sender.sent[0].phone)
	assert.Contains(t, sender.sent[0].message, "confirmed")

	order.CustomerID = 2
	require.NoError(t, notifier.Publish(context.Background(), events.NewStatusChanged(order, models.StatusPending, 9, "", time.Now())))
	assert.Len(t, sender.sent, 1)

	order.CustomerID = 99
	assert.Error(t, notifier.Publish(context.Background(), events.NewStatusChanged(order, models.StatusPending, 9, "", time.Now())))
}
