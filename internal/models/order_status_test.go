package models

import (
	"errors"
	"testing"
	"time"

	"delivery_api/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStatuses = []OrderStatus{
	StatusPending, StatusConfirmed, StatusPreparing, StatusOutForDelivery, StatusDelivered, StatusCancelled,
}

func TestCanTransitionTo(t *testing.T) {
	allowed := map[OrderStatus][]OrderStatus{
		StatusPending:        {StatusConfirmed, StatusCancelled},
		StatusConfirmed:      {StatusPreparing, StatusCancelled},
		StatusPreparing:      {StatusOutForDelivery, StatusCancelled},
		StatusOutForDelivery: {StatusDelivered},
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := false
			for _, ok := range allowed[from] {
				if ok == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, StatusDelivered.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusOutForDelivery.IsTerminal())
	assert.False(t, StatusOutForDelivery.Cancellable())
	assert.True(t, StatusPreparing.Cancellable())
}

func TestParseOrderStatus(t *testing.T) {
	s, ok := ParseOrderStatus(" out_for_delivery ")
	assert.True(t, ok)
	assert.Equal(t, StatusOutForDelivery, s)

	_, ok = ParseOrderStatus("SHIPPED")
	assert.False(t, ok)
}

func TestTransition_StampsTimestampsOnce(t *testing.T) {
	created := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	order := &Order{Status: StatusPending, CreatedAt: created}

	confirmedAt := created.Add(time.Minute)
	require.NoError(t, order.Transition(StatusConfirmed, confirmedAt, ""))
	require.NoError(t, order.Transition(StatusPreparing, created.Add(2*time.Minute), ""))
	require.NoError(t, order.Transition(StatusOutForDelivery, created.Add(3*time.Minute), ""))
	deliveredAt := created.Add(30 * time.Minute)
	require.NoError(t, order.Transition(StatusDelivered, deliveredAt, ""))

	assert.Equal(t, StatusDelivered, order.Status)
	assert.Equal(t, confirmedAt, *order.ConfirmedAt)
	assert.Equal(t, deliveredAt, *order.DeliveredAt)
	assert.Nil(t, order.CancelledAt)
	assert.Nil(t, order.CancellationReason)
}

func TestTransition_CancelRecordsReason(t *testing.T) {
	at := time.Date(2026, 10, 18, 12, 5, 0, 0, time.UTC)
	order := &Order{Status: StatusConfirmed}

	require.NoError(t, order.Transition(StatusCancelled, at, "out of dough"))
	assert.Equal(t, at, *order.CancelledAt)
	assert.Equal(t, "out of dough", *order.CancellationReason)
	assert.Nil(t, order.DeliveredAt)
}

func TestTransition_RejectedLeavesOrderUntouched(t *testing.T) {
	order := &Order{Status: StatusOutForDelivery}
	before := *order

	err := order.Transition(StatusCancelled, time.Now(), "too late")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))
	assert.Equal(t, before, *order)

	err = order.Transition(StatusOutForDelivery, time.Now(), "")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))
}
