package events

import (
	"context"
	"fmt"
)

// EventStore is the part of the Redis client the recent-events sink needs.
type EventStore interface {
	PushOrderEvent(ctx context.Context, orderID uint, payload []byte) error
}

// RedisSink keeps a short per-order event history for support tooling.
type RedisSink struct {
	store EventStore
}

func NewRedisSink(store EventStore) *RedisSink {
	return &RedisSink{store: store}
}

func (s *RedisSink) Name() string {
	return "redis"
}

func (s *RedisSink) Publish(ctx context.Context, event OrderEvent) error {
	payload, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return s.store.PushOrderEvent(ctx, event.OrderID, payload)
}
