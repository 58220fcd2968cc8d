package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/dejobratic/centralcompras/internal/orders/domain"
)

// PubSubEventBus publishes order events as JSON messages, one topic per event type.
type PubSubEventBus struct {
	created       *pubsub.Topic
	statusChanged *pubsub.Topic
	now           func() time.Time
}

// NewPubSubEventBus requires both topics.
func NewPubSubEventBus(created, statusChanged *pubsub.Topic) (*PubSubEventBus, error) {
	if created == nil || statusChanged == nil {
		return nil, errors.New("pubsub event bus: both topics are required")
	}
	return &PubSubEventBus{
		created:       created,
		statusChanged: statusChanged,
		now:           func() time.Time { return time.Now().UTC() },
	}, nil
}

func (b *PubSubEventBus) PublishOrderCreated(ctx context.Context, orderID int64) error {
	return b.publish(ctx, b.created, TopicOrderCreated, orderID, OrderCreated{
		OrderID:    orderID,
		OccurredAt: b.now(),
	})
}

func (b *PubSubEventBus) PublishOrderStatusChanged(ctx context.Context, orderID int64, from, to domain.Status) error {
	return b.publish(ctx, b.statusChanged, TopicOrderStatusChanged, orderID, OrderStatusChanged{
		OrderID:    orderID,
		From:       from,
		To:         to,
		OccurredAt: b.now(),
	})
}

// publish blocks until the server acknowledges the message.
func (b *PubSubEventBus) publish(ctx context.Context, topic *pubsub.Topic, eventType string, orderID int64, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	result := topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"eventType": eventType,
			"orderId":   strconv.FormatInt(orderID, 10),
		},
	})

	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}
	return nil
}
