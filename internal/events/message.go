// Package events publishes order lifecycle events.
package events

import (
	"time"

	"github.com/dejobratic/centralcompras/internal/orders/domain"
)

const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status_changed"
)

// OrderCreated is the payload published after an order is committed.
type OrderCreated struct {
	OrderID    int64     `json:"order_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// OrderStatusChanged is the payload published after a status update.
type OrderStatusChanged struct {
	OrderID    int64         `json:"order_id"`
	From       domain.Status `json:"from"`
	To         domain.Status `json:"to"`
	OccurredAt time.Time     `json:"occurred_at"`
}
