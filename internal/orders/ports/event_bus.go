package ports

import (
	"context"

	"github.com/dejobratic/centralcompras/internal/orders/domain"
)

// EventBus defines the contract for publishing order lifecycle events.
type EventBus interface {
	PublishOrderCreated(ctx context.Context, orderID int64) error
	PublishOrderStatusChanged(ctx context.Context, orderID int64, from, to domain.Status) error
}
