package events

import (
	"context"
	"log/slog"

	"github.com/dejobratic/centralcompras/internal/orders/domain"
)

// LogEventBus logs events without sending them to a broker. Useful for local
// dev and tests.
type LogEventBus struct {
	logger *slog.Logger
}

// NewLogEventBus returns a bus that writes events at debug level.
func NewLogEventBus(logger *slog.Logger) *LogEventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEventBus{logger: logger}
}

func (b *LogEventBus) PublishOrderCreated(ctx context.Context, orderID int64) error {
	b.logger.DebugContext(ctx, "event::"+TopicOrderCreated, "order_id", orderID)
	return nil
}

func (b *LogEventBus) PublishOrderStatusChanged(ctx context.Context, orderID int64, from, to domain.Status) error {
	b.logger.DebugContext(ctx, "event::"+TopicOrderStatusChanged,
		"order_id", orderID,
		"from", string(from),
		"to", string(to),
	)
	return nil
}
