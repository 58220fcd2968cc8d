package commands

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dejobratic/centralcompras/internal/orders/metrics"
	"github.com/dejobratic/centralcompras/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableStatusHandler struct {
	handler StatusHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableStatusHandler(handler StatusHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableStatusHandler {
	return &ObservableStatusHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservableStatusHandler) Handle(ctx context.Context, cmd SetStatusCommand) (*SetStatusResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "SetStatusCommand.Handle")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.Int64("order.id", cmd.OrderID),
		attribute.String("order.requested_status", cmd.Status),
	)

	result, err := o.handler.Handle(ctx, cmd)

	if err != nil && !errors.Is(err, ErrEventNotPublished) {
		telemetry.RecordSpanError(span, err)
		o.logger.WarnContext(ctx, "order status change rejected",
			"error", err,
			"order_id", cmd.OrderID,
			"status", cmd.Status,
		)
		return nil, err
	}

	if err != nil {
		telemetry.AddSpanEvent(span, "event_not_published")
		o.logger.WarnContext(ctx, "order status changed but event not published",
			"error", err,
			"order_id", cmd.OrderID,
		)
	}

	o.metrics.RecordStatusChange(ctx, string(result.From), string(result.Order.Status))
	telemetry.AddSpanAttributes(span,
		attribute.String("order.previous_status", string(result.From)),
		attribute.Int("order.version", result.Order.Version),
	)
	o.logger.InfoContext(ctx, "order status changed",
		"order_id", result.Order.ID,
		"from", string(result.From),
		"to", string(result.Order.Status),
	)

	telemetry.SetSpanSuccess(span)
	return result, err
}
