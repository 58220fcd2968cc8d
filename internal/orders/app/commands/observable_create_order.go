package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dejobratic/centralcompras/internal/orders/metrics"
	"github.com/dejobratic/centralcompras/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableCommandHandler struct {
	handler CommandHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableCommandHandler(handler CommandHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableCommandHandler {
	return &ObservableCommandHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservableCommandHandler) Handle(ctx context.Context, cmd CreateOrderCommand) (*CreateOrderResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "CreateOrderCommand.Handle")
	defer span.End()

	start := time.Now()
	var success bool
	defer func() {
		duration := time.Since(start).Seconds()
		o.metrics.RecordOrderCreationDuration(ctx, duration)
		o.metrics.RecordOrderCreated(ctx, success)
	}()

	o.logger.InfoContext(ctx, "creating order",
		"store_id", cmd.StoreID,
		"supplier_id", cmd.SupplierID,
		"items", len(cmd.Items),
		"apply_conditions", cmd.ApplyConditions,
	)

	result, err := o.handler.Handle(ctx, cmd)

	if err != nil && !errors.Is(err, ErrEventNotPublished) {
		telemetry.RecordSpanError(span, err)
		o.logger.ErrorContext(ctx, "failed to create order",
			"error", err,
			"store_id", cmd.StoreID,
			"supplier_id", cmd.SupplierID,
		)
		return nil, err
	}

	order := result.Order
	telemetry.AddSpanAttributes(span,
		attribute.Int64("order.id", order.ID),
		attribute.Int64("order.store_id", order.StoreID),
		attribute.Int64("order.supplier_id", order.SupplierID),
		attribute.String("order.total", order.Total.String()),
		attribute.Int("order.items", len(order.Items)),
		attribute.Int("order.rewards", len(result.Rewards)),
	)

	if err != nil {
		telemetry.AddSpanEvent(span, "event_not_published")
		o.logger.WarnContext(ctx, "order created but event not published",
			"error", err,
			"order_id", order.ID,
		)
	}

	o.logger.InfoContext(ctx, "order created successfully",
		"order_id", order.ID,
		"store_id", order.StoreID,
		"total", order.Total.String(),
		"condition_applied", order.ConditionID != nil,
	)

	success = true
	telemetry.SetSpanSuccess(span)

	return result, err
}
