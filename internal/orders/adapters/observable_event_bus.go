package adapters

import (
	"context"
	"time"

	"github.com/dejobratic/centralcompras/internal/events"
	"github.com/dejobratic/centralcompras/internal/orders/domain"
	"github.com/dejobratic/centralcompras/internal/orders/ports"
	"github.com/dejobratic/centralcompras/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableEventBus struct {
	bus     ports.EventBus
	metrics *events.Metrics
}

func NewObservableEventBus(bus ports.EventBus, metrics *events.Metrics) *ObservableEventBus {
	return &ObservableEventBus{
		bus:     bus,
		metrics: metrics,
	}
}

func (e *ObservableEventBus) PublishOrderCreated(ctx context.Context, orderID int64) error {
	ctx, span := telemetry.StartSpan(ctx, "EventBus.PublishOrderCreated")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.Int64("order.id", orderID),
		attribute.String("event.type", events.TopicOrderCreated),
	)

	start := time.Now()
	err := e.bus.PublishOrderCreated(ctx, orderID)
	duration := time.Since(start).Seconds()

	e.metrics.RecordPublish(ctx, events.TopicOrderCreated, duration, err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}

func (e *ObservableEventBus) PublishOrderStatusChanged(ctx context.Context, orderID int64, from, to domain.Status) error {
	ctx, span := telemetry.StartSpan(ctx, "EventBus.PublishOrderStatusChanged")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.Int64("order.id", orderID),
		attribute.String("event.type", events.TopicOrderStatusChanged),
		attribute.String("order.from_status", string(from)),
		attribute.String("order.to_status", string(to)),
	)

	start := time.Now()
	err := e.bus.PublishOrderStatusChanged(ctx, orderID, from, to)
	duration := time.Since(start).Seconds()

	e.metrics.RecordPublish(ctx, events.TopicOrderStatusChanged, duration, err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}
