package adapters

import (
	"context"
	"time"

	"github.com/dejobratic/centralcompras/internal/database"
	"github.com/dejobratic/centralcompras/internal/orders/domain"
	"github.com/dejobratic/centralcompras/internal/orders/ports"
	"github.com/dejobratic/centralcompras/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableRepository struct {
	repo    ports.OrderRepository
	metrics *database.Metrics
}

func NewObservableRepository(repo ports.OrderRepository, metrics *database.Metrics) *ObservableRepository {
	return &ObservableRepository{
		repo:    repo,
		metrics: metrics,
	}
}

// WithinTx traces the transaction and times each insert made through the writer.
func (r *ObservableRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, w ports.OrderWriter) error) error {
	ctx, span := telemetry.StartSpan(ctx, "OrderRepository.WithinTx")
	defer span.End()

	telemetry.AddSpanAttributes(span, attribute.String("operation", "create_order_tx"))

	writes := 0
	start := time.Now()
	err := r.repo.WithinTx(ctx, func(ctx context.Context, w ports.OrderWriter) error {
		return fn(ctx, &observableWriter{writer: w, metrics: r.metrics, writes: &writes})
	})
	duration := time.Since(start).Seconds()

	r.metrics.RecordQuery(ctx, "create_order_tx", duration)
	r.metrics.RecordTransaction(ctx, "create_order_tx", err == nil)
	telemetry.AddSpanAttributes(span, attribute.Int("tx.writes", writes))

	if err != nil {
		telemetry.AddSpanEvent(span, "rollback")
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}

type observableWriter struct {
	writer  ports.OrderWriter
	metrics *database.Metrics
	writes  *int
}

func (w *observableWriter) InsertOrderHeader(ctx context.Context, order domain.Order) (int64, error) {
	start := time.Now()
	id, err := w.writer.InsertOrderHeader(ctx, order)
	w.metrics.RecordQuery(ctx, "insert_order_header", time.Since(start).Seconds())
	*w.writes++
	return id, err
}

func (w *observableWriter) InsertLineItem(ctx context.Context, orderID int64, item domain.LineItem) (int64, error) {
	start := time.Now()
	id, err := w.writer.InsertLineItem(ctx, orderID, item)
	w.metrics.RecordQuery(ctx, "insert_order_item", time.Since(start).Seconds())
	*w.writes++
	return id, err
}

func (r *ObservableRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderRepository.GetByID")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.Int64("order.id", id),
		attribute.String("operation", "get_by_id"),
	)

	start := time.Now()
	order, err := r.repo.GetByID(ctx, id)
	duration := time.Since(start).Seconds()

	r.metrics.RecordQuery(ctx, "get_order_by_id", duration)

	telemetry.EndSpan(span, err, ports.ErrNotFound)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *ObservableRepository) List(ctx context.Context, filter ports.ListFilter) ([]domain.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderRepository.List")
	defer span.End()

	attrs := []attribute.KeyValue{attribute.String("operation", "list")}
	if filter.StoreID != nil {
		attrs = append(attrs, attribute.Int64("filter.store_id", *filter.StoreID))
	}
	if filter.SupplierID != nil {
		attrs = append(attrs, attribute.Int64("filter.supplier_id", *filter.SupplierID))
	}
	if filter.Status != nil {
		attrs = append(attrs, attribute.String("filter.status", string(*filter.Status)))
	}
	telemetry.AddSpanAttributes(span, attrs...)

	start := time.Now()
	orders, err := r.repo.List(ctx, filter)
	duration := time.Since(start).Seconds()

	r.metrics.RecordQuery(ctx, "list_orders", duration)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	telemetry.AddSpanAttributes(span, attribute.Int("result.count", len(orders)))
	telemetry.SetSpanSuccess(span)
	return orders, nil
}

func (r *ObservableRepository) UpdateStatus(ctx context.Context, id int64, expectedVersion int, status domain.Status) (*domain.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderRepository.UpdateStatus")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.Int64("order.id", id),
		attribute.Int("order.expected_version", expectedVersion),
		attribute.String("order.new_status", string(status)),
		attribute.String("operation", "update_status"),
	)

	start := time.Now()
	order, err := r.repo.UpdateStatus(ctx, id, expectedVersion, status)
	duration := time.Since(start).Seconds()

	r.metrics.RecordQuery(ctx, "update_order_status", duration)

	telemetry.EndSpan(span, err, ports.ErrConflict)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ObservableStoreDirectory times store state lookups.
type ObservableStoreDirectory struct {
	stores  ports.StoreDirectory
	metrics *database.Metrics
}

func NewObservableStoreDirectory(stores ports.StoreDirectory, metrics *database.Metrics) *ObservableStoreDirectory {
	return &ObservableStoreDirectory{stores: stores, metrics: metrics}
}

func (d *ObservableStoreDirectory) StoreState(ctx context.Context, storeID int64) (string, error) {
	start := time.Now()
	state, err := d.stores.StoreState(ctx, storeID)
	d.metrics.RecordQuery(ctx, "get_store_state", time.Since(start).Seconds())
	return state, err
}
