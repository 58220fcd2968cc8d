package database

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records repository query latency and transaction outcomes. A nil
// *Metrics records nothing.
type Metrics struct {
	queryDuration metric.Float64Histogram
	transactions  metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.queryDuration, err = meter.Float64Histogram(
		"db_query_duration_seconds",
		metric.WithDescription("Database query duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create db_query_duration histogram: %w", err)
	}

	m.transactions, err = meter.Int64Counter(
		"db_transactions_total",
		metric.WithDescription("Database transactions by outcome"),
		metric.WithUnit("{transaction}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create db_transactions_total counter: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordQuery(ctx context.Context, operation string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.queryDuration.Record(ctx, durationSeconds, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// RecordTransaction counts a finished transaction as commit or rollback.
func (m *Metrics) RecordTransaction(ctx context.Context, operation string, committed bool) {
	if m == nil {
		return
	}
	outcome := "commit"
	if !committed {
		outcome = "rollback"
	}
	m.transactions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}
