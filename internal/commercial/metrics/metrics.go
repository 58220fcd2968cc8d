package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics instruments the pricing engine. A nil *Metrics records nothing.
type Metrics struct {
	pricingEvaluationsTotal metric.Int64Counter
	adjustedLinesTotal      metric.Int64Counter
	campaignRewardsTotal    metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.pricingEvaluationsTotal, err = meter.Int64Counter(
		"pricing_evaluations_total",
		metric.WithDescription("Commercial condition evaluations"),
		metric.WithUnit("{evaluation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create pricing_evaluations_total counter: %w", err)
	}

	m.adjustedLinesTotal, err = meter.Int64Counter(
		"pricing_adjusted_lines_total",
		metric.WithDescription("Order lines repriced by a commercial condition"),
		metric.WithUnit("{line}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create pricing_adjusted_lines_total counter: %w", err)
	}

	m.campaignRewardsTotal, err = meter.Int64Counter(
		"campaign_rewards_total",
		metric.WithDescription("Rewards granted by campaign evaluation"),
		metric.WithUnit("{reward}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create campaign_rewards_total counter: %w", err)
	}

	return m, nil
}

// RecordPricing counts one engine run, labelled by whether a condition matched.
func (m *Metrics) RecordPricing(ctx context.Context, applied bool, adjustedLines int) {
	if m == nil {
		return
	}
	m.pricingEvaluationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("applied", applied),
	))
	if adjustedLines > 0 {
		m.adjustedLinesTotal.Add(ctx, int64(adjustedLines))
	}
}

func (m *Metrics) RecordRewards(ctx context.Context, rewards int) {
	if m == nil || rewards == 0 {
		return
	}
	m.campaignRewardsTotal.Add(ctx, int64(rewards))
}
