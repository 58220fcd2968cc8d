package adapters

import (
	"context"
	"time"

	"github.com/dejobratic/centralcompras/internal/commercial/domain"
	"github.com/dejobratic/centralcompras/internal/commercial/ports"
	"github.com/dejobratic/centralcompras/internal/database"
	"github.com/dejobratic/centralcompras/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// observe runs fn inside a span and records its latency under operation.
// ErrNotFound is an expected outcome and does not mark the span as failed.
func observe(ctx context.Context, metrics *database.Metrics, spanName, operation string, attrs []attribute.KeyValue, fn func(context.Context) error) error {
	ctx, span := telemetry.StartSpan(ctx, spanName)
	defer span.End()

	telemetry.AddSpanAttributes(span, append(attrs, attribute.String("operation", operation))...)

	start := time.Now()
	err := fn(ctx)
	metrics.RecordQuery(ctx, operation, time.Since(start).Seconds())

	telemetry.EndSpan(span, err, ports.ErrNotFound)
	return err
}

type ObservableConditionRepository struct {
	repo    ports.ConditionRepository
	metrics *database.Metrics
}

func NewObservableConditionRepository(repo ports.ConditionRepository, metrics *database.Metrics) *ObservableConditionRepository {
	return &ObservableConditionRepository{repo: repo, metrics: metrics}
}

func (r *ObservableConditionRepository) Create(ctx context.Context, cond domain.Condition) (*domain.Condition, error) {
	var created *domain.Condition
	err := observe(ctx, r.metrics, "ConditionRepository.Create", "create_condition",
		[]attribute.KeyValue{
			attribute.Int64("supplier.id", cond.SupplierID),
			attribute.String("condition.state", cond.State),
		},
		func(ctx context.Context) (err error) {
			created, err = r.repo.Create(ctx, cond)
			return err
		})
	return created, err
}

func (r *ObservableConditionRepository) GetByID(ctx context.Context, id int64) (*domain.Condition, error) {
	var cond *domain.Condition
	err := observe(ctx, r.metrics, "ConditionRepository.GetByID", "get_condition_by_id",
		[]attribute.KeyValue{attribute.Int64("condition.id", id)},
		func(ctx context.Context) (err error) {
			cond, err = r.repo.GetByID(ctx, id)
			return err
		})
	return cond, err
}

func (r *ObservableConditionRepository) ListBySupplier(ctx context.Context, supplierID int64) ([]domain.Condition, error) {
	var conditions []domain.Condition
	err := observe(ctx, r.metrics, "ConditionRepository.ListBySupplier", "list_conditions",
		[]attribute.KeyValue{attribute.Int64("supplier.id", supplierID)},
		func(ctx context.Context) (err error) {
			conditions, err = r.repo.ListBySupplier(ctx, supplierID)
			return err
		})
	return conditions, err
}

func (r *ObservableConditionRepository) FindBySupplierAndState(ctx context.Context, supplierID int64, state string) (*domain.Condition, error) {
	var cond *domain.Condition
	err := observe(ctx, r.metrics, "ConditionRepository.FindBySupplierAndState", "find_condition_by_supplier_state",
		[]attribute.KeyValue{
			attribute.Int64("supplier.id", supplierID),
			attribute.String("condition.state", state),
		},
		func(ctx context.Context) (err error) {
			cond, err = r.repo.FindBySupplierAndState(ctx, supplierID, state)
			return err
		})
	return cond, err
}

func (r *ObservableConditionRepository) Update(ctx context.Context, id int64, patch domain.ConditionPatch) (*domain.Condition, error) {
	var cond *domain.Condition
	err := observe(ctx, r.metrics, "ConditionRepository.Update", "update_condition",
		[]attribute.KeyValue{attribute.Int64("condition.id", id)},
		func(ctx context.Context) (err error) {
			cond, err = r.repo.Update(ctx, id, patch)
			return err
		})
	return cond, err
}

func (r *ObservableConditionRepository) Delete(ctx context.Context, id int64) error {
	return observe(ctx, r.metrics, "ConditionRepository.Delete", "delete_condition",
		[]attribute.KeyValue{attribute.Int64("condition.id", id)},
		func(ctx context.Context) error {
			return r.repo.Delete(ctx, id)
		})
}

type ObservableCampaignRepository struct {
	repo    ports.CampaignRepository
	metrics *database.Metrics
}

func NewObservableCampaignRepository(repo ports.CampaignRepository, metrics *database.Metrics) *ObservableCampaignRepository {
	return &ObservableCampaignRepository{repo: repo, metrics: metrics}
}

func (r *ObservableCampaignRepository) Create(ctx context.Context, c domain.Campaign) (*domain.Campaign, error) {
	var created *domain.Campaign
	err := observe(ctx, r.metrics, "CampaignRepository.Create", "create_campaign",
		[]attribute.KeyValue{
			attribute.Int64("supplier.id", c.SupplierID),
			attribute.String("campaign.kind", string(c.Kind)),
		},
		func(ctx context.Context) (err error) {
			created, err = r.repo.Create(ctx, c)
			return err
		})
	return created, err
}

func (r *ObservableCampaignRepository) GetByID(ctx context.Context, id int64) (*domain.Campaign, error) {
	var c *domain.Campaign
	err := observe(ctx, r.metrics, "CampaignRepository.GetByID", "get_campaign_by_id",
		[]attribute.KeyValue{attribute.Int64("campaign.id", id)},
		func(ctx context.Context) (err error) {
			c, err = r.repo.GetByID(ctx, id)
			return err
		})
	return c, err
}

func (r *ObservableCampaignRepository) ListBySupplier(ctx context.Context, supplierID int64) ([]domain.Campaign, error) {
	var campaigns []domain.Campaign
	err := observe(ctx, r.metrics, "CampaignRepository.ListBySupplier", "list_campaigns",
		[]attribute.KeyValue{attribute.Int64("supplier.id", supplierID)},
		func(ctx context.Context) (err error) {
			campaigns, err = r.repo.ListBySupplier(ctx, supplierID)
			return err
		})
	return campaigns, err
}

func (r *ObservableCampaignRepository) ListActive(ctx context.Context, now time.Time) ([]domain.Campaign, error) {
	var campaigns []domain.Campaign
	err := observe(ctx, r.metrics, "CampaignRepository.ListActive", "list_active_campaigns", nil,
		func(ctx context.Context) (err error) {
			campaigns, err = r.repo.ListActive(ctx, now)
			return err
		})
	return campaigns, err
}

func (r *ObservableCampaignRepository) FindActiveBySupplier(ctx context.Context, supplierID int64, now time.Time) ([]domain.Campaign, error) {
	var campaigns []domain.Campaign
	err := observe(ctx, r.metrics, "CampaignRepository.FindActiveBySupplier", "find_active_campaigns",
		[]attribute.KeyValue{attribute.Int64("supplier.id", supplierID)},
		func(ctx context.Context) (err error) {
			campaigns, err = r.repo.FindActiveBySupplier(ctx, supplierID, now)
			return err
		})
	return campaigns, err
}

func (r *ObservableCampaignRepository) Update(ctx context.Context, id int64, patch domain.CampaignPatch) (*domain.Campaign, error) {
	var c *domain.Campaign
	err := observe(ctx, r.metrics, "CampaignRepository.Update", "update_campaign",
		[]attribute.KeyValue{attribute.Int64("campaign.id", id)},
		func(ctx context.Context) (err error) {
			c, err = r.repo.Update(ctx, id, patch)
			return err
		})
	return c, err
}

func (r *ObservableCampaignRepository) Delete(ctx context.Context, id int64) error {
	return observe(ctx, r.metrics, "CampaignRepository.Delete", "delete_campaign",
		[]attribute.KeyValue{attribute.Int64("campaign.id", id)},
		func(ctx context.Context) error {
			return r.repo.Delete(ctx, id)
		})
}
