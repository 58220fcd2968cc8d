package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dejobratic/centralcompras/internal/commercial/domain"
	"github.com/dejobratic/centralcompras/internal/commercial/metrics"
	"github.com/dejobratic/centralcompras/internal/commercial/ports"
	"github.com/dejobratic/centralcompras/internal/telemetry"
	"github.com/dejobratic/centralcompras/internal/validation"
	"go.opentelemetry.io/otel/attribute"
)

// Service applies commercial conditions and campaigns, and lets suppliers
// manage both.
type Service struct {
	conditions ports.ConditionRepository
	campaigns  ports.CampaignRepository
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewService wires required dependencies. logger and metrics may be nil.
func NewService(
	conditions ports.ConditionRepository,
	campaigns ports.CampaignRepository,
	logger *slog.Logger,
	metrics *metrics.Metrics,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		conditions: conditions,
		campaigns:  campaigns,
		logger:     logger,
		metrics:    metrics,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source used to select active campaigns.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ApplyStateConditions prices the request with the condition the supplier
// grants to the store's state. A missing supplier, state or condition yields a
// not-applied result, never an error; store failures are returned as errors.
func (s *Service) ApplyStateConditions(ctx context.Context, req domain.PricingRequest) (*domain.PricingResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "CommercialService.ApplyStateConditions")
	defer span.End()

	if err := validation.Struct(req).Err(); err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	state := strings.ToUpper(strings.TrimSpace(req.StoreState))
	telemetry.AddSpanAttributes(span,
		attribute.Int64("supplier.id", req.SupplierID),
		attribute.String("store.state", state),
		attribute.Int("items.count", len(req.Items)),
	)

	cond, err := s.lookupCondition(ctx, req.SupplierID, state)
	if err != nil {
		telemetry.RecordSpanError(span, err)
		s.logger.ErrorContext(ctx, "failed to look up commercial condition",
			"error", err,
			"supplier_id", req.SupplierID,
			"state", state,
		)
		return nil, err
	}

	var result domain.PricingResult
	if cond == nil {
		result = domain.NotApplied(req.Items, req.Total)
	} else {
		result = domain.ApplyConditions(*cond, req.Items, req.Total)
	}

	s.metrics.RecordPricing(ctx, result.Applied, len(result.Adjustments))
	telemetry.AddSpanAttributes(span,
		attribute.Bool("pricing.applied", result.Applied),
		attribute.String("pricing.final_total", result.FinalTotal.String()),
	)
	s.logger.DebugContext(ctx, "commercial condition evaluated",
		"supplier_id", req.SupplierID,
		"state", state,
		"applied", result.Applied,
		"original_total", result.OriginalTotal.String(),
		"final_total", result.FinalTotal.String(),
	)

	telemetry.SetSpanSuccess(span)
	return &result, nil
}

func (s *Service) lookupCondition(ctx context.Context, supplierID int64, state string) (*domain.Condition, error) {
	if supplierID <= 0 || state == "" {
		return nil, nil
	}

	cond, err := s.conditions.FindBySupplierAndState(ctx, supplierID, state)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find condition for supplier %d in %s: %w", supplierID, state, err)
	}
	return cond, nil
}

// EvaluateCampaigns checks the order against the supplier's campaigns active now.
func (s *Service) EvaluateCampaigns(ctx context.Context, req domain.CampaignRequest) ([]domain.Reward, error) {
	ctx, span := telemetry.StartSpan(ctx, "CommercialService.EvaluateCampaigns")
	defer span.End()

	if err := validation.Struct(req).Err(); err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	candidates, err := s.campaigns.FindActiveBySupplier(ctx, req.SupplierID, s.now())
	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, fmt.Errorf("find active campaigns for supplier %d: %w", req.SupplierID, err)
	}

	rewards := domain.EvaluateCampaigns(req.Items, req.Total, candidates)

	s.metrics.RecordRewards(ctx, len(rewards))
	telemetry.AddSpanAttributes(span,
		attribute.Int("campaigns.candidates", len(candidates)),
		attribute.Int("campaigns.rewards", len(rewards)),
	)
	telemetry.SetSpanSuccess(span)
	return rewards, nil
}

// CreateCondition stores a new condition for the supplier.
func (s *Service) CreateCondition(ctx context.Context, supplierID int64, cond domain.Condition) (*domain.Condition, error) {
	cond.ID = 0
	cond.SupplierID = supplierID
	cond.State = strings.ToUpper(strings.TrimSpace(cond.State))
	if err := cond.Validate(); err != nil {
		return nil, err
	}

	created, err := s.conditions.Create(ctx, cond)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "commercial condition created",
		"condition_id", created.ID,
		"supplier_id", supplierID,
		"state", created.State,
	)
	return created, nil
}

// ListConditions returns the supplier's conditions ordered by state.
func (s *Service) ListConditions(ctx context.Context, supplierID int64) ([]domain.Condition, error) {
	return s.conditions.ListBySupplier(ctx, supplierID)
}

// UpdateCondition changes cashback, payment term or adjustment of one of the supplier's conditions.
func (s *Service) UpdateCondition(ctx context.Context, supplierID, id int64, patch domain.ConditionPatch) (*domain.Condition, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.ownedCondition(ctx, supplierID, id); err != nil {
		return nil, err
	}

	updated, err := s.conditions.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "commercial condition updated", "condition_id", id, "supplier_id", supplierID)
	return updated, nil
}

// DeleteCondition removes one of the supplier's conditions.
func (s *Service) DeleteCondition(ctx context.Context, supplierID, id int64) error {
	if _, err := s.ownedCondition(ctx, supplierID, id); err != nil {
		return err
	}
	if err := s.conditions.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "commercial condition deleted", "condition_id", id, "supplier_id", supplierID)
	return nil
}

func (s *Service) ownedCondition(ctx context.Context, supplierID, id int64) (*domain.Condition, error) {
	cond, err := s.conditions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cond.SupplierID != supplierID {
		return nil, ports.ErrForbidden
	}
	return cond, nil
}

// CreateCampaign stores a new campaign for the supplier.
func (s *Service) CreateCampaign(ctx context.Context, supplierID int64, campaign domain.Campaign) (*domain.Campaign, error) {
	campaign.ID = 0
	campaign.SupplierID = supplierID
	if err := campaign.Validate(); err != nil {
		return nil, err
	}

	created, err := s.campaigns.Create(ctx, campaign)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "campaign created",
		"campaign_id", created.ID,
		"supplier_id", supplierID,
		"kind", string(created.Kind),
	)
	return created, nil
}

// ListCampaigns returns every campaign of the supplier, newest first.
func (s *Service) ListCampaigns(ctx context.Context, supplierID int64) ([]domain.Campaign, error) {
	return s.campaigns.ListBySupplier(ctx, supplierID)
}

// ListActiveCampaigns returns campaigns of all suppliers that are active now.
func (s *Service) ListActiveCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	return s.campaigns.ListActive(ctx, s.now())
}

// UpdateCampaign applies a partial update to one of the supplier's campaigns.
// The merged campaign must still be valid.
func (s *Service) UpdateCampaign(ctx context.Context, supplierID, id int64, patch domain.CampaignPatch) (*domain.Campaign, error) {
	if patch.IsEmpty() {
		return nil, validation.Failf("", "required", "no updatable field provided")
	}

	existing, err := s.ownedCampaign(ctx, supplierID, id)
	if err != nil {
		return nil, err
	}
	if err := patch.Apply(*existing).Validate(); err != nil {
		return nil, err
	}

	updated, err := s.campaigns.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "campaign updated", "campaign_id", id, "supplier_id", supplierID)
	return updated, nil
}

// DeleteCampaign removes one of the supplier's campaigns.
func (s *Service) DeleteCampaign(ctx context.Context, supplierID, id int64) error {
	if _, err := s.ownedCampaign(ctx, supplierID, id); err != nil {
		return err
	}
	if err := s.campaigns.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "campaign deleted", "campaign_id", id, "supplier_id", supplierID)
	return nil
}

func (s *Service) ownedCampaign(ctx context.Context, supplierID, id int64) (*domain.Campaign, error) {
	campaign, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign.SupplierID != supplierID {
		return nil, ports.ErrForbidden
	}
	return campaign, nil
}
