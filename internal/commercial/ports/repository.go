package ports

import (
	"context"
	"errors"
	"time"

	"github.com/dejobratic/centralcompras/internal/commercial/domain"
)

// ConditionRepository persists commercial conditions, one per (supplier, state).
type ConditionRepository interface {
	Create(ctx context.Context, cond domain.Condition) (*domain.Condition, error)
	GetByID(ctx context.Context, id int64) (*domain.Condition, error)
	ListBySupplier(ctx context.Context, supplierID int64) ([]domain.Condition, error)
	FindBySupplierAndState(ctx context.Context, supplierID int64, state string) (*domain.Condition, error)
	Update(ctx context.Context, id int64, patch domain.ConditionPatch) (*domain.Condition, error)
	Delete(ctx context.Context, id int64) error
}

// CampaignRepository persists promotional campaigns.
type CampaignRepository interface {
	Create(ctx context.Context, campaign domain.Campaign) (*domain.Campaign, error)
	GetByID(ctx context.Context, id int64) (*domain.Campaign, error)
	ListBySupplier(ctx context.Context, supplierID int64) ([]domain.Campaign, error)
	ListActive(ctx context.Context, now time.Time) ([]domain.Campaign, error)
	FindActiveBySupplier(ctx context.Context, supplierID int64, now time.Time) ([]domain.Campaign, error)
	Update(ctx context.Context, id int64, patch domain.CampaignPatch) (*domain.Campaign, error)
	Delete(ctx context.Context, id int64) error
}

var (
	// ErrNotFound is returned when the requested condition or campaign does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConditionExists is returned when a supplier already has a condition for the state.
	ErrConditionExists = errors.New("condition already exists for supplier and state")
	// ErrForbidden is returned when a supplier acts on another supplier's record.
	ErrForbidden = errors.New("record belongs to another supplier")
)
