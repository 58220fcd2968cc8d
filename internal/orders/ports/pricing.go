package ports

import (
	"context"

	commercial "github.com/dejobratic/centralcompras/internal/commercial/domain"
)

// PricingEngine applies commercial conditions and campaigns while an order is placed.
type PricingEngine interface {
	ApplyStateConditions(ctx context.Context, req commercial.PricingRequest) (*commercial.PricingResult, error)
	EvaluateCampaigns(ctx context.Context, req commercial.CampaignRequest) ([]commercial.Reward, error)
}

// StoreDirectory resolves the state a store is located in.
type StoreDirectory interface {
	StoreState(ctx context.Context, storeID int64) (string, error)
}
