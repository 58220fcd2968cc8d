package domain

import (
	"time"

	"github.com/dejobratic/centralcompras/internal/validation"
	"github.com/shopspring/decimal"
)

// CampaignKind selects which threshold a campaign checks.
type CampaignKind string

const (
	CampaignValueThreshold    CampaignKind = "value_threshold"
	CampaignQuantityThreshold CampaignKind = "quantity_threshold"
)

// Campaign grants a reward to orders reaching a value or quantity threshold.
type Campaign struct {
	ID              int64            `json:"id"`
	SupplierID      int64            `json:"supplier_id" validate:"gt=0"`
	Name            string           `json:"name" validate:"required,max=120"`
	Description     string           `json:"description" validate:"max=500"`
	Kind            CampaignKind     `json:"kind" validate:"oneof=value_threshold quantity_threshold"`
	MinimumValue    *decimal.Decimal `json:"minimum_value,omitempty" validate:"omitempty,dec_gte0"`
	ProductID       *int64           `json:"product_id,omitempty" validate:"omitempty,gt=0"`
	MinimumQuantity *int64           `json:"minimum_quantity,omitempty" validate:"omitempty,gt=0"`
	RewardKind      string           `json:"reward_kind" validate:"required,max=50"`
	RewardValue     decimal.Decimal  `json:"reward_value" validate:"dec_gte0"`
	StartsAt        time.Time        `json:"starts_at" validate:"required"`
	EndsAt          time.Time        `json:"ends_at" validate:"required"`
	Active          bool             `json:"active"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Validate checks tags plus the kind-dependent threshold fields.
func (c Campaign) Validate() error {
	result := validation.Struct(c)

	switch c.Kind {
	case CampaignValueThreshold:
		if c.MinimumValue == nil {
			result.Add("minimum_value", "required", "is required for value_threshold campaigns")
		}
		if c.ProductID != nil || c.MinimumQuantity != nil {
			result.Add("product_id", "excluded", "must be empty for value_threshold campaigns")
		}
	case CampaignQuantityThreshold:
		if c.ProductID == nil {
			result.Add("product_id", "required", "is required for quantity_threshold campaigns")
		}
		if c.MinimumQuantity == nil {
			result.Add("minimum_quantity", "required", "is required for quantity_threshold campaigns")
		}
		if c.MinimumValue != nil {
			result.Add("minimum_value", "excluded", "must be empty for quantity_threshold campaigns")
		}
	}

	if !c.StartsAt.IsZero() && !c.EndsAt.IsZero() && c.EndsAt.Before(c.StartsAt) {
		result.Add("ends_at", "gtefield", "must not be before starts_at")
	}

	return result.Err()
}

// ActiveAt reports whether the campaign is switched on and now falls inside its window.
func (c Campaign) ActiveAt(now time.Time) bool {
	return c.Active && !now.Before(c.StartsAt) && !now.After(c.EndsAt)
}

// Eligible reports whether an order with the given lines and total meets the threshold.
func (c Campaign) Eligible(lines []PricingLine, total decimal.Decimal) bool {
	switch c.Kind {
	case CampaignValueThreshold:
		return c.MinimumValue != nil && total.GreaterThanOrEqual(*c.MinimumValue)
	case CampaignQuantityThreshold:
		if c.ProductID == nil || c.MinimumQuantity == nil {
			return false
		}
		for _, line := range lines {
			if line.ProductID == *c.ProductID {
				return line.Quantity >= *c.MinimumQuantity
			}
		}
		return false
	default:
		return false
	}
}

// Reward is granted by one eligible campaign.
type Reward struct {
	CampaignID   int64           `json:"campaign_id"`
	CampaignName string          `json:"campaign_name"`
	RewardKind   string          `json:"reward_kind"`
	RewardValue  decimal.Decimal `json:"reward_value"`
}

// CampaignRequest is the input for evaluating a supplier's active campaigns.
type CampaignRequest struct {
	SupplierID int64           `json:"supplier_id" validate:"gt=0"`
	Items      []PricingLine   `json:"items" validate:"dive"`
	Total      decimal.Decimal `json:"total"`
}

// EvaluateCampaigns returns one reward per eligible campaign, in candidate order.
// Rewards stack; reconciling them is left to the caller.
func EvaluateCampaigns(lines []PricingLine, total decimal.Decimal, campaigns []Campaign) []Reward {
	rewards := []Reward{}
	for _, c := range campaigns {
		if !c.Eligible(lines, total) {
			continue
		}
		rewards = append(rewards, Reward{
			CampaignID:   c.ID,
			CampaignName: c.Name,
			RewardKind:   c.RewardKind,
			RewardValue:  c.RewardValue,
		})
	}
	return rewards
}

// CampaignPatch lists the fields a supplier may change on an existing campaign.
type CampaignPatch struct {
	Name            *string          `json:"name"`
	Description     *string          `json:"description"`
	MinimumValue    *decimal.Decimal `json:"minimum_value"`
	MinimumQuantity *int64           `json:"minimum_quantity"`
	RewardKind      *string          `json:"reward_kind"`
	RewardValue     *decimal.Decimal `json:"reward_value"`
	StartsAt        *time.Time       `json:"starts_at"`
	EndsAt          *time.Time       `json:"ends_at"`
	Active          *bool            `json:"active"`
}

// IsEmpty reports whether the patch changes nothing.
func (p CampaignPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.MinimumValue == nil &&
		p.MinimumQuantity == nil && p.RewardKind == nil && p.RewardValue == nil &&
		p.StartsAt == nil && p.EndsAt == nil && p.Active == nil
}

// Apply returns c with the patch fields set.
func (p CampaignPatch) Apply(c Campaign) Campaign {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.MinimumValue != nil {
		v := *p.MinimumValue
		c.MinimumValue = &v
	}
	if p.MinimumQuantity != nil {
		v := *p.MinimumQuantity
		c.MinimumQuantity = &v
	}
	if p.RewardKind != nil {
		c.RewardKind = *p.RewardKind
	}
	if p.RewardValue != nil {
		c.RewardValue = *p.RewardValue
	}
	if p.StartsAt != nil {
		c.StartsAt = *p.StartsAt
	}
	if p.EndsAt != nil {
		c.EndsAt = *p.EndsAt
	}
	if p.Active != nil {
		c.Active = *p.Active
	}
	return c
}
