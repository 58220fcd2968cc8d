package domain

import (
	"time"

	"github.com/dejobratic/centralcompras/internal/validation"
	"github.com/shopspring/decimal"
)

// DefaultPaymentTermDays applies when no condition matches or the matching
// condition leaves the term unset.
const DefaultPaymentTermDays = 30

// Condition is the commercial rule set a supplier grants to stores of one state.
type Condition struct {
	ID                  int64            `json:"id"`
	SupplierID          int64            `json:"supplier_id" validate:"gt=0"`
	State               string           `json:"state" validate:"required,uf"`
	CashbackPercent     *decimal.Decimal `json:"cashback_percent" validate:"omitempty,dec_pct"`
	PaymentTermDays     *int             `json:"payment_term_days" validate:"omitempty,gt=0"`
	UnitPriceAdjustment decimal.Decimal  `json:"unit_price_adjustment"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// Validate checks field ranges.
func (c Condition) Validate() error {
	return validation.Struct(c).Err()
}

// Cashback returns the cashback percentage, zero when unset.
func (c Condition) Cashback() decimal.Decimal {
	if c.CashbackPercent == nil {
		return decimal.Zero
	}
	return *c.CashbackPercent
}

// PaymentTerm returns the payment term in days, DefaultPaymentTermDays when unset.
func (c Condition) PaymentTerm() int {
	if c.PaymentTermDays == nil || *c.PaymentTermDays <= 0 {
		return DefaultPaymentTermDays
	}
	return *c.PaymentTermDays
}

// ConditionPatch lists the fields a supplier may change on an existing condition.
type ConditionPatch struct {
	CashbackPercent     *decimal.Decimal `json:"cashback_percent" validate:"omitempty,dec_pct"`
	PaymentTermDays     *int             `json:"payment_term_days" validate:"omitempty,gt=0"`
	UnitPriceAdjustment *decimal.Decimal `json:"unit_price_adjustment"`
}

// IsEmpty reports whether the patch changes nothing.
func (p ConditionPatch) IsEmpty() bool {
	return p.CashbackPercent == nil && p.PaymentTermDays == nil && p.UnitPriceAdjustment == nil
}

// Validate rejects empty patches and out-of-range values.
func (p ConditionPatch) Validate() error {
	result := validation.Struct(p)
	if p.IsEmpty() {
		result.Add("", "required", "no updatable field provided")
	}
	return result.Err()
}

// Apply returns c with the patch fields set.
func (p ConditionPatch) Apply(c Condition) Condition {
	if p.CashbackPercent != nil {
		v := *p.CashbackPercent
		c.CashbackPercent = &v
	}
	if p.PaymentTermDays != nil {
		v := *p.PaymentTermDays
		c.PaymentTermDays = &v
	}
	if p.UnitPriceAdjustment != nil {
		c.UnitPriceAdjustment = *p.UnitPriceAdjustment
	}
	return c
}
