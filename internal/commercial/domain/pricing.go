package domain

import (
	"github.com/shopspring/decimal"
)

// AdjustmentKind tells whether a per-unit adjustment raised or lowered a price.
type AdjustmentKind string

const (
	AdjustmentSurcharge AdjustmentKind = "surcharge"
	AdjustmentDiscount  AdjustmentKind = "discount"
)

// PricingLine is one order line as seen by the pricing engine.
type PricingLine struct {
	ProductID int64           `json:"product_id" validate:"gt=0"`
	Quantity  int64           `json:"quantity" validate:"gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"dec_gte0"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// PricingRequest is the input of ApplyStateConditions.
type PricingRequest struct {
	SupplierID int64           `json:"supplier_id"`
	StoreState string          `json:"store_state"`
	Items      []PricingLine   `json:"items" validate:"dive"`
	Total      decimal.Decimal `json:"total"`
}

// Adjustment records the price change applied to one line.
type Adjustment struct {
	ProductID int64           `json:"product_id"`
	Kind      AdjustmentKind  `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
	Delta     decimal.Decimal `json:"delta"`
}

// PricingResult is the outcome of applying a commercial condition to an order.
// Lines holds the repriced copy of the input lines.
type PricingResult struct {
	Applied         bool             `json:"applied"`
	ConditionID     *int64           `json:"condition_id,omitempty"`
	OriginalTotal   decimal.Decimal  `json:"original_total"`
	FinalTotal      decimal.Decimal  `json:"final_total"`
	Cashback        decimal.Decimal  `json:"cashback"`
	PaymentTermDays int              `json:"payment_term_days"`
	CashbackPercent *decimal.Decimal `json:"cashback_percent,omitempty"`
	UnitAdjustment  *decimal.Decimal `json:"unit_adjustment,omitempty"`
	Adjustments     []Adjustment     `json:"adjustments"`
	Lines           []PricingLine    `json:"lines"`
}

// NotApplied is the result used when no condition matches the supplier and state.
func NotApplied(lines []PricingLine, total decimal.Decimal) PricingResult {
	return PricingResult{
		Applied:         false,
		OriginalTotal:   total,
		FinalTotal:      total,
		Cashback:        decimal.Zero,
		PaymentTermDays: DefaultPaymentTermDays,
		Adjustments:     []Adjustment{},
		Lines:           cloneLines(lines),
	}
}

// ApplyConditions reprices lines with the condition's per-unit adjustment and
// computes cashback on the adjusted total. The input slice is not modified.
func ApplyConditions(cond Condition, lines []PricingLine, total decimal.Decimal) PricingResult {
	repriced := cloneLines(lines)
	adjustments := []Adjustment{}
	finalTotal := total

	adj := cond.UnitPriceAdjustment
	if !adj.IsZero() {
		kind := AdjustmentDiscount
		if adj.IsPositive() {
			kind = AdjustmentSurcharge
		}

		for i, line := range lines {
			unitPrice := line.UnitPrice.Add(adj)
			lineTotal := unitPrice.Mul(decimal.NewFromInt(line.Quantity))
			delta := lineTotal.Sub(line.LineTotal)
			finalTotal = finalTotal.Add(delta)

			repriced[i].UnitPrice = unitPrice
			repriced[i].LineTotal = lineTotal

			adjustments = append(adjustments, Adjustment{
				ProductID: line.ProductID,
				Kind:      kind,
				Amount:    adj.Abs(),
				Delta:     delta,
			})
		}
	}

	conditionID := cond.ID
	unitAdjustment := adj

	return PricingResult{
		Applied:         true,
		ConditionID:     &conditionID,
		OriginalTotal:   total,
		FinalTotal:      finalTotal,
		Cashback:        CashbackFor(finalTotal, cond.Cashback()),
		PaymentTermDays: cond.PaymentTerm(),
		CashbackPercent: cond.CashbackPercent,
		UnitAdjustment:  &unitAdjustment,
		Adjustments:     adjustments,
		Lines:           repriced,
	}
}

// CashbackFor returns total × percent / 100.
func CashbackFor(total, percent decimal.Decimal) decimal.Decimal {
	if percent.IsZero() {
		return decimal.Zero
	}
	return total.Mul(percent).Shift(-2)
}

// SumLines adds up the line totals.
func SumLines(lines []PricingLine) decimal.Decimal {
	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(line.LineTotal)
	}
	return sum
}

func cloneLines(lines []PricingLine) []PricingLine {
	out := make([]PricingLine, len(lines))
	copy(out, lines)
	return out
}
