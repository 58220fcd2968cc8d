package domain

import (
	"fmt"
	"time"

	"github.com/dejobratic/centralcompras/internal/validation"
	"github.com/shopspring/decimal"
)

// LineItem is one product line of an order with its snapshotted unit price.
type LineItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id" validate:"gt=0"`
	Quantity  int64           `json:"quantity" validate:"gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"dec_gte0"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// NewLineItem computes the line total from quantity and unit price.
func NewLineItem(productID, quantity int64, unitPrice decimal.Decimal) LineItem {
	return LineItem{
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		LineTotal: unitPrice.Mul(decimal.NewFromInt(quantity)),
	}
}

// Order is a store's purchase from one supplier.
type Order struct {
	ID              int64           `json:"id"`
	StoreID         int64           `json:"store_id" validate:"gt=0"`
	SupplierID      int64           `json:"supplier_id" validate:"gt=0"`
	Total           decimal.Decimal `json:"total" validate:"dec_gte0"`
	Status          Status          `json:"status"`
	ConditionID     *int64          `json:"condition_id,omitempty"`
	Cashback        decimal.Decimal `json:"cashback"`
	PaymentTermDays int             `json:"payment_term_days"`
	Version         int             `json:"version"`
	Items           []LineItem      `json:"items" validate:"required,min=1,dive"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// SumLineTotals adds the line totals of items.
func SumLineTotals(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LineTotal)
	}
	return sum
}

// Validate checks field ranges and that every total is consistent with its lines.
func (o Order) Validate() error {
	result := validation.Struct(o)

	for i, item := range o.Items {
		want := item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity))
		if !item.LineTotal.Equal(want) {
			result.Add(itemField(i, "line_total"), "eqfield", "must equal quantity times unit_price")
		}
	}

	if len(o.Items) > 0 && !o.Total.Equal(SumLineTotals(o.Items)) {
		result.Add("total", "eqfield", "must equal the sum of line totals")
	}

	return result.Err()
}

func itemField(i int, name string) string {
	return fmt.Sprintf("items[%d].%s", i, name)
}
