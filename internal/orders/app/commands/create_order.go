package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	commercial "github.com/dejobratic/centralcompras/internal/commercial/domain"
	"github.com/dejobratic/centralcompras/internal/orders/domain"
	"github.com/dejobratic/centralcompras/internal/orders/ports"
	"github.com/shopspring/decimal"
)

// ErrEventNotPublished is returned together with a result when the change was
// committed but its event could not be published.
var ErrEventNotPublished = errors.New("change saved but event not published")

type ItemInput struct {
	ProductID int64           `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type CreateOrderCommand struct {
	StoreID    int64
	SupplierID int64
	// StoreState is looked up from the store directory when empty.
	StoreState string
	Items      []ItemInput
	// Total is derived from the items when nil.
	Total           *decimal.Decimal
	ApplyConditions bool
}

// CreateOrderResult carries the stored order with the pricing and rewards
// computed while placing it.
type CreateOrderResult struct {
	Order   *domain.Order             `json:"order"`
	Pricing *commercial.PricingResult `json:"pricing,omitempty"`
	Rewards []commercial.Reward       `json:"rewards"`
}

type CommandHandler interface {
	Handle(ctx context.Context, cmd CreateOrderCommand) (*CreateOrderResult, error)
}

type CreateOrderCommandHandler struct {
	repo    ports.OrderRepository
	events  ports.EventBus
	pricing ports.PricingEngine
	stores  ports.StoreDirectory
	now     func() time.Time
}

// NewCreateOrderCommandHandler wires the handler. pricing and stores may be nil,
// in which case orders are stored at the submitted prices without rewards.
func NewCreateOrderCommandHandler(
	repo ports.OrderRepository,
	events ports.EventBus,
	pricing ports.PricingEngine,
	stores ports.StoreDirectory,
) *CreateOrderCommandHandler {
	return &CreateOrderCommandHandler{
		repo:    repo,
		events:  events,
		pricing: pricing,
		stores:  stores,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (h *CreateOrderCommandHandler) Handle(ctx context.Context, cmd CreateOrderCommand) (*CreateOrderResult, error) {
	order := newPendingOrder(cmd, h.now())
	if err := order.Validate(); err != nil {
		return nil, err
	}

	result := &CreateOrderResult{Order: &order, Rewards: []commercial.Reward{}}

	if cmd.ApplyConditions && h.pricing != nil {
		pricing, err := h.applyConditions(ctx, cmd, &order)
		if err != nil {
			return nil, err
		}
		result.Pricing = pricing

		// a discount can push a unit price below zero
		if err := order.Validate(); err != nil {
			return nil, err
		}
	}

	if h.pricing != nil {
		rewards, err := h.pricing.EvaluateCampaigns(ctx, commercial.CampaignRequest{
			SupplierID: order.SupplierID,
			Items:      toPricingLines(order.Items),
			Total:      order.Total,
		})
		if err != nil {
			return nil, fmt.Errorf("evaluate campaigns: %w", err)
		}
		result.Rewards = rewards
	}

	if err := h.insert(ctx, &order); err != nil {
		return nil, err
	}

	if err := h.events.PublishOrderCreated(ctx, order.ID); err != nil {
		return result, fmt.Errorf("%w: %w", ErrEventNotPublished, err)
	}

	return result, nil
}

func newPendingOrder(cmd CreateOrderCommand, now time.Time) domain.Order {
	items := make([]domain.LineItem, 0, len(cmd.Items))
	for _, in := range cmd.Items {
		items = append(items, domain.NewLineItem(in.ProductID, in.Quantity, in.UnitPrice))
	}

	total := domain.SumLineTotals(items)
	if cmd.Total != nil {
		total = *cmd.Total
	}

	return domain.Order{
		StoreID:         cmd.StoreID,
		SupplierID:      cmd.SupplierID,
		Total:           total,
		Status:          domain.StatusPending,
		Cashback:        decimal.Zero,
		PaymentTermDays: commercial.DefaultPaymentTermDays,
		Version:         1,
		Items:           items,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// applyConditions runs the engine and writes its repriced lines, total and
// terms back onto order.
func (h *CreateOrderCommandHandler) applyConditions(ctx context.Context, cmd CreateOrderCommand, order *domain.Order) (*commercial.PricingResult, error) {
	state := strings.TrimSpace(cmd.StoreState)
	if state == "" && h.stores != nil {
		found, err := h.stores.StoreState(ctx, order.StoreID)
		if err != nil && !errors.Is(err, ports.ErrNotFound) {
			return nil, fmt.Errorf("resolve state of store %d: %w", order.StoreID, err)
		}
		state = found
	}

	pricing, err := h.pricing.ApplyStateConditions(ctx, commercial.PricingRequest{
		SupplierID: order.SupplierID,
		StoreState: state,
		Items:      toPricingLines(order.Items),
		Total:      order.Total,
	})
	if err != nil {
		return nil, fmt.Errorf("apply commercial conditions: %w", err)
	}

	order.PaymentTermDays = pricing.PaymentTermDays
	order.Cashback = pricing.Cashback
	if !pricing.Applied {
		return pricing, nil
	}

	order.ConditionID = pricing.ConditionID
	order.Total = pricing.FinalTotal
	for i, line := range pricing.Lines {
		order.Items[i].UnitPrice = line.UnitPrice
		order.Items[i].LineTotal = line.LineTotal
	}

	return pricing, nil
}

// insert writes header and items atomically; any failure leaves no trace of the order.
func (h *CreateOrderCommandHandler) insert(ctx context.Context, order *domain.Order) error {
	items := make([]domain.LineItem, len(order.Items))
	copy(items, order.Items)

	var orderID int64
	err := h.repo.WithinTx(ctx, func(ctx context.Context, w ports.OrderWriter) error {
		id, err := w.InsertOrderHeader(ctx, *order)
		if err != nil {
			return fmt.Errorf("insert order header: %w", err)
		}

		for i := range items {
			itemID, err := w.InsertLineItem(ctx, id, items[i])
			if err != nil {
				return fmt.Errorf("insert order item %d: %w", i+1, err)
			}
			items[i].ID = itemID
			items[i].OrderID = id
		}

		orderID = id
		return nil
	})
	if err != nil {
		return err
	}

	order.ID = orderID
	order.Items = items
	return nil
}

func toPricingLines(items []domain.LineItem) []commercial.PricingLine {
	lines := make([]commercial.PricingLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, commercial.PricingLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
		})
	}
	return lines
}
