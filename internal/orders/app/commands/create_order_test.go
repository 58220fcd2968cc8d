package commands_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	commercialmemory "github.com/dejobratic/centralcompras/internal/commercial/adapters/memory"
	commercialapp "github.com/dejobratic/centralcompras/internal/commercial/app"
	commercial "github.com/dejobratic/centralcompras/internal/commercial/domain"
	"github.com/dejobratic/centralcompras/internal/orders/adapters/memory"
	"github.com/dejobratic/centralcompras/internal/orders/app/commands"
	"github.com/dejobratic/centralcompras/internal/orders/domain"
	"github.com/dejobratic/centralcompras/internal/orders/ports"
	"github.com/dejobratic/centralcompras/internal/validation"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type mockEventBus struct {
	publishOrderCreatedFn       func(ctx context.Context, orderID int64) error
	publishOrderStatusChangedFn func(ctx context.Context, orderID int64, from, to domain.Status) error
}

func (m *mockEventBus) PublishOrderCreated(ctx context.Context, orderID int64) error {
	if m.publishOrderCreatedFn != nil {
		return m.publishOrderCreatedFn(ctx, orderID)
	}
	return nil
}

func (m *mockEventBus) PublishOrderStatusChanged(ctx context.Context, orderID int64, from, to domain.Status) error {
	if m.publishOrderStatusChangedFn != nil {
		return m.publishOrderStatusChangedFn(ctx, orderID, from, to)
	}
	return nil
}

// failingItemRepository delegates to the in-memory repository but fails the
// nth line item insert of every transaction.
type failingItemRepository struct {
	*memory.Repository
	failOn int
}

func (r *failingItemRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, w ports.OrderWriter) error) error {
	return r.Repository.WithinTx(ctx, func(ctx context.Context, w ports.OrderWriter) error {
		return fn(ctx, &failingWriter{OrderWriter: w, failOn: r.failOn})
	})
}

type failingWriter struct {
	ports.OrderWriter
	failOn int
	items  int
}

func (w *failingWriter) InsertLineItem(ctx context.Context, orderID int64, item domain.LineItem) (int64, error) {
	w.items++
	if w.items == w.failOn {
		return 0, errors.New("foreign key violation")
	}
	return w.OrderWriter.InsertLineItem(ctx, orderID, item)
}

func pricingEngine(t *testing.T, conditions ...commercial.Condition) *commercialapp.Service {
	t.Helper()
	repo := commercialmemory.NewConditionRepository()
	for _, cond := range conditions {
		if _, err := repo.Create(context.Background(), cond); err != nil {
			t.Fatalf("failed to seed condition: %v", err)
		}
	}
	return commercialapp.NewService(repo, commercialmemory.NewCampaignRepository(), nil, nil)
}

func spCondition(adjustment string) commercial.Condition {
	cashback := dec("5")
	term := 15
	return commercial.Condition{
		SupplierID:          1,
		State:               "SP",
		CashbackPercent:     &cashback,
		PaymentTermDays:     &term,
		UnitPriceAdjustment: dec(adjustment),
	}
}

func twoLineCommand() commands.CreateOrderCommand {
	return commands.CreateOrderCommand{
		StoreID:    7,
		SupplierID: 1,
		Items: []commands.ItemInput{
			{ProductID: 10, Quantity: 3, UnitPrice: dec("10.00")},
			{ProductID: 11, Quantity: 1, UnitPrice: dec("50.00")},
		},
	}
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("creates pending order at submitted prices", func(t *testing.T) {
		repo := memory.NewRepository()
		var published int64
		events := &mockEventBus{publishOrderCreatedFn: func(ctx context.Context, orderID int64) error {
			published = orderID
			return nil
		}}
		handler := commands.NewCreateOrderCommandHandler(repo, events, nil, nil)

		result, err := handler.Handle(ctx, twoLineCommand())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		order := result.Order
		if order.ID == 0 || published != order.ID {
			t.Errorf("expected event for order %d, got %d", order.ID, published)
		}
		if order.Status != domain.StatusPending {
			t.Errorf("expected pending, got %s", order.Status)
		}
		if !order.Total.Equal(dec("80")) {
			t.Errorf("expected total 80, got %s", order.Total)
		}
		if order.PaymentTermDays != commercial.DefaultPaymentTermDays {
			t.Errorf("expected default term, got %d", order.PaymentTermDays)
		}
		for _, item := range order.Items {
			if item.ID == 0 || item.OrderID != order.ID {
				t.Errorf("expected stored item linked to order, got %+v", item)
			}
		}
		if result.Pricing != nil {
			t.Errorf("expected no pricing without an engine, got %+v", result.Pricing)
		}

		stored, err := repo.GetByID(ctx, order.ID)
		if err != nil {
			t.Fatalf("failed to read back order: %v", err)
		}
		if len(stored.Items) != 2 {
			t.Errorf("expected 2 stored items, got %d", len(stored.Items))
		}
	})

	t.Run("applies the state condition and stores the repriced order", func(t *testing.T) {
		repo := memory.NewRepository()
		engine := pricingEngine(t, spCondition("2.00"))
		handler := commands.NewCreateOrderCommandHandler(repo, &mockEventBus{}, engine, nil)

		cmd := twoLineCommand()
		cmd.StoreState = "sp"
		cmd.ApplyConditions = true

		result, err := handler.Handle(ctx, cmd)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		order := result.Order
		if !order.Total.Equal(dec("88")) {
			t.Errorf("expected total 88, got %s", order.Total)
		}
		if !order.Cashback.Equal(dec("4.4")) {
			t.Errorf("expected cashback 4.40, got %s", order.Cashback)
		}
		if order.PaymentTermDays != 15 {
			t.Errorf("expected term 15, got %d", order.PaymentTermDays)
		}
		if order.ConditionID == nil {
			t.Error("expected condition to be recorded")
		}
		if !order.Items[0].LineTotal.Equal(dec("36")) || !order.Items[1].LineTotal.Equal(dec("52")) {
			t.Errorf("unexpected line totals %s and %s", order.Items[0].LineTotal, order.Items[1].LineTotal)
		}
		if result.Pricing == nil || !result.Pricing.OriginalTotal.Equal(dec("80")) {
			t.Errorf("expected pricing with original total 80, got %+v", result.Pricing)
		}
	})

	t.Run("resolves the store state from the directory", func(t *testing.T) {
		stores := memory.NewStoreDirectory()
		stores.Put(7, "SP")
		handler := commands.NewCreateOrderCommandHandler(memory.NewRepository(), &mockEventBus{}, pricingEngine(t, spCondition("2.00")), stores)

		cmd := twoLineCommand()
		cmd.ApplyConditions = true

		result, err := handler.Handle(ctx, cmd)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !result.Pricing.Applied {
			t.Error("expected condition to apply for store in SP")
		}
	})

	t.Run("falls back to defaults when no condition matches", func(t *testing.T) {
		handler := commands.NewCreateOrderCommandHandler(memory.NewRepository(), &mockEventBus{}, pricingEngine(t, spCondition("2.00")), nil)

		cmd := twoLineCommand()
		cmd.StoreState = "RJ"
		cmd.ApplyConditions = true

		result, err := handler.Handle(ctx, cmd)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Pricing.Applied {
			t.Error("expected condition not to apply")
		}
		if !result.Order.Total.Equal(dec("80")) || !result.Order.Cashback.IsZero() {
			t.Errorf("expected untouched total and zero cashback, got %s and %s", result.Order.Total, result.Order.Cashback)
		}
		if result.Order.ConditionID != nil {
			t.Errorf("expected no condition, got %d", *result.Order.ConditionID)
		}
	})

	t.Run("rejects a discount that makes a unit price negative", func(t *testing.T) {
		repo := memory.NewRepository()
		handler := commands.NewCreateOrderCommandHandler(repo, &mockEventBus{}, pricingEngine(t, spCondition("-20.00")), nil)

		cmd := twoLineCommand()
		cmd.StoreState = "SP"
		cmd.ApplyConditions = true

		_, err := handler.Handle(ctx, cmd)
		if !errors.Is(err, validation.ErrInvalid) {
			t.Fatalf("expected validation error, got %v", err)
		}

		orders, _ := repo.List(ctx, ports.ListFilter{})
		if len(orders) != 0 {
			t.Errorf("expected nothing stored, got %d orders", len(orders))
		}
	})

	t.Run("rejects a total that differs from the line totals", func(t *testing.T) {
		handler := commands.NewCreateOrderCommandHandler(memory.NewRepository(), &mockEventBus{}, nil, nil)

		cmd := twoLineCommand()
		total := dec("79.99")
		cmd.Total = &total

		_, err := handler.Handle(ctx, cmd)
		if !errors.Is(err, validation.ErrInvalid) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("rejects orders without items", func(t *testing.T) {
		handler := commands.NewCreateOrderCommandHandler(memory.NewRepository(), &mockEventBus{}, nil, nil)

		_, err := handler.Handle(ctx, commands.CreateOrderCommand{StoreID: 1, SupplierID: 1})
		if !errors.Is(err, validation.ErrInvalid) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("leaves no order behind when the third item fails", func(t *testing.T) {
		repo := &failingItemRepository{Repository: memory.NewRepository(), failOn: 3}
		published := false
		events := &mockEventBus{publishOrderCreatedFn: func(ctx context.Context, orderID int64) error {
			published = true
			return nil
		}}
		handler := commands.NewCreateOrderCommandHandler(repo, events, nil, nil)

		cmd := twoLineCommand()
		cmd.Items = append(cmd.Items, commands.ItemInput{ProductID: 12, Quantity: 2, UnitPrice: dec("1.50")})

		result, err := handler.Handle(ctx, cmd)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "insert order item 3") {
			t.Errorf("expected failure on item 3, got %v", err)
		}
		if result != nil {
			t.Errorf("expected nil result, got %+v", result)
		}
		if published {
			t.Error("expected no event for a rolled back order")
		}

		orders, err := repo.List(ctx, ports.ListFilter{})
		if err != nil {
			t.Fatalf("failed to list orders: %v", err)
		}
		if len(orders) != 0 {
			t.Errorf("expected no stored orders, got %d", len(orders))
		}
		if _, err := repo.GetByID(ctx, 1); !errors.Is(err, ports.ErrNotFound) {
			t.Errorf("expected header to be absent, got %v", err)
		}
	})

	t.Run("returns the stored order when the event cannot be published", func(t *testing.T) {
		repo := memory.NewRepository()
		events := &mockEventBus{publishOrderCreatedFn: func(ctx context.Context, orderID int64) error {
			return errors.New("broker unavailable")
		}}
		handler := commands.NewCreateOrderCommandHandler(repo, events, nil, nil)

		result, err := handler.Handle(ctx, twoLineCommand())
		if !errors.Is(err, commands.ErrEventNotPublished) {
			t.Fatalf("expected ErrEventNotPublished, got %v", err)
		}
		if result == nil || result.Order.ID == 0 {
			t.Fatalf("expected stored order in result, got %+v", result)
		}
		if _, err := repo.GetByID(ctx, result.Order.ID); err != nil {
			t.Errorf("expected order to stay committed, got %v", err)
		}
	})
}
