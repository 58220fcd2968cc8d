package app

import (
	"context"
	"log/slog"

	"github.com/dejobratic/centralcompras/internal/orders/app/commands"
	"github.com/dejobratic/centralcompras/internal/orders/app/queries"
	"github.com/dejobratic/centralcompras/internal/orders/domain"
	"github.com/dejobratic/centralcompras/internal/orders/metrics"
	"github.com/dejobratic/centralcompras/internal/orders/ports"
)

// Service bundles use cases for handling orders via the API.
type Service struct {
	idemStore   ports.IdempotencyStore
	createOrder commands.CommandHandler
	setStatus   commands.StatusHandler
	getOrder    *queries.GetOrderQueryHandler
	listOrders  *queries.ListOrdersQueryHandler
}

// Dependencies lists the ports the order service needs. Pricing and Stores
// may be nil; orders are then stored at submitted prices.
type Dependencies struct {
	Repo        ports.OrderRepository
	Events      ports.EventBus
	Idempotency ports.IdempotencyStore
	Pricing     ports.PricingEngine
	Stores      ports.StoreDirectory
	Policy      domain.TransitionPolicy
}

// NewService wires required dependencies.
func NewService(deps Dependencies, logger *slog.Logger, metrics *metrics.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	createHandler := commands.NewCreateOrderCommandHandler(deps.Repo, deps.Events, deps.Pricing, deps.Stores)
	statusHandler := commands.NewSetStatusCommandHandler(deps.Repo, deps.Events, deps.Policy)

	return &Service{
		idemStore:   deps.Idempotency,
		createOrder: commands.NewObservableCommandHandler(createHandler, logger, metrics),
		setStatus:   commands.NewObservableStatusHandler(statusHandler, logger, metrics),
		getOrder:    queries.NewGetOrderQueryHandler(deps.Repo),
		listOrders:  queries.NewListOrdersQueryHandler(deps.Repo),
	}
}

// CreateOrder validates, prices and atomically stores an order, then emits
// its creation event. A commands.ErrEventNotPublished error comes with the
// stored result.
func (s *Service) CreateOrder(ctx context.Context, cmd commands.CreateOrderCommand) (*commands.CreateOrderResult, error) {
	return s.createOrder.Handle(ctx, cmd)
}

// SetStatus moves an order to the named status.
func (s *Service) SetStatus(ctx context.Context, cmd commands.SetStatusCommand) (*commands.SetStatusResult, error) {
	return s.setStatus.Handle(ctx, cmd)
}

// GetOrder retrieves an order with its items.
func (s *Service) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return s.getOrder.Handle(ctx, queries.GetOrderQuery{OrderID: id})
}

// ListOrders returns orders matching the query, newest first.
func (s *Service) ListOrders(ctx context.Context, query queries.ListOrdersQuery) ([]domain.Order, error) {
	return s.listOrders.Handle(ctx, query)
}

// SaveIdempotentResponse writes response details for a key.
func (s *Service) SaveIdempotentResponse(ctx context.Context, key string, response ports.StoredResponse) error {
	return s.idemStore.Save(ctx, key, response)
}

// GetIdempotentResponse retrieves previously stored response data.
func (s *Service) GetIdempotentResponse(ctx context.Context, key string) (*ports.StoredResponse, error) {
	return s.idemStore.Get(ctx, key)
}
