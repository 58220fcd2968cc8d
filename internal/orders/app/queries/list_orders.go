package queries

import (
	"context"

	"github.com/dejobratic/centralcompras/internal/orders/domain"
	"github.com/dejobratic/centralcompras/internal/orders/ports"
	"github.com/dejobratic/centralcompras/internal/validation"
)

// ListOrdersQuery filters orders by store, supplier and status label.
// Empty fields do not filter.
type ListOrdersQuery struct {
	StoreID    *int64  `json:"store_id,omitempty" validate:"omitempty,gt=0"`
	SupplierID *int64  `json:"supplier_id,omitempty" validate:"omitempty,gt=0"`
	Status     *string `json:"status,omitempty"`
}

type ListOrdersQueryHandler struct {
	repo ports.OrderRepository
}

func NewListOrdersQueryHandler(repo ports.OrderRepository) *ListOrdersQueryHandler {
	return &ListOrdersQueryHandler{repo: repo}
}

// Handle returns matching orders, newest first.
func (h *ListOrdersQueryHandler) Handle(ctx context.Context, query ListOrdersQuery) ([]domain.Order, error) {
	if err := validation.Struct(query).Err(); err != nil {
		return nil, err
	}

	filter := ports.ListFilter{
		StoreID:    query.StoreID,
		SupplierID: query.SupplierID,
	}
	if query.Status != nil && *query.Status != "" {
		status, err := domain.ParseStatus(*query.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = &status
	}

	orders, err := h.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}
