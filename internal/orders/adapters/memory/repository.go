package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dejobratic/centralcompras/internal/orders/domain"
	"github.com/dejobratic/centralcompras/internal/orders/ports"
)

var errUnknownOrder = errors.New("line item references an order outside the transaction")

// Repository provides an in-memory store useful for local development and tests.
// Writes made inside WithinTx become visible only when the callback succeeds.
type Repository struct {
	mu          sync.RWMutex
	nextOrderID int64
	nextItemID  int64
	orders      map[int64]domain.Order
}

// NewRepository constructs a new in-memory repository.
func NewRepository() *Repository {
	return &Repository{orders: make(map[int64]domain.Order)}
}

type txWriter struct {
	repo   *Repository
	staged map[int64]*domain.Order
	order  []int64
}

func (w *txWriter) InsertOrderHeader(_ context.Context, order domain.Order) (int64, error) {
	w.repo.mu.Lock()
	w.repo.nextOrderID++
	id := w.repo.nextOrderID
	w.repo.mu.Unlock()

	order.ID = id
	order.Status = domain.StatusPending
	order.Version = 1
	order.Items = nil
	w.staged[id] = &order
	w.order = append(w.order, id)
	return id, nil
}

func (w *txWriter) InsertLineItem(_ context.Context, orderID int64, item domain.LineItem) (int64, error) {
	staged, ok := w.staged[orderID]
	if !ok {
		return 0, fmt.Errorf("order %d: %w", orderID, errUnknownOrder)
	}

	w.repo.mu.Lock()
	w.repo.nextItemID++
	item.ID = w.repo.nextItemID
	w.repo.mu.Unlock()

	item.OrderID = orderID
	staged.Items = append(staged.Items, item)
	return item.ID, nil
}

// WithinTx stages every insert made by fn and publishes them together on success.
func (r *Repository) WithinTx(ctx context.Context, fn func(ctx context.Context, w ports.OrderWriter) error) error {
	tx := &txWriter{repo: r, staged: make(map[int64]*domain.Order)}

	if err := fn(ctx, tx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range tx.order {
		r.orders[id] = *tx.staged[id]
	}
	return nil
}

// GetByID fetches a single order with its items.
func (r *Repository) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	copied := cloneOrder(order)
	return &copied, nil
}

// List returns orders matching the filter, newest first.
func (r *Repository) List(_ context.Context, filter ports.ListFilter) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []domain.Order{}
	for _, order := range r.orders {
		if filter.StoreID != nil && order.StoreID != *filter.StoreID {
			continue
		}
		if filter.SupplierID != nil && order.SupplierID != *filter.SupplierID {
			continue
		}
		if filter.Status != nil && order.Status != *filter.Status {
			continue
		}
		result = append(result, cloneOrder(order))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	return result, nil
}

// UpdateStatus sets the status when the stored version matches and bumps the version.
func (r *Repository) UpdateStatus(_ context.Context, id int64, expectedVersion int, status domain.Status) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	if order.Version != expectedVersion {
		return nil, ports.ErrConflict
	}

	order.Status = status
	order.Version++
	order.UpdatedAt = time.Now().UTC()
	r.orders[id] = order

	updated := cloneOrder(order)
	return &updated, nil
}

func cloneOrder(o domain.Order) domain.Order {
	items := make([]domain.LineItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}
