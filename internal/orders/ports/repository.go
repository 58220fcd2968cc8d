package ports

import (
	"context"
	"errors"

	"github.com/dejobratic/centralcompras/internal/orders/domain"
)

// OrderWriter inserts the rows of one order inside an open transaction.
type OrderWriter interface {
	// InsertOrderHeader stores the header with status pending and returns its
	// generated identifier.
	InsertOrderHeader(ctx context.Context, order domain.Order) (int64, error)
	InsertLineItem(ctx context.Context, orderID int64, item domain.LineItem) (int64, error)
}

// OrderRepository exposes persistence operations required by the application layer.
type OrderRepository interface {
	// WithinTx runs fn in one transaction, committing only if fn returns nil.
	WithinTx(ctx context.Context, fn func(ctx context.Context, w OrderWriter) error) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Order, error)
	// UpdateStatus writes status only if the stored version still equals
	// expectedVersion, and returns the updated order.
	UpdateStatus(ctx context.Context, id int64, expectedVersion int, status domain.Status) (*domain.Order, error)
}

// ListFilter narrows list queries by store, supplier and status.
type ListFilter struct {
	StoreID    *int64
	SupplierID *int64
	Status     *domain.Status
}

var (
	// ErrNotFound is returned when the requested order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrConflict is returned when the order changed since it was read.
	ErrConflict = errors.New("order was modified concurrently")
)
