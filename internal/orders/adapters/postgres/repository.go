package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dejobratic/centralcompras/internal/orders/domain"
	"github.com/dejobratic/centralcompras/internal/orders/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const orderColumns = `id, store_id, supplier_id, total, status, condition_id, cashback,
	payment_term_days, version, created_at, updated_at`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txWriter struct {
	tx pgx.Tx
}

func (w *txWriter) InsertOrderHeader(ctx context.Context, order domain.Order) (int64, error) {
	query := `
		INSERT INTO orders (store_id, supplier_id, total, status, condition_id, cashback,
			payment_term_days, version, created_at, updated_at)
		VALUES ($1, $2, $3, 'pending', $4, $5, $6, 1, $7, $7)
		RETURNING id
	`

	var id int64
	err := w.tx.QueryRow(ctx, query,
		order.StoreID,
		order.SupplierID,
		order.Total,
		order.ConditionID,
		order.Cashback,
		order.PaymentTermDays,
		order.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}

	return id, nil
}

func (w *txWriter) InsertLineItem(ctx context.Context, orderID int64, item domain.LineItem) (int64, error) {
	query := `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	err := w.tx.QueryRow(ctx, query,
		orderID,
		item.ProductID,
		item.Quantity,
		item.UnitPrice,
		item.LineTotal,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert order item: %w", err)
	}

	return id, nil
}

// WithinTx commits when fn returns nil and rolls back otherwise.
func (r *Repository) WithinTx(ctx context.Context, fn func(ctx context.Context, w ports.OrderWriter) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txWriter{tx: tx})
	})
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	if err := r.attachItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *Repository) List(ctx context.Context, filter ports.ListFilter) ([]domain.Order, error) {
	var (
		conditions []string
		args       []any
	)
	where := func(column string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if filter.StoreID != nil {
		where("store_id", *filter.StoreID)
	}
	if filter.SupplierID != nil {
		where("supplier_id", *filter.SupplierID)
	}
	if filter.Status != nil {
		where("status", string(*filter.Status))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var refs []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		refs = append(refs, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	if err := r.attachItems(ctx, refs); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(refs))
	for _, order := range refs {
		orders = append(orders, *order)
	}
	return orders, nil
}

// UpdateStatus distinguishes a missing order from a stale version with a
// second lookup only when no row was updated.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, expectedVersion int, status domain.Status) (*domain.Order, error) {
	query := `
		UPDATE orders
		SET status = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
		RETURNING ` + orderColumns

	order, err := scanOrder(r.pool.QueryRow(ctx, query, string(status), id, expectedVersion))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("update order status: %w", err)
		}

		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check order existence: %w", err)
		}
		if !exists {
			return nil, ports.ErrNotFound
		}
		return nil, ports.ErrConflict
	}

	if err := r.attachItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *Repository) attachItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[int64]*domain.Order, len(orders))
	ids := make([]int64, 0, len(orders))
	for _, order := range orders {
		order.Items = []domain.LineItem{}
		byID[order.ID] = order
		ids = append(ids, order.ID)
	}

	query := `
		SELECT id, order_id, product_id, quantity, unit_price, line_total
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, id
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.UnitPrice,
			&item.LineTotal,
		); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		order := byID[item.OrderID]
		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate order items: %w", err)
	}

	return nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		order  domain.Order
		status string
	)
	if err := row.Scan(
		&order.ID,
		&order.StoreID,
		&order.SupplierID,
		&order.Total,
		&status,
		&order.ConditionID,
		&order.Cashback,
		&order.PaymentTermDays,
		&order.Version,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		return nil, err
	}
	order.Status = domain.Status(status)
	return &order, nil
}
