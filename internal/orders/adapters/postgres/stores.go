package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dejobratic/centralcompras/internal/orders/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StoreDirectory reads store states from the stores table.
type StoreDirectory struct {
	pool *pgxpool.Pool
}

func NewStoreDirectory(pool *pgxpool.Pool) *StoreDirectory {
	return &StoreDirectory{pool: pool}
}

func (d *StoreDirectory) StoreState(ctx context.Context, storeID int64) (string, error) {
	var state string
	err := d.pool.QueryRow(ctx, `SELECT state FROM stores WHERE id = $1`, storeID).Scan(&state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ports.ErrNotFound
		}
		return "", fmt.Errorf("select store state: %w", err)
	}
	return strings.TrimSpace(state), nil
}
