package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dejobratic/centralcompras/internal/orders/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

// NewStore returns a store whose entries expire after ttl; zero keeps them forever.
func NewStore(pool *pgxpool.Pool, ttl time.Duration) *Store {
	return &Store{pool: pool, ttl: ttl}
}

// cutoff is the oldest created_at still considered live.
func (s *Store) cutoff() time.Time {
	if s.ttl <= 0 {
		return time.Time{}
	}
	return time.Now().UTC().Add(-s.ttl)
}

func (s *Store) Get(ctx context.Context, key string) (*ports.StoredResponse, error) {
	query := `
		SELECT status_code, body, COALESCE(order_id, 0)
		FROM idempotency_keys
		WHERE key = $1 AND created_at >= $2
	`

	var resp ports.StoredResponse
	err := s.pool.QueryRow(ctx, query, key, s.cutoff()).Scan(
		&resp.StatusCode,
		&resp.Body,
		&resp.OrderID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select idempotency key: %w", err)
	}

	return &resp, nil
}

// Save inserts the response, replacing only an expired entry for the key.
func (s *Store) Save(ctx context.Context, key string, response ports.StoredResponse) error {
	query := `
		INSERT INTO idempotency_keys (key, status_code, body, order_id, created_at)
		VALUES ($1, $2, $3, NULLIF($4, 0), NOW())
		ON CONFLICT (key) DO UPDATE
		SET status_code = EXCLUDED.status_code,
			body = EXCLUDED.body,
			order_id = EXCLUDED.order_id,
			created_at = EXCLUDED.created_at
		WHERE idempotency_keys.created_at < $5
	`

	_, err := s.pool.Exec(ctx, query, key, response.StatusCode, response.Body, response.OrderID, s.cutoff())
	if err != nil {
		return fmt.Errorf("insert idempotency key: %w", err)
	}

	return nil
}
