package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const healthTimeout = 2 * time.Second

var (
	ErrDirtyMigration   = errors.New("database schema is in a dirty migration state")
	ErrSchemaUnmigrated = errors.New("database schema has not been migrated")
)

// Ping checks that a connection can be acquired within healthTimeout.
func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	return pool.Ping(ctx)
}

// CheckReady reports whether the API can serve traffic: the database answers
// and the last migration finished cleanly.
func CheckReady(ctx context.Context, pool *pgxpool.Pool) error {
	if err := Ping(ctx, pool); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	var dirty bool
	err := pool.QueryRow(ctx, `SELECT dirty FROM schema_migrations LIMIT 1`).Scan(&dirty)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return ErrSchemaUnmigrated
	case err != nil:
		return fmt.Errorf("read migration state: %w", err)
	case dirty:
		return ErrDirtyMigration
	}
	return nil
}
