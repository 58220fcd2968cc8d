//go:build integration

// Package databasetest starts a migrated postgres container for adapter integration tests.
package databasetest

import (
	"context"
	"testing"

	"github.com/dejobratic/centralcompras/internal/database"
	"github.com/dejobratic/centralcompras/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	testpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// NewPool starts postgres, applies the embedded migrations and returns a pool
// closed at test cleanup.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := testpostgres.Run(ctx,
		"postgres:16-alpine",
		testpostgres.WithDatabase("test"),
		testpostgres.WithUsername("test"),
		testpostgres.WithPassword("test"),
		testpostgres.BasicWaitStrategies(),
		testpostgres.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	if err := database.RunMigrations(connStr, migrations.FS); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	pool, err := database.NewPool(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
	})

	return pool
}

// Fixture holds reference rows owned by other services.
type Fixture struct {
	SupplierID int64
	StoreID    int64
	ProductIDs []int64
}

// Seed inserts one supplier, one store in state and products priced at prices.
func Seed(t *testing.T, pool *pgxpool.Pool, state string, prices ...string) Fixture {
	t.Helper()
	ctx := context.Background()

	var f Fixture
	if err := pool.QueryRow(ctx,
		`INSERT INTO suppliers (name) VALUES ('Acme Distribuidora') RETURNING id`,
	).Scan(&f.SupplierID); err != nil {
		t.Fatalf("failed to seed supplier: %v", err)
	}

	if err := pool.QueryRow(ctx,
		`INSERT INTO stores (name, state) VALUES ('Loja Centro', $1) RETURNING id`, state,
	).Scan(&f.StoreID); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}

	for i, price := range prices {
		var id int64
		if err := pool.QueryRow(ctx,
			`INSERT INTO products (supplier_id, name, price) VALUES ($1, $2, $3::numeric) RETURNING id`,
			f.SupplierID, "product "+string(rune('A'+i)), price,
		).Scan(&id); err != nil {
			t.Fatalf("failed to seed product: %v", err)
		}
		f.ProductIDs = append(f.ProductIDs, id)
	}

	return f
}
