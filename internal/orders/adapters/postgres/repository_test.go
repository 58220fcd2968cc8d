//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dejobratic/centralcompras/internal/database/databasetest"
	"github.com/dejobratic/centralcompras/internal/orders/adapters/postgres"
	"github.com/dejobratic/centralcompras/internal/orders/domain"
	"github.com/dejobratic/centralcompras/internal/orders/ports"
	"github.com/shopspring/decimal"
)

func newOrder(f databasetest.Fixture, createdAt time.Time, productIDs ...int64) domain.Order {
	items := make([]domain.LineItem, 0, len(productIDs))
	for _, id := range productIDs {
		items = append(items, domain.NewLineItem(id, 2, decimal.RequireFromString("10.00")))
	}
	return domain.Order{
		StoreID:         f.StoreID,
		SupplierID:      f.SupplierID,
		Total:           domain.SumLineTotals(items),
		Cashback:        decimal.Zero,
		PaymentTermDays: 30,
		Items:           items,
		CreatedAt:       createdAt,
	}
}

func insert(ctx context.Context, repo *postgres.Repository, order domain.Order) (int64, error) {
	var orderID int64
	err := repo.WithinTx(ctx, func(ctx context.Context, w ports.OrderWriter) error {
		id, err := w.InsertOrderHeader(ctx, order)
		if err != nil {
			return err
		}
		for i, item := range order.Items {
			if _, err := w.InsertLineItem(ctx, id, item); err != nil {
				return fmt.Errorf("insert order item %d: %w", i+1, err)
			}
		}
		orderID = id
		return nil
	})
	return orderID, err
}

func TestRepositoryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool := databasetest.NewPool(t)
	fixture := databasetest.Seed(t, pool, "SP", "10.00", "10.00", "10.00")
	repo := postgres.NewRepository(pool)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	var firstID int64

	t.Run("stores header and items in one transaction", func(t *testing.T) {
		id, err := insert(ctx, repo, newOrder(fixture, base, fixture.ProductIDs...))
		if err != nil {
			t.Fatalf("failed to insert order: %v", err)
		}
		firstID = id

		got, err := repo.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("failed to get order: %v", err)
		}
		if got.Status != domain.StatusPending {
			t.Errorf("expected pending, got %s", got.Status)
		}
		if got.Version != 1 {
			t.Errorf("expected version 1, got %d", got.Version)
		}
		if !got.Total.Equal(decimal.RequireFromString("60")) {
			t.Errorf("expected total 60, got %s", got.Total)
		}
		if len(got.Items) != 3 {
			t.Fatalf("expected 3 items, got %d", len(got.Items))
		}
		for _, item := range got.Items {
			if item.OrderID != id {
				t.Errorf("expected item to reference order %d, got %d", id, item.OrderID)
			}
		}
	})

	t.Run("rolls back the header when the third item fails", func(t *testing.T) {
		before, err := repo.List(ctx, ports.ListFilter{})
		if err != nil {
			t.Fatalf("failed to list orders: %v", err)
		}

		order := newOrder(fixture, base.Add(time.Hour), fixture.ProductIDs[0], fixture.ProductIDs[1], 999_999)
		_, err = insert(ctx, repo, order)
		if err == nil {
			t.Fatal("expected foreign key violation, got nil")
		}
		if !strings.Contains(err.Error(), "insert order item 3") {
			t.Errorf("expected failure on item 3, got %v", err)
		}

		after, err := repo.List(ctx, ports.ListFilter{})
		if err != nil {
			t.Fatalf("failed to list orders: %v", err)
		}
		if len(after) != len(before) {
			t.Errorf("expected %d orders after rollback, got %d", len(before), len(after))
		}

		var orphans int
		if err := pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM order_items i LEFT JOIN orders o ON o.id = i.order_id WHERE o.id IS NULL`,
		).Scan(&orphans); err != nil {
			t.Fatalf("failed to count orphan items: %v", err)
		}
		if orphans != 0 {
			t.Errorf("expected no orphan items, got %d", orphans)
		}
	})

	t.Run("returns ErrNotFound for unknown order", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 424242)
		if !errors.Is(err, ports.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("updates status and bumps version", func(t *testing.T) {
		updated, err := repo.UpdateStatus(ctx, firstID, 1, domain.StatusApproved)
		if err != nil {
			t.Fatalf("failed to update status: %v", err)
		}
		if updated.Status != domain.StatusApproved || updated.Version != 2 {
			t.Errorf("expected approved v2, got %s v%d", updated.Status, updated.Version)
		}
		if len(updated.Items) != 3 {
			t.Errorf("expected items on updated order, got %d", len(updated.Items))
		}
	})

	t.Run("rejects a stale version", func(t *testing.T) {
		_, err := repo.UpdateStatus(ctx, firstID, 1, domain.StatusCancelled)
		if !errors.Is(err, ports.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}

		got, err := repo.GetByID(ctx, firstID)
		if err != nil {
			t.Fatalf("failed to get order: %v", err)
		}
		if got.Status != domain.StatusApproved {
			t.Errorf("expected status unchanged, got %s", got.Status)
		}
	})

	t.Run("reports ErrNotFound when updating an unknown order", func(t *testing.T) {
		_, err := repo.UpdateStatus(ctx, 424242, 1, domain.StatusApproved)
		if !errors.Is(err, ports.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("lists newest first and filters by status", func(t *testing.T) {
		secondID, err := insert(ctx, repo, newOrder(fixture, base.Add(2*time.Hour), fixture.ProductIDs[0]))
		if err != nil {
			t.Fatalf("failed to insert order: %v", err)
		}

		all, err := repo.List(ctx, ports.ListFilter{StoreID: &fixture.StoreID})
		if err != nil {
			t.Fatalf("failed to list orders: %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("expected 2 orders, got %d", len(all))
		}
		if all[0].ID != secondID {
			t.Errorf("expected newest order %d first, got %d", secondID, all[0].ID)
		}
		if len(all[0].Items) != 1 || len(all[1].Items) != 3 {
			t.Errorf("expected items attached per order, got %d and %d", len(all[0].Items), len(all[1].Items))
		}

		pending := domain.StatusPending
		filtered, err := repo.List(ctx, ports.ListFilter{Status: &pending})
		if err != nil {
			t.Fatalf("failed to list orders: %v", err)
		}
		if len(filtered) != 1 || filtered[0].ID != secondID {
			t.Errorf("expected only order %d pending, got %+v", secondID, filtered)
		}
	})
}

func TestStoreDirectoryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool := databasetest.NewPool(t)
	fixture := databasetest.Seed(t, pool, "RJ")
	stores := postgres.NewStoreDirectory(pool)
	ctx := context.Background()

	t.Run("returns the store state", func(t *testing.T) {
		state, err := stores.StoreState(ctx, fixture.StoreID)
		if err != nil {
			t.Fatalf("failed to get state: %v", err)
		}
		if state != "RJ" {
			t.Errorf("expected RJ, got %s", state)
		}
	})

	t.Run("returns ErrNotFound for unknown store", func(t *testing.T) {
		_, err := stores.StoreState(ctx, 424242)
		if !errors.Is(err, ports.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
