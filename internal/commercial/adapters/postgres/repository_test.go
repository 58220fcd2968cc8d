//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dejobratic/centralcompras/internal/commercial/adapters/postgres"
	"github.com/dejobratic/centralcompras/internal/commercial/domain"
	"github.com/dejobratic/centralcompras/internal/commercial/ports"
	"github.com/dejobratic/centralcompras/internal/database/databasetest"
	"github.com/shopspring/decimal"
)

func ptr[T any](v T) *T {
	return &v
}

func TestConditionRepositoryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool := databasetest.NewPool(t)
	fixture := databasetest.Seed(t, pool, "SP", "10.00")
	repo := postgres.NewConditionRepository(pool)
	ctx := context.Background()

	t.Run("creates and finds a condition by supplier and state", func(t *testing.T) {
		created, err := repo.Create(ctx, domain.Condition{
			SupplierID:          fixture.SupplierID,
			State:               "SP",
			CashbackPercent:     ptr(decimal.RequireFromString("5.5")),
			PaymentTermDays:     ptr(15),
			UnitPriceAdjustment: decimal.RequireFromString("-1.25"),
		})
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}

		found, err := repo.FindBySupplierAndState(ctx, fixture.SupplierID, "SP")
		if err != nil {
			t.Fatalf("FindBySupplierAndState() failed: %v", err)
		}

		if found.ID != created.ID {
			t.Errorf("expected ID %d, got %d", created.ID, found.ID)
		}
		if found.CashbackPercent == nil || !found.CashbackPercent.Equal(decimal.RequireFromString("5.5")) {
			t.Errorf("expected cashback 5.5, got %v", found.CashbackPercent)
		}
		if !found.UnitPriceAdjustment.Equal(decimal.RequireFromString("-1.25")) {
			t.Errorf("expected adjustment -1.25, got %s", found.UnitPriceAdjustment)
		}
	})

	t.Run("rejects a duplicate supplier and state", func(t *testing.T) {
		_, err := repo.Create(ctx, domain.Condition{SupplierID: fixture.SupplierID, State: "SP"})
		if !errors.Is(err, ports.ErrConditionExists) {
			t.Errorf("expected ErrConditionExists, got %v", err)
		}
	})

	t.Run("absent state is not found", func(t *testing.T) {
		_, err := repo.FindBySupplierAndState(ctx, fixture.SupplierID, "RJ")
		if !errors.Is(err, ports.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("keeps nullable fields null", func(t *testing.T) {
		created, err := repo.Create(ctx, domain.Condition{SupplierID: fixture.SupplierID, State: "MG"})
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		if created.CashbackPercent != nil || created.PaymentTermDays != nil {
			t.Errorf("expected null cashback and term, got %+v", created)
		}
		if created.PaymentTerm() != domain.DefaultPaymentTermDays {
			t.Errorf("expected default term, got %d", created.PaymentTerm())
		}
	})

	t.Run("partial update leaves other fields untouched", func(t *testing.T) {
		cond, err := repo.FindBySupplierAndState(ctx, fixture.SupplierID, "SP")
		if err != nil {
			t.Fatalf("FindBySupplierAndState() failed: %v", err)
		}

		updated, err := repo.Update(ctx, cond.ID, domain.ConditionPatch{PaymentTermDays: ptr(45)})
		if err != nil {
			t.Fatalf("Update() failed: %v", err)
		}

		if updated.PaymentTerm() != 45 {
			t.Errorf("expected term 45, got %d", updated.PaymentTerm())
		}
		if !updated.Cashback().Equal(decimal.RequireFromString("5.5")) {
			t.Errorf("expected cashback untouched, got %s", updated.Cashback())
		}
	})

	t.Run("lists conditions ordered by state", func(t *testing.T) {
		conditions, err := repo.ListBySupplier(ctx, fixture.SupplierID)
		if err != nil {
			t.Fatalf("ListBySupplier() failed: %v", err)
		}
		if len(conditions) != 2 || conditions[0].State != "MG" || conditions[1].State != "SP" {
			t.Errorf("unexpected conditions: %+v", conditions)
		}
	})

	t.Run("delete removes the row", func(t *testing.T) {
		cond, err := repo.FindBySupplierAndState(ctx, fixture.SupplierID, "MG")
		if err != nil {
			t.Fatalf("FindBySupplierAndState() failed: %v", err)
		}

		if err := repo.Delete(ctx, cond.ID); err != nil {
			t.Fatalf("Delete() failed: %v", err)
		}
		if err := repo.Delete(ctx, cond.ID); !errors.Is(err, ports.ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}
	})
}

func TestCampaignRepositoryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool := databasetest.NewPool(t)
	fixture := databasetest.Seed(t, pool, "SP", "10.00")
	repo := postgres.NewCampaignRepository(pool)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	value := domain.Campaign{
		SupplierID:   fixture.SupplierID,
		Name:         "spend 100",
		Kind:         domain.CampaignValueThreshold,
		MinimumValue: ptr(decimal.RequireFromString("100.00")),
		RewardKind:   "cashback",
		RewardValue:  decimal.RequireFromString("5"),
		StartsAt:     now.Add(-time.Hour),
		EndsAt:       now.Add(time.Hour),
		Active:       true,
	}
	quantity := domain.Campaign{
		SupplierID:      fixture.SupplierID,
		Name:            "buy 10",
		Kind:            domain.CampaignQuantityThreshold,
		ProductID:       ptr(fixture.ProductIDs[0]),
		MinimumQuantity: ptr(int64(10)),
		RewardKind:      "gift",
		RewardValue:     decimal.RequireFromString("1"),
		StartsAt:        now.Add(-time.Hour),
		EndsAt:          now.Add(time.Hour),
		Active:          true,
	}
	expired := value
	expired.Name = "last month"
	expired.StartsAt = now.AddDate(0, -1, 0)
	expired.EndsAt = now.AddDate(0, 0, -1)

	var ids []int64
	for _, c := range []domain.Campaign{value, quantity, expired} {
		created, err := repo.Create(ctx, c)
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		ids = append(ids, created.ID)
	}

	t.Run("finds active campaigns in creation order", func(t *testing.T) {
		active, err := repo.FindActiveBySupplier(ctx, fixture.SupplierID, now)
		if err != nil {
			t.Fatalf("FindActiveBySupplier() failed: %v", err)
		}
		if len(active) != 2 || active[0].ID != ids[0] || active[1].ID != ids[1] {
			t.Fatalf("unexpected active campaigns: %+v", active)
		}
		if active[1].ProductID == nil || *active[1].ProductID != fixture.ProductIDs[0] {
			t.Errorf("expected product threshold to round-trip, got %v", active[1].ProductID)
		}
		if active[1].MinimumValue != nil {
			t.Errorf("expected nil minimum value on quantity campaign")
		}
	})

	t.Run("deactivating removes a campaign from the active list", func(t *testing.T) {
		if _, err := repo.Update(ctx, ids[0], domain.CampaignPatch{Active: ptr(false)}); err != nil {
			t.Fatalf("Update() failed: %v", err)
		}

		active, err := repo.ListActive(ctx, now)
		if err != nil {
			t.Fatalf("ListActive() failed: %v", err)
		}
		if len(active) != 1 || active[0].ID != ids[1] {
			t.Errorf("unexpected active campaigns: %+v", active)
		}
	})

	t.Run("lists every campaign of the supplier", func(t *testing.T) {
		all, err := repo.ListBySupplier(ctx, fixture.SupplierID)
		if err != nil {
			t.Fatalf("ListBySupplier() failed: %v", err)
		}
		if len(all) != 3 {
			t.Errorf("expected 3 campaigns, got %d", len(all))
		}
	})

	t.Run("unknown campaign is not found", func(t *testing.T) {
		if _, err := repo.GetByID(ctx, 999999); !errors.Is(err, ports.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
