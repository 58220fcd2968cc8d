package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dejobratic/centralcompras/internal/commercial/domain"
	"github.com/dejobratic/centralcompras/internal/commercial/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const campaignColumns = `id, supplier_id, name, description, kind, minimum_value, product_id,
	minimum_quantity, reward_kind, reward_value, starts_at, ends_at, active, created_at, updated_at`

const activeWindow = `active AND starts_at <= $%d AND ends_at >= $%d`

type CampaignRepository struct {
	pool *pgxpool.Pool
}

func NewCampaignRepository(pool *pgxpool.Pool) *CampaignRepository {
	return &CampaignRepository{pool: pool}
}

func (r *CampaignRepository) Create(ctx context.Context, c domain.Campaign) (*domain.Campaign, error) {
	query := `
		INSERT INTO campaigns (
			supplier_id, name, description, kind, minimum_value, product_id,
			minimum_quantity, reward_kind, reward_value, starts_at, ends_at, active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + campaignColumns

	created, err := scanCampaign(r.pool.QueryRow(ctx, query,
		c.SupplierID,
		c.Name,
		c.Description,
		string(c.Kind),
		nullDecimal(c.MinimumValue),
		c.ProductID,
		c.MinimumQuantity,
		c.RewardKind,
		c.RewardValue,
		c.StartsAt,
		c.EndsAt,
		c.Active,
	))
	if err != nil {
		return nil, fmt.Errorf("insert campaign: %w", err)
	}

	return created, nil
}

func (r *CampaignRepository) GetByID(ctx context.Context, id int64) (*domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`

	c, err := scanCampaign(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("select campaign: %w", err)
	}

	return c, nil
}

func (r *CampaignRepository) ListBySupplier(ctx context.Context, supplierID int64) ([]domain.Campaign, error) {
	query := `
		SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE supplier_id = $1
		ORDER BY created_at DESC, id DESC
	`
	return r.list(ctx, query, supplierID)
}

func (r *CampaignRepository) ListActive(ctx context.Context, now time.Time) ([]domain.Campaign, error) {
	query := `
		SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE ` + fmt.Sprintf(activeWindow, 1, 1) + `
		ORDER BY created_at DESC, id DESC
	`
	return r.list(ctx, query, now)
}

// FindActiveBySupplier returns candidates in creation order so rewards come out stable.
func (r *CampaignRepository) FindActiveBySupplier(ctx context.Context, supplierID int64, now time.Time) ([]domain.Campaign, error) {
	query := `
		SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE supplier_id = $1 AND ` + fmt.Sprintf(activeWindow, 2, 2) + `
		ORDER BY id
	`
	return r.list(ctx, query, supplierID, now)
}

// Update writes only the fields present in patch.
func (r *CampaignRepository) Update(ctx context.Context, id int64, patch domain.CampaignPatch) (*domain.Campaign, error) {
	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Name != nil {
		set("name", *patch.Name)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.MinimumValue != nil {
		set("minimum_value", *patch.MinimumValue)
	}
	if patch.MinimumQuantity != nil {
		set("minimum_quantity", *patch.MinimumQuantity)
	}
	if patch.RewardKind != nil {
		set("reward_kind", *patch.RewardKind)
	}
	if patch.RewardValue != nil {
		set("reward_value", *patch.RewardValue)
	}
	if patch.StartsAt != nil {
		set("starts_at", *patch.StartsAt)
	}
	if patch.EndsAt != nil {
		set("ends_at", *patch.EndsAt)
	}
	if patch.Active != nil {
		set("active", *patch.Active)
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE campaigns
		SET %s
		WHERE id = $%d
		RETURNING %s`, strings.Join(sets, ", "), len(args), campaignColumns)

	c, err := scanCampaign(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("update campaign: %w", err)
	}

	return c, nil
}

func (r *CampaignRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ports.ErrNotFound
	}

	return nil
}

func (r *CampaignRepository) list(ctx context.Context, query string, args ...any) ([]domain.Campaign, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := []domain.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		campaigns = append(campaigns, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaigns: %w", err)
	}

	return campaigns, nil
}

func scanCampaign(row pgx.Row) (*domain.Campaign, error) {
	var (
		c            domain.Campaign
		kind         string
		minimumValue decimal.NullDecimal
	)
	if err := row.Scan(
		&c.ID,
		&c.SupplierID,
		&c.Name,
		&c.Description,
		&kind,
		&minimumValue,
		&c.ProductID,
		&c.MinimumQuantity,
		&c.RewardKind,
		&c.RewardValue,
		&c.StartsAt,
		&c.EndsAt,
		&c.Active,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.Kind = domain.CampaignKind(kind)
	c.MinimumValue = decimalPtr(minimumValue)
	return &c, nil
}
