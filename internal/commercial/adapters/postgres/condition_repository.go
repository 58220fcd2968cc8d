package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dejobratic/centralcompras/internal/commercial/domain"
	"github.com/dejobratic/centralcompras/internal/commercial/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

const conditionColumns = `id, supplier_id, state, cashback_percent, payment_term_days,
	unit_price_adjustment, created_at, updated_at`

type ConditionRepository struct {
	pool *pgxpool.Pool
}

func NewConditionRepository(pool *pgxpool.Pool) *ConditionRepository {
	return &ConditionRepository{pool: pool}
}

func (r *ConditionRepository) Create(ctx context.Context, cond domain.Condition) (*domain.Condition, error) {
	query := `
		INSERT INTO commercial_conditions (supplier_id, state, cashback_percent, payment_term_days, unit_price_adjustment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + conditionColumns

	created, err := scanCondition(r.pool.QueryRow(ctx, query,
		cond.SupplierID,
		cond.State,
		nullDecimal(cond.CashbackPercent),
		cond.PaymentTermDays,
		cond.UnitPriceAdjustment,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ports.ErrConditionExists
		}
		return nil, fmt.Errorf("insert condition: %w", err)
	}

	return created, nil
}

func (r *ConditionRepository) GetByID(ctx context.Context, id int64) (*domain.Condition, error) {
	query := `SELECT ` + conditionColumns + ` FROM commercial_conditions WHERE id = $1`

	cond, err := scanCondition(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("select condition: %w", err)
	}

	return cond, nil
}

func (r *ConditionRepository) ListBySupplier(ctx context.Context, supplierID int64) ([]domain.Condition, error) {
	query := `
		SELECT ` + conditionColumns + `
		FROM commercial_conditions
		WHERE supplier_id = $1
		ORDER BY state
	`

	rows, err := r.pool.Query(ctx, query, supplierID)
	if err != nil {
		return nil, fmt.Errorf("query conditions: %w", err)
	}
	defer rows.Close()

	conditions := []domain.Condition{}
	for rows.Next() {
		cond, err := scanCondition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan condition: %w", err)
		}
		conditions = append(conditions, *cond)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conditions: %w", err)
	}

	return conditions, nil
}

func (r *ConditionRepository) FindBySupplierAndState(ctx context.Context, supplierID int64, state string) (*domain.Condition, error) {
	query := `
		SELECT ` + conditionColumns + `
		FROM commercial_conditions
		WHERE supplier_id = $1 AND state = $2
	`

	cond, err := scanCondition(r.pool.QueryRow(ctx, query, supplierID, state))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("select condition by supplier and state: %w", err)
	}

	return cond, nil
}

// Update writes only the fields present in patch.
func (r *ConditionRepository) Update(ctx context.Context, id int64, patch domain.ConditionPatch) (*domain.Condition, error) {
	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.CashbackPercent != nil {
		set("cashback_percent", *patch.CashbackPercent)
	}
	if patch.PaymentTermDays != nil {
		set("payment_term_days", *patch.PaymentTermDays)
	}
	if patch.UnitPriceAdjustment != nil {
		set("unit_price_adjustment", *patch.UnitPriceAdjustment)
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE commercial_conditions
		SET %s
		WHERE id = $%d
		RETURNING %s`, strings.Join(sets, ", "), len(args), conditionColumns)

	cond, err := scanCondition(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("update condition: %w", err)
	}

	return cond, nil
}

func (r *ConditionRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM commercial_conditions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete condition: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ports.ErrNotFound
	}

	return nil
}

func scanCondition(row pgx.Row) (*domain.Condition, error) {
	var (
		cond     domain.Condition
		cashback decimal.NullDecimal
	)
	if err := row.Scan(
		&cond.ID,
		&cond.SupplierID,
		&cond.State,
		&cashback,
		&cond.PaymentTermDays,
		&cond.UnitPriceAdjustment,
		&cond.CreatedAt,
		&cond.UpdatedAt,
	); err != nil {
		return nil, err
	}
	cond.CashbackPercent = decimalPtr(cashback)
	return &cond, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func decimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
