package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"media-subscription-platform/internal/domain"
	"media-subscription-platform/internal/domain/model"
	"media-subscription-platform/internal/domain/ports/repository"
)

// Ensure interface compliance
var _ repository.PlanRepository = (*planRepo)(nil)

type planRepo struct {
	pool *pgxpool.Pool
}

func NewPlanRepo(pool *pgxpool.Pool) *planRepo {
	return &planRepo{pool: pool}
}

func (r *planRepo) Save(ctx context.Context, tx repository.Tx, plan *model.Plan) error {
	const q = `
INSERT INTO subscription_plans (id, name, description, price, interval_value, interval_unit, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
ON CONFLICT (id) DO UPDATE
  SET name           = EXCLUDED.name,
      description    = EXCLUDED.description,
      price          = EXCLUDED.price,
      interval_value = EXCLUDED.interval_value,
      interval_unit  = EXCLUDED.interval_unit,
      updated_at     = NOW();`
	_, err := execSQL(ctx, r.pool, tx, q,
		plan.ID, plan.Name, plan.Description, plan.Price, plan.IntervalValue, plan.IntervalUnit, plan.CreatedAt)
	if err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	return nil
}

func (r *planRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	const q = `
SELECT id, name, description, price, interval_value, interval_unit, created_at, updated_at
  FROM subscription_plans
 WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPlan(row)
}

func (r *planRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	const q = `
SELECT id, name, description, price, interval_value, interval_unit, created_at, updated_at
  FROM subscription_plans
 ORDER BY price ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()
	var out []*model.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *planRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	// Refuse to delete a plan that still has live subscriptions.
	const countQ = `
SELECT COUNT(1) FROM subscriptions
 WHERE plan_id = $1 AND status IN ('pending','active');`
	row, err := pickRow(ctx, r.pool, tx, countQ, id)
	if err != nil {
		return err
	}
	var cnt int
	if err := row.Scan(&cnt); err != nil {
		return domain.ErrReadDatabaseRow
	}
	if cnt > 0 {
		return fmt.Errorf("cannot delete plan %s: %d live subscriptions exist: %w", id, cnt, domain.ErrOperationFailed)
	}

	const delQ = `DELETE FROM subscription_plans WHERE id = $1;`
	ct, err := execSQL(ctx, r.pool, tx, delQ, id)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanPlan(row pgx.Row) (*model.Plan, error) {
	p := &model.Plan{}
	var unit string
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.IntervalValue, &unit, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	p.IntervalUnit = model.IntervalUnit(unit)
	return p, nil
}
