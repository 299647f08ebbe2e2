package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"media-subscription-platform/internal/domain"
	"media-subscription-platform/internal/domain/model"
	"media-subscription-platform/internal/domain/ports/repository"
)

// Ensure redeemRepo implements repository.RedeemRepository
var _ repository.RedeemRepository = (*redeemRepo)(nil)

const codeCols = `id, owner_user_id, code, no_of_apply, is_active, benefit_end_month, expire_date, created_at`

type redeemRepo struct {
	pool *pgxpool.Pool
}

func NewRedeemRepo(pool *pgxpool.Pool) *redeemRepo {
	return &redeemRepo{pool: pool}
}

func (r *redeemRepo) SaveCode(ctx context.Context, tx repository.Tx, code *model.RedeemCode) error {
	const q = `
INSERT INTO redeem_codes (id, owner_user_id, code, no_of_apply, is_active, benefit_end_month, expire_date, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  is_active=$5, benefit_end_month=$6, expire_date=$7;`
	_, err := execSQL(ctx, r.pool, tx, q,
		code.ID, code.OwnerUserID, code.Code, code.NoOfApply, code.IsActive, code.BenefitEndMonth, code.ExpireDate, code.CreatedAt)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidExecContext):
			return err
		case uniqueViolation(err):
			// The UNIQUE index on code lets the generator detect collisions.
			return domain.ErrAlreadyExists
		default:
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *redeemRepo) FindCodeByValue(ctx context.Context, tx repository.Tx, code string) (*model.RedeemCode, error) {
	const q = `SELECT ` + codeCols + ` FROM redeem_codes WHERE code=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, err
	}
	return scanCode(row)
}

func (r *redeemRepo) FindCodeByID(ctx context.Context, tx repository.Tx, id string) (*model.RedeemCode, error) {
	const q = `SELECT ` + codeCols + ` FROM redeem_codes WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanCode(row)
}

func (r *redeemRepo) SetCodeActive(ctx context.Context, tx repository.Tx, id string, active bool) (bool, error) {
	const q = `UPDATE redeem_codes SET is_active=$2 WHERE id=$1;`
	ct, err := execSQL(ctx, r.pool, tx, q, id, active)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidExecContext):
			return false, err
		default:
			return false, domain.ErrOperationFailed
		}
	}
	return ct.RowsAffected() > 0, nil
}

func (r *redeemRepo) IncrementApplyCount(ctx context.Context, tx repository.Tx, id string, by int) error {
	// Database-side increment keeps concurrent confirmations from losing
	// updates.
	const q = `UPDATE redeem_codes SET no_of_apply = no_of_apply + $2 WHERE id=$1;`
	ct, err := execSQL(ctx, r.pool, tx, q, id, by)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *redeemRepo) SaveUserRedeem(ctx context.Context, tx repository.Tx, ur *model.UserRedeem) error {
	const q = `
INSERT INTO user_redeems (id, user_id, redeem_id, apply_date, subscription_id, status)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET subscription_id=$5, status=$6;`
	_, err := execSQL(ctx, r.pool, tx, q,
		ur.ID, ur.UserID, ur.RedeemID, ur.ApplyDate, ur.SubscriptionID, ur.Status)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidExecContext):
			return err
		case uniqueViolation(err):
			// UNIQUE (user_id, redeem_id): one claim per user per code.
			return domain.ErrAlreadyRedeemed
		default:
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *redeemRepo) FindUserRedeem(ctx context.Context, tx repository.Tx, userID, redeemID string) (*model.UserRedeem, error) {
	const q = `
SELECT id, user_id, redeem_id, apply_date, subscription_id, status
  FROM user_redeems
 WHERE user_id=$1 AND redeem_id=$2;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, redeemID)
	if err != nil {
		return nil, err
	}
	return scanClaim(row)
}

func (r *redeemRepo) ListClaimsBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string, notStatus model.UserRedeemStatus) ([]*model.UserRedeem, error) {
	const q = `
SELECT id, user_id, redeem_id, apply_date, subscription_id, status
  FROM user_redeems
 WHERE subscription_id=$1 AND status <> $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, subscriptionID, notStatus)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, domain.ErrNotFound
		case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidExecContext):
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()
	var out []*model.UserRedeem
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *redeemRepo) UpdateUserRedeemStatus(ctx context.Context, tx repository.Tx, id string, status model.UserRedeemStatus) error {
	const q = `UPDATE user_redeems SET status=$2 WHERE id=$1;`
	ct, err := execSQL(ctx, r.pool, tx, q, id, status)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *redeemRepo) HasActiveBenefit(ctx context.Context, tx repository.Tx, userID string, now time.Time) (bool, error) {
	const q = `
SELECT EXISTS(
    SELECT 1
      FROM user_redeems ur
      JOIN redeem_codes rc ON rc.id = ur.redeem_id
     WHERE ur.user_id = $1
       AND ur.status = 'active'
       AND rc.is_active
       AND rc.expire_date > $2
       AND (rc.benefit_end_month IS NULL OR rc.benefit_end_month >= $2)
);`
	row, err := pickRow(ctx, r.pool, tx, q, userID, now)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return exists, nil
}

func scanCode(row pgx.Row) (*model.RedeemCode, error) {
	c := &model.RedeemCode{}
	err := row.Scan(&c.ID, &c.OwnerUserID, &c.Code, &c.NoOfApply, &c.IsActive, &c.BenefitEndMonth, &c.ExpireDate, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return c, nil
}

func scanClaim(row pgx.Row) (*model.UserRedeem, error) {
	c := &model.UserRedeem{}
	var status string
	err := row.Scan(&c.ID, &c.UserID, &c.RedeemID, &c.ApplyDate, &c.SubscriptionID, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	c.Status = model.UserRedeemStatus(status)
	return c, nil
}
