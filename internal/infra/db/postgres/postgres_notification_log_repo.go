package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"media-subscription-platform/internal/domain"
	"media-subscription-platform/internal/domain/ports/repository"
)

var _ repository.NotificationLogRepository = (*notificationLogRepo)(nil)

type notificationLogRepo struct {
	pool *pgxpool.Pool
}

func NewNotificationLogRepo(pool *pgxpool.Pool) repository.NotificationLogRepository {
	return &notificationLogRepo{pool: pool}
}

func (r *notificationLogRepo) Save(ctx context.Context, tx repository.Tx, subscriptionID, userID, kind string, thresholdDays int) error {
	const q = `
INSERT INTO subscription_notifications (id, subscription_id, user_id, kind, threshold_days, sent_at)
VALUES ($1, $2, $3, $4, $5, NOW())`

	// The UNIQUE constraint on (subscription_id, kind, threshold_days) is the
	// duplicate guard; racing workers get ErrAlreadyExists.
	_, err := execSQL(ctx, r.pool, tx, q, uuid.NewString(), subscriptionID, userID, kind, thresholdDays)
	if err != nil {
		if uniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *notificationLogRepo) Exists(ctx context.Context, tx repository.Tx, subscriptionID, kind string, thresholdDays int) (bool, error) {
	const q = `
SELECT EXISTS(
    SELECT 1 FROM subscription_notifications
    WHERE subscription_id = $1 AND kind = $2 AND threshold_days = $3
)`
	row, err := pickRow(ctx, r.pool, tx, q, subscriptionID, kind, thresholdDays)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := row.Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, domain.ErrReadDatabaseRow
	}
	return exists, nil
}
