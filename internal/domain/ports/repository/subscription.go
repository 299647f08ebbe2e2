package repository

import (
	"context"
	"time"

	"media-subscription-platform/internal/domain/model"
)

// SubscriptionRepository is the port for entitlement records.
type SubscriptionRepository interface {
	// Save creates or updates a subscription row.
	Save(ctx context.Context, tx Tx, sub *model.Subscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	// FindLatestByUser returns the most recent subscription for a user
	// (insertion order); only the latest matters to the entitlement gate.
	FindLatestByUser(ctx context.Context, tx Tx, userID string) (*model.Subscription, error)
	ListByUser(ctx context.Context, tx Tx, userID string, offset, limit int) ([]*model.Subscription, error)
	// ListPendingWithPaymentRef returns a user's pending, payment-backed
	// subscriptions awaiting gateway resolution.
	ListPendingWithPaymentRef(ctx context.Context, tx Tx, userID string) ([]*model.Subscription, error)
	// ListStalePending returns pending payment-backed subscriptions across
	// all users created before the cutoff, for the background reconciler.
	ListStalePending(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Subscription, error)
	// ListAll feeds the time sweep.
	ListAll(ctx context.Context, tx Tx) ([]*model.Subscription, error)
	// ListActiveEndingOn returns active subscriptions whose end date falls
	// exactly on the given calendar day (UTC date match, not a range).
	ListActiveEndingOn(ctx context.Context, tx Tx, day time.Time) ([]*model.Subscription, error)
	// Delete hard-deletes a row. Used for unresolved pending records with a
	// failed gateway verdict, which have no historical value.
	Delete(ctx context.Context, tx Tx, id string) error

	CountByStatus(ctx context.Context, tx Tx) (map[model.SubscriptionStatus]int, error)
}
