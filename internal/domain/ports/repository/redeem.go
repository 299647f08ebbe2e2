package repository

import (
	"context"
	"time"

	"media-subscription-platform/internal/domain/model"
)

// RedeemRepository is the port for redeem codes and their per-user claims.
type RedeemRepository interface {
	// SaveCode inserts a code; a duplicate code value surfaces as
	// domain.ErrAlreadyExists so callers can retry generation.
	SaveCode(ctx context.Context, tx Tx, code *model.RedeemCode) error
	FindCodeByValue(ctx context.Context, tx Tx, code string) (*model.RedeemCode, error)
	FindCodeByID(ctx context.Context, tx Tx, id string) (*model.RedeemCode, error)
	// SetCodeActive flips is_active; reports whether the code exists.
	SetCodeActive(ctx context.Context, tx Tx, id string, active bool) (bool, error)
	// IncrementApplyCount bumps no_of_apply with the storage layer's native
	// atomic increment to avoid lost updates under concurrent application.
	IncrementApplyCount(ctx context.Context, tx Tx, id string, by int) error

	// SaveUserRedeem inserts a claim; a duplicate (user_id, redeem_id) pair
	// surfaces as domain.ErrAlreadyRedeemed.
	SaveUserRedeem(ctx context.Context, tx Tx, ur *model.UserRedeem) error
	FindUserRedeem(ctx context.Context, tx Tx, userID, redeemID string) (*model.UserRedeem, error)
	// ListClaimsBySubscription returns claims tied to a subscription whose
	// status differs from the given one.
	ListClaimsBySubscription(ctx context.Context, tx Tx, subscriptionID string, notStatus model.UserRedeemStatus) ([]*model.UserRedeem, error)
	UpdateUserRedeemStatus(ctx context.Context, tx Tx, id string, status model.UserRedeemStatus) error

	// HasActiveBenefit reports whether the user holds an active claim on an
	// active code whose benefit_end_month and expire_date are both still in
	// the future. Read-only; backs the entitlement gate.
	HasActiveBenefit(ctx context.Context, tx Tx, userID string, now time.Time) (bool, error)
}
