package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"media-subscription-platform/internal/domain"
	"media-subscription-platform/internal/domain/ports/repository"
)

var _ EntitlementGate = (*entitlementUC)(nil)

// EntitlementGate answers the single read-side question the content layer
// asks: may this user see premium material right now. It only inspects
// stored state and never talks to a payment gateway.
type EntitlementGate interface {
	HasPremiumAccess(ctx context.Context, userID string) (bool, error)
}

type entitlementUC struct {
	subs    repository.SubscriptionRepository
	redeems repository.RedeemRepository
	log     *zerolog.Logger
}

func NewEntitlementGate(
	subs repository.SubscriptionRepository,
	redeems repository.RedeemRepository,
	logger *zerolog.Logger,
) *entitlementUC {
	l := logger.With().Str("component", "EntitlementGate").Logger()
	return &entitlementUC{subs: subs, redeems: redeems, log: &l}
}

func (u *entitlementUC) HasPremiumAccess(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, domain.ErrInvalidArgument
	}

	sub, err := u.subs.FindLatestByUser(ctx, repository.NoTX, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}
	if sub != nil && sub.IsActive() {
		return true, nil
	}

	// No active subscription; a standing redeem benefit still opens the gate.
	return u.redeems.HasActiveBenefit(ctx, repository.NoTX, userID, time.Now())
}
