package usecase

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"media-subscription-platform/internal/domain"
	"media-subscription-platform/internal/domain/model"
	"media-subscription-platform/internal/domain/ports/repository"
)

// Compile-time check
var _ RedeemLedger = (*redeemUC)(nil)

// RedeemLedger issues promotional codes and gates their one-time use per user.
type RedeemLedger interface {
	// Generate issues a fresh code owned by the issuer. Retries on a code
	// collision; the uniqueness constraint is the source of truth.
	Generate(ctx context.Context, issuerUserID string, benefitEndMonth *time.Time) (*model.RedeemCode, error)
	// Apply claims a code for a redeemer in its own transaction.
	Apply(ctx context.Context, redeemerUserID, code string) (*model.RedeemCode, *model.UserRedeem, error)
	// ApplyTx claims a code inside a caller-owned transaction so the claim
	// and the consuming subscription commit or roll back together.
	ApplyTx(ctx context.Context, tx repository.Tx, redeemerUserID, code string, subscriptionID *string) (*model.RedeemCode, *model.UserRedeem, error)
	// ConfirmApplication moves all claims tied to a subscription to the given
	// status and, only when activating, bumps no_of_apply per affected code.
	ConfirmApplication(ctx context.Context, subscriptionID string, status model.UserRedeemStatus) (int, error)
	// Deactivate soft-disables a code. Idempotent; false means not found.
	Deactivate(ctx context.Context, redeemID string) (bool, error)
}

const (
	codeAlphabet      = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength        = 8
	codeDefaultExpiry = 30 * 24 * time.Hour
	codeGenAttempts   = 5
)

// generateCodeValue draws a fixed-length code from the alphabet. Codes are
// promotional, not secrets, so a plain uniform source is enough.
func generateCodeValue() string {
	buf := make([]byte, codeLength)
	for i := range buf {
		buf[i] = codeAlphabet[rand.IntN(len(codeAlphabet))]
	}
	return string(buf)
}

type redeemUC struct {
	codes repository.RedeemRepository
	tm    repository.TransactionManager
	log   *zerolog.Logger
}

func NewRedeemLedger(codes repository.RedeemRepository, tm repository.TransactionManager, logger *zerolog.Logger) *redeemUC {
	l := logger.With().Str("component", "RedeemLedger").Logger()
	return &redeemUC{codes: codes, tm: tm, log: &l}
}

func (u *redeemUC) Generate(ctx context.Context, issuerUserID string, benefitEndMonth *time.Time) (*model.RedeemCode, error) {
	if issuerUserID == "" {
		return nil, domain.ErrInvalidArgument
	}
	expire := time.Now().Add(codeDefaultExpiry)
	for attempt := 0; attempt < codeGenAttempts; attempt++ {
		code, err := model.NewRedeemCode(uuid.NewString(), issuerUserID, generateCodeValue(), benefitEndMonth, expire)
		if err != nil {
			return nil, err
		}
		err = u.codes.SaveCode(ctx, repository.NoTX, code)
		if errors.Is(err, domain.ErrAlreadyExists) {
			u.log.Debug().Int("attempt", attempt+1).Msg("code collision, regenerating")
			continue
		}
		if err != nil {
			return nil, err
		}
		return code, nil
	}
	return nil, domain.ErrOperationFailed
}

func (u *redeemUC) Apply(ctx context.Context, redeemerUserID, code string) (*model.RedeemCode, *model.UserRedeem, error) {
	var (
		rc *model.RedeemCode
		ur *model.UserRedeem
	)
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		rc, ur, err = u.ApplyTx(ctx, tx, redeemerUserID, code, nil)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return rc, ur, nil
}

func (u *redeemUC) ApplyTx(ctx context.Context, tx repository.Tx, redeemerUserID, code string, subscriptionID *string) (*model.RedeemCode, *model.UserRedeem, error) {
	if redeemerUserID == "" || code == "" {
		return nil, nil, domain.ErrInvalidArgument
	}

	rc, err := u.codes.FindCodeByValue(ctx, tx, normalizeCode(code))
	if err != nil {
		return nil, nil, err
	}
	if rc.OwnerUserID == redeemerUserID {
		return nil, nil, domain.ErrSelfRedeem
	}
	if rc.Expired(time.Now()) {
		// Deactivation runs outside the caller's transaction so it sticks
		// even when the surrounding creation rolls back.
		if _, derr := u.codes.SetCodeActive(ctx, repository.NoTX, rc.ID, false); derr != nil {
			u.log.Error().Err(derr).Str("redeem_id", rc.ID).Msg("deactivate expired code failed")
		}
		return nil, nil, domain.ErrCodeExpired
	}
	if _, err := u.codes.FindUserRedeem(ctx, tx, redeemerUserID, rc.ID); err == nil {
		return nil, nil, domain.ErrAlreadyRedeemed
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, nil, err
	}

	ur := &model.UserRedeem{
		ID:             uuid.NewString(),
		UserID:         redeemerUserID,
		RedeemID:       rc.ID,
		ApplyDate:      time.Now(),
		SubscriptionID: subscriptionID,
		Status:         model.UserRedeemStatusPending,
	}
	if err := u.codes.SaveUserRedeem(ctx, tx, ur); err != nil {
		return nil, nil, err
	}
	return rc, ur, nil
}

func (u *redeemUC) ConfirmApplication(ctx context.Context, subscriptionID string, status model.UserRedeemStatus) (int, error) {
	if subscriptionID == "" || !status.Valid() {
		return 0, domain.ErrInvalidArgument
	}

	var updated int
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		claims, err := u.codes.ListClaimsBySubscription(ctx, tx, subscriptionID, status)
		if err != nil {
			return err
		}
		applyCounts := make(map[string]int)
		for _, claim := range claims {
			if err := u.codes.UpdateUserRedeemStatus(ctx, tx, claim.ID, status); err != nil {
				return err
			}
			if status == model.UserRedeemStatusActive {
				applyCounts[claim.RedeemID]++
			}
		}
		for redeemID, n := range applyCounts {
			if err := u.codes.IncrementApplyCount(ctx, tx, redeemID, n); err != nil {
				return err
			}
		}
		updated = len(claims)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

func (u *redeemUC) Deactivate(ctx context.Context, redeemID string) (bool, error) {
	found, err := u.codes.SetCodeActive(ctx, repository.NoTX, redeemID, false)
	if err != nil {
		u.log.Error().Err(err).Str("redeem_id", redeemID).Msg("deactivate failed")
		return false, err
	}
	return found, nil
}

func normalizeCode(code string) string {
	out := make([]byte, 0, len(code))
	for i := 0; i < len(code); i++ {
		c := code[i]
		if c == ' ' {
			continue
		}
		if 'a' <= c && c <= 'z' {
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}
