package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"media-subscription-platform/internal/domain"
	"media-subscription-platform/internal/domain/model"
	"media-subscription-platform/internal/domain/ports/adapter"
	"media-subscription-platform/internal/domain/ports/repository"
	"media-subscription-platform/internal/infra/metrics"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// Reconcile action outcomes.
const (
	ReconcileActivated  = "activated"
	ReconcileDeleted    = "deleted"
	ReconcileUnresolved = "unresolved"
)

// ReconcileAction is one line of the per-subscription action log a
// reconciliation pass produces.
type ReconcileAction struct {
	RunID          string                  `json:"run_id"`
	SubscriptionID string                  `json:"subscription_id"`
	PaymentRef     string                  `json:"payment_ref"`
	Verdict        adapter.SettlementState `json:"verdict"`
	Action         string                  `json:"action"`
	Reason         string                  `json:"reason,omitempty"`
}

// CreateSubscriptionInput carries everything the create flow accepts. At
// least one of PaymentRef/RedeemCode must be set.
type CreateSubscriptionInput struct {
	UserID     string
	PlanID     string
	PaymentRef *string
	RedeemCode *string
	StartAt    *time.Time
	Status     model.SubscriptionStatus // optional; defaults to pending
}

// UpdateSubscriptionInput is a partial update; nil fields are left alone.
type UpdateSubscriptionInput struct {
	PlanID     *string
	PaymentRef *string
	StartAt    *time.Time
	EndAt      *time.Time
	Status     *model.SubscriptionStatus
	Amount     *int64
}

// SubscriptionUseCase owns the entitlement state machine:
// pending → active, pending → deleted, active → expired, active → cancelled.
type SubscriptionUseCase interface {
	// Create resolves the start, derives the end from the plan interval,
	// claims a redeem code when one is supplied (strictly before the row is
	// written, in the same transaction) and persists the record. Returns the
	// hydrated subscription and a human-readable creation message.
	Create(ctx context.Context, in CreateSubscriptionInput) (*model.Subscription, string, error)
	// ReconcileUser resolves every pending payment-backed subscription of
	// one user against the gateway and returns the per-subscription log.
	ReconcileUser(ctx context.Context, userID string) ([]ReconcileAction, error)
	// ReconcileStale does the same for pending records across all users
	// created before the cutoff; used by the background reconciler.
	ReconcileStale(ctx context.Context, olderThan time.Time, limit int) ([]ReconcileAction, error)
	// SweepAll recomputes every subscription's time-derived status. Pure
	// wall-clock function, never contacts the gateway, idempotent.
	SweepAll(ctx context.Context) (int, error)

	Latest(ctx context.Context, userID string) (*model.Subscription, error)
	History(ctx context.Context, userID string, offset, limit int) ([]*model.Subscription, error)
	Update(ctx context.Context, id string, in UpdateSubscriptionInput) (*model.Subscription, error)
	Destroy(ctx context.Context, id string) error
}

type subscriptionUC struct {
	subs    repository.SubscriptionRepository
	plans   repository.PlanRepository
	ledger  RedeemLedger
	gateway adapter.StatusGateway
	tm      repository.TransactionManager
	log     *zerolog.Logger
}

func NewSubscriptionUseCase(
	subs repository.SubscriptionRepository,
	plans repository.PlanRepository,
	ledger RedeemLedger,
	gateway adapter.StatusGateway,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *subscriptionUC {
	l := logger.With().Str("component", "SubscriptionUC").Logger()
	return &subscriptionUC{subs: subs, plans: plans, ledger: ledger, gateway: gateway, tm: tm, log: &l}
}

func (u *subscriptionUC) Create(ctx context.Context, in CreateSubscriptionInput) (*model.Subscription, string, error) {
	if in.UserID == "" || in.PlanID == "" {
		return nil, "", domain.ErrInvalidArgument
	}
	if in.PaymentRef == nil && in.RedeemCode == nil {
		return nil, "", domain.ErrInvalidArgument
	}
	if in.Status != "" && !in.Status.Valid() {
		return nil, "", domain.ErrInvalidArgument
	}

	plan, err := u.plans.FindByID(ctx, repository.NoTX, in.PlanID)
	if err != nil {
		return nil, "", err
	}

	start := time.Now()
	if in.StartAt != nil {
		start = *in.StartAt
	}
	sub, err := model.NewSubscription(uuid.NewString(), in.UserID, plan, in.PaymentRef, start)
	if err != nil {
		return nil, "", err
	}
	if in.Status != "" {
		sub.Status = in.Status
	}

	// The ledger claim and the subscription row commit or roll back as one
	// unit: no orphan claim survives a failed creation, and no subscription
	// is written when the claim fails.
	var redeem *model.RedeemCode
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if in.RedeemCode != nil {
			rc, _, err := u.ledger.ApplyTx(ctx, tx, in.UserID, *in.RedeemCode, &sub.ID)
			if err != nil {
				return err
			}
			sub.RedeemID = &rc.ID
			redeem = rc
		}
		return u.subs.Save(ctx, tx, sub)
	})
	if err != nil {
		return nil, "", err
	}

	sub.Plan = plan
	sub.Redeem = redeem
	msg := "subscription created; awaiting payment confirmation"
	if redeem != nil {
		msg = "subscription created via redeem code"
	}
	u.log.Info().Str("subscription_id", sub.ID).Str("user_id", sub.UserID).
		Bool("redeem", redeem != nil).Msg("subscription created")
	return sub, msg, nil
}

func (u *subscriptionUC) ReconcileUser(ctx context.Context, userID string) ([]ReconcileAction, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	pending, err := u.subs.ListPendingWithPaymentRef(ctx, repository.NoTX, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return u.reconcile(ctx, pending), nil
}

func (u *subscriptionUC) ReconcileStale(ctx context.Context, olderThan time.Time, limit int) ([]ReconcileAction, error) {
	pending, err := u.subs.ListStalePending(ctx, repository.NoTX, olderThan, limit)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return u.reconcile(ctx, pending), nil
}

// reconcile applies the gateway verdict to each pending subscription
// independently. One bad subscription never blocks the rest of the batch.
func (u *subscriptionUC) reconcile(ctx context.Context, pending []*model.Subscription) []ReconcileAction {
	runID := ulid.Make().String()
	actions := make([]ReconcileAction, 0, len(pending))

	for _, sub := range pending {
		if sub.PaymentRef == nil || *sub.PaymentRef == "" {
			continue
		}
		ref := *sub.PaymentRef
		act := ReconcileAction{RunID: runID, SubscriptionID: sub.ID, PaymentRef: ref}

		verdict, err := u.gateway.QueryStatus(ctx, ref)
		act.Verdict = verdict.State
		metrics.ObserveGatewayVerdict(u.gateway.Name(), string(verdict.State))
		if err != nil {
			u.log.Warn().Err(err).Str("run_id", runID).Str("subscription_id", sub.ID).
				Msg("gateway query did not resolve")
		}

		switch verdict.State {
		case adapter.SettlementCompleted:
			if verdict.SettledAmount != sub.Amount {
				// A completed payment with the wrong amount must not
				// activate; leave the record pending for the next sweep.
				act.Action = ReconcileUnresolved
				act.Reason = "settled amount mismatch"
				u.log.Warn().Str("run_id", runID).Str("subscription_id", sub.ID).
					Int64("expected", sub.Amount).Int64("settled", verdict.SettledAmount).
					Msg("amount mismatch, leaving pending")
				break
			}
			sub.Status = model.SubscriptionStatusActive
			if err := u.subs.Save(ctx, repository.NoTX, sub); err != nil {
				act.Action = ReconcileUnresolved
				act.Reason = "activation write failed"
				u.log.Error().Err(err).Str("subscription_id", sub.ID).Msg("activate failed")
				break
			}
			if _, err := u.ledger.ConfirmApplication(ctx, sub.ID, model.UserRedeemStatusActive); err != nil {
				u.log.Error().Err(err).Str("subscription_id", sub.ID).Msg("confirm redeem claims failed")
			}
			act.Action = ReconcileActivated
		case adapter.SettlementFailed:
			// An unpaid pending record has no historical value: delete it.
			// An existing ledger claim is deliberately left as-is.
			if err := u.subs.Delete(ctx, repository.NoTX, sub.ID); err != nil {
				act.Action = ReconcileUnresolved
				act.Reason = "delete failed"
				u.log.Error().Err(err).Str("subscription_id", sub.ID).Msg("delete failed")
				break
			}
			act.Action = ReconcileDeleted
			act.Reason = verdict.ProviderCode
		default:
			act.Action = ReconcileUnresolved
			act.Reason = "gateway verdict unknown"
		}

		metrics.ObserveReconcileAction(act.Action)
		actions = append(actions, act)
	}
	return actions
}

func (u *subscriptionUC) SweepAll(ctx context.Context) (int, error) {
	all, err := u.subs.ListAll(ctx, repository.NoTX)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	now := time.Now()
	changed := 0
	for _, sub := range all {
		next, ok := sub.TimeDerivedStatus(now)
		if !ok {
			continue
		}
		prev := sub.Status
		sub.Status = next
		if err := u.subs.Save(ctx, repository.NoTX, sub); err != nil {
			u.log.Error().Err(err).Str("subscription_id", sub.ID).Msg("sweep write failed")
			sub.Status = prev
			continue
		}
		metrics.ObserveSweepTransition(string(prev), string(next))
		changed++
	}
	if counts, err := u.subs.CountByStatus(ctx, repository.NoTX); err == nil {
		metrics.SetSubscriptionsTotal(counts)
	}
	return changed, nil
}

func (u *subscriptionUC) Latest(ctx context.Context, userID string) (*model.Subscription, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	sub, err := u.subs.FindLatestByUser(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	u.hydrate(ctx, sub)
	return sub, nil
}

func (u *subscriptionUC) History(ctx context.Context, userID string, offset, limit int) ([]*model.Subscription, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	subs, err := u.subs.ListByUser(ctx, repository.NoTX, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	for _, s := range subs {
		u.hydrate(ctx, s)
	}
	return subs, nil
}

func (u *subscriptionUC) Update(ctx context.Context, id string, in UpdateSubscriptionInput) (*model.Subscription, error) {
	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	sub, err := u.subs.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	if in.PlanID != nil {
		plan, err := u.plans.FindByID(ctx, repository.NoTX, *in.PlanID)
		if err != nil {
			return nil, err
		}
		sub.PlanID = plan.ID
		sub.Plan = plan
	}
	if in.PaymentRef != nil {
		sub.PaymentRef = in.PaymentRef
	}
	if in.StartAt != nil {
		sub.StartAt = *in.StartAt
	}
	if in.EndAt != nil {
		sub.EndAt = *in.EndAt
	}
	if in.Amount != nil {
		sub.Amount = *in.Amount
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, domain.ErrInvalidArgument
		}
		sub.Status = *in.Status
	}
	if sub.EndAt.Before(sub.StartAt) {
		return nil, domain.ErrInvalidArgument
	}
	if err := u.subs.Save(ctx, repository.NoTX, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (u *subscriptionUC) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrInvalidArgument
	}
	if _, err := u.subs.FindByID(ctx, repository.NoTX, id); err != nil {
		return err
	}
	return u.subs.Delete(ctx, repository.NoTX, id)
}

func (u *subscriptionUC) hydrate(ctx context.Context, sub *model.Subscription) {
	if sub.Plan == nil {
		if plan, err := u.plans.FindByID(ctx, repository.NoTX, sub.PlanID); err == nil {
			sub.Plan = plan
		}
	}
}
