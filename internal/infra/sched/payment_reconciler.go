package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"media-subscription-platform/internal/domain"
	"media-subscription-platform/internal/infra/metrics"
	"media-subscription-platform/internal/infra/redis"
	"media-subscription-platform/internal/usecase"
)

const reconcileLockKey = "jobs:reconcile"

// PaymentReconciler periodically resolves stale pending subscriptions against
// the gateway. This covers users who paid but never came back to trigger the
// on-demand check.
type PaymentReconciler struct {
	interval time.Duration
	minAge   time.Duration // how old a pending record must be before a retry
	batch    int
	lockTTL  time.Duration
	subUC    usecase.SubscriptionUseCase
	locker   redis.Locker
	log      *zerolog.Logger
}

func NewPaymentReconciler(
	interval, minAge time.Duration,
	batch int,
	lockTTL time.Duration,
	subUC usecase.SubscriptionUseCase,
	locker redis.Locker,
	logger *zerolog.Logger,
) *PaymentReconciler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if minAge <= 0 {
		minAge = 10 * time.Minute
	}
	if batch <= 0 {
		batch = 100
	}
	l := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{
		interval: interval,
		minAge:   minAge,
		batch:    batch,
		lockTTL:  lockTTL,
		subUC:    subUC,
		locker:   locker,
		log:      &l,
	}
}

func (w *PaymentReconciler) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting payment reconciler")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping payment reconciler")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) {
	token, err := w.locker.TryLock(ctx, reconcileLockKey, w.lockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockBusy) {
			metrics.IncJobRun("reconcile", "skipped")
			return
		}
		w.log.Error().Err(err).Msg("reconcile lock failed")
		return
	}
	defer func() { _ = w.locker.Unlock(ctx, reconcileLockKey, token) }()

	cutoff := time.Now().Add(-w.minAge)
	actions, err := w.subUC.ReconcileStale(ctx, cutoff, w.batch)
	if err != nil {
		metrics.IncJobRun("reconcile", "error")
		w.log.Error().Err(err).Msg("reconcile pass failed")
		return
	}
	metrics.IncJobRun("reconcile", "ok")
	metrics.AddJobItems("reconcile", len(actions))
	for _, a := range actions {
		w.log.Info().
			Str("run_id", a.RunID).
			Str("subscription_id", a.SubscriptionID).
			Str("verdict", string(a.Verdict)).
			Str("action", a.Action).
			Str("reason", a.Reason).
			Msg("pending subscription reconciled")
	}
}
