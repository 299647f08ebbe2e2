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

const sweepLockKey = "jobs:sweep"

// SweepWorker periodically realigns subscription statuses with the clock and
// retires ads past their window.
type SweepWorker struct {
	interval time.Duration
	lockTTL  time.Duration
	subUC    usecase.SubscriptionUseCase
	content  usecase.ContentSchedulerUseCase
	locker   redis.Locker
	log      *zerolog.Logger
}

func NewSweepWorker(
	interval, lockTTL time.Duration,
	subUC usecase.SubscriptionUseCase,
	content usecase.ContentSchedulerUseCase,
	locker redis.Locker,
	logger *zerolog.Logger,
) *SweepWorker {
	l := logger.With().Str("component", "SweepWorker").Logger()
	return &SweepWorker{
		interval: interval,
		lockTTL:  lockTTL,
		subUC:    subUC,
		content:  content,
		locker:   locker,
		log:      &l,
	}
}

func (w *SweepWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting sweep worker")
	// Run once on startup, then on every tick
	w.tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping sweep worker")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *SweepWorker) tick(ctx context.Context) {
	token, err := w.locker.TryLock(ctx, sweepLockKey, w.lockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockBusy) {
			metrics.IncJobRun("sweep", "skipped")
			return
		}
		w.log.Error().Err(err).Msg("sweep lock failed")
		return
	}
	defer func() { _ = w.locker.Unlock(ctx, sweepLockKey, token) }()

	changed, err := w.subUC.SweepAll(ctx)
	if err != nil {
		metrics.IncJobRun("sweep", "error")
		w.log.Error().Err(err).Msg("subscription sweep failed")
	} else {
		metrics.IncJobRun("sweep", "ok")
		metrics.AddJobItems("sweep", changed)
		if changed > 0 {
			w.log.Info().Int("count", changed).Msg("subscription statuses realigned")
		}
	}

	expired, err := w.content.ExpireAds(ctx)
	if err != nil {
		metrics.IncJobRun("ad_expiry", "error")
		w.log.Error().Err(err).Msg("ad expiry failed")
		return
	}
	metrics.IncJobRun("ad_expiry", "ok")
	metrics.AddJobItems("ad_expiry", int(expired))
}
