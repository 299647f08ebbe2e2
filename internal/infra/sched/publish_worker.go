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

const publishLockKey = "jobs:publish"

// Editorial schedules drops for the start of the month; scheduled ticks only
// act during this opening window. The admin trigger ignores it.
const publishWindowDays = 7

// PublishWorker flips scheduled articles live. The set-based update makes
// repeated checks within the window cheap.
type PublishWorker struct {
	interval time.Duration
	lockTTL  time.Duration
	content  usecase.ContentSchedulerUseCase
	locker   redis.Locker
	log      *zerolog.Logger

	trigger chan struct{}
}

func NewPublishWorker(interval, lockTTL time.Duration, content usecase.ContentSchedulerUseCase, locker redis.Locker, logger *zerolog.Logger) *PublishWorker {
	l := logger.With().Str("component", "PublishWorker").Logger()
	return &PublishWorker{
		interval: interval,
		lockTTL:  lockTTL,
		content:  content,
		locker:   locker,
		log:      &l,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger requests an immediate pass, used by the admin publish endpoint.
// Coalesces when a pass is already queued.
func (w *PublishWorker) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

func (w *PublishWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting publish worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping publish worker")
			return ctx.Err()
		case <-ticker.C:
			if now := time.Now(); now.Day() > publishWindowDays {
				continue
			}
			w.tick(ctx)
		case <-w.trigger:
			w.tick(ctx)
		}
	}
}

func (w *PublishWorker) tick(ctx context.Context) {
	token, err := w.locker.TryLock(ctx, publishLockKey, w.lockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockBusy) {
			metrics.IncJobRun("publish", "skipped")
			return
		}
		w.log.Error().Err(err).Msg("publish lock failed")
		return
	}
	defer func() { _ = w.locker.Unlock(ctx, publishLockKey, token) }()

	n, err := w.content.PublishScheduled(ctx)
	if err != nil {
		metrics.IncJobRun("publish", "error")
		w.log.Error().Err(err).Msg("publish pass failed")
		return
	}
	metrics.IncJobRun("publish", "ok")
	metrics.AddJobItems("publish", int(n))
}
