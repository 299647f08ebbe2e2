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

const reminderLockKey = "jobs:reminders"

// ReminderWorker fires the expiry-reminder pass once a day at a fixed local
// hour.
type ReminderWorker struct {
	hour    int
	lockTTL time.Duration
	uc      usecase.ReminderUseCase
	locker  redis.Locker
	log     *zerolog.Logger
}

func NewReminderWorker(hour int, lockTTL time.Duration, uc usecase.ReminderUseCase, locker redis.Locker, logger *zerolog.Logger) *ReminderWorker {
	l := logger.With().Str("component", "ReminderWorker").Logger()
	return &ReminderWorker{hour: hour, lockTTL: lockTTL, uc: uc, locker: locker, log: &l}
}

// nextRun returns the next occurrence of the configured hour after now.
func nextRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (w *ReminderWorker) Run(ctx context.Context) error {
	w.log.Info().Int("hour", w.hour).Msg("Starting reminder worker")
	for {
		wait := time.Until(nextRun(time.Now(), w.hour))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			w.log.Info().Msg("Stopping reminder worker")
			return ctx.Err()
		case <-timer.C:
			w.tick(ctx)
		}
	}
}

func (w *ReminderWorker) tick(ctx context.Context) {
	token, err := w.locker.TryLock(ctx, reminderLockKey, w.lockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockBusy) {
			metrics.IncJobRun("reminders", "skipped")
			return
		}
		w.log.Error().Err(err).Msg("reminder lock failed")
		return
	}
	defer func() { _ = w.locker.Unlock(ctx, reminderLockKey, token) }()

	sent, err := w.uc.SendExpiryReminders(ctx)
	if err != nil {
		metrics.IncJobRun("reminders", "error")
		w.log.Error().Err(err).Msg("reminder pass failed")
		return
	}
	metrics.IncJobRun("reminders", "ok")
	metrics.AddJobItems("reminders", sent)
	if sent > 0 {
		w.log.Info().Int("count", sent).Msg("expiry reminders sent")
	}
}
