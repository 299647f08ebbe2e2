package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"media-subscription-platform/internal/domain"
	"media-subscription-platform/internal/domain/model"
	"media-subscription-platform/internal/domain/ports/adapter"
	"media-subscription-platform/internal/domain/ports/repository"
	"media-subscription-platform/internal/infra/metrics"
)

var _ ReminderUseCase = (*reminderUC)(nil)

// notifKindExpiry tags reminder rows in the notification log.
const notifKindExpiry = "expiry"

// reminderThresholds are the days-before-expiry marks at which a reminder
// goes out. 0 means the subscription ends today.
var reminderThresholds = []int{3, 2, 0}

// ReminderUseCase pushes expiry warnings to users whose active subscription
// ends in a few days. Each (subscription, threshold) pair fires at most once.
type ReminderUseCase interface {
	SendExpiryReminders(ctx context.Context) (int, error)
}

type reminderUC struct {
	subs     repository.SubscriptionRepository
	notifLog repository.NotificationLogRepository
	notifier adapter.Notifier
	log      *zerolog.Logger
}

func NewReminderUseCase(
	subs repository.SubscriptionRepository,
	notifLog repository.NotificationLogRepository,
	notifier adapter.Notifier,
	logger *zerolog.Logger,
) *reminderUC {
	l := logger.With().Str("component", "ReminderUC").Logger()
	return &reminderUC{subs: subs, notifLog: notifLog, notifier: notifier, log: &l}
}

func (u *reminderUC) SendExpiryReminders(ctx context.Context) (int, error) {
	now := time.Now()
	sent := 0
	for _, days := range reminderThresholds {
		day := now.AddDate(0, 0, days)
		subs, err := u.subs.ListActiveEndingOn(ctx, repository.NoTX, day)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return sent, err
		}
		for _, sub := range subs {
			ok, err := u.remindOnce(ctx, sub, days)
			if err != nil {
				u.log.Error().Err(err).Str("subscription_id", sub.ID).
					Int("days_left", days).Msg("reminder failed")
				continue
			}
			if ok {
				metrics.IncReminderSent(fmt.Sprintf("%d", days))
				sent++
			}
		}
	}
	return sent, nil
}

func (u *reminderUC) remindOnce(ctx context.Context, sub *model.Subscription, daysLeft int) (bool, error) {
	exists, err := u.notifLog.Exists(ctx, repository.NoTX, sub.ID, notifKindExpiry, daysLeft)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	planName := "your subscription"
	if sub.Plan != nil && sub.Plan.Name != "" {
		planName = sub.Plan.Name
	}
	var body string
	switch daysLeft {
	case 0:
		body = fmt.Sprintf("%s expires today. Renew now to keep reading without interruption.", planName)
	case 1:
		body = fmt.Sprintf("%s expires tomorrow. Renew now to keep reading without interruption.", planName)
	default:
		body = fmt.Sprintf("%s expires in %d days. Renew now to keep reading without interruption.", planName, daysLeft)
	}
	msg := model.Message{Title: "Subscription expiring", Body: body}

	err = u.notifier.Notify(ctx, model.UserTarget{UserID: sub.UserID}, msg)
	if err != nil {
		// Delivery failures are retried on the next run; only a delivered
		// reminder is recorded.
		return false, err
	}
	if err := u.notifLog.Save(ctx, repository.NoTX, sub.ID, sub.UserID, notifKindExpiry, daysLeft); err != nil {
		// A duplicate row means another worker delivered concurrently.
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return true, err
		}
	}
	return true, nil
}
