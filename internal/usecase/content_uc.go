package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"media-subscription-platform/internal/domain/model"
	"media-subscription-platform/internal/domain/ports/adapter"
	"media-subscription-platform/internal/domain/ports/repository"
)

var _ ContentSchedulerUseCase = (*contentUC)(nil)

// subscribersTopic is the broadcast channel every app install is enrolled in.
const subscribersTopic = "subscribers"

// ContentSchedulerUseCase runs the editorial side effects the calendar
// drives: flipping scheduled articles live and retiring ads past their
// booked window.
type ContentSchedulerUseCase interface {
	// PublishScheduled publishes every article whose publish time has
	// arrived and, when anything went live, announces the drop on the
	// subscriber topic. Returns the number of articles published.
	PublishScheduled(ctx context.Context) (int64, error)
	// ExpireAds marks ads whose booked window has closed. Returns the
	// number of ads expired.
	ExpireAds(ctx context.Context) (int64, error)
}

type contentUC struct {
	articles repository.ArticleRepository
	ads      repository.AdRepository
	notifier adapter.Notifier
	log      *zerolog.Logger
}

func NewContentScheduler(
	articles repository.ArticleRepository,
	ads repository.AdRepository,
	notifier adapter.Notifier,
	logger *zerolog.Logger,
) *contentUC {
	l := logger.With().Str("component", "ContentScheduler").Logger()
	return &contentUC{articles: articles, ads: ads, notifier: notifier, log: &l}
}

func (u *contentUC) PublishScheduled(ctx context.Context) (int64, error) {
	now := time.Now()
	n, err := u.articles.PublishDue(ctx, repository.NoTX, now)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	u.log.Info().Int64("published", n).Msg("scheduled articles went live")

	// One broadcast per run regardless of how many articles flipped.
	msg := model.Message{
		Title: fmt.Sprintf("%s issue is out", now.Month().String()),
		Body:  "New articles are live. Open the app to start reading.",
	}
	if err := u.notifier.Notify(ctx, model.TopicTarget{Topic: subscribersTopic}, msg); err != nil {
		u.log.Error().Err(err).Msg("publish broadcast failed")
	}
	return n, nil
}

func (u *contentUC) ExpireAds(ctx context.Context) (int64, error) {
	n, err := u.ads.ExpireEndedBefore(ctx, repository.NoTX, time.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		u.log.Info().Int64("expired", n).Msg("ads past their window retired")
	}
	return n, nil
}
