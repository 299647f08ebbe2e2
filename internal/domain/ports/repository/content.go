package repository

import (
	"context"
	"time"

	"media-subscription-platform/internal/domain/model"
)

// ArticleRepository covers what the entitlement gate consumer and the
// publish job need from editorial content.
type ArticleRepository interface {
	Save(ctx context.Context, tx Tx, a *model.Article) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Article, error)
	// PublishDue flips scheduled articles whose publish time has arrived to
	// published; returns how many rows changed.
	PublishDue(ctx context.Context, tx Tx, now time.Time) (int64, error)
}

// AdRepository backs the daily ad-expiry sweep.
type AdRepository interface {
	Save(ctx context.Context, tx Tx, ad *model.Ad) error
	// ExpireEndedBefore marks non-expired ads whose end date has passed;
	// returns how many rows changed.
	ExpireEndedBefore(ctx context.Context, tx Tx, now time.Time) (int64, error)
}
