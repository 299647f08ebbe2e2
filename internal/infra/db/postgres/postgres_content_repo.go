package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"media-subscription-platform/internal/domain"
	"media-subscription-platform/internal/domain/model"
	"media-subscription-platform/internal/domain/ports/repository"
)

var (
	_ repository.ArticleRepository = (*articleRepo)(nil)
	_ repository.AdRepository     = (*adRepo)(nil)
)

type articleRepo struct {
	pool *pgxpool.Pool
}

func NewArticleRepo(pool *pgxpool.Pool) *articleRepo {
	return &articleRepo{pool: pool}
}

func (r *articleRepo) Save(ctx context.Context, tx repository.Tx, a *model.Article) error {
	const q = `
INSERT INTO articles (id, title, author_id, is_premium, status, publish_at, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
  title=$2, is_premium=$4, status=$5, publish_at=$6;`
	_, err := execSQL(ctx, r.pool, tx, q,
		a.ID, a.Title, a.AuthorID, a.IsPremium, a.Status, a.PublishAt, a.CreatedAt)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidExecContext):
			return err
		default:
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *articleRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Article, error) {
	const q = `
SELECT id, title, author_id, is_premium, status, publish_at, created_at
  FROM articles
 WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	a := &model.Article{}
	var status string
	if err := row.Scan(&a.ID, &a.Title, &a.AuthorID, &a.IsPremium, &status, &a.PublishAt, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	a.Status = model.ArticleStatus(status)
	return a, nil
}

func (r *articleRepo) PublishDue(ctx context.Context, tx repository.Tx, now time.Time) (int64, error) {
	// Single set-based flip; the row count is what the caller reports.
	const q = `
UPDATE articles
   SET status='published'
 WHERE status='scheduled' AND publish_at IS NOT NULL AND publish_at <= $1;`
	ct, err := execSQL(ctx, r.pool, tx, q, now)
	if err != nil {
		return 0, domain.ErrOperationFailed
	}
	return ct.RowsAffected(), nil
}

type adRepo struct {
	pool *pgxpool.Pool
}

func NewAdRepo(pool *pgxpool.Pool) *adRepo {
	return &adRepo{pool: pool}
}

func (r *adRepo) Save(ctx context.Context, tx repository.Tx, ad *model.Ad) error {
	const q = `
INSERT INTO ads (id, title, start_at, end_at, status, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET
  title=$2, start_at=$3, end_at=$4, status=$5;`
	_, err := execSQL(ctx, r.pool, tx, q, ad.ID, ad.Title, ad.StartAt, ad.EndAt, ad.Status, ad.CreatedAt)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidExecContext):
			return err
		default:
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *adRepo) ExpireEndedBefore(ctx context.Context, tx repository.Tx, now time.Time) (int64, error) {
	const q = `
UPDATE ads
   SET status='expired'
 WHERE status='active' AND end_at < $1;`
	ct, err := execSQL(ctx, r.pool, tx, q, now)
	if err != nil {
		return 0, domain.ErrOperationFailed
	}
	return ct.RowsAffected(), nil
}
