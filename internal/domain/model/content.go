package model

import "time"

type ArticleStatus string

const (
	ArticleStatusDraft     ArticleStatus = "draft"
	ArticleStatusScheduled ArticleStatus = "scheduled"
	ArticleStatusPublished ArticleStatus = "published"
	ArticleStatusArchived  ArticleStatus = "archived"
)

// Article carries only what the entitlement gate and the publish job need;
// full editorial content lives with the content service.
type Article struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	AuthorID  string        `json:"author_id"`
	IsPremium bool          `json:"is_premium"`
	Status    ArticleStatus `json:"status"`
	PublishAt *time.Time    `json:"publish_at,omitempty"` // set for scheduled articles
	CreatedAt time.Time     `json:"created_at"`
}

type AdStatus string

const (
	AdStatusActive  AdStatus = "active"
	AdStatusExpired AdStatus = "expired"
)

// Ad is a time-bound promotional placement, expired by the daily sweep.
type Ad struct {
	ID        string
	Title     string
	StartAt   time.Time
	EndAt     time.Time
	Status    AdStatus
	CreatedAt time.Time
}
