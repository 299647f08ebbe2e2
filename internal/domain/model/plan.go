package model

import (
	"time"

	"media-subscription-platform/internal/domain"
)

type IntervalUnit string

const (
	IntervalDay   IntervalUnit = "day"
	IntervalWeek  IntervalUnit = "week"
	IntervalMonth IntervalUnit = "month"
	IntervalYear  IntervalUnit = "year"
)

func (u IntervalUnit) Valid() bool {
	switch u {
	case IntervalDay, IntervalWeek, IntervalMonth, IntervalYear:
		return true
	}
	return false
}

// Plan is a billing tier. Price is stored in currency minor units (paise)
// to avoid float errors. Plans are treated as immutable once subscriptions
// reference them; in practice only price and metadata get edited.
type Plan struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Description   string       `json:"description,omitempty"`
	Price         int64        `json:"price"`
	IntervalValue int          `json:"interval_value"`
	IntervalUnit  IntervalUnit `json:"interval_unit"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

// NewPlan validates and constructs a plan.
func NewPlan(id, name, description string, price int64, intervalValue int, intervalUnit IntervalUnit) (*Plan, error) {
	if id == "" || name == "" || price < 0 || intervalValue <= 0 || !intervalUnit.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Plan{
		ID:            id,
		Name:          name,
		Description:   description,
		Price:         price,
		IntervalValue: intervalValue,
		IntervalUnit:  intervalUnit,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// PeriodEnd returns the end of one billing period starting at start.
// Calendar arithmetic, so a one-month plan started Jan 31 ends Feb 28/29.
func (p *Plan) PeriodEnd(start time.Time) time.Time {
	switch p.IntervalUnit {
	case IntervalDay:
		return start.AddDate(0, 0, p.IntervalValue)
	case IntervalWeek:
		return start.AddDate(0, 0, 7*p.IntervalValue)
	case IntervalMonth:
		return start.AddDate(0, p.IntervalValue, 0)
	case IntervalYear:
		return start.AddDate(p.IntervalValue, 0, 0)
	}
	return start
}
