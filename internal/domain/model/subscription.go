package model

import (
	"time"

	"media-subscription-platform/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "pending"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionStatusPending, SubscriptionStatusActive, SubscriptionStatusExpired, SubscriptionStatusCancelled:
		return true
	}
	return false
}

// Subscription is one user's entitlement record. Exactly one of
// PaymentRef/RedeemID is expected to drive activation, though both may be
// present for audit. Activated records are never hard-deleted; unresolved
// pending records with a failed gateway verdict are deleted outright.
type Subscription struct {
	ID         string             `json:"id"`
	UserID     string             `json:"user_id"`
	PlanID     string             `json:"plan_id"`
	PaymentRef *string            `json:"payment_ref,omitempty"` // opaque external transaction id
	RedeemID   *string            `json:"redeem_id,omitempty"`   // set when a redeem code funded the record
	StartAt    time.Time          `json:"start_at"`
	EndAt      time.Time          `json:"end_at"`
	Amount     int64              `json:"amount"` // minor units, copied from the plan at creation
	Status     SubscriptionStatus `json:"status"`
	CreatedAt  time.Time          `json:"created_at"`

	// Eager-loaded relations; not persisted on this row.
	Plan   *Plan       `json:"plan,omitempty"`
	Redeem *RedeemCode `json:"redeem,omitempty"`
}

// NewSubscription builds a pending subscription with the end of the period
// derived from the plan interval.
func NewSubscription(id, userID string, plan *Plan, paymentRef *string, startAt time.Time) (*Subscription, error) {
	if id == "" || userID == "" || plan.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	return &Subscription{
		ID:         id,
		UserID:     userID,
		PlanID:     plan.ID,
		PaymentRef: paymentRef,
		StartAt:    startAt,
		EndAt:      plan.PeriodEnd(startAt),
		Amount:     plan.Price,
		Status:     SubscriptionStatusPending,
		CreatedAt:  time.Now(),
		Plan:       plan,
	}, nil
}

// IsActive reports whether the record currently grants entitlement. The
// stored status is authoritative; sweeps keep it aligned with the clock.
func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionStatusActive
}

// TimeDerivedStatus recomputes the status from wall-clock time alone,
// ignoring payment state. Cancelled records are never touched. Returns the
// status the sweep should store and whether that differs from the current one.
func (s *Subscription) TimeDerivedStatus(now time.Time) (SubscriptionStatus, bool) {
	if s.Status == SubscriptionStatusCancelled {
		return s.Status, false
	}
	inWindow := !now.Before(s.StartAt) && !now.After(s.EndAt)
	if inWindow {
		if s.Status != SubscriptionStatusActive {
			return SubscriptionStatusActive, true
		}
		return s.Status, false
	}
	if s.Status == SubscriptionStatusActive {
		return SubscriptionStatusExpired, true
	}
	return s.Status, false
}
