package model

import (
	"time"

	"media-subscription-platform/internal/domain"
)

// RedeemCode is a single promotional grant that substitutes for a paid
// subscription period. OwnerUserID is the issuer; a code can never be
// redeemed by its own issuer.
type RedeemCode struct {
	ID              string     `json:"id"`
	OwnerUserID     string     `json:"owner_user_id"`
	Code            string     `json:"code"`        // unique, fixed-length alphanumeric
	NoOfApply       int        `json:"no_of_apply"` // how many applications actually took effect
	IsActive        bool       `json:"is_active"`
	BenefitEndMonth *time.Time `json:"benefit_end_month,omitempty"` // date bound on the granted benefit
	ExpireDate      time.Time  `json:"expire_date"`                 // hard cutoff for applying the code
	CreatedAt       time.Time  `json:"created_at"`
}

func NewRedeemCode(id, ownerUserID, code string, benefitEndMonth *time.Time, expireDate time.Time) (*RedeemCode, error) {
	if id == "" || ownerUserID == "" || code == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &RedeemCode{
		ID:              id,
		OwnerUserID:     ownerUserID,
		Code:            code,
		NoOfApply:       0,
		IsActive:        true,
		BenefitEndMonth: benefitEndMonth,
		ExpireDate:      expireDate,
		CreatedAt:       time.Now(),
	}, nil
}

func (c *RedeemCode) Expired(now time.Time) bool {
	return now.After(c.ExpireDate)
}

type UserRedeemStatus string

const (
	UserRedeemStatusPending UserRedeemStatus = "pending"
	UserRedeemStatusActive  UserRedeemStatus = "active"
)

func (s UserRedeemStatus) Valid() bool {
	return s == UserRedeemStatusPending || s == UserRedeemStatusActive
}

// UserRedeem records one user's claim on a redeem code. The claim starts
// pending and is confirmed once the consuming subscription flow resolves;
// a (UserID, RedeemID) pair is unique.
type UserRedeem struct {
	ID             string           `json:"id"`
	UserID         string           `json:"user_id"`
	RedeemID       string           `json:"redeem_id"`
	ApplyDate      time.Time        `json:"apply_date"`
	SubscriptionID *string          `json:"subscription_id,omitempty"` // set once a subscription consumes the claim
	Status         UserRedeemStatus `json:"status"`
}
