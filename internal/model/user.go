package model

import (
	"math"
	"time"
)

const APIKeyPrefix = "iq_"

type User struct {
	ID             string     `json:"id" validate:"required"`
	SessionID      string     `json:"session_id" validate:"required"`
	Email          string     `json:"email" validate:"required,email"`
	Name           string     `json:"name,omitempty"`
	APIKey         string     `json:"api_key,omitempty"`
	Tier           Tier       `json:"tier" validate:"required"`
	TrialStartedAt *time.Time `json:"trial_started_at,omitempty"`
	TrialEndsAt    *time.Time `json:"trial_ends_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TrialDaysRemaining returns whole days left in the trial, or 0 when there is none.
func (u User) TrialDaysRemaining(now time.Time) int {
	if u.TrialEndsAt == nil {
		return 0
	}
	left := u.TrialEndsAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Floor(left.Hours() / 24))
}

func (u User) TrialExpired(now time.Time) bool {
	return u.Tier == TierTrial && u.TrialEndsAt != nil && !now.Before(*u.TrialEndsAt)
}

// EffectiveTier is the tier used for access checks. An expired trial falls back to free.
func (u User) EffectiveTier(now time.Time) Tier {
	if u.TrialExpired(now) {
		return TierFree
	}
	return u.Tier
}
