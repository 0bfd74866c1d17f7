package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUser_TrialDaysRemaining(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		v := now.Add(d)
		return &v
	}

	tests := []struct {
		name string
		ends *time.Time
		want int
	}{
		{"no trial", nil, 0},
		{"full trial", at(30 * 24 * time.Hour), 30},
		{"partial day rounds down", at(36 * time.Hour), 1},
		{"under a day", at(2 * time.Hour), 0},
		{"expired", at(-time.Hour), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := User{Tier: TierTrial, TrialEndsAt: tt.ends}
			assert.Equal(t, tt.want, u.TrialDaysRemaining(now))
		})
	}
}

func TestUser_EffectiveTier(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	assert.Equal(t, TierTrial, User{Tier: TierTrial, TrialEndsAt: &future}.EffectiveTier(now))
	assert.Equal(t, TierFree, User{Tier: TierTrial, TrialEndsAt: &past}.EffectiveTier(now))
	assert.Equal(t, TierTrial, User{Tier: TierTrial}.EffectiveTier(now))
	assert.Equal(t, TierPro, User{Tier: TierPro, TrialEndsAt: &past}.EffectiveTier(now))
}

func TestToolID_Valid(t *testing.T) {
	for _, id := range Tools {
		assert.True(t, id.Valid(), id)
	}
	assert.False(t, ToolID("kubeiq").Valid())
	assert.False(t, ToolID("").Valid())
}
