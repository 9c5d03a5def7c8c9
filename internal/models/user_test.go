package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserResetState(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)
	earlier := now.Add(-time.Minute)

	var u User
	assert.False(t, u.HasPendingReset())
	assert.True(t, u.ResetExpired(now))

	u.ResetToken = "tok"
	u.ResetTokenExpiry = &later
	assert.True(t, u.HasPendingReset())
	assert.False(t, u.ResetExpired(now))

	u.ResetTokenExpiry = &earlier
	assert.True(t, u.ResetExpired(now))

	u.ResetTokenExpiry = &now
	assert.True(t, u.ResetExpired(now), "expiry equal to now is expired")
}
