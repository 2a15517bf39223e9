package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/behark/car-wash-premium-migrated-sub002/internal/dto"
	"github.com/behark/car-wash-premium-migrated-sub002/pkg/config"
)

func TestActionLimiter_CooldownWindow(t *testing.T) {
	l := NewActionLimiter(config.RateLimitConfig{
		AttemptBooking: 50 * time.Millisecond,
	})

	assert.True(t, l.Allow(dto.ActionAttemptBooking))
	assert.False(t, l.Allow(dto.ActionAttemptBooking))
	assert.False(t, l.Allow(dto.ActionAttemptBooking))

	time.Sleep(60 * time.Millisecond)
	assert.True(t, l.Allow(dto.ActionAttemptBooking), "allowed again after the window")
}

func TestActionLimiter_ActionsAreIndependent(t *testing.T) {
	l := NewActionLimiter(config.RateLimitConfig{
		Subscribe:      time.Minute,
		AttemptBooking: time.Minute,
	})

	assert.True(t, l.Allow(dto.ActionSubscribe))
	assert.True(t, l.Allow(dto.ActionAttemptBooking))
	assert.False(t, l.Allow(dto.ActionSubscribe))
	assert.False(t, l.Allow(dto.ActionAttemptBooking))
}

func TestActionLimiter_UnconfiguredActionAllowed(t *testing.T) {
	l := NewActionLimiter(config.RateLimitConfig{})

	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow(dto.ActionSubscribe))
	}
	assert.True(t, l.Allow("something_else"))
}

func TestActionLimiter_Cooldown(t *testing.T) {
	l := NewActionLimiter(config.RateLimitConfig{
		ReleaseHold: 2 * time.Second,
	})

	assert.Equal(t, 2*time.Second, l.Cooldown(dto.ActionReleaseHold))
	assert.Equal(t, time.Duration(0), l.Cooldown("unknown"))
}
