package ws

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/behark/car-wash-premium-migrated-sub002/internal/dto"
	"github.com/behark/car-wash-premium-migrated-sub002/pkg/config"
)

// ActionLimiter enforces a per-action cooldown for one connection. Each
// action gets a burst-1 limiter refilling once per cooldown window, so a
// request inside the window is rejected without consuming anything.
type ActionLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	cooldowns map[string]time.Duration
}

// NewActionLimiter creates a limiter from the configured cooldowns
func NewActionLimiter(cfg config.RateLimitConfig) *ActionLimiter {
	cooldowns := map[string]time.Duration{
		dto.ActionSubscribe:      cfg.Subscribe,
		dto.ActionUnsubscribe:    cfg.Unsubscribe,
		dto.ActionAttemptBooking: cfg.AttemptBooking,
		dto.ActionReleaseHold:    cfg.ReleaseHold,
	}

	limiters := make(map[string]*rate.Limiter, len(cooldowns))
	for action, cooldown := range cooldowns {
		if cooldown <= 0 {
			continue
		}
		limiters[action] = rate.NewLimiter(rate.Every(cooldown), 1)
	}

	return &ActionLimiter{limiters: limiters, cooldowns: cooldowns}
}

// Allow reports whether the action may run now. Actions without a
// configured cooldown are always allowed.
func (l *ActionLimiter) Allow(action string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[action]
	if !ok {
		return true
	}
	return limiter.Allow()
}

// Cooldown returns the configured window for an action
func (l *ActionLimiter) Cooldown(action string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cooldowns[action]
}
