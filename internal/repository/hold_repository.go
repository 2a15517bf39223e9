package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/behark/car-wash-premium-migrated-sub002/internal/domain"
)

// Acquire error codes
const (
	CodeAlreadyHeld = "ALREADY_HELD"
)

// AcquireResult is the outcome of an atomic hold acquisition
type AcquireResult struct {
	Success      bool
	ErrorCode    string
	ErrorMessage string
	// Holder is the current hold when the acquisition lost the race
	Holder *domain.Hold
	// RetryAfter is the remaining lifetime of the competing hold
	RetryAfter time.Duration
}

// HoldRepository is the slot store: one exclusive hold per (date, timeSlot)
// key, evicted automatically after expiry. Acquire is the single authority
// for exclusivity; availability pre-checks are an optimization only.
type HoldRepository interface {
	// Acquire atomically creates the hold if the key is free
	Acquire(ctx context.Context, hold *domain.Hold, ttl time.Duration) (*AcquireResult, error)

	// Get returns the active hold for the key, nil when absent or expired
	Get(ctx context.Context, date, timeSlot string) (*domain.Hold, error)

	// Release deletes the hold if it is owned by connectionID and returns
	// the deleted hold. Returns nil (without error) when the hold is
	// missing or foreign.
	Release(ctx context.Context, date, timeSlot, connectionID string) (*domain.Hold, error)

	// Consume deletes and returns the hold regardless of owner; used when
	// a booking confirmation converts the hold into real capacity.
	Consume(ctx context.Context, date, timeSlot string) (*domain.Hold, error)

	// Take deletes the hold only if it still carries holdID; the expiry
	// path uses it to avoid destroying a successor hold.
	Take(ctx context.Context, date, timeSlot, holdID string) (bool, error)

	// ActiveHolds returns all unexpired holds for a date keyed by time slot
	ActiveHolds(ctx context.Context, date string) (map[string]*domain.Hold, error)
}

// holdKey builds the store key for a slot
func holdKey(date, timeSlot string) string {
	return fmt.Sprintf("hold:%s:%s", date, timeSlot)
}

// dateIndexKey builds the per-date index key listing held slots
func dateIndexKey(date string) string {
	return fmt.Sprintf("holds:%s", date)
}
