package repository

import (
	"context"
	"sync"
	"time"

	"github.com/behark/car-wash-premium-migrated-sub002/internal/clock"
	"github.com/behark/car-wash-premium-migrated-sub002/internal/domain"
)

// MemoryHoldRepository is an in-memory HoldRepository with the same
// semantics as the Redis implementation. Used in tests and as a
// single-process fallback when Redis is not configured.
type MemoryHoldRepository struct {
	mu    sync.Mutex
	holds map[string]*domain.Hold
	clock clock.Clock
}

// NewMemoryHoldRepository creates a new MemoryHoldRepository
func NewMemoryHoldRepository(clk clock.Clock) *MemoryHoldRepository {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &MemoryHoldRepository{
		holds: make(map[string]*domain.Hold),
		clock: clk,
	}
}

// Acquire atomically creates the hold if the key is free
func (r *MemoryHoldRepository) Acquire(ctx context.Context, hold *domain.Hold, ttl time.Duration) (*AcquireResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := holdKey(hold.Date, hold.TimeSlot)
	now := r.clock.Now()

	if current, ok := r.holds[key]; ok && !current.IsExpiredAt(now) {
		h := *current
		return &AcquireResult{
			Success:      false,
			ErrorCode:    CodeAlreadyHeld,
			ErrorMessage: "slot is already held",
			Holder:       &h,
			RetryAfter:   current.TimeUntilExpiry(now),
		}, nil
	}

	stored := *hold
	r.holds[key] = &stored
	return &AcquireResult{Success: true}, nil
}

// Get returns the active hold for the key, nil when absent or expired
func (r *MemoryHoldRepository) Get(ctx context.Context, date, timeSlot string) (*domain.Hold, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := holdKey(date, timeSlot)
	current, ok := r.holds[key]
	if !ok {
		return nil, nil
	}

	if current.IsExpiredAt(r.clock.Now()) {
		return nil, nil
	}

	h := *current
	return &h, nil
}

// Release deletes and returns the hold if owned by connectionID
func (r *MemoryHoldRepository) Release(ctx context.Context, date, timeSlot, connectionID string) (*domain.Hold, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := holdKey(date, timeSlot)
	current, ok := r.holds[key]
	if !ok {
		return nil, nil
	}

	if !current.OwnedBy(connectionID) {
		return nil, nil
	}

	delete(r.holds, key)
	h := *current
	return &h, nil
}

// Consume deletes and returns the hold regardless of owner
func (r *MemoryHoldRepository) Consume(ctx context.Context, date, timeSlot string) (*domain.Hold, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := holdKey(date, timeSlot)
	current, ok := r.holds[key]
	if !ok {
		return nil, nil
	}

	delete(r.holds, key)
	h := *current
	return &h, nil
}

// Take deletes the hold only if it still carries holdID
func (r *MemoryHoldRepository) Take(ctx context.Context, date, timeSlot, holdID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := holdKey(date, timeSlot)
	current, ok := r.holds[key]
	if !ok {
		return false, nil
	}

	if current.ID != holdID {
		return false, nil
	}

	delete(r.holds, key)
	return true, nil
}

// ActiveHolds returns all unexpired holds for a date keyed by time slot
func (r *MemoryHoldRepository) ActiveHolds(ctx context.Context, date string) (map[string]*domain.Hold, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	holds := make(map[string]*domain.Hold)

	for key, hold := range r.holds {
		if hold.Date != date {
			continue
		}
		if hold.IsExpiredAt(now) {
			delete(r.holds, key)
			continue
		}
		h := *hold
		holds[h.TimeSlot] = &h
	}

	return holds, nil
}

// Ensure MemoryHoldRepository implements HoldRepository
var _ HoldRepository = (*MemoryHoldRepository)(nil)
