package repository

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/behark/car-wash-premium-migrated-sub002/internal/clock"
	"github.com/behark/car-wash-premium-migrated-sub002/internal/domain"
	pkgredis "github.com/behark/car-wash-premium-migrated-sub002/pkg/redis"
)

//go:embed scripts/acquire_hold.lua
var acquireHoldScript string

//go:embed scripts/release_hold.lua
var releaseHoldScript string

//go:embed scripts/consume_hold.lua
var consumeHoldScript string

//go:embed scripts/take_hold.lua
var takeHoldScript string

// Script names for caching
const (
	scriptAcquireHold = "acquire_hold"
	scriptReleaseHold = "release_hold"
	scriptConsumeHold = "consume_hold"
	scriptTakeHold    = "take_hold"
)

// evictionGrace keeps the key alive slightly past the logical expiry so the
// expiry callback can re-read and delete it deterministically.
const evictionGrace = 10 * time.Second

// storedHold is the Redis value codec: the domain hold plus a numeric
// expiry the Lua scripts can compare against server time.
type storedHold struct {
	domain.Hold
	ExpiresAtUnix int64 `json:"expiresAtUnix"`
}

// RedisHoldRepository implements HoldRepository on Redis with Lua scripts
type RedisHoldRepository struct {
	client *pkgredis.Client
	clock  clock.Clock
}

// NewRedisHoldRepository creates a new RedisHoldRepository
func NewRedisHoldRepository(client *pkgredis.Client, clk clock.Clock) *RedisHoldRepository {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &RedisHoldRepository{client: client, clock: clk}
}

// LoadScripts pre-loads all Lua scripts into Redis
func (r *RedisHoldRepository) LoadScripts(ctx context.Context) error {
	scripts := map[string]string{
		scriptAcquireHold: acquireHoldScript,
		scriptReleaseHold: releaseHoldScript,
		scriptConsumeHold: consumeHoldScript,
		scriptTakeHold:    takeHoldScript,
	}

	for name, script := range scripts {
		if _, err := r.client.LoadScript(ctx, name, script); err != nil {
			return fmt.Errorf("failed to load script %s: %w", name, err)
		}
	}

	return nil
}

// Acquire atomically creates the hold if the key is free
func (r *RedisHoldRepository) Acquire(ctx context.Context, hold *domain.Hold, ttl time.Duration) (*AcquireResult, error) {
	value, err := json.Marshal(storedHold{
		Hold:          *hold,
		ExpiresAtUnix: hold.ExpiresAt.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal hold: %w", err)
	}

	keys := []string{holdKey(hold.Date, hold.TimeSlot), dateIndexKey(hold.Date)}
	args := []interface{}{
		string(value),
		int((ttl + evictionGrace).Seconds()),
		hold.TimeSlot,
	}

	result := r.client.EvalWithFallback(ctx, scriptAcquireHold, acquireHoldScript, keys, args...)
	if result.Err() != nil {
		return nil, fmt.Errorf("failed to execute acquire_hold script: %w", result.Err())
	}

	values, err := result.Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to parse script result: %w", err)
	}
	if len(values) < 4 {
		return nil, fmt.Errorf("unexpected script result length: %d", len(values))
	}

	success, _ := toInt64(values[0])
	if success == 1 {
		return &AcquireResult{Success: true}, nil
	}

	errorCode, _ := values[1].(string)
	res := &AcquireResult{
		Success:      false,
		ErrorCode:    errorCode,
		ErrorMessage: "slot is already held",
	}

	if raw, ok := values[2].(string); ok && raw != "" {
		var stored storedHold
		if err := json.Unmarshal([]byte(raw), &stored); err == nil {
			h := stored.Hold
			res.Holder = &h
		}
	}
	if ttlSec, ok := toInt64(values[3]); ok && ttlSec > 0 {
		res.RetryAfter = time.Duration(ttlSec) * time.Second
	}

	return res, nil
}

// Get returns the active hold for the key, nil when absent or expired
func (r *RedisHoldRepository) Get(ctx context.Context, date, timeSlot string) (*domain.Hold, error) {
	raw, err := r.client.Get(ctx, holdKey(date, timeSlot)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get hold: %w", err)
	}

	var stored storedHold
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal hold: %w", err)
	}

	// A hold inside the eviction grace window is logically gone
	if stored.IsExpiredAt(r.clock.Now()) {
		return nil, nil
	}

	h := stored.Hold
	return &h, nil
}

// Release deletes and returns the hold if owned by connectionID
func (r *RedisHoldRepository) Release(ctx context.Context, date, timeSlot, connectionID string) (*domain.Hold, error) {
	keys := []string{holdKey(date, timeSlot), dateIndexKey(date)}
	args := []interface{}{connectionID, timeSlot}

	result := r.client.EvalWithFallback(ctx, scriptReleaseHold, releaseHoldScript, keys, args...)
	if result.Err() != nil {
		return nil, fmt.Errorf("failed to execute release_hold script: %w", result.Err())
	}

	values, err := result.Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to parse script result: %w", err)
	}
	if len(values) < 3 {
		return nil, fmt.Errorf("unexpected script result length: %d", len(values))
	}

	success, _ := toInt64(values[0])
	if success != 1 {
		return nil, nil
	}

	raw, _ := values[2].(string)
	var stored storedHold
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal released hold: %w", err)
	}

	h := stored.Hold
	return &h, nil
}

// Consume deletes and returns the hold regardless of owner
func (r *RedisHoldRepository) Consume(ctx context.Context, date, timeSlot string) (*domain.Hold, error) {
	keys := []string{holdKey(date, timeSlot), dateIndexKey(date)}
	args := []interface{}{timeSlot}

	result := r.client.EvalWithFallback(ctx, scriptConsumeHold, consumeHoldScript, keys, args...)
	if result.Err() != nil {
		return nil, fmt.Errorf("failed to execute consume_hold script: %w", result.Err())
	}

	values, err := result.Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to parse script result: %w", err)
	}
	if len(values) < 3 {
		return nil, fmt.Errorf("unexpected script result length: %d", len(values))
	}

	success, _ := toInt64(values[0])
	if success != 1 {
		return nil, nil
	}

	raw, _ := values[2].(string)
	var stored storedHold
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal consumed hold: %w", err)
	}

	h := stored.Hold
	return &h, nil
}

// Take deletes the hold only if it still carries holdID
func (r *RedisHoldRepository) Take(ctx context.Context, date, timeSlot, holdID string) (bool, error) {
	keys := []string{holdKey(date, timeSlot), dateIndexKey(date)}
	args := []interface{}{holdID, timeSlot}

	result := r.client.EvalWithFallback(ctx, scriptTakeHold, takeHoldScript, keys, args...)
	if result.Err() != nil {
		return false, fmt.Errorf("failed to execute take_hold script: %w", result.Err())
	}

	values, err := result.Slice()
	if err != nil {
		return false, fmt.Errorf("failed to parse script result: %w", err)
	}
	if len(values) < 1 {
		return false, fmt.Errorf("unexpected script result length: %d", len(values))
	}

	success, _ := toInt64(values[0])
	return success == 1, nil
}

// ActiveHolds returns all unexpired holds for a date keyed by time slot
func (r *RedisHoldRepository) ActiveHolds(ctx context.Context, date string) (map[string]*domain.Hold, error) {
	members, err := r.client.SMembers(ctx, dateIndexKey(date)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read hold index: %w", err)
	}

	holds := make(map[string]*domain.Hold, len(members))
	if len(members) == 0 {
		return holds, nil
	}

	keys := make([]string, len(members))
	for i, slot := range members {
		keys[i] = holdKey(date, slot)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read holds: %w", err)
	}

	now := r.clock.Now()
	var stale []interface{}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// key evicted by TTL; index member is stale
			stale = append(stale, members[i])
			continue
		}

		var stored storedHold
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			stale = append(stale, members[i])
			continue
		}

		if stored.IsExpiredAt(now) {
			continue
		}

		h := stored.Hold
		holds[h.TimeSlot] = &h
	}

	if len(stale) > 0 {
		// best-effort index cleanup
		_ = r.client.SRem(ctx, dateIndexKey(date), stale...).Err()
	}

	return holds, nil
}

// toInt64 converts a script result cell to int64
func toInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	case float64:
		return int64(val), true
	default:
		return 0, false
	}
}

// Ensure RedisHoldRepository implements HoldRepository
var _ HoldRepository = (*RedisHoldRepository)(nil)
