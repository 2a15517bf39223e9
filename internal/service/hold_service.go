package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/behark/car-wash-premium-migrated-sub002/internal/clock"
	"github.com/behark/car-wash-premium-migrated-sub002/internal/domain"
	"github.com/behark/car-wash-premium-migrated-sub002/internal/metrics"
	"github.com/behark/car-wash-premium-migrated-sub002/internal/repository"
	"github.com/behark/car-wash-premium-migrated-sub002/pkg/config"
	"github.com/behark/car-wash-premium-migrated-sub002/pkg/logger"
	"github.com/behark/car-wash-premium-migrated-sub002/pkg/telemetry"
)

// Notifier pushes hold lifecycle events and refreshed snapshots out to
// subscribed connections. Implemented by the hub broadcaster.
type Notifier interface {
	// NotifyDate recomputes and pushes the date's snapshot to subscribers
	NotifyDate(date string)
	// NotifyHoldExpired tells the owner its hold lapsed
	NotifyHoldExpired(hold *domain.Hold)
	// NotifyHoldReleased tells the owner its hold was released
	NotifyHoldReleased(hold *domain.Hold)
}

// ConflictError reports why a hold attempt was rejected. The transport
// layer maps it to a booking_conflict message.
type ConflictError struct {
	TimeSlot  string
	Conflicts []domain.Conflict
	// RetryAfter is the remaining lifetime of a competing hold, zero
	// when the conflict is not hold related
	RetryAfter time.Duration
}

func (e *ConflictError) Error() string {
	if len(e.Conflicts) > 0 {
		return fmt.Sprintf("slot %s unavailable: %s", e.TimeSlot, e.Conflicts[0].Type)
	}
	return fmt.Sprintf("slot %s unavailable", e.TimeSlot)
}

// HoldService owns the hold lifecycle: create, release, consume, expire.
// The store's conditional write is the only authority for exclusivity;
// the availability pre-check merely produces richer conflict messages.
type HoldService struct {
	holds        repository.HoldRepository
	availability Calculator
	scheduler    *ExpiryScheduler
	notifier     Notifier
	cfg          config.BookingConfig
	clock        clock.Clock
	log          *logger.Logger
}

// NewHoldService creates a new HoldService
func NewHoldService(
	holds repository.HoldRepository,
	availability Calculator,
	scheduler *ExpiryScheduler,
	notifier Notifier,
	cfg config.BookingConfig,
	clk clock.Clock,
) *HoldService {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &HoldService{
		holds:        holds,
		availability: availability,
		scheduler:    scheduler,
		notifier:     notifier,
		cfg:          cfg,
		clock:        clk,
		log:          logger.Get().With(zap.String("component", "hold_service")),
	}
}

// CreateHold attempts to place an exclusive hold on a slot for connectionID.
// On contention it returns a *ConflictError carrying the reasons.
func (s *HoldService) CreateHold(ctx context.Context, connectionID, date, timeSlot string, serviceID int) (*domain.Hold, error) {
	ctx, span := telemetry.StartSpan(ctx, "HoldService.CreateHold")
	defer span.End()

	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return nil, domain.ErrInvalidDate
	}
	if _, err := time.Parse(domain.TimeLayout, timeSlot); err != nil {
		return nil, domain.ErrInvalidTimeSlot
	}
	if serviceID < 0 {
		return nil, domain.ErrInvalidServiceID
	}

	snapshot, err := s.availability.Calculate(ctx, date, serviceID)
	if err != nil {
		return nil, err
	}

	slot := snapshot.Slot(timeSlot)
	if slot == nil {
		return nil, domain.ErrSlotNotFound
	}

	// Pre-check for richer conflict reporting. Races slip through here;
	// the store's conditional write below is what actually decides.
	if !slot.IsAvailable {
		return nil, &ConflictError{TimeSlot: timeSlot, Conflicts: slot.Conflicts}
	}

	now := s.clock.Now()
	hold := &domain.Hold{
		ID:           uuid.New().String(),
		ConnectionID: connectionID,
		Date:         date,
		TimeSlot:     timeSlot,
		ServiceID:    serviceID,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.cfg.HoldTTL),
	}

	result, err := s.holds.Acquire(ctx, hold, s.cfg.HoldTTL)
	if err != nil {
		telemetry.SetSpanError(ctx, err)
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	if !result.Success {
		return nil, &ConflictError{
			TimeSlot: timeSlot,
			Conflicts: []domain.Conflict{{
				Type:    domain.ConflictActiveHold,
				Message: "slot has an active booking hold",
			}},
			RetryAfter: result.RetryAfter,
		}
	}

	s.scheduleExpiry(hold)
	metrics.HoldsCreated.Inc(ctx)

	s.log.Info("hold created",
		zap.String("hold_id", hold.ID),
		zap.String("connection_id", connectionID),
		zap.String("date", date),
		zap.String("time_slot", timeSlot),
	)

	if s.notifier != nil {
		s.notifier.NotifyDate(date)
	}

	return hold, nil
}

// ReleaseHold removes the connection's own hold from a slot. A hold owned
// by another connection is left untouched and the call succeeds without
// revealing the owner, so strangers cannot probe who holds a slot.
func (s *HoldService) ReleaseHold(ctx context.Context, connectionID, date, timeSlot string) error {
	ctx, span := telemetry.StartSpan(ctx, "HoldService.ReleaseHold")
	defer span.End()

	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return domain.ErrInvalidDate
	}
	if _, err := time.Parse(domain.TimeLayout, timeSlot); err != nil {
		return domain.ErrInvalidTimeSlot
	}

	hold, err := s.holds.Release(ctx, date, timeSlot, connectionID)
	if err != nil {
		telemetry.SetSpanError(ctx, err)
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	if hold == nil {
		current, err := s.holds.Get(ctx, date, timeSlot)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}
		if current == nil {
			return domain.ErrHoldNotFound
		}
		// Someone else's hold: quiet no-op
		return nil
	}

	s.scheduler.Cancel(hold.ID)
	metrics.HoldsReleased.Inc(ctx)

	s.log.Info("hold released",
		zap.String("hold_id", hold.ID),
		zap.String("connection_id", connectionID),
		zap.String("date", date),
		zap.String("time_slot", timeSlot),
	)

	if s.notifier != nil {
		s.notifier.NotifyHoldReleased(hold)
		s.notifier.NotifyDate(date)
	}

	return nil
}

// ConsumeHold converts a hold into booked capacity after a booking
// confirmation. Missing holds are fine; the confirmation may arrive after
// the hold already expired.
func (s *HoldService) ConsumeHold(ctx context.Context, date, timeSlot string) (*domain.Hold, error) {
	ctx, span := telemetry.StartSpan(ctx, "HoldService.ConsumeHold")
	defer span.End()

	hold, err := s.holds.Consume(ctx, date, timeSlot)
	if err != nil {
		telemetry.SetSpanError(ctx, err)
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	if hold != nil {
		s.scheduler.Cancel(hold.ID)
		metrics.HoldsConsumed.Inc(ctx)
		s.log.Info("hold consumed",
			zap.String("hold_id", hold.ID),
			zap.String("date", date),
			zap.String("time_slot", timeSlot),
		)
	}

	if s.notifier != nil {
		s.notifier.NotifyDate(date)
	}

	return hold, nil
}

// RestoreHold re-arms the expiry timer for a hold found in the store
// without one, typically after a process restart.
func (s *HoldService) RestoreHold(hold *domain.Hold) {
	if s.scheduler.Scheduled(hold.ID) {
		return
	}
	s.scheduleExpiry(hold)
	s.log.Info("hold expiry timer restored",
		zap.String("hold_id", hold.ID),
		zap.String("date", hold.Date),
		zap.String("time_slot", hold.TimeSlot),
	)
}

// HasTimer reports whether an expiry timer is armed for the hold id
func (s *HoldService) HasTimer(holdID string) bool {
	return s.scheduler.Scheduled(holdID)
}

func (s *HoldService) scheduleExpiry(hold *domain.Hold) {
	delay := hold.ExpiresAt.Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}
	h := *hold
	s.scheduler.Schedule(hold.ID, delay, func() {
		s.expire(&h)
	})
}

// expire runs on the timer goroutine when a hold's TTL lapses
func (s *HoldService) expire(hold *domain.Hold) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.StoreTimeout)
	defer cancel()

	// Id-matched delete: a successor hold on the same slot must survive
	// a stale timer firing.
	taken, err := s.holds.Take(ctx, hold.Date, hold.TimeSlot, hold.ID)
	if err != nil {
		s.log.Error("failed to expire hold",
			zap.String("hold_id", hold.ID),
			zap.Error(err),
		)
		return
	}

	if !taken {
		return
	}

	metrics.HoldsExpired.Inc(ctx)

	s.log.Info("hold expired",
		zap.String("hold_id", hold.ID),
		zap.String("date", hold.Date),
		zap.String("time_slot", hold.TimeSlot),
	)

	if s.notifier != nil {
		s.notifier.NotifyHoldExpired(hold)
		s.notifier.NotifyDate(hold.Date)
	}
}
