package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/behark/car-wash-premium-migrated-sub002/internal/clock"
	"github.com/behark/car-wash-premium-migrated-sub002/internal/domain"
	"github.com/behark/car-wash-premium-migrated-sub002/internal/metrics"
	"github.com/behark/car-wash-premium-migrated-sub002/internal/repository"
	"github.com/behark/car-wash-premium-migrated-sub002/pkg/config"
	"github.com/behark/car-wash-premium-migrated-sub002/pkg/logger"
)

// Calculator computes a day's availability snapshot.
type Calculator interface {
	Calculate(ctx context.Context, date string, serviceID int) (*domain.Availability, error)
}

// AvailabilityService derives per-slot availability from three inputs:
// confirmed bookings, the business schedule and the live hold store.
// Snapshots are computed on demand and never cached; every read reflects
// the stores at the time of the call.
type AvailabilityService struct {
	schedule repository.ScheduleRepository
	holds    repository.HoldRepository
	cfg      config.BookingConfig
	location *time.Location
	clock    clock.Clock
	log      *logger.Logger
}

// NewAvailabilityService creates a new AvailabilityService
func NewAvailabilityService(
	schedule repository.ScheduleRepository,
	holds repository.HoldRepository,
	cfg config.BookingConfig,
	location *time.Location,
	clk clock.Clock,
) *AvailabilityService {
	if location == nil {
		location = time.UTC
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &AvailabilityService{
		schedule: schedule,
		holds:    holds,
		cfg:      cfg,
		location: location,
		clock:    clk,
		log:      logger.Get().With(zap.String("component", "availability_service")),
	}
}

// Calculate builds the availability snapshot for a date. Slots are ordered
// by start time. ServiceID 0 means all services.
func (s *AvailabilityService) Calculate(ctx context.Context, date string, serviceID int) (*domain.Availability, error) {
	started := time.Now()
	defer func() {
		metrics.AvailabilityComputeDuration.Record(ctx, time.Since(started).Seconds())
	}()

	day, err := time.ParseInLocation(domain.DateLayout, date, s.location)
	if err != nil {
		return nil, domain.ErrInvalidDate
	}
	if serviceID < 0 {
		return nil, domain.ErrInvalidServiceID
	}

	today := s.clock.Now().In(s.location)
	todayStart := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, s.location)
	if day.Before(todayStart) {
		return nil, domain.ErrPastDate
	}

	availability := &domain.Availability{
		Date:      date,
		ServiceID: serviceID,
		TimeSlots: []domain.TimeSlot{},
	}

	hours, err := s.schedule.GetBusinessHours(ctx, day.Weekday())
	if err != nil {
		return nil, fmt.Errorf("failed to load business hours: %w", err)
	}
	if hours == nil || !hours.IsOpen {
		return availability, nil
	}

	holiday, err := s.schedule.GetHoliday(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load holidays: %w", err)
	}

	grid, err := s.buildGrid(hours)
	if err != nil {
		return nil, err
	}

	// One round trip for all of the day's holds. When the hold store is
	// unreachable, slots degrade to unavailable instead of failing the
	// whole snapshot.
	var storeDown bool
	activeHolds, err := s.holds.ActiveHolds(ctx, date)
	if err != nil {
		s.log.Warn("hold store unreachable, degrading availability",
			zap.String("date", date),
			zap.Error(err),
		)
		storeDown = true
	}

	now := s.clock.Now()
	for _, window := range grid {
		slot := domain.TimeSlot{
			StartTime:   window.start,
			EndTime:     window.end,
			MaxCapacity: s.cfg.SlotCapacity,
			Conflicts:   []domain.Conflict{},
		}

		bookings, err := s.schedule.CountActiveBookings(ctx, date, window.start, serviceID)
		if err != nil {
			return nil, fmt.Errorf("failed to count bookings for %s %s: %w", date, window.start, err)
		}
		if bookings > s.cfg.SlotCapacity {
			bookings = s.cfg.SlotCapacity
		}
		slot.CurrentBookings = bookings

		heldUnits := 0
		if !storeDown {
			if hold, ok := activeHolds[window.start]; ok && !hold.IsExpiredAt(now) {
				heldUnits = 1
				slot.Conflicts = append(slot.Conflicts, domain.Conflict{
					Type:    domain.ConflictActiveHold,
					Message: "slot has an active booking hold",
				})
			}
		}

		slot.AvailableCapacity = s.cfg.SlotCapacity - bookings - heldUnits
		if slot.AvailableCapacity < 0 {
			slot.AvailableCapacity = 0
		}

		if bookings >= s.cfg.SlotCapacity {
			slot.Conflicts = append(slot.Conflicts, domain.Conflict{
				Type:    domain.ConflictFullyBooked,
				Message: "slot is fully booked",
			})
		}

		if holiday != nil {
			slot.Conflicts = append(slot.Conflicts, domain.Conflict{
				Type:    domain.ConflictHoliday,
				Message: holiday.Name,
			})
		}

		if storeDown {
			slot.Conflicts = append(slot.Conflicts, domain.Conflict{
				Type:    domain.ConflictStoreUnavailable,
				Message: "hold store unavailable",
			})
		}

		slot.IsAvailable = slot.AvailableCapacity > 0 && holiday == nil && !storeDown

		availability.TimeSlots = append(availability.TimeSlots, slot)
	}

	availability.Summary = summarize(availability.TimeSlots)
	return availability, nil
}

// slotWindow is a generated grid entry
type slotWindow struct {
	start string
	end   string
}

// buildGrid expands business hours into slot windows at the configured
// granularity, skipping the break window.
func (s *AvailabilityService) buildGrid(hours *domain.BusinessHours) ([]slotWindow, error) {
	dayStart, err := time.Parse(domain.TimeLayout, hours.StartTime)
	if err != nil {
		return nil, fmt.Errorf("invalid business hours start %q: %w", hours.StartTime, err)
	}
	dayEnd, err := time.Parse(domain.TimeLayout, hours.EndTime)
	if err != nil {
		return nil, fmt.Errorf("invalid business hours end %q: %w", hours.EndTime, err)
	}

	var breakStart, breakEnd time.Time
	if hours.HasBreak() {
		breakStart, err = time.Parse(domain.TimeLayout, hours.BreakStart)
		if err != nil {
			return nil, fmt.Errorf("invalid break start %q: %w", hours.BreakStart, err)
		}
		breakEnd, err = time.Parse(domain.TimeLayout, hours.BreakEnd)
		if err != nil {
			return nil, fmt.Errorf("invalid break end %q: %w", hours.BreakEnd, err)
		}
	}

	var grid []slotWindow
	for cur := dayStart; !cur.Add(s.cfg.SlotGranularity).After(dayEnd); cur = cur.Add(s.cfg.SlotGranularity) {
		end := cur.Add(s.cfg.SlotGranularity)

		// Slots overlapping the break window are not offered
		if hours.HasBreak() && cur.Before(breakEnd) && end.After(breakStart) {
			continue
		}

		grid = append(grid, slotWindow{
			start: cur.Format(domain.TimeLayout),
			end:   end.Format(domain.TimeLayout),
		})
	}

	return grid, nil
}

// summarize partitions the grid: every slot is either available or
// fully booked, so the two counts always add up to the total.
func summarize(slots []domain.TimeSlot) domain.Summary {
	summary := domain.Summary{TotalSlots: len(slots)}
	for i := range slots {
		if slots[i].IsAvailable {
			summary.AvailableSlots++
		} else {
			summary.FullyBookedSlots++
		}
	}
	return summary
}

// Ensure AvailabilityService implements Calculator
var _ Calculator = (*AvailabilityService)(nil)
