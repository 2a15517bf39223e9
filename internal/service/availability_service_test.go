package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/behark/car-wash-premium-migrated-sub002/internal/clock"
	"github.com/behark/car-wash-premium-migrated-sub002/internal/domain"
	"github.com/behark/car-wash-premium-migrated-sub002/internal/repository"
	"github.com/behark/car-wash-premium-migrated-sub002/pkg/config"
)

const testDate = "2025-06-10" // a Tuesday

func testBookingConfig() config.BookingConfig {
	return config.BookingConfig{
		SlotGranularity: 30 * time.Minute,
		SlotCapacity:    2,
		HoldTTL:         5 * time.Minute,
		StoreTimeout:    time.Second,
	}
}

func openAllDay(schedule *repository.MemoryScheduleRepository) {
	schedule.SetBusinessHours(&domain.BusinessHours{
		Weekday:   time.Tuesday,
		IsOpen:    true,
		StartTime: "08:00",
		EndTime:   "18:00",
	})
}

func newTestClock() *clock.Fixed {
	return clock.NewFixed(time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC))
}

func TestAvailabilityService_FullGrid(t *testing.T) {
	ctx := context.Background()
	clk := newTestClock()
	schedule := repository.NewMemoryScheduleRepository()
	holds := repository.NewMemoryHoldRepository(clk)
	openAllDay(schedule)

	svc := NewAvailabilityService(schedule, holds, testBookingConfig(), time.UTC, clk)

	availability, err := svc.Calculate(ctx, testDate, 0)
	require.NoError(t, err)

	// 08:00 to 18:00 at 30 minutes is 20 slots
	require.Len(t, availability.TimeSlots, 20)
	assert.Equal(t, "08:00", availability.TimeSlots[0].StartTime)
	assert.Equal(t, "08:30", availability.TimeSlots[0].EndTime)
	assert.Equal(t, "17:30", availability.TimeSlots[19].StartTime)
	assert.Equal(t, "18:00", availability.TimeSlots[19].EndTime)

	for _, slot := range availability.TimeSlots {
		assert.True(t, slot.IsAvailable)
		assert.Equal(t, 2, slot.MaxCapacity)
		assert.Equal(t, 2, slot.AvailableCapacity)
		assert.Empty(t, slot.Conflicts)
	}

	assert.Equal(t, domain.Summary{TotalSlots: 20, AvailableSlots: 20}, availability.Summary)
}

func TestAvailabilityService_CapacityTransitions(t *testing.T) {
	ctx := context.Background()
	clk := newTestClock()
	schedule := repository.NewMemoryScheduleRepository()
	holds := repository.NewMemoryHoldRepository(clk)
	openAllDay(schedule)

	svc := NewAvailabilityService(schedule, holds, testBookingConfig(), time.UTC, clk)

	// One active hold on 10:00 drops available capacity to 1
	hold := &domain.Hold{
		ID:           "hold-1",
		ConnectionID: "conn-a",
		Date:         testDate,
		TimeSlot:     "10:00",
		CreatedAt:    clk.Now(),
		ExpiresAt:    clk.Now().Add(5 * time.Minute),
	}
	res, err := holds.Acquire(ctx, hold, 5*time.Minute)
	require.NoError(t, err)
	require.True(t, res.Success)

	availability, err := svc.Calculate(ctx, testDate, 0)
	require.NoError(t, err)

	slot := availability.Slot("10:00")
	require.NotNil(t, slot)
	assert.Equal(t, 1, slot.AvailableCapacity)
	assert.True(t, slot.IsAvailable)
	assert.True(t, slot.HasConflict(domain.ConflictActiveHold))

	// A confirmed booking on top of the hold exhausts the slot
	schedule.SetBookingCount(testDate, "10:00", 0, 1)

	availability, err = svc.Calculate(ctx, testDate, 0)
	require.NoError(t, err)

	slot = availability.Slot("10:00")
	require.NotNil(t, slot)
	assert.Equal(t, 1, slot.CurrentBookings)
	assert.Equal(t, 0, slot.AvailableCapacity)
	assert.False(t, slot.IsAvailable)

	// Neighboring slots are untouched
	neighbor := availability.Slot("10:30")
	require.NotNil(t, neighbor)
	assert.Equal(t, 2, neighbor.AvailableCapacity)
	assert.True(t, neighbor.IsAvailable)
}

func TestAvailabilityService_SummaryCountsUnavailableSlots(t *testing.T) {
	ctx := context.Background()
	clk := newTestClock()
	schedule := repository.NewMemoryScheduleRepository()
	holds := repository.NewMemoryHoldRepository(clk)
	openAllDay(schedule)

	// One booking plus one hold exhaust 10:00 without the booking count
	// alone reaching capacity; the summary still counts it as fully
	// booked so the two buckets add up to the total.
	schedule.SetBookingCount(testDate, "10:00", 0, 1)
	hold := &domain.Hold{
		ID:           "hold-1",
		ConnectionID: "conn-a",
		Date:         testDate,
		TimeSlot:     "10:00",
		CreatedAt:    clk.Now(),
		ExpiresAt:    clk.Now().Add(5 * time.Minute),
	}
	res, err := holds.Acquire(ctx, hold, 5*time.Minute)
	require.NoError(t, err)
	require.True(t, res.Success)

	svc := NewAvailabilityService(schedule, holds, testBookingConfig(), time.UTC, clk)

	availability, err := svc.Calculate(ctx, testDate, 0)
	require.NoError(t, err)

	slot := availability.Slot("10:00")
	require.NotNil(t, slot)
	assert.False(t, slot.IsAvailable)
	assert.Equal(t, 1, slot.CurrentBookings)

	assert.Equal(t, domain.Summary{TotalSlots: 20, AvailableSlots: 19, FullyBookedSlots: 1}, availability.Summary)
}

func TestAvailabilityService_FullyBooked(t *testing.T) {
	ctx := context.Background()
	clk := newTestClock()
	schedule := repository.NewMemoryScheduleRepository()
	holds := repository.NewMemoryHoldRepository(clk)
	openAllDay(schedule)
	schedule.SetBookingCount(testDate, "09:00", 0, 2)

	svc := NewAvailabilityService(schedule, holds, testBookingConfig(), time.UTC, clk)

	availability, err := svc.Calculate(ctx, testDate, 0)
	require.NoError(t, err)

	slot := availability.Slot("09:00")
	require.NotNil(t, slot)
	assert.False(t, slot.IsAvailable)
	assert.Equal(t, 0, slot.AvailableCapacity)
	assert.True(t, slot.HasConflict(domain.ConflictFullyBooked))
	assert.Equal(t, 1, availability.Summary.FullyBookedSlots)
	assert.Equal(t, 19, availability.Summary.AvailableSlots)
}

func TestAvailabilityService_BookingsClampedToCapacity(t *testing.T) {
	ctx := context.Background()
	clk := newTestClock()
	schedule := repository.NewMemoryScheduleRepository()
	holds := repository.NewMemoryHoldRepository(clk)
	openAllDay(schedule)
	schedule.SetBookingCount(testDate, "09:00", 0, 5)

	svc := NewAvailabilityService(schedule, holds, testBookingConfig(), time.UTC, clk)

	availability, err := svc.Calculate(ctx, testDate, 0)
	require.NoError(t, err)

	slot := availability.Slot("09:00")
	require.NotNil(t, slot)
	assert.Equal(t, 2, slot.CurrentBookings)
	assert.Equal(t, 0, slot.AvailableCapacity)
}

func TestAvailabilityService_BreakWindowSkipped(t *testing.T) {
	ctx := context.Background()
	clk := newTestClock()
	schedule := repository.NewMemoryScheduleRepository()
	holds := repository.NewMemoryHoldRepository(clk)
	schedule.SetBusinessHours(&domain.BusinessHours{
		Weekday:    time.Tuesday,
		IsOpen:     true,
		StartTime:  "08:00",
		EndTime:    "18:00",
		BreakStart: "12:00",
		BreakEnd:   "13:00",
	})

	svc := NewAvailabilityService(schedule, holds, testBookingConfig(), time.UTC, clk)

	availability, err := svc.Calculate(ctx, testDate, 0)
	require.NoError(t, err)

	require.Len(t, availability.TimeSlots, 18)
	assert.Nil(t, availability.Slot("12:00"))
	assert.Nil(t, availability.Slot("12:30"))
	assert.NotNil(t, availability.Slot("11:30"))
	assert.NotNil(t, availability.Slot("13:00"))
}

func TestAvailabilityService_Holiday(t *testing.T) {
	ctx := context.Background()
	clk := newTestClock()
	schedule := repository.NewMemoryScheduleRepository()
	holds := repository.NewMemoryHoldRepository(clk)
	openAllDay(schedule)
	schedule.SetHoliday(&domain.Holiday{Date: testDate, Name: "Maintenance day"})

	svc := NewAvailabilityService(schedule, holds, testBookingConfig(), time.UTC, clk)

	availability, err := svc.Calculate(ctx, testDate, 0)
	require.NoError(t, err)

	require.Len(t, availability.TimeSlots, 20)
	for _, slot := range availability.TimeSlots {
		assert.False(t, slot.IsAvailable)
		assert.True(t, slot.HasConflict(domain.ConflictHoliday))
	}
	assert.Equal(t, 0, availability.Summary.AvailableSlots)
	assert.Equal(t, 20, availability.Summary.FullyBookedSlots)
}

func TestAvailabilityService_ClosedDay(t *testing.T) {
	ctx := context.Background()
	clk := newTestClock()
	schedule := repository.NewMemoryScheduleRepository()
	holds := repository.NewMemoryHoldRepository(clk)
	schedule.SetBusinessHours(&domain.BusinessHours{Weekday: time.Tuesday, IsOpen: false})

	svc := NewAvailabilityService(schedule, holds, testBookingConfig(), time.UTC, clk)

	availability, err := svc.Calculate(ctx, testDate, 0)
	require.NoError(t, err)
	assert.Empty(t, availability.TimeSlots)
	assert.Equal(t, domain.Summary{}, availability.Summary)
}

func TestAvailabilityService_InputErrors(t *testing.T) {
	ctx := context.Background()
	clk := newTestClock()
	schedule := repository.NewMemoryScheduleRepository()
	holds := repository.NewMemoryHoldRepository(clk)
	openAllDay(schedule)

	svc := NewAvailabilityService(schedule, holds, testBookingConfig(), time.UTC, clk)

	_, err := svc.Calculate(ctx, "June 10", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidDate)

	_, err = svc.Calculate(ctx, "2025-06-09", 0)
	assert.ErrorIs(t, err, domain.ErrPastDate)

	_, err = svc.Calculate(ctx, testDate, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidServiceID)
}

// failingHoldRepo simulates an unreachable hold store
type failingHoldRepo struct {
	repository.HoldRepository
}

func (f *failingHoldRepo) ActiveHolds(ctx context.Context, date string) (map[string]*domain.Hold, error) {
	return nil, errors.New("connection refused")
}

func TestAvailabilityService_StoreUnavailableDegrades(t *testing.T) {
	ctx := context.Background()
	clk := newTestClock()
	schedule := repository.NewMemoryScheduleRepository()
	openAllDay(schedule)

	holds := &failingHoldRepo{HoldRepository: repository.NewMemoryHoldRepository(clk)}
	svc := NewAvailabilityService(schedule, holds, testBookingConfig(), time.UTC, clk)

	availability, err := svc.Calculate(ctx, testDate, 0)
	require.NoError(t, err, "snapshot must degrade, not fail")

	require.Len(t, availability.TimeSlots, 20)
	for _, slot := range availability.TimeSlots {
		assert.False(t, slot.IsAvailable)
		assert.True(t, slot.HasConflict(domain.ConflictStoreUnavailable))
	}
}
