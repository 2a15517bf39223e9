package repository

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/behark/car-wash-premium-migrated-sub002/internal/domain"
)

// MemoryScheduleRepository is an in-memory ScheduleRepository for tests
// and local development.
type MemoryScheduleRepository struct {
	mu       sync.RWMutex
	hours    map[time.Weekday]*domain.BusinessHours
	holidays map[string]*domain.Holiday
	bookings map[string]int // "date|timeSlot|serviceID" -> count
}

// NewMemoryScheduleRepository creates a new MemoryScheduleRepository
func NewMemoryScheduleRepository() *MemoryScheduleRepository {
	return &MemoryScheduleRepository{
		hours:    make(map[time.Weekday]*domain.BusinessHours),
		holidays: make(map[string]*domain.Holiday),
		bookings: make(map[string]int),
	}
}

// SetBusinessHours configures the open window for a weekday
func (r *MemoryScheduleRepository) SetBusinessHours(hours *domain.BusinessHours) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hours[hours.Weekday] = hours
}

// SetHoliday registers a closed date
func (r *MemoryScheduleRepository) SetHoliday(holiday *domain.Holiday) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.holidays[holiday.Date] = holiday
}

// SetBookingCount sets the active booking count for a slot
func (r *MemoryScheduleRepository) SetBookingCount(date, timeSlot string, serviceID, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings[bookingCountKey(date, timeSlot, serviceID)] = count
}

// CountActiveBookings counts bookings occupying a slot
func (r *MemoryScheduleRepository) CountActiveBookings(ctx context.Context, date, timeSlot string, serviceID int) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bookings[bookingCountKey(date, timeSlot, serviceID)], nil
}

// GetBusinessHours returns the open window for a weekday
func (r *MemoryScheduleRepository) GetBusinessHours(ctx context.Context, weekday time.Weekday) (*domain.BusinessHours, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hours, ok := r.hours[weekday]
	if !ok {
		return nil, nil
	}
	h := *hours
	return &h, nil
}

// GetHoliday returns the holiday for a date
func (r *MemoryScheduleRepository) GetHoliday(ctx context.Context, date string) (*domain.Holiday, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	holiday, ok := r.holidays[date]
	if !ok {
		return nil, nil
	}
	h := *holiday
	return &h, nil
}

func bookingCountKey(date, timeSlot string, serviceID int) string {
	return date + "|" + timeSlot + "|" + strconv.Itoa(serviceID)
}

// Ensure MemoryScheduleRepository implements ScheduleRepository
var _ ScheduleRepository = (*MemoryScheduleRepository)(nil)
