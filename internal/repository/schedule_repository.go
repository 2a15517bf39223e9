package repository

import (
	"context"
	"time"

	"github.com/behark/car-wash-premium-migrated-sub002/internal/domain"
)

// ScheduleRepository reads the booking subsystem's data this service needs:
// confirmed booking counts, business hours and holidays. The data is owned
// by the booking subsystem; this service never writes it.
type ScheduleRepository interface {
	// CountActiveBookings counts confirmed/pending/in-progress bookings
	// for a slot, optionally filtered by service (serviceID 0 = all)
	CountActiveBookings(ctx context.Context, date, timeSlot string, serviceID int) (int, error)

	// GetBusinessHours returns the open window for a weekday, nil when
	// no hours are configured for that day
	GetBusinessHours(ctx context.Context, weekday time.Weekday) (*domain.BusinessHours, error)

	// GetHoliday returns the holiday for a date, nil when the date is
	// a regular business day
	GetHoliday(ctx context.Context, date string) (*domain.Holiday, error)
}
