package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/behark/car-wash-premium-migrated-sub002/internal/domain"
)

// PostgresScheduleRepository implements ScheduleRepository against the
// booking subsystem's PostgreSQL database (read-only).
type PostgresScheduleRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresScheduleRepository creates a new PostgresScheduleRepository
func NewPostgresScheduleRepository(pool *pgxpool.Pool) *PostgresScheduleRepository {
	return &PostgresScheduleRepository{pool: pool}
}

// CountActiveBookings counts bookings occupying a slot
func (r *PostgresScheduleRepository) CountActiveBookings(ctx context.Context, date, timeSlot string, serviceID int) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM bookings
		WHERE booking_date = $1
		  AND time_slot = $2
		  AND status IN ('confirmed', 'pending', 'in_progress')`
	args := []interface{}{date, timeSlot}

	if serviceID > 0 {
		query += ` AND service_id = $3`
		args = append(args, serviceID)
	}

	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active bookings: %w", err)
	}

	return count, nil
}

// GetBusinessHours returns the open window for a weekday
func (r *PostgresScheduleRepository) GetBusinessHours(ctx context.Context, weekday time.Weekday) (*domain.BusinessHours, error) {
	query := `
		SELECT day_of_week, is_open,
		       to_char(start_time, 'HH24:MI'),
		       to_char(end_time, 'HH24:MI'),
		       COALESCE(to_char(break_start, 'HH24:MI'), ''),
		       COALESCE(to_char(break_end, 'HH24:MI'), '')
		FROM business_hours
		WHERE day_of_week = $1`

	var hours domain.BusinessHours
	var day int
	err := r.pool.QueryRow(ctx, query, int(weekday)).Scan(
		&day,
		&hours.IsOpen,
		&hours.StartTime,
		&hours.EndTime,
		&hours.BreakStart,
		&hours.BreakEnd,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get business hours: %w", err)
	}

	hours.Weekday = time.Weekday(day)
	return &hours, nil
}

// GetHoliday returns the holiday for a date
func (r *PostgresScheduleRepository) GetHoliday(ctx context.Context, date string) (*domain.Holiday, error) {
	query := `
		SELECT to_char(holiday_date, 'YYYY-MM-DD'), name
		FROM holidays
		WHERE holiday_date = $1`

	var holiday domain.Holiday
	err := r.pool.QueryRow(ctx, query, date).Scan(&holiday.Date, &holiday.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get holiday: %w", err)
	}

	return &holiday, nil
}

// Ensure PostgresScheduleRepository implements ScheduleRepository
var _ ScheduleRepository = (*PostgresScheduleRepository)(nil)
