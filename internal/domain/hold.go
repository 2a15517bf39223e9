package domain

import (
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// TimeLayout is the wire format for slot start times.
const TimeLayout = "15:04"

// Hold is a short-lived exclusive claim on one unit of a slot's capacity.
// At most one unexpired hold may exist per (date, timeSlot) key; the hold
// store's conditional write is the authority for that exclusivity.
type Hold struct {
	ID           string    `json:"holdId"`
	ConnectionID string    `json:"connectionId"`
	Date         string    `json:"date"`
	TimeSlot     string    `json:"timeSlot"`
	ServiceID    int       `json:"serviceId"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Validate checks the hold fields
func (h *Hold) Validate() error {
	if strings.TrimSpace(h.ID) == "" {
		return ErrHoldNotFound
	}
	if _, err := time.Parse(DateLayout, h.Date); err != nil {
		return ErrInvalidDate
	}
	if _, err := time.Parse(TimeLayout, h.TimeSlot); err != nil {
		return ErrInvalidTimeSlot
	}
	if h.ServiceID < 0 {
		return ErrInvalidServiceID
	}
	return nil
}

// IsExpiredAt checks if the hold is expired at a specific time
func (h *Hold) IsExpiredAt(t time.Time) bool {
	return !t.Before(h.ExpiresAt)
}

// OwnedBy checks if the hold belongs to the given connection
func (h *Hold) OwnedBy(connectionID string) bool {
	return h.ConnectionID == connectionID
}

// TimeUntilExpiry returns the duration until the hold expires, relative to now
func (h *Hold) TimeUntilExpiry(now time.Time) time.Duration {
	return h.ExpiresAt.Sub(now)
}
