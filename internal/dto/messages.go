package dto

import (
	"encoding/json"

	"github.com/behark/car-wash-premium-migrated-sub002/internal/domain"
)

// Inbound message types
const (
	ActionSubscribe      = "subscribe_availability"
	ActionUnsubscribe    = "unsubscribe_availability"
	ActionAttemptBooking = "attempt_booking"
	ActionReleaseHold    = "release_hold"
)

// Outbound message types
const (
	TypeAvailabilityUpdate = "availability_update"
	TypeHoldCreated        = "booking_hold_created"
	TypeHoldExpired        = "booking_hold_expired"
	TypeHoldReleased       = "booking_hold_released"
	TypeBookingConflict    = "booking_conflict"
	TypeBookingError       = "booking_error"
	TypeRateLimited        = "rate_limited"
)

// Inbound is the envelope for client messages
type Inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SubscribeRequest subscribes the connection to a date's availability
type SubscribeRequest struct {
	Date      string `json:"date"`
	ServiceID int    `json:"serviceId,omitempty"`
}

// UnsubscribeRequest removes the connection's subscription for a date
type UnsubscribeRequest struct {
	Date string `json:"date"`
}

// AttemptBookingRequest asks for a hold on a slot
type AttemptBookingRequest struct {
	Date      string `json:"date"`
	TimeSlot  string `json:"timeSlot"`
	ServiceID int    `json:"serviceId"`
}

// ReleaseHoldRequest releases the connection's hold on a slot
type ReleaseHoldRequest struct {
	Date     string `json:"date"`
	TimeSlot string `json:"timeSlot"`
}

// Outbound is the envelope for server messages
type Outbound struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// HoldCreated confirms a successful hold
type HoldCreated struct {
	HoldID    string `json:"holdId"`
	ExpiresAt string `json:"expiresAt"` // ISO8601
	TimeSlot  string `json:"timeSlot"`
	Date      string `json:"date"`
}

// HoldExpired notifies that a hold lapsed without being confirmed
type HoldExpired struct {
	HoldID   string `json:"holdId"`
	TimeSlot string `json:"timeSlot"`
	Date     string `json:"date"`
}

// HoldReleased notifies that a hold was explicitly released
type HoldReleased struct {
	TimeSlot string `json:"timeSlot"`
	Date     string `json:"date"`
}

// BookingConflict reports why a hold attempt was rejected
type BookingConflict struct {
	TimeSlot  string            `json:"timeSlot"`
	Conflicts []domain.Conflict `json:"conflicts"`
}

// BookingError reports a client input or processing error
type BookingError struct {
	Message string `json:"message"`
}

// RateLimited reports a rejected request inside a cooldown window
type RateLimited struct {
	Action  string `json:"action"`
	Message string `json:"message"`
}

// NewAvailabilityUpdate wraps an availability snapshot in the outbound envelope
func NewAvailabilityUpdate(a *domain.Availability) Outbound {
	return Outbound{Type: TypeAvailabilityUpdate, Payload: a}
}
