package domain

import "errors"

// Domain errors
var (
	// Slot errors
	ErrSlotNotFound = errors.New("time slot not found in schedule")
	ErrPastDate     = errors.New("date is in the past")
	ErrClosedDay    = errors.New("business is closed on this date")

	// Hold errors
	ErrHoldNotFound = errors.New("hold not found")
	ErrAlreadyHeld  = errors.New("slot is already held by another connection")
	ErrNotHoldOwner = errors.New("hold is owned by another connection")
	ErrHoldExpired  = errors.New("hold has expired")

	// Store errors
	ErrStoreUnavailable = errors.New("hold store unavailable")

	// Input errors
	ErrInvalidDate      = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidTimeSlot  = errors.New("invalid time slot, expected HH:MM")
	ErrInvalidServiceID = errors.New("invalid service id")
)
