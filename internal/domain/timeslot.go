package domain

// Conflict types reported on unavailable slots
const (
	ConflictFullyBooked      = "fully_booked"
	ConflictActiveHold       = "active_hold"
	ConflictHoliday          = "holiday"
	ConflictStoreUnavailable = "store_unavailable"
)

// Conflict is a reason a slot cannot be booked
type Conflict struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// TimeSlot is one bookable interval in a day's availability grid
type TimeSlot struct {
	StartTime         string     `json:"startTime"`
	EndTime           string     `json:"endTime"`
	MaxCapacity       int        `json:"maxCapacity"`
	CurrentBookings   int        `json:"currentBookings"`
	AvailableCapacity int        `json:"availableCapacity"`
	IsAvailable       bool       `json:"isAvailable"`
	Conflicts         []Conflict `json:"conflicts"`
}

// HasConflict reports whether the slot carries a conflict of the given type
func (s *TimeSlot) HasConflict(conflictType string) bool {
	for _, c := range s.Conflicts {
		if c.Type == conflictType {
			return true
		}
	}
	return false
}

// Summary aggregates a day's slot availability
type Summary struct {
	TotalSlots       int `json:"totalSlots"`
	AvailableSlots   int `json:"availableSlots"`
	FullyBookedSlots int `json:"fullyBookedSlots"`
}

// Availability is the per-date snapshot pushed to subscribers
type Availability struct {
	Date      string     `json:"date"`
	ServiceID int        `json:"serviceId,omitempty"`
	TimeSlots []TimeSlot `json:"timeSlots"`
	Summary   Summary    `json:"summary"`
}

// Slot returns the slot starting at startTime, or nil if absent
func (a *Availability) Slot(startTime string) *TimeSlot {
	for i := range a.TimeSlots {
		if a.TimeSlots[i].StartTime == startTime {
			return &a.TimeSlots[i]
		}
	}
	return nil
}
