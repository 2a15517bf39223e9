package domain

import "time"

// BusinessHours describes the open window for one weekday.
// Break windows carry empty strings when the day has no break.
type BusinessHours struct {
	Weekday    time.Weekday `json:"weekday"`
	IsOpen     bool         `json:"isOpen"`
	StartTime  string       `json:"startTime"`
	EndTime    string       `json:"endTime"`
	BreakStart string       `json:"breakStart,omitempty"`
	BreakEnd   string       `json:"breakEnd,omitempty"`
}

// HasBreak reports whether the day has a configured break window
func (b *BusinessHours) HasBreak() bool {
	return b.BreakStart != "" && b.BreakEnd != ""
}

// Holiday is a specific closed date
type Holiday struct {
	Date string `json:"date"`
	Name string `json:"name"`
}
