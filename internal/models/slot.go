package models

import "time"

// TimeSlot is a free interval computed for a single scheduling run. It is never persisted.
type TimeSlot struct {
	Start       time.Time `json:"start"`
	DurationMin int       `json:"duration_min"`
	Energy      float64   `json:"energy"`
}

// End returns the instant the slot closes.
func (s TimeSlot) End() time.Time {
	return s.Start.Add(time.Duration(s.DurationMin) * time.Minute)
}
