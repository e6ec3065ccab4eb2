package models

import (
	"fmt"
	"time"
)

type EventType string

const (
	EventTypeStudy    EventType = "study"
	EventTypeBreak    EventType = "break"
	EventTypeReview   EventType = "review"
	EventTypePersonal EventType = "personal"
)

type EventSource string

const (
	EventSourceUser      EventSource = "user"
	EventSourceScheduler EventSource = "scheduler"
	EventSourceSystem    EventSource = "system"
)

type CalendarEvent struct {
	ID          string      `json:"id"`
	OwnerID     string      `json:"owner_id"`
	TaskID      string      `json:"task_id,omitempty"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Start       time.Time   `json:"start_time"`
	End         time.Time   `json:"end_time"`
	Type        EventType   `json:"event_type"`
	Source      EventSource `json:"source"`
	Priority    Priority    `json:"priority,omitempty"`
	Subject     string      `json:"subject,omitempty"`
	Color       string      `json:"color,omitempty"`
	Fixed       bool        `json:"fixed,omitempty"` // review events that must never move
}

func (e *CalendarEvent) Validate() error {
	if e.Title == "" {
		return fmt.Errorf("event title cannot be empty")
	}
	if !e.End.After(e.Start) {
		return fmt.Errorf("event %q must end after it starts", e.Title)
	}
	return nil
}

// Duration returns the event length.
func (e *CalendarEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Overlaps reports whether two events share any instant.
func (e *CalendarEvent) Overlaps(other CalendarEvent) bool {
	return e.Start.Before(other.End) && other.Start.Before(e.End)
}

// Movable reports whether a reschedule may delete this event.
func (e *CalendarEvent) Movable() bool {
	return e.Source == EventSourceScheduler && !e.Fixed
}
