package models

import (
	"fmt"
	"strings"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority normalizes a priority label, falling back to medium for unknown values.
func ParsePriority(s string) Priority {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityLow:
		return PriorityLow
	case PriorityHigh:
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusScheduled TaskStatus = "scheduled"
	TaskStatusCompleted TaskStatus = "completed"
)

type Task struct {
	ID                   string     `json:"id"`
	OwnerID              string     `json:"owner_id"`
	Title                string     `json:"title"`
	Description          string     `json:"description,omitempty"`
	Subject              string     `json:"subject,omitempty"`
	Priority             Priority   `json:"priority"`
	Difficulty           int        `json:"difficulty"`             // 1-10
	EstimatedDurationMin int        `json:"estimated_duration_min"` // minutes
	DueDate              *time.Time `json:"due_date,omitempty"`
	Status               TaskStatus `json:"status"`
	ScheduledStart       *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd         *time.Time `json:"scheduled_end,omitempty"`
	IsReview             bool       `json:"is_review,omitempty"`

	// SM2 state
	EasinessFactor  float64    `json:"easiness_factor"`
	RepetitionCount int        `json:"repetition_count"`
	IntervalDays    int        `json:"interval_days"`
	NextReviewDate  *time.Time `json:"next_review_date,omitempty"`
	LastReviewedAt  *time.Time `json:"last_reviewed_at,omitempty"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("task title cannot be empty")
	}
	if t.OwnerID == "" {
		return fmt.Errorf("task owner cannot be empty")
	}
	if t.EstimatedDurationMin <= 0 {
		return fmt.Errorf("estimated duration must be positive, got %d", t.EstimatedDurationMin)
	}
	if t.Difficulty < 0 || t.Difficulty > 10 {
		return fmt.Errorf("difficulty must be between 1 and 10, got %d", t.Difficulty)
	}
	if t.EasinessFactor != 0 && t.EasinessFactor < 1.3 {
		return fmt.Errorf("easiness factor must be at least 1.3, got %.2f", t.EasinessFactor)
	}
	if t.RepetitionCount < 0 {
		return fmt.Errorf("repetition count cannot be negative")
	}
	return nil
}

// IsOverdue reports whether the task's deadline has passed at now.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now)
}

// SubjectKey returns the bucket label used to group tasks by subject.
func (t *Task) SubjectKey(fallback string) string {
	if s := strings.TrimSpace(t.Subject); s != "" {
		return s
	}
	return fallback
}
