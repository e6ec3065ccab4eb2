package models

import "time"

type ReviewStatus string

const (
	ReviewStatusPending   ReviewStatus = "pending"
	ReviewStatusCompleted ReviewStatus = "completed"
)

type ReviewKind string

const (
	ReviewKindSpaced       ReviewKind = "spaced"
	ReviewKindActiveRecall ReviewKind = "active_recall"
)

type ReviewSession struct {
	ID            string       `json:"id"`
	OwnerID       string       `json:"owner_id"`
	TaskID        string       `json:"task_id"`
	EventID       string       `json:"event_id,omitempty"`
	Kind          ReviewKind   `json:"kind"`
	ScheduledDate time.Time    `json:"scheduled_date"`
	Status        ReviewStatus `json:"status"`
	Quality       *int         `json:"quality,omitempty"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty"`
	SourceTaskIDs []string     `json:"source_task_ids,omitempty"`
	Title         string       `json:"title,omitempty"`
}
