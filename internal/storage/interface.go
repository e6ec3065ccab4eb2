package storage

import (
	"context"
	"errors"
	"time"

	"github.com/julianstephens/studyplan/internal/models"
)

var (
	ErrNotFound = errors.New("storage: not found")
	// ErrStaleCalendar means the calendar changed between read and write.
	ErrStaleCalendar = errors.New("storage: calendar changed since it was read")
)

// AnyVersion skips the optimistic calendar check in ApplySchedule.
const AnyVersion int64 = -1

// ScheduleChange is one atomic write to an owner's calendar.
type ScheduleChange struct {
	Owner           string
	ExpectedVersion int64 // AnyVersion to skip the check
	DeleteEventIDs  []string
	InsertEvents    []models.CalendarEvent
	UpsertTasks     []models.Task
	UpsertReviews   []models.ReviewSession
}

// Empty reports whether the change writes nothing.
func (c ScheduleChange) Empty() bool {
	return len(c.DeleteEventIDs) == 0 && len(c.InsertEvents) == 0 && len(c.UpsertTasks) == 0 && len(c.UpsertReviews) == 0
}

type Provider interface {
	// Lifecycle
	Init(ctx context.Context) error
	Load(ctx context.Context) error
	Close() error

	// Settings
	GetSettings(ctx context.Context, owner string) (models.Settings, error)
	SaveSettings(ctx context.Context, owner string, settings models.Settings) error

	// Tasks
	AddTask(ctx context.Context, task models.Task) error
	GetTask(ctx context.Context, owner, id string) (models.Task, error)
	ListTasks(ctx context.Context, owner string, includeCompleted bool) ([]models.Task, error)
	ListCompletedBetween(ctx context.Context, owner string, from, to time.Time) ([]models.Task, error)
	UpdateTask(ctx context.Context, task models.Task) error

	// Calendar
	ListEvents(ctx context.Context, owner string, from, to time.Time) ([]models.CalendarEvent, error)
	ListEventsForTask(ctx context.Context, owner, taskID string) ([]models.CalendarEvent, error)
	CalendarVersion(ctx context.Context, owner string) (int64, error)
	// ApplySchedule writes the change in one transaction and returns the new
	// calendar version. It fails with ErrStaleCalendar if the version moved.
	ApplySchedule(ctx context.Context, change ScheduleChange) (int64, error)

	// Reviews
	GetReviewSession(ctx context.Context, owner, id string) (models.ReviewSession, error)
	ListReviewSessions(ctx context.Context, owner string, status models.ReviewStatus) ([]models.ReviewSession, error)
	ListReviewSessionsForTask(ctx context.Context, owner, taskID string) ([]models.ReviewSession, error)

	// Owners lists every owner with stored settings or tasks.
	Owners(ctx context.Context) ([]string, error)

	// Utils
	GetConfigPath() string
}

// Maintainer is implemented by backends with a versioned schema.
type Maintainer interface {
	// Open connects without checking the schema version, so an outdated
	// database can still be inspected and migrated.
	Open(ctx context.Context) error
	Ping(ctx context.Context) error
	SchemaVersion(ctx context.Context) (current, latest int, err error)
	Migrate(ctx context.Context, logFn func(string)) (int, error)
}
