package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/storage"
)

const taskColumns = `id, owner_id, title, description, subject, priority, difficulty, estimated_duration_min,
	due_date, status, scheduled_start, scheduled_end, is_review, easiness_factor, repetition_count,
	interval_days, next_review_date, last_reviewed_at, completed_at, created_at`

const upsertTaskSQL = `
	INSERT INTO tasks (` + taskColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		title = excluded.title,
		description = excluded.description,
		subject = excluded.subject,
		priority = excluded.priority,
		difficulty = excluded.difficulty,
		estimated_duration_min = excluded.estimated_duration_min,
		due_date = excluded.due_date,
		status = excluded.status,
		scheduled_start = excluded.scheduled_start,
		scheduled_end = excluded.scheduled_end,
		is_review = excluded.is_review,
		easiness_factor = excluded.easiness_factor,
		repetition_count = excluded.repetition_count,
		interval_days = excluded.interval_days,
		next_review_date = excluded.next_review_date,
		last_reviewed_at = excluded.last_reviewed_at,
		completed_at = excluded.completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) AddTask(ctx context.Context, task models.Task) error {
	return s.UpdateTask(ctx, task)
}

func (s *Store) UpdateTask(ctx context.Context, task models.Task) error {
	return s.upsertTask(ctx, s.db, task)
}

func (s *Store) upsertTask(ctx context.Context, ex execer, t models.Task) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	if t.Status == "" {
		t.Status = models.TaskStatusPending
	}
	_, err := ex.ExecContext(ctx, s.bind(upsertTaskSQL),
		t.ID, t.OwnerID, t.Title, t.Description, t.Subject, string(t.Priority), t.Difficulty, t.EstimatedDurationMin,
		formatTimePtr(t.DueDate), string(t.Status), formatTimePtr(t.ScheduledStart), formatTimePtr(t.ScheduledEnd),
		t.IsReview, t.EasinessFactor, t.RepetitionCount, t.IntervalDays,
		formatTimePtr(t.NextReviewDate), formatTimePtr(t.LastReviewedAt), formatTimePtr(t.CompletedAt), formatTime(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving task %s: %w", t.ID, err)
	}
	return nil
}

func (s *Store) GetTask(ctx context.Context, owner, id string) (models.Task, error) {
	row := s.db.QueryRowContext(ctx, s.bind("SELECT "+taskColumns+" FROM tasks WHERE owner_id = ? AND id = ?"), owner, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, fmt.Errorf("task %s: %w", id, storage.ErrNotFound)
	}
	return t, err
}

func (s *Store) ListTasks(ctx context.Context, owner string, includeCompleted bool) ([]models.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE owner_id = ?"
	args := []any{owner}
	if !includeCompleted {
		query += " AND status <> ?"
		args = append(args, string(models.TaskStatusCompleted))
	}
	query += " ORDER BY created_at, id"
	return s.queryTasks(ctx, query, args...)
}

// ListCompletedBetween returns tasks completed in [from, to).
func (s *Store) ListCompletedBetween(ctx context.Context, owner string, from, to time.Time) ([]models.Task, error) {
	return s.queryTasks(ctx, "SELECT "+taskColumns+` FROM tasks
		WHERE owner_id = ? AND status = ? AND completed_at >= ? AND completed_at < ?
		ORDER BY completed_at`,
		owner, string(models.TaskStatusCompleted), formatTime(from), formatTime(to))
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, s.bind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func scanTask(row rowScanner) (models.Task, error) {
	var t models.Task
	var priority, status, createdAt string
	var due, schedStart, schedEnd, nextReview, lastReviewed, completed sql.NullString

	err := row.Scan(
		&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.Subject, &priority, &t.Difficulty, &t.EstimatedDurationMin,
		&due, &status, &schedStart, &schedEnd, &t.IsReview, &t.EasinessFactor, &t.RepetitionCount,
		&t.IntervalDays, &nextReview, &lastReviewed, &completed, &createdAt,
	)
	if err != nil {
		return models.Task{}, err
	}
	t.Priority = models.Priority(priority)
	t.Status = models.TaskStatus(status)

	for _, f := range []struct {
		src sql.NullString
		dst **time.Time
	}{
		{due, &t.DueDate},
		{schedStart, &t.ScheduledStart},
		{schedEnd, &t.ScheduledEnd},
		{nextReview, &t.NextReviewDate},
		{lastReviewed, &t.LastReviewedAt},
		{completed, &t.CompletedAt},
	} {
		if *f.dst, err = parseTimePtr(f.src); err != nil {
			return models.Task{}, fmt.Errorf("task %s: %w", t.ID, err)
		}
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Task{}, fmt.Errorf("task %s: %w", t.ID, err)
	}
	return t, nil
}
