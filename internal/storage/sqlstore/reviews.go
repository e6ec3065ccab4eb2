package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/storage"
)

const reviewColumns = `id, owner_id, task_id, event_id, kind, scheduled_date, status,
	quality, completed_at, source_task_ids, title`

func (s *Store) GetReviewSession(ctx context.Context, owner, id string) (models.ReviewSession, error) {
	sessions, err := s.queryReviews(ctx, "SELECT "+reviewColumns+" FROM review_sessions WHERE owner_id = ? AND id = ?", owner, id)
	if err != nil {
		return models.ReviewSession{}, err
	}
	if len(sessions) == 0 {
		return models.ReviewSession{}, fmt.Errorf("review session %s: %w", id, storage.ErrNotFound)
	}
	return sessions[0], nil
}

// ListReviewSessions returns sessions with the given status, or all of them when status is empty.
func (s *Store) ListReviewSessions(ctx context.Context, owner string, status models.ReviewStatus) ([]models.ReviewSession, error) {
	query := "SELECT " + reviewColumns + " FROM review_sessions WHERE owner_id = ?"
	args := []any{owner}
	if status != "" {
		query += " AND status = ?"
		args = append(args, string(status))
	}
	return s.queryReviews(ctx, query+" ORDER BY scheduled_date, id", args...)
}

func (s *Store) ListReviewSessionsForTask(ctx context.Context, owner, taskID string) ([]models.ReviewSession, error) {
	return s.queryReviews(ctx, "SELECT "+reviewColumns+` FROM review_sessions
		WHERE owner_id = ? AND task_id = ? ORDER BY scheduled_date, id`, owner, taskID)
}

func (s *Store) queryReviews(ctx context.Context, query string, args ...any) ([]models.ReviewSession, error) {
	rows, err := s.db.QueryContext(ctx, s.bind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.ReviewSession
	for rows.Next() {
		var rs models.ReviewSession
		var kind, scheduled, status, sources string
		var quality sql.NullInt64
		var completed sql.NullString
		if err := rows.Scan(
			&rs.ID, &rs.OwnerID, &rs.TaskID, &rs.EventID, &kind, &scheduled, &status,
			&quality, &completed, &sources, &rs.Title,
		); err != nil {
			return nil, err
		}
		rs.Kind = models.ReviewKind(kind)
		rs.Status = models.ReviewStatus(status)
		if rs.ScheduledDate, err = parseTime(scheduled); err != nil {
			return nil, fmt.Errorf("review session %s: %w", rs.ID, err)
		}
		if rs.CompletedAt, err = parseTimePtr(completed); err != nil {
			return nil, fmt.Errorf("review session %s: %w", rs.ID, err)
		}
		if quality.Valid {
			q := int(quality.Int64)
			rs.Quality = &q
		}
		if sources != "" {
			if err := json.Unmarshal([]byte(sources), &rs.SourceTaskIDs); err != nil {
				return nil, fmt.Errorf("review session %s: %w", rs.ID, err)
			}
		}
		sessions = append(sessions, rs)
	}
	return sessions, rows.Err()
}

func (s *Store) upsertReview(ctx context.Context, ex execer, rs models.ReviewSession) error {
	if rs.ID == "" {
		return errors.New("review session id is required")
	}
	if rs.Status == "" {
		rs.Status = models.ReviewStatusPending
	}
	if rs.Kind == "" {
		rs.Kind = models.ReviewKindSpaced
	}
	sources := rs.SourceTaskIDs
	if sources == nil {
		sources = []string{}
	}
	encoded, err := json.Marshal(sources)
	if err != nil {
		return err
	}
	var quality sql.NullInt64
	if rs.Quality != nil {
		quality = sql.NullInt64{Int64: int64(*rs.Quality), Valid: true}
	}

	_, err = ex.ExecContext(ctx, s.bind(`
		INSERT INTO review_sessions (`+reviewColumns+`) VALUES (`+placeholders(11)+`)
		ON CONFLICT (id) DO UPDATE SET
			event_id = excluded.event_id,
			scheduled_date = excluded.scheduled_date,
			status = excluded.status,
			quality = excluded.quality,
			completed_at = excluded.completed_at,
			source_task_ids = excluded.source_task_ids,
			title = excluded.title`),
		rs.ID, rs.OwnerID, rs.TaskID, rs.EventID, string(rs.Kind), formatTime(rs.ScheduledDate), string(rs.Status),
		quality, formatTimePtr(rs.CompletedAt), string(encoded), rs.Title,
	)
	if err != nil {
		return fmt.Errorf("saving review session %s: %w", rs.ID, err)
	}
	return nil
}
