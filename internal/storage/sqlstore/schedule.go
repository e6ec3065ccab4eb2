package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/julianstephens/studyplan/internal/storage"
)

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) CalendarVersion(ctx context.Context, owner string) (int64, error) {
	return s.version(ctx, s.db, owner)
}

func (s *Store) version(ctx context.Context, q queryRower, owner string) (int64, error) {
	var v int64
	err := q.QueryRowContext(ctx, s.bind("SELECT version FROM calendar_versions WHERE owner_id = ?"), owner).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return v, err
}

// ApplySchedule writes a whole scheduling result atomically. The owner lock is
// taken first, then the calendar version is compared with the one the caller
// planned against.
func (s *Store) ApplySchedule(ctx context.Context, change storage.ScheduleChange) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if s.lock != nil {
		if err := s.lock(ctx, tx, change.Owner); err != nil {
			return 0, fmt.Errorf("locking calendar for %s: %w", change.Owner, err)
		}
	}

	current, err := s.version(ctx, tx, change.Owner)
	if err != nil {
		return 0, fmt.Errorf("reading calendar version: %w", err)
	}
	if change.ExpectedVersion != storage.AnyVersion && change.ExpectedVersion != current {
		return current, fmt.Errorf("expected version %d, found %d: %w", change.ExpectedVersion, current, storage.ErrStaleCalendar)
	}

	for _, id := range change.DeleteEventIDs {
		if _, err := tx.ExecContext(ctx, s.bind("DELETE FROM calendar_events WHERE owner_id = ? AND id = ?"), change.Owner, id); err != nil {
			return 0, fmt.Errorf("deleting event %s: %w", id, err)
		}
	}
	for _, ev := range change.InsertEvents {
		if ev.OwnerID == "" {
			ev.OwnerID = change.Owner
		}
		if err := s.insertEvent(ctx, tx, ev); err != nil {
			return 0, err
		}
	}
	for _, t := range change.UpsertTasks {
		if err := s.upsertTask(ctx, tx, t); err != nil {
			return 0, err
		}
	}
	for _, rs := range change.UpsertReviews {
		if err := s.upsertReview(ctx, tx, rs); err != nil {
			return 0, err
		}
	}

	next := current
	if len(change.DeleteEventIDs) > 0 || len(change.InsertEvents) > 0 {
		next = current + 1
		if _, err := tx.ExecContext(ctx, s.bind(`
			INSERT INTO calendar_versions (owner_id, version) VALUES (?, ?)
			ON CONFLICT (owner_id) DO UPDATE SET version = excluded.version`), change.Owner, next); err != nil {
			return 0, fmt.Errorf("bumping calendar version: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return next, nil
}
