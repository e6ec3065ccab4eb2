package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/studyplan/internal/models"
)

const eventColumns = `id, owner_id, task_id, title, description, start_time, end_time,
	event_type, source, priority, subject, color, fixed`

// ListEvents returns events overlapping [from, to), ordered by start.
func (s *Store) ListEvents(ctx context.Context, owner string, from, to time.Time) ([]models.CalendarEvent, error) {
	return s.queryEvents(ctx, "SELECT "+eventColumns+` FROM calendar_events
		WHERE owner_id = ? AND start_time < ? AND end_time > ?
		ORDER BY start_time, id`,
		owner, formatTime(to), formatTime(from))
}

func (s *Store) ListEventsForTask(ctx context.Context, owner, taskID string) ([]models.CalendarEvent, error) {
	return s.queryEvents(ctx, "SELECT "+eventColumns+` FROM calendar_events
		WHERE owner_id = ? AND task_id = ?
		ORDER BY start_time, id`,
		owner, taskID)
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]models.CalendarEvent, error) {
	rows, err := s.db.QueryContext(ctx, s.bind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.CalendarEvent
	for rows.Next() {
		var ev models.CalendarEvent
		var start, end, evType, source, priority string
		if err := rows.Scan(
			&ev.ID, &ev.OwnerID, &ev.TaskID, &ev.Title, &ev.Description, &start, &end,
			&evType, &source, &priority, &ev.Subject, &ev.Color, &ev.Fixed,
		); err != nil {
			return nil, err
		}
		ev.Type = models.EventType(evType)
		ev.Source = models.EventSource(source)
		ev.Priority = models.Priority(priority)
		if ev.Start, err = parseTime(start); err != nil {
			return nil, fmt.Errorf("event %s: %w", ev.ID, err)
		}
		if ev.End, err = parseTime(end); err != nil {
			return nil, fmt.Errorf("event %s: %w", ev.ID, err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *Store) insertEvent(ctx context.Context, ex execer, ev models.CalendarEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	_, err := ex.ExecContext(ctx, s.bind("INSERT INTO calendar_events ("+eventColumns+") VALUES ("+placeholders(13)+")"),
		ev.ID, ev.OwnerID, ev.TaskID, ev.Title, ev.Description, formatTime(ev.Start), formatTime(ev.End),
		string(ev.Type), string(ev.Source), string(ev.Priority), ev.Subject, ev.Color, ev.Fixed,
	)
	if err != nil {
		return fmt.Errorf("inserting event %q: %w", ev.Title, err)
	}
	return nil
}
