package planner

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/storage"
)

type Booking struct {
	Event models.CalendarEvent
	// Displaced are scheduler blocks removed to make room.
	Displaced []models.CalendarEvent
	// Requeued are the tasks those blocks belonged to, now pending again.
	Requeued []models.Task
	// Overlaps are events the new one shares time with that nobody may move.
	Overlaps []models.CalendarEvent
}

// AddEvent books an event the user owns. Scheduler study blocks and breaks it
// covers are removed and their tasks return to the backlog so the next
// scheduling run can place them elsewhere.
func (p *Planner) AddEvent(ctx context.Context, owner string, ev models.CalendarEvent) (Booking, error) {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	ev.OwnerID = owner
	ev.Source = models.EventSourceUser
	if ev.Type == "" {
		ev.Type = models.EventTypePersonal
	}
	if ev.Color == "" {
		ev.Color = constants.DefaultColor
	}
	if err := ev.Validate(); err != nil {
		return Booking{}, err
	}

	unlock := p.lock(owner)
	defer unlock()

	var out Booking
	err := p.retry(ctx, owner, func() error {
		var err error
		out, err = p.addEventOnce(ctx, owner, ev)
		return err
	})
	return out, err
}

func (p *Planner) addEventOnce(ctx context.Context, owner string, ev models.CalendarEvent) (Booking, error) {
	snap, err := p.load(ctx, owner, ev.Start, ev.End)
	if err != nil {
		return Booking{}, err
	}

	out := Booking{Event: ev}
	var requeue []string
	for _, other := range snap.events {
		if !ev.Overlaps(other) {
			continue
		}
		if !other.Movable() {
			out.Overlaps = append(out.Overlaps, other)
			continue
		}
		out.Displaced = append(out.Displaced, other)
		if other.TaskID != "" && !slices.Contains(requeue, other.TaskID) {
			requeue = append(requeue, other.TaskID)
		}
	}

	for _, t := range snap.tasks {
		if slices.Contains(requeue, t.ID) && t.Status == models.TaskStatusScheduled {
			t.Status = models.TaskStatusPending
			out.Requeued = append(out.Requeued, t)
		}
	}

	_, err = p.store.ApplySchedule(ctx, storage.ScheduleChange{
		Owner:           owner,
		ExpectedVersion: snap.version,
		DeleteEventIDs:  ids(out.Displaced),
		InsertEvents:    []models.CalendarEvent{ev},
		UpsertTasks:     out.Requeued,
	})
	if err != nil {
		return Booking{}, fmt.Errorf("booking event %q: %w", ev.Title, err)
	}

	p.log(owner).Info("event booked",
		"title", ev.Title,
		"displaced", len(out.Displaced),
		"requeued", len(out.Requeued),
		"overlaps", len(out.Overlaps))
	return out, nil
}
