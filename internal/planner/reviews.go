package planner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/recall"
	"github.com/julianstephens/studyplan/internal/scheduler"
	"github.com/julianstephens/studyplan/internal/storage"
)

type Completion struct {
	Task     models.Task
	Reviews  []models.ReviewSession
	Released int // future study events removed
}

// CompleteTask marks a task done, frees its remaining study blocks and, the
// first time it is completed, lays out the cold-start spaced reviews.
// Completing an already completed task changes nothing.
func (p *Planner) CompleteTask(ctx context.Context, owner, taskID string, at time.Time) (Completion, error) {
	unlock := p.lock(owner)
	defer unlock()

	var out Completion
	err := p.retry(ctx, owner, func() error {
		var err error
		out, err = p.completeOnce(ctx, owner, taskID, at)
		return err
	})
	return out, err
}

func (p *Planner) completeOnce(ctx context.Context, owner, taskID string, at time.Time) (Completion, error) {
	task, err := p.store.GetTask(ctx, owner, taskID)
	if err != nil {
		return Completion{}, fmt.Errorf("loading task %s: %w", taskID, err)
	}
	if task.Status == models.TaskStatusCompleted {
		return Completion{Task: task}, nil
	}

	_, until := scheduler.ReviewSearchWindow(at.AddDate(0, 0, slices.Max(constants.InitialReviewOffsetsDays)))
	snap, err := p.load(ctx, owner, at.Add(-constants.SpacingLookback), until)
	if err != nil {
		return Completion{}, err
	}
	existing, err := p.store.ListReviewSessionsForTask(ctx, owner, taskID)
	if err != nil {
		return Completion{}, fmt.Errorf("loading reviews for task %s: %w", taskID, err)
	}

	kept, dropped := splitMovable(snap.events, at, func(ev models.CalendarEvent) bool {
		return ev.TaskID == taskID
	})

	done := at
	task.Status = models.TaskStatusCompleted
	task.CompletedAt = &done
	task.ScheduledStart, task.ScheduledEnd = nil, nil

	firstCompletion := true
	for _, rs := range existing {
		if rs.Kind == models.ReviewKindSpaced {
			firstCompletion = false
			break
		}
	}

	var sessions []models.ReviewSession
	var events []models.CalendarEvent
	if firstCompletion {
		sched := scheduler.New(snap.settings)
		sessions, events = materialize(owner, sched.InitialReviews(task, at, kept))
		if len(sessions) > 0 {
			next := sessions[0].ScheduledDate
			task.NextReviewDate = &next
		}
	}

	_, err = p.store.ApplySchedule(ctx, storage.ScheduleChange{
		Owner:           owner,
		ExpectedVersion: snap.version,
		DeleteEventIDs:  ids(dropped),
		InsertEvents:    events,
		UpsertTasks:     []models.Task{task},
		UpsertReviews:   sessions,
	})
	if err != nil {
		return Completion{}, fmt.Errorf("completing task %s: %w", taskID, err)
	}

	p.log(owner).Info("task completed", "task", task.Title, "reviews", len(sessions), "released", len(dropped))
	return Completion{Task: task, Reviews: sessions, Released: len(dropped)}, nil
}

type Rating struct {
	Session  models.ReviewSession
	Tasks    []models.Task
	State    scheduler.ReviewState // state of the first source task
	FollowUp *models.ReviewSession
}

// RateReview records recall quality for a review session, advances SM2 on
// every task the session covers and books the next spaced review when none is
// already waiting.
func (p *Planner) RateReview(ctx context.Context, owner, sessionID string, quality int, at time.Time) (Rating, error) {
	if quality < 0 || quality > constants.MaxQualityRating {
		return Rating{}, fmt.Errorf("%w: got %d", scheduler.ErrInvalidQuality, quality)
	}
	unlock := p.lock(owner)
	defer unlock()

	var out Rating
	err := p.retry(ctx, owner, func() error {
		var err error
		out, err = p.rateOnce(ctx, owner, sessionID, quality, at)
		return err
	})
	return out, err
}

func (p *Planner) rateOnce(ctx context.Context, owner, sessionID string, quality int, at time.Time) (Rating, error) {
	session, err := p.store.GetReviewSession(ctx, owner, sessionID)
	if err != nil {
		return Rating{}, fmt.Errorf("loading review %s: %w", sessionID, err)
	}
	if session.Status == models.ReviewStatusCompleted {
		return Rating{}, ErrAlreadyRated
	}

	// Only the version and settings are needed here; the follow-up's events are
	// read once its interval is known.
	snap, err := p.load(ctx, owner, at, at)
	if err != nil {
		return Rating{}, err
	}

	sources := session.SourceTaskIDs
	if len(sources) == 0 {
		sources = []string{session.TaskID}
	}

	var out Rating
	for i, id := range sources {
		task, err := p.store.GetTask(ctx, owner, id)
		if err != nil {
			return Rating{}, fmt.Errorf("loading task %s: %w", id, err)
		}
		task, state, err := scheduler.ApplyReview(task, quality, at)
		if err != nil {
			return Rating{}, err
		}
		if i == 0 {
			out.State = state
		}
		out.Tasks = append(out.Tasks, task)
	}

	q, done := quality, at
	session.Status = models.ReviewStatusCompleted
	session.Quality = &q
	session.CompletedAt = &done
	out.Session = session

	reviews := []models.ReviewSession{session}
	var events []models.CalendarEvent
	if session.Kind == models.ReviewKindSpaced && len(out.Tasks) > 0 {
		waiting, err := p.hasPendingReview(ctx, owner, session.TaskID, session.ID)
		if err != nil {
			return Rating{}, err
		}
		if !waiting {
			task := out.Tasks[0]
			from, to := scheduler.ReviewSearchWindow(at.AddDate(0, 0, out.State.IntervalDays))
			busy, err := p.store.ListEvents(ctx, owner, from, to)
			if err != nil {
				return Rating{}, fmt.Errorf("loading events around follow-up review: %w", err)
			}
			sched := scheduler.New(snap.settings)
			follow, evs := materialize(owner, []scheduler.ReviewPlacement{
				sched.FollowUpReview(task, at, out.State.IntervalDays, busy),
			})
			next := follow[0].ScheduledDate
			out.Tasks[0].NextReviewDate = &next
			out.FollowUp = &follow[0]
			reviews = append(reviews, follow...)
			events = evs
		}
	}

	_, err = p.store.ApplySchedule(ctx, storage.ScheduleChange{
		Owner:           owner,
		ExpectedVersion: snap.version,
		InsertEvents:    events,
		UpsertTasks:     out.Tasks,
		UpsertReviews:   reviews,
	})
	if err != nil {
		return Rating{}, fmt.Errorf("rating review %s: %w", sessionID, err)
	}

	p.log(owner).Info("review rated",
		"session", session.ID,
		"quality", quality,
		"interval_days", out.State.IntervalDays,
		"follow_up", out.FollowUp != nil)
	return out, nil
}

func (p *Planner) hasPendingReview(ctx context.Context, owner, taskID, except string) (bool, error) {
	sessions, err := p.store.ListReviewSessionsForTask(ctx, owner, taskID)
	if err != nil {
		return false, fmt.Errorf("loading reviews for task %s: %w", taskID, err)
	}
	for _, rs := range sessions {
		if rs.ID != except && rs.Kind == models.ReviewKindSpaced && rs.Status == models.ReviewStatusPending {
			return true, nil
		}
	}
	return false, nil
}

// GenerateActiveRecall books tomorrow's active-recall sessions, one per
// subject, for tasks completed in the last two days. Subjects that already
// have a session on that day are skipped, so the job can run repeatedly.
func (p *Planner) GenerateActiveRecall(ctx context.Context, owner string, now time.Time) ([]models.ReviewSession, error) {
	unlock := p.lock(owner)
	defer unlock()

	var out []models.ReviewSession
	err := p.retry(ctx, owner, func() error {
		var err error
		out, err = p.recallOnce(ctx, owner, now)
		return err
	})
	return out, err
}

func (p *Planner) recallOnce(ctx context.Context, owner string, now time.Time) ([]models.ReviewSession, error) {
	snap, err := p.load(ctx, owner, now, now.AddDate(0, 0, constants.ReviewLookaheadDays))
	if err != nil {
		return nil, err
	}
	sched := scheduler.New(snap.settings)
	loc := sched.Location()

	from, to := recall.Window(now, loc)
	completed, err := p.store.ListCompletedBetween(ctx, owner, from, to)
	if err != nil {
		return nil, fmt.Errorf("loading completed tasks: %w", err)
	}
	groups := recall.GroupBySubject(completed)
	if len(groups) == 0 {
		return nil, nil
	}

	pending, err := p.store.ListReviewSessions(ctx, owner, models.ReviewStatusPending)
	if err != nil {
		return nil, fmt.Errorf("loading pending reviews: %w", err)
	}
	desired := recall.SessionTime(now, loc)
	day := desired.Format(constants.DateFormat)
	booked := map[string]bool{}
	for _, rs := range pending {
		if rs.Kind == models.ReviewKindActiveRecall && rs.ScheduledDate.In(loc).Format(constants.DateFormat) == day {
			booked[rs.Title] = true
		}
	}

	busy := append([]models.CalendarEvent{}, snap.events...)
	var placements []scheduler.ReviewPlacement
	for _, g := range groups {
		if booked[constants.TitleRecallPrefix+g.Subject] {
			continue
		}
		rp := sched.RecallSession(owner, g.Subject, g.Tasks, desired, busy)
		if rp.Event != nil {
			busy = append(busy, *rp.Event)
		}
		placements = append(placements, rp)
	}
	if len(placements) == 0 {
		return nil, nil
	}

	sessions, events := materialize(owner, placements)
	_, err = p.store.ApplySchedule(ctx, storage.ScheduleChange{
		Owner:           owner,
		ExpectedVersion: snap.version,
		InsertEvents:    events,
		UpsertReviews:   sessions,
	})
	if err != nil {
		return nil, fmt.Errorf("booking active recall: %w", err)
	}
	p.log(owner).Info("active recall booked", "sessions", len(sessions), "date", day)
	return sessions, nil
}

// overdueReview is a missed spaced session waiting to be placed again.
type overdueReview struct {
	session models.ReviewSession
	source  models.Task
}

// overdueReviews turns spaced sessions whose time passed without a rating into
// review tasks for the placer. Each task is keyed by its session ID and keeps
// the missed date as NextReviewDate, so importance grows with every day waited.
func (p *Planner) overdueReviews(ctx context.Context, owner string, now time.Time, events []models.CalendarEvent) ([]models.Task, map[string]overdueReview, error) {
	sessions, err := p.store.ListReviewSessions(ctx, owner, models.ReviewStatusPending)
	if err != nil {
		return nil, nil, fmt.Errorf("loading pending reviews: %w", err)
	}
	running := map[string]bool{}
	for _, ev := range events {
		if !ev.Start.After(now) && ev.End.After(now) {
			running[ev.ID] = true
		}
	}

	sources := map[string]models.Task{}
	overdue := map[string]overdueReview{}
	var tasks []models.Task
	for _, rs := range sessions {
		if rs.Kind != models.ReviewKindSpaced || !rs.ScheduledDate.Before(now) || running[rs.EventID] {
			continue
		}
		source, ok := sources[rs.TaskID]
		if !ok {
			source, err = p.store.GetTask(ctx, owner, rs.TaskID)
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, nil, fmt.Errorf("loading task %s: %w", rs.TaskID, err)
			}
			sources[rs.TaskID] = source
		}

		missed := rs.ScheduledDate
		t := source
		t.ID = rs.ID
		t.Title = rs.Title
		if t.Title == "" {
			t.Title = constants.TitleReviewPrefix + source.Title
		}
		t.EstimatedDurationMin = scheduler.ReviewDurationMin(source)
		t.Status = models.TaskStatusPending
		t.DueDate = nil
		t.IsReview = true
		t.NextReviewDate = &missed
		tasks = append(tasks, t)
		overdue[rs.ID] = overdueReview{session: rs, source: source}
	}
	return tasks, overdue, nil
}

// pinReviews links placed overdue reviews back to their sessions and fixes
// them on the calendar like any other booked review. It returns the updated
// sessions, the events they replace and the source tasks whose next review
// date moved. Sessions that found no room keep their old booking.
func pinReviews(events []models.CalendarEvent, overdue map[string]overdueReview, now time.Time) ([]models.ReviewSession, []string, []models.Task) {
	var sessions []models.ReviewSession
	var stale []string
	linked := map[string]bool{}
	next := map[string]models.Task{}
	var order []string
	for i := range events {
		ev := &events[i]
		od, ok := overdue[ev.TaskID]
		if !ok {
			continue
		}
		ev.TaskID = od.session.TaskID
		ev.Source = models.EventSourceSystem
		ev.Color = constants.ReviewColor
		ev.Fixed = true
		// Events are chronological, so a split review links to its first chunk.
		if linked[od.session.ID] {
			continue
		}
		linked[od.session.ID] = true

		rs := od.session
		if rs.EventID != "" {
			stale = append(stale, rs.EventID)
		}
		rs.ScheduledDate = ev.Start
		rs.EventID = ev.ID
		sessions = append(sessions, rs)

		source, seen := next[rs.TaskID]
		if !seen {
			source = od.source
			order = append(order, rs.TaskID)
		}
		if source.NextReviewDate == nil || source.NextReviewDate.Before(now) || ev.Start.Before(*source.NextReviewDate) {
			start := ev.Start
			source.NextReviewDate = &start
		}
		next[rs.TaskID] = source
	}

	sources := make([]models.Task, 0, len(order))
	for _, id := range order {
		sources = append(sources, next[id])
	}
	return sessions, stale, sources
}
