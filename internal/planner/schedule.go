package planner

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/scheduler"
	"github.com/julianstephens/studyplan/internal/storage"
	"github.com/julianstephens/studyplan/internal/validation"
)

type ScheduleOptions struct {
	// DryRun computes the placement without writing anything.
	DryRun bool
	// Confirm is asked before a full reschedule discards movable events.
	// A nil Confirm approves.
	Confirm func(scheduler.Decision) (bool, error)
}

type Result struct {
	Decision    scheduler.Decision
	Placement   scheduler.Placement
	Dropped     []models.CalendarEvent
	Reviews     []models.ReviewSession // overdue reviews booked again
	Conflicts   validation.ValidationResult
	Corrections []string
	Horizon     time.Time
	Version     int64
	Backup      string
	Applied     bool
}

// Schedule places incoming tasks (which may be empty, to just fill the
// horizon with backlog) and persists the outcome.
func (p *Planner) Schedule(ctx context.Context, owner string, incoming []models.Task, opts ScheduleOptions) (Result, error) {
	unlock := p.lock(owner)
	defer unlock()

	prepared, err := p.prepare(owner, incoming)
	if err != nil {
		return Result{}, err
	}

	var res Result
	err = p.retry(ctx, owner, func() error {
		var err error
		res, err = p.scheduleOnce(ctx, owner, prepared, &opts)
		return err
	})
	return res, err
}

// prepare validates incoming tasks and fills in identity and defaults.
func (p *Planner) prepare(owner string, incoming []models.Task) ([]models.Task, error) {
	now := p.now()
	out := make([]models.Task, 0, len(incoming))
	for _, t := range incoming {
		if t.ID == "" {
			t.ID = uuid.New().String()
		}
		t.OwnerID = owner
		if t.Priority == "" {
			t.Priority = models.PriorityMedium
		}
		if t.Status == "" {
			t.Status = models.TaskStatusPending
		}
		if t.EasinessFactor == 0 {
			t.EasinessFactor = constants.DefaultEasinessFactor
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("task %q: %w", t.Title, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func (p *Planner) scheduleOnce(ctx context.Context, owner string, incoming []models.Task, opts *ScheduleOptions) (Result, error) {
	now := p.now()
	log := p.log(owner)

	snap, err := p.load(ctx, owner, now.Add(-constants.SpacingLookback), now.AddDate(0, 0, constants.MaxHorizonDays))
	if err != nil {
		return Result{}, err
	}
	sched := scheduler.New(snap.settings)
	for _, c := range sched.Corrections() {
		log.Warn("settings corrected", "detail", c)
	}

	isIncoming := make(map[string]bool, len(incoming))
	for _, t := range incoming {
		isIncoming[t.ID] = true
	}
	var existing []models.Task
	for _, t := range snap.tasks {
		if !isIncoming[t.ID] {
			existing = append(existing, t)
		}
	}

	decision := sched.Decide(existing, incoming, snap.events, now)
	log.Info("strategy chosen",
		"strategy", decision.Strategy,
		"needed", decision.Needed,
		"capacity", decision.Capacity,
		"reschedule", len(decision.Reschedule),
		"overdue", len(decision.Overdue),
		"cannot_fit", len(decision.CannotFit))

	res := Result{Decision: decision, Corrections: sched.Corrections(), Version: snap.version}

	if decision.Strategy == scheduler.StrategyFull && !opts.DryRun && opts.Confirm != nil {
		ok, err := opts.Confirm(decision)
		if err != nil {
			return res, err
		}
		if !ok {
			return res, ErrCancelled
		}
		// Approval holds for retries of the same request.
		opts.Confirm = nil
	}

	rebuild := map[string]bool{}
	for _, t := range decision.Reschedule {
		rebuild[t.ID] = true
	}
	kept, dropped := splitMovable(snap.events, now, func(ev models.CalendarEvent) bool {
		return decision.Strategy == scheduler.StrategyFull || rebuild[ev.TaskID]
	})
	res.Dropped = dropped

	toPlace, originals, err := p.collect(ctx, owner, incoming, existing, rebuild, dropped)
	if err != nil {
		return res, err
	}
	reviews, overdue, err := p.overdueReviews(ctx, owner, now, snap.events)
	if err != nil {
		return res, err
	}
	toPlace = append(toPlace, reviews...)

	horizon := now.AddDate(0, 0, sched.Settings().DueDateDays)
	for _, t := range toPlace {
		if t.DueDate != nil && t.DueDate.After(horizon) {
			horizon = *t.DueDate
		}
	}
	if limit := now.AddDate(0, 0, constants.MaxHorizonDays); horizon.After(limit) {
		horizon = limit
	}
	res.Horizon = horizon

	// Cached slots describe the stored calendar at this version; once events
	// are released in memory the free time differs, so compute fresh.
	var slots []models.TimeSlot
	if len(dropped) == 0 {
		slots = p.cache.Lookup(owner, snap.version, sched.SlotQuery(now, horizon, now, kept))
	} else {
		slots = sched.FindSlots(now, horizon, now, kept)
	}

	placement := sched.Place(owner, toPlace, sched.Rank(slots), kept, now)
	for i := range placement.Events {
		placement.Events[i].ID = uuid.New().String()
	}
	sessions, stale, sources := pinReviews(placement.Events, overdue, now)
	res.Placement = placement
	res.Reviews = sessions

	var upcoming []models.CalendarEvent
	for _, ev := range kept {
		if ev.End.After(now) {
			upcoming = append(upcoming, ev)
		}
	}
	wake, sleep := sched.WakeWindow()
	validator := validation.New(wake, sleep, sched.Location())
	res.Conflicts = validator.ValidateSchedule(append(upcoming, placement.Events...), append(slices.Clone(snap.tasks), incoming...))
	if blocking := blockingFor(res.Conflicts, placement.Events); len(blocking) > 0 {
		return res, fmt.Errorf("%w: %s", ErrConflict, blocking[0].Description)
	}

	for _, pt := range placement.Unplaced() {
		log.Warn("task not fully placed", "task", pt.Task.Title, "remaining_min", pt.RemainingMin)
	}
	if len(sessions) > 0 {
		log.Info("overdue reviews rebooked", "sessions", len(sessions), "waiting", len(overdue)-len(sessions))
	}

	if opts.DryRun {
		return res, nil
	}

	if decision.Strategy == scheduler.StrategyFull && p.backup != nil && res.Backup == "" {
		path, err := p.backup.CreateBackup(ctx, constants.BackupLabelFullReset)
		if err != nil {
			return res, fmt.Errorf("backing up before full reschedule: %w", err)
		}
		res.Backup = path
	}

	change := storage.ScheduleChange{
		Owner:           owner,
		ExpectedVersion: snap.version,
		DeleteEventIDs:  append(ids(dropped), stale...),
		InsertEvents:    placement.Events,
		UpsertTasks:     append(taskUpdates(placement, originals), sources...),
		UpsertReviews:   sessions,
	}
	if change.Empty() {
		return res, nil
	}
	version, err := p.store.ApplySchedule(ctx, change)
	if err != nil {
		return res, fmt.Errorf("applying schedule: %w", err)
	}
	res.Version = version
	res.Applied = true

	log.Info("schedule applied",
		"strategy", decision.Strategy,
		"events", len(placement.Events),
		"dropped", len(dropped),
		"study_min", placement.StudyMinutes(),
		"unplaced", len(placement.Unplaced()),
		"version", version)
	return res, nil
}

// collect builds the placement queue: incoming tasks, tasks released by the
// decision, and open tasks that still have unplaced time. Each entry carries
// only the minutes not already on the calendar.
func (p *Planner) collect(ctx context.Context, owner string, incoming, existing []models.Task, rebuild map[string]bool, dropped []models.CalendarEvent) ([]models.Task, map[string]models.Task, error) {
	originals := make(map[string]models.Task)
	var toPlace []models.Task
	for _, t := range incoming {
		originals[t.ID] = t
		toPlace = append(toPlace, t)
	}

	var candidates []string
	for _, t := range existing {
		if rebuild[t.ID] || t.Status == models.TaskStatusPending {
			candidates = append(candidates, t.ID)
		}
	}
	// Full reschedules release tasks that were never named in the decision.
	for _, ev := range dropped {
		if ev.TaskID != "" && !slices.Contains(candidates, ev.TaskID) {
			candidates = append(candidates, ev.TaskID)
		}
	}
	if len(candidates) == 0 {
		return toPlace, originals, nil
	}

	studied, err := p.studiedMinutes(ctx, owner, candidates)
	if err != nil {
		return nil, nil, err
	}
	released := make(map[string]int)
	for _, ev := range dropped {
		if isStudy(ev) {
			released[ev.TaskID] += int(ev.Duration() / time.Minute)
		}
	}

	for _, t := range existing {
		if !slices.Contains(candidates, t.ID) {
			continue
		}
		remaining := t.EstimatedDurationMin - studied[t.ID] + released[t.ID]
		if remaining <= 0 {
			continue
		}
		originals[t.ID] = t
		t.EstimatedDurationMin = remaining
		toPlace = append(toPlace, t)
	}
	return toPlace, originals, nil
}

// taskUpdates writes back status and scheduled span, restoring the full
// estimate that collect trimmed for placement.
func taskUpdates(placement scheduler.Placement, originals map[string]models.Task) []models.Task {
	spans := make(map[string][2]time.Time)
	for _, ev := range placement.Events {
		if ev.TaskID == "" {
			continue
		}
		s, ok := spans[ev.TaskID]
		if !ok || ev.Start.Before(s[0]) {
			s[0] = ev.Start
		}
		if !ok || ev.End.After(s[1]) {
			s[1] = ev.End
		}
		spans[ev.TaskID] = s
	}

	var out []models.Task
	for _, pt := range placement.Tasks {
		t, ok := originals[pt.Task.ID]
		if !ok {
			continue
		}
		if s, ok := spans[t.ID]; ok {
			start, end := s[0], s[1]
			t.ScheduledStart, t.ScheduledEnd = &start, &end
		}
		if pt.RemainingMin == 0 {
			t.Status = models.TaskStatusScheduled
		} else {
			t.Status = models.TaskStatusPending
		}
		out = append(out, t)
	}
	return out
}

// blockingFor keeps hard conflicts that involve at least one new event, so a
// user who double-booked their own calendar doesn't freeze the planner.
func blockingFor(result validation.ValidationResult, placed []models.CalendarEvent) []validation.Conflict {
	fresh := make(map[string]bool, len(placed))
	for _, ev := range placed {
		fresh[ev.ID] = true
	}
	var out []validation.Conflict
	for _, c := range result.Blocking() {
		if slices.ContainsFunc(c.EventIDs, func(id string) bool { return fresh[id] }) {
			out = append(out, c)
		}
	}
	return out
}

// Summary renders a one-line description of a result for logs and the CLI.
func (r Result) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d events, %d min of study", r.Decision.Strategy, len(r.Placement.Events), r.Placement.StudyMinutes())
	if n := len(r.Dropped); n > 0 {
		fmt.Fprintf(&b, ", %d released", n)
	}
	if n := len(r.Placement.Unplaced()); n > 0 {
		fmt.Fprintf(&b, ", %d not fully placed", n)
	}
	return b.String()
}
