package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/storage"
)

const owner = "alice"

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func ts(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestInitCreatesDefaultSettings(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	settings, err := store.GetSettings(ctx, constants.DefaultOwner)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if settings.WakeTime != constants.DefaultWakeTime {
		t.Errorf("WakeTime = %q, want %q", settings.WakeTime, constants.DefaultWakeTime)
	}

	// Init is idempotent
	if err := store.Init(ctx); err != nil {
		t.Fatalf("second Init: %v", err)
	}
}

func TestLoadWithoutInit(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.db"))
	if err := store.Load(context.Background()); err == nil {
		t.Fatal("expected error loading an uninitialised database")
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if _, err := store.GetSettings(ctx, owner); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("GetSettings for new owner = %v, want ErrNotFound", err)
	}

	s := models.DefaultSettings()
	s.WakeTime = "06:30"
	s.Interleave = false
	s.EnergyLevels = map[int]float64{9: 8, 14: 3.5}
	s.SubjectColors = map[string]string{"math": "#FF0000"}
	if err := store.SaveSettings(ctx, owner, s); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	got, err := store.GetSettings(ctx, owner)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if got.WakeTime != "06:30" || got.Interleave {
		t.Errorf("got %+v", got)
	}
	if got.EnergyLevels[9] != 8 || got.EnergyLevels[14] != 3.5 {
		t.Errorf("EnergyLevels = %v", got.EnergyLevels)
	}
	if got.SubjectColors["math"] != "#FF0000" {
		t.Errorf("SubjectColors = %v", got.SubjectColors)
	}

	owners, err := store.Owners(ctx)
	if err != nil {
		t.Fatalf("Owners: %v", err)
	}
	if len(owners) != 2 {
		t.Errorf("Owners = %v, want local and %s", owners, owner)
	}
}

func TestTasks(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	due := ts(t, "2025-01-10 17:00")

	task := models.Task{
		ID:                   "t1",
		OwnerID:              owner,
		Title:                "Linear algebra problem set",
		Subject:              "math",
		Priority:             models.PriorityHigh,
		Difficulty:           7,
		EstimatedDurationMin: 120,
		DueDate:              &due,
		EasinessFactor:       constants.DefaultEasinessFactor,
	}
	if err := store.AddTask(ctx, task); err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	got, err := store.GetTask(ctx, owner, "t1")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Status != models.TaskStatusPending {
		t.Errorf("Status = %q, want pending", got.Status)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Errorf("DueDate = %v, want %v", got.DueDate, due)
	}
	if got.Priority != models.PriorityHigh || got.Difficulty != 7 || got.EstimatedDurationMin != 120 {
		t.Errorf("got %+v", got)
	}

	if _, err := store.GetTask(ctx, "bob", "t1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetTask for other owner = %v, want ErrNotFound", err)
	}

	completedAt := ts(t, "2025-01-08 12:00")
	got.Status = models.TaskStatusCompleted
	got.CompletedAt = &completedAt
	if err := store.UpdateTask(ctx, got); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	open, err := store.ListTasks(ctx, owner, false)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(open) != 0 {
		t.Errorf("open tasks = %d, want 0", len(open))
	}
	all, err := store.ListTasks(ctx, owner, true)
	if err != nil {
		t.Fatalf("ListTasks(all): %v", err)
	}
	if len(all) != 1 {
		t.Errorf("all tasks = %d, want 1", len(all))
	}

	done, err := store.ListCompletedBetween(ctx, owner, ts(t, "2025-01-08 00:00"), ts(t, "2025-01-09 00:00"))
	if err != nil {
		t.Fatalf("ListCompletedBetween: %v", err)
	}
	if len(done) != 1 || done[0].ID != "t1" {
		t.Errorf("ListCompletedBetween = %+v", done)
	}
}

func TestListEventsOverlap(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	events := []models.CalendarEvent{
		{ID: "before", Title: "early", Start: ts(t, "2025-01-06 07:00"), End: ts(t, "2025-01-06 08:00"), Type: models.EventTypePersonal, Source: models.EventSourceUser},
		{ID: "straddle", Title: "straddle", Start: ts(t, "2025-01-06 08:30"), End: ts(t, "2025-01-06 09:30"), Type: models.EventTypePersonal, Source: models.EventSourceUser},
		{ID: "inside", Title: "inside", Start: ts(t, "2025-01-06 10:00"), End: ts(t, "2025-01-06 11:00"), Type: models.EventTypeStudy, Source: models.EventSourceScheduler, TaskID: "t1"},
		{ID: "after", Title: "late", Start: ts(t, "2025-01-06 12:00"), End: ts(t, "2025-01-06 13:00"), Type: models.EventTypePersonal, Source: models.EventSourceUser},
	}
	if _, err := store.ApplySchedule(ctx, storage.ScheduleChange{Owner: owner, ExpectedVersion: storage.AnyVersion, InsertEvents: events}); err != nil {
		t.Fatalf("ApplySchedule: %v", err)
	}

	got, err := store.ListEvents(ctx, owner, ts(t, "2025-01-06 09:00"), ts(t, "2025-01-06 12:00"))
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(got) != 2 || got[0].ID != "straddle" || got[1].ID != "inside" {
		t.Fatalf("ListEvents = %+v", got)
	}
	if got[1].Source != models.EventSourceScheduler || got[1].TaskID != "t1" {
		t.Errorf("event fields lost: %+v", got[1])
	}

	byTask, err := store.ListEventsForTask(ctx, owner, "t1")
	if err != nil {
		t.Fatalf("ListEventsForTask: %v", err)
	}
	if len(byTask) != 1 {
		t.Errorf("ListEventsForTask = %d events, want 1", len(byTask))
	}
}

func TestApplyScheduleVersioning(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	v0, err := store.CalendarVersion(ctx, owner)
	if err != nil {
		t.Fatalf("CalendarVersion: %v", err)
	}
	if v0 != 0 {
		t.Fatalf("initial version = %d, want 0", v0)
	}

	ev := models.CalendarEvent{ID: "e1", Title: "Study", Start: ts(t, "2025-01-06 09:00"), End: ts(t, "2025-01-06 10:00"), Type: models.EventTypeStudy, Source: models.EventSourceScheduler}
	v1, err := store.ApplySchedule(ctx, storage.ScheduleChange{Owner: owner, ExpectedVersion: v0, InsertEvents: []models.CalendarEvent{ev}})
	if err != nil {
		t.Fatalf("ApplySchedule: %v", err)
	}
	if v1 != 1 {
		t.Errorf("version after write = %d, want 1", v1)
	}

	// A writer still holding the old version must be rejected and change nothing.
	_, err = store.ApplySchedule(ctx, storage.ScheduleChange{Owner: owner, ExpectedVersion: v0, DeleteEventIDs: []string{"e1"}})
	if !errors.Is(err, storage.ErrStaleCalendar) {
		t.Fatalf("stale write = %v, want ErrStaleCalendar", err)
	}
	events, _ := store.ListEventsForTask(ctx, owner, "")
	if len(events) != 1 {
		t.Errorf("stale write modified calendar: %d events", len(events))
	}

	// Task-only changes leave the calendar version alone.
	v2, err := store.ApplySchedule(ctx, storage.ScheduleChange{
		Owner:           owner,
		ExpectedVersion: v1,
		UpsertTasks:     []models.Task{{ID: "t1", OwnerID: owner, Title: "x", EstimatedDurationMin: 30}},
	})
	if err != nil {
		t.Fatalf("task-only ApplySchedule: %v", err)
	}
	if v2 != v1 {
		t.Errorf("task-only write bumped version to %d", v2)
	}
}

func TestApplyScheduleRollsBack(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	ev := models.CalendarEvent{ID: "dup", Title: "Study", Start: ts(t, "2025-01-06 09:00"), End: ts(t, "2025-01-06 10:00"), Type: models.EventTypeStudy, Source: models.EventSourceScheduler}
	_, err := store.ApplySchedule(ctx, storage.ScheduleChange{
		Owner:           owner,
		ExpectedVersion: storage.AnyVersion,
		InsertEvents:    []models.CalendarEvent{ev, ev},
		UpsertTasks:     []models.Task{{ID: "t1", OwnerID: owner, Title: "x", EstimatedDurationMin: 30}},
	})
	if err == nil {
		t.Fatal("expected duplicate primary key error")
	}

	if _, err := store.GetTask(ctx, owner, "t1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("task written despite failed transaction: %v", err)
	}
	if v, _ := store.CalendarVersion(ctx, owner); v != 0 {
		t.Errorf("version = %d after rollback, want 0", v)
	}
}

func TestApplyScheduleConcurrentWriters(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	const writers = 5
	base := ts(t, "2025-01-06 09:00")
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := base.Add(time.Duration(i) * time.Hour)
			_, errs[i] = store.ApplySchedule(ctx, storage.ScheduleChange{
				Owner:           owner,
				ExpectedVersion: 0,
				InsertEvents: []models.CalendarEvent{{
					Title: "Study", Start: start, End: start.Add(time.Hour),
					Type: models.EventTypeStudy, Source: models.EventSourceScheduler,
				}},
			})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, storage.ErrStaleCalendar):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("%d writers succeeded against the same version, want 1", ok)
	}
}

func TestReviewSessions(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	sessions := []models.ReviewSession{
		{ID: "r1", OwnerID: owner, TaskID: "t1", Kind: models.ReviewKindSpaced, ScheduledDate: ts(t, "2025-01-07 09:00"), Status: models.ReviewStatusPending},
		{ID: "r2", OwnerID: owner, TaskID: "t1", Kind: models.ReviewKindSpaced, ScheduledDate: ts(t, "2025-01-12 09:00"), Status: models.ReviewStatusPending},
		{ID: "r3", OwnerID: owner, TaskID: "recall", Kind: models.ReviewKindActiveRecall, ScheduledDate: ts(t, "2025-01-08 10:00"), Status: models.ReviewStatusPending, SourceTaskIDs: []string{"t1", "t2"}},
	}
	if _, err := store.ApplySchedule(ctx, storage.ScheduleChange{Owner: owner, ExpectedVersion: storage.AnyVersion, UpsertReviews: sessions}); err != nil {
		t.Fatalf("ApplySchedule: %v", err)
	}

	q := 4
	done := sessions[0]
	done.Status = models.ReviewStatusCompleted
	done.Quality = &q
	if _, err := store.ApplySchedule(ctx, storage.ScheduleChange{Owner: owner, ExpectedVersion: storage.AnyVersion, UpsertReviews: []models.ReviewSession{done}}); err != nil {
		t.Fatalf("ApplySchedule(update): %v", err)
	}

	got, err := store.GetReviewSession(ctx, owner, "r1")
	if err != nil {
		t.Fatalf("GetReviewSession: %v", err)
	}
	if got.Status != models.ReviewStatusCompleted || got.Quality == nil || *got.Quality != 4 {
		t.Errorf("got %+v", got)
	}

	pending, err := store.ListReviewSessions(ctx, owner, models.ReviewStatusPending)
	if err != nil {
		t.Fatalf("ListReviewSessions: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != "r3" || pending[1].ID != "r2" {
		t.Errorf("pending = %+v", pending)
	}
	if len(pending[0].SourceTaskIDs) != 2 {
		t.Errorf("SourceTaskIDs = %v", pending[0].SourceTaskIDs)
	}

	forTask, err := store.ListReviewSessionsForTask(ctx, owner, "t1")
	if err != nil {
		t.Fatalf("ListReviewSessionsForTask: %v", err)
	}
	if len(forTask) != 2 {
		t.Errorf("ListReviewSessionsForTask = %d, want 2", len(forTask))
	}

	if _, err := store.GetReviewSession(ctx, owner, "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("missing session = %v, want ErrNotFound", err)
	}
}
