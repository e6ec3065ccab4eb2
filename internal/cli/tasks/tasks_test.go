package tasks

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/studyplan/internal/cli"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/planner"
	"github.com/julianstephens/studyplan/internal/storage/sqlite"
)

// Monday 2026-03-02, 08:00 UTC.
var now = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*cli.Context, *sqlite.Store, *bytes.Buffer) {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "studyplan.db"))
	bg := context.Background()
	if err := store.Init(bg); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	settings := models.DefaultSettings()
	settings.Timezone = "UTC"
	if err := store.SaveSettings(bg, "alice", settings); err != nil {
		t.Fatal(err)
	}

	clock := func() time.Time { return now }
	out := &bytes.Buffer{}
	return &cli.Context{
		Store:   store,
		Planner: planner.New(store, planner.WithClock(clock)),
		Owner:   "alice",
		Out:     out,
		Now:     clock,
	}, store, out
}

func onlyTask(t *testing.T, store *sqlite.Store) models.Task {
	t.Helper()
	tasks, err := store.ListTasks(context.Background(), "alice", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	return tasks[0]
}

func TestTaskAddValidate(t *testing.T) {
	tests := []struct {
		name    string
		cmd     TaskAddCmd
		wantErr bool
	}{
		{"ok", TaskAddCmd{Title: "Essay", Duration: 30, Difficulty: 5}, false},
		{"blank title", TaskAddCmd{Title: "  ", Duration: 30, Difficulty: 5}, true},
		{"zero duration", TaskAddCmd{Title: "Essay", Difficulty: 5}, true},
		{"difficulty too high", TaskAddCmd{Title: "Essay", Duration: 30, Difficulty: 11}, true},
		{"no-schedule with dry-run", TaskAddCmd{Title: "Essay", Duration: 30, Difficulty: 5, NoSchedule: true, DryRun: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTaskAddSchedules(t *testing.T) {
	ctx, store, out := setup(t)

	cmd := &TaskAddCmd{Title: "Linear algebra", Duration: 60, Subject: "math", Priority: "high", Difficulty: 6, Due: "2026-03-06"}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("task add failed: %v", err)
	}

	task := onlyTask(t, store)
	if task.Status != models.TaskStatusScheduled {
		t.Errorf("status = %s, want scheduled", task.Status)
	}
	if task.Priority != models.PriorityHigh || task.DueDate == nil {
		t.Errorf("task = %+v", task)
	}
	if !strings.Contains(out.String(), "Added task: Linear algebra") {
		t.Errorf("output missing confirmation:\n%s", out.String())
	}
}

func TestTaskAddNoSchedule(t *testing.T) {
	ctx, store, _ := setup(t)

	if err := (&TaskAddCmd{Title: "Reading", Duration: 20, Priority: "low", Difficulty: 3, NoSchedule: true}).Run(ctx); err != nil {
		t.Fatalf("task add failed: %v", err)
	}
	if task := onlyTask(t, store); task.Status != models.TaskStatusPending {
		t.Errorf("status = %s, want pending", task.Status)
	}
	version, _ := store.CalendarVersion(context.Background(), "alice")
	if version != 0 {
		t.Errorf("calendar version = %d, nothing should have been written", version)
	}
}

func TestTaskAddDryRun(t *testing.T) {
	ctx, store, out := setup(t)

	if err := (&TaskAddCmd{Title: "Essay", Duration: 45, Priority: "medium", Difficulty: 5, DryRun: true}).Run(ctx); err != nil {
		t.Fatalf("task add failed: %v", err)
	}
	tasks, _ := store.ListTasks(context.Background(), "alice", true)
	if len(tasks) != 0 {
		t.Errorf("dry run stored %d tasks", len(tasks))
	}
	if strings.Contains(out.String(), "Added task") {
		t.Errorf("dry run claimed the task was added:\n%s", out.String())
	}
}

func TestTaskAddBadDeadline(t *testing.T) {
	ctx, _, _ := setup(t)
	if err := (&TaskAddCmd{Title: "Essay", Duration: 45, Priority: "medium", Difficulty: 5, Due: "next week"}).Run(ctx); err == nil {
		t.Fatal("expected error for unparseable deadline")
	}
}

func TestTaskList(t *testing.T) {
	ctx, _, out := setup(t)

	if err := (&TaskListCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "No tasks found") {
		t.Errorf("empty list output = %q", out.String())
	}

	if err := (&TaskAddCmd{Title: "Chemistry", Duration: 30, Priority: "medium", Difficulty: 5}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	out.Reset()
	if err := (&TaskListCmd{ShowIDs: true}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Chemistry", "ID:", "Scheduled:"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("list output missing %q:\n%s", want, out.String())
		}
	}
}

func TestTaskComplete(t *testing.T) {
	ctx, store, out := setup(t)

	if err := (&TaskAddCmd{Title: "Flashcards", Duration: 30, Priority: "medium", Difficulty: 5}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	id := onlyTask(t, store).ID

	out.Reset()
	if err := (&TaskCompleteCmd{ID: id}).Run(ctx); err != nil {
		t.Fatalf("task complete failed: %v", err)
	}
	if got := onlyTask(t, store); got.Status != models.TaskStatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if !strings.Contains(out.String(), "Completed: Flashcards") {
		t.Errorf("output = %q", out.String())
	}

	if err := (&TaskCompleteCmd{ID: "missing"}).Run(ctx); err == nil {
		t.Error("expected error for unknown task")
	}
}

func TestTaskEdit(t *testing.T) {
	ctx, store, out := setup(t)

	if err := (&TaskAddCmd{Title: "Essay", Duration: 30, Priority: "medium", Difficulty: 5}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	id := onlyTask(t, store).ID

	title := "Essay draft"
	longer := 90
	out.Reset()
	if err := (&TaskEditCmd{ID: id, Title: &title, Duration: &longer}).Run(ctx); err != nil {
		t.Fatalf("task edit failed: %v", err)
	}
	got := onlyTask(t, store)
	if got.Title != title || got.EstimatedDurationMin != 90 {
		t.Errorf("task = %+v", got)
	}
	if got.Status != models.TaskStatusPending {
		t.Errorf("status = %s, a longer estimate should return the task to pending", got.Status)
	}
	if !strings.Contains(out.String(), "schedule") {
		t.Errorf("expected a hint to reschedule:\n%s", out.String())
	}

	due := "2026-03-10"
	if err := (&TaskEditCmd{ID: id, Due: &due, ClearDue: true}).Run(ctx); err == nil {
		t.Error("expected error combining --due and --clear-due")
	}
	bad := 0
	if err := (&TaskEditCmd{ID: id, Difficulty: &bad}).Run(ctx); err == nil {
		t.Error("expected error for difficulty 0")
	}
}
