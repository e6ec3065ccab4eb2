package system

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/studyplan/internal/cli"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/storage"
	"github.com/julianstephens/studyplan/internal/storage/sqlite"
)

func setupTestDoctorDB(t *testing.T) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store := sqlite.NewStore(dbPath)
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	out := &bytes.Buffer{}
	return &cli.Context{Store: store, Owner: "local", Out: out}, out
}

// rawExec runs SQL against the database file outside the store.
func rawExec(t *testing.T, ctx *cli.Context, query string, args ...any) {
	t.Helper()
	db, err := sql.Open("sqlite", ctx.Store.GetConfigPath())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

func TestDoctorCmd_HealthyDB(t *testing.T) {
	ctx, out := setupTestDoctorDB(t)

	if err := (&DoctorCmd{}).Run(ctx); err != nil {
		t.Errorf("doctor command failed on healthy database: %v\n%s", err, out.String())
	}
	// Missing backups is a warning, not a failure
	if !strings.Contains(out.String(), "⚠ Backups present: WARNING") {
		t.Errorf("expected backup warning:\n%s", out.String())
	}
}

func TestDoctorCmd_WithBackups(t *testing.T) {
	ctx, out := setupTestDoctorDB(t)

	if _, err := ctx.Backups().CreateBackup(context.Background(), ""); err != nil {
		t.Fatalf("failed to create backup: %v", err)
	}
	if err := (&DoctorCmd{}).Run(ctx); err != nil {
		t.Errorf("doctor command failed with backups present: %v", err)
	}
	if !strings.Contains(out.String(), "✓ Backups present: OK") {
		t.Errorf("backups not detected:\n%s", out.String())
	}
}

func TestDoctorCmd_BrokenSchema(t *testing.T) {
	ctx, _ := setupTestDoctorDB(t)

	rawExec(t, ctx, "DELETE FROM schema_version")
	rawExec(t, ctx, "INSERT INTO schema_version (version) VALUES (999)")

	if err := (&DoctorCmd{}).Run(ctx); err == nil {
		t.Error("doctor command should fail with corrupted schema")
	}
}

func TestCheckSchemaVersion_Incomplete(t *testing.T) {
	ctx, _ := setupTestDoctorDB(t)
	m := ctx.Store.(storage.Maintainer)

	current, _, err := m.SchemaVersion(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if current < 1 {
		t.Skip("no migrations to roll back")
	}
	rawExec(t, ctx, "DELETE FROM schema_version")
	rawExec(t, ctx, "INSERT INTO schema_version (version) VALUES (?)", current-1)

	err = checkSchemaVersion(ctx)
	if err == nil || !strings.Contains(err.Error(), "migrate") {
		t.Errorf("checkSchemaVersion = %v, want a hint to migrate", err)
	}
}

func TestCheckCalendar_Overlap(t *testing.T) {
	ctx, _ := setupTestDoctorDB(t)
	bg := context.Background()

	start := time.Now().Add(48 * time.Hour).Truncate(time.Hour)
	events := []models.CalendarEvent{
		{ID: "a", OwnerID: "local", Title: "Lecture", Start: start, End: start.Add(time.Hour), Type: models.EventTypePersonal, Source: models.EventSourceUser},
		{ID: "b", OwnerID: "local", Title: "Study", Start: start.Add(30 * time.Minute), End: start.Add(90 * time.Minute), Type: models.EventTypeStudy, Source: models.EventSourceScheduler},
	}
	if _, err := ctx.Store.ApplySchedule(bg, storage.ScheduleChange{
		Owner:           "local",
		ExpectedVersion: storage.AnyVersion,
		InsertEvents:    events,
	}); err != nil {
		t.Fatal(err)
	}

	if err := checkCalendar(ctx); err == nil {
		t.Error("checkCalendar should report overlapping events")
	}
}

func TestCheckReviews_MissingTask(t *testing.T) {
	ctx, _ := setupTestDoctorDB(t)

	if _, err := ctx.Store.ApplySchedule(context.Background(), storage.ScheduleChange{
		Owner:           "local",
		ExpectedVersion: storage.AnyVersion,
		UpsertReviews: []models.ReviewSession{{
			ID: "r1", OwnerID: "local", TaskID: "gone", Kind: models.ReviewKindSpaced,
			ScheduledDate: time.Now().Add(24 * time.Hour), Status: models.ReviewStatusPending,
		}},
	}); err != nil {
		t.Fatal(err)
	}

	if err := checkReviews(ctx); err == nil {
		t.Error("checkReviews should report a review without its task")
	}
}

func TestCheckClockTimezone(t *testing.T) {
	if err := checkClockTimezone(); err != nil {
		t.Errorf("clock/timezone check failed: %v", err)
	}
}
