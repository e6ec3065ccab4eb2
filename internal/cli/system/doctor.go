package system

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/studyplan/internal/cli"
	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/scheduler"
	"github.com/julianstephens/studyplan/internal/storage"
	"github.com/julianstephens/studyplan/internal/validation"
)

// errWarning marks a check result that is reported but does not fail doctor.
var errWarning = errors.New("warning")

type check struct {
	name    string
	needsDB bool
	run     func(*cli.Context) error
}

type DoctorCmd struct{}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	ctx.Printf("Running diagnostics...\n\n")

	checks := []check{
		{"Database reachable", false, checkDBReachable},
		{"Schema version", true, checkSchemaVersion},
		{"Backups present", false, checkBackupsPresent},
		{"Settings", true, checkSettings},
		{"Task data", true, checkTasks},
		{"Calendar", true, checkCalendar},
		{"Review sessions", true, checkReviews},
		{"Clock/timezone", false, func(*cli.Context) error { return checkClockTimezone() }},
	}

	hasError := false
	dbReachable := false
	for i, c := range checks {
		if c.needsDB && !dbReachable {
			ctx.Printf("⊘ %s: SKIPPED (database not reachable)\n", c.name)
			continue
		}
		err := c.run(ctx)
		switch {
		case err == nil:
			ctx.Printf("✓ %s: OK\n", c.name)
			if i == 0 {
				dbReachable = true
			}
		case errors.Is(err, errWarning):
			ctx.Printf("⚠ %s: WARNING\n", c.name)
			ctx.Printf("   %s\n", strings.TrimSuffix(err.Error(), ": "+errWarning.Error()))
		default:
			ctx.Printf("❌ %s: FAIL\n", c.name)
			ctx.Printf("   Error: %v\n", err)
			hasError = true
		}
	}

	ctx.Printf("\n")
	if hasError {
		ctx.Printf("Some checks failed. Please review the errors above.\n")
		return errors.New("diagnostics failed")
	}
	ctx.Printf("All checks passed!\n")
	return nil
}

func maintainer(ctx *cli.Context) (storage.Maintainer, error) {
	m, ok := ctx.Store.(storage.Maintainer)
	if !ok {
		return nil, fmt.Errorf("storage backend does not support diagnostics")
	}
	return m, nil
}

func checkDBReachable(ctx *cli.Context) error {
	m, err := maintainer(ctx)
	if err != nil {
		return err
	}
	if err := m.Open(ctx.Ctx()); err != nil {
		return err
	}
	return m.Ping(ctx.Ctx())
}

func checkSchemaVersion(ctx *cli.Context) error {
	m, err := maintainer(ctx)
	if err != nil {
		return err
	}
	current, latest, err := m.SchemaVersion(ctx.Ctx())
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if current > latest {
		return fmt.Errorf("database schema version (%d) is newer than supported version (%d)", current, latest)
	}
	if current < latest {
		return fmt.Errorf("migrations incomplete: at version %d of %d, run '%s migrate'", current, latest, constants.AppName)
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	mgr := ctx.Backups()
	if mgr == nil {
		return fmt.Errorf("backups are not managed for PostgreSQL: %w", errWarning)
	}
	backups, err := mgr.ListBackups()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found in %s: %w", mgr.GetBackupDir(), errWarning)
	}
	return nil
}

func owners(ctx *cli.Context) ([]string, error) {
	list, err := ctx.Store.Owners(ctx.Ctx())
	if err != nil {
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}
	return list, nil
}

// checkSettings reports profiles the scheduler would have to correct.
func checkSettings(ctx *cli.Context) error {
	list, err := owners(ctx)
	if err != nil {
		return err
	}
	var notes []string
	for _, owner := range list {
		settings, err := ctx.Store.GetSettings(ctx.Ctx(), owner)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("settings for %s: %w", owner, err)
		}
		for _, fix := range settings.Normalize() {
			notes = append(notes, owner+": "+fix)
		}
	}
	if len(notes) > 0 {
		return fmt.Errorf("%s: %w", strings.Join(notes, "; "), errWarning)
	}
	return nil
}

func checkTasks(ctx *cli.Context) error {
	list, err := owners(ctx)
	if err != nil {
		return err
	}
	for _, owner := range list {
		tasks, err := ctx.Store.ListTasks(ctx.Ctx(), owner, true)
		if err != nil {
			return fmt.Errorf("failed to get tasks for %s: %w", owner, err)
		}
		for _, t := range tasks {
			if err := t.Validate(); err != nil {
				return fmt.Errorf("task %s (%s): %w", t.ID, owner, err)
			}
		}
	}
	return nil
}

// checkCalendar looks for overlapping events in each owner's upcoming calendar.
func checkCalendar(ctx *cli.Context) error {
	list, err := owners(ctx)
	if err != nil {
		return err
	}
	now := ctx.Clock()
	for _, owner := range list {
		settings, err := ctx.Store.GetSettings(ctx.Ctx(), owner)
		if errors.Is(err, storage.ErrNotFound) {
			settings = models.DefaultSettings()
		} else if err != nil {
			return fmt.Errorf("settings for %s: %w", owner, err)
		}
		sched := scheduler.New(settings)

		events, err := ctx.Store.ListEvents(ctx.Ctx(), owner, now, now.AddDate(0, 0, constants.MaxHorizonDays))
		if err != nil {
			return fmt.Errorf("failed to get events for %s: %w", owner, err)
		}
		tasks, err := ctx.Store.ListTasks(ctx.Ctx(), owner, false)
		if err != nil {
			return fmt.Errorf("failed to get tasks for %s: %w", owner, err)
		}

		wake, sleep := sched.WakeWindow()
		result := validation.New(wake, sleep, sched.Location()).ValidateSchedule(events, tasks)
		if blocking := result.Blocking(); len(blocking) > 0 {
			return fmt.Errorf("%s: %d conflict(s), first: %s", owner, len(blocking), blocking[0].Description)
		}
	}
	return nil
}

// checkReviews finds review sessions whose task no longer exists.
func checkReviews(ctx *cli.Context) error {
	list, err := owners(ctx)
	if err != nil {
		return err
	}
	for _, owner := range list {
		sessions, err := ctx.Store.ListReviewSessions(ctx.Ctx(), owner, models.ReviewStatusPending)
		if err != nil {
			return fmt.Errorf("failed to get reviews for %s: %w", owner, err)
		}
		for _, rs := range sessions {
			if rs.TaskID == "" {
				continue
			}
			if _, err := ctx.Store.GetTask(ctx.Ctx(), owner, rs.TaskID); errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("review %s points at missing task %s", rs.ID, rs.TaskID)
			} else if err != nil {
				return err
			}
		}
	}
	return nil
}

func checkClockTimezone() error {
	now := time.Now()
	if now.Year() < 2020 {
		return fmt.Errorf("system clock reads %s", now.Format(time.RFC3339))
	}
	if now.Location() == nil {
		return fmt.Errorf("system timezone is not set")
	}
	return nil
}
