package system

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/julianstephens/studyplan/internal/cli"
	"github.com/julianstephens/studyplan/internal/keyring"
	"github.com/julianstephens/studyplan/internal/storage"
)

type InitCmd struct {
	Force  bool   `help:"Force reset by deleting existing database before initialization."`
	Source string `help:"Source database path or connection string to copy data from ('keyring' reads it from the OS keyring)."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if c.Force {
		dbPath := ctx.Store.GetConfigPath()
		if dbPath == "postgresql" {
			return fmt.Errorf("--force only resets SQLite databases; drop the PostgreSQL schema yourself")
		}
		// Don't delete if it's the source (user error protection)
		if c.Source != "" {
			if abs, err := filepath.Abs(dbPath); err == nil {
				dbPath = abs
			}
			if absSource, err := filepath.Abs(cli.ExpandPath(c.Source)); err == nil && absSource == dbPath {
				return fmt.Errorf("cannot use --force when source and destination are the same: %s", dbPath)
			}
		}
		if _, err := os.Stat(dbPath); err == nil {
			// Close first to prevent file locking issues
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			if err := os.Remove(dbPath); err != nil {
				return fmt.Errorf("failed to delete existing database: %w", err)
			}
			ctx.Printf("Deleted existing database at: %s\n", dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	if err := ctx.Store.Init(ctx.Ctx()); err != nil {
		return err
	}
	ctx.Printf("Initialized studyplan storage at: %s\n", ctx.Store.GetConfigPath())

	if c.Source != "" {
		ctx.Printf("Copying data from: %s\n", c.Source)
		if err := c.copyData(ctx, c.Source); err != nil {
			return fmt.Errorf("copy failed: %w", err)
		}
		ctx.Printf("Copy completed successfully!\n")
	}

	return nil
}

// copyData moves every owner's settings, tasks, calendar and reviews from
// another database. Each owner's data lands in one transaction.
func (c *InitCmd) copyData(ctx *cli.Context, source string) error {
	location, err := keyring.Resolve(source)
	if err != nil {
		return err
	}
	sourceStore, err := cli.OpenStore(location)
	if err != nil {
		return err
	}
	if err := sourceStore.Load(ctx.Ctx()); err != nil {
		return fmt.Errorf("failed to load source database: %w", err)
	}
	defer sourceStore.Close()

	bg := ctx.Ctx()
	owners, err := sourceStore.Owners(bg)
	if err != nil {
		return fmt.Errorf("failed to list owners in source: %w", err)
	}

	// Wide enough for any calendar the planner could have written.
	from := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, owner := range owners {
		ctx.Printf("  Copying %s...\n", owner)

		settings, err := sourceStore.GetSettings(bg, owner)
		switch {
		case errors.Is(err, storage.ErrNotFound):
		case err != nil:
			return fmt.Errorf("failed to get settings for %s: %w", owner, err)
		default:
			if err := ctx.Store.SaveSettings(bg, owner, settings); err != nil {
				return fmt.Errorf("failed to save settings for %s: %w", owner, err)
			}
		}

		tasks, err := sourceStore.ListTasks(bg, owner, true)
		if err != nil {
			return fmt.Errorf("failed to get tasks for %s: %w", owner, err)
		}
		events, err := sourceStore.ListEvents(bg, owner, from, to)
		if err != nil {
			return fmt.Errorf("failed to get events for %s: %w", owner, err)
		}
		reviews, err := sourceStore.ListReviewSessions(bg, owner, "")
		if err != nil {
			return fmt.Errorf("failed to get reviews for %s: %w", owner, err)
		}

		if _, err := ctx.Store.ApplySchedule(bg, storage.ScheduleChange{
			Owner:           owner,
			ExpectedVersion: storage.AnyVersion,
			InsertEvents:    events,
			UpsertTasks:     tasks,
			UpsertReviews:   reviews,
		}); err != nil {
			return fmt.Errorf("failed to copy data for %s: %w", owner, err)
		}
		ctx.Printf("    %d tasks, %d events, %d reviews\n", len(tasks), len(events), len(reviews))
	}

	return nil
}
