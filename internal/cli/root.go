package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/studyplan/internal/backup"
	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/planner"
	"github.com/julianstephens/studyplan/internal/scheduler"
	"github.com/julianstephens/studyplan/internal/storage"
	"github.com/julianstephens/studyplan/internal/utils"
)

type Context struct {
	Store   storage.Provider
	Planner *planner.Planner
	Owner   string

	// Base is the context commands run under; main cancels it on SIGINT.
	Base context.Context
	// Out receives command output. Nil means stdout.
	Out io.Writer
	// Now overrides the wall clock in tests.
	Now func() time.Time
	// Prompt overrides the interactive yes/no question in tests.
	Prompt func(title, description string) (bool, error)
}

func (c *Context) Ctx() context.Context {
	if c.Base == nil {
		return context.Background()
	}
	return c.Base
}

func (c *Context) Stdout() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *Context) Printf(format string, args ...any) {
	fmt.Fprintf(c.Stdout(), format, args...)
}

func (c *Context) Clock() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Settings returns the owner's profile, falling back to the defaults for
// owners who never saved one.
func (c *Context) Settings(ctx context.Context) (models.Settings, error) {
	settings, err := c.Store.GetSettings(ctx, c.Owner)
	if errors.Is(err, storage.ErrNotFound) {
		return models.DefaultSettings(), nil
	}
	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to get settings: %w", err)
	}
	return settings, nil
}

// Location is the owner's configured timezone, used to read and print times.
func (c *Context) Location(ctx context.Context) (*time.Location, error) {
	settings, err := c.Settings(ctx)
	if err != nil {
		return nil, err
	}
	return scheduler.New(settings).Location(), nil
}

// Backups returns the backup manager for file-backed stores, or nil.
func (c *Context) Backups() *backup.Manager {
	path := c.Store.GetConfigPath()
	if path == "" || path == "postgresql" {
		return nil
	}
	return backup.NewManager(path)
}

// Confirm asks a yes/no question on the terminal. Aborting the prompt counts as no.
func (c *Context) Confirm(title, description string) (bool, error) {
	if c.Prompt != nil {
		return c.Prompt(title, description)
	}
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	return ok, nil
}

// ConfirmReschedule returns the planner hook that guards a full reschedule.
// With yes set the planner proceeds without asking.
func (c *Context) ConfirmReschedule(yes bool) func(scheduler.Decision) (bool, error) {
	if yes {
		return nil
	}
	return func(d scheduler.Decision) (bool, error) {
		desc := fmt.Sprintf("%d min requested, %d min free before the deadline. Every future scheduled study block will be rebuilt.",
			d.Needed, d.Capacity)
		if len(d.Overdue) > 0 {
			desc += fmt.Sprintf(" %d task(s) are already overdue.", len(d.Overdue))
		}
		return c.Confirm("Rebuild the whole schedule?", desc)
	}
}

// ParseWhen reads a "YYYY-MM-DD HH:MM" instant in loc.
func ParseWhen(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(constants.DateFormat+" "+constants.TimeFormat, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q (expected YYYY-MM-DD HH:MM): %w", s, err)
	}
	return t, nil
}

// DayRange returns [from, from+days) starting at midnight of date in loc.
// An empty date means today.
func DayRange(date string, days int, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	from := utils.StartOfDay(now.In(loc))
	if date != "" {
		d, err := utils.ParseDateInLocation(date, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
		}
		from = d
	}
	if days < 1 {
		days = 1
	}
	return from, from.AddDate(0, 0, days), nil
}
