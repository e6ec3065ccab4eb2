package system

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/studyplan/internal/cli"
	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/scheduler"
	"github.com/julianstephens/studyplan/internal/storage"
	"github.com/julianstephens/studyplan/internal/utils"
)

type DebugCmd struct {
	DBPath       *DebugDBPathCmd       `cmd:"" help:"Show database path."`
	DumpDay      *DebugDumpDayCmd      `cmd:"" help:"Dump one day's calendar events as JSON."`
	DumpTask     *DebugDumpTaskCmd     `cmd:"" help:"Dump task data as JSON."`
	DumpReview   *DebugDumpReviewCmd   `cmd:"" help:"Dump review session data as JSON."`
	DumpSettings *DebugDumpSettingsCmd `cmd:"" help:"Dump settings data as JSON."`
	Slots        *DebugSlotsCmd        `cmd:"" help:"Dump the free slots the scheduler sees for a day, best first."`
}

func printJSON(ctx *cli.Context, v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	ctx.Printf("%s\n", jsonBytes)
	return nil
}

type DebugDBPathCmd struct{}

func (cmd *DebugDBPathCmd) Run(ctx *cli.Context) error {
	return printJSON(ctx, map[string]string{
		"path":  ctx.Store.GetConfigPath(),
		"owner": ctx.Owner,
	})
}

type DebugDumpDayCmd struct {
	Date string `arg:"" optional:"" help:"Day to dump (YYYY-MM-DD or 'today')." default:"today"`
}

func (cmd *DebugDumpDayCmd) Run(ctx *cli.Context) error {
	loc, err := ctx.Location(ctx.Ctx())
	if err != nil {
		return err
	}

	date := cmd.Date
	if date == "today" {
		date = getCurrentDate(ctx.Clock(), loc)
	}
	if !isValidDate(date) {
		return fmt.Errorf("invalid date format: %s (expected YYYY-MM-DD or 'today')", date)
	}

	from, to, err := cli.DayRange(date, 1, ctx.Clock(), loc)
	if err != nil {
		return err
	}
	events, err := ctx.Store.ListEvents(ctx.Ctx(), ctx.Owner, from, to)
	if err != nil {
		return fmt.Errorf("failed to get events: %w", err)
	}
	version, err := ctx.Store.CalendarVersion(ctx.Ctx(), ctx.Owner)
	if err != nil {
		return fmt.Errorf("failed to get calendar version: %w", err)
	}

	return printJSON(ctx, map[string]any{
		"date":             date,
		"calendar_version": version,
		"events":           events,
	})
}

type DebugDumpTaskCmd struct {
	ID string `arg:"" help:"ID of the task to dump."`
}

func (cmd *DebugDumpTaskCmd) Run(ctx *cli.Context) error {
	task, err := ctx.Store.GetTask(ctx.Ctx(), ctx.Owner, cmd.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("task not found: %s", cmd.ID)
		}
		return fmt.Errorf("failed to get task: %w", err)
	}
	events, err := ctx.Store.ListEventsForTask(ctx.Ctx(), ctx.Owner, cmd.ID)
	if err != nil {
		return fmt.Errorf("failed to get task events: %w", err)
	}
	reviews, err := ctx.Store.ListReviewSessionsForTask(ctx.Ctx(), ctx.Owner, cmd.ID)
	if err != nil {
		return fmt.Errorf("failed to get task reviews: %w", err)
	}

	return printJSON(ctx, map[string]any{
		"task":    task,
		"events":  events,
		"reviews": reviews,
	})
}

type DebugDumpReviewCmd struct {
	ID string `arg:"" help:"ID of the review session to dump."`
}

func (cmd *DebugDumpReviewCmd) Run(ctx *cli.Context) error {
	rs, err := ctx.Store.GetReviewSession(ctx.Ctx(), ctx.Owner, cmd.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("review session not found: %s", cmd.ID)
		}
		return fmt.Errorf("failed to get review session: %w", err)
	}
	return printJSON(ctx, rs)
}

type DebugDumpSettingsCmd struct{}

func (cmd *DebugDumpSettingsCmd) Run(ctx *cli.Context) error {
	settings, err := ctx.Settings(ctx.Ctx())
	if err != nil {
		return err
	}
	return printJSON(ctx, settings)
}

type DebugSlotsCmd struct {
	Date string `arg:"" optional:"" help:"Day to inspect (YYYY-MM-DD or 'today')." default:"today"`
}

func (cmd *DebugSlotsCmd) Run(ctx *cli.Context) error {
	settings, err := ctx.Settings(ctx.Ctx())
	if err != nil {
		return err
	}
	sched := scheduler.New(settings)
	loc := sched.Location()

	date := cmd.Date
	if date == "today" {
		date = getCurrentDate(ctx.Clock(), loc)
	}
	from, to, err := cli.DayRange(date, 1, ctx.Clock(), loc)
	if err != nil {
		return err
	}
	events, err := ctx.Store.ListEvents(ctx.Ctx(), ctx.Owner, from.Add(-constants.SpacingLookback), to)
	if err != nil {
		return fmt.Errorf("failed to get events: %w", err)
	}

	ranked := sched.Rank(sched.FindSlots(from, to, ctx.Clock(), events))
	return printJSON(ctx, map[string]any{
		"date":        date,
		"corrections": sched.Corrections(),
		"slots":       ranked,
	})
}

func getCurrentDate(now time.Time, loc *time.Location) string {
	return utils.StartOfDay(now.In(loc)).Format(constants.DateFormat)
}

func isValidDate(dateStr string) bool {
	_, err := time.Parse(constants.DateFormat, dateStr)
	return err == nil
}
