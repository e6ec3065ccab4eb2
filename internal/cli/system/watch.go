package system

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/julianstephens/studyplan/internal/cli"
	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/jobs"
	"github.com/julianstephens/studyplan/internal/logger"
)

// WatchCmd keeps the background jobs running until interrupted.
type WatchCmd struct {
	RecallCron  string `help:"Cron expression for booking active-recall sessions." default:"${recall_cron}"`
	HorizonCron string `help:"Cron expression for extending the planning horizon." default:"${horizon_cron}"`
	Once        bool   `help:"Run every job once for all owners and exit."`
}

func (c *WatchCmd) Run(ctx *cli.Context) error {
	if ctx.Planner == nil {
		return errors.New("planner is not configured")
	}
	loc, err := ctx.Location(ctx.Ctx())
	if err != nil {
		return err
	}

	runner, err := jobs.NewRunner(ctx.Planner, ctx.Store, jobs.Config{
		RecallCron:  c.RecallCron,
		HorizonCron: c.HorizonCron,
		Location:    loc,
	})
	if err != nil {
		return err
	}

	if c.Once {
		recallErr := runner.RunActiveRecall(ctx.Ctx())
		horizonErr := runner.RunHorizon(ctx.Ctx())
		if err := errors.Join(recallErr, horizonErr); err != nil {
			return fmt.Errorf("jobs failed: %w", err)
		}
		ctx.Printf("✓ Ran %s and %s for all owners\n", jobs.JobActiveRecall, jobs.JobHorizon)
		return nil
	}

	if err := runner.Start(ctx.Ctx()); err != nil {
		return err
	}
	defer func() {
		if err := runner.Shutdown(); err != nil {
			logger.Warn("scheduler shutdown failed", "error", err)
		}
	}()

	ctx.Printf("%s\n", cli.HeaderStyle.Render("Watching (Ctrl+C to stop)"))
	scheduled := runner.Jobs()
	names := make([]string, 0, len(scheduled))
	for name := range scheduled {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		next := "pending"
		if at := scheduled[name]; !at.IsZero() {
			next = at.In(loc).Format(constants.DateFormat + " " + constants.TimeFormat)
		}
		ctx.Printf("  %-14s next run %s\n", name, next)
	}

	<-ctx.Ctx().Done()
	ctx.Printf("Stopping at %s\n", ctx.Clock().In(loc).Format(time.Kitchen))
	return nil
}
