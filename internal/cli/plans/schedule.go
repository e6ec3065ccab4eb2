package plans

import (
	"errors"

	"github.com/julianstephens/studyplan/internal/cli"
	"github.com/julianstephens/studyplan/internal/planner"
)

type ScheduleCmd struct {
	DryRun bool `help:"Show the placement without saving it." name:"dry-run"`
	Yes    bool `short:"y" help:"Do not ask before rebuilding the whole schedule."`
}

// Run places pending backlog into the horizon. No new tasks are involved, so
// a full rebuild only happens when open tasks no longer fit.
func (c *ScheduleCmd) Run(ctx *cli.Context) error {
	loc, err := ctx.Location(ctx.Ctx())
	if err != nil {
		return err
	}

	res, err := ctx.Planner.Schedule(ctx.Ctx(), ctx.Owner, nil, planner.ScheduleOptions{
		DryRun:  c.DryRun,
		Confirm: ctx.ConfirmReschedule(c.Yes),
	})
	if errors.Is(err, planner.ErrCancelled) {
		ctx.Printf("Cancelled, nothing changed.\n")
		return nil
	}
	if err != nil {
		return err
	}

	cli.PrintResult(ctx, res, loc, c.DryRun)
	return nil
}
