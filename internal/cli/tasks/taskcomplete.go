package tasks

import (
	"fmt"

	"github.com/julianstephens/studyplan/internal/cli"
	"github.com/julianstephens/studyplan/internal/constants"
)

type TaskCompleteCmd struct {
	ID string `arg:"" help:"Task ID."`
}

func (c *TaskCompleteCmd) Run(ctx *cli.Context) error {
	loc, err := ctx.Location(ctx.Ctx())
	if err != nil {
		return err
	}

	done, err := ctx.Planner.CompleteTask(ctx.Ctx(), ctx.Owner, c.ID, ctx.Clock())
	if err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}

	ctx.Printf("✓ Completed: %s\n", done.Task.Title)
	if done.Released > 0 {
		ctx.Printf("  Freed %d scheduled block(s)\n", done.Released)
	}
	if len(done.Reviews) > 0 {
		ctx.Printf("  Reviews booked:\n")
		for _, rs := range done.Reviews {
			ctx.Printf("    %s\n", rs.ScheduledDate.In(loc).Format(constants.DateFormat+" "+constants.TimeFormat))
		}
	}
	return nil
}
