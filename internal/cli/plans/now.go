package plans

import (
	"fmt"
	"time"

	"github.com/julianstephens/studyplan/internal/cli"
	"github.com/julianstephens/studyplan/internal/constants"
)

type NowCmd struct{}

func (c *NowCmd) Run(ctx *cli.Context) error {
	loc, err := ctx.Location(ctx.Ctx())
	if err != nil {
		return err
	}

	now := ctx.Clock().In(loc)
	events, err := ctx.Store.ListEvents(ctx.Ctx(), ctx.Owner, now, now.Add(24*time.Hour))
	if err != nil {
		return fmt.Errorf("failed to get events: %w", err)
	}

	clock := now.Format(constants.TimeFormat)
	if len(events) == 0 {
		ctx.Printf("Now (%s): Free time, nothing planned in the next 24 hours\n", clock)
		return nil
	}

	first := events[0]
	if !first.Start.After(now) {
		ctx.Printf("Now (%s): You planned to be doing:\n\n", clock)
		ctx.Printf("  %s\n", cli.EventLine(first, loc))
		if len(events) > 1 {
			ctx.Printf("\nNext:\n  %s\n", cli.EventLine(events[1], loc))
		}
		return nil
	}

	ctx.Printf("Now (%s): Free time for %s\n", clock, first.Start.Sub(now).Round(time.Minute))
	ctx.Printf("\nNext:\n  %s\n", cli.EventLine(first, loc))
	return nil
}
