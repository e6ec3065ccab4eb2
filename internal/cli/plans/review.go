package plans

import (
	"fmt"

	"github.com/julianstephens/studyplan/internal/cli"
	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
)

type ReviewListCmd struct {
	All bool `short:"a" help:"Include rated sessions."`
}

func (c *ReviewListCmd) Run(ctx *cli.Context) error {
	loc, err := ctx.Location(ctx.Ctx())
	if err != nil {
		return err
	}

	status := models.ReviewStatusPending
	if c.All {
		status = ""
	}
	sessions, err := ctx.Store.ListReviewSessions(ctx.Ctx(), ctx.Owner, status)
	if err != nil {
		return fmt.Errorf("failed to get reviews: %w", err)
	}
	if len(sessions) == 0 {
		ctx.Printf("No reviews due\n")
		return nil
	}

	now := ctx.Clock()
	ctx.Printf("%s\n", cli.HeaderStyle.Render("Reviews:"))
	for _, rs := range sessions {
		when := rs.ScheduledDate.In(loc).Format(constants.DateFormat + " " + constants.TimeFormat)
		line := fmt.Sprintf("  %s  %s (ID: %s)", when, title(ctx, rs), rs.ID)
		switch {
		case rs.Status == models.ReviewStatusCompleted && rs.Quality != nil:
			line += cli.MutedStyle.Render(fmt.Sprintf(" rated %d", *rs.Quality))
		case rs.ScheduledDate.Before(now):
			line = cli.WarningStyle.Render(line + " due")
		}
		ctx.Printf("%s\n", line)
	}
	return nil
}

func title(ctx *cli.Context, rs models.ReviewSession) string {
	if rs.Title != "" {
		return rs.Title
	}
	task, err := ctx.Store.GetTask(ctx.Ctx(), ctx.Owner, rs.TaskID)
	if err != nil {
		return constants.TitleReviewPrefix + rs.TaskID
	}
	return constants.TitleReviewPrefix + task.Title
}

type ReviewRateCmd struct {
	ID      string `arg:"" help:"Review session ID."`
	Quality int    `arg:"" help:"Recall quality from 0 (blackout) to 5 (perfect)."`
}

func (c *ReviewRateCmd) Run(ctx *cli.Context) error {
	loc, err := ctx.Location(ctx.Ctx())
	if err != nil {
		return err
	}

	rating, err := ctx.Planner.RateReview(ctx.Ctx(), ctx.Owner, c.ID, c.Quality, ctx.Clock())
	if err != nil {
		return fmt.Errorf("failed to rate review: %w", err)
	}

	ctx.Printf("✓ Rated %d: %s\n", c.Quality, title(ctx, rating.Session))
	ctx.Printf("  Easiness %.2f, repetition %d, next interval %d day(s)\n",
		rating.State.EasinessFactor, rating.State.RepetitionCount, rating.State.IntervalDays)
	if rating.FollowUp != nil {
		ctx.Printf("  Next review: %s\n", rating.FollowUp.ScheduledDate.In(loc).Format(constants.DateFormat+" "+constants.TimeFormat))
	}
	return nil
}
