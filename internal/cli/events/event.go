package events

import (
	"fmt"
	"time"

	"github.com/julianstephens/studyplan/internal/cli"
	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
)

type EventAddCmd struct {
	Title       string `arg:"" help:"Event title."`
	Start       string `short:"s" help:"Start, 'YYYY-MM-DD HH:MM'." required:""`
	End         string `short:"e" help:"End, 'YYYY-MM-DD HH:MM'." xor:"length"`
	Duration    int    `short:"d" help:"Length in minutes." xor:"length"`
	Type        string `short:"t" help:"Event type (personal|study)." enum:"personal,study" default:"personal"`
	Color       string `help:"Hex colour for listings."`
	Description string `help:"Free-form notes."`
}

func (c *EventAddCmd) Run(ctx *cli.Context) error {
	loc, err := ctx.Location(ctx.Ctx())
	if err != nil {
		return err
	}

	start, err := cli.ParseWhen(c.Start, loc)
	if err != nil {
		return err
	}
	var end time.Time
	switch {
	case c.End != "":
		if end, err = cli.ParseWhen(c.End, loc); err != nil {
			return err
		}
	case c.Duration > 0:
		end = start.Add(time.Duration(c.Duration) * time.Minute)
	default:
		return fmt.Errorf("either --end or --duration is required")
	}

	booking, err := ctx.Planner.AddEvent(ctx.Ctx(), ctx.Owner, models.CalendarEvent{
		Title:       c.Title,
		Description: c.Description,
		Start:       start,
		End:         end,
		Type:        models.EventType(c.Type),
		Color:       c.Color,
	})
	if err != nil {
		return fmt.Errorf("failed to add event: %w", err)
	}

	ctx.Printf("✓ Added: %s\n", cli.EventLine(booking.Event, loc))
	for _, ev := range booking.Displaced {
		ctx.Printf("  moved out: %s\n", cli.EventLine(ev, loc))
	}
	for _, ev := range booking.Overlaps {
		ctx.Printf("%s\n", cli.WarningStyle.Render("  overlaps: "+ev.Title))
	}
	if len(booking.Requeued) > 0 {
		ctx.Printf("%d task(s) need new time. Run '%s schedule' to place them.\n", len(booking.Requeued), constants.AppName)
	}
	return nil
}

type EventListCmd struct {
	Date string `arg:"" optional:"" help:"First day to show (YYYY-MM-DD). Defaults to today."`
	Days int    `short:"n" help:"Number of days to show." default:"7"`
}

func (c *EventListCmd) Run(ctx *cli.Context) error {
	loc, err := ctx.Location(ctx.Ctx())
	if err != nil {
		return err
	}
	from, to, err := cli.DayRange(c.Date, c.Days, ctx.Clock(), loc)
	if err != nil {
		return err
	}

	evs, err := ctx.Store.ListEvents(ctx.Ctx(), ctx.Owner, from, to)
	if err != nil {
		return fmt.Errorf("failed to get events: %w", err)
	}
	if len(evs) == 0 {
		ctx.Printf("No events between %s and %s\n", from.Format(constants.DateFormat), to.AddDate(0, 0, -1).Format(constants.DateFormat))
		return nil
	}

	cli.PrintDays(ctx, evs, loc)

	study := 0
	for _, ev := range evs {
		if ev.Type == models.EventTypeStudy {
			study += int(ev.Duration() / time.Minute)
		}
	}
	ctx.Printf("\n%s\n", cli.MutedStyle.Render(fmt.Sprintf("%d events, %d min of study", len(evs), study)))
	return nil
}
