package cli

import (
	"time"

	"github.com/julianstephens/studyplan/internal/planner"
)

// PrintResult reports a scheduling run: the strategy, the new events and any
// time that could not be placed.
func PrintResult(c *Context, res planner.Result, loc *time.Location, dryRun bool) {
	for _, fix := range res.Corrections {
		c.Printf("%s\n", WarningStyle.Render("settings: "+fix))
	}

	switch {
	case dryRun:
		c.Printf("Dry run, nothing saved. %s\n", res.Summary())
	case res.Applied:
		c.Printf("✓ %s\n", res.Summary())
	default:
		c.Printf("Nothing to schedule.\n")
	}
	if res.Backup != "" {
		c.Printf("  Backup saved to %s\n", res.Backup)
	}

	if len(res.Placement.Events) > 0 {
		c.Printf("\n")
		PrintDays(c, res.Placement.Events, loc)
	}

	if unplaced := res.Placement.Unplaced(); len(unplaced) > 0 {
		c.Printf("\n%s\n", WarningStyle.Render("Not enough free time before the horizon:"))
		for _, pt := range unplaced {
			c.Printf("  %s: %d of %d min placed\n", pt.Task.Title, pt.PlacedMin, pt.PlacedMin+pt.RemainingMin)
		}
	}
	for _, t := range res.Decision.Overdue {
		c.Printf("%s\n", DangerStyle.Render("❌ overdue: "+t.Title))
	}
	if res.Conflicts.HasConflicts() {
		c.Printf("\n%s", res.Conflicts.FormatReport())
	}
}
