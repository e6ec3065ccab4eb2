package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Italic(true)

	DangerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	fixedStyle = lipgloss.NewStyle().Underline(true)
)

// Swatch renders a coloured block for an event or subject colour.
func Swatch(color string) string {
	if color == "" {
		color = constants.DefaultColor
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("■")
}

// EventLine renders one calendar event as "HH:MM-HH:MM ■ title [type]".
func EventLine(ev models.CalendarEvent, loc *time.Location) string {
	title := ev.Title
	if ev.Fixed {
		title = fixedStyle.Render(title)
	}
	if ev.Type == models.EventTypeBreak {
		title = MutedStyle.Render(title)
	}
	line := fmt.Sprintf("%s-%s %s %s",
		ev.Start.In(loc).Format(constants.TimeFormat),
		ev.End.In(loc).Format(constants.TimeFormat),
		Swatch(ev.Color),
		title)
	if ev.Source == models.EventSourceUser {
		return line + MutedStyle.Render(" [fixed by you]")
	}
	return line + MutedStyle.Render(fmt.Sprintf(" [%s]", ev.Type))
}

// PrintDays prints events grouped under a header per local day.
func PrintDays(c *Context, events []models.CalendarEvent, loc *time.Location) {
	day := ""
	for _, ev := range events {
		d := ev.Start.In(loc).Format("Mon 2006-01-02")
		if d != day {
			if day != "" {
				c.Printf("\n")
			}
			c.Printf("%s\n", HeaderStyle.Render(d))
			day = d
		}
		c.Printf("  %s\n", EventLine(ev, loc))
	}
}
