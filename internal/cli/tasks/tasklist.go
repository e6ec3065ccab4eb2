package tasks

import (
	"fmt"

	"github.com/julianstephens/studyplan/internal/cli"
	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
)

type TaskListCmd struct {
	All     bool `short:"a" help:"Include completed tasks."`
	ShowIDs bool `help:"Show task IDs." name:"show-ids"`
}

func (c *TaskListCmd) Run(ctx *cli.Context) error {
	loc, err := ctx.Location(ctx.Ctx())
	if err != nil {
		return err
	}
	settings, err := ctx.Settings(ctx.Ctx())
	if err != nil {
		return err
	}

	tasks, err := ctx.Store.ListTasks(ctx.Ctx(), ctx.Owner, c.All)
	if err != nil {
		return fmt.Errorf("failed to get tasks: %w", err)
	}
	if len(tasks) == 0 {
		ctx.Printf("No tasks found\n")
		return nil
	}

	now := ctx.Clock()
	ctx.Printf("%s\n", cli.HeaderStyle.Render("Tasks:"))
	for _, task := range tasks {
		idStr := ""
		if c.ShowIDs {
			idStr = fmt.Sprintf(" (ID: %s)", task.ID)
		}
		subject := task.SubjectKey(constants.GeneralSubject)

		ctx.Printf("  %s [%s] %s%s - %dm (%s, %s, difficulty %d)\n",
			cli.Swatch(settings.ColorFor(task.Subject)),
			task.Status, task.Title, idStr, task.EstimatedDurationMin,
			subject, task.Priority, task.Difficulty)

		if task.DueDate != nil {
			due := "      Due: " + task.DueDate.In(loc).Format(constants.DateFormat+" "+constants.TimeFormat)
			if task.Status != models.TaskStatusCompleted && task.IsOverdue(now) {
				due = cli.DangerStyle.Render(due + " (overdue)")
			}
			ctx.Printf("%s\n", due)
		}
		if task.ScheduledStart != nil && task.ScheduledEnd != nil {
			ctx.Printf("      Scheduled: %s - %s\n",
				task.ScheduledStart.In(loc).Format(constants.DateFormat+" "+constants.TimeFormat),
				task.ScheduledEnd.In(loc).Format(constants.DateFormat+" "+constants.TimeFormat))
		}
		if task.NextReviewDate != nil {
			ctx.Printf("      Next review: %s\n", task.NextReviewDate.In(loc).Format(constants.DateFormat))
		}
	}

	return nil
}
