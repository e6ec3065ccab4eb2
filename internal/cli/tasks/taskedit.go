package tasks

import (
	"fmt"
	"strings"

	"github.com/julianstephens/studyplan/internal/cli"
	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/utils"
)

type TaskEditCmd struct {
	ID          string  `arg:"" help:"Task ID."`
	Title       *string `help:"New title."`
	Duration    *int    `short:"d" help:"New estimated duration in minutes."`
	Subject     *string `short:"s" help:"New subject."`
	Priority    *string `short:"p" help:"New priority (low|medium|high)." enum:"low,medium,high"`
	Difficulty  *int    `short:"D" help:"New difficulty (1-10)."`
	Due         *string `help:"New deadline: YYYY-MM-DD or 'YYYY-MM-DD HH:MM'."`
	ClearDue    bool    `help:"Remove the deadline." name:"clear-due"`
	Description *string `help:"New notes."`
}

func (c *TaskEditCmd) Run(ctx *cli.Context) error {
	task, err := ctx.Store.GetTask(ctx.Ctx(), ctx.Owner, c.ID)
	if err != nil {
		return fmt.Errorf("failed to find task: %w", err)
	}

	if c.Title != nil {
		task.Title = strings.TrimSpace(*c.Title)
	}
	if c.Duration != nil {
		if *c.Duration <= 0 {
			return fmt.Errorf("duration must be positive")
		}
		if *c.Duration > task.EstimatedDurationMin && task.Status == models.TaskStatusScheduled {
			// Back to the backlog so the next run places the extra time.
			task.Status = models.TaskStatusPending
		}
		task.EstimatedDurationMin = *c.Duration
	}
	if c.Subject != nil {
		task.Subject = strings.TrimSpace(*c.Subject)
	}
	if c.Priority != nil {
		task.Priority = models.ParsePriority(*c.Priority)
	}
	if c.Difficulty != nil {
		if *c.Difficulty < constants.MinDifficulty || *c.Difficulty > constants.MaxDifficulty {
			return fmt.Errorf("difficulty must be between %d and %d", constants.MinDifficulty, constants.MaxDifficulty)
		}
		task.Difficulty = *c.Difficulty
	}
	if c.Description != nil {
		task.Description = *c.Description
	}

	switch {
	case c.ClearDue && c.Due != nil:
		return fmt.Errorf("--due and --clear-due cannot be combined")
	case c.ClearDue:
		task.DueDate = nil
	case c.Due != nil:
		loc, err := ctx.Location(ctx.Ctx())
		if err != nil {
			return err
		}
		due, err := utils.ParseDeadline(*c.Due, loc)
		if err != nil {
			return err
		}
		task.DueDate = &due
	}

	if err := task.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	if err := ctx.Store.UpdateTask(ctx.Ctx(), task); err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	ctx.Printf("Task updated: %s\n", task.Title)
	if c.Duration != nil || c.Due != nil || c.ClearDue {
		ctx.Printf("Run '%s schedule' to place the change.\n", constants.AppName)
	}
	return nil
}
