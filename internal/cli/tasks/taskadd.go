package tasks

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/julianstephens/studyplan/internal/cli"
	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/planner"
	"github.com/julianstephens/studyplan/internal/utils"
)

type TaskAddCmd struct {
	Title       string `arg:"" help:"Task title."`
	Duration    int    `short:"d" help:"Estimated study time in minutes." required:""`
	Subject     string `short:"s" help:"Subject, used for colours, spacing and interleaving."`
	Priority    string `short:"p" help:"Priority (low|medium|high)." enum:"low,medium,high" default:"medium"`
	Difficulty  int    `short:"D" help:"Difficulty (1-10)." default:"5"`
	Due         string `help:"Deadline: YYYY-MM-DD (end of day) or 'YYYY-MM-DD HH:MM'."`
	Description string `help:"Free-form notes."`
	NoSchedule  bool   `help:"Only store the task; the next 'schedule' run places it." name:"no-schedule"`
	DryRun      bool   `help:"Show where the task would go without saving anything." name:"dry-run"`
	Yes         bool   `short:"y" help:"Do not ask before rebuilding the whole schedule."`
}

func (c *TaskAddCmd) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("title cannot be empty")
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be greater than zero")
	}
	if c.Difficulty < constants.MinDifficulty || c.Difficulty > constants.MaxDifficulty {
		return fmt.Errorf("difficulty must be between %d and %d", constants.MinDifficulty, constants.MaxDifficulty)
	}
	if c.NoSchedule && c.DryRun {
		return fmt.Errorf("--no-schedule and --dry-run cannot be combined")
	}
	return nil
}

func (c *TaskAddCmd) Run(ctx *cli.Context) error {
	loc, err := ctx.Location(ctx.Ctx())
	if err != nil {
		return err
	}

	task := models.Task{
		ID:                   uuid.New().String(),
		OwnerID:              ctx.Owner,
		Title:                strings.TrimSpace(c.Title),
		Description:          c.Description,
		Subject:              strings.TrimSpace(c.Subject),
		Priority:             models.ParsePriority(c.Priority),
		Difficulty:           c.Difficulty,
		EstimatedDurationMin: c.Duration,
		Status:               models.TaskStatusPending,
		EasinessFactor:       constants.DefaultEasinessFactor,
		CreatedAt:            ctx.Clock(),
	}
	if c.Due != "" {
		due, err := utils.ParseDeadline(c.Due, loc)
		if err != nil {
			return err
		}
		task.DueDate = &due
	}
	if err := task.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	if c.NoSchedule {
		if err := ctx.Store.AddTask(ctx.Ctx(), task); err != nil {
			return err
		}
		ctx.Printf("Added task: %s (ID: %s)\n", task.Title, task.ID)
		return nil
	}

	res, err := ctx.Planner.Schedule(ctx.Ctx(), ctx.Owner, []models.Task{task}, planner.ScheduleOptions{
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

	if !c.DryRun {
		ctx.Printf("Added task: %s (ID: %s)\n", task.Title, task.ID)
	}
	cli.PrintResult(ctx, res, loc, c.DryRun)
	return nil
}
