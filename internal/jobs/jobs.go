// Package jobs runs the planner's recurring work on a cron schedule: booking
// tomorrow's active-recall sessions and topping up every owner's horizon.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/logger"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/planner"
	"github.com/julianstephens/studyplan/internal/scheduler"
)

const (
	JobActiveRecall = "active-recall"
	JobHorizon      = "horizon"
)

// Planner is the subset of planner.Planner the jobs drive.
type Planner interface {
	GenerateActiveRecall(ctx context.Context, owner string, now time.Time) ([]models.ReviewSession, error)
	Schedule(ctx context.Context, owner string, incoming []models.Task, opts planner.ScheduleOptions) (planner.Result, error)
}

type OwnerLister interface {
	Owners(ctx context.Context) ([]string, error)
}

type Config struct {
	RecallCron  string
	HorizonCron string
	Location    *time.Location
}

func (c Config) withDefaults() Config {
	if c.RecallCron == "" {
		c.RecallCron = constants.DefaultRecallCron
	}
	if c.HorizonCron == "" {
		c.HorizonCron = constants.DefaultHorizonCron
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	return c
}

type Runner struct {
	scheduler gocron.Scheduler
	planner   Planner
	owners    OwnerLister
	cfg       Config
	now       func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewRunner(p Planner, owners OwnerLister, cfg Config) (*Runner, error) {
	cfg = cfg.withDefaults()
	s, err := gocron.NewScheduler(gocron.WithLocation(cfg.Location))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Runner{scheduler: s, planner: p, owners: owners, cfg: cfg, now: time.Now}, nil
}

// Start registers both jobs and starts the scheduler. Jobs run with a context
// derived from ctx that is cancelled on Shutdown.
func (r *Runner) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	jobs := []struct {
		name string
		cron string
		run  func(context.Context) error
	}{
		{JobActiveRecall, r.cfg.RecallCron, r.RunActiveRecall},
		{JobHorizon, r.cfg.HorizonCron, r.RunHorizon},
	}
	for _, j := range jobs {
		_, err := r.scheduler.NewJob(
			gocron.CronJob(j.cron, false),
			gocron.NewTask(func() {
				if err := j.run(ctx); err != nil {
					logger.Error("job failed", "job", j.name, "err", err)
				}
			}),
			gocron.WithName(j.name),
			gocron.WithTags(constants.AppName),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			cancel()
			return fmt.Errorf("failed to register %s job (cron %q): %w", j.name, j.cron, err)
		}
		logger.Info("job registered", "job", j.name, "cron", j.cron)
	}

	r.scheduler.Start()
	return nil
}

// Jobs reports the registered jobs and their next run. Next is zero while the
// scheduler has not computed it yet.
func (r *Runner) Jobs() map[string]time.Time {
	out := map[string]time.Time{}
	for _, j := range r.scheduler.Jobs() {
		next, _ := j.NextRun()
		out[j.Name()] = next
	}
	return out
}

func (r *Runner) Shutdown() error {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()
	return r.scheduler.Shutdown()
}

// RunActiveRecall books recall sessions for every owner. One owner failing
// does not stop the others; the errors are joined.
func (r *Runner) RunActiveRecall(ctx context.Context) error {
	return r.forEachOwner(ctx, JobActiveRecall, func(owner string) error {
		sessions, err := r.planner.GenerateActiveRecall(ctx, owner, r.now())
		if err != nil {
			return err
		}
		logger.Debug("active recall done", "owner", owner, "sessions", len(sessions))
		return nil
	})
}

// RunHorizon places backlog tasks into newly opened days for every owner.
func (r *Runner) RunHorizon(ctx context.Context) error {
	return r.forEachOwner(ctx, JobHorizon, func(owner string) error {
		// A background pass never wipes the calendar without a person confirming.
		res, err := r.planner.Schedule(ctx, owner, nil, planner.ScheduleOptions{
			Confirm: func(scheduler.Decision) (bool, error) { return false, nil },
		})
		if errors.Is(err, planner.ErrCancelled) {
			logger.Warn("horizon pass needs a full reschedule, skipped", "owner", owner)
			return nil
		}
		if err != nil {
			return err
		}
		logger.Debug("horizon pass done", "owner", owner, "events", len(res.Placement.Events))
		return nil
	})
}

func (r *Runner) forEachOwner(ctx context.Context, job string, fn func(owner string) error) error {
	owners, err := r.owners.Owners(ctx)
	if err != nil {
		return fmt.Errorf("%s: listing owners: %w", job, err)
	}
	var errs []error
	for _, owner := range owners {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(owner); err != nil {
			logger.Error("job failed for owner", "job", job, "owner", owner, "err", err)
			errs = append(errs, fmt.Errorf("%s: %s: %w", job, owner, err))
		}
	}
	return errors.Join(errs...)
}
