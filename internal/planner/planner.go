// Package planner runs the read-compute-write cycle around the scheduling
// engine: it serializes work per owner, reads the calendar snapshot, hands it
// to the scheduler and writes the result back in one versioned transaction.
package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/logger"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/scheduler"
	"github.com/julianstephens/studyplan/internal/storage"
)

var (
	ErrCancelled    = errors.New("planner: reschedule cancelled")
	ErrConflict     = errors.New("planner: placement conflicts with the calendar")
	ErrAlreadyRated = errors.New("planner: review session already rated")
)

// Backuper snapshots the database before destructive writes.
type Backuper interface {
	CreateBackup(ctx context.Context, label string) (string, error)
}

type Planner struct {
	store  storage.Provider
	cache  *scheduler.SlotCache
	backup Backuper
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type Option func(*Planner)

// WithBackup enables an automatic snapshot before every full reschedule.
func WithBackup(b Backuper) Option {
	return func(p *Planner) { p.backup = b }
}

func WithClock(now func() time.Time) Option {
	return func(p *Planner) { p.now = now }
}

func WithSlotCache(c *scheduler.SlotCache) Option {
	return func(p *Planner) { p.cache = c }
}

func New(store storage.Provider, opts ...Option) *Planner {
	p := &Planner{
		store: store,
		cache: scheduler.NewSlotCache(constants.SlotCacheTTL),
		now:   time.Now,
		locks: map[string]*sync.Mutex{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// lock serializes planner operations for one owner inside this process.
// Writers in other processes are caught by the calendar version check.
func (p *Planner) lock(owner string) func() {
	p.mu.Lock()
	m, ok := p.locks[owner]
	if !ok {
		m = &sync.Mutex{}
		p.locks[owner] = m
	}
	p.mu.Unlock()
	m.Lock()
	return m.Unlock
}

func (p *Planner) log(owner string) *log.Logger {
	return logger.With("owner", owner)
}

// retry reruns fn while another writer keeps moving the calendar underneath it.
func (p *Planner) retry(ctx context.Context, owner string, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if !errors.Is(err, storage.ErrStaleCalendar) || attempt >= constants.ScheduleAttempts {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.log(owner).Warn("calendar changed while planning, retrying", "attempt", attempt)
	}
}

type snapshot struct {
	version  int64
	settings models.Settings
	tasks    []models.Task // not completed
	events   []models.CalendarEvent
}

// load reads everything a planning pass needs. The version is read first so
// any write that lands during the concurrent reads makes the later
// ApplySchedule fail as stale instead of silently planning on mixed state.
func (p *Planner) load(ctx context.Context, owner string, from, to time.Time) (snapshot, error) {
	var snap snapshot
	version, err := p.store.CalendarVersion(ctx, owner)
	if err != nil {
		return snap, fmt.Errorf("reading calendar version: %w", err)
	}
	snap.version = version

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		settings, err := p.store.GetSettings(gctx, owner)
		if errors.Is(err, storage.ErrNotFound) {
			settings = models.DefaultSettings()
		} else if err != nil {
			return fmt.Errorf("reading settings: %w", err)
		}
		snap.settings = settings
		return nil
	})
	g.Go(func() error {
		tasks, err := p.store.ListTasks(gctx, owner, false)
		if err != nil {
			return fmt.Errorf("reading tasks: %w", err)
		}
		snap.tasks = tasks
		return nil
	})
	g.Go(func() error {
		events, err := p.store.ListEvents(gctx, owner, from, to)
		if err != nil {
			return fmt.Errorf("reading calendar: %w", err)
		}
		snap.events = events
		return nil
	})
	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

// studiedMinutes sums the study time already on the calendar for each task.
func (p *Planner) studiedMinutes(ctx context.Context, owner string, taskIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(taskIDs))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, id := range taskIDs {
		g.Go(func() error {
			events, err := p.store.ListEventsForTask(gctx, owner, id)
			if err != nil {
				return fmt.Errorf("reading events for task %s: %w", id, err)
			}
			total := 0
			for _, ev := range events {
				if isStudy(ev) {
					total += int(ev.Duration() / time.Minute)
				}
			}
			mu.Lock()
			out[id] = total
			mu.Unlock()
			return nil
		})
	}
	return out, g.Wait()
}

func isStudy(ev models.CalendarEvent) bool {
	return ev.Source == models.EventSourceScheduler &&
		(ev.Type == models.EventTypeStudy || ev.Type == models.EventTypeReview)
}

// splitMovable separates events into those kept and those released for
// re-placement. Scheduler breaks left without a neighbouring kept study block
// go with the study blocks they separated.
func splitMovable(events []models.CalendarEvent, now time.Time, release func(models.CalendarEvent) bool) (kept, dropped []models.CalendarEvent) {
	var breaks []models.CalendarEvent
	for _, ev := range events {
		switch {
		case !ev.Movable() || ev.Start.Before(now):
			kept = append(kept, ev)
		case ev.Type == models.EventTypeBreak:
			breaks = append(breaks, ev)
		case release(ev):
			dropped = append(dropped, ev)
		default:
			kept = append(kept, ev)
		}
	}
	for _, br := range breaks {
		if len(dropped) > 0 && !adjacentStudy(br, kept) {
			dropped = append(dropped, br)
			continue
		}
		kept = append(kept, br)
	}
	return kept, dropped
}

func adjacentStudy(br models.CalendarEvent, events []models.CalendarEvent) bool {
	for _, ev := range events {
		if ev.Movable() && ev.Type != models.EventTypeBreak && (ev.End.Equal(br.Start) || ev.Start.Equal(br.End)) {
			return true
		}
	}
	return false
}

func ids(events []models.CalendarEvent) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.ID)
	}
	return out
}

// materialize gives review placements IDs and links each session to its event.
func materialize(owner string, placements []scheduler.ReviewPlacement) ([]models.ReviewSession, []models.CalendarEvent) {
	var sessions []models.ReviewSession
	var events []models.CalendarEvent
	for i := range placements {
		rp := &placements[i]
		rp.Session.ID = uuid.New().String()
		rp.Session.OwnerID = owner
		if rp.Event != nil {
			rp.Event.ID = uuid.New().String()
			rp.Event.OwnerID = owner
			rp.Session.EventID = rp.Event.ID
			events = append(events, *rp.Event)
		}
		sessions = append(sessions, rp.Session)
	}
	return sessions, events
}
