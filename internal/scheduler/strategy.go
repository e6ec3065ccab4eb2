package scheduler

import (
	"sort"
	"time"

	"github.com/julianstephens/studyplan/internal/models"
)

type Strategy string

const (
	// StrategyNewOnly places incoming tasks into untouched gaps.
	StrategyNewOnly Strategy = "new_only"
	// StrategyPartial re-places a named subset of existing tasks with the incoming ones.
	StrategyPartial Strategy = "partial"
	// StrategyFull discards every movable event and re-places all open tasks.
	StrategyFull Strategy = "full"
)

// CapacityFunc returns the free slots between two instants given the current calendar.
type CapacityFunc func(from, to time.Time) []models.TimeSlot

// Decision is the outcome of Decide. Reschedule lists the existing tasks whose
// movable events must be deleted and re-placed alongside the incoming tasks.
type Decision struct {
	Strategy   Strategy
	Reschedule []models.Task
	Overdue    []models.Task
	CannotFit  []models.Task
	Evicted    []models.Task
	Capacity   int // free minutes up to the latest incoming deadline
	Needed     int // minutes requested by the incoming tasks
}

// Decide picks the least disruptive strategy that can accommodate incoming.
func Decide(existing, incoming []models.Task, now time.Time, capacity CapacityFunc) Decision {
	var open []models.Task
	var d Decision
	for _, t := range existing {
		if t.Status == models.TaskStatusCompleted {
			continue
		}
		open = append(open, t)
		if t.IsOverdue(now) {
			d.Overdue = append(d.Overdue, t)
		}
	}

	var latest *time.Time
	for _, t := range incoming {
		d.Needed += t.EstimatedDurationMin
		if t.DueDate != nil && (latest == nil || t.DueDate.After(*latest)) {
			latest = t.DueDate
		}
	}

	if latest == nil {
		return d.settle()
	}
	if !latest.After(now) {
		for _, t := range incoming {
			if t.DueDate != nil {
				d.CannotFit = append(d.CannotFit, t)
			}
		}
		return d.settle()
	}

	d.Capacity = TotalMinutes(capacity(now, *latest), *latest)
	if d.Needed > d.Capacity {
		if len(d.Overdue) > 0 {
			d.Strategy = StrategyFull
			d.Reschedule = open
			return d
		}
		// With nothing to evict the shortfall stays visible through Needed and
		// Capacity, and the per-task deadline checks below still apply.
		if d.Evicted = identifyBlockingTasks(open, d.Needed-d.Capacity, now); len(d.Evicted) > 0 {
			d.Strategy = StrategyPartial
			d.Reschedule = d.Evicted
			return d
		}
	}

	for _, t := range incoming {
		if t.DueDate == nil {
			continue
		}
		if !t.DueDate.After(now) {
			d.CannotFit = append(d.CannotFit, t)
			continue
		}
		if t.EstimatedDurationMin > TotalMinutes(capacity(now, *t.DueDate), *t.DueDate) {
			d.CannotFit = append(d.CannotFit, t)
		}
	}
	return d.settle()
}

func (d Decision) settle() Decision {
	seen := map[string]bool{}
	d.Reschedule = nil
	for _, t := range append(append([]models.Task{}, d.Overdue...), d.CannotFit...) {
		if t.ID != "" && seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		d.Reschedule = append(d.Reschedule, t)
	}
	if len(d.Reschedule) > 0 {
		d.Strategy = StrategyPartial
	} else {
		d.Strategy = StrategyNewOnly
	}
	return d
}

// identifyBlockingTasks picks the least important existing tasks, longest
// first on ties, until at least shortfall minutes would be freed.
func identifyBlockingTasks(tasks []models.Task, shortfall int, now time.Time) []models.Task {
	candidates := make([]models.Task, len(tasks))
	copy(candidates, tasks)
	sort.SliceStable(candidates, func(i, j int) bool {
		si, sj := EvictionScore(candidates[i], now), EvictionScore(candidates[j], now)
		if si != sj {
			return si < sj
		}
		return candidates[i].EstimatedDurationMin > candidates[j].EstimatedDurationMin
	})

	var evicted []models.Task
	freed := 0
	for _, t := range candidates {
		if freed >= shortfall {
			break
		}
		evicted = append(evicted, t)
		freed += t.EstimatedDurationMin
	}
	return evicted
}
