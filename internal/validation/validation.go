package validation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/utils"
)

// ConflictType represents the type of validation conflict
type ConflictType string

const (
	ConflictOverlappingEvents   ConflictType = "overlapping_events"
	ConflictOutsideWakingWindow ConflictType = "outside_waking_window"
	ConflictOvercommitted       ConflictType = "overcommitted"
	ConflictMissingTaskID       ConflictType = "missing_task_id"
	ConflictDuplicateTaskTitle  ConflictType = "duplicate_task_title"
	ConflictInvalidDateTime     ConflictType = "invalid_datetime"
	ConflictInvalidDuration     ConflictType = "invalid_duration"
)

// Conflict represents a detected conflict in tasks or a schedule
type Conflict struct {
	Type        ConflictType
	Description string
	Date        string   // YYYY-MM-DD format (if applicable)
	Items       []string // Task/event titles involved
	TimeRange   string   // Human-readable time range (if applicable)
	TaskIDs     []string
	EventIDs    []string
}

// Blocking reports whether the conflict breaks a hard schedule invariant.
// Overcommitment and duplicate titles are advisory.
func (c Conflict) Blocking() bool {
	switch c.Type {
	case ConflictOverlappingEvents, ConflictInvalidDateTime, ConflictInvalidDuration:
		return true
	}
	return false
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// Blocking returns only the conflicts that must stop a write.
func (vr *ValidationResult) Blocking() []Conflict {
	var out []Conflict
	for _, c := range vr.Conflicts {
		if c.Blocking() {
			out = append(out, c)
		}
	}
	return out
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, conflict := range vr.Conflicts {
		fmt.Fprintf(&b, "- %s\n", conflict.Description)
	}
	return b.String()
}

// Validator checks tasks and calendars against the waking window of one owner.
type Validator struct {
	wakeMin  int
	sleepMin int
	loc      *time.Location
}

// New creates a Validator for the given waking window (minutes after midnight).
func New(wakeMin, sleepMin int, loc *time.Location) *Validator {
	if loc == nil {
		loc = time.Local
	}
	return &Validator{wakeMin: wakeMin, sleepMin: sleepMin, loc: loc}
}

// ValidateTasks checks open tasks for conflicts
func (v *Validator) ValidateTasks(tasks []models.Task) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	titles := make(map[string][]string)
	var order []string
	for _, task := range tasks {
		if task.Status == models.TaskStatusCompleted {
			continue
		}
		if task.EstimatedDurationMin <= 0 {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictInvalidDuration,
				Description: fmt.Sprintf("Task \"%s\" has non-positive duration: %d min", task.Title, task.EstimatedDurationMin),
				Items:       []string{task.Title},
				TaskIDs:     []string{task.ID},
			})
		}
		if task.Title == "" {
			continue
		}
		key := strings.ToLower(task.Title)
		if _, seen := titles[key]; !seen {
			order = append(order, key)
		}
		titles[key] = append(titles[key], task.ID)
	}

	for _, key := range order {
		if ids := titles[key]; len(ids) > 1 {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictDuplicateTaskTitle,
				Description: fmt.Sprintf("Duplicate task title: \"%s\" (IDs: %v)", key, ids),
				Items:       []string{key},
				TaskIDs:     ids,
			})
		}
	}

	return result
}

// ValidateSchedule checks a calendar for overlapping events, generated events
// outside the waking window, study events pointing at unknown tasks and days
// planned past 80% of their waking window.
func (v *Validator) ValidateSchedule(events []models.CalendarEvent, tasks []models.Task) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	taskMap := make(map[string]models.Task, len(tasks))
	for _, task := range tasks {
		taskMap[task.ID] = task
	}

	sorted := make([]models.CalendarEvent, 0, len(events))
	for _, ev := range events {
		if !ev.End.After(ev.Start) {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictInvalidDateTime,
				Description: fmt.Sprintf("%s: \"%s\" ends before it starts", v.date(ev.Start), ev.Title),
				Date:        v.date(ev.Start),
				Items:       []string{ev.Title},
				EventIDs:    []string{ev.ID},
			})
			continue
		}
		sorted = append(sorted, ev)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	// Overlaps between two user events are the user's business; anything the
	// planner wrote must not collide with anything else.
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			a, b := sorted[i], sorted[j]
			if !b.Start.Before(a.End) {
				break
			}
			if a.Source == models.EventSourceUser && b.Source == models.EventSourceUser {
				continue
			}
			result.Conflicts = append(result.Conflicts, Conflict{
				Type: ConflictOverlappingEvents,
				Description: fmt.Sprintf("%s: %s \"%s\" overlaps \"%s\"",
					v.date(a.Start), v.timeRange(a), a.Title, b.Title),
				Date:      v.date(a.Start),
				Items:     []string{a.Title, b.Title},
				TimeRange: v.timeRange(a),
				EventIDs:  []string{a.ID, b.ID},
			})
		}
	}

	planned := make(map[string]int)
	for _, ev := range sorted {
		if ev.Source == models.EventSourceUser {
			continue
		}
		if !v.insideWakingWindow(ev) {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictOutsideWakingWindow,
				Description: fmt.Sprintf("%s: %s \"%s\" falls outside the waking window", v.date(ev.Start), v.timeRange(ev), ev.Title),
				Date:        v.date(ev.Start),
				Items:       []string{ev.Title},
				TimeRange:   v.timeRange(ev),
				EventIDs:    []string{ev.ID},
			})
		}
		if ev.Type == models.EventTypeStudy && ev.TaskID != "" {
			if _, ok := taskMap[ev.TaskID]; !ok && len(taskMap) > 0 {
				result.Conflicts = append(result.Conflicts, Conflict{
					Type:        ConflictMissingTaskID,
					Description: fmt.Sprintf("%s: \"%s\" references missing task ID: %s", v.date(ev.Start), ev.Title, ev.TaskID),
					Date:        v.date(ev.Start),
					EventIDs:    []string{ev.ID},
				})
			}
		}
		if ev.Type == models.EventTypeStudy || ev.Type == models.EventTypeReview {
			planned[v.date(ev.Start)] += utils.MinutesBetween(ev.Start, ev.End)
		}
	}

	window := v.sleepMin - v.wakeMin
	if window <= 0 {
		window += 24 * 60
	}
	days := make([]string, 0, len(planned))
	for day := range planned {
		days = append(days, day)
	}
	sort.Strings(days)
	for _, day := range days {
		minutes := planned[day]
		if minutes > int(float64(window)*0.8) {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type: ConflictOvercommitted,
				Description: fmt.Sprintf("%s: %.1fh of study in %.1fh waking window (>80%% capacity)",
					day, float64(minutes)/60.0, float64(window)/60.0),
				Date: day,
			})
		}
	}

	return result
}

// insideWakingWindow accepts an event contained in the window that opens on
// its start day, or in the previous day's window when sleep is past midnight.
func (v *Validator) insideWakingWindow(ev models.CalendarEvent) bool {
	day := utils.StartOfDay(ev.Start.In(v.loc))
	for _, d := range []time.Time{day, day.AddDate(0, 0, -1)} {
		from, to := utils.DayWindow(d, v.wakeMin, v.sleepMin)
		if !ev.Start.Before(from) && !ev.End.After(to) {
			return true
		}
	}
	return false
}

func (v *Validator) date(t time.Time) string {
	return t.In(v.loc).Format(constants.DateFormat)
}

func (v *Validator) timeRange(ev models.CalendarEvent) string {
	return fmt.Sprintf("%s-%s", ev.Start.In(v.loc).Format(constants.TimeFormat), ev.End.In(v.loc).Format(constants.TimeFormat))
}
