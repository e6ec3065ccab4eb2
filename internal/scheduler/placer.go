package scheduler

import (
	"fmt"
	"sort"
	"time"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/utils"
)

// PlaceInput is everything one placement run needs. Slots are consumed in the
// order given, so callers normally pass the output of RankByEnergy.
type PlaceInput struct {
	Owner    string
	Tasks    []models.Task
	Slots    []models.TimeSlot
	Existing []models.CalendarEvent // seeds subject spacing in interleaved mode
	Now      time.Time
}

// PlacedTask reports how much of a task was placed.
type PlacedTask struct {
	Task         models.Task
	PlacedMin    int
	RemainingMin int
	Chunks       int
}

// Placement is the in-memory result of a run. Nothing is persisted by the engine.
type Placement struct {
	Events      []models.CalendarEvent
	Tasks       []PlacedTask
	Interleaved bool
}

// Unplaced returns tasks with time left over because capacity ran out.
func (p Placement) Unplaced() []PlacedTask {
	var out []PlacedTask
	for _, t := range p.Tasks {
		if t.RemainingMin > 0 {
			out = append(out, t)
		}
	}
	return out
}

// StudyMinutes sums the study and review minutes placed.
func (p Placement) StudyMinutes() int {
	total := 0
	for _, t := range p.Tasks {
		total += t.PlacedMin
	}
	return total
}

type pending struct {
	ref       int // index into placement.Tasks
	subject   string
	remaining int
}

type cursor struct {
	cur     time.Time
	end     time.Time
	studied int // uninterrupted study minutes since the last break
}

func (c *cursor) remaining() int {
	return utils.MinutesBetween(c.cur, c.end)
}

type placer struct {
	settings models.Settings
	owner    string
	out      Placement
	taskOf   []int // task ref per event, -1 for breaks
	history  map[string][]span
}

type span struct{ start, end time.Time }

// Place greedily carves the slots into study, break and context-switch events.
// It never fails: whatever does not fit is reported through Placement.Unplaced.
func Place(in PlaceInput, settings models.Settings) Placement {
	settings.Normalize()
	p := &placer{
		settings: settings,
		owner:    in.Owner,
		history:  map[string][]span{},
	}

	var queue []pending
	subjects := map[string]bool{}
	for _, t := range SortByImportance(in.Tasks, in.Now) {
		if t.Status == models.TaskStatusCompleted || t.EstimatedDurationMin <= 0 {
			continue
		}
		subject := t.SubjectKey(constants.UncategorizedSubject)
		subjects[subject] = true
		p.out.Tasks = append(p.out.Tasks, PlacedTask{Task: t, RemainingMin: t.EstimatedDurationMin})
		queue = append(queue, pending{ref: len(p.out.Tasks) - 1, subject: subject, remaining: t.EstimatedDurationMin})
	}

	if settings.Interleave && len(subjects) >= 2 {
		p.out.Interleaved = true
		for _, ev := range in.Existing {
			if ev.Subject != "" && (ev.Type == models.EventTypeStudy || ev.Type == models.EventTypeReview) {
				p.history[ev.Subject] = append(p.history[ev.Subject], span{ev.Start, ev.End})
			}
		}
		p.interleaved(queue, in.Slots)
	} else {
		p.flat(queue, in.Slots)
	}

	p.finish()
	return p.out
}

func (p *placer) flat(queue []pending, slots []models.TimeSlot) {
	for _, slot := range slots {
		if len(queue) == 0 {
			return
		}
		c := &cursor{cur: slot.Start, end: slot.End()}
		first := len(p.out.Events)
		for len(queue) > 0 {
			i, chunk := -1, 0
			for j := range queue {
				if n, ok := chunkSize(queue[j].remaining, c.remaining(), p.settings); ok {
					i, chunk = j, n
					break
				}
			}
			if i < 0 {
				break
			}
			p.study(c, queue[i].ref, chunk)
			queue[i].remaining -= chunk
			if queue[i].remaining == 0 {
				queue = append(queue[:i], queue[i+1:]...)
			}
			if len(queue) > 0 {
				p.maybeBreak(c)
			}
		}
		p.trimTrailing(first)
	}
}

func (p *placer) interleaved(queue []pending, slots []models.TimeSlot) {
	var order []string
	buckets := map[string][]pending{}
	for _, q := range queue {
		if _, ok := buckets[q.subject]; !ok {
			order = append(order, q.subject)
		}
		buckets[q.subject] = append(buckets[q.subject], q)
	}
	left := len(queue)
	next := 0
	// prev survives breaks and slot boundaries: a rest is not a context switch.
	prev := ""

	for _, slot := range slots {
		if left == 0 {
			return
		}
		c := &cursor{cur: slot.Start, end: slot.End()}
		first := len(p.out.Events)
		for left > 0 {
			placed := false
			for k := range order {
				idx := (next + k) % len(order)
				subject := order[idx]
				bucket := buckets[subject]
				if len(bucket) == 0 {
					continue
				}
				switchMin := 0
				if prev != "" && prev != subject {
					switchMin = constants.ContextSwitchMin
				}
				chunk, ok := chunkSize(bucket[0].remaining, c.remaining()-switchMin, p.settings)
				if !ok {
					continue
				}
				start := c.cur.Add(time.Duration(switchMin) * time.Minute)
				end := start.Add(time.Duration(chunk) * time.Minute)
				if p.tooSoon(subject, start, end) {
					continue
				}

				if switchMin > 0 {
					p.gap(c, switchMin, constants.TitleContextSwitch)
				}
				p.study(c, bucket[0].ref, chunk)
				p.history[subject] = append(p.history[subject], span{start, end})
				bucket[0].remaining -= chunk
				if bucket[0].remaining == 0 {
					buckets[subject] = bucket[1:]
					left--
				}
				prev = subject
				next = (idx + 1) % len(order)
				placed = true
				break
			}
			if !placed {
				break
			}
			if left > 0 {
				p.maybeBreak(c)
			}
		}
		p.trimTrailing(first)
	}
}

// tooSoon reports whether a placement for subject would land within the
// spacing window of any earlier placement of the same subject.
func (p *placer) tooSoon(subject string, start, end time.Time) bool {
	for _, s := range p.history[subject] {
		if start.Before(s.end.Add(constants.SubjectSpacing)) && s.start.Before(end.Add(constants.SubjectSpacing)) {
			return true
		}
	}
	return false
}

// chunkSize applies the splitting rule: cap at the task, the max chunk and the
// slot, then shrink so the task never keeps a remainder below the minimum.
func chunkSize(taskRem, slotRem int, s models.Settings) (int, bool) {
	chunk := min(taskRem, s.MaxStudyDurationMin, slotRem)
	if left := taskRem - chunk; left > 0 && left < s.MinStudyDurationMin {
		chunk = taskRem - s.MinStudyDurationMin
	}
	if chunk <= 0 {
		return 0, false
	}
	if chunk < s.MinStudyDurationMin && chunk != taskRem {
		return 0, false
	}
	return chunk, true
}

func (p *placer) study(c *cursor, ref, minutes int) {
	pt := &p.out.Tasks[ref]
	task := pt.Task
	subject := task.SubjectKey("")
	evType := models.EventTypeStudy
	if task.IsReview {
		evType = models.EventTypeReview
	}
	end := c.cur.Add(time.Duration(minutes) * time.Minute)
	p.out.Events = append(p.out.Events, models.CalendarEvent{
		OwnerID:     p.ownerFor(task),
		TaskID:      task.ID,
		Title:       task.Title,
		Description: task.Description,
		Start:       c.cur,
		End:         end,
		Type:        evType,
		Source:      models.EventSourceScheduler,
		Priority:    task.Priority,
		Subject:     subject,
		Color:       p.settings.ColorFor(subject),
	})
	p.taskOf = append(p.taskOf, ref)
	pt.PlacedMin += minutes
	pt.RemainingMin -= minutes
	pt.Chunks++
	c.cur = end
	c.studied += minutes
}

// maybeBreak inserts a short or long break when the policy allows one.
func (p *placer) maybeBreak(c *cursor) bool {
	if !p.settings.InsertBreaks {
		return false
	}
	minutes, title := p.settings.ShortBreakMin, constants.TitleShortBreak
	if c.studied >= p.settings.LongStudyThresholdMin {
		minutes, title = p.settings.LongBreakMin, constants.TitleLongBreak
	}
	if minutes <= 0 || minutes < p.settings.MinGapForBreakMin || c.remaining() < minutes {
		return false
	}
	p.gap(c, minutes, title)
	c.studied = 0
	return true
}

func (p *placer) gap(c *cursor, minutes int, title string) {
	end := c.cur.Add(time.Duration(minutes) * time.Minute)
	p.out.Events = append(p.out.Events, models.CalendarEvent{
		OwnerID: p.owner,
		Title:   title,
		Start:   c.cur,
		End:     end,
		Type:    models.EventTypeBreak,
		Source:  models.EventSourceScheduler,
		Color:   constants.BreakColor,
	})
	p.taskOf = append(p.taskOf, -1)
	c.cur = end
}

// trimTrailing drops breaks left dangling at the end of a slot.
func (p *placer) trimTrailing(first int) {
	for n := len(p.out.Events); n > first && p.taskOf[n-1] < 0; n-- {
		p.out.Events = p.out.Events[:n-1]
		p.taskOf = p.taskOf[:n-1]
	}
}

func (p *placer) ownerFor(task models.Task) string {
	if task.OwnerID != "" {
		return task.OwnerID
	}
	return p.owner
}

// finish sorts events chronologically and numbers the parts of split tasks.
func (p *placer) finish() {
	idx := make([]int, len(p.out.Events))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return p.out.Events[idx[a]].Start.Before(p.out.Events[idx[b]].Start)
	})

	events := make([]models.CalendarEvent, len(idx))
	part := map[int]int{}
	for i, j := range idx {
		ev := p.out.Events[j]
		if ref := p.taskOf[j]; ref >= 0 {
			if n := p.out.Tasks[ref].Chunks; n > 1 {
				part[ref]++
				ev.Title = fmt.Sprintf("%s (Part %d/%d)", ev.Title, part[ref], n)
			}
		}
		events[i] = ev
	}
	p.out.Events = events
	p.taskOf = nil
}
