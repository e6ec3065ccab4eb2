package scheduler

import (
	"sort"
	"time"

	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/utils"
)

// SlotQuery describes one free-time lookup. All instants should share a location;
// day boundaries are taken from From's location.
type SlotQuery struct {
	From           time.Time
	To             time.Time
	Now            time.Time // zero disables the not-in-the-past clip
	Events         []models.CalendarEvent
	MinDurationMin int
	MaxChunkMin    int // cap for chunks of an event-free day; 0 leaves the day whole
	WakeMin        int // minutes after midnight
	SleepMin       int
}

// FindEmptySlots returns the free gaps between events inside each day's waking
// window, in chronological order. Gaps shorter than MinDurationMin are dropped.
func FindEmptySlots(q SlotQuery) []models.TimeSlot {
	loc := q.From.Location()
	start := q.From
	if !q.Now.IsZero() {
		now := ceilMinute(q.Now.In(loc))
		if now.After(start) {
			start = now
		}
	}
	end := q.To.In(loc)
	if !end.After(start) {
		return nil
	}

	events := busyEvents(q.Events)
	var slots []models.TimeSlot

	// Start a day early so a window running past midnight is not missed.
	for day := utils.StartOfDay(start).AddDate(0, 0, -1); day.Before(end); day = day.AddDate(0, 0, 1) {
		winStart, winEnd := utils.DayWindow(day, q.WakeMin, q.SleepMin)
		if winStart.Before(start) {
			winStart = start
		}
		if winEnd.After(end) {
			winEnd = end
		}
		if !winEnd.After(winStart) {
			continue
		}

		var dayEvents []models.CalendarEvent
		for _, ev := range events {
			if ev.Start.Before(winEnd) && ev.End.After(winStart) {
				dayEvents = append(dayEvents, ev)
			}
		}

		if len(dayEvents) == 0 {
			slots = append(slots, chunkWindow(winStart, winEnd, q.MinDurationMin, q.MaxChunkMin)...)
			continue
		}

		cur := winStart
		for _, ev := range dayEvents {
			if ev.Start.After(cur) {
				slots = appendGap(slots, cur, ev.Start, q.MinDurationMin)
			}
			if ev.End.After(cur) {
				cur = ev.End
			}
		}
		if winEnd.After(cur) {
			slots = appendGap(slots, cur, winEnd, q.MinDurationMin)
		}
	}
	return slots
}

// TotalMinutes sums slot durations, counting only the part of each slot before until.
func TotalMinutes(slots []models.TimeSlot, until time.Time) int {
	total := 0
	for _, s := range slots {
		if !s.Start.Before(until) {
			continue
		}
		end := s.End()
		if end.After(until) {
			end = until
		}
		total += utils.MinutesBetween(s.Start, end)
	}
	return total
}

func busyEvents(events []models.CalendarEvent) []models.CalendarEvent {
	busy := make([]models.CalendarEvent, 0, len(events))
	for _, ev := range events {
		if ev.End.After(ev.Start) {
			busy = append(busy, ev)
		}
	}
	sort.SliceStable(busy, func(i, j int) bool {
		return busy[i].Start.Before(busy[j].Start)
	})
	return busy
}

func appendGap(slots []models.TimeSlot, from, to time.Time, minDur int) []models.TimeSlot {
	mins := utils.MinutesBetween(from, to)
	if mins < minDur || mins <= 0 {
		return slots
	}
	return append(slots, models.TimeSlot{Start: from, DurationMin: mins})
}

func chunkWindow(from, to time.Time, minDur, maxChunk int) []models.TimeSlot {
	if maxChunk <= 0 {
		return appendGap(nil, from, to, minDur)
	}
	var slots []models.TimeSlot
	cur := from
	for {
		remaining := utils.MinutesBetween(cur, to)
		if remaining < minDur || remaining <= 0 {
			break
		}
		size := min(maxChunk, remaining)
		slots = append(slots, models.TimeSlot{Start: cur, DurationMin: size})
		cur = cur.Add(time.Duration(size) * time.Minute)
	}
	return slots
}

func ceilMinute(t time.Time) time.Time {
	tr := t.Truncate(time.Minute)
	if tr.Before(t) {
		return tr.Add(time.Minute)
	}
	return tr
}
