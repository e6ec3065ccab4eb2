package scheduler

import (
	"testing"
	"time"

	"github.com/julianstephens/studyplan/internal/models"
)

func at(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.ParseInLocation("2006-01-02 15:04", s, time.UTC)
	if err != nil {
		t.Fatalf("bad test time %q: %v", s, err)
	}
	return v
}

func event(t *testing.T, start, end string) models.CalendarEvent {
	t.Helper()
	return models.CalendarEvent{Title: "busy", Start: at(t, start), End: at(t, end), Source: models.EventSourceUser}
}

func TestFindEmptySlots_DropsGapsBelowMinimum(t *testing.T) {
	slots := FindEmptySlots(SlotQuery{
		From: at(t, "2024-03-04 00:00"),
		To:   at(t, "2024-03-05 00:00"),
		Events: []models.CalendarEvent{
			event(t, "2024-03-04 10:25", "2024-03-04 11:00"),
			event(t, "2024-03-04 10:00", "2024-03-04 10:20"),
		},
		MinDurationMin: 30,
		WakeMin:        9 * 60,
		SleepMin:       12 * 60,
	})

	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d: %+v", len(slots), slots)
	}
	for _, s := range slots {
		if s.Start.Equal(at(t, "2024-03-04 10:20")) {
			t.Errorf("5-minute gap between events must not become a slot")
		}
	}
	if !slots[0].Start.Equal(at(t, "2024-03-04 09:00")) || slots[0].DurationMin != 60 {
		t.Errorf("first slot = %v/%d, want 09:00/60", slots[0].Start, slots[0].DurationMin)
	}
	if !slots[1].Start.Equal(at(t, "2024-03-04 11:00")) || slots[1].DurationMin != 60 {
		t.Errorf("second slot = %v/%d, want 11:00/60", slots[1].Start, slots[1].DurationMin)
	}
}

func TestFindEmptySlots_ChunksEmptyDay(t *testing.T) {
	slots := FindEmptySlots(SlotQuery{
		From:           at(t, "2024-03-04 00:00"),
		To:             at(t, "2024-03-05 00:00"),
		MinDurationMin: 30,
		MaxChunkMin:    95,
		WakeMin:        9 * 60,
		SleepMin:       12 * 60,
	})

	want := []struct {
		start string
		dur   int
	}{
		{"2024-03-04 09:00", 95},
		{"2024-03-04 10:35", 85},
	}
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %d: %+v", len(want), len(slots), slots)
	}
	for i, w := range want {
		if !slots[i].Start.Equal(at(t, w.start)) || slots[i].DurationMin != w.dur {
			t.Errorf("slot %d = %v/%d, want %s/%d", i, slots[i].Start, slots[i].DurationMin, w.start, w.dur)
		}
	}
}

func TestFindEmptySlots_NeverInThePast(t *testing.T) {
	now := at(t, "2024-03-04 10:07").Add(30 * time.Second)
	slots := FindEmptySlots(SlotQuery{
		From:           at(t, "2024-03-04 00:00"),
		To:             at(t, "2024-03-06 00:00"),
		Now:            now,
		MinDurationMin: 30,
		MaxChunkMin:    95,
		WakeMin:        9 * 60,
		SleepMin:       12 * 60,
	})

	if len(slots) == 0 {
		t.Fatal("expected slots")
	}
	for _, s := range slots {
		if s.Start.Before(now) {
			t.Errorf("slot %v starts before now %v", s.Start, now)
		}
	}
	if !slots[0].Start.Equal(at(t, "2024-03-04 10:08")) {
		t.Errorf("first slot should open at the next whole minute, got %v", slots[0].Start)
	}
}

func TestFindEmptySlots_WindowPastMidnight(t *testing.T) {
	slots := FindEmptySlots(SlotQuery{
		From:           at(t, "2024-03-04 00:00"),
		To:             at(t, "2024-03-05 00:00"),
		MinDurationMin: 30,
		WakeMin:        20 * 60,
		SleepMin:       2 * 60,
	})

	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d: %+v", len(slots), slots)
	}
	if !slots[0].Start.Equal(at(t, "2024-03-04 00:00")) || slots[0].DurationMin != 120 {
		t.Errorf("tail of previous night = %v/%d, want 00:00/120", slots[0].Start, slots[0].DurationMin)
	}
	if !slots[1].Start.Equal(at(t, "2024-03-04 20:00")) || slots[1].DurationMin != 240 {
		t.Errorf("evening = %v/%d, want 20:00/240", slots[1].Start, slots[1].DurationMin)
	}
}

func TestFindEmptySlots_MinimumAndNoOverlap(t *testing.T) {
	events := []models.CalendarEvent{
		event(t, "2024-03-04 08:10", "2024-03-04 08:50"),
		event(t, "2024-03-04 09:00", "2024-03-04 10:30"),
		event(t, "2024-03-04 10:00", "2024-03-04 11:15"), // overlaps the previous one
		event(t, "2024-03-04 13:40", "2024-03-04 14:00"),
		event(t, "2024-03-05 06:00", "2024-03-05 09:00"),
		event(t, "2024-03-05 21:45", "2024-03-05 23:30"),
	}
	slots := FindEmptySlots(SlotQuery{
		From:           at(t, "2024-03-04 00:00"),
		To:             at(t, "2024-03-06 00:00"),
		Events:         events,
		MinDurationMin: 30,
		MaxChunkMin:    95,
		WakeMin:        7 * 60,
		SleepMin:       22 * 60,
	})

	if len(slots) == 0 {
		t.Fatal("expected slots")
	}
	for i, s := range slots {
		if s.DurationMin < 30 {
			t.Errorf("slot %v has %d minutes, below the minimum", s.Start, s.DurationMin)
		}
		for _, ev := range events {
			if s.Start.Before(ev.End) && ev.Start.Before(s.End()) {
				t.Errorf("slot %v-%v overlaps event %v-%v", s.Start, s.End(), ev.Start, ev.End)
			}
		}
		if i > 0 && s.Start.Before(slots[i-1].End()) {
			t.Errorf("slots %d and %d overlap", i-1, i)
		}
		if s.Start.Hour() < 7 || s.End().After(time.Date(s.Start.Year(), s.Start.Month(), s.Start.Day(), 22, 0, 0, 0, time.UTC)) {
			t.Errorf("slot %v-%v outside waking window", s.Start, s.End())
		}
	}
}

func TestTotalMinutes(t *testing.T) {
	slots := []models.TimeSlot{
		{Start: at(t, "2024-03-04 09:00"), DurationMin: 60},
		{Start: at(t, "2024-03-04 11:00"), DurationMin: 60},
		{Start: at(t, "2024-03-04 14:00"), DurationMin: 60},
	}
	if got := TotalMinutes(slots, at(t, "2024-03-04 11:30")); got != 90 {
		t.Errorf("TotalMinutes() = %d, want 90", got)
	}
	if got := TotalMinutes(slots, at(t, "2024-03-05 00:00")); got != 180 {
		t.Errorf("TotalMinutes() = %d, want 180", got)
	}
}
