package scheduler

import (
	"fmt"
	"time"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/utils"
)

// Scheduler binds the engine to one owner's normalized settings. It holds no
// calendar state and is safe to share between goroutines.
type Scheduler struct {
	settings    models.Settings
	loc         *time.Location
	wakeMin     int
	sleepMin    int
	corrections []string
}

// New normalizes settings and prepares a Scheduler. Malformed values are
// replaced with defaults; Corrections lists what changed.
func New(settings models.Settings) *Scheduler {
	s := &Scheduler{}
	s.corrections = settings.Normalize()

	var err error
	if s.wakeMin, err = utils.ParseClockToMinutes(settings.WakeTime); err != nil {
		s.corrections = append(s.corrections, fmt.Sprintf("wake_time %q unreadable, using %s", settings.WakeTime, constants.DefaultWakeTime))
		settings.WakeTime = constants.DefaultWakeTime
		s.wakeMin, _ = utils.ParseClockToMinutes(settings.WakeTime)
	}
	if s.sleepMin, err = utils.ParseClockToMinutes(settings.SleepTime); err != nil {
		s.corrections = append(s.corrections, fmt.Sprintf("sleep_time %q unreadable, using %s", settings.SleepTime, constants.DefaultSleepTime))
		settings.SleepTime = constants.DefaultSleepTime
		s.sleepMin, _ = utils.ParseClockToMinutes(settings.SleepTime)
	}
	if s.loc, err = utils.LoadLocation(settings.Timezone); err != nil {
		s.corrections = append(s.corrections, fmt.Sprintf("timezone %q unknown, using local time", settings.Timezone))
		settings.Timezone = constants.DefaultTimezone
		s.loc = time.Local
	}
	s.settings = settings
	return s
}

func (s *Scheduler) Settings() models.Settings { return s.settings }

func (s *Scheduler) Location() *time.Location { return s.loc }

// Corrections lists the settings values replaced during New.
func (s *Scheduler) Corrections() []string { return s.corrections }

// WakeWindow returns the minutes after midnight at which the day opens and closes.
func (s *Scheduler) WakeWindow() (int, int) { return s.wakeMin, s.sleepMin }

// SlotQuery builds the free-time lookup for this owner's profile.
func (s *Scheduler) SlotQuery(from, to, now time.Time, events []models.CalendarEvent) SlotQuery {
	return SlotQuery{
		From:           from.In(s.loc),
		To:             to.In(s.loc),
		Now:            now,
		Events:         events,
		MinDurationMin: s.settings.MinStudyDurationMin,
		MaxChunkMin:    s.settings.MaxStudyDurationMin + s.settings.BreakDurationMin(),
		WakeMin:        s.wakeMin,
		SleepMin:       s.sleepMin,
	}
}

// FindSlots returns free slots between from and to, never before now.
func (s *Scheduler) FindSlots(from, to, now time.Time, events []models.CalendarEvent) []models.TimeSlot {
	return FindEmptySlots(s.SlotQuery(from, to, now, events))
}

// Rank orders slots best energy first.
func (s *Scheduler) Rank(slots []models.TimeSlot) []models.TimeSlot {
	return RankByEnergy(slots, s.settings.EnergyLevels)
}

// Place runs the placer over already ranked slots.
func (s *Scheduler) Place(owner string, tasks []models.Task, ranked []models.TimeSlot, existing []models.CalendarEvent, now time.Time) Placement {
	return Place(PlaceInput{
		Owner:    owner,
		Tasks:    tasks,
		Slots:    ranked,
		Existing: existing,
		Now:      now,
	}, s.settings)
}

// Capacity returns a CapacityFunc over a fixed snapshot of the calendar.
func (s *Scheduler) Capacity(events []models.CalendarEvent, now time.Time) CapacityFunc {
	return func(from, to time.Time) []models.TimeSlot {
		return s.FindSlots(from, to, now, events)
	}
}

// Decide chooses a reschedule strategy against a calendar snapshot.
func (s *Scheduler) Decide(existing, incoming []models.Task, events []models.CalendarEvent, now time.Time) Decision {
	return Decide(existing, incoming, now, s.Capacity(events, now))
}
