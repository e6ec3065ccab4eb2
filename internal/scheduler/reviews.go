package scheduler

import (
	"time"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/utils"
)

// anchorSearchDays bounds how far a review may drift when its day is full.
const anchorSearchDays = 7

// ReviewPlacement pairs a review session with its fixed calendar event.
// Event is nil when no free time was found near the target day.
type ReviewPlacement struct {
	OffsetDays int
	Session    models.ReviewSession
	Event      *models.CalendarEvent
}

// ReviewSearchWindow is the span AnchorReview may inspect for a review wanted
// at target. Events outside it cannot affect the placement.
func ReviewSearchWindow(target time.Time) (time.Time, time.Time) {
	// A waking window can cross midnight, so pad a day on both sides.
	return target.AddDate(0, 0, -1), target.AddDate(0, 0, anchorSearchDays+1)
}

// AnchorReview finds a start for a fixed block of minutes near desired: the
// desired clock time when free, else the earliest free gap that day inside the
// waking window, moving to following days if the day is full.
func (s *Scheduler) AnchorReview(desired time.Time, minutes int, events []models.CalendarEvent) (time.Time, bool) {
	desired = desired.In(s.loc)
	length := time.Duration(minutes) * time.Minute
	for d := 0; d < anchorSearchDays; d++ {
		day := desired.AddDate(0, 0, d)
		winStart, winEnd := utils.DayWindow(day, s.wakeMin, s.sleepMin)
		if !day.Before(winStart) && !day.Add(length).After(winEnd) && isFree(day, day.Add(length), events) {
			return day, true
		}
		slots := FindEmptySlots(SlotQuery{
			From:           winStart,
			To:             winEnd,
			Events:         events,
			MinDurationMin: minutes,
			WakeMin:        s.wakeMin,
			SleepMin:       s.sleepMin,
		})
		if len(slots) > 0 {
			return slots[0].Start, true
		}
	}
	return time.Time{}, false
}

// InitialReviews lays out the five cold-start reviews for a completed task.
func (s *Scheduler) InitialReviews(task models.Task, completedAt time.Time, events []models.CalendarEvent) []ReviewPlacement {
	busy := append([]models.CalendarEvent{}, events...)
	out := make([]ReviewPlacement, 0, len(constants.InitialReviewOffsetsDays))
	for _, offset := range constants.InitialReviewOffsetsDays {
		rp := s.reviewAt(task, completedAt.AddDate(0, 0, offset), models.ReviewKindSpaced, busy)
		rp.OffsetDays = offset
		if rp.Event != nil {
			busy = append(busy, *rp.Event)
		}
		out = append(out, rp)
	}
	return out
}

// FollowUpReview schedules the next review intervalDays after at.
func (s *Scheduler) FollowUpReview(task models.Task, at time.Time, intervalDays int, events []models.CalendarEvent) ReviewPlacement {
	rp := s.reviewAt(task, at.AddDate(0, 0, intervalDays), models.ReviewKindSpaced, events)
	rp.OffsetDays = intervalDays
	return rp
}

// RecallSession anchors an active-recall block covering several tasks.
func (s *Scheduler) RecallSession(owner, subject string, tasks []models.Task, desired time.Time, events []models.CalendarEvent) ReviewPlacement {
	minutes := 0
	var ids []string
	for _, t := range tasks {
		minutes += ReviewDurationMin(t)
		ids = append(ids, t.ID)
	}
	minutes = min(max(minutes, s.settings.MinStudyDurationMin), s.settings.MaxStudyDurationMin)
	title := constants.TitleRecallPrefix + subject

	rp := ReviewPlacement{Session: models.ReviewSession{
		OwnerID:       owner,
		Kind:          models.ReviewKindActiveRecall,
		ScheduledDate: desired,
		Status:        models.ReviewStatusPending,
		SourceTaskIDs: ids,
		Title:         title,
	}}
	if len(ids) > 0 {
		rp.Session.TaskID = ids[0]
	}
	start, ok := s.AnchorReview(desired, minutes, events)
	if !ok {
		return rp
	}
	rp.Session.ScheduledDate = start
	rp.Event = &models.CalendarEvent{
		OwnerID: owner,
		TaskID:  rp.Session.TaskID,
		Title:   title,
		Start:   start,
		End:     start.Add(time.Duration(minutes) * time.Minute),
		Type:    models.EventTypeReview,
		Source:  models.EventSourceSystem,
		Subject: subject,
		Color:   constants.ReviewColor,
		Fixed:   true,
	}
	return rp
}

func (s *Scheduler) reviewAt(task models.Task, desired time.Time, kind models.ReviewKind, events []models.CalendarEvent) ReviewPlacement {
	minutes := ReviewDurationMin(task)
	rp := ReviewPlacement{Session: models.ReviewSession{
		OwnerID:       task.OwnerID,
		TaskID:        task.ID,
		Kind:          kind,
		ScheduledDate: desired,
		Status:        models.ReviewStatusPending,
		Title:         constants.TitleReviewPrefix + task.Title,
	}}
	start, ok := s.AnchorReview(desired, minutes, events)
	if !ok {
		return rp
	}
	rp.Session.ScheduledDate = start
	rp.Event = &models.CalendarEvent{
		OwnerID:     task.OwnerID,
		TaskID:      task.ID,
		Title:       rp.Session.Title,
		Description: task.Description,
		Start:       start,
		End:         start.Add(time.Duration(minutes) * time.Minute),
		Type:        models.EventTypeReview,
		Source:      models.EventSourceSystem,
		Priority:    task.Priority,
		Subject:     task.Subject,
		Color:       constants.ReviewColor,
		Fixed:       true,
	}
	return rp
}

func isFree(start, end time.Time, events []models.CalendarEvent) bool {
	for _, ev := range events {
		if ev.Start.Before(end) && start.Before(ev.End) {
			return false
		}
	}
	return true
}
