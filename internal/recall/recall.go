// Package recall picks the tasks that feed active-recall sessions: work
// finished one to two days ago, grouped by subject.
package recall

import (
	"sort"
	"time"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/utils"
)

type Group struct {
	Subject string
	Tasks   []models.Task
}

// Window covers the previous ActiveRecallLookbackDays calendar days, ending at
// the start of today.
func Window(now time.Time, loc *time.Location) (time.Time, time.Time) {
	today := utils.StartOfDay(now.In(loc))
	return today.AddDate(0, 0, -constants.ActiveRecallLookbackDays), today
}

// SessionTime is tomorrow at ActiveRecallHour local time.
func SessionTime(now time.Time, loc *time.Location) time.Time {
	return utils.AtMinutes(utils.StartOfDay(now.In(loc)).AddDate(0, 0, 1), constants.ActiveRecallHour*60)
}

// GroupBySubject buckets completed tasks by subject, ordered by subject name.
// Tasks without a subject go under GeneralSubject.
func GroupBySubject(tasks []models.Task) []Group {
	bySubject := make(map[string][]models.Task)
	for _, t := range tasks {
		if t.Status != models.TaskStatusCompleted {
			continue
		}
		key := t.SubjectKey(constants.GeneralSubject)
		bySubject[key] = append(bySubject[key], t)
	}

	groups := make([]Group, 0, len(bySubject))
	for subject, ts := range bySubject {
		sort.SliceStable(ts, func(i, j int) bool {
			return completedAt(ts[i]).Before(completedAt(ts[j]))
		})
		groups = append(groups, Group{Subject: subject, Tasks: ts})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Subject < groups[j].Subject })
	return groups
}

func completedAt(t models.Task) time.Time {
	if t.CompletedAt == nil {
		return time.Time{}
	}
	return *t.CompletedAt
}
