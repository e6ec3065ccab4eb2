package scheduler

import (
	"math"
	"sort"
	"time"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
)

// UrgencyHours maps a priority class to the horizon it should happen within.
func UrgencyHours(p models.Priority) float64 {
	switch p {
	case models.PriorityHigh:
		return constants.UrgencyHoursHigh
	case models.PriorityLow:
		return constants.UrgencyHoursLow
	default:
		return constants.UrgencyHoursMedium
	}
}

// Score rates how urgently a task should be placed. Higher is more urgent.
func Score(task models.Task, now time.Time) float64 {
	score := constants.ImportanceNumerator / UrgencyHours(task.Priority)
	score += math.Log(1+float64(clampDifficulty(task.Difficulty))) * constants.DifficultyWeight
	score += reviewBoost(task, now)
	return score
}

// SortByImportance returns a copy of tasks ordered most urgent first.
// Equal scores keep their input order.
func SortByImportance(tasks []models.Task, now time.Time) []models.Task {
	sorted := make([]models.Task, len(tasks))
	copy(sorted, tasks)
	scores := make(map[int]float64, len(sorted))
	idx := make([]int, len(sorted))
	for i := range sorted {
		idx[i] = i
		scores[i] = Score(sorted[i], now)
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})
	out := make([]models.Task, len(sorted))
	for i, j := range idx {
		out[i] = sorted[j]
	}
	return out
}

// EvictionScore blends priority class and deadline proximity to decide which
// existing task to displace first. Lower values are evicted first.
func EvictionScore(task models.Task, now time.Time) float64 {
	var priority float64
	switch task.Priority {
	case models.PriorityHigh:
		priority = 3
	case models.PriorityLow:
		priority = 1
	default:
		priority = 2
	}

	var urgency float64
	if task.DueDate != nil {
		hours := task.DueDate.Sub(now).Hours()
		switch {
		case hours < constants.UrgencyHoursHigh:
			urgency = 3
		case hours < constants.UrgencyHoursMedium:
			urgency = 2
		case hours < constants.UrgencyHoursLow:
			urgency = 1
		}
	}
	return priority*constants.EvictionPriorityWeight + urgency*constants.EvictionUrgencyWeight
}

func reviewBoost(task models.Task, now time.Time) float64 {
	if !task.IsReview || task.NextReviewDate == nil || !task.NextReviewDate.Before(now) {
		return 0
	}
	days := math.Floor(now.Sub(*task.NextReviewDate).Hours() / 24)
	return constants.ReviewBoostPerDay * math.Max(0, days)
}

func clampDifficulty(d int) int {
	if d == 0 {
		return constants.DefaultDifficulty
	}
	return max(constants.MinDifficulty, min(constants.MaxDifficulty, d))
}
