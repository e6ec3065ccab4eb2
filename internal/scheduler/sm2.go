package scheduler

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
)

// ErrInvalidQuality is returned for recall ratings outside 0..5.
var ErrInvalidQuality = errors.New("scheduler: quality rating must be between 0 and 5")

// ReviewState is the SM2 state after a rating.
type ReviewState struct {
	IntervalDays    int
	EasinessFactor  float64
	RepetitionCount int
}

// NextReview applies one SM2 step.
func NextReview(quality, repetitions int, ef float64, prevIntervalDays int) (ReviewState, error) {
	if quality < 0 || quality > constants.MaxQualityRating {
		return ReviewState{}, fmt.Errorf("%w: got %d", ErrInvalidQuality, quality)
	}
	if ef <= 0 {
		ef = constants.DefaultEasinessFactor
	}

	miss := float64(constants.MaxQualityRating - quality)
	ef += 0.1 - miss*(0.08+miss*0.02)
	ef = math.Max(constants.MinEasinessFactor, math.Round(ef*100)/100)

	if quality < constants.PassingQualityRating {
		return ReviewState{IntervalDays: 1, EasinessFactor: ef, RepetitionCount: 0}, nil
	}

	reps := repetitions + 1
	var interval int
	switch reps {
	case 1:
		interval = 1
	case 2:
		interval = 6
	default:
		interval = int(math.Round(float64(max(prevIntervalDays, 1)) * ef))
	}
	return ReviewState{IntervalDays: interval, EasinessFactor: ef, RepetitionCount: reps}, nil
}

// ApplyReview rates a task and returns an updated copy with its SM2 fields and
// next review date set.
func ApplyReview(task models.Task, quality int, at time.Time) (models.Task, ReviewState, error) {
	state, err := NextReview(quality, task.RepetitionCount, task.EasinessFactor, task.IntervalDays)
	if err != nil {
		return task, ReviewState{}, err
	}
	next := at.AddDate(0, 0, state.IntervalDays)
	reviewed := at
	task.EasinessFactor = state.EasinessFactor
	task.RepetitionCount = state.RepetitionCount
	task.IntervalDays = state.IntervalDays
	task.NextReviewDate = &next
	task.LastReviewedAt = &reviewed
	return task, state, nil
}

// ReviewDurationMin is the length of a review session for a task.
func ReviewDurationMin(task models.Task) int {
	return max(1, task.EstimatedDurationMin/2)
}
