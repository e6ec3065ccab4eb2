package scheduler

import (
	"testing"
	"time"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
)

func utcScheduler() *Scheduler {
	s := models.DefaultSettings()
	s.Timezone = "UTC"
	return New(s)
}

func TestInitialReviews(t *testing.T) {
	s := utcScheduler()
	completed := at(t, "2024-03-04 14:00")
	task := models.Task{ID: "t1", OwnerID: "alice", Title: "Cell biology", Subject: "Bio", EstimatedDurationMin: 60}

	reviews := s.InitialReviews(task, completed, nil)

	if len(reviews) != 5 {
		t.Fatalf("expected 5 reviews, got %d", len(reviews))
	}
	for i, rp := range reviews {
		offset := constants.InitialReviewOffsetsDays[i]
		if rp.OffsetDays != offset {
			t.Errorf("review %d offset = %d, want %d", i, rp.OffsetDays, offset)
		}
		if rp.Event == nil {
			t.Fatalf("review %d has no event", i)
		}
		want := completed.AddDate(0, 0, offset)
		if !rp.Event.Start.Equal(want) {
			t.Errorf("review %d starts %v, want %v", i, rp.Event.Start, want)
		}
		if rp.Event.Duration() != 30*time.Minute {
			t.Errorf("review %d lasts %v, want half the estimate", i, rp.Event.Duration())
		}
		if !rp.Event.Fixed || rp.Event.Movable() {
			t.Errorf("review %d must be fixed", i)
		}
		if rp.Event.Title != "Review: Cell biology" || rp.Session.TaskID != "t1" || rp.Session.Status != models.ReviewStatusPending {
			t.Errorf("review %d = %+v / %+v", i, rp.Session, rp.Event)
		}
	}
}

func TestAnchorReview_FallsBackToEarliestGap(t *testing.T) {
	s := utcScheduler()
	busy := []models.CalendarEvent{event(t, "2024-03-05 13:30", "2024-03-05 15:00")}

	start, ok := s.AnchorReview(at(t, "2024-03-05 14:00"), 30, busy)
	if !ok {
		t.Fatal("expected a start time")
	}
	if !start.Equal(at(t, "2024-03-05 07:00")) {
		t.Errorf("start = %v, want the first free gap of the day", start)
	}
}

func TestAnchorReview_OutsideWakingWindow(t *testing.T) {
	s := utcScheduler()

	start, ok := s.AnchorReview(at(t, "2024-03-05 23:30"), 30, nil)
	if !ok {
		t.Fatal("expected a start time")
	}
	if !start.Equal(at(t, "2024-03-05 07:00")) {
		t.Errorf("start = %v, want 07:00", start)
	}
}

func TestAnchorReview_FullDayMovesOn(t *testing.T) {
	s := utcScheduler()
	busy := []models.CalendarEvent{event(t, "2024-03-05 06:00", "2024-03-05 23:30")}

	start, ok := s.AnchorReview(at(t, "2024-03-05 10:00"), 30, busy)
	if !ok {
		t.Fatal("expected a start time")
	}
	if !start.Equal(at(t, "2024-03-06 10:00")) {
		t.Errorf("start = %v, want the same time next day", start)
	}
}

func TestInitialReviews_DoNotOverlap(t *testing.T) {
	s := utcScheduler()
	completed := at(t, "2024-03-04 09:00")
	busy := []models.CalendarEvent{event(t, "2024-03-05 08:00", "2024-03-05 12:00")}
	task := models.Task{ID: "t1", Title: "Stats", EstimatedDurationMin: 90}

	var all []models.CalendarEvent
	all = append(all, busy...)
	for _, rp := range s.InitialReviews(task, completed, busy) {
		if rp.Event != nil {
			all = append(all, *rp.Event)
		}
	}
	assertNoOverlap(t, all)
}

func TestFollowUpReview(t *testing.T) {
	s := utcScheduler()
	task := models.Task{ID: "t1", Title: "Stats", EstimatedDurationMin: 40}

	rp := s.FollowUpReview(task, at(t, "2024-03-04 16:00"), 16, nil)
	if rp.Event == nil || !rp.Event.Start.Equal(at(t, "2024-03-20 16:00")) {
		t.Errorf("follow-up = %+v", rp.Event)
	}
	if rp.Event.Duration() != 20*time.Minute {
		t.Errorf("follow-up lasts %v", rp.Event.Duration())
	}
}

func TestRecallSession(t *testing.T) {
	s := utcScheduler()
	tasks := []models.Task{
		{ID: "a", Title: "A", EstimatedDurationMin: 30},
		{ID: "b", Title: "B", EstimatedDurationMin: 40},
	}

	rp := s.RecallSession("alice", "Bio", tasks, at(t, "2024-03-05 10:00"), nil)

	if rp.Event == nil {
		t.Fatal("expected an event")
	}
	// 15 + 20 minutes, raised to the minimum study duration.
	if rp.Event.Duration() != 35*time.Minute {
		t.Errorf("recall lasts %v", rp.Event.Duration())
	}
	if rp.Session.Kind != models.ReviewKindActiveRecall || len(rp.Session.SourceTaskIDs) != 2 {
		t.Errorf("session = %+v", rp.Session)
	}
	if rp.Event.Title != "Active Recall: Bio" {
		t.Errorf("title = %q", rp.Event.Title)
	}
}
