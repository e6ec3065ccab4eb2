package constants

import "time"

const (
	// Interleaving rules
	SubjectSpacing      = 6 * time.Hour
	ContextSwitchMin    = 10
	DefaultEnergyLevel  = 5.0
	DifficultyWeight    = 1.0
	ReviewBoostPerDay   = 100.0
	DefaultDifficulty   = 5
	MinDifficulty       = 1
	MaxDifficulty       = 10
	ImportanceNumerator = 1000.0

	// Priority urgency horizons in hours
	UrgencyHoursHigh   = 24
	UrgencyHoursMedium = 72
	UrgencyHoursLow    = 168

	// Eviction weights used when choosing which existing tasks to displace
	EvictionPriorityWeight = 0.6
	EvictionUrgencyWeight  = 0.4

	// SM2
	DefaultEasinessFactor = 2.5
	MinEasinessFactor     = 1.3
	MaxQualityRating      = 5
	PassingQualityRating  = 3

	// Active recall
	ActiveRecallHour         = 10
	ActiveRecallLookbackDays = 2

	// Planner
	MaxHorizonDays       = 180
	SpacingLookback      = 24 * time.Hour
	ScheduleAttempts     = 3
	ReviewLookaheadDays  = 100
	SlotCacheTTL         = 5 * time.Minute
	BackupLabelFullReset = "full_reschedule"

	// Background jobs, standard five-field cron
	DefaultRecallCron  = "0 6 * * *"
	DefaultHorizonCron = "30 5 * * *"
)

// InitialReviewOffsetsDays are the fixed cold-start review offsets created on first completion.
var InitialReviewOffsetsDays = []int{1, 6, 15, 37, 93}
