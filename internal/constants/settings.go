package constants

const (
	// Energy profile settings
	SettingWakeTime              = "wake_time"
	SettingSleepTime             = "sleep_time"
	SettingMinStudyDuration      = "min_study_duration"
	SettingMaxStudyDuration      = "max_study_duration"
	SettingEnergyLevels          = "energy_levels"
	SettingInsertBreaks          = "insert_breaks"
	SettingShortBreakMin         = "short_break_min"
	SettingLongBreakMin          = "long_break_min"
	SettingLongStudyThresholdMin = "long_study_threshold_min"
	SettingMinGapForBreakMin     = "min_gap_for_break_min"
	SettingDueDateDays           = "due_date_days"
	SettingInterleave            = "interleave"
	SettingSubjectColors         = "subject_colors"
	SettingTimezone              = "timezone"

	// Default Settings Values
	DefaultWakeTime              = "07:00"
	DefaultSleepTime             = "23:00"
	DefaultMinStudyDuration      = 30
	DefaultMaxStudyDuration      = 90
	DefaultInsertBreaks          = true
	DefaultShortBreakMin         = 5
	DefaultLongBreakMin          = 25
	DefaultLongStudyThresholdMin = 120
	DefaultMinGapForBreakMin     = 5
	DefaultDueDateDays           = 7
	DefaultInterleave            = true
	DefaultTimezone              = "Local"

	// Floors applied when user config is malformed
	SafeMaxStudyDuration = 45
	SafeMinStudyDuration = 30
)
