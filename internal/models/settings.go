package models

import (
	"fmt"

	"github.com/julianstephens/studyplan/internal/constants"
)

// Settings is a user's energy profile and break policy. The scheduler only reads it.
type Settings struct {
	WakeTime              string            `json:"wake_time" yaml:"wake_time"`                               // e.g. "07:00"
	SleepTime             string            `json:"sleep_time" yaml:"sleep_time"`                             // e.g. "23:00"; earlier than wake means past midnight
	MinStudyDurationMin   int               `json:"min_study_duration" yaml:"min_study_duration"`             // smallest chunk or gap worth using
	MaxStudyDurationMin   int               `json:"max_study_duration" yaml:"max_study_duration"`             // largest single study chunk
	EnergyLevels          map[int]float64   `json:"energy_levels" yaml:"energy_levels"`                       // hour of day -> productivity score
	InsertBreaks          bool              `json:"insert_breaks" yaml:"insert_breaks"`                       // whether to insert breaks between chunks
	ShortBreakMin         int               `json:"short_break_min" yaml:"short_break_min"`                   // regular break length
	LongBreakMin          int               `json:"long_break_min" yaml:"long_break_min"`                     // break after long uninterrupted study
	LongStudyThresholdMin int               `json:"long_study_threshold_min" yaml:"long_study_threshold_min"` // study minutes that trigger a long break
	MinGapForBreakMin     int               `json:"min_gap_for_break_min" yaml:"min_gap_for_break_min"`       // breaks shorter than this are skipped
	DueDateDays           int               `json:"due_date_days" yaml:"due_date_days"`                       // default scheduling horizon
	Interleave            bool              `json:"interleave" yaml:"interleave"`                             // round-robin across subjects
	SubjectColors         map[string]string `json:"subject_colors,omitempty" yaml:"subject_colors,omitempty"` // subject -> hex colour
	Timezone              string            `json:"timezone" yaml:"timezone"`                                 // IANA name or "Local"
}

// DefaultSettings returns the profile used for owners who never configured one.
func DefaultSettings() Settings {
	return Settings{
		WakeTime:              constants.DefaultWakeTime,
		SleepTime:             constants.DefaultSleepTime,
		MinStudyDurationMin:   constants.DefaultMinStudyDuration,
		MaxStudyDurationMin:   constants.DefaultMaxStudyDuration,
		EnergyLevels:          map[int]float64{},
		InsertBreaks:          constants.DefaultInsertBreaks,
		ShortBreakMin:         constants.DefaultShortBreakMin,
		LongBreakMin:          constants.DefaultLongBreakMin,
		LongStudyThresholdMin: constants.DefaultLongStudyThresholdMin,
		MinGapForBreakMin:     constants.DefaultMinGapForBreakMin,
		DueDateDays:           constants.DefaultDueDateDays,
		Interleave:            constants.DefaultInterleave,
		SubjectColors:         map[string]string{},
		Timezone:              constants.DefaultTimezone,
	}
}

// Normalize replaces malformed values with safe defaults instead of failing.
// It returns a description of every correction so callers can log them.
func (s *Settings) Normalize() []string {
	var fixes []string
	fix := func(format string, args ...any) {
		fixes = append(fixes, fmt.Sprintf(format, args...))
	}

	if s.WakeTime == "" {
		s.WakeTime = constants.DefaultWakeTime
		fix("wake_time empty, using %s", s.WakeTime)
	}
	if s.SleepTime == "" {
		s.SleepTime = constants.DefaultSleepTime
		fix("sleep_time empty, using %s", s.SleepTime)
	}
	if s.MaxStudyDurationMin <= 0 {
		fix("max_study_duration %d is not positive, using %d", s.MaxStudyDurationMin, constants.DefaultMaxStudyDuration)
		s.MaxStudyDurationMin = constants.DefaultMaxStudyDuration
	}
	if s.MinStudyDurationMin <= 0 || s.MinStudyDurationMin > s.MaxStudyDurationMin {
		fix("min_study_duration %d is out of range, using %d", s.MinStudyDurationMin, constants.SafeMinStudyDuration)
		s.MinStudyDurationMin = constants.SafeMinStudyDuration
	}
	if s.MaxStudyDurationMin < s.MinStudyDurationMin {
		fix("max_study_duration %d is below the minimum chunk, using %d", s.MaxStudyDurationMin, constants.SafeMaxStudyDuration)
		s.MaxStudyDurationMin = constants.SafeMaxStudyDuration
	}
	if s.ShortBreakMin < 0 {
		fix("short_break_min %d is negative, using %d", s.ShortBreakMin, constants.DefaultShortBreakMin)
		s.ShortBreakMin = constants.DefaultShortBreakMin
	}
	if s.LongBreakMin < 0 {
		fix("long_break_min %d is negative, using %d", s.LongBreakMin, constants.DefaultLongBreakMin)
		s.LongBreakMin = constants.DefaultLongBreakMin
	}
	if s.LongStudyThresholdMin <= 0 {
		fix("long_study_threshold_min %d is not positive, using %d", s.LongStudyThresholdMin, constants.DefaultLongStudyThresholdMin)
		s.LongStudyThresholdMin = constants.DefaultLongStudyThresholdMin
	}
	if s.MinGapForBreakMin < 0 {
		fix("min_gap_for_break_min %d is negative, using 0", s.MinGapForBreakMin)
		s.MinGapForBreakMin = 0
	}
	if s.DueDateDays <= 0 {
		fix("due_date_days %d is not positive, using %d", s.DueDateDays, constants.DefaultDueDateDays)
		s.DueDateDays = constants.DefaultDueDateDays
	}
	levels := make(map[int]float64, len(s.EnergyLevels))
	for h, v := range s.EnergyLevels {
		if h < 0 || h > 23 {
			fix("energy level for hour %d dropped", h)
			continue
		}
		levels[h] = v
	}
	s.EnergyLevels = levels
	if s.Timezone == "" {
		s.Timezone = constants.DefaultTimezone
	}
	return fixes
}

// BreakDurationMin is the break length used when sizing whole-day chunks.
func (s Settings) BreakDurationMin() int {
	if !s.InsertBreaks {
		return 0
	}
	return s.ShortBreakMin
}

// ColorFor returns the configured colour for a subject, or the default colour.
func (s Settings) ColorFor(subject string) string {
	if c, ok := s.SubjectColors[subject]; ok && c != "" {
		return c
	}
	return constants.DefaultColor
}
