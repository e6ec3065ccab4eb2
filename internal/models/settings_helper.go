package models

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/julianstephens/studyplan/internal/constants"
)

// MapToSettings overlays stored key-value pairs onto the default profile.
func MapToSettings(data map[string]string) (Settings, error) {
	settings := DefaultSettings()

	for key, value := range data {
		var err error
		switch key {
		case constants.SettingWakeTime:
			settings.WakeTime = value
		case constants.SettingSleepTime:
			settings.SleepTime = value
		case constants.SettingMinStudyDuration:
			settings.MinStudyDurationMin, err = strconv.Atoi(value)
		case constants.SettingMaxStudyDuration:
			settings.MaxStudyDurationMin, err = strconv.Atoi(value)
		case constants.SettingEnergyLevels:
			levels := map[int]float64{}
			if value != "" {
				err = json.Unmarshal([]byte(value), &levels)
			}
			settings.EnergyLevels = levels
		case constants.SettingInsertBreaks:
			settings.InsertBreaks, err = strconv.ParseBool(value)
		case constants.SettingShortBreakMin:
			settings.ShortBreakMin, err = strconv.Atoi(value)
		case constants.SettingLongBreakMin:
			settings.LongBreakMin, err = strconv.Atoi(value)
		case constants.SettingLongStudyThresholdMin:
			settings.LongStudyThresholdMin, err = strconv.Atoi(value)
		case constants.SettingMinGapForBreakMin:
			settings.MinGapForBreakMin, err = strconv.Atoi(value)
		case constants.SettingDueDateDays:
			settings.DueDateDays, err = strconv.Atoi(value)
		case constants.SettingInterleave:
			settings.Interleave, err = strconv.ParseBool(value)
		case constants.SettingSubjectColors:
			colors := map[string]string{}
			if value != "" {
				err = json.Unmarshal([]byte(value), &colors)
			}
			settings.SubjectColors = colors
		case constants.SettingTimezone:
			settings.Timezone = value
		}
		if err != nil {
			return Settings{}, fmt.Errorf("parsing %s: %w", key, err)
		}
	}
	return settings, nil
}

// SettingsToMap converts a Settings struct to a map of key-value pairs.
func SettingsToMap(settings Settings) (map[string]string, error) {
	levels, err := json.Marshal(settings.EnergyLevels)
	if err != nil {
		return nil, fmt.Errorf("encoding energy levels: %w", err)
	}
	colors, err := json.Marshal(settings.SubjectColors)
	if err != nil {
		return nil, fmt.Errorf("encoding subject colors: %w", err)
	}
	return map[string]string{
		constants.SettingWakeTime:              settings.WakeTime,
		constants.SettingSleepTime:             settings.SleepTime,
		constants.SettingMinStudyDuration:      strconv.Itoa(settings.MinStudyDurationMin),
		constants.SettingMaxStudyDuration:      strconv.Itoa(settings.MaxStudyDurationMin),
		constants.SettingEnergyLevels:          string(levels),
		constants.SettingInsertBreaks:          strconv.FormatBool(settings.InsertBreaks),
		constants.SettingShortBreakMin:         strconv.Itoa(settings.ShortBreakMin),
		constants.SettingLongBreakMin:          strconv.Itoa(settings.LongBreakMin),
		constants.SettingLongStudyThresholdMin: strconv.Itoa(settings.LongStudyThresholdMin),
		constants.SettingMinGapForBreakMin:     strconv.Itoa(settings.MinGapForBreakMin),
		constants.SettingDueDateDays:           strconv.Itoa(settings.DueDateDays),
		constants.SettingInterleave:            strconv.FormatBool(settings.Interleave),
		constants.SettingSubjectColors:         string(colors),
		constants.SettingTimezone:              settings.Timezone,
	}, nil
}

// IsSettingKey reports whether key names a persisted setting.
func IsSettingKey(key string) bool {
	m, _ := SettingsToMap(DefaultSettings())
	_, ok := m[key]
	return ok
}
