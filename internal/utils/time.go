package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/studyplan/internal/constants"
)

// LoadLocation loads a timezone location from an IANA timezone name.
// If the timezone is "Local" or empty, it returns the system's local timezone.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" || timezone == constants.DefaultTimezone {
		return time.Local, nil
	}
	return time.LoadLocation(timezone)
}

// NowInTimezone returns the current time in the specified timezone.
func NowInTimezone(timezone string) (time.Time, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return time.Now().In(loc), nil
}

// ParseClockToMinutes parses a wall-clock value and returns minutes from midnight.
// Both "HH:MM" and a bare hour of day ("7", "23") are accepted.
func ParseClockToMinutes(s string) (int, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ":") {
		h, err := strconv.Atoi(s)
		if err != nil || h < 0 || h > 24 {
			return 0, fmt.Errorf("invalid hour of day %q", s)
		}
		return h * 60, nil
	}
	t, err := time.Parse(constants.TimeFormat, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// AtMinutes returns the instant minutes after midnight of day's calendar day.
func AtMinutes(day time.Time, minutes int) time.Time {
	d := StartOfDay(day)
	return time.Date(d.Year(), d.Month(), d.Day(), minutes/60, minutes%60, 0, 0, d.Location())
}

// DayWindow returns the waking window that opens on day's calendar day.
// A sleep time at or before the wake time closes the window on the following day.
func DayWindow(day time.Time, wakeMin, sleepMin int) (time.Time, time.Time) {
	start := AtMinutes(day, wakeMin)
	end := AtMinutes(day, sleepMin)
	if sleepMin <= wakeMin {
		end = AtMinutes(day.AddDate(0, 0, 1), sleepMin)
	}
	return start, end
}

// ParseDateInLocation parses a date string (YYYY-MM-DD) in the specified timezone.
func ParseDateInLocation(dateStr string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(constants.DateFormat, dateStr)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
}

// CombineDateAndTime combines a date string (YYYY-MM-DD) and time string (HH:MM)
// into a single time.Time in the specified timezone.
func CombineDateAndTime(dateStr, timeStr string, loc *time.Location) (time.Time, error) {
	date, err := time.Parse(constants.DateFormat, dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: %w", err)
	}

	timeOfDay, err := time.Parse(constants.TimeFormat, timeStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time format: %w", err)
	}

	return time.Date(
		date.Year(), date.Month(), date.Day(),
		timeOfDay.Hour(), timeOfDay.Minute(), 0, 0,
		loc,
	), nil
}

// ParseDeadline accepts either a date (end of that day) or "YYYY-MM-DD HH:MM".
func ParseDeadline(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if date, clock, ok := strings.Cut(s, " "); ok {
		return CombineDateAndTime(date, strings.TrimSpace(clock), loc)
	}
	d, err := ParseDateInLocation(s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid deadline %q: %w", s, err)
	}
	return d.Add(24*time.Hour - time.Minute), nil
}

// ValidateTimeFormat checks if the string is a valid wall-clock value.
func ValidateTimeFormat(timeStr string) bool {
	_, err := ParseClockToMinutes(timeStr)
	return err == nil
}

// ValidateTimezone checks if the timezone name is valid.
func ValidateTimezone(timezone string) bool {
	if timezone == "" || timezone == constants.DefaultTimezone {
		return true
	}
	_, err := time.LoadLocation(timezone)
	return err == nil
}

// MinutesBetween returns the whole minutes from a to b.
func MinutesBetween(a, b time.Time) int {
	return int(b.Sub(a) / time.Minute)
}
