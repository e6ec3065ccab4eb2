package errors

import (
	"errors"
	"fmt"
	"os"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/keyring"
	"github.com/julianstephens/studyplan/internal/logger"
	"github.com/julianstephens/studyplan/internal/scheduler"
	"github.com/julianstephens/studyplan/internal/storage"
)

// Exit codes. A stale calendar is worth retrying, so scripts get a distinct code.
const (
	ExitFailure       = 1
	ExitStaleCalendar = 2
	ExitInvalidInput  = 3
)

// Format formats an error message with a consistent "Error: " prefix and,
// for errors the user can act on, a hint on the next line.
func Format(err error) string {
	if err == nil {
		return ""
	}
	msg := fmt.Sprintf("Error: %v", err)
	if hint := Hint(err); hint != "" {
		msg += "\nHint: " + hint
	}
	return msg
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...any) string {
	return fmt.Sprintf("Error: "+format, args...)
}

func Hint(err error) string {
	switch {
	case errors.Is(err, storage.ErrStaleCalendar):
		return "the calendar changed while scheduling; run the command again"
	case errors.Is(err, scheduler.ErrInvalidQuality):
		return fmt.Sprintf("rate recall from 0 (blackout) to %d (perfect)", constants.MaxQualityRating)
	case errors.Is(err, keyring.ErrNotFound):
		return fmt.Sprintf("store a connection string with '%s keyring set'", constants.AppName)
	}
	return ""
}

func ExitCode(err error) int {
	switch {
	case errors.Is(err, storage.ErrStaleCalendar):
		return ExitStaleCalendar
	case errors.Is(err, scheduler.ErrInvalidQuality):
		return ExitInvalidInput
	}
	return ExitFailure
}

// Fatal logs an error and exits with the code ExitCode picks for it.
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(ExitCode(err))
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...any) {
	logger.Error("Command execution failed", "error", fmt.Sprintf(format, args...))
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(ExitFailure)
}
