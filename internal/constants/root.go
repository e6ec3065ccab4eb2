package constants

import "time"

const (
	AppName            = "studyplan"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/studyplan/studyplan.db"
	DefaultOwner       = "local"
	Version            = "v0.1.0"

	// KeyringConfigValue selects the OS keyring as the source of the connection string
	KeyringConfigValue = "keyring"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard clock format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// TimestampFormat is the ISO-8601 layout used at every storage boundary
	TimestampFormat = time.RFC3339

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "studyplan-"
	BackupFileSuffix = ".db"

	// Event colours
	BreakColor   = "#95A5A6"
	ReviewColor  = "#8E44AD"
	DefaultColor = "#3498DB"

	// Event titles emitted by the placer
	TitleShortBreak    = "Short Break"
	TitleLongBreak     = "Long Break"
	TitleContextSwitch = "Context Switch"
	TitleReviewPrefix  = "Review: "
	TitleRecallPrefix  = "Active Recall: "

	// UncategorizedSubject buckets tasks without a subject when interleaving
	UncategorizedSubject = "uncategorized"
	// GeneralSubject labels active recall sessions for tasks without a subject
	GeneralSubject = "General"
)
