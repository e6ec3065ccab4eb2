package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/julianstephens/studyplan/internal/cli"
	"github.com/julianstephens/studyplan/internal/cli/backups"
	"github.com/julianstephens/studyplan/internal/cli/events"
	"github.com/julianstephens/studyplan/internal/cli/plans"
	"github.com/julianstephens/studyplan/internal/cli/settings"
	"github.com/julianstephens/studyplan/internal/cli/system"
	"github.com/julianstephens/studyplan/internal/cli/tasks"
	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/errors"
	"github.com/julianstephens/studyplan/internal/keyring"
	"github.com/julianstephens/studyplan/internal/logger"
	"github.com/julianstephens/studyplan/internal/planner"
)

var CLI struct {
	Version  kong.VersionFlag
	DB       string `help:"SQLite file, PostgreSQL connection string without credentials, or 'keyring[:profile]'." env:"STUDYPLAN_DB" default:"${db}" name:"db"`
	Owner    string `help:"Whose calendar to work on." env:"STUDYPLAN_OWNER" default:"${owner}"`
	LogDebug bool   `help:"Log at debug level and mirror logs to stderr." env:"STUDYPLAN_DEBUG" name:"debug"`

	Init     system.InitCmd       `cmd:"" help:"Initialize studyplan storage."`
	Migrate  system.MigrateCmd    `cmd:"" help:"Run database migrations."`
	Doctor   system.DoctorCmd     `cmd:"" help:"Run health checks and diagnostics."`
	Schedule plans.ScheduleCmd    `cmd:"" help:"Place pending tasks into the planning horizon."`
	Now      plans.NowCmd         `cmd:"" help:"Show what you planned to be doing."`
	Watch    system.WatchCmd      `cmd:"" help:"Run active recall and horizon jobs on a schedule."`
	Settings settings.SettingsCmd `cmd:"" help:"Manage scheduling settings."`
	Debug    system.DebugCmd      `cmd:"" help:"Debug commands for troubleshooting."`
	Task     struct {
		Add      tasks.TaskAddCmd      `cmd:"" help:"Add a task and schedule it."`
		List     tasks.TaskListCmd     `cmd:"" help:"List tasks."`
		Edit     tasks.TaskEditCmd     `cmd:"" help:"Edit an existing task."`
		Complete tasks.TaskCompleteCmd `cmd:"" help:"Mark a task done and book its reviews."`
	} `cmd:"" help:"Manage study tasks."`
	Event struct {
		Add  events.EventAddCmd  `cmd:"" help:"Book a fixed event."`
		List events.EventListCmd `cmd:"" help:"Show the calendar."`
	} `cmd:"" help:"Manage calendar events."`
	Review struct {
		List plans.ReviewListCmd `cmd:"" help:"List review sessions."`
		Rate plans.ReviewRateCmd `cmd:"" help:"Rate how well you recalled a review."`
	} `cmd:"" help:"Spaced-repetition reviews."`
	Keyring struct {
		Set    system.KeyringSetCmd    `cmd:"" help:"Store a PostgreSQL connection string in the OS keyring."`
		Get    system.KeyringGetCmd    `cmd:"" help:"Show the stored connection string with the password masked."`
		Delete system.KeyringDeleteCmd `cmd:"" help:"Remove a stored connection string."`
		Status system.KeyringStatusCmd `cmd:"" help:"Report whether a connection string is stored."`
	} `cmd:"" help:"Manage database credentials in the OS keyring."`
	Backup struct {
		Create  backups.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    backups.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore backups.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage database backups."`
}

func main() {
	// A missing .env is normal.
	_ = godotenv.Load()

	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Study planner: schedules tasks around your calendar and books spaced reviews"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":      constants.Version,
			"db":           constants.DefaultConfigPath,
			"owner":        constants.DefaultOwner,
			"recall_cron":  constants.DefaultRecallCron,
			"horizon_cron": constants.DefaultHorizonCron,
		},
	)
	command := strings.Fields(ctx.Command())[0]

	// Keyring commands manage the secret itself and never open a store.
	location := constants.DefaultConfigPath
	if command != "keyring" {
		resolved, err := keyring.Resolve(CLI.DB)
		if err != nil {
			errors.Fatal(err)
		}
		location = resolved
	}

	if err := logger.Init(logger.Config{
		Debug:     CLI.LogDebug,
		ConfigDir: configDir(location),
		Stderr:    command == "watch",
	}); err != nil {
		errors.Fatalf("failed to initialize logger: %v", err)
	}

	base, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCtx := &cli.Context{
		Owner: CLI.Owner,
		Base:  base,
	}
	if command == "keyring" {
		errors.Fatal(ctx.Run(appCtx))
		return
	}

	store, err := cli.OpenStore(location)
	if err != nil {
		errors.Fatal(err)
	}
	defer store.Close()
	appCtx.Store = store

	// init creates the schema; migrate and doctor must run against one that is behind.
	switch command {
	case "init", "migrate", "doctor":
	default:
		if err := store.Load(base); err != nil {
			errors.Fatal(err)
		}
	}

	var opts []planner.Option
	if mgr := appCtx.Backups(); mgr != nil {
		opts = append(opts, planner.WithBackup(mgr))
	}
	appCtx.Planner = planner.New(store, opts...)

	errors.Fatal(ctx.Run(appCtx))
}

// configDir is where logs live: next to a SQLite file, or the default
// config directory for PostgreSQL.
func configDir(location string) string {
	path := constants.DefaultConfigPath
	if !cli.IsPostgres(location) {
		path = location
	}
	return filepath.Dir(cli.ExpandPath(path))
}
