package settings

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/studyplan/internal/cli"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/utils"
)

type SettingsCmd struct {
	Show   SettingsShowCmd   `cmd:"" default:"1" help:"Show the energy profile and break policy."`
	Set    SettingsSetCmd    `cmd:"" help:"Change one setting."`
	Import SettingsImportCmd `cmd:"" help:"Replace settings from a YAML profile."`
}

type SettingsShowCmd struct {
	YAML bool `help:"Print as a YAML profile that 'settings import' accepts." name:"yaml"`
}

func (c *SettingsShowCmd) Run(ctx *cli.Context) error {
	settings, err := ctx.Settings(ctx.Ctx())
	if err != nil {
		return err
	}

	if c.YAML {
		out, err := yaml.Marshal(settings)
		if err != nil {
			return fmt.Errorf("failed to encode settings: %w", err)
		}
		ctx.Printf("%s", out)
		return nil
	}

	ctx.Printf("%s\n", cli.HeaderStyle.Render("Settings for "+ctx.Owner))
	ctx.Printf("  Wake / Sleep:          %s - %s\n", settings.WakeTime, settings.SleepTime)
	ctx.Printf("  Timezone:              %s\n", settings.Timezone)
	ctx.Printf("  Study chunk:           %d-%d min\n", settings.MinStudyDurationMin, settings.MaxStudyDurationMin)
	ctx.Printf("  Horizon:               %d days\n", settings.DueDateDays)
	ctx.Printf("  Interleave subjects:   %v\n", settings.Interleave)
	ctx.Printf("\nBreaks:\n")
	ctx.Printf("  Insert breaks:         %v\n", settings.InsertBreaks)
	ctx.Printf("  Short / Long:          %d / %d min\n", settings.ShortBreakMin, settings.LongBreakMin)
	ctx.Printf("  Long break after:      %d min of study\n", settings.LongStudyThresholdMin)
	ctx.Printf("  Minimum break:         %d min\n", settings.MinGapForBreakMin)

	if len(settings.EnergyLevels) > 0 {
		ctx.Printf("\nEnergy by hour:\n")
		hours := make([]int, 0, len(settings.EnergyLevels))
		for h := range settings.EnergyLevels {
			hours = append(hours, h)
		}
		slices.Sort(hours)
		for _, h := range hours {
			level := settings.EnergyLevels[h]
			ctx.Printf("  %02d:00  %-10s %.1f\n", h, strings.Repeat("█", int(level)), level)
		}
	}
	if len(settings.SubjectColors) > 0 {
		ctx.Printf("\nSubject colours:\n")
		subjects := make([]string, 0, len(settings.SubjectColors))
		for s := range settings.SubjectColors {
			subjects = append(subjects, s)
		}
		slices.Sort(subjects)
		for _, s := range subjects {
			ctx.Printf("  %s %s %s\n", cli.Swatch(settings.SubjectColors[s]), s, settings.SubjectColors[s])
		}
	}

	check := settings
	for _, fix := range check.Normalize() {
		ctx.Printf("%s\n", cli.WarningStyle.Render("  note: "+fix))
	}
	return nil
}

type SettingsSetCmd struct {
	Key   string `arg:"" help:"Setting key (e.g. wake_time, max_study_duration, energy_levels)."`
	Value string `arg:"" help:"New value. Maps such as energy_levels take JSON."`
}

func (c *SettingsSetCmd) Run(ctx *cli.Context) error {
	if !models.IsSettingKey(c.Key) {
		return fmt.Errorf("unknown setting %q", c.Key)
	}
	settings, err := ctx.Settings(ctx.Ctx())
	if err != nil {
		return err
	}

	data, err := models.SettingsToMap(settings)
	if err != nil {
		return err
	}
	data[c.Key] = c.Value
	updated, err := models.MapToSettings(data)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", c.Key, err)
	}

	return save(ctx, updated)
}

type SettingsImportCmd struct {
	File string `arg:"" help:"YAML profile to import." type:"existingfile"`
}

func (c *SettingsImportCmd) Run(ctx *cli.Context) error {
	raw, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", c.File, err)
	}

	// Keys missing from the file keep their defaults.
	settings := models.DefaultSettings()
	if err := yaml.Unmarshal(raw, &settings); err != nil {
		return fmt.Errorf("failed to parse %s: %w", c.File, err)
	}
	return save(ctx, settings)
}

func save(ctx *cli.Context, settings models.Settings) error {
	if !utils.ValidateTimezone(settings.Timezone) {
		return fmt.Errorf("unknown timezone %q", settings.Timezone)
	}
	for _, clock := range []string{settings.WakeTime, settings.SleepTime} {
		if clock != "" && !utils.ValidateTimeFormat(clock) {
			return fmt.Errorf("invalid time %q (expected HH:MM)", clock)
		}
	}

	check := settings
	for _, fix := range check.Normalize() {
		ctx.Printf("%s\n", cli.WarningStyle.Render("note: "+fix))
	}
	if err := ctx.Store.SaveSettings(ctx.Ctx(), ctx.Owner, settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	ctx.Printf("Settings updated successfully.\n")
	return nil
}
