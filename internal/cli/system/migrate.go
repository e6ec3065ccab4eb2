package system

import (
	"fmt"

	"github.com/julianstephens/studyplan/internal/cli"
	"github.com/julianstephens/studyplan/internal/storage"
)

type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	m, ok := ctx.Store.(storage.Maintainer)
	if !ok {
		return fmt.Errorf("storage backend does not support migrations")
	}
	if err := m.Open(ctx.Ctx()); err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	count, err := m.Migrate(ctx.Ctx(), func(msg string) {
		ctx.Printf("%s\n", msg)
	})
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if count == 0 {
		ctx.Printf("No migrations to apply. Database is up to date.\n")
	} else {
		ctx.Printf("\nSuccessfully applied %d migration(s).\n", count)
	}

	return nil
}
