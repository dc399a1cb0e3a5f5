package migrate

import (
	"log/slog"

	"github.com/SscSPs/bank_ledger/internal/platform/config"
	"github.com/SscSPs/bank_ledger/internal/platform/database"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

const (
	fDatabaseURL = "database-url"
	fPath        = "path"
)

type migrateCommand struct{}

// New returns the command applying pending PostgreSQL migrations.
func New() *cli.Command {
	c := new(migrateCommand)

	return &cli.Command{
		Name:        "migrate",
		Usage:       "apply pending SQL migrations",
		Description: "applies every pending up migration to the PostgreSQL ledger database",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: fDatabaseURL, EnvVars: []string{"PGSQL_URL"}, Required: true},
			&cli.StringFlag{Name: fPath, Value: config.DefaultMigrationsPath, EnvVars: []string{"MIGRATIONS_PATH"}},
		},
		Action: c.Action,
	}
}

func (m *migrateCommand) Action(c *cli.Context) error {
	applied, err := database.RunMigrations(c.String(fDatabaseURL), c.String(fPath))
	if err != nil {
		return errors.WithStack(err)
	}
	if applied {
		slog.Info("Database migrations applied successfully.")
	} else {
		slog.Info("No new migrations to apply.")
	}
	return nil
}
