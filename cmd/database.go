package cmd

import (
	"fmt"
	"strconv"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"
	"github.com/stellar/go/support/log"

	"github.com/kioskpay/kiosk-coordinator-backend/cmd/utils"
	"github.com/kioskpay/kiosk-coordinator-backend/db"
	"github.com/kioskpay/kiosk-coordinator-backend/db/migrations"
)

// DatabaseCommand exposes the schema migration helpers for the coordinator's single database.
type DatabaseCommand struct{}

func (c *DatabaseCommand) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:              "db",
		Short:            "Database schema migration helpers",
		PersistentPreRun: utils.DefaultPersistentPreRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	migrateCmd := &cobra.Command{
		Use:              "migrate",
		Short:            "Runs the coordinator's schema migrations, tracked in the coordinator_migrations table",
		PersistentPreRun: utils.DefaultPersistentPreRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	migrateUpCmd := &cobra.Command{
		Use:              "up [count]",
		Short:            "Migrates the database up [count] migrations, or all pending migrations if omitted",
		Args:             cobra.MaximumNArgs(1),
		PersistentPreRun: utils.DefaultPersistentPreRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := parseMigrationCount(args)
			if err != nil {
				return err
			}
			return c.runMigrations(cmd, migrate.Up, count)
		},
	}

	migrateDownCmd := &cobra.Command{
		Use:              "down [count]",
		Short:            "Migrates the database down [count] migrations",
		Args:             cobra.ExactArgs(1),
		PersistentPreRun: utils.DefaultPersistentPreRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := parseMigrationCount(args)
			if err != nil {
				return err
			}
			return c.runMigrations(cmd, migrate.Down, count)
		},
	}

	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	cmd.AddCommand(migrateCmd)

	return cmd
}

func parseMigrationCount(args []string) (int, error) {
	if len(args) == 0 {
		return 0, nil
	}
	count, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid [count] argument %q: %w", args[0], err)
	}
	return count, nil
}

func (c *DatabaseCommand) runMigrations(cmd *cobra.Command, dir migrate.MigrationDirection, count int) error {
	ctx := cmd.Context()

	numApplied, err := db.Migrate(globalOptions.databaseURL, dir, count, migrations.CoordinatorMigrationRouter)
	if err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	if numApplied == 0 {
		log.Ctx(ctx).Info("No migrations applied.")
	} else {
		log.Ctx(ctx).Infof("Successfully applied %d migration(s) %s.", numApplied, migrationDirectionStr(dir))
	}
	return nil
}

func migrationDirectionStr(dir migrate.MigrationDirection) string {
	if dir == migrate.Up {
		return "up"
	}
	return "down"
}
