/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/historyguide/apiserver/config"
	"github.com/historyguide/apiserver/internal/db"
	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		return db.MigrateUp(cfg.Database)
	},
}

var migrateDownSteps int

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back applied migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		migrator, err := db.NewMigrator(cfg.Database)
		if err != nil {
			return err
		}
		defer func() {
			_, _ = migrator.Close()
		}()

		if migrateDownSteps > 0 {
			err = migrator.Steps(-migrateDownSteps)
		} else {
			err = migrator.Down()
		}
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate down failed: %w", err)
		}
		return nil
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current migration version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		migrator, err := db.NewMigrator(cfg.Database)
		if err != nil {
			return err
		}
		defer func() {
			_, _ = migrator.Close()
		}()

		version, dirty, err := migrator.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read migration version: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
	migrateDownCmd.Flags().IntVarP(&migrateDownSteps, "steps", "n", 0, "number of migrations to roll back (0 rolls back all)")
}
