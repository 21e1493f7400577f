package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	sqliteRepo "github.com/aryan2621/Npmmer/internal/repository/sqlite"
)

// NewMigrateCmd creates the migrate subcommand and its children.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long:  `Apply, roll back or inspect the SQLite schema migrations.`,
	}

	var yes bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back every migration (drops all data)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to drop all data without --yes")
			}
			return withDatabase(cmd, func(db *sqliteRepo.DB) error {
				if err := db.MigrateDown(); err != nil {
					return err
				}
				cmd.Println("All migrations rolled back")
				return nil
			})
		},
	}
	down.Flags().BoolVar(&yes, "yes", false, "confirm dropping all data")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(cmd, func(db *sqliteRepo.DB) error {
				if err := db.MigrateUp(); err != nil {
					return err
				}
				cmd.Println("Migrations completed successfully")
				return nil
			})
		},
	})
	cmd.AddCommand(down)
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(cmd, func(db *sqliteRepo.DB) error {
				v, dirty, err := db.MigrationVersion()
				if err != nil {
					return err
				}
				if dirty {
					cmd.Printf("version %d (dirty)\n", v)
					return nil
				}
				cmd.Printf("version %d\n", v)
				return nil
			})
		},
	})

	return cmd
}

// withDatabase opens the configured database without migrating it and runs fn.
// Only database.path is needed here, so the rest of the config is not validated.
func withDatabase(cmd *cobra.Command, fn func(db *sqliteRepo.DB) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Database.Path == "" {
		return errors.New("database.path is required")
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return err
	}

	db, err := sqliteRepo.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	return fn(db)
}
