package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dms/internal/database"
	"dms/internal/database/migration"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the documents schema if it does not exist",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	rt, err := runtimeFromContext(cmd.Context())
	if err != nil {
		return err
	}

	db, err := database.Open(rt.cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = db.Close() }()

	dialect, err := migration.ForDriver(rt.cfg.Database.Driver)
	if err != nil {
		return err
	}
	return migration.EnsureMigrated(cmd.Context(), db, dialect, rt.log, dbHost(rt.cfg.Database))
}
