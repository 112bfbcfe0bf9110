package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

// Dialect bundles the schema statements for one SQL backend.
type Dialect struct {
	Name     string
	Sentinel string // query returning a single bool: does the documents table exist
	Steps    []migrationStep
}

// Postgres is the schema for PostgreSQL.
var Postgres = Dialect{
	Name:     "postgres",
	Sentinel: "SELECT to_regclass('public.documents') IS NOT NULL",
	Steps: []migrationStep{
		{
			Name: "create_table_documents",
			SQL: `CREATE TABLE IF NOT EXISTS documents (
  id                UUID          PRIMARY KEY,
  application_id    UUID          NULL,
  storage_bucket    TEXT          NOT NULL,
  storage_key       VARCHAR(1024) NOT NULL UNIQUE,
  original_filename TEXT          NOT NULL,
  content_type      TEXT          NOT NULL,
  size_bytes        BIGINT        NOT NULL CHECK (size_bytes >= 0),
  created_at        TIMESTAMPTZ   NOT NULL DEFAULT now(),
  updated_at        TIMESTAMPTZ   NOT NULL DEFAULT now()
);`,
		},
		{
			Name: "create_index_documents_application_id",
			SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_application_id ON documents (application_id);`,
		},
		{
			Name: "create_index_documents_created_at",
			SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents (created_at);`,
		},
	},
}

// SQLite is the schema for the embedded SQLite backend.
var SQLite = Dialect{
	Name:     "sqlite",
	Sentinel: "SELECT COUNT(*) > 0 FROM sqlite_master WHERE type = 'table' AND name = 'documents'",
	Steps: []migrationStep{
		{
			Name: "create_table_documents",
			SQL: `CREATE TABLE IF NOT EXISTS documents (
  id                TEXT     PRIMARY KEY,
  application_id    TEXT     NULL,
  storage_bucket    TEXT     NOT NULL,
  storage_key       TEXT     NOT NULL UNIQUE,
  original_filename TEXT     NOT NULL,
  content_type      TEXT     NOT NULL,
  size_bytes        INTEGER  NOT NULL CHECK (size_bytes >= 0),
  created_at        DATETIME NOT NULL,
  updated_at        DATETIME NOT NULL
);`,
		},
		{
			Name: "create_index_documents_application_id",
			SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_application_id ON documents (application_id);`,
		},
	},
}

// ForDriver returns the dialect for a config driver name.
func ForDriver(driver string) (Dialect, error) {
	switch driver {
	case "", "postgres":
		return Postgres, nil
	case "sqlite":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("no migrations for driver %q", driver)
	}
}

// EnsureMigrated checks if the 'documents' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, d Dialect, log *slog.Logger, dbHost string) error {
	start := time.Now()
	log = log.With("component", "database", "db_host", dbHost, "dialect", d.Name)

	log.InfoContext(ctx, "db_migration_check", "status", "starting")

	var exists bool
	if err := db.QueryRowContext(ctx, d.Sentinel).Scan(&exists); err != nil {
		log.ErrorContext(ctx, "db_migration_failed",
			"status", "error",
			"error_message", fmt.Sprintf("failed to check sentinel table: %v", err),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.InfoContext(ctx, "db_migration_skip",
			"status", "success",
			"detail", "schema already exists, skipping migration",
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}

	log.InfoContext(ctx, "db_migration_start", "status", "in_progress")

	for _, step := range d.Steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.ErrorContext(ctx, "db_migration_failed",
				"status", "error",
				"migration_step", step.Name,
				"error_message", err.Error(),
				"duration_ms", time.Since(start).Milliseconds(),
				"step_duration_ms", time.Since(stepStart).Milliseconds(),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.InfoContext(ctx, "db_migration_step",
			"status", "success",
			"migration_step", step.Name,
			"step_duration_ms", time.Since(stepStart).Milliseconds(),
		)
	}

	log.InfoContext(ctx, "db_migration_success",
		"status", "success",
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
