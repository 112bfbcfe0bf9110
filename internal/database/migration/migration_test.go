package migration

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dms/internal/config"
	"dms/internal/database"
	"dms/internal/logger"
)

func TestEnsureMigrated_SkipsExistingSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(Postgres.Sentinel)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	var buf bytes.Buffer
	err = EnsureMigrated(context.Background(), db, Postgres, logger.New(&buf, true, "info", time.UTC), "db")

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "db_migration_skip")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureMigrated_RunsAllSteps(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(Postgres.Sentinel)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	for _, step := range Postgres.Steps {
		mock.ExpectExec(regexp.QuoteMeta(step.SQL)).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	var buf bytes.Buffer
	err = EnsureMigrated(context.Background(), db, Postgres, logger.New(&buf, true, "info", time.UTC), "db")

	assert.NoError(t, err)
	assert.Equal(t, len(Postgres.Steps), strings.Count(buf.String(), "db_migration_step"))
	assert.Contains(t, buf.String(), "db_migration_success")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureMigrated_StepFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(Postgres.Sentinel)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta(Postgres.Steps[0].SQL)).WillReturnError(errors.New("permission denied"))

	err = EnsureMigrated(context.Background(), db, Postgres, logger.Discard(), "db")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "migration step create_table_documents failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureMigrated_SentinelFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(Postgres.Sentinel)).WillReturnError(errors.New("connection reset"))

	err = EnsureMigrated(context.Background(), db, Postgres, logger.Discard(), "db")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to check sentinel table")
}

func TestEnsureMigrated_SQLiteIsIdempotent(t *testing.T) {
	db, err := database.NewSQLite(config.DatabaseConfig{Path: ":memory:"})
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, EnsureMigrated(ctx, db, SQLite, logger.Discard(), "memory"))
	require.NoError(t, EnsureMigrated(ctx, db, SQLite, logger.Discard(), "memory"))

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM documents").Scan(&n))
	assert.Zero(t, n)
}

func TestForDriver(t *testing.T) {
	d, err := ForDriver("sqlite")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name)

	d, err = ForDriver("postgres")
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name)

	_, err = ForDriver("mysql")
	assert.Error(t, err)
}
