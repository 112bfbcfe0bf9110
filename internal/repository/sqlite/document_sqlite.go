// Package sqlite implements repository.DocumentRepository on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"dms/internal/model"
	"dms/internal/repository"
)

// timeLayout is fixed width so that created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const documentColumns = `id, application_id, storage_bucket, storage_key, original_filename, content_type, size_bytes, created_at, updated_at`

// DocumentSQLite stores document metadata in SQLite.
type DocumentSQLite struct {
	db *sql.DB
}

// NewDocumentSQLite creates a new DocumentSQLite repository.
func NewDocumentSQLite(db *sql.DB) *DocumentSQLite {
	return &DocumentSQLite{db: db}
}

var _ repository.DocumentRepository = (*DocumentSQLite)(nil)

func (r *DocumentSQLite) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `INSERT INTO documents (` + documentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING ` + documentColumns

	d, err := scanDocument(r.db.QueryRowContext(ctx, q,
		doc.ID,
		nullable(doc.ApplicationID),
		doc.StorageBucket,
		doc.StorageKey,
		doc.OriginalFilename,
		doc.ContentType,
		doc.SizeBytes,
		formatTime(doc.CreatedAt),
		formatTime(doc.UpdatedAt),
	))
	if err != nil {
		return nil, fmt.Errorf("create: %w", translate(err))
	}
	return d, nil
}

func (r *DocumentSQLite) FindByID(ctx context.Context, id string) (*model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE id = ?`
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, translate(err)
	}
	return d, nil
}

func (r *DocumentSQLite) FindByStorageKey(ctx context.Context, key string) (*model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE storage_key = ?`
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, key))
	if err != nil {
		return nil, translate(err)
	}
	return d, nil
}

func (r *DocumentSQLite) FindByApplicationID(ctx context.Context, applicationID string) ([]model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE application_id = ? ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, q, applicationID)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("list: %w", err)
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	return items, nil
}

func (r *DocumentSQLite) Update(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `UPDATE documents SET application_id = ?, updated_at = ?
		WHERE id = ?
		RETURNING ` + documentColumns

	d, err := scanDocument(r.db.QueryRowContext(ctx, q, nullable(doc.ApplicationID), formatTime(doc.UpdatedAt), doc.ID))
	if err != nil {
		return nil, translate(err)
	}
	return d, nil
}

func (r *DocumentSQLite) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var (
		d                    model.Document
		appID                sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&d.ID,
		&appID,
		&d.StorageBucket,
		&d.StorageKey,
		&d.OriginalFilename,
		&d.ContentType,
		&d.SizeBytes,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	d.ApplicationID = appID.String

	var err error
	if d.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if d.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &d, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func translate(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var se *sqlitedrv.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %s", repository.ErrConflict, se.Error())
		}
		if se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", repository.ErrConflict, se.Error())
		}
	}
	return err
}
