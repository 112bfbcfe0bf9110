package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"dms/internal/model"
	"dms/internal/repository"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

const documentColumns = `id, application_id, storage_bucket, storage_key, original_filename, content_type, size_bytes, created_at, updated_at`

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + documentColumns

	var out *model.Document
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		out, err = scanDocument(tx.QueryRowContext(ctx, q,
			doc.ID,
			nullable(doc.ApplicationID),
			doc.StorageBucket,
			doc.StorageKey,
			doc.OriginalFilename,
			doc.ContentType,
			doc.SizeBytes,
			doc.CreatedAt,
			doc.UpdatedAt,
		))
		return err
	})
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, translate(err)
	}
	return d, nil
}

// FindByStorageKey fetches the document stored under key.
func (r *DocumentPostgres) FindByStorageKey(ctx context.Context, key string) (*model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE storage_key = $1`
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, key))
	if err != nil {
		return nil, translate(err)
	}
	return d, nil
}

// FindByApplicationID returns every document linked to applicationID, oldest first.
func (r *DocumentPostgres) FindByApplicationID(ctx context.Context, applicationID string) ([]model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE application_id = $1 ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, q, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Update writes the application link and updated_at of an existing row.
func (r *DocumentPostgres) Update(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		UPDATE documents SET application_id = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + documentColumns

	var out *model.Document
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		out, err = scanDocument(tx.QueryRowContext(ctx, q, doc.ID, nullable(doc.ApplicationID), doc.UpdatedAt))
		return err
	})
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// Delete removes a document by ID. It does not return an error if the row does not exist.
func (r *DocumentPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM documents WHERE id = $1`
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, q, id)
		return err
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var (
		d     model.Document
		appID sql.NullString
	)
	if err := row.Scan(
		&d.ID,
		&appID,
		&d.StorageBucket,
		&d.StorageKey,
		&d.OriginalFilename,
		&d.ContentType,
		&d.SizeBytes,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	d.ApplicationID = appID.String
	return &d, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// translate maps driver errors onto the repository sentinels.
func translate(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", repository.ErrConflict, pgErr.ConstraintName)
	}
	return err
}
