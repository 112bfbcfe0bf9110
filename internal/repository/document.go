package repository

import (
	"context"
	"errors"

	"dms/internal/model"
)

var (
	// ErrNotFound is returned when no document matches the lookup.
	ErrNotFound = errors.New("repository: document not found")
	// ErrConflict is returned when a write violates the id or storage_key uniqueness.
	ErrConflict = errors.New("repository: document conflict")
)

// DocumentRepository defines data access for documents using SQL queries only.
// No business logic here, strictly persistence operations.
// Implementations translate driver errors into ErrNotFound and ErrConflict.
type DocumentRepository interface {
	// Create inserts a new document record. The caller provides every field, including
	// ID and both timestamps. Returns the stored document.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its ID.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// FindByApplicationID returns every document linked to the application.
	// The result is empty, not nil, when there are none.
	FindByApplicationID(ctx context.Context, applicationID string) ([]model.Document, error)

	// FindByStorageKey returns the document stored under key.
	FindByStorageKey(ctx context.Context, key string) (*model.Document, error)

	// Update persists the mutable fields (application id, updated_at) of an existing document.
	Update(ctx context.Context, doc *model.Document) (*model.Document, error)

	// Delete removes a document by ID. It returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, id string) error
}
