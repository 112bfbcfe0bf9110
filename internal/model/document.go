package model

import "time"

// Document is the metadata record for a stored file.
// This is a pure domain model with no database-specific dependencies or tags.
// StorageBucket and StorageKey locate the blob and never leave the service.
type Document struct {
	ID               string
	ApplicationID    string // empty when the document is not linked to an application
	StorageBucket    string
	StorageKey       string
	OriginalFilename string
	ContentType      string
	SizeBytes        int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DocumentView is the external representation of a Document.
type DocumentView struct {
	ID               string    `json:"id"`
	ApplicationID    string    `json:"application_id,omitempty"`
	OriginalFilename string    `json:"original_filename"`
	ContentType      string    `json:"content_type"`
	SizeBytes        int64     `json:"size_bytes"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// View maps the record to its external representation.
func (d Document) View() DocumentView {
	return DocumentView{
		ID:               d.ID,
		ApplicationID:    d.ApplicationID,
		OriginalFilename: d.OriginalFilename,
		ContentType:      d.ContentType,
		SizeBytes:        d.SizeBytes,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

// UploadResult is returned after a document has been stored and recorded.
type UploadResult struct {
	DocumentID  string     `json:"document_id"`
	Message     string     `json:"message"`
	DownloadURL string     `json:"download_url,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}
