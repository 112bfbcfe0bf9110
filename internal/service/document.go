package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"dms/internal/model"
	"dms/internal/repository"
	"dms/internal/storage"
)

const (
	DefaultMaxSizeBytes   int64 = 10 << 20
	DefaultDownloadURLTTL       = 10 * time.Minute
	DefaultCleanupTimeout       = 30 * time.Second

	uploadedMessage = "File uploaded successfully"
)

// DefaultAllowedContentTypes is the upload allow-list used when none is configured.
var DefaultAllowedContentTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"text/plain",
}

// UploadInput carries one file to be stored for an application.
// Size is the declared byte count of Reader.
type UploadInput struct {
	ApplicationID string    `validate:"required,uuid"`
	Reader        io.Reader `validate:"required"`
	Size          int64     `validate:"gt=0"`
	Filename      string    `validate:"required"`
	ContentType   string    `validate:"required"`
}

// DocumentService defines the use cases for handling documents.
// Every returned error is a *Error.
type DocumentService interface {
	// Upload validates the input, stores the blob, then records its metadata.
	// When the metadata write fails the blob is removed again.
	Upload(ctx context.Context, in UploadInput) (*model.UploadResult, error)

	// GetDownloadURL issues a presigned download link for a document.
	GetDownloadURL(ctx context.Context, documentID string) (string, error)

	// GetDownloadURLForApplication issues a link for the first document of an application.
	GetDownloadURLForApplication(ctx context.Context, applicationID string) (string, error)

	// GetMetadata returns the external view of a document.
	GetMetadata(ctx context.Context, documentID string) (*model.DocumentView, error)

	// ListByApplication returns every document linked to an application. Never nil.
	ListByApplication(ctx context.Context, applicationID string) ([]model.DocumentView, error)

	// UpdateApplication re-links a document. An empty applicationID clears the link.
	UpdateApplication(ctx context.Context, documentID, applicationID string) (*model.DocumentView, error)

	// Delete removes the blob first and the record second. If the blob delete
	// fails the record is kept so the call can be retried.
	Delete(ctx context.Context, documentID string) error
}

// Option configures a documentService.
type Option func(*documentService)

func WithMaxSizeBytes(n int64) Option {
	return func(s *documentService) {
		if n > 0 {
			s.maxSize = n
		}
	}
}

// WithAllowedContentTypes replaces the upload allow-list. Entries are media types
// without parameters; matching is case-insensitive.
func WithAllowedContentTypes(types []string) Option {
	return func(s *documentService) {
		if len(types) > 0 {
			s.allowed = contentTypeSet(types)
		}
	}
}

func WithDownloadURLTTL(d time.Duration) Option {
	return func(s *documentService) {
		if d > 0 {
			s.urlTTL = d
		}
	}
}

// WithCleanupTimeout bounds the compensating blob delete after a failed metadata write.
func WithCleanupTimeout(d time.Duration) Option {
	return func(s *documentService) {
		if d > 0 {
			s.cleanupTimeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *documentService) {
		if l != nil {
			s.log = l
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *documentService) { s.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *documentService) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *documentService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides document ID generation, mainly for tests.
func WithIDGenerator(gen func() string) Option {
	return func(s *documentService) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store storage.Storage
	repo  repository.DocumentRepository

	maxSize        int64
	allowed        map[string]struct{}
	urlTTL         time.Duration
	cleanupTimeout time.Duration

	log     *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
	now     func() time.Time
	newID   func() string
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.Storage, repo repository.DocumentRepository, opts ...Option) DocumentService {
	s := &documentService{
		store:          store,
		repo:           repo,
		maxSize:        DefaultMaxSizeBytes,
		allowed:        contentTypeSet(DefaultAllowedContentTypes),
		urlTTL:         DefaultDownloadURLTTL,
		cleanupTimeout: DefaultCleanupTimeout,
		log:            slog.Default(),
		tracer:         otel.Tracer("dms/internal/service"),
		now:            time.Now,
		newID:          uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "document_service")
	return s
}

// StorageKey derives the blob key for a document:
// applications/<applicationID>/<documentID><ext>, ext lower-cased.
func StorageKey(applicationID, documentID, filename string) string {
	return "applications/" + applicationID + "/" + documentID + strings.ToLower(filepath.Ext(filename))
}

func (s *documentService) Upload(ctx context.Context, in UploadInput) (*model.UploadResult, error) {
	const op = "upload"
	ctx, span := s.tracer.Start(ctx, "DocumentService.Upload",
		trace.WithAttributes(attribute.String("application.id", in.ApplicationID)))
	defer span.End()

	if err := s.validateUpload(in); err != nil {
		s.metrics.upload(outcomeRejected)
		s.log.InfoContext(ctx, "upload_rejected",
			"application_id", in.ApplicationID,
			"filename", in.Filename,
			"size_bytes", in.Size,
			"reason", err.Message,
		)
		return nil, traced(span, err)
	}

	docID := s.newID()
	key := StorageKey(in.ApplicationID, docID, in.Filename)
	span.SetAttributes(attribute.String("document.id", docID), attribute.String("storage.key", key))
	log := s.log.With("document_id", docID, "application_id", in.ApplicationID, "storage_key", key)

	// A record already owning the key means the generated id collided; refuse
	// before the put would overwrite that record's blob.
	switch existing, err := s.repo.FindByStorageKey(ctx, key); {
	case err == nil:
		s.metrics.upload(outcomeConflict)
		log.ErrorContext(ctx, "upload_key_collision", "existing_document_id", existing.ID)
		return nil, traced(span, &Error{Kind: KindConflict, Op: op, Message: "storage key already in use"})
	case !errors.Is(err, repository.ErrNotFound):
		s.metrics.upload(outcomePersistence)
		log.ErrorContext(ctx, "upload_key_lookup_failed", "error", err.Error())
		return nil, traced(span, &Error{Kind: KindPersistence, Op: op, Err: err})
	}

	if _, err := s.store.Put(ctx, key, in.Reader, storage.PutObjectOptions{
		Size:        in.Size,
		ContentType: in.ContentType,
		Metadata: map[string]string{
			"document-id":    docID,
			"application-id": in.ApplicationID,
		},
	}); err != nil {
		s.metrics.upload(outcomeStorage)
		log.ErrorContext(ctx, "upload_storage_failed", storageAttrs(err)...)
		return nil, traced(span, &Error{Kind: KindStorage, Op: op, Err: err})
	}

	now := s.now().UTC()
	doc := &model.Document{
		ID:               docID,
		ApplicationID:    in.ApplicationID,
		StorageBucket:    s.store.Bucket(),
		StorageKey:       key,
		OriginalFilename: in.Filename,
		ContentType:      in.ContentType,
		SizeBytes:        in.Size,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if _, err := s.repo.Create(ctx, doc); err != nil {
		log.ErrorContext(ctx, "upload_persist_failed", "error", err.Error())
		s.compensate(ctx, log, key, err)
		if errors.Is(err, repository.ErrConflict) {
			s.metrics.upload(outcomeConflict)
			return nil, traced(span, &Error{Kind: KindConflict, Op: op, Message: "storage key already in use", Err: err})
		}
		s.metrics.upload(outcomePersistence)
		return nil, traced(span, &Error{Kind: KindPersistence, Op: op, Err: err})
	}

	res := &model.UploadResult{DocumentID: docID, Message: uploadedMessage}
	url, err := s.store.PresignGet(ctx, key, s.urlTTL)
	if err != nil {
		// The document is stored; a link can be requested again later.
		log.WarnContext(ctx, "upload_presign_failed", storageAttrs(err)...)
	} else {
		exp := now.Add(s.urlTTL)
		res.DownloadURL = url
		res.ExpiresAt = &exp
	}

	s.metrics.upload(outcomeSuccess)
	log.InfoContext(ctx, "upload_completed", "size_bytes", in.Size, "content_type", in.ContentType)
	return res, nil
}

// compensate removes the blob written by a failed upload. It runs detached from
// the request's cancellation and never changes the upload's outcome.
func (s *documentService) compensate(ctx context.Context, log *slog.Logger, key string, cause error) {
	if errors.Is(cause, repository.ErrConflict) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cleanupTimeout)
		owner, err := s.repo.FindByStorageKey(lookupCtx, key)
		cancel()
		if err == nil {
			s.metrics.compensation(compensationSkipped)
			log.WarnContext(ctx, "upload_compensation_skipped", "owner_document_id", owner.ID)
			return
		}
	}

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cleanupTimeout)
	defer cancel()
	if err := s.store.Delete(cleanupCtx, key); err != nil {
		s.metrics.compensation(compensationFailed)
		log.ErrorContext(ctx, "upload_compensation_failed", storageAttrs(err)...)
		return
	}
	s.metrics.compensation(compensationSucceeded)
	log.InfoContext(ctx, "upload_compensation_succeeded")
}

func (s *documentService) GetDownloadURL(ctx context.Context, documentID string) (string, error) {
	const op = "get_download_url"
	ctx, span := s.tracer.Start(ctx, "DocumentService.GetDownloadURL",
		trace.WithAttributes(attribute.String("document.id", documentID)))
	defer span.End()

	doc, err := s.load(ctx, op, documentID)
	if err != nil {
		return "", traced(span, err)
	}
	url, err := s.presign(ctx, op, doc)
	if err != nil {
		return "", traced(span, err)
	}
	return url, nil
}

func (s *documentService) GetDownloadURLForApplication(ctx context.Context, applicationID string) (string, error) {
	const op = "get_download_url_for_application"
	ctx, span := s.tracer.Start(ctx, "DocumentService.GetDownloadURLForApplication",
		trace.WithAttributes(attribute.String("application.id", applicationID)))
	defer span.End()

	docs, err := s.listDocuments(ctx, op, applicationID)
	if err != nil {
		return "", traced(span, err)
	}
	if len(docs) == 0 {
		return "", traced(span, &Error{Kind: KindNotFound, Op: op, Message: "no documents for application " + applicationID})
	}
	url, err := s.presign(ctx, op, &docs[0])
	if err != nil {
		return "", traced(span, err)
	}
	return url, nil
}

func (s *documentService) GetMetadata(ctx context.Context, documentID string) (*model.DocumentView, error) {
	const op = "get_metadata"
	ctx, span := s.tracer.Start(ctx, "DocumentService.GetMetadata",
		trace.WithAttributes(attribute.String("document.id", documentID)))
	defer span.End()

	doc, err := s.load(ctx, op, documentID)
	if err != nil {
		return nil, traced(span, err)
	}
	v := doc.View()
	return &v, nil
}

func (s *documentService) ListByApplication(ctx context.Context, applicationID string) ([]model.DocumentView, error) {
	const op = "list_by_application"
	ctx, span := s.tracer.Start(ctx, "DocumentService.ListByApplication",
		trace.WithAttributes(attribute.String("application.id", applicationID)))
	defer span.End()

	docs, err := s.listDocuments(ctx, op, applicationID)
	if err != nil {
		return nil, traced(span, err)
	}
	views := make([]model.DocumentView, 0, len(docs))
	for _, d := range docs {
		views = append(views, d.View())
	}
	return views, nil
}

func (s *documentService) UpdateApplication(ctx context.Context, documentID, applicationID string) (*model.DocumentView, error) {
	const op = "update_application"
	ctx, span := s.tracer.Start(ctx, "DocumentService.UpdateApplication",
		trace.WithAttributes(attribute.String("document.id", documentID), attribute.String("application.id", applicationID)))
	defer span.End()

	if applicationID != "" {
		if err := validate.Var(applicationID, "uuid"); err != nil {
			return nil, traced(span, validationError(op, "application id must be a valid UUID"))
		}
	}

	doc, err := s.load(ctx, op, documentID)
	if err != nil {
		return nil, traced(span, err)
	}
	doc.ApplicationID = applicationID
	doc.UpdatedAt = s.now().UTC()

	updated, uerr := s.repo.Update(ctx, doc)
	if uerr != nil {
		if errors.Is(uerr, repository.ErrNotFound) {
			return nil, traced(span, notFound(op, documentID))
		}
		s.log.ErrorContext(ctx, "update_persist_failed", "document_id", documentID, "error", uerr.Error())
		return nil, traced(span, &Error{Kind: KindPersistence, Op: op, Err: uerr})
	}

	s.log.InfoContext(ctx, "document_relinked", "document_id", documentID, "application_id", applicationID)
	v := updated.View()
	return &v, nil
}

func (s *documentService) Delete(ctx context.Context, documentID string) error {
	const op = "delete"
	ctx, span := s.tracer.Start(ctx, "DocumentService.Delete",
		trace.WithAttributes(attribute.String("document.id", documentID)))
	defer span.End()

	doc, err := s.load(ctx, op, documentID)
	if err != nil {
		switch err.Kind {
		case KindNotFound:
			s.metrics.delete(outcomeNotFound)
		case KindValidation:
			s.metrics.delete(outcomeRejected)
		default:
			s.metrics.delete(outcomePersistence)
		}
		return traced(span, err)
	}
	log := s.log.With("document_id", doc.ID, "storage_key", doc.StorageKey)

	// Blob first: if this fails the record still points at it and the caller can retry.
	if err := s.store.Delete(ctx, doc.StorageKey); err != nil {
		s.metrics.delete(outcomeStorage)
		log.ErrorContext(ctx, "delete_storage_failed", storageAttrs(err)...)
		return traced(span, &Error{Kind: KindStorage, Op: op, Err: err})
	}

	if err := s.repo.Delete(ctx, doc.ID); err != nil {
		s.metrics.delete(outcomePersistence)
		log.ErrorContext(ctx, "delete_persist_failed", "error", err.Error())
		return traced(span, &Error{Kind: KindPersistence, Op: op, Err: err})
	}

	s.metrics.delete(outcomeSuccess)
	log.InfoContext(ctx, "document_deleted")
	return nil
}

func (s *documentService) validateUpload(in UploadInput) *Error {
	const op = "upload"
	in.Filename = strings.TrimSpace(in.Filename)
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return validationError(op, "%s", describe(verrs[0]))
		}
		return validationError(op, "invalid upload")
	}
	if in.Size > s.maxSize {
		return &Error{
			Kind:    KindValidation,
			Op:      op,
			Message: "file exceeds the maximum allowed size",
			Err:     ErrFileTooLarge,
		}
	}
	if !s.contentTypeAllowed(in.ContentType) {
		return validationError(op, "content type %q is not allowed", in.ContentType)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Field() {
	case "ApplicationID":
		if fe.Tag() == "required" {
			return "application id is required"
		}
		return "application id must be a valid UUID"
	case "Reader":
		return "file is required"
	case "Size":
		return "file is empty"
	case "Filename":
		return "filename is required"
	case "ContentType":
		return "content type is required"
	default:
		return strings.ToLower(fe.Field()) + " is invalid"
	}
}

func (s *documentService) contentTypeAllowed(ct string) bool {
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	_, ok := s.allowed[mediaType]
	return ok
}

func contentTypeSet(types []string) map[string]struct{} {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			set[t] = struct{}{}
		}
	}
	return set
}

// load fetches a document by id, mapping repository failures to service kinds.
func (s *documentService) load(ctx context.Context, op, documentID string) (*model.Document, *Error) {
	if err := validate.Var(documentID, "required,uuid"); err != nil {
		return nil, validationError(op, "document id must be a valid UUID")
	}
	doc, err := s.repo.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(op, documentID)
		}
		s.log.ErrorContext(ctx, "document_lookup_failed", "op", op, "document_id", documentID, "error", err.Error())
		return nil, &Error{Kind: KindPersistence, Op: op, Err: err}
	}
	return doc, nil
}

func (s *documentService) listDocuments(ctx context.Context, op, applicationID string) ([]model.Document, *Error) {
	if err := validate.Var(applicationID, "required,uuid"); err != nil {
		return nil, validationError(op, "application id must be a valid UUID")
	}
	docs, err := s.repo.FindByApplicationID(ctx, applicationID)
	if err != nil {
		s.log.ErrorContext(ctx, "document_list_failed", "op", op, "application_id", applicationID, "error", err.Error())
		return nil, &Error{Kind: KindPersistence, Op: op, Err: err}
	}
	return docs, nil
}

func (s *documentService) presign(ctx context.Context, op string, doc *model.Document) (string, *Error) {
	url, err := s.store.PresignGet(ctx, doc.StorageKey, s.urlTTL)
	if err != nil {
		attrs := append([]any{"op", op, "document_id", doc.ID}, storageAttrs(err)...)
		s.log.ErrorContext(ctx, "presign_failed", attrs...)
		return "", &Error{Kind: KindStorage, Op: op, Err: err}
	}
	return url, nil
}

// storageAttrs exposes the backend code and status of a storage failure for logging.
func storageAttrs(err error) []any {
	attrs := []any{"error", err.Error()}
	var se *storage.Error
	if errors.As(err, &se) {
		attrs = append(attrs, "storage_code", se.Code, "storage_status", se.StatusCode)
	}
	return attrs
}

func traced(span trace.Span, err *Error) error {
	if err.Kind != KindValidation && err.Kind != KindNotFound {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Kind.String())
	}
	span.SetAttributes(attribute.String("error.kind", err.Kind.String()))
	return err
}
