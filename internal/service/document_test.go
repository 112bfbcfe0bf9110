package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"dms/internal/logger"
	"dms/internal/model"
	"dms/internal/repository"
	repoMocks "dms/internal/repository/mocks"
	"dms/internal/storage"
	storeMocks "dms/internal/storage/mocks"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testAppID = "5d1f2c8a-3a57-4d0e-8f0e-1c6c1d3c2a10"
	testDocID = "0b7c3c0e-7f5e-4c39-9b55-5f0d2f2b0c11"
	testKey   = "applications/" + testAppID + "/" + testDocID + ".pdf"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(mStore storage.Storage, mRepo repository.DocumentRepository, opts ...Option) DocumentService {
	base := []Option{
		WithLogger(logger.Discard()),
		WithClock(func() time.Time { return testNow }),
		WithIDGenerator(func() string { return testDocID }),
	}
	return NewDocumentService(mStore, mRepo, append(base, opts...)...)
}

func storedDocument() *model.Document {
	return &model.Document{
		ID:               testDocID,
		ApplicationID:    testAppID,
		StorageBucket:    "documents",
		StorageKey:       testKey,
		OriginalFilename: "resume.pdf",
		ContentType:      "application/pdf",
		SizeBytes:        5,
		CreatedAt:        testNow,
		UpdatedAt:        testNow,
	}
}

func pdfInput(r io.Reader) UploadInput {
	return UploadInput{
		ApplicationID: testAppID,
		Reader:        r,
		Size:          5,
		Filename:      "resume.pdf",
		ContentType:   "application/pdf",
	}
}

func TestStorageKey(t *testing.T) {
	assert.Equal(t, "applications/A1/D1.pdf", StorageKey("A1", "D1", "resume.PDF"))
	assert.Equal(t, "applications/A1/D1", StorageKey("A1", "D1", "README"))
	assert.Equal(t, "applications/A1/D1.gz", StorageKey("A1", "D1", "archive.tar.gz"))
}

func TestDocumentService_Upload(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		input      func(r io.Reader) UploadInput
		setupMocks func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository)
		wantKind   Kind
		wantErr    bool
		checkRes   func(t *testing.T, res *model.UploadResult)
	}{
		{
			name:  "happy path",
			input: pdfInput,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByStorageKey", mock.Anything, testKey).Return(nil, repository.ErrNotFound)
				mStore.On("Put", mock.Anything, testKey, mock.Anything, storage.PutObjectOptions{
					Size:        5,
					ContentType: "application/pdf",
					Metadata:    map[string]string{"document-id": testDocID, "application-id": testAppID},
				}).Return(storage.ObjectInfo{Key: testKey, Size: 5}, nil)
				mStore.On("Bucket").Return("documents")
				mRepo.On("Create", mock.Anything, storedDocument()).Return(storedDocument(), nil)
				mStore.On("PresignGet", mock.Anything, testKey, 10*time.Minute).Return("https://signed/url", nil)
			},
			checkRes: func(t *testing.T, res *model.UploadResult) {
				assert.Equal(t, testDocID, res.DocumentID)
				assert.Equal(t, "File uploaded successfully", res.Message)
				assert.Equal(t, "https://signed/url", res.DownloadURL)
				require.NotNil(t, res.ExpiresAt)
				assert.Equal(t, testNow.Add(10*time.Minute), *res.ExpiresAt)
			},
		},
		{
			name: "content type parameters are ignored",
			input: func(r io.Reader) UploadInput {
				in := pdfInput(r)
				in.Filename = "notes.txt"
				in.ContentType = "Text/Plain; charset=utf-8"
				return in
			},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				key := "applications/" + testAppID + "/" + testDocID + ".txt"
				mRepo.On("FindByStorageKey", mock.Anything, key).Return(nil, repository.ErrNotFound)
				mStore.On("Put", mock.Anything, key, mock.Anything, mock.Anything).Return(storage.ObjectInfo{Key: key}, nil)
				mStore.On("Bucket").Return("documents")
				mRepo.On("Create", mock.Anything, mock.Anything).Return(&model.Document{ID: testDocID}, nil)
				mStore.On("PresignGet", mock.Anything, key, mock.Anything).Return("u", nil)
			},
		},
		{
			name: "validation - missing application id",
			input: func(r io.Reader) UploadInput {
				in := pdfInput(r)
				in.ApplicationID = ""
				return in
			},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {},
			wantErr:    true,
			wantKind:   KindValidation,
		},
		{
			name: "validation - application id not a uuid",
			input: func(r io.Reader) UploadInput {
				in := pdfInput(r)
				in.ApplicationID = "A1"
				return in
			},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {},
			wantErr:    true,
			wantKind:   KindValidation,
		},
		{
			name: "validation - nil reader",
			input: func(r io.Reader) UploadInput {
				return pdfInput(nil)
			},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {},
			wantErr:    true,
			wantKind:   KindValidation,
		},
		{
			name: "validation - empty payload",
			input: func(r io.Reader) UploadInput {
				in := pdfInput(r)
				in.Size = 0
				return in
			},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {},
			wantErr:    true,
			wantKind:   KindValidation,
		},
		{
			name: "validation - blank filename",
			input: func(r io.Reader) UploadInput {
				in := pdfInput(r)
				in.Filename = "   "
				return in
			},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {},
			wantErr:    true,
			wantKind:   KindValidation,
		},
		{
			name: "validation - content type not allowed",
			input: func(r io.Reader) UploadInput {
				in := pdfInput(r)
				in.ContentType = "image/png"
				return in
			},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {},
			wantErr:    true,
			wantKind:   KindValidation,
		},
		{
			name:  "key already owned by another record",
			input: pdfInput,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByStorageKey", mock.Anything, testKey).Return(storedDocument(), nil)
			},
			wantErr:  true,
			wantKind: KindConflict,
		},
		{
			name:  "storage error",
			input: pdfInput,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByStorageKey", mock.Anything, testKey).Return(nil, repository.ErrNotFound)
				mStore.On("Put", mock.Anything, testKey, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{}, &storage.Error{Op: "put", Key: testKey, Code: "SlowDown", StatusCode: 503})
			},
			wantErr:  true,
			wantKind: KindStorage,
		},
		{
			name:  "repository error with successful rollback",
			input: pdfInput,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByStorageKey", mock.Anything, testKey).Return(nil, repository.ErrNotFound)
				mStore.On("Put", mock.Anything, testKey, mock.Anything, mock.Anything).
					Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
						return storage.ObjectInfo{Key: key}
					}, nil)
				mStore.On("Bucket").Return("documents")
				mRepo.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("db fail"))
				mStore.On("Delete", mock.Anything, testKey).Return(nil).Once()
			},
			wantErr:  true,
			wantKind: KindPersistence,
		},
		{
			name:  "repository error with failed rollback returns the original failure",
			input: pdfInput,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByStorageKey", mock.Anything, testKey).Return(nil, repository.ErrNotFound)
				mStore.On("Put", mock.Anything, testKey, mock.Anything, mock.Anything).Return(storage.ObjectInfo{Key: testKey}, nil)
				mStore.On("Bucket").Return("documents")
				mRepo.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("db fail"))
				mStore.On("Delete", mock.Anything, testKey).Return(errors.New("delete fail")).Once()
			},
			wantErr:  true,
			wantKind: KindPersistence,
		},
		{
			name:  "unique violation on create maps to conflict and keeps the owner's blob",
			input: pdfInput,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByStorageKey", mock.Anything, testKey).Return(nil, repository.ErrNotFound).Once()
				mStore.On("Put", mock.Anything, testKey, mock.Anything, mock.Anything).Return(storage.ObjectInfo{Key: testKey}, nil)
				mStore.On("Bucket").Return("documents")
				mRepo.On("Create", mock.Anything, mock.Anything).Return(nil, repository.ErrConflict)
				mRepo.On("FindByStorageKey", mock.Anything, testKey).Return(&model.Document{ID: "winner"}, nil).Once()
			},
			wantErr:  true,
			wantKind: KindConflict,
		},
		{
			name:  "presign failure after persist still succeeds",
			input: pdfInput,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByStorageKey", mock.Anything, testKey).Return(nil, repository.ErrNotFound)
				mStore.On("Put", mock.Anything, testKey, mock.Anything, mock.Anything).Return(storage.ObjectInfo{Key: testKey}, nil)
				mStore.On("Bucket").Return("documents")
				mRepo.On("Create", mock.Anything, mock.Anything).Return(storedDocument(), nil)
				mStore.On("PresignGet", mock.Anything, testKey, mock.Anything).Return("", errors.New("signer down"))
			},
			checkRes: func(t *testing.T, res *model.UploadResult) {
				assert.Equal(t, testDocID, res.DocumentID)
				assert.Empty(t, res.DownloadURL)
				assert.Nil(t, res.ExpiresAt)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := newTestService(mStore, mRepo)

			tt.setupMocks(mStore, mRepo)

			res, err := svc.Upload(ctx, tt.input(strings.NewReader("hello")))

			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, KindOf(err))
				assert.Nil(t, res)
			} else {
				require.NoError(t, err)
				require.NotNil(t, res)
				if tt.checkRes != nil {
					tt.checkRes(t, res)
				}
			}

			mStore.AssertExpectations(t)
			mRepo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_Upload_TooLarge(t *testing.T) {
	mStore := new(storeMocks.MockStorage)
	mRepo := new(repoMocks.MockDocumentRepository)
	svc := newTestService(mStore, mRepo, WithMaxSizeBytes(4))

	_, err := svc.Upload(context.Background(), pdfInput(strings.NewReader("hello")))

	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, ErrFileTooLarge)
	mStore.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mRepo.AssertNotCalled(t, "FindByStorageKey", mock.Anything, mock.Anything)
}

func TestDocumentService_Upload_CompensationSurvivesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	mStore := new(storeMocks.MockStorage)
	mRepo := new(repoMocks.MockDocumentRepository)
	svc := newTestService(mStore, mRepo, WithCleanupTimeout(time.Second))

	mRepo.On("FindByStorageKey", mock.Anything, testKey).Return(nil, repository.ErrNotFound)
	mStore.On("Put", mock.Anything, testKey, mock.Anything, mock.Anything).Return(storage.ObjectInfo{Key: testKey}, nil)
	mStore.On("Bucket").Return("documents")
	mRepo.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { cancel() }).
		Return(nil, context.Canceled)

	var cleanupCtx context.Context
	mStore.On("Delete", mock.Anything, testKey).
		Run(func(args mock.Arguments) { cleanupCtx = args.Get(0).(context.Context) }).
		Return(nil)

	_, err := svc.Upload(ctx, pdfInput(strings.NewReader("hello")))

	assert.ErrorIs(t, err, ErrPersistence)
	require.NotNil(t, cleanupCtx)
	assert.NoError(t, cleanupCtx.Err(), "cleanup must not inherit the request's cancellation")
	_, hasDeadline := cleanupCtx.Deadline()
	assert.True(t, hasDeadline, "cleanup is bounded by the cleanup timeout")
	mStore.AssertExpectations(t)
}

func TestDocumentService_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	mStore := new(storeMocks.MockStorage)
	mRepo := new(repoMocks.MockDocumentRepository)
	svc := newTestService(mStore, mRepo, WithMetrics(m))

	mRepo.On("FindByStorageKey", mock.Anything, testKey).Return(nil, repository.ErrNotFound)
	mStore.On("Put", mock.Anything, testKey, mock.Anything, mock.Anything).Return(storage.ObjectInfo{Key: testKey}, nil)
	mStore.On("Bucket").Return("documents")
	mRepo.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("db fail"))
	mStore.On("Delete", mock.Anything, testKey).Return(errors.New("delete fail"))

	_, _ = svc.Upload(context.Background(), pdfInput(strings.NewReader("hello")))
	_, _ = svc.Upload(context.Background(), UploadInput{})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues(outcomePersistence)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues(outcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.compensations.WithLabelValues(compensationFailed)))

	_, err = NewMetrics(reg)
	assert.Error(t, err, "registering twice on one registry fails")
}

func TestDocumentService_GetMetadata(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		id         string
		setupMocks func(mRepo *repoMocks.MockDocumentRepository)
		wantErr    error
	}{
		{
			name: "happy path",
			id:   testDocID,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", mock.Anything, testDocID).Return(storedDocument(), nil)
			},
		},
		{
			name:       "validation - invalid id",
			id:         "not-a-uuid",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {},
			wantErr:    ErrValidation,
		},
		{
			name: "not found",
			id:   testDocID,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", mock.Anything, testDocID).Return(nil, repository.ErrNotFound)
			},
			wantErr: ErrNotFound,
		},
		{
			name: "generic repository error",
			id:   testDocID,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", mock.Anything, testDocID).Return(nil, errors.New("db fail"))
			},
			wantErr: ErrPersistence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := newTestService(nil, mRepo)

			tt.setupMocks(mRepo)

			view, err := svc.GetMetadata(ctx, tt.id)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, view)
			} else {
				assert.NoError(t, err)
				require.NotNil(t, view)
				assert.Equal(t, tt.id, view.ID)
				assert.Equal(t, "resume.pdf", view.OriginalFilename)
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_GetDownloadURL(t *testing.T) {
	ctx := context.Background()

	t.Run("success uses configured ttl", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(mStore, mRepo, WithDownloadURLTTL(time.Minute))

		mRepo.On("FindByID", mock.Anything, testDocID).Return(storedDocument(), nil)
		mStore.On("PresignGet", mock.Anything, testKey, time.Minute).Return("https://signed", nil)

		url, err := svc.GetDownloadURL(ctx, testDocID)

		assert.NoError(t, err)
		assert.Equal(t, "https://signed", url)
		mStore.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(mStore, mRepo)

		mRepo.On("FindByID", mock.Anything, testDocID).Return(nil, repository.ErrNotFound)

		_, err := svc.GetDownloadURL(ctx, testDocID)

		assert.ErrorIs(t, err, ErrNotFound)
		mStore.AssertNotCalled(t, "PresignGet", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("signer failure", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(mStore, mRepo)

		mRepo.On("FindByID", mock.Anything, testDocID).Return(storedDocument(), nil)
		mStore.On("PresignGet", mock.Anything, testKey, mock.Anything).Return("", errors.New("no credentials"))

		_, err := svc.GetDownloadURL(ctx, testDocID)

		assert.ErrorIs(t, err, ErrStorage)
	})
}

func TestDocumentService_GetDownloadURLForApplication(t *testing.T) {
	ctx := context.Background()

	t.Run("first document wins", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(mStore, mRepo)

		first := *storedDocument()
		second := *storedDocument()
		second.StorageKey = "applications/" + testAppID + "/other.pdf"
		mRepo.On("FindByApplicationID", mock.Anything, testAppID).Return([]model.Document{first, second}, nil)
		mStore.On("PresignGet", mock.Anything, testKey, mock.Anything).Return("https://first", nil)

		url, err := svc.GetDownloadURLForApplication(ctx, testAppID)

		assert.NoError(t, err)
		assert.Equal(t, "https://first", url)
	})

	t.Run("no documents", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(nil, mRepo)

		mRepo.On("FindByApplicationID", mock.Anything, testAppID).Return([]model.Document{}, nil)

		_, err := svc.GetDownloadURLForApplication(ctx, testAppID)

		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("invalid application id", func(t *testing.T) {
		svc := newTestService(nil, new(repoMocks.MockDocumentRepository))

		_, err := svc.GetDownloadURLForApplication(ctx, "A1")

		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestDocumentService_ListByApplication(t *testing.T) {
	ctx := context.Background()

	t.Run("maps records to views", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(nil, mRepo)
		mRepo.On("FindByApplicationID", mock.Anything, testAppID).Return([]model.Document{*storedDocument()}, nil)

		views, err := svc.ListByApplication(ctx, testAppID)

		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, testDocID, views[0].ID)
	})

	t.Run("empty is not nil", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(nil, mRepo)
		mRepo.On("FindByApplicationID", mock.Anything, testAppID).Return([]model.Document{}, nil)

		views, err := svc.ListByApplication(ctx, testAppID)

		require.NoError(t, err)
		assert.NotNil(t, views)
		assert.Empty(t, views)
	})

	t.Run("repository error", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(nil, mRepo)
		mRepo.On("FindByApplicationID", mock.Anything, testAppID).Return(nil, errors.New("db fail"))

		_, err := svc.ListByApplication(ctx, testAppID)

		assert.ErrorIs(t, err, ErrPersistence)
	})
}

func TestDocumentService_UpdateApplication(t *testing.T) {
	ctx := context.Background()
	newApp := "11111111-2222-4333-8444-555555555555"
	later := testNow.Add(time.Hour)

	tests := []struct {
		name       string
		appID      string
		setupMocks func(mRepo *repoMocks.MockDocumentRepository)
		wantErr    error
	}{
		{
			name:  "relink",
			appID: newApp,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", mock.Anything, testDocID).Return(storedDocument(), nil)
				mRepo.On("Update", mock.Anything, mock.MatchedBy(func(d *model.Document) bool {
					return d.ApplicationID == newApp && d.UpdatedAt.Equal(later) && d.CreatedAt.Equal(testNow)
				})).Return(&model.Document{ID: testDocID, ApplicationID: newApp, UpdatedAt: later}, nil)
			},
		},
		{
			name:  "clear link",
			appID: "",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", mock.Anything, testDocID).Return(storedDocument(), nil)
				mRepo.On("Update", mock.Anything, mock.MatchedBy(func(d *model.Document) bool {
					return d.ApplicationID == ""
				})).Return(&model.Document{ID: testDocID}, nil)
			},
		},
		{
			name:       "invalid application id",
			appID:      "nope",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {},
			wantErr:    ErrValidation,
		},
		{
			name:  "not found",
			appID: newApp,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", mock.Anything, testDocID).Return(nil, repository.ErrNotFound)
			},
			wantErr: ErrNotFound,
		},
		{
			name:  "update error",
			appID: newApp,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", mock.Anything, testDocID).Return(storedDocument(), nil)
				mRepo.On("Update", mock.Anything, mock.Anything).Return(nil, errors.New("db fail"))
			},
			wantErr: ErrPersistence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := newTestService(nil, mRepo, WithClock(func() time.Time { return later }))

			tt.setupMocks(mRepo)

			view, err := svc.UpdateApplication(ctx, testDocID, tt.appID)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, view)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.appID, view.ApplicationID)
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_Delete(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		id         string
		setupMocks func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository)
		wantErr    error
	}{
		{
			name: "happy path",
			id:   testDocID,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", mock.Anything, testDocID).Return(storedDocument(), nil)
				mStore.On("Delete", mock.Anything, testKey).Return(nil)
				mRepo.On("Delete", mock.Anything, testDocID).Return(nil)
			},
		},
		{
			name:       "validation - invalid id",
			id:         "",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {},
			wantErr:    ErrValidation,
		},
		{
			name: "not found",
			id:   testDocID,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", mock.Anything, testDocID).Return(nil, repository.ErrNotFound)
			},
			wantErr: ErrNotFound,
		},
		{
			name: "storage delete error keeps the record",
			id:   testDocID,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", mock.Anything, testDocID).Return(storedDocument(), nil)
				mStore.On("Delete", mock.Anything, testKey).Return(errors.New("storage fail"))
			},
			wantErr: ErrStorage,
		},
		{
			name: "repository delete error",
			id:   testDocID,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", mock.Anything, testDocID).Return(storedDocument(), nil)
				mStore.On("Delete", mock.Anything, testKey).Return(nil)
				mRepo.On("Delete", mock.Anything, testDocID).Return(errors.New("db fail"))
			},
			wantErr: ErrPersistence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := newTestService(mStore, mRepo)

			tt.setupMocks(mStore, mRepo)

			err := svc.Delete(ctx, tt.id)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			mStore.AssertExpectations(t)
			mRepo.AssertExpectations(t)
		})
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{Kind: KindNotFound, Op: "get_metadata", Message: "document x not found"}

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrConflict)
	assert.Equal(t, "get_metadata: not_found: document x not found", err.Error())
	assert.Equal(t, KindInternal, KindOf(errors.New("foreign")))
}
