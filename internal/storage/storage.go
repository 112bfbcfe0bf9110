package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Package storage contains object storage abstractions and S3-compatible implementations.
// Implementations must avoid using local disk and rely on streaming I/O only.

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1 and the implementation
// will buffer/chunk as supported by the backend.
// ContentType and Metadata are optional.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an object in storage.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is a reusable, S3-compatible object storage client interface.
// Methods use context and streaming readers; no local disk is used.
type Storage interface {
	// Put uploads an object under the given key, overwriting any existing object.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Delete removes an object by key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited URL that can be used to download the object without credentials.
	// It does not check that the object exists.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	// Bucket is the bucket every key of this store lives in.
	Bucket() string
}

// Error is returned by every Storage implementation. Code and StatusCode carry
// the backend diagnostics (e.g. "NoSuchBucket", 404); both are empty for transport failures.
type Error struct {
	Op         string
	Key        string
	Code       string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("storage %s %q", e.Op, e.Key)
	if e.Code != "" || e.StatusCode != 0 {
		msg += fmt.Sprintf(" (code=%s status=%d)", e.Code, e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// S3 error codes that are transient regardless of the status they arrive with.
var retryableCodes = map[string]bool{
	"RequestTimeout":     true,
	"SlowDown":           true,
	"InternalError":      true,
	"ServiceUnavailable": true,
}

// IsRetryable reports whether err is a transient backend failure worth retrying.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *Error
	if !errors.As(err, &se) {
		return false
	}
	if retryableCodes[se.Code] {
		return true
	}
	switch {
	case se.StatusCode == 0:
		return se.Code == ""
	case se.StatusCode >= http.StatusInternalServerError:
		return true
	case se.StatusCode == http.StatusRequestTimeout, se.StatusCode == http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

// wrap converts a backend error into *Error unless it already is one.
func wrap(op, key string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Op: op, Key: key, Err: err}
}
