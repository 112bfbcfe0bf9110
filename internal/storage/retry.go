package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryConfig bounds the retries performed by NewRetrying.
type RetryConfig struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

type retryingStorage struct {
	inner Storage
	cfg   RetryConfig
	log   *slog.Logger
}

// NewRetrying decorates inner with exponential-backoff retries for transient failures.
// Put is only retried when the body is an io.Seeker, since a consumed stream cannot be replayed.
func NewRetrying(inner Storage, cfg RetryConfig, log *slog.Logger) Storage {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval < cfg.InitialInterval {
		cfg.MaxInterval = cfg.InitialInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &retryingStorage{inner: inner, cfg: cfg, log: log}
}

func (r *retryingStorage) Bucket() string { return r.inner.Bucket() }

func (r *retryingStorage) Put(ctx context.Context, key string, body io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	seeker, ok := body.(io.Seeker)
	if !ok {
		return r.inner.Put(ctx, key, body, opt)
	}
	start, err := seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return r.inner.Put(ctx, key, body, opt)
	}

	attempt := 0
	return retry(ctx, r, "put", key, func() (ObjectInfo, error) {
		if attempt > 0 {
			if _, err := seeker.Seek(start, io.SeekStart); err != nil {
				return ObjectInfo{}, backoff.Permanent(&Error{Op: "put", Key: key, Err: fmt.Errorf("rewind body: %w", err)})
			}
		}
		attempt++
		return r.inner.Put(ctx, key, body, opt)
	})
}

func (r *retryingStorage) Delete(ctx context.Context, key string) error {
	_, err := retry(ctx, r, "delete", key, func() (struct{}, error) {
		return struct{}{}, r.inner.Delete(ctx, key)
	})
	return err
}

func (r *retryingStorage) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return retry(ctx, r, "presign", key, func() (string, error) {
		return r.inner.PresignGet(ctx, key, expiry)
	})
}

func retry[T any](ctx context.Context, r *retryingStorage, op, key string, fn func() (T, error)) (T, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.cfg.InitialInterval
	eb.MaxInterval = r.cfg.MaxInterval

	res, err := backoff.Retry(ctx, func() (T, error) {
		v, err := fn()
		if err != nil && !IsRetryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(r.cfg.MaxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			r.log.WarnContext(ctx, "storage_retry",
				"component", "storage",
				"op", op,
				"key", key,
				"retry_in_ms", next.Milliseconds(),
				"error", err.Error(),
			)
		}),
	)
	return res, wrap(op, key, err)
}
