package storage

import (
	"context"
	"fmt"
	"log/slog"

	"dms/internal/config"
)

// Open builds the Storage selected by cfg.Storage.Driver, wrapped with retries.
func Open(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) (Storage, error) {
	var (
		store Storage
		err   error
	)
	switch cfg.Storage.Driver {
	case "minio":
		store, err = NewMinIO(ctx, cfg.MinIO)
	case "s3":
		store, err = NewS3(ctx, cfg.S3)
	case "memory":
		store = NewMemory("memory")
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	if err != nil {
		return nil, err
	}

	return NewRetrying(store, RetryConfig{
		MaxAttempts:     cfg.Storage.Retry.MaxAttempts,
		InitialInterval: cfg.Storage.Retry.InitialInterval,
		MaxInterval:     cfg.Storage.Retry.MaxInterval,
	}, log), nil
}
