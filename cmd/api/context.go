package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"dms/internal/config"
	"dms/internal/logger"
)

// runtimeKey is the context key for the loaded configuration and logger.
type runtimeKey struct{}

type runtime struct {
	cfg *config.AppConfig
	log *slog.Logger
}

// setup loads configuration and installs the process logger before any command runs.
func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(os.Stdout, cfg.IsProduction(), cfg.LogLevel, time.UTC)
	logger.Setup(log)

	cmd.SetContext(context.WithValue(cmd.Context(), runtimeKey{}, &runtime{cfg: cfg, log: log}))
	return nil
}

func runtimeFromContext(ctx context.Context) (*runtime, error) {
	rt, ok := ctx.Value(runtimeKey{}).(*runtime)
	if !ok || rt == nil {
		return nil, errors.New("configuration not loaded")
	}
	return rt, nil
}
