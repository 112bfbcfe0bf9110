package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"dms/docs"
	"dms/internal/config"
	"dms/internal/database"
	"dms/internal/database/migration"
	handlers "dms/internal/http/handler"
	"dms/internal/http/middleware"
	"dms/internal/otel"
	"dms/internal/repository"
	"dms/internal/repository/postgres"
	"dms/internal/repository/sqlite"
	"dms/internal/service"
	"dms/internal/storage"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	rt, err := runtimeFromContext(ctx)
	if err != nil {
		return err
	}
	cfg, log := rt.cfg, rt.log

	shutdownTracing, err := otel.Init(ctx, cfg.Tracing, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Error("tracing_shutdown_failed", "error", err)
		}
	}()

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = db.Close() }()

	dialect, err := migration.ForDriver(cfg.Database.Driver)
	if err != nil {
		return err
	}
	if err := migration.EnsureMigrated(ctx, db, dialect, log, dbHost(cfg.Database)); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	store, err := storage.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("initialize object storage: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metrics, err := service.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("register service metrics: %w", err)
	}

	docSvc := service.NewDocumentService(store, newRepository(cfg.Database.Driver, db),
		service.WithMaxSizeBytes(cfg.Upload.MaxSizeBytes),
		service.WithAllowedContentTypes(cfg.Upload.AllowedContentTypes),
		service.WithDownloadURLTTL(cfg.Upload.DownloadURLTTL),
		service.WithCleanupTimeout(cfg.Upload.CleanupTimeout),
		service.WithLogger(log),
		service.WithMetrics(metrics),
	)

	app, err := newApp(cfg, log, db, docSvc, reg)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server_starting", "addr", ":"+cfg.Port, "env", cfg.Env, "db_driver", cfg.Database.Driver, "storage_driver", cfg.Storage.Driver)
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("server_shutting_down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(sctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// newApp builds the Fiber app with the global middleware chain and all routes.
func newApp(cfg *config.AppConfig, log *slog.Logger, db *sql.DB, docSvc service.DocumentService, reg *prometheus.Registry) (*fiber.App, error) {
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    cfg.HTTP.BodyLimitBytes,
	})

	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return nil, fmt.Errorf("register http metrics: %w", err)
	}

	// RequestID first so every later middleware and handler can read it.
	app.Use(middleware.RequestID())
	app.Use(otelfiber.Middleware(otelfiber.WithNext(func(c *fiber.Ctx) bool {
		return c.Path() == "/metrics"
	})))
	app.Use(middleware.Logger(log))
	app.Use(promMiddleware.Handler())
	app.Use(middleware.CORS(cfg.HTTP))
	app.Use(middleware.SecurityHeaders(cfg.HTTP))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	handlers.RegisterRoutes(app, db, docSvc)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	return app, nil
}

func newRepository(driver string, db *sql.DB) repository.DocumentRepository {
	if driver == "sqlite" {
		return sqlite.NewDocumentSQLite(db)
	}
	return postgres.NewDocumentPostgres(db)
}

func dbHost(c config.DatabaseConfig) string {
	if c.Driver == "sqlite" {
		return c.Path
	}
	return c.Host
}
