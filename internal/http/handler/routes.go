package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"dms/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers stay thin: parse, call the service, map the result.
func RegisterRoutes(app *fiber.App, db *sql.DB, docSvc service.DocumentService) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	api := app.Group("/api/v1")
	api.Get("/health", ServiceHealth())

	api.Post("/applications/:applicationId/documents", UploadDocument(docSvc))
	api.Get("/applications/:applicationId/documents", ListDocuments(docSvc))
	api.Get("/applications/:applicationId/download-url", GetApplicationDownloadURL(docSvc))

	api.Get("/documents/:documentId", GetDocument(docSvc))
	api.Get("/documents/:documentId/download-url", GetDocumentDownloadURL(docSvc))
	api.Put("/documents/:documentId", UpdateDocument(docSvc))
	api.Delete("/documents/:documentId", DeleteDocument(docSvc))
}
