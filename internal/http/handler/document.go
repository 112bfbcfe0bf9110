package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"dms/internal/service"
)

// downloadURLResponse is the body of both download-url endpoints.
type downloadURLResponse struct {
	DownloadURL string `json:"download_url"`
}

type updateDocumentRequest struct {
	ApplicationID string `json:"applicationId"`
}

// pathUUID reads a path parameter and checks it is a UUID.
func pathUUID(c *fiber.Ctx, name string) (string, bool) {
	id := c.Params(name)
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// UploadDocument godoc
// @Summary Upload a document for an application
// @Tags documents
// @Accept mpfd
// @Produce json
// @Param applicationId path string true "Application ID (UUID)"
// @Param file formData file true "Document file"
// @Success 200 {object} model.UploadResult
// @Failure 400 {object} errorPayload
// @Failure 409 {object} errorPayload
// @Failure 413 {object} errorPayload
// @Failure 503 {object} errorPayload
// @Router /api/v1/applications/{applicationId}/documents [post]
func UploadDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		appID, ok := pathUUID(c, "applicationId")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		res, err := docSvc.Upload(c.UserContext(), service.UploadInput{
			ApplicationID: appID,
			Reader:        f,
			Size:          fh.Size,
			Filename:      fh.Filename,
			ContentType:   ct,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(res)
	}
}

// ListDocuments godoc
// @Summary List documents linked to an application
// @Tags documents
// @Produce json
// @Param applicationId path string true "Application ID (UUID)"
// @Success 200 {array} model.DocumentView
// @Failure 400 {object} errorPayload
// @Router /api/v1/applications/{applicationId}/documents [get]
func ListDocuments(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		appID, ok := pathUUID(c, "applicationId")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		docs, err := docSvc.ListByApplication(c.UserContext(), appID)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(docs)
	}
}

// GetApplicationDownloadURL godoc
// @Summary Download URL for the first document of an application
// @Tags documents
// @Produce json
// @Param applicationId path string true "Application ID (UUID)"
// @Success 200 {object} downloadURLResponse
// @Failure 404 {object} errorPayload
// @Router /api/v1/applications/{applicationId}/download-url [get]
func GetApplicationDownloadURL(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		appID, ok := pathUUID(c, "applicationId")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		link, err := docSvc.GetDownloadURLForApplication(c.UserContext(), appID)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(downloadURLResponse{DownloadURL: link})
	}
}

// GetDocument godoc
// @Summary Get document metadata
// @Tags documents
// @Produce json
// @Param documentId path string true "Document ID (UUID)"
// @Success 200 {object} model.DocumentView
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /api/v1/documents/{documentId} [get]
func GetDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathUUID(c, "documentId")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := docSvc.GetMetadata(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// GetDocumentDownloadURL godoc
// @Summary Presigned download URL for a document
// @Tags documents
// @Produce json
// @Param documentId path string true "Document ID (UUID)"
// @Success 200 {object} downloadURLResponse
// @Failure 404 {object} errorPayload
// @Failure 503 {object} errorPayload
// @Router /api/v1/documents/{documentId}/download-url [get]
func GetDocumentDownloadURL(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathUUID(c, "documentId")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		link, err := docSvc.GetDownloadURL(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(downloadURLResponse{DownloadURL: link})
	}
}

// UpdateDocument godoc
// @Summary Link a document to another application
// @Description The new application id is read from the applicationId query parameter, or from a JSON body.
// @Tags documents
// @Accept json
// @Produce json
// @Param documentId path string true "Document ID (UUID)"
// @Param applicationId query string false "New application ID (UUID)"
// @Param body body updateDocumentRequest false "New application ID"
// @Success 200 {object} model.DocumentView
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /api/v1/documents/{documentId} [put]
func UpdateDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathUUID(c, "documentId")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		appID := strings.TrimSpace(c.Query("applicationId"))
		if appID == "" && len(c.Body()) > 0 {
			var req updateDocumentRequest
			if err := c.BodyParser(&req); err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
			}
			appID = strings.TrimSpace(req.ApplicationID)
		}
		if appID == "" {
			return writeError(c, fiber.StatusBadRequest, "APPLICATION_ID_REQUIRED", "applicationId is required")
		}
		if _, err := uuid.Parse(appID); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		doc, err := docSvc.UpdateApplication(c.UserContext(), id, appID)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// DeleteDocument godoc
// @Summary Delete a document and its stored file
// @Tags documents
// @Param documentId path string true "Document ID (UUID)"
// @Success 204
// @Failure 404 {object} errorPayload
// @Failure 503 {object} errorPayload
// @Router /api/v1/documents/{documentId} [delete]
func DeleteDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathUUID(c, "documentId")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := docSvc.Delete(c.UserContext(), id); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
