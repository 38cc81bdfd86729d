package http

import (
	"errors"
	"net/http"

	apierrors "wexport/internal/errors"
	"wexport/internal/importer"
	"wexport/internal/middleware"
	"wexport/internal/services"
	"wexport/internal/templates"
)

// toAPIError maps service sentinels onto API errors. Unknown errors are
// returned unchanged and rendered as a generic 500.
func toAPIError(err error) error {
	switch {
	case errors.Is(err, templates.ErrNotFound):
		return apierrors.ErrTemplateNotFound
	case errors.Is(err, templates.ErrInvalidName):
		return apierrors.ErrValidation("name", "Template name is required and must be at most 100 characters")
	case errors.Is(err, templates.ErrInvalidImport):
		return apierrors.ErrValidation("file", "Invalid template file")
	case errors.Is(err, services.ErrDownloadNotFound), errors.Is(err, services.ErrFileNotFound):
		return apierrors.ErrDownloadNotFound
	case errors.Is(err, services.ErrExportFailed), errors.Is(err, services.ErrPreviewFailed):
		return apierrors.ErrExportFailed
	case errors.Is(err, importer.ErrNoFile), errors.Is(err, http.ErrMissingFile):
		return apierrors.ErrValidation("file", "No file uploaded")
	case errors.Is(err, importer.ErrUnsupportedFormat):
		return apierrors.ErrUnsupportedFile
	case errors.Is(err, importer.ErrFileTooLarge):
		return apierrors.ErrPayloadTooLarge
	}

	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return apierrors.ErrPayloadTooLarge
	}
	return err
}

// ownerID returns the authenticated caller's user id
func ownerID(r *http.Request) (int64, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return 0, false
	}
	return p.UserID, true
}

// uploadError maps a multipart read failure; a malformed body is a 400
func uploadError(err error) error {
	mapped := toAPIError(err)
	if mapped == err {
		return apierrors.InvalidRequestWithError(err)
	}
	return mapped
}
