package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"wexport/internal/config"
	apierrors "wexport/internal/errors"
	"wexport/internal/middleware"
	"wexport/pkg/contracts/domain"
)

// DownloadPath is the route prefix of one-shot export downloads
const DownloadPath = "/api/export/download/"

// ExportRequest is the JSON body of preview and export requests
type ExportRequest struct {
	domain.ExportRequest
}

// Bind implements render.Binder
func (e *ExportRequest) Bind(r *http.Request) error {
	return nil
}

// ExportResponse is returned after a successful export run
type ExportResponse struct {
	DownloadURL string              `json:"download_url"`
	FileName    string              `json:"file_name"`
	Rows        int                 `json:"rows"`
	Format      domain.ExportFormat `json:"format"`
	ExpiresAt   time.Time           `json:"expires_at"`
}

// ExportHandler handles export HTTP requests with RFC 7807 errors
type ExportHandler struct {
	service      ExportServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	queryParams  *middleware.QueryParamValidator
}

// NewExportHandler creates a new export handler
func NewExportHandler(service ExportServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ExportHandler {
	return &ExportHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "export_handler")),
		errorHandler: errorHandler,
		queryParams:  middleware.NewQueryParamValidator(errorHandler),
	}
}

// Routes returns the authorized export routes
func (h *ExportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/", h.Export)
	r.Post("/preview", h.Preview)
	r.Get("/logs", h.Logs)
	r.Get("/stats", h.Stats)
	r.Get("/columns", h.Columns)
	r.Get("/statuses", h.Statuses)
	r.Get("/taxonomies", h.Taxonomies)

	return r
}

// DownloadRoutes returns the download route. The key is the credential, so
// these routes sit outside the authorizer.
func (h *ExportHandler) DownloadRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{key}", h.Download)
	return r
}

// Preview handles POST /api/export/preview
func (h *ExportHandler) Preview(w http.ResponseWriter, r *http.Request) {
	data := &ExportRequest{}
	if err := render.Bind(r, data); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	text, err := h.service.Preview(r.Context(), data.ExportRequest)
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return
	}

	render.JSON(w, r, map[string]string{"preview": text})
}

// Export handles POST /api/export
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		h.errorHandler.HandleError(w, r, apierrors.ErrUnauthorized)
		return
	}

	data := &ExportRequest{}
	if err := render.Bind(r, data); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	result, err := h.service.Export(r.Context(), owner, data.ExportRequest)
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return
	}

	render.JSON(w, r, ExportResponse{
		DownloadURL: DownloadPath + result.DownloadKey,
		FileName:    result.FileName,
		Rows:        result.Rows,
		Format:      result.Format,
		ExpiresAt:   result.ExpiresAt,
	})
}

// Download handles GET /api/export/download/{key}
func (h *ExportHandler) Download(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("key", "Download key is required"))
		return
	}

	dl, err := h.service.Download(r.Context(), key)
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return
	}

	f, err := os.Open(dl.Path)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.FileSystemError("open export file", err))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.FileSystemError("stat export file", err))
		return
	}

	h.logger.InfoContext(r.Context(), "serving export download",
		slog.String("file", dl.Name),
		slog.Int64("size", info.Size()))

	w.Header().Set("Content-Type", dl.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dl.Name))
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	http.ServeContent(w, r, dl.Name, info.ModTime(), f)
}

// Logs handles GET /api/export/logs?limit=
func (h *ExportHandler) Logs(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.queryParams.ValidateInt(w, r, "limit", 1, 100, 10)
	if !ok {
		return
	}

	logs, err := h.service.Logs(r.Context(), limit)
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"logs":  logs,
		"count": len(logs),
	})
}

// Stats handles GET /api/export/stats
func (h *ExportHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return
	}
	render.JSON(w, r, stats)
}

// Columns handles GET /api/export/columns
func (h *ExportHandler) Columns(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"groups": h.service.Columns(),
	})
}

// Statuses handles GET /api/export/statuses
func (h *ExportHandler) Statuses(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"statuses": h.service.Statuses(),
	})
}

// Taxonomies handles GET /api/export/taxonomies
func (h *ExportHandler) Taxonomies(w http.ResponseWriter, r *http.Request) {
	names, err := h.service.Taxonomies(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"taxonomies": names,
		"count":      len(names),
	})
}

// maxUploadBytes bounds an upload body: the file limit plus multipart overhead
const maxUploadBytes = config.MaxImportFileSize + 1<<20
