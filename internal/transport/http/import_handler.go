package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "wexport/internal/errors"
	"wexport/internal/middleware"
)

// ImportHandler handles spreadsheet uploads
type ImportHandler struct {
	service      ImportServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	queryParams  *middleware.QueryParamValidator
}

// NewImportHandler creates a new import handler
func NewImportHandler(service ImportServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ImportHandler {
	return &ImportHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "import_handler")),
		errorHandler: errorHandler,
		queryParams:  middleware.NewQueryParamValidator(errorHandler),
	}
}

// Routes returns the import routes
func (h *ImportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Post("/", h.Import)
	return r
}

// Import handles POST /api/import (multipart field "file", optional ?limit=)
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.queryParams.ValidateInt(w, r, "limit", 0, 10000, -1)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, uploadError(err))
		return
	}
	defer file.Close()

	result, err := h.service.Import(r.Context(), header.Filename, file, header.Size)
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return
	}

	sample := result.Sample(limit)
	render.JSON(w, r, map[string]interface{}{
		"headers":    sample.Headers,
		"rows":       sample.Rows,
		"total_rows": len(result.Rows),
	})
}
