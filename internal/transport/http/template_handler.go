package http

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "wexport/internal/errors"
	"wexport/internal/middleware"
	"wexport/pkg/contracts/domain"
)

// TemplateRequest is the body of create and update requests. Config uses
// the same shape as an export request and is normalized before it is stored.
type TemplateRequest struct {
	Name   string                `json:"name" validate:"notblank,max=100"`
	Config *domain.ExportRequest `json:"config"`
}

// Bind implements render.Binder
func (t *TemplateRequest) Bind(r *http.Request) error {
	t.Name = strings.TrimSpace(t.Name)
	return nil
}

// DuplicateRequest is the optional body of a duplicate request
type DuplicateRequest struct {
	Name string `json:"name" validate:"max=100"`
}

// Bind implements render.Binder
func (d *DuplicateRequest) Bind(r *http.Request) error {
	d.Name = strings.TrimSpace(d.Name)
	return nil
}

// TemplateHandler handles template HTTP requests
type TemplateHandler struct {
	service      TemplateServiceInterface
	exports      ExportServiceInterface
	validator    *middleware.ValidationMiddleware
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewTemplateHandler creates a new template handler. exports normalizes
// submitted configurations.
func NewTemplateHandler(service TemplateServiceInterface, exports ExportServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *TemplateHandler {
	return &TemplateHandler{
		service:      service,
		exports:      exports,
		validator:    middleware.NewValidationMiddleware(logger, errorHandler),
		logger:       logger.With(slog.String("component", "template_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the template routes
func (h *TemplateHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/default", h.GetDefault)
	r.Get("/export", h.Export)
	r.Post("/import", h.Import)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
		r.Post("/duplicate", h.Duplicate)
		r.Post("/default", h.SetDefault)
	})

	return r
}

// withOwner resolves the caller or writes a 401
func (h *TemplateHandler) withOwner(w http.ResponseWriter, r *http.Request) (int64, bool) {
	owner, ok := ownerID(r)
	if !ok {
		h.errorHandler.HandleError(w, r, apierrors.ErrUnauthorized)
	}
	return owner, ok
}

// List handles GET /api/templates
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.withOwner(w, r)
	if !ok {
		return
	}

	list, err := h.service.List(r.Context(), owner)
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"templates": list,
		"count":     len(list),
	})
}

// Create handles POST /api/templates
func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, "")
}

// Update handles PUT /api/templates/{id}. A body without config renames.
func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, chi.URLParam(r, "id"))
}

func (h *TemplateHandler) save(w http.ResponseWriter, r *http.Request, id string) {
	owner, ok := h.withOwner(w, r)
	if !ok {
		return
	}

	data := &TemplateRequest{}
	if err := render.Bind(r, data); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validator.ValidateStruct(data); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	var (
		summary domain.TemplateSummary
		err     error
	)
	switch {
	case data.Config == nil && id == "":
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("config", "config is required"))
		return
	case data.Config == nil:
		summary, err = h.service.Rename(r.Context(), owner, id, data.Name)
	default:
		summary, err = h.service.Save(r.Context(), owner, data.Name, h.exports.Normalize(*data.Config), id)
	}
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return
	}

	if id == "" {
		render.Status(r, http.StatusCreated)
	}
	render.JSON(w, r, summary)
}

// Get handles GET /api/templates/{id}
func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.withOwner(w, r)
	if !ok {
		return
	}

	tpl, err := h.service.Get(r.Context(), owner, chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return
	}
	render.JSON(w, r, tpl)
}

// Delete handles DELETE /api/templates/{id}
func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.withOwner(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), owner, chi.URLParam(r, "id")); err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Duplicate handles POST /api/templates/{id}/duplicate
func (h *TemplateHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.withOwner(w, r)
	if !ok {
		return
	}

	data := &DuplicateRequest{}
	if r.ContentLength != 0 {
		if err := render.Bind(r, data); err != nil && err != io.EOF {
			h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
			return
		}
	}
	if err := h.validator.ValidateStruct(data); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	summary, err := h.service.Duplicate(r.Context(), owner, chi.URLParam(r, "id"), data.Name)
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, summary)
}

// SetDefault handles POST /api/templates/{id}/default
func (h *TemplateHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.withOwner(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.SetDefault(r.Context(), owner, id); err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return
	}
	render.JSON(w, r, map[string]string{"id": id, "status": "default"})
}

// GetDefault handles GET /api/templates/default
func (h *TemplateHandler) GetDefault(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.withOwner(w, r)
	if !ok {
		return
	}

	tpl, err := h.service.Default(r.Context(), owner)
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return
	}
	render.JSON(w, r, tpl)
}

// Export handles GET /api/templates/export?ids=a,b as a JSON attachment
func (h *TemplateHandler) Export(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.withOwner(w, r)
	if !ok {
		return
	}

	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	data, err := h.service.Export(r.Context(), owner, ids)
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return
	}

	name := fmt.Sprintf("wexport-templates-%s.json", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Import handles POST /api/templates/import. The JSON document is read from
// the multipart "file" field or, failing that, from the raw body.
func (h *TemplateHandler) Import(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.withOwner(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, ferr := r.FormFile("file")
		if ferr != nil {
			h.errorHandler.HandleError(w, r, uploadError(ferr))
			return
		}
		defer file.Close()
		data, err = io.ReadAll(file)
	} else {
		data, err = io.ReadAll(r.Body)
	}
	if err != nil {
		h.errorHandler.HandleError(w, r, uploadError(err))
		return
	}

	ids, err := h.service.Import(r.Context(), owner, data)
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return
	}

	h.logger.InfoContext(r.Context(), "templates imported",
		slog.Int64("user_id", owner),
		slog.Int("count", len(ids)))
	render.JSON(w, r, map[string]interface{}{
		"imported": len(ids),
		"ids":      ids,
	})
}
