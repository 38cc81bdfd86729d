package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "wexport/internal/errors"
	"wexport/internal/exporter"
	"wexport/internal/importer"
	"wexport/internal/middleware"
	"wexport/internal/services"
	"wexport/internal/shared/testutil"
	"wexport/internal/templates"
	"wexport/pkg/contracts/domain"
)

// MockExportService is a mock implementation of the export service
type MockExportService struct {
	mock.Mock
}

func (m *MockExportService) Normalize(req domain.ExportRequest) domain.ExportConfig {
	return m.Called(req).Get(0).(domain.ExportConfig)
}

func (m *MockExportService) Preview(ctx context.Context, req domain.ExportRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockExportService) Export(ctx context.Context, ownerID int64, req domain.ExportRequest) (*services.ExportResult, error) {
	args := m.Called(ctx, ownerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ExportResult), args.Error(1)
}

func (m *MockExportService) Download(ctx context.Context, key string) (*services.Download, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Download), args.Error(1)
}

func (m *MockExportService) Logs(ctx context.Context, limit int) ([]domain.ExportLogEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExportLogEntry), args.Error(1)
}

func (m *MockExportService) Stats(ctx context.Context) (domain.ExportStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.ExportStats), args.Error(1)
}

func (m *MockExportService) Columns() []exporter.ColumnGroup {
	return m.Called().Get(0).([]exporter.ColumnGroup)
}

func (m *MockExportService) Statuses() []exporter.StatusOption {
	return m.Called().Get(0).([]exporter.StatusOption)
}

func (m *MockExportService) Taxonomies(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockImportService is a mock implementation of the import service
type MockImportService struct {
	mock.Mock
}

func (m *MockImportService) Import(ctx context.Context, name string, r io.Reader, size int64) (*importer.Result, error) {
	args := m.Called(ctx, name, r, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*importer.Result), args.Error(1)
}

const testOwner int64 = 1

// withPrincipal stands in for the authorizer
func withPrincipal(userID int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := &middleware.Principal{UserID: userID, Capabilities: []string{middleware.CapabilityManageStore}}
			next.ServeHTTP(w, r.WithContext(middleware.WithPrincipal(r.Context(), p)))
		})
	}
}

type testServer struct {
	router    chi.Router
	exports   *MockExportService
	imports   *MockImportService
	templates *templates.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	errorHandler := apierrors.NewErrorHandler(logger, false)

	ts := &testServer{
		exports:   new(MockExportService),
		imports:   new(MockImportService),
		templates: templates.NewManager(templates.NewMemoryStore(), logger),
	}

	exportHandler := NewExportHandler(ts.exports, logger, errorHandler)
	r := chi.NewRouter()
	r.Mount("/api/export/download", exportHandler.DownloadRoutes())
	r.Group(func(r chi.Router) {
		r.Use(withPrincipal(testOwner))
		r.Mount("/api/export", exportHandler.Routes())
		r.Mount("/api/templates", NewTemplateHandler(ts.templates, ts.exports, logger, errorHandler).Routes())
		r.Mount("/api/import", NewImportHandler(ts.imports, logger, errorHandler).Routes())
	})
	ts.router = r
	return ts
}

func (ts *testServer) do(method, target string, body io.Reader, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestPreviewHandler(t *testing.T) {
	ts := newTestServer(t)
	ts.exports.On("Preview", mock.Anything, mock.MatchedBy(func(req domain.ExportRequest) bool {
		return req.ExportMode == "order" && len(req.Columns) == 1
	})).Return("order_id\n1003\n", nil)

	w := ts.do(http.MethodPost, "/api/export/preview",
		strings.NewReader(`{"export_mode":"order","columns":["order_id"]}`))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "order_id\n1003\n", decode(t, w)["preview"])
}

func TestPreviewHandlerRejectsMalformedJSON(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/export/preview", strings.NewReader(`{"columns":`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decode(t, w)["error_code"])
	ts.exports.AssertNotCalled(t, "Preview", mock.Anything, mock.Anything)
}

func TestExportHandler(t *testing.T) {
	ts := newTestServer(t)
	expires := time.Date(2024, 3, 11, 11, 0, 0, 0, time.UTC)
	ts.exports.On("Export", mock.Anything, testOwner, mock.Anything).Return(&services.ExportResult{
		DownloadKey: "wexport_download_abc",
		FileName:    "wexport_20240311100000.csv",
		Rows:        3,
		Format:      domain.ExportFormatCSV,
		ExpiresAt:   expires,
	}, nil)

	w := ts.do(http.MethodPost, "/api/export", strings.NewReader(`{}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "/api/export/download/wexport_download_abc", body["download_url"])
	assert.Equal(t, float64(3), body["rows"])
	assert.Equal(t, "csv", body["format"])
}

func TestExportHandlerFailureHidesCause(t *testing.T) {
	ts := newTestServer(t)
	ts.exports.On("Export", mock.Anything, testOwner, mock.Anything).
		Return(nil, fmt.Errorf("%w: %w", services.ErrExportFailed, fmt.Errorf("disk full")))

	w := ts.do(http.MethodPost, "/api/export", strings.NewReader(`{}`))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	body := decode(t, w)
	assert.Equal(t, "EXPORT_FAILED", body["error_code"])
	assert.NotContains(t, w.Body.String(), "disk full")
}

func TestDownloadHandler(t *testing.T) {
	ts := newTestServer(t)
	path := filepath.Join(t.TempDir(), "wexport_20240311100000.csv")
	require.NoError(t, os.WriteFile(path, []byte("order_id\n1003\n"), 0644))

	ts.exports.On("Download", mock.Anything, "wexport_download_abc").Return(&services.Download{
		Path:        path,
		Name:        filepath.Base(path),
		ContentType: services.ContentTypeCSV,
	}, nil).Once()
	ts.exports.On("Download", mock.Anything, "wexport_download_abc").Return(nil, services.ErrDownloadNotFound)

	w := ts.do(http.MethodGet, "/api/export/download/wexport_download_abc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "order_id\n1003\n", w.Body.String())
	assert.Equal(t, services.ContentTypeCSV, w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="wexport_20240311100000.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))

	w = ts.do(http.MethodGet, "/api/export/download/wexport_download_abc", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "DOWNLOAD_NOT_FOUND", decode(t, w)["error_code"])
}

func TestLogsAndStatsHandlers(t *testing.T) {
	ts := newTestServer(t)
	ts.exports.On("Logs", mock.Anything, 10).Return([]domain.ExportLogEntry{{ID: 1, RowsExported: 3}}, nil)
	ts.exports.On("Logs", mock.Anything, 2).Return([]domain.ExportLogEntry{}, nil)
	ts.exports.On("Stats", mock.Anything).Return(domain.ExportStats{TotalExports: 4, TotalRows: 12}, nil)

	w := ts.do(http.MethodGet, "/api/export/logs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	w = ts.do(http.MethodGet, "/api/export/logs?limit=2", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodGet, "/api/export/logs?limit=500", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodGet, "/api/export/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(4), body["total_exports"])
	assert.Equal(t, float64(12), body["total_rows"])
}

func TestVocabularyHandlers(t *testing.T) {
	ts := newTestServer(t)
	ts.exports.On("Columns").Return(exporter.AvailableColumns())
	ts.exports.On("Statuses").Return(exporter.OrderStatuses())
	ts.exports.On("Taxonomies", mock.Anything).Return([]string{"pa_size", "product_cat"}, nil)

	w := ts.do(http.MethodGet, "/api/export/columns", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var columns struct {
		Groups []exporter.ColumnGroup `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &columns))
	require.Len(t, columns.Groups, 3)
	assert.Equal(t, "Order Fields", columns.Groups[0].Name)
	assert.Equal(t, exporter.ColumnInfo{ID: "order_id", Label: "Order ID"}, columns.Groups[0].Columns[0])

	w = ts.do(http.MethodGet, "/api/export/statuses", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"wc-completed"`)

	w = ts.do(http.MethodGet, "/api/export/taxonomies", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, []interface{}{"pa_size", "product_cat"}, body["taxonomies"])
	assert.Equal(t, float64(2), body["count"])
}

func TestTaxonomiesHandlerFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.exports.On("Taxonomies", mock.Anything).Return(nil, fmt.Errorf("store unavailable"))

	w := ts.do(http.MethodGet, "/api/export/taxonomies", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "store unavailable")
}

func TestTemplateHandlers(t *testing.T) {
	ts := newTestServer(t)
	normalized := domain.ExportConfig{Format: domain.ExportFormatCSV, Delimiter: ",", ExportMode: domain.ExportModeOrder}
	ts.exports.On("Normalize", mock.Anything).Return(normalized)

	// create
	w := ts.do(http.MethodPost, "/api/templates",
		strings.NewReader(`{"name":"Monthly","config":{"export_mode":"order"}}`))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode(t, w)["id"].(string)
	require.NotEmpty(t, id)

	// read
	w = ts.do(http.MethodGet, "/api/templates/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tpl domain.Template
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tpl))
	assert.Equal(t, "Monthly", tpl.Name)
	assert.Equal(t, normalized, tpl.Config)

	// rename
	w = ts.do(http.MethodPut, "/api/templates/"+id, strings.NewReader(`{"name":"Monthly EU"}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Monthly EU", decode(t, w)["name"])

	// duplicate with and without a body
	w = ts.do(http.MethodPost, "/api/templates/"+id+"/duplicate", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Monthly EU (Copy)", decode(t, w)["name"])

	w = ts.do(http.MethodPost, "/api/templates/"+id+"/duplicate", strings.NewReader(`{"name":"Weekly"}`))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Weekly", decode(t, w)["name"])

	// default
	w = ts.do(http.MethodGet, "/api/templates/default", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "TEMPLATE_NOT_FOUND", decode(t, w)["error_code"])

	w = ts.do(http.MethodPost, "/api/templates/"+id+"/default", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodGet, "/api/templates/default", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, decode(t, w)["id"])

	// list
	w = ts.do(http.MethodGet, "/api/templates", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), decode(t, w)["count"])

	// delete
	w = ts.do(http.MethodDelete, "/api/templates/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(http.MethodGet, "/api/templates/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTemplateHandlerValidation(t *testing.T) {
	ts := newTestServer(t)
	ts.exports.On("Normalize", mock.Anything).Return(domain.ExportConfig{})

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"config":{}}`},
		{"blank name", `{"name":"   ","config":{}}`},
		{"name too long", fmt.Sprintf(`{"name":%q,"config":{}}`, strings.Repeat("x", 101))},
		{"name only markup", `{"name":"<b></b>","config":{}}`},
		{"missing config", `{"name":"ok"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(http.MethodPost, "/api/templates", strings.NewReader(tt.body))
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, "VALIDATION_FAILED", decode(t, w)["error_code"])
		})
	}
}

func TestTemplateExportImportHandlers(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	a, err := ts.templates.Save(ctx, testOwner, "A", domain.ExportConfig{Format: domain.ExportFormatCSV}, "")
	require.NoError(t, err)
	_, err = ts.templates.Save(ctx, testOwner, "B", domain.ExportConfig{Format: domain.ExportFormatXLSX}, "")
	require.NoError(t, err)

	w := ts.do(http.MethodGet, "/api/templates/export?ids="+a.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "wexport-templates-")
	exported := w.Body.Bytes()

	var decoded []domain.Template
	require.NoError(t, json.Unmarshal(exported, &decoded))
	require.Len(t, decoded, 1)

	// raw body
	w = ts.do(http.MethodPost, "/api/templates/import", bytes.NewReader(exported))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(1), decode(t, w)["imported"])

	// multipart upload
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "templates.json")
	require.NoError(t, err)
	part.Write(exported)
	require.NoError(t, mw.Close())

	w = ts.do(http.MethodPost, "/api/templates/import", &buf, "Content-Type", mw.FormDataContentType())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	list, err := ts.templates.List(ctx, testOwner)
	require.NoError(t, err)
	assert.Len(t, list, 4)

	w = ts.do(http.MethodPost, "/api/templates/import", strings.NewReader(`{"bad":true}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func newUpload(t *testing.T, name, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestImportHandler(t *testing.T) {
	ts := newTestServer(t)
	ts.imports.On("Import", mock.Anything, "orders.csv", mock.Anything, mock.AnythingOfType("int64")).Return(&importer.Result{
		Headers: []string{"order_id"},
		Rows:    []map[string]string{{"order_id": "1"}, {"order_id": "2"}},
	}, nil)
	ts.imports.On("Import", mock.Anything, "orders.pdf", mock.Anything, mock.Anything).
		Return(nil, importer.ErrUnsupportedFormat)

	body, contentType := newUpload(t, "orders.csv", "order_id\n1\n2\n3456")
	w := ts.do(http.MethodPost, "/api/import?limit=1", body, "Content-Type", contentType)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode(t, w)
	assert.Equal(t, float64(2), out["total_rows"])
	assert.Len(t, out["rows"], 1)

	body, contentType = newUpload(t, "orders.pdf", "%PDF")
	w = ts.do(http.MethodPost, "/api/import", body, "Content-Type", contentType)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UNSUPPORTED_FILE_TYPE", decode(t, w)["error_code"])

	w = ts.do(http.MethodPost, "/api/import", strings.NewReader(""), "Content-Type", "multipart/form-data; boundary=x")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
