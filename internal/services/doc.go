// Package services implements the business logic layer of wexport.
// It sits between the HTTP handlers and CLI commands on one side and the
// export pipeline, persistence and file storage on the other.
//
// # Available Services
//
//	- ExportService: previews, export runs, one-shot downloads and the export log
//	- ImportService: parses uploaded CSV and XLSX files
//	- HealthService: liveness, readiness and version information
//
// # Error Handling
//
// Services return the sentinel errors declared in errors.go, wrapped with
// the underlying cause. Handlers match them with errors.Is and translate
// them into RFC 7807 problems:
//
//	rows, err := svc.Export(ctx, ownerID, req)
//	if errors.Is(err, services.ErrExportFailed) {
//	    // 500 EXPORT_FAILED
//	}
//
// # Testing
//
// Collaborators are narrow interfaces so tests can substitute the in-memory
// order source and testify mocks:
//
//	log := new(mockExportLog)
//	log.On("Record", mock.Anything, mock.Anything).Return(int64(1), nil)
//	svc := NewExportService(cfg, source, log, files, registry, nil, logger)
package services
