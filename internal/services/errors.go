package services

import "errors"

// Service errors
var (
	// Export errors
	ErrExportFailed  = errors.New("export failed")
	ErrPreviewFailed = errors.New("preview failed")

	// Download errors
	ErrDownloadNotFound = errors.New("download not found or expired")
	ErrFileNotFound     = errors.New("file not found")

	// Import errors
	ErrImportFailed = errors.New("import failed")

	// General errors
	ErrInvalidInput = errors.New("invalid input")
)
