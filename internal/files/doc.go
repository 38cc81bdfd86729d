// Package files manages the export output directory.
//
// Manager creates uniquely named export files, resolves download names back
// to paths inside the directory and removes files past their retention.
// Discovery lists the export files currently on disk.
//
// Example usage:
//
//	manager := files.NewManager(paths.ExportsDir, logger)
//	f, path, err := manager.Create(domain.ExportFormatCSV, time.Now())
//	...
//	removed, err := manager.Cleanup(24 * time.Hour)
package files
