package files

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"wexport/pkg/contracts/domain"
)

// FilePrefix starts every export file name
const FilePrefix = "wexport_"

const timestampLayout = "20060102150405"

const maxNameAttempts = 100

// ErrInvalidName is returned for a name that does not denote an export file in the directory
var ErrInvalidName = errors.New("invalid export file name")

// Manager provides file management operations on the export directory
type Manager struct {
	dir       string
	discovery *Discovery
	logger    *slog.Logger
}

// NewManager creates a new file manager instance
func NewManager(dir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		dir:       dir,
		discovery: NewDiscovery(dir),
		logger:    logger.With(slog.String("component", "export_files")),
	}
}

// Dir returns the export directory
func (m *Manager) Dir() string {
	return m.dir
}

// Create opens a new, uniquely named export file for writing. Names follow
// wexport_<YYYYmmddHHMMSS>.<format>; a collision gets a numeric suffix.
func (m *Manager) Create(format domain.ExportFormat, now time.Time) (*os.File, string, error) {
	if err := m.EnsureDirectory(); err != nil {
		return nil, "", err
	}

	base := FilePrefix + now.Format(timestampLayout)
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name := base + "." + string(format)
		if attempt > 0 {
			name = fmt.Sprintf("%s_%d.%s", base, attempt, format)
		}
		path := filepath.Join(m.dir, name)

		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("failed to create export file: %w", err)
		}

		m.logger.Info("Created export file",
			slog.String("path", path))
		return file, path, nil
	}
	return nil, "", fmt.Errorf("failed to create export file: no free name for %s", base)
}

// Resolve maps an export file name to its path inside the directory
func (m *Manager) Resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || !IsExportName(name) {
		return "", ErrInvalidName
	}
	return filepath.Join(m.dir, name), nil
}

// Contains reports whether path is a direct child of the export directory
func (m *Manager) Contains(path string) bool {
	dir, err := filepath.Abs(m.dir)
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return filepath.Dir(abs) == dir && IsExportName(filepath.Base(abs))
}

// FileExists checks if a file exists at the given path
func (m *Manager) FileExists(path string) bool {
	_, err := os.Stat(path)
	exists := err == nil

	m.logger.Debug("FileExists check",
		slog.String("path", path),
		slog.Bool("exists", exists))

	return exists
}

// DeleteFile deletes a file. A file that is already gone is not an error.
func (m *Manager) DeleteFile(path string) error {
	m.logger.Info("Deleting file",
		slog.String("path", path))

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// List returns the export files currently on disk, oldest first
func (m *Manager) List() ([]FileInfo, error) {
	return m.discovery.FindExports()
}

// Cleanup removes export files older than retention and returns how many were removed
func (m *Manager) Cleanup(retention time.Duration) (int, error) {
	files, err := m.List()
	if err != nil {
		return 0, err
	}

	removed := 0
	var errs []error
	for _, f := range FilterOlderThan(files, time.Now().Add(-retention)) {
		if err := m.DeleteFile(f.Path); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		m.logger.Info("Cleaned up export files",
			slog.Int("removed", removed),
			slog.Duration("retention", retention))
	}
	return removed, errors.Join(errs...)
}

// EnsureDirectory creates the export directory if it doesn't exist
func (m *Manager) EnsureDirectory() error {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}
