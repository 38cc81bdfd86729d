package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the resolved application paths.
// Every relative entry of PathsConfig is anchored at BaseDir.
type Paths struct {
	BaseDir    string
	DataDir    string
	ExportsDir string
	LogsDir    string
	Database   string
	LogFile    string
}

// ExecutableDir returns the directory that holds the running binary
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %v", err)
	}

	// Resolve symlinks to get the actual executable location
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable symlinks: %v", err)
	}

	return filepath.Dir(exe), nil
}

// ResolvePaths turns the configured paths into absolute ones
func (c *Config) ResolvePaths() (*Paths, error) {
	base := c.Paths.BaseDir
	if base == "" {
		dir, err := ExecutableDir()
		if err != nil {
			return nil, err
		}
		base = dir
	}

	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	paths := &Paths{
		BaseDir:    base,
		DataDir:    anchor(base, c.Paths.DataDir),
		ExportsDir: anchor(base, c.Paths.ExportsDir),
		LogsDir:    anchor(base, c.Paths.LogsDir),
		Database:   anchor(base, c.Paths.Database),
	}
	if c.Logging.FilePath != "" {
		paths.LogFile = anchor(base, c.Logging.FilePath)
	}

	return paths, nil
}

// anchor joins p onto base unless p is already absolute
func anchor(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// EnsureDirectories creates all required directories
func (p *Paths) EnsureDirectories() error {
	dirs := []string{
		p.DataDir,
		p.ExportsDir,
		p.LogsDir,
	}
	if p.Database != "" {
		dirs = append(dirs, filepath.Dir(p.Database))
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("path", dir))
	}

	return nil
}

// ExportFile returns the absolute path for an export file name
func (p *Paths) ExportFile(name string) string {
	return filepath.Join(p.ExportsDir, filepath.Base(name))
}
