package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string    `json:"-"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modified_at"`
}

// Discovery provides file discovery operations
type Discovery struct {
	dir string
}

// NewDiscovery creates a new file discovery instance rooted at dir
func NewDiscovery(dir string) *Discovery {
	return &Discovery{dir: dir}
}

// FindExports returns the export files (prefix + known extension), oldest first
func (d *Discovery) FindExports() ([]FileInfo, error) {
	entries, err := os.ReadDir(d.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", d.dir, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !IsExportName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(d.dir, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	// Sort by modification time (oldest first)
	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.Before(files[j].ModTime)
	})

	return files, nil
}

// IsExportName reports whether name looks like a file produced by Manager.Create
func IsExportName(name string) bool {
	if !strings.HasPrefix(name, FilePrefix) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".csv" || ext == ".xlsx"
}

// GetLatestFile returns the most recently modified file from a list
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}

	latest := files[0]
	for _, file := range files[1:] {
		if file.ModTime.After(latest.ModTime) {
			latest = file
		}
	}

	return latest, true
}

// FilterOlderThan returns the files modified before cutoff
func FilterOlderThan(files []FileInfo, cutoff time.Time) []FileInfo {
	var filtered []FileInfo
	for _, file := range files {
		if file.ModTime.Before(cutoff) {
			filtered = append(filtered, file)
		}
	}
	return filtered
}
