package fileutil

import (
	"os"
	"path/filepath"

	"github.com/harrison/filepair/internal/models"
)

// ListFiles returns an entry for every regular file directly inside dir.
// Subdirectories are never descended into and no ordering is guaranteed.
//
// An empty path, a missing directory, or a path that is not a directory all
// yield a nil slice. That is a normal outcome of scanning, not a failure:
// the caller treats "nothing to scan" and "nothing found" identically.
func ListFiles(dir string) []models.FileEntry {
	if dir == "" {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	files := make([]models.FileEntry, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		files = append(files, models.NewFileEntry(filepath.Join(dir, entry.Name())))
	}
	return files
}

// CountFiles reports how many regular files sit directly inside dir.
// It follows the same empty-on-error policy as ListFiles.
func CountFiles(dir string) int {
	if dir == "" {
		return 0
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	count := 0
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			count++
		}
	}
	return count
}
