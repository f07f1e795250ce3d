package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// TempFile creates a temporary file with a specific extension
func TempFile(dir, pattern, ext string) (*os.File, error) {
	if dir != "" {
		if err := EnsureDir(dir); err != nil {
			return nil, err
		}
	}
	return os.CreateTemp(dir, pattern+"*"+ext)
}

// TempPath reserves a temporary file name with the given extension and
// returns its path. The file exists but is empty.
func TempPath(dir, pattern, ext string) (string, error) {
	f, err := TempFile(dir, pattern, ext)
	if err != nil {
		return "", err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		return "", err
	}
	return name, nil
}

// CleanupFiles removes multiple files, ignoring errors
func CleanupFiles(paths ...string) {
	for _, path := range paths {
		_ = os.Remove(path)
	}
}

// GetExtension returns the lower-cased file extension
func GetExtension(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// WriteFileAtomic writes data next to path and renames it into place
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		CleanupFiles(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		CleanupFiles(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		CleanupFiles(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		CleanupFiles(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
