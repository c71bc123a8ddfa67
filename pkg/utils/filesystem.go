// Package utils provides filesystem helpers
package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileSystemUtils provides file system operations
type FileSystemUtils struct{}

// NewFileSystemUtils creates a new filesystem utils instance
func NewFileSystemUtils() *FileSystemUtils {
	return &FileSystemUtils{}
}

// Exists checks if a path exists
func (f *FileSystemUtils) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsWritable reports whether the current user may write path. A missing
// path is not writable.
func (f *FileSystemUtils) IsWritable(path string) bool {
	return isWritable(path)
}

// FileSize returns the size of a regular file
func (f *FileSystemUtils) FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory", path)
	}
	return info.Size(), nil
}

// GetFileHash returns the hex SHA-256 of a file
func (f *FileSystemUtils) GetFileHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// WriteFileAtomic writes data through a temp file and a rename
func (f *FileSystemUtils) WriteFileAtomic(path string, data []byte) error {
	if err := EnsureDirectory(filepath.Dir(path)); err != nil {
		return err
	}

	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return err
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return err
	}
	return nil
}

// Resolve joins a relative path onto base; absolute paths are returned as is
func (f *FileSystemUtils) Resolve(base, path string) string {
	if filepath.IsAbs(path) || base == "" {
		return path
	}
	return filepath.Join(base, path)
}

// EnsureDirectory ensures a directory exists
func EnsureDirectory(path string) error {
	return os.MkdirAll(path, 0755)
}

// FileExists checks if a file exists and is not a directory
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// FormatBytes formats bytes into human readable format
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
