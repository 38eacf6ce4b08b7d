package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// LocalStore keeps images on the local filesystem under a base directory
// served statically by the HTTP server. Keys look like S3 keys
// ("<folder>/<filename>") so the two backends stay interchangeable.
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates a local store rooted at baseDir.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

// BaseDir returns the directory the store writes under, for static serving.
func (s *LocalStore) BaseDir() string {
	return s.baseDir
}

func (s *LocalStore) Upload(ctx context.Context, data []byte, contentType, folder, nameHint string) (string, error) {
	dir := filepath.Join(s.baseDir, folder)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create folder %s: %w", folder, err)
	}

	filename := fmt.Sprintf("%s-%s.%s", nameHint, uuid.New().String(), extFromContentType(contentType))
	destPath := filepath.Join(dir, filename)

	// Write to a temp file in the same directory, then rename, so a partial
	// write is never visible under the final key.
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to rename temp file: %w", err)
	}

	return folder + "/" + filename, nil
}

func (s *LocalStore) PublicURL(key string) string {
	return "/static/" + key
}

// Compile-time check that LocalStore implements the Store interface
var _ Store = (*LocalStore)(nil)
