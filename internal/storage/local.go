package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	multiSpace  = regexp.MustCompile(`\s+`)
)

// LocalStore implements FileStore on the local filesystem.
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates the base directory if needed and returns a
// store rooted there.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating uploads directory: %w", err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

// Save writes the file under the base directory using a sanitized name.
func (s *LocalStore) Save(_ context.Context, filename string, data []byte) (string, error) {
	name := SanitizeFilename(filename)
	if err := os.WriteFile(filepath.Join(s.baseDir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return name, nil
}

// Get reads a previously stored file.
func (s *LocalStore) Get(_ context.Context, filename string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, filepath.Base(filename)))
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// Delete removes a stored file.
func (s *LocalStore) Delete(_ context.Context, filename string) error {
	if err := os.Remove(filepath.Join(s.baseDir, filepath.Base(filename))); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

// SanitizeFilename strips characters phone cameras and browsers put in
// upload names, collapses whitespace and caps the base name length.
func SanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filepath.Base(filename), ext)

	base = unsafeChars.ReplaceAllString(base, "")
	base = multiSpace.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	return base + ext
}
