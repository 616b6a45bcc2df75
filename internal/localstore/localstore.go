// Package localstore reads and writes the JSON documents the service keeps
// under its data directory.
package localstore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

// File is a JSON document at a fixed path. Callers serialise access.
type File struct {
	path string
}

// NewFile returns a File for path, creating its parent directory.
func NewFile(path string) (*File, error) {
	clean := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(clean), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	return &File{path: clean}, nil
}

// Path returns the document location.
func (f *File) Path() string {
	return f.path
}

// Read decodes the document into v. A missing file leaves v untouched and
// reports found == false.
func (f *File) Read(v any) (found bool, err error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", f.path, err)
	}
	return true, nil
}

// Write replaces the document with v. The new content is written to a
// temporary file in the same directory and renamed into place, so readers
// see either the old or the new document.
func (f *File) Write(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", f.path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", f.path, err)
	}
	return nil
}
