// Package localstore is the durable on-device cache of activities the
// current actor owns or has opened comments for.
package localstore

import (
	"os"
	"path/filepath"
)

// BlobStore is the opaque durable storage the store persists into. The
// format of the bytes is the store's concern, not the blob's.
type BlobStore interface {
	ReadAll() ([]byte, error)
	WriteAll(data []byte) error
}

// FileBlobStore persists the blob as a single file on disk.
type FileBlobStore struct {
	Path string
}

// NewFileBlobStore ensures the parent directory exists and returns a blob
// store backed by the given path.
func NewFileBlobStore(path string) (*FileBlobStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &FileBlobStore{Path: path}, nil
}

// ReadAll returns the file contents, or (nil, nil) when no blob exists yet.
func (f *FileBlobStore) ReadAll() ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// WriteAll replaces the blob atomically: write to a sibling temp file, then
// rename over the target so a crash never leaves a torn blob behind.
func (f *FileBlobStore) WriteAll(data []byte) error {
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.Path)
}
