// Package storage provides the blob-store boundary used for cover and
// avatar images. The interface mirrors what the rest of the application
// needs from any object store: write bytes under a path, get back a public
// URL. The shipped implementation writes to a local directory that the HTTP
// server exposes read-only.
package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/user/libris-go/apperror"
	"github.com/user/libris-go/config"
)

// Store writes blobs and returns the public URL they are served under.
type Store interface {
	Put(ctx context.Context, objectPath string, data []byte) (string, error)
}

// DiskStore is a Store backed by the local filesystem.
type DiskStore struct {
	root    string
	baseURL string
}

// NewDiskStore creates a DiskStore rooted at the configured media directory,
// creating the directory if needed.
func NewDiskStore(cfg *config.StorageConfig) (*DiskStore, error) {
	if err := os.MkdirAll(cfg.MediaDir, 0o755); err != nil {
		return nil, apperror.NewInternalError(fmt.Sprintf("failed to create media directory %s", cfg.MediaDir), err)
	}
	return &DiskStore{
		root:    cfg.MediaDir,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

// Root returns the directory files are written to, for mounting a file server.
func (s *DiskStore) Root() string {
	return s.root
}

// Put writes data under objectPath and returns its public URL.
// objectPath must be a clean relative path; anything escaping the root is
// rejected.
func (s *DiskStore) Put(_ context.Context, objectPath string, data []byte) (string, error) {
	cleaned := path.Clean("/" + objectPath)[1:] // normalize and strip any leading ../
	if cleaned == "" || cleaned == "." {
		return "", apperror.NewBadRequestError("empty object path", nil)
	}

	fullPath := filepath.Join(s.root, filepath.FromSlash(cleaned))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", apperror.NewInternalError("failed to create object directory", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", apperror.NewInternalError(fmt.Sprintf("failed to write object %s", cleaned), err)
	}

	return s.baseURL + "/" + cleaned, nil
}
