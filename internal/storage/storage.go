package storage

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
)

// ErrBlobNotFound is returned when no blob exists for a path-hash.
var ErrBlobNotFound = errors.New("storage: blob not found")

// Blob is one stored artifact. PathHash is the content-addressed key
// derived from the full storage path; Filename is the user-facing name
// used for downloads and archive entries.
type Blob struct {
	PathHash string `json:"path_hash"`
	Path     string `json:"path"`
	Filename string `json:"filename"`
	Content  []byte `json:"-"`
}

// Store is a content-addressed blob store keyed by path-hash.
type Store interface {
	Create(ctx context.Context, path, filename string, content []byte) (*Blob, error)
	GetByHash(ctx context.Context, pathHash string) (*Blob, error)
	Exists(ctx context.Context, pathHash string) bool
	Delete(ctx context.Context, pathHash string) error
}

// PathHash computes the key for a full storage path (path + filename).
func PathHash(path, filename string) string {
	h := sha1.Sum([]byte(path + filename))
	return hex.EncodeToString(h[:])
}
