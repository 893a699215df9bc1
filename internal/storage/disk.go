package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// DiskStore keeps blob contents under Root/<hash-prefix>/<hash> with a
// JSON sidecar holding the original path and filename.
type DiskStore struct {
	Root string
}

type diskMeta struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
}

func (s *DiskStore) blobPath(hash string) string {
	prefix := "00"
	if len(hash) >= 2 {
		prefix = hash[:2]
	}
	return filepath.Join(s.Root, prefix, hash)
}

func (s *DiskStore) Create(ctx context.Context, path, filename string, content []byte) (*Blob, error) {
	hash := PathHash(path, filename)
	target := s.blobPath(hash)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(target, content, 0o644); err != nil {
		return nil, err
	}
	meta, err := json.Marshal(diskMeta{Path: path, Filename: filename})
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(target+".json", meta, 0o644); err != nil {
		return nil, err
	}
	return &Blob{PathHash: hash, Path: path, Filename: filename, Content: content}, nil
}

func (s *DiskStore) GetByHash(ctx context.Context, pathHash string) (*Blob, error) {
	target := s.blobPath(pathHash)
	content, err := os.ReadFile(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrBlobNotFound
		}
		return nil, err
	}
	var meta diskMeta
	if raw, err := os.ReadFile(target + ".json"); err == nil {
		_ = json.Unmarshal(raw, &meta)
	}
	return &Blob{PathHash: pathHash, Path: meta.Path, Filename: meta.Filename, Content: content}, nil
}

func (s *DiskStore) Exists(ctx context.Context, pathHash string) bool {
	if pathHash == "" {
		return false
	}
	_, err := os.Stat(s.blobPath(pathHash))
	return err == nil
}

// Ping verifies the store root exists and is writable enough to stat.
func (s *DiskStore) Ping(ctx context.Context) error {
	if err := os.MkdirAll(s.Root, 0o755); err != nil {
		return err
	}
	_, err := os.Stat(s.Root)
	return err
}

func (s *DiskStore) Delete(ctx context.Context, pathHash string) error {
	target := s.blobPath(pathHash)
	err := os.Remove(target)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrBlobNotFound
	}
	_ = os.Remove(target + ".json")
	return err
}
