package storage

import "context"

// MemStore is an in-memory Store for tests.
type MemStore struct {
	blobs map[string]*Blob
}

func NewMemStore() *MemStore {
	return &MemStore{blobs: make(map[string]*Blob)}
}

func (s *MemStore) Create(ctx context.Context, path, filename string, content []byte) (*Blob, error) {
	hash := PathHash(path, filename)
	blob := &Blob{PathHash: hash, Path: path, Filename: filename, Content: content}
	s.blobs[hash] = blob
	return blob, nil
}

func (s *MemStore) GetByHash(ctx context.Context, pathHash string) (*Blob, error) {
	blob, ok := s.blobs[pathHash]
	if !ok {
		return nil, ErrBlobNotFound
	}
	return blob, nil
}

func (s *MemStore) Exists(ctx context.Context, pathHash string) bool {
	_, ok := s.blobs[pathHash]
	return ok
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) Delete(ctx context.Context, pathHash string) error {
	if _, ok := s.blobs[pathHash]; !ok {
		return ErrBlobNotFound
	}
	delete(s.blobs, pathHash)
	return nil
}
