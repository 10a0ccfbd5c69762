package blob

import (
	"context"
	"crypto/md5"
	"fmt"

	"github.com/artfoundry/atelier/backend/internal/storage/object"
)

// Store persists image payloads under content-addressed keys. Identical
// bytes always map to the same key, so repeated writes of the same image
// store exactly one object.
type Store struct {
	objects object.Store
}

// New wraps an object store with content addressing.
func New(objects object.Store) *Store {
	return &Store{objects: objects}
}

// Key derives the storage key for the payload under the given path prefix.
func Key(data []byte, prefix string) string {
	return fmt.Sprintf("%s/%x.png", prefix, md5.Sum(data))
}

// Put stores the payload and returns its key. When an object with the same
// content already exists the write is skipped and the existing key returned.
func (s *Store) Put(ctx context.Context, data []byte, prefix string) (string, error) {
	key := Key(data, prefix)

	exists, err := s.objects.Exists(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to check blob %q: %w", key, err)
	}
	if exists {
		return key, nil
	}

	if err := s.objects.Put(ctx, key, data); err != nil {
		return "", fmt.Errorf("failed to store blob %q: %w", key, err)
	}
	return key, nil
}

// Get reads the payload at key, propagating object.ErrNotFound when absent.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	return s.objects.Get(ctx, key)
}

// Delete removes the blob. Removal is best-effort: an already absent object
// is not an error, and there is no reference counting across stages.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.objects.Delete(ctx, key)
}
