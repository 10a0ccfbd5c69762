package object

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	backend "github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no object exists at the requested key.
var ErrNotFound = errors.New("object not found")

// RedisStore implements Store on a Redis instance. Every object lives in a
// single key under a configurable namespace prefix; prefix listing uses SCAN.
type RedisStore struct {
	client *backend.Client
	prefix string
}

type Option func(*RedisStore)

// WithPrefix sets the key namespace for all stored objects.
func WithPrefix(prefix string) Option {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// New creates a Redis store with its own client.
func New(addr, password string, db int, opts ...Option) *RedisStore {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *RedisStore {
	store := &RedisStore{
		client: client,
		prefix: "atelier:",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *RedisStore) key(logical string) string {
	return s.prefix + logical
}

// Put writes the object, overwriting any previous value at the key.
func (s *RedisStore) Put(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, s.key(key), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to put object %q: %w", key, err)
	}
	return nil
}

// Get reads the object, returning ErrNotFound when the key is absent.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get object %q: %w", key, err)
	}
	return data, nil
}

// Exists reports whether an object is stored at the key.
func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	count, err := s.client.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check object %q: %w", key, err)
	}
	return count > 0, nil
}

// globEscaper neutralizes Redis MATCH metacharacters so a prefix containing
// "?", "*" or brackets matches only itself, never neighboring keys.
var globEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`?`, `\?`,
	`[`, `\[`,
	`]`, `\]`,
)

// List returns the logical keys of every object under the literal prefix,
// sorted for deterministic iteration.
func (s *RedisStore) List(ctx context.Context, prefix string) ([]string, error) {
	full := s.key(prefix)
	var keys []string
	iter := s.client.Scan(ctx, 0, globEscaper.Replace(full)+"*", 0).Iterator()
	for iter.Next(ctx) {
		if !strings.HasPrefix(iter.Val(), full) {
			continue
		}
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list objects under %q: %w", prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete removes the object. Deleting an absent key is not an error.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete object %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
