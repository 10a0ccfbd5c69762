package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/artfoundry/atelier/backend/internal/logger"
	model "github.com/artfoundry/atelier/backend/internal/model/session"
	"github.com/artfoundry/atelier/backend/internal/storage/blob"
	"github.com/artfoundry/atelier/backend/internal/storage/object"
)

var (
	ErrAlreadyExists   = errors.New("session already exists")
	ErrSessionNotFound = errors.New("session not found")
)

// recordObject is the object name of the serialized record within a
// session's prefix.
const recordObject = "session_data"

// Store serializes session records to durable storage. Saves are
// whole-record overwrites with no compare-and-swap: two tabs writing the
// same session clobber each other, last writer wins.
type Store struct {
	objects object.Store
	blobs   *blob.Store
}

// NewStore wires the record store over object and blob storage.
func NewStore(objects object.Store, blobs *blob.Store) *Store {
	return &Store{objects: objects, blobs: blobs}
}

// Blobs exposes the underlying blob store for callers that read or delete
// individual artifacts.
func (s *Store) Blobs() *blob.Store {
	return s.blobs
}

func recordKey(family model.Family, name string) string {
	return family.Namespace() + "/" + name + "/" + recordObject
}

// Save persists the record under {family}_sessions/{name}/session_data.
// Any pending raw image payloads are flushed through the blob store first
// and replaced by their references, so the stored record never embeds
// bytes and never references a blob that was not durably written.
func (s *Store) Save(ctx context.Context, family model.Family, name string, rec *model.Record) error {
	for _, pending := range rec.Pending {
		prefix := family.Namespace() + "/" + name + "/" + string(pending.Kind)
		key, err := s.blobs.Put(ctx, pending.Data, prefix)
		if err != nil {
			return fmt.Errorf("failed to flush pending image: %w", err)
		}
		rec.AppendImage(pending.Kind, key)
	}
	rec.Pending = nil

	data, err := sonic.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}
	if err := s.objects.Put(ctx, recordKey(family, name), data); err != nil {
		return fmt.Errorf("failed to save session %q: %w", name, err)
	}
	return nil
}

// Load rehydrates every session record for the family in one pass. A record
// that fails to decode is skipped, and a listing failure yields an empty
// collection instead of an error so the caller can still render an empty
// state; availability wins over strictness here.
func (s *Store) Load(ctx context.Context, family model.Family) map[string]*model.Record {
	sessions := make(map[string]*model.Record)

	keys, err := s.objects.List(ctx, family.Namespace()+"/")
	if err != nil {
		logger.Warn().Err(err).Str("family", string(family)).Msg("failed to list sessions, rendering empty")
		return sessions
	}

	for _, key := range keys {
		if !strings.HasSuffix(key, "/"+recordObject) {
			continue
		}
		parts := strings.Split(key, "/")
		if len(parts) != 3 {
			continue
		}
		name := parts[1]

		data, err := s.objects.Get(ctx, key)
		if err != nil {
			logger.Warn().Err(err).Str("session", name).Msg("failed to read session record, skipping")
			continue
		}

		var rec model.Record
		if err := sonic.Unmarshal(data, &rec); err != nil {
			logger.Warn().Err(err).Str("session", name).Msg("corrupted session record, skipping")
			continue
		}
		sessions[name] = &rec
	}
	return sessions
}

// Delete removes every object under the session's prefix: the record and
// all blobs whose lifecycle is scoped to the session.
func (s *Store) Delete(ctx context.Context, family model.Family, name string) error {
	prefix := family.Namespace() + "/" + name + "/"
	keys, err := s.objects.List(ctx, prefix)
	if err != nil {
		return fmt.Errorf("failed to list session %q for deletion: %w", name, err)
	}

	for _, key := range keys {
		if err := s.objects.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to delete %q: %w", key, err)
		}
	}
	return nil
}
