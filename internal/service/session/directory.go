package session

import (
	"context"
	"fmt"
	"sort"

	model "github.com/artfoundry/atelier/backend/internal/model/session"
)

// Directory manages the set of sessions within a model family. It operates
// on the in-memory collection the caller holds (the result of a Load) and
// keeps durable storage in step; directory mutation and persistence are one
// logical operation with no separate commit.
type Directory struct {
	store *Store
}

// NewDirectory wires the directory over the record store.
func NewDirectory(store *Store) *Directory {
	return &Directory{store: store}
}

// List returns session names sorted by creation time, newest first. A
// session with no timestamp sorts last.
func (d *Directory) List(sessions map[string]*model.Record) []string {
	names := make([]string, 0, len(sessions))
	for name := range sessions {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ti, tj := sessions[names[i]].CreatedAt, sessions[names[j]].CreatedAt
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return names[i] < names[j]
	})
	return names
}

// Create provisions a fresh session record, stores it, and returns it.
// Creation fails when the name is already taken within the family.
func (d *Directory) Create(ctx context.Context, family model.Family, sessions map[string]*model.Record, name string) (*model.Record, error) {
	if _, exists := sessions[name]; exists {
		return nil, fmt.Errorf("session %q: %w", name, ErrAlreadyExists)
	}

	rec := model.NewRecord(family)
	sessions[name] = rec

	if err := d.store.Save(ctx, family, name, rec); err != nil {
		delete(sessions, name)
		return nil, err
	}
	return rec, nil
}

// Remove drops the session from the collection and deletes its durable
// state. Callers holding a "current session" pointer to the removed name
// must clear it themselves; the directory has no notion of current.
func (d *Directory) Remove(ctx context.Context, family model.Family, sessions map[string]*model.Record, name string) error {
	if _, exists := sessions[name]; !exists {
		return fmt.Errorf("session %q: %w", name, ErrSessionNotFound)
	}
	delete(sessions, name)
	return d.store.Delete(ctx, family, name)
}
