// Package kv stores string settings as entities in a shared collection.
//
// Entries follow the same soft-delete rules as every other entity: Delete
// flags the entry, Set on a deleted key revives it.
package kv

import (
	"context"
	"fmt"

	"github.com/jacentio/trove/filter"
	"github.com/jacentio/trove/store"
)

// Collection is the collection entries are stored in.
const Collection = "key_values"

// Entry is a single key/value pair.
type Entry struct {
	store.Entity `bson:",inline"`
	Key          string `json:"key" dynamodbav:"key" bson:"key"`
	Value        string `json:"value" dynamodbav:"value" bson:"value"`
}

// Register binds Entry to its collection in r.
func Register(r *store.Registry) error {
	return store.Register[*Entry](r, Collection)
}

// Store reads and writes entries.
type Store struct {
	repo *store.Repository[*Entry]
}

// New creates a Store. Entry must already be registered in registry.
func New(backend store.Backend, registry *store.Registry, config store.Config) (*Store, error) {
	repo, err := store.New[*Entry](backend, registry, config)
	if err != nil {
		return nil, err
	}
	return &Store{repo: repo}, nil
}

// Get returns the live value for key and whether it exists.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	e, err := s.repo.SingleOrDefault(ctx, filter.Eq("key", key), false)
	if err != nil {
		return "", false, err
	}
	if e == nil {
		return "", false, nil
	}
	return e.Value, true, nil
}

// Set stores value under key, reviving a deleted entry for the same key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	e, err := s.repo.SingleOrDefault(ctx, filter.Eq("key", key), true)
	if err != nil {
		return err
	}
	if e == nil {
		return s.repo.Add(ctx, &Entry{Key: key, Value: value})
	}

	e.Value = value
	e.Deleted = false
	if err := s.repo.Replace(ctx, e); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Delete soft-deletes key. It reports whether a live entry was deleted.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	e, err := s.repo.SingleOrDefault(ctx, filter.Eq("key", key), false)
	if err != nil {
		return false, err
	}
	if e == nil {
		return false, nil
	}

	e.Deleted = true
	if err := s.repo.Replace(ctx, e); err != nil {
		return false, fmt.Errorf("delete %q: %w", key, err)
	}
	return true, nil
}

// All returns every live entry as a map.
func (s *Store) All(ctx context.Context) (map[string]string, error) {
	entries, err := s.repo.List(ctx, filter.All(), false)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.Key] = e.Value
	}
	return out, nil
}
