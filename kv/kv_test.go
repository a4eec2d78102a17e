package kv_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jacentio/trove/filter"
	"github.com/jacentio/trove/kv"
	"github.com/jacentio/trove/memory"
	"github.com/jacentio/trove/store"
)

func newTestStore(t *testing.T) (*kv.Store, *memory.Backend) {
	t.Helper()
	backend := memory.New(nil)
	reg := store.NewRegistry()
	if err := kv.Register(reg); err != nil {
		t.Fatalf("failed to register: %v", err)
	}
	s, err := kv.New(backend, reg, store.DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s, backend
}

func TestNew_Unregistered(t *testing.T) {
	_, err := kv.New(memory.New(nil), store.NewRegistry(), store.DefaultConfig())
	if !errors.Is(err, store.ErrCollectionNotRegistered) {
		t.Errorf("expected ErrCollectionNotRegistered, got %v", err)
	}
}

func TestRegister_Twice(t *testing.T) {
	reg := store.NewRegistry()
	if err := kv.Register(reg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := kv.Register(reg); err != nil {
		t.Errorf("expected re-registering the same binding to succeed, got %v", err)
	}
}

func TestGet_Missing(t *testing.T) {
	s, _ := newTestStore(t)

	v, ok, err := s.Get(context.Background(), "theme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || v != "" {
		t.Errorf("expected missing key, got %q, %v", v, ok)
	}
}

func TestSetGet(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)

	if err := s.Set(ctx, "theme", "dark"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok, err := s.Get(ctx, "theme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || v != "dark" {
		t.Errorf("expected dark, got %q, %v", v, ok)
	}

	if err := s.Set(ctx, "theme", "light"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, _, _ = s.Get(ctx, "theme")
	if v != "light" {
		t.Errorf("expected light, got %q", v)
	}
	if backend.Len(kv.Collection) != 1 {
		t.Errorf("expected overwrite in place, got %d records", backend.Len(kv.Collection))
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)

	if err := s.Set(ctx, "theme", "dark"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	deleted, err := s.Delete(ctx, "theme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !deleted {
		t.Error("expected live entry to be deleted")
	}

	if _, ok, _ := s.Get(ctx, "theme"); ok {
		t.Error("expected deleted key to be hidden")
	}
	if backend.Len(kv.Collection) != 1 {
		t.Errorf("expected soft delete to keep the record, got %d records", backend.Len(kv.Collection))
	}

	deleted, err = s.Delete(ctx, "theme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted {
		t.Error("expected second delete to report false")
	}
}

func TestSet_RevivesDeleted(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)

	_ = s.Set(ctx, "theme", "dark")
	_, _ = s.Delete(ctx, "theme")
	if err := s.Set(ctx, "theme", "solarized"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, ok, err := s.Get(ctx, "theme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || v != "solarized" {
		t.Errorf("expected revived value solarized, got %q, %v", v, ok)
	}
	if backend.Len(kv.Collection) != 1 {
		t.Errorf("expected revive in place, got %d records", backend.Len(kv.Collection))
	}
}

func TestAll(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_ = s.Set(ctx, "a", "1")
	_ = s.Set(ctx, "b", "2")
	_ = s.Set(ctx, "c", "3")
	_, _ = s.Delete(ctx, "b")

	all, err := s.All(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 || all["a"] != "1" || all["c"] != "3" {
		t.Errorf("expected map[a:1 c:3], got %v", all)
	}
}

func TestGet_DuplicateKeys(t *testing.T) {
	ctx := context.Background()
	backend := memory.New(nil)
	reg := store.NewRegistry()
	_ = kv.Register(reg)
	s, _ := kv.New(backend, reg, store.DefaultConfig())

	// Two writers racing on Set can leave two live entries for one key.
	repo := store.MustNew[*kv.Entry](backend, reg, store.DefaultConfig())
	_ = repo.Add(ctx, &kv.Entry{Key: "theme", Value: "dark"})
	_ = repo.Add(ctx, &kv.Entry{Key: "theme", Value: "light"})

	if _, _, err := s.Get(ctx, "theme"); !errors.Is(err, store.ErrMultipleResults) {
		t.Errorf("expected ErrMultipleResults, got %v", err)
	}
	if n, _ := repo.Count(ctx, filter.Eq("key", "theme"), false); n != 2 {
		t.Errorf("expected 2 entries, got %d", n)
	}
}
