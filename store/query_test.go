package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jacentio/trove/filter"
	"github.com/jacentio/trove/store"
)

// --- Fake backend recording calls ---

type recordingBackend struct {
	coll *recordingCollection
}

func (b *recordingBackend) Collection(name string) store.Collection {
	b.coll.name = name
	return b.coll
}

type recordingCollection struct {
	name     string
	finds    []store.FindOptions
	filters  []filter.Filter
	counts   int
	err      error
	countErr error
}

func (c *recordingCollection) Name() string { return c.name }

func (c *recordingCollection) Find(ctx context.Context, f filter.Filter, opts store.FindOptions) (store.Cursor, error) {
	c.finds = append(c.finds, opts)
	c.filters = append(c.filters, f)
	if c.err != nil {
		return nil, c.err
	}
	return emptyCursor{}, nil
}

func (c *recordingCollection) Count(ctx context.Context, f filter.Filter) (int64, error) {
	c.counts++
	c.filters = append(c.filters, f)
	return 42, c.countErr
}

func (c *recordingCollection) InsertOne(ctx context.Context, doc any) error { return c.err }

func (c *recordingCollection) ReplaceOne(ctx context.Context, id string, doc any) (int64, error) {
	return 0, c.err
}

type emptyCursor struct{}

func (emptyCursor) Next(context.Context) bool   { return false }
func (emptyCursor) Decode(any) error            { return nil }
func (emptyCursor) Err() error                  { return nil }
func (emptyCursor) Close(context.Context) error { return nil }

func newRecordingRepo(t *testing.T) (*store.Repository[*Customer], *recordingCollection) {
	t.Helper()
	coll := &recordingCollection{}
	reg := store.NewRegistry()
	store.MustRegister[*Customer](reg, "customers")
	repo, err := store.New[*Customer](&recordingBackend{coll: coll}, reg, store.DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	return repo, coll
}

// --- Tests ---

func TestQuery_SoftDeleteFilterMerged(t *testing.T) {
	repo, _ := newTestRepo(t)

	tests := []struct {
		name           string
		includeDeleted bool
		where          filter.Filter
		expected       string
	}{
		{"default visibility", false, filter.All(), "deleted = false"},
		{"include deleted", true, filter.All(), "*"},
		{"predicate merged", false, filter.Eq("name", "ada"), `deleted = false AND name = "ada"`},
		{"predicate only", true, filter.Eq("name", "ada"), `name = "ada"`},
		{
			"disjunction stays grouped",
			false,
			filter.Or(filter.Eq("name", "ada"), filter.Eq("deleted", true)),
			`deleted = false AND (name = "ada" OR deleted = true)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := repo.Query(tt.includeDeleted).Where(tt.where).Filter().String()
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestQuery_Lazy(t *testing.T) {
	repo, coll := newRecordingRepo(t)

	q := repo.Query(false).Where(filter.Eq("name", "ada")).Limit(5).Project("name")
	if len(coll.finds) != 0 || coll.counts != 0 {
		t.Fatal("expected no backend calls before a terminal operation")
	}

	_, err := q.ToList(context.Background())
	assertNoError(t, err)
	if len(coll.finds) != 1 {
		t.Errorf("expected 1 find, got %d", len(coll.finds))
	}
}

func TestQuery_CompositionIsImmutable(t *testing.T) {
	repo, _ := newTestRepo(t)

	base := repo.Query(false)
	narrowed := base.Where(filter.Eq("tier", "gold"))

	if base.Filter().String() != "deleted = false" {
		t.Errorf("expected base query to be unchanged, got %q", base.Filter())
	}
	if narrowed.Filter().String() != `deleted = false AND tier = "gold"` {
		t.Errorf("unexpected narrowed filter %q", narrowed.Filter())
	}
}

func TestQuery_TerminalLimits(t *testing.T) {
	repo, coll := newRecordingRepo(t)
	ctx := context.Background()

	_, _ = repo.Query(false).Any(ctx)
	_, _ = repo.Query(false).FirstOrDefault(ctx)
	_, _ = repo.Query(false).SingleOrDefault(ctx)
	_, _ = repo.Query(false).ToList(ctx)
	_, _ = repo.Query(false).Limit(10).ToList(ctx)
	_, _ = repo.Query(false).Limit(1).SingleOrDefault(ctx)

	expected := []int64{1, 1, 2, 0, 10, 1}
	if len(coll.finds) != len(expected) {
		t.Fatalf("expected %d finds, got %d", len(expected), len(coll.finds))
	}
	for i, want := range expected {
		if coll.finds[i].Limit != want {
			t.Errorf("find %d: expected limit %d, got %d", i, want, coll.finds[i].Limit)
		}
	}
}

func TestQuery_ProjectAlwaysIncludesID(t *testing.T) {
	repo, coll := newRecordingRepo(t)

	_, err := repo.Query(false).Project("name", "tier", "name").ToList(context.Background())
	assertNoError(t, err)

	got := coll.finds[0].Projection
	expected := []string{"id", "name", "tier"}
	if len(got) != len(expected) {
		t.Fatalf("expected projection %v, got %v", expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("expected projection %v, got %v", expected, got)
		}
	}
}

func TestQuery_ProjectOnMemory(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	c := mustAdd(t, repo, &Customer{Name: "ada", Tier: "gold"})

	items, err := repo.Query(false).Project("name").ToList(ctx)
	assertNoError(t, err)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].ID != c.ID || items[0].Name != "ada" {
		t.Errorf("expected id and name, got %+v", items[0])
	}
	if items[0].Tier != "" {
		t.Errorf("expected tier to be projected out, got %q", items[0].Tier)
	}
}

func TestQuery_CountCappedByLimit(t *testing.T) {
	repo, _ := newRecordingRepo(t)

	n, err := repo.Query(false).Limit(3).Count(context.Background())
	assertNoError(t, err)
	if n != 3 {
		t.Errorf("expected count capped at 3, got %d", n)
	}
}

func TestQuery_InvalidFilter(t *testing.T) {
	repo, coll := newRecordingRepo(t)

	_, err := repo.Any(context.Background(), filter.Filter{Op: "near"}, false)
	if err == nil {
		t.Fatal("expected error for malformed filter")
	}
	if len(coll.finds) != 0 {
		t.Error("expected malformed filter to be rejected before reaching the backend")
	}
}

func TestBackendErrorsPropagateVerbatim(t *testing.T) {
	repo, coll := newRecordingRepo(t)
	ctx := context.Background()
	boom := errors.New("connection reset")
	coll.err = boom
	coll.countErr = boom

	if _, err := repo.Any(ctx, filter.All(), false); !errors.Is(err, boom) {
		t.Errorf("Any: expected %v, got %v", boom, err)
	}
	if _, err := repo.Count(ctx, filter.All(), false); !errors.Is(err, boom) {
		t.Errorf("Count: expected %v, got %v", boom, err)
	}
	if _, err := repo.Get(ctx, "x"); !errors.Is(err, boom) {
		t.Errorf("Get: expected %v, got %v", boom, err)
	}
	if _, err := repo.List(ctx, filter.All(), true); !errors.Is(err, boom) {
		t.Errorf("List: expected %v, got %v", boom, err)
	}
	if err := repo.Add(ctx, &Customer{}); !errors.Is(err, boom) {
		t.Errorf("Add: expected %v, got %v", boom, err)
	}
	err := repo.Replace(ctx, &Customer{Entity: store.Entity{ID: "x"}})
	if !errors.Is(err, boom) || errors.Is(err, store.ErrNotFound) {
		t.Errorf("Replace: expected %v, got %v", boom, err)
	}
}

func TestGet_UsesIDAndVisibility(t *testing.T) {
	repo, coll := newRecordingRepo(t)

	_, err := repo.Get(context.Background(), "c1")
	assertNoError(t, err)

	if got := coll.filters[0].String(); got != `deleted = false AND id = "c1"` {
		t.Errorf("unexpected Get filter %q", got)
	}
}
