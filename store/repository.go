package store

import (
	"context"
	"fmt"

	"github.com/jacentio/trove/filter"
)

// Repository provides soft-delete aware CRUD over the collection bound to T.
// It holds no mutable state and is safe for concurrent use.
type Repository[T Document] struct {
	coll   Collection
	config Config
}

// New creates a Repository for entity type T. The collection is resolved once
// through the registry; a missing binding fails here with
// ErrCollectionNotRegistered rather than on first use.
func New[T Document](backend Backend, registry *Registry, config Config) (*Repository[T], error) {
	name, err := CollectionName[T](registry)
	if err != nil {
		return nil, err
	}
	config.validate()
	return &Repository[T]{
		coll:   backend.Collection(name),
		config: config,
	}, nil
}

// MustNew is like New but panics when T has no collection binding.
func MustNew[T Document](backend Backend, registry *Registry, config Config) *Repository[T] {
	r, err := New[T](backend, registry, config)
	if err != nil {
		panic(err)
	}
	return r
}

// Collection returns the name of the backing collection.
func (r *Repository[T]) Collection() string {
	return r.coll.Name()
}

// Query returns a query over the collection. Soft-deleted records are
// excluded unless includeDeleted is true.
func (r *Repository[T]) Query(includeDeleted bool) *Query[T] {
	return newQuery[T](r.coll, includeDeleted)
}

// Add assigns a new ID to entity and stores it. Added is set to the current
// time unless the caller already set it. If the insert fails, entity keeps
// its previous ID and Added.
func (r *Repository[T]) Add(ctx context.Context, entity T) error {
	var zero T
	if entity == zero {
		return ErrNilEntity
	}
	prevID, prevAdded := entity.GetID(), entity.GetAdded()

	entity.SetID(r.config.NewID())
	if prevAdded.IsZero() {
		entity.SetAdded(r.config.Now())
	}
	if err := r.coll.InsertOne(ctx, entity); err != nil {
		entity.SetID(prevID)
		entity.SetAdded(prevAdded)
		return err
	}
	return nil
}

// Any returns true if at least one record matches where.
func (r *Repository[T]) Any(ctx context.Context, where filter.Filter, includeDeleted bool) (bool, error) {
	return r.Query(includeDeleted).Where(where).Any(ctx)
}

// Count returns the number of records matching where.
func (r *Repository[T]) Count(ctx context.Context, where filter.Filter, includeDeleted bool) (int64, error) {
	return r.Query(includeDeleted).Where(where).Count(ctx)
}

// Get returns the non-deleted record with the given ID, or the zero T if none exists.
func (r *Repository[T]) Get(ctx context.Context, id string) (T, error) {
	if id == "" {
		var zero T
		return zero, nil
	}
	return r.Query(false).Where(filter.Eq(FieldID, id)).FirstOrDefault(ctx)
}

// FirstOrDefault returns the first record matching where, or the zero T.
func (r *Repository[T]) FirstOrDefault(ctx context.Context, where filter.Filter, includeDeleted bool) (T, error) {
	return r.Query(includeDeleted).Where(where).FirstOrDefault(ctx)
}

// SingleOrDefault returns the only record matching where, or the zero T.
// More than one match fails with ErrMultipleResults.
func (r *Repository[T]) SingleOrDefault(ctx context.Context, where filter.Filter, includeDeleted bool) (T, error) {
	return r.Query(includeDeleted).Where(where).SingleOrDefault(ctx)
}

// List returns every record matching where.
func (r *Repository[T]) List(ctx context.Context, where filter.Filter, includeDeleted bool) ([]T, error) {
	return r.Query(includeDeleted).Where(where).ToList(ctx)
}

// Replace overwrites the stored record sharing entity's ID. Soft-deleted
// records can be replaced too, which is how entities move between the active
// and deleted states.
func (r *Repository[T]) Replace(ctx context.Context, entity T) error {
	var zero T
	if entity == zero {
		return ErrNilEntity
	}
	id := entity.GetID()
	if id == "" {
		return ErrMissingID
	}

	matched, err := r.coll.ReplaceOne(ctx, id, entity)
	if err != nil {
		return err
	}
	if matched == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, r.coll.Name(), id)
	}
	return nil
}
