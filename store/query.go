package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/jacentio/trove/filter"
)

// Query is a lazily evaluated, filtered view over one collection. Composition
// methods return a new Query and leave the receiver untouched; nothing reaches
// the backend until a terminal method (Any, Count, FirstOrDefault,
// SingleOrDefault, ToList) runs.
type Query[T Document] struct {
	coll       Collection
	filter     filter.Filter
	limit      int64
	projection []string
}

func newQuery[T Document](coll Collection, includeDeleted bool) *Query[T] {
	return &Query[T]{
		coll:   coll,
		filter: Visibility(includeDeleted),
	}
}

func (q *Query[T]) clone() *Query[T] {
	c := *q
	c.projection = slices.Clone(q.projection)
	return &c
}

// Where narrows the query with an additional predicate (logical AND).
func (q *Query[T]) Where(f filter.Filter) *Query[T] {
	c := q.clone()
	c.filter = filter.And(c.filter, f)
	return c
}

// Limit caps the number of records a terminal method reads (0 = no limit).
func (q *Query[T]) Limit(n int64) *Query[T] {
	c := q.clone()
	if n < 0 {
		n = 0
	}
	c.limit = n
	return c
}

// Project restricts materialized records to the given fields. The id field is
// always included. Fields left out decode as their zero values.
func (q *Query[T]) Project(fields ...string) *Query[T] {
	c := q.clone()
	c.projection = nil
	if len(fields) > 0 {
		c.projection = append(c.projection, FieldID)
		for _, f := range fields {
			if !slices.Contains(c.projection, f) {
				c.projection = append(c.projection, f)
			}
		}
	}
	return c
}

// Filter returns the merged predicate (soft-delete rule AND caller predicates).
func (q *Query[T]) Filter() filter.Filter {
	return q.filter
}

// Any returns true if at least one record matches.
func (q *Query[T]) Any(ctx context.Context) (bool, error) {
	items, err := q.fetch(ctx, 1)
	if err != nil {
		return false, err
	}
	return len(items) > 0, nil
}

// Count returns the number of matching records, capped by Limit.
func (q *Query[T]) Count(ctx context.Context) (int64, error) {
	if err := q.filter.Validate(); err != nil {
		return 0, err
	}
	n, err := q.coll.Count(ctx, q.filter)
	if err != nil {
		return 0, err
	}
	if q.limit > 0 && n > q.limit {
		n = q.limit
	}
	return n, nil
}

// FirstOrDefault returns the first matching record in the store's natural
// order, or the zero T when nothing matches.
func (q *Query[T]) FirstOrDefault(ctx context.Context) (T, error) {
	var zero T
	items, err := q.fetch(ctx, 1)
	if err != nil || len(items) == 0 {
		return zero, err
	}
	return items[0], nil
}

// SingleOrDefault returns the only matching record, or the zero T when nothing
// matches. It fails with ErrMultipleResults when more than one record matches.
func (q *Query[T]) SingleOrDefault(ctx context.Context) (T, error) {
	var zero T
	items, err := q.fetch(ctx, 2)
	if err != nil || len(items) == 0 {
		return zero, err
	}
	if len(items) > 1 {
		return zero, fmt.Errorf("%w: %s where %s", ErrMultipleResults, q.coll.Name(), q.filter)
	}
	return items[0], nil
}

// ToList materializes every matching record in the store's natural order.
func (q *Query[T]) ToList(ctx context.Context) ([]T, error) {
	return q.fetch(ctx, 0)
}

// fetch runs the query reading at most atMost records (0 = Limit only).
func (q *Query[T]) fetch(ctx context.Context, atMost int64) ([]T, error) {
	if err := q.filter.Validate(); err != nil {
		return nil, err
	}

	limit := q.limit
	if atMost > 0 && (limit == 0 || atMost < limit) {
		limit = atMost
	}

	cur, err := q.coll.Find(ctx, q.filter, FindOptions{
		Limit:      limit,
		Projection: q.projection,
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	items := []T{}
	for cur.Next(ctx) {
		var item T
		if err := cur.Decode(&item); err != nil {
			return nil, fmt.Errorf("decode %s: %w", q.coll.Name(), err)
		}
		items = append(items, item)
		if limit > 0 && int64(len(items)) >= limit {
			break
		}
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
