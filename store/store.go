package store

import (
	"context"

	"github.com/jacentio/trove/filter"
)

// Backend is the document store the repositories run against. It owns the
// connection; repositories only borrow collection handles from it.
type Backend interface {
	// Collection returns a handle to the named collection.
	Collection(name string) Collection
}

// Collection is a handle to one named collection of documents.
type Collection interface {
	// Name returns the collection name.
	Name() string

	// Find returns a cursor over the documents matching f, in the store's
	// natural order.
	Find(ctx context.Context, f filter.Filter, opts FindOptions) (Cursor, error)

	// Count returns the number of documents matching f.
	Count(ctx context.Context, f filter.Filter) (int64, error)

	// InsertOne stores a new document.
	InsertOne(ctx context.Context, doc any) error

	// ReplaceOne overwrites the document with the given id and reports how
	// many documents matched (0 or 1). Nothing is written when none matched.
	ReplaceOne(ctx context.Context, id string, doc any) (int64, error)
}

// FindOptions narrows a Find call.
type FindOptions struct {
	// Limit caps the number of returned documents (0 = no limit).
	Limit int64

	// Projection lists the fields to return (empty = whole document).
	Projection []string
}

// Cursor iterates over the result of a Find call.
type Cursor interface {
	Next(ctx context.Context) bool
	Decode(v any) error
	Err() error
	Close(ctx context.Context) error
}
