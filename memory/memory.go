// Package memory provides an in-process store.Backend.
//
// Documents are kept as JSON (goccy/go-json) in insertion order, which is the
// natural order reads return them in. Field names are the json tags of the
// entity types. Timestamps are matched in filter.TimeLayout form, so they
// order by instant regardless of zone. It is meant for tests and local tooling.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/jacentio/trove/filter"
	"github.com/jacentio/trove/store"
)

// Backend is an in-memory document store.
type Backend struct {
	mu          sync.Mutex
	collections map[string]*Collection
	logger      *slog.Logger
}

// New creates an empty Backend.
func New(logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		collections: make(map[string]*Collection),
		logger:      logger,
	}
}

// Collection returns the named collection, creating it on first use.
func (b *Backend) Collection(name string) store.Collection {
	return b.collection(name)
}

func (b *Backend) collection(name string) *Collection {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.collections[name]
	if !ok {
		c = &Collection{
			name:   name,
			index:  make(map[string]int),
			logger: b.logger.With("collection", name),
		}
		b.collections[name] = c
	}
	return c
}

// Len returns the number of documents in the named collection, deleted or not.
func (b *Backend) Len(name string) int {
	c := b.collection(name)
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

// document is a stored record: its encoded form plus the decoded field tree
// predicates are evaluated against.
type document struct {
	raw    []byte
	fields map[string]any
}

// Collection is an in-memory collection.
type Collection struct {
	name   string
	mu     sync.RWMutex
	docs   []document
	index  map[string]int
	logger *slog.Logger
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Find returns the matching documents in insertion order.
func (c *Collection) Find(ctx context.Context, f filter.Filter, opts store.FindOptions) (store.Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var out [][]byte
	for _, d := range c.docs {
		if !filter.Match(f, d.fields) {
			continue
		}
		raw := d.raw
		if len(opts.Projection) > 0 {
			var err error
			if raw, err = json.Marshal(project(d.fields, opts.Projection)); err != nil {
				return nil, err
			}
		}
		out = append(out, raw)
		if opts.Limit > 0 && int64(len(out)) >= opts.Limit {
			break
		}
	}

	c.logger.Debug("find", "filter", f.String(), "matched", len(out))
	return &cursor{docs: out}, nil
}

// Count returns the number of matching documents.
func (c *Collection) Count(ctx context.Context, f filter.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var n int64
	for _, d := range c.docs {
		if filter.Match(f, d.fields) {
			n++
		}
	}
	return n, nil
}

// InsertOne appends doc. It fails with store.ErrDuplicateID if the id is taken.
func (c *Collection) InsertOne(ctx context.Context, doc any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d, id, err := encode(doc)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.index[id]; exists {
		return fmt.Errorf("%w: %s/%s", store.ErrDuplicateID, c.name, id)
	}
	c.index[id] = len(c.docs)
	c.docs = append(c.docs, d)

	c.logger.Debug("insert", "id", id)
	return nil
}

// ReplaceOne overwrites the document with the given id in place.
func (c *Collection) ReplaceOne(ctx context.Context, id string, doc any) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	d, docID, err := encode(doc)
	if err != nil {
		return 0, err
	}
	if docID != id {
		return 0, fmt.Errorf("memory: replacement id %q does not match %q", docID, id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	pos, ok := c.index[id]
	if !ok {
		return 0, nil
	}
	c.docs[pos] = d

	c.logger.Debug("replace", "id", id)
	return 1, nil
}

func encode(doc any) (document, string, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return document{}, "", fmt.Errorf("memory: encode: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return document{}, "", fmt.Errorf("memory: document must encode as an object: %w", err)
	}
	id, _ := fields[store.FieldID].(string)
	if id == "" {
		return document{}, "", fmt.Errorf("memory: document has no %q field", store.FieldID)
	}
	filter.Canonical(fields)
	return document{raw: raw, fields: fields}, id, nil
}

// project copies the selected (possibly dotted) fields into a new tree.
func project(fields map[string]any, paths []string) map[string]any {
	out := make(map[string]any)
	for _, path := range paths {
		v, ok := filter.Lookup(fields, path)
		if !ok {
			continue
		}
		parts := strings.Split(path, ".")
		node := out
		for _, p := range parts[:len(parts)-1] {
			next, ok := node[p].(map[string]any)
			if !ok {
				next = make(map[string]any)
				node[p] = next
			}
			node = next
		}
		node[parts[len(parts)-1]] = v
	}
	return out
}

// cursor iterates over a snapshot of encoded documents.
type cursor struct {
	docs [][]byte
	pos  int
	err  error
}

func (c *cursor) Next(ctx context.Context) bool {
	if c.err != nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		c.err = err
		return false
	}
	if c.pos >= len(c.docs) {
		return false
	}
	c.pos++
	return true
}

func (c *cursor) Decode(v any) error {
	if c.pos == 0 || c.pos > len(c.docs) {
		return fmt.Errorf("memory: decode called without a current document")
	}
	return json.Unmarshal(c.docs[c.pos-1], v)
}

func (c *cursor) Err() error { return c.err }

func (c *cursor) Close(context.Context) error { return nil }
