// Package mongostore provides a store.Backend on MongoDB.
//
// Entity types need bson tags; the embedded store.Entity must be inlined
// (`bson:",inline"`) so id, added and deleted sit at the top of the document.
// The entity id is stored as _id.
package mongostore

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jacentio/trove/filter"
	"github.com/jacentio/trove/store"
)

// CollectionAPI is the subset of *mongo.Collection used by the backend.
type CollectionAPI interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
}

// Backend is a MongoDB document store.
type Backend struct {
	open   func(name string) CollectionAPI
	config Config
	logger *slog.Logger
}

// New creates a Backend over the configured database of client.
// If logger is nil, slog.Default() is used.
func New(client *mongo.Client, config Config, logger *slog.Logger) *Backend {
	config.validate()
	db := client.Database(config.Database)
	return newBackend(func(name string) CollectionAPI { return db.Collection(name) }, config, logger)
}

// NewWithOpener creates a Backend that obtains collection handles from open.
func NewWithOpener(open func(name string) CollectionAPI, config Config, logger *slog.Logger) *Backend {
	config.validate()
	return newBackend(open, config, logger)
}

func newBackend(open func(name string) CollectionAPI, config Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		open:   open,
		config: config,
		logger: logger,
	}
}

// Collection returns a handle to the named collection.
func (b *Backend) Collection(name string) store.Collection {
	full := b.config.CollectionPrefix + name
	return &Collection{
		name:   name,
		api:    b.open(full),
		logger: b.logger.With("collection", full),
	}
}

// Collection is a handle to one MongoDB collection.
type Collection struct {
	name   string
	api    CollectionAPI
	logger *slog.Logger
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Find returns a driver cursor over the documents matching f.
func (c *Collection) Find(ctx context.Context, f filter.Filter, opts store.FindOptions) (store.Cursor, error) {
	query, err := Translate(f)
	if err != nil {
		return nil, err
	}

	findOpts := options.Find()
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}
	if p := projection(opts.Projection); p != nil {
		findOpts.SetProjection(p)
	}

	cur, err := c.api.Find(ctx, query, findOpts)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", c.name, err)
	}

	c.logger.Debug("find", "filter", f.String(), "limit", opts.Limit)
	return cur, nil
}

// Count returns the number of documents matching f.
func (c *Collection) Count(ctx context.Context, f filter.Filter) (int64, error) {
	query, err := Translate(f)
	if err != nil {
		return 0, err
	}

	n, err := c.api.CountDocuments(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("count in %s: %w", c.name, err)
	}

	c.logger.Debug("count", "filter", f.String(), "count", n)
	return n, nil
}

// InsertOne stores a new document. A duplicate _id fails with
// store.ErrDuplicateID.
func (c *Collection) InsertOne(ctx context.Context, doc any) error {
	if _, err := c.api.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", store.ErrDuplicateID, c.name)
		}
		return fmt.Errorf("insert into %s: %w", c.name, err)
	}

	c.logger.Debug("insert")
	return nil
}

// ReplaceOne overwrites the document with the given id and reports the
// matched count.
func (c *Collection) ReplaceOne(ctx context.Context, id string, doc any) (int64, error) {
	res, err := c.api.ReplaceOne(ctx, bson.D{{Key: idField, Value: id}}, doc)
	if err != nil {
		return 0, fmt.Errorf("replace in %s: %w", c.name, err)
	}

	c.logger.Debug("replace", "id", id, "matched", res.MatchedCount)
	return res.MatchedCount, nil
}
