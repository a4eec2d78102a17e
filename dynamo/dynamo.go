// Package dynamo provides a store.Backend on Amazon DynamoDB.
//
// Each collection is a table named TablePrefix + collection, keyed by a
// string hash key "id". Items are marshaled with attributevalue using the
// entity types' dynamodbav tags. Reads Scan the table (optionally in parallel
// segments) unless the filter pins the id, in which case they Query the key.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/trove/filter"
	"github.com/jacentio/trove/internal/segment"
	"github.com/jacentio/trove/store"
)

// API is the subset of the DynamoDB client used by the backend.
// *dynamodb.Client satisfies it.
type API interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Item is a raw DynamoDB item.
type Item = map[string]types.AttributeValue

// Backend is a DynamoDB document store.
type Backend struct {
	client API
	config Config
	logger *slog.Logger
}

// New creates a Backend. If logger is nil, slog.Default() is used.
func New(client API, config Config, logger *slog.Logger) *Backend {
	config.validate()
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		client: client,
		config: config,
		logger: logger,
	}
}

// Collection returns a handle to the table backing the named collection.
func (b *Backend) Collection(name string) store.Collection {
	table := b.config.TableName(name)
	return &Collection{
		name:    name,
		table:   table,
		backend: b,
		logger:  b.logger.With("table", table),
	}
}

// Collection is a handle to one table.
type Collection struct {
	name    string
	table   string
	backend *Backend
	logger  *slog.Logger
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Table returns the DynamoDB table name.
func (c *Collection) Table() string { return c.table }

// Find returns the items matching f.
//
// Results are fully read before the cursor is returned. With more than one
// segment the items are ordered by segment, then by scan order within it.
func (c *Collection) Find(ctx context.Context, f filter.Filter, opts store.FindOptions) (store.Cursor, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	limit := int(opts.Limit)
	var (
		items []Item
		err   error
	)
	if id, rest, ok := splitKey(f); ok {
		items, err = c.query(ctx, id, rest, limit, opts.Projection)
	} else {
		items, err = segment.Collect(ctx, c.backend.config.Segments, limit, func(ctx context.Context, seg int) ([]Item, error) {
			return c.scan(ctx, f, seg, limit, opts.Projection)
		})
	}
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", c.table, err)
	}

	c.logger.Debug("find", "filter", f.String(), "items", len(items))
	return newCursor(items), nil
}

func (c *Collection) scan(ctx context.Context, f filter.Filter, seg, limit int, projection []string) ([]Item, error) {
	expr := newExpression()
	cond, err := expr.filter(f)
	if err != nil {
		return nil, err
	}

	input := &dynamodb.ScanInput{
		TableName:      aws.String(c.table),
		ConsistentRead: aws.Bool(c.backend.config.ConsistentRead),
	}
	if cond != "" {
		input.FilterExpression = aws.String(cond)
	}
	if p := expr.projection(projection); p != "" {
		input.ProjectionExpression = aws.String(p)
	}
	input.ExpressionAttributeNames = expr.attributeNames()
	input.ExpressionAttributeValues = expr.attributeValues()

	if total := c.backend.config.Segments; total > 1 {
		input.Segment = aws.Int32(int32(seg))
		input.TotalSegments = aws.Int32(int32(total))
	}

	var items []Item
	paginator := dynamodb.NewScanPaginator(c.backend.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
		if limit > 0 && len(items) >= limit {
			break
		}
	}
	return items, nil
}

func (c *Collection) query(ctx context.Context, id string, f filter.Filter, limit int, projection []string) ([]Item, error) {
	input, err := c.queryInput(id, f, projection)
	if err != nil {
		return nil, err
	}

	var items []Item
	paginator := dynamodb.NewQueryPaginator(c.backend.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
		if limit > 0 && len(items) >= limit {
			return items[:limit], nil
		}
	}
	return items, nil
}

func (c *Collection) queryInput(id string, f filter.Filter, projection []string) (*dynamodb.QueryInput, error) {
	expr := newExpression()
	key, err := expr.keyCondition(id)
	if err != nil {
		return nil, err
	}
	cond, err := expr.filter(f)
	if err != nil {
		return nil, err
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(c.table),
		KeyConditionExpression: aws.String(key),
		ConsistentRead:         aws.Bool(c.backend.config.ConsistentRead),
	}
	if cond != "" {
		input.FilterExpression = aws.String(cond)
	}
	if p := expr.projection(projection); p != "" {
		input.ProjectionExpression = aws.String(p)
	}
	input.ExpressionAttributeNames = expr.attributeNames()
	input.ExpressionAttributeValues = expr.attributeValues()
	return input, nil
}

// Count returns the number of items matching f.
func (c *Collection) Count(ctx context.Context, f filter.Filter) (int64, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}

	var (
		n   int64
		err error
	)
	if id, rest, ok := splitKey(f); ok {
		n, err = c.countKey(ctx, id, rest)
	} else {
		n, err = segment.Sum(ctx, c.backend.config.Segments, func(ctx context.Context, seg int) (int64, error) {
			return c.countSegment(ctx, f, seg)
		})
	}
	if err != nil {
		return 0, fmt.Errorf("count in %s: %w", c.table, err)
	}

	c.logger.Debug("count", "filter", f.String(), "count", n)
	return n, nil
}

func (c *Collection) countSegment(ctx context.Context, f filter.Filter, seg int) (int64, error) {
	expr := newExpression()
	cond, err := expr.filter(f)
	if err != nil {
		return 0, err
	}

	input := &dynamodb.ScanInput{
		TableName:                 aws.String(c.table),
		Select:                    types.SelectCount,
		ConsistentRead:            aws.Bool(c.backend.config.ConsistentRead),
		ExpressionAttributeNames:  expr.attributeNames(),
		ExpressionAttributeValues: expr.attributeValues(),
	}
	if cond != "" {
		input.FilterExpression = aws.String(cond)
	}
	if total := c.backend.config.Segments; total > 1 {
		input.Segment = aws.Int32(int32(seg))
		input.TotalSegments = aws.Int32(int32(total))
	}

	var n int64
	paginator := dynamodb.NewScanPaginator(c.backend.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, err
		}
		n += int64(page.Count)
	}
	return n, nil
}

func (c *Collection) countKey(ctx context.Context, id string, f filter.Filter) (int64, error) {
	input, err := c.queryInput(id, f, nil)
	if err != nil {
		return 0, err
	}
	input.Select = types.SelectCount

	var n int64
	paginator := dynamodb.NewQueryPaginator(c.backend.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, err
		}
		n += int64(page.Count)
	}
	return n, nil
}

// InsertOne puts a new item. It fails with store.ErrDuplicateID when an item
// with the same id already exists.
func (c *Collection) InsertOne(ctx context.Context, doc any) error {
	item, id, err := marshalItem(doc)
	if err != nil {
		return err
	}

	_, err = c.backend.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(c.table),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": store.FieldID},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return fmt.Errorf("%w: %s/%s", store.ErrDuplicateID, c.table, id)
		}
		return fmt.Errorf("put into %s: %w", c.table, err)
	}

	c.logger.Debug("insert", "id", id)
	return nil
}

// ReplaceOne overwrites the item with the given id. It reports 0 without
// writing when no such item exists.
func (c *Collection) ReplaceOne(ctx context.Context, id string, doc any) (int64, error) {
	item, docID, err := marshalItem(doc)
	if err != nil {
		return 0, err
	}
	if docID != id {
		return 0, fmt.Errorf("dynamo: replace %s: document id %q does not match", id, docID)
	}

	_, err = c.backend.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(c.table),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": store.FieldID},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			c.logger.Debug("replace", "id", id, "matched", 0)
			return 0, nil
		}
		return 0, fmt.Errorf("put into %s: %w", c.table, err)
	}

	c.logger.Debug("replace", "id", id, "matched", 1)
	return 1, nil
}

// marshalItem encodes doc and returns its string id.
func marshalItem(doc any) (Item, string, error) {
	av, err := encoder.Encode(doc)
	if err != nil {
		return nil, "", fmt.Errorf("dynamo: marshal item: %w", err)
	}
	m, ok := av.(*types.AttributeValueMemberM)
	if !ok {
		return nil, "", fmt.Errorf("dynamo: marshal item: %T is not a document", doc)
	}
	id, ok := m.Value[store.FieldID].(*types.AttributeValueMemberS)
	if !ok || id.Value == "" {
		return nil, "", fmt.Errorf("dynamo: marshal item: missing string %q attribute", store.FieldID)
	}
	return m.Value, id.Value, nil
}
