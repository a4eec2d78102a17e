package dynamo

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
)

var errNoCurrent = errors.New("dynamo: Decode called without a current item")

// cursor iterates over items already read from the table.
type cursor struct {
	items   []Item
	pos     int
	current Item
	err     error
}

func newCursor(items []Item) *cursor {
	return &cursor{items: items}
}

func (c *cursor) Next(ctx context.Context) bool {
	if c.err != nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		c.err = err
		return false
	}
	if c.pos >= len(c.items) {
		c.current = nil
		return false
	}
	c.current = c.items[c.pos]
	c.pos++
	return true
}

func (c *cursor) Decode(v any) error {
	if c.current == nil {
		return errNoCurrent
	}
	return attributevalue.UnmarshalMap(c.current, v)
}

func (c *cursor) Err() error { return c.err }

func (c *cursor) Close(context.Context) error {
	c.items = nil
	c.current = nil
	return nil
}
