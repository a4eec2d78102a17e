// Package stream turns DynamoDB Streams records into entity lifecycle events.
//
// Tables written through the dynamo backend emit INSERT and MODIFY records.
// The handler classifies each one by comparing the deleted flag of the old
// and new images, so soft deletes and restores surface as their own events.
// Streams must be configured with the NEW_AND_OLD_IMAGES view type.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"github.com/jacentio/trove/dynamo"
	"github.com/jacentio/trove/store"
)

// Kind classifies a lifecycle transition.
type Kind string

const (
	KindAdded       Kind = "added"
	KindReplaced    Kind = "replaced"
	KindSoftDeleted Kind = "soft_deleted"
	KindRestored    Kind = "restored"
)

// Event is one lifecycle transition of an entity.
type Event struct {
	Kind       Kind
	Collection string
	ID         string
	Deleted    bool

	// At is the approximate time the change was written.
	At time.Time

	// EventID is the stream record id, stable across Lambda retries.
	EventID string

	// Image is the entity as stored after the change.
	Image dynamo.Item
}

// Decode unmarshals the new image into v, typically a pointer to an entity.
func (e Event) Decode(v any) error {
	return attributevalue.UnmarshalMap(e.Image, v)
}

// Listener receives lifecycle events.
type Listener interface {
	HandleEvent(ctx context.Context, event Event) error
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, event Event) error

// HandleEvent calls f(ctx, event).
func (f ListenerFunc) HandleEvent(ctx context.Context, event Event) error { return f(ctx, event) }

// Config holds configuration for a Handler.
type Config struct {
	// TablePrefix is stripped from table names to obtain collection names.
	// Records from tables without the prefix are ignored.
	TablePrefix string

	// Registry, when set, restricts events to registered collections.
	Registry *store.Registry
}

// Handler processes DynamoDB stream events.
type Handler struct {
	listener Listener
	config   Config
	logger   *slog.Logger
}

// NewHandler creates a new stream handler.
func NewHandler(listener Listener, config Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		listener: listener,
		config:   config,
		logger:   logger,
	}
}

// HandleChanges delivers one event per INSERT or MODIFY record.
// This function is designed to be used as an AWS Lambda handler: a listener
// error aborts the batch so the records are retried.
func (h *Handler) HandleChanges(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err // Will retry, eventually DLQ
		}
	}
	return nil
}

// processRecord processes a single DynamoDB stream record.
func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	collection, ok := h.collection(record.EventSourceArn)
	if !ok {
		h.logger.Debug("skipping record from foreign table",
			"eventID", record.EventID,
			"source", record.EventSourceArn,
		)
		return nil
	}

	change := record.Change
	var kind Kind
	switch record.EventName {
	case string(events.DynamoDBOperationTypeInsert):
		kind = KindAdded
	case string(events.DynamoDBOperationTypeModify):
		kind = classify(change)
		if len(change.OldImage) == 0 {
			h.logger.Warn("modify record without old image, check the stream view type",
				"eventID", record.EventID,
				"collection", collection,
			)
		}
	default:
		// Hard deletes bypass the repository layer.
		return nil
	}

	id := getStringAttr(change.Keys, store.FieldID)
	if id == "" {
		id = getStringAttr(change.NewImage, store.FieldID)
	}

	ev := Event{
		Kind:       kind,
		Collection: collection,
		ID:         id,
		Deleted:    getBoolAttr(change.NewImage, store.FieldDeleted),
		At:         change.ApproximateCreationDateTime.Time,
		EventID:    record.EventID,
		Image:      ConvertImage(change.NewImage),
	}

	h.logger.Info("lifecycle event",
		"kind", ev.Kind,
		"collection", ev.Collection,
		"id", ev.ID,
	)

	if err := h.listener.HandleEvent(ctx, ev); err != nil {
		return fmt.Errorf("%s %s/%s: %w", ev.Kind, ev.Collection, ev.ID, err)
	}
	return nil
}

// classify derives the kind of a MODIFY record from the deleted flag.
func classify(change events.DynamoDBStreamRecord) Kind {
	before := getBoolAttr(change.OldImage, store.FieldDeleted)
	after := getBoolAttr(change.NewImage, store.FieldDeleted)
	switch {
	case !before && after:
		return KindSoftDeleted
	case before && !after:
		return KindRestored
	}
	return KindReplaced
}

// collection resolves the collection name from a stream ARN of the form
// arn:aws:dynamodb:region:account:table/<table>/stream/<label>.
func (h *Handler) collection(arn string) (string, bool) {
	table := TableFromARN(arn)
	if table == "" || !strings.HasPrefix(table, h.config.TablePrefix) {
		return "", false
	}
	name := strings.TrimPrefix(table, h.config.TablePrefix)
	if name == "" {
		return "", false
	}
	if h.config.Registry != nil && !h.config.Registry.Registered(name) {
		return "", false
	}
	return name, true
}

// TableFromARN returns the table name of a DynamoDB table or stream ARN.
func TableFromARN(arn string) string {
	_, resource, ok := strings.Cut(arn, ":table/")
	if !ok {
		return ""
	}
	table, _, _ := strings.Cut(resource, "/")
	return table
}
