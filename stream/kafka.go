package stream

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewKafkaWriter creates a writer for topic that hashes message keys to
// partitions, so every event of an entity lands on the same partition.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
}

// KafkaPublisher is a Listener that publishes each event as a JSON message
// keyed by entity id.
type KafkaPublisher struct {
	writer MessageWriter
	logger *slog.Logger
}

// NewKafkaPublisher creates a publisher writing through w.
func NewKafkaPublisher(w MessageWriter, logger *slog.Logger) *KafkaPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaPublisher{
		writer: w,
		logger: logger,
	}
}

// HandleEvent publishes event.
func (p *KafkaPublisher) HandleEvent(ctx context.Context, event Event) error {
	msg, err := ToMessage(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.EventID, err)
	}

	p.logger.Debug("published lifecycle event",
		"kind", event.Kind,
		"collection", event.Collection,
		"id", event.ID,
	)
	return nil
}

// Message is the JSON payload of a published event.
type Message struct {
	Kind       Kind           `json:"kind"`
	Collection string         `json:"collection"`
	ID         string         `json:"id"`
	Deleted    bool           `json:"deleted"`
	At         time.Time      `json:"at"`
	EventID    string         `json:"event_id"`
	Document   map[string]any `json:"document,omitempty"`
}

// ToMessage encodes event as a Kafka message.
func ToMessage(event Event) (kafka.Message, error) {
	payload := Message{
		Kind:       event.Kind,
		Collection: event.Collection,
		ID:         event.ID,
		Deleted:    event.Deleted,
		At:         event.At.UTC(),
		EventID:    event.EventID,
	}
	if len(event.Image) > 0 {
		if err := event.Decode(&payload.Document); err != nil {
			return kafka.Message{}, fmt.Errorf("decode image of %s/%s: %w", event.Collection, event.ID, err)
		}
	}

	serialized, err := json.Marshal(payload)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(event.ID),
		Value: serialized,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(event.Kind)},
			{Key: "collection", Value: []byte(event.Collection)},
		},
	}, nil
}

// FromMessage decodes a message produced by ToMessage.
func FromMessage(msg kafka.Message) (Message, error) {
	var m Message
	if err := json.Unmarshal(msg.Value, &m); err != nil {
		return Message{}, err
	}
	return m, nil
}
