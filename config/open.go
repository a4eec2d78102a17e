package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jacentio/trove/dynamo"
	"github.com/jacentio/trove/memory"
	"github.com/jacentio/trove/mongostore"
	"github.com/jacentio/trove/store"
	"github.com/jacentio/trove/stream"
)

// CloseFunc releases the resources held by an opened backend.
type CloseFunc func(ctx context.Context) error

func noopClose(context.Context) error { return nil }

// Open builds the configured backend.
func Open(ctx context.Context, cfg *Config, logger *slog.Logger) (store.Backend, CloseFunc, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	switch cfg.Backend {
	case BackendMemory:
		return memory.New(logger), noopClose, nil

	case BackendDynamoDB:
		client, err := NewDynamoDBClient(ctx, cfg.DynamoDB)
		if err != nil {
			return nil, nil, err
		}
		dcfg := dynamo.DefaultConfig()
		dcfg.TablePrefix = cfg.DynamoDB.TablePrefix
		dcfg.Segments = cfg.DynamoDB.Segments
		dcfg.ConsistentRead = cfg.DynamoDB.ConsistentRead
		return dynamo.New(client, dcfg, logger), noopClose, nil

	case BackendMongo:
		opts := options.Client().ApplyURI(cfg.Mongo.URI)
		if cfg.Mongo.ConnectTimeout > 0 {
			opts.SetConnectTimeout(cfg.Mongo.ConnectTimeout)
		}
		client, err := mongo.Connect(ctx, opts)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to mongo: %w", err)
		}
		mcfg := mongostore.DefaultConfig()
		if cfg.Mongo.Database != "" {
			mcfg.Database = cfg.Mongo.Database
		}
		mcfg.CollectionPrefix = cfg.Mongo.CollectionPrefix
		return mongostore.New(client, mcfg, logger), client.Disconnect, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
}

// NewDynamoDBClient creates a DynamoDB client from the default AWS credential
// chain, honoring the configured region, profile and endpoint.
func NewDynamoDBClient(ctx context.Context, cfg DynamoDBConfig) (*dynamodb.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// ErrNoBrokers is returned when publishing is requested without brokers.
var ErrNoBrokers = errors.New("trove: stream.brokers is empty")

// NewStreamHandler builds a stream handler publishing lifecycle events to
// Kafka. The returned CloseFunc flushes and closes the Kafka writer.
func NewStreamHandler(cfg *Config, registry *store.Registry, logger *slog.Logger) (*stream.Handler, CloseFunc, error) {
	if len(cfg.Stream.Brokers) == 0 {
		return nil, nil, ErrNoBrokers
	}
	if logger == nil {
		logger = slog.Default()
	}

	writer := stream.NewKafkaWriter(cfg.Stream.Brokers, cfg.Stream.Topic)
	publisher := stream.NewKafkaPublisher(writer, logger)
	handler := stream.NewHandler(publisher, stream.Config{
		TablePrefix: cfg.DynamoDB.TablePrefix,
		Registry:    registry,
	}, logger)

	return handler, func(context.Context) error { return writer.Close() }, nil
}
