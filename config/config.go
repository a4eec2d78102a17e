// Package config loads trove settings from a file and the environment and
// builds the configured backend.
//
// Every key can be overridden by an environment variable named TROVE_ plus
// the upper-cased key path with dots replaced by underscores, e.g.
// TROVE_DYNAMODB_TABLE_PREFIX.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backend names accepted in Config.Backend.
const (
	BackendMemory   = "memory"
	BackendDynamoDB = "dynamodb"
	BackendMongo    = "mongo"
)

// ErrUnknownBackend is returned for an unsupported backend name.
var ErrUnknownBackend = errors.New("trove: unknown backend")

// Config is the root configuration.
type Config struct {
	Backend  string         `mapstructure:"backend"` // memory | dynamodb | mongo
	DynamoDB DynamoDBConfig `mapstructure:"dynamodb"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Stream   StreamConfig   `mapstructure:"stream"`
	Log      LogConfig      `mapstructure:"log"`
}

// DynamoDBConfig configures the DynamoDB backend.
type DynamoDBConfig struct {
	Region         string `mapstructure:"region"`
	Profile        string `mapstructure:"profile"`
	Endpoint       string `mapstructure:"endpoint"` // e.g. http://localhost:8000 for DynamoDB Local
	TablePrefix    string `mapstructure:"table_prefix"`
	Segments       int    `mapstructure:"segments"`
	ConsistentRead bool   `mapstructure:"consistent_read"`
}

// MongoConfig configures the MongoDB backend.
type MongoConfig struct {
	URI              string        `mapstructure:"uri"`
	Database         string        `mapstructure:"database"`
	CollectionPrefix string        `mapstructure:"collection_prefix"`
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout"`
}

// StreamConfig configures lifecycle event publishing.
type StreamConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug | info | warn | error
	Format string `mapstructure:"format"` // json | text
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendMemory)

	v.SetDefault("dynamodb.region", "")
	v.SetDefault("dynamodb.profile", "")
	v.SetDefault("dynamodb.endpoint", "")
	v.SetDefault("dynamodb.table_prefix", "")
	v.SetDefault("dynamodb.segments", 1)
	v.SetDefault("dynamodb.consistent_read", false)

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "trove")
	v.SetDefault("mongo.collection_prefix", "")
	v.SetDefault("mongo.connect_timeout", "10s")

	v.SetDefault("stream.brokers", []string{})
	v.SetDefault("stream.topic", "entity-lifecycle")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads the configuration file at path (optional) and applies
// environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("TROVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the selected backend and its required settings.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendDynamoDB:
		return nil
	case BackendMongo:
		if c.Mongo.URI == "" {
			return errors.New("trove: mongo.uri is required")
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
}
