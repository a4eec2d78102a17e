package dynamo

import "github.com/jacentio/trove/internal/segment"

// Config holds configuration for the DynamoDB backend.
type Config struct {
	// TablePrefix is prepended to every collection name to form the table name.
	TablePrefix string

	// Segments is the number of parallel scan segments (default: 1, max: 64).
	// Values above 1 split full-table reads across concurrent Scan calls.
	Segments int

	// ConsistentRead requests strongly consistent reads for Scan and Query.
	ConsistentRead bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Segments: 1,
	}
}

// validate fills defaults and clamps out-of-range values.
func (c *Config) validate() {
	c.Segments = segment.Clamp(c.Segments)
}

// TableName returns the table backing the named collection.
func (c Config) TableName(collection string) string {
	return c.TablePrefix + collection
}
