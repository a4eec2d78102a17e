package mongostore

// Config holds configuration for the MongoDB backend.
type Config struct {
	// Database is the database holding the collections (default: "trove").
	Database string

	// CollectionPrefix is prepended to every collection name.
	CollectionPrefix string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Database: "trove",
	}
}

// validate fills defaults.
func (c *Config) validate() {
	if c.Database == "" {
		c.Database = "trove"
	}
}
