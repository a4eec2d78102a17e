package store

import (
	"time"

	"github.com/google/uuid"
)

// Config holds configuration for a Repository.
type Config struct {
	// NewID generates identifiers for added entities.
	// Default: random UUID v4 text.
	NewID func() string

	// Now returns the creation timestamp for added entities.
	// Default: current UTC time truncated to milliseconds, the finest
	// precision every backend round-trips.
	Now func() time.Time
}

// DefaultConfig returns the default Repository configuration.
func DefaultConfig() Config {
	return Config{
		NewID: uuid.NewString,
		Now:   now,
	}
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// validate fills in unset values.
func (c *Config) validate() {
	if c.NewID == nil {
		c.NewID = uuid.NewString
	}
	if c.Now == nil {
		c.Now = now
	}
}
