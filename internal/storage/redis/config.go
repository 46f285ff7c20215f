package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// TTL settings for different entity types, refreshed on every write
	GameTTL         time.Duration
	BindingTTL      time.Duration
	GuestProfileTTL time.Duration

	// Lock lease settings
	LockTTL       time.Duration
	LockRetryWait time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:             "redis://localhost:6379",
		PoolSize:        10,
		MinIdleConns:    2,
		GameTTL:         24 * time.Hour,
		BindingTTL:      24 * time.Hour,
		GuestProfileTTL: 24 * time.Hour,
		LockTTL:         10 * time.Second,
		LockRetryWait:   10 * time.Millisecond,
	}
}
