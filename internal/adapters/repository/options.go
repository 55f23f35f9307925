package repository

import "time"

// RedisConfig configures the Redis-backed store.
type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// ScanCount is the COUNT hint used while enumerating keys.
	ScanCount int64
	// DeleteBatch caps the number of keys removed per DEL call.
	DeleteBatch int
}

// HydrateDefaults fills zero values with production defaults.
func (c *RedisConfig) HydrateDefaults() {
	if c.Address == "" {
		c.Address = "localhost:6379"
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 3 * time.Second
	}
	if c.ScanCount <= 0 {
		c.ScanCount = 500
	}
	if c.DeleteBatch <= 0 {
		c.DeleteBatch = 500
	}
}
