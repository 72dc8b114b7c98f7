package worker

import (
	"fmt"
	"time"
)

// Config holds the configuration for the background maintenance worker.
type Config struct {
	// Interval is how often the worker runs its registered tasks.
	// Default: 1 hour
	Interval time.Duration

	// TaskTimeout is the maximum time a single task is allowed to run.
	// If a task exceeds this timeout, its context is canceled.
	// Default: 1 minute
	TaskTimeout time.Duration

	// ShutdownTimeout is how long to wait for a running sweep to complete
	// during graceful shutdown. After this timeout, the worker stops even
	// if a task is still running.
	// Default: 30 seconds
	ShutdownTimeout time.Duration

	// MarkerRetention defines how old a daily-usage marker must be before
	// the purge task removes it. Markers only ever need to answer "was the
	// feature used today", so anything older than a day is garbage, but a
	// generous retention keeps them around for support investigations.
	// Default: 30 days
	MarkerRetention time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Interval:        1 * time.Hour,
		TaskTimeout:     1 * time.Minute,
		ShutdownTimeout: 30 * time.Second,
		MarkerRetention: 30 * 24 * time.Hour,
	}
}

// Validate checks if the configuration is valid.
// Returns an error if any values are invalid.
func (c Config) Validate() error {
	if c.Interval < 1*time.Minute {
		return fmt.Errorf("interval must be at least 1 minute, got %v", c.Interval)
	}
	if c.TaskTimeout < 1*time.Second {
		return fmt.Errorf("task timeout must be at least 1 second, got %v", c.TaskTimeout)
	}
	if c.ShutdownTimeout < 1*time.Second {
		return fmt.Errorf("shutdown timeout must be at least 1 second, got %v", c.ShutdownTimeout)
	}
	if c.MarkerRetention < 24*time.Hour {
		return fmt.Errorf("marker retention must be at least 24 hours, got %v", c.MarkerRetention)
	}
	return nil
}
