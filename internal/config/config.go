// Package config defines engine configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers file and environment on top.
// - TTL overrides are data-driven so new cache categories need no code.
package config

import "context"

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// MetricsAddr configures the metrics/health listen address, e.g. ":9090".
	MetricsAddr string `koanf:"metrics_addr"`

	// CachePath enables durable cache snapshots when non-empty.
	CachePath string `koanf:"cache_path"`

	// PersistFloorMS is the minimum TTL eligible for durable storage.
	PersistFloorMS int `koanf:"persist_floor_ms"`

	// QueryLimit bounds events fetched per resolution.
	QueryLimit int `koanf:"query_limit"`

	// TeamScanLimit bounds the captain detector's broad team scan.
	TeamScanLimit int `koanf:"team_scan_limit"`

	// ScanTimeoutMS caps the broad scan duration.
	ScanTimeoutMS int `koanf:"scan_timeout_ms"`

	// RetryBackoffMS is the delay before the single query retry.
	RetryBackoffMS int `koanf:"retry_backoff_ms"`

	// AuthorChunkSize bounds authors per batched activity query.
	AuthorChunkSize int `koanf:"author_chunk_size"`

	// IngestQueueCapacity bounds the intake buffer for relay events.
	IngestQueueCapacity int `koanf:"ingest_queue_capacity"`

	// IngestWorkers sets the ingest worker count; zero means CPU count.
	IngestWorkers int `koanf:"ingest_workers"`

	// CacheTTLMS overrides category TTL bands, keyed by category name.
	// A zero value marks a category as never cached.
	CacheTTLMS map[string]int64 `koanf:"cache_ttl_ms"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use and currently
// unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		MetricsAddr:         ":9090",
		CachePath:           "",
		PersistFloorMS:      60_000,
		QueryLimit:          500,
		TeamScanLimit:       1000,
		ScanTimeoutMS:       10_000,
		RetryBackoffMS:      250,
		AuthorChunkSize:     50,
		IngestQueueCapacity: 10_000,
		IngestWorkers:       0,
		CacheTTLMS:          map[string]int64{},
	}
}
