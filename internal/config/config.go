// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

// Package config loads and validates application configuration from
// layered sources: built-in defaults, an optional YAML file, and
// environment variables (highest priority).
package config

import "time"

// Config is the root configuration for the Voltaic server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	NATS     NATSConfig     `koanf:"nats"`
	Ingest   IngestConfig   `koanf:"ingest"`
	API      APIConfig      `koanf:"api"`
	Export   ExportConfig   `koanf:"export"`
	Logging  LoggingConfig  `koanf:"logging"`
	Tiers    TiersConfig    `koanf:"tiers"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path            string        `koanf:"path"`
	MaxMemory       string        `koanf:"max_memory"`
	Threads         int           `koanf:"threads"` // 0 = runtime.NumCPU()
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	RetentionDays   int           `koanf:"retention_days"` // 0 = keep forever
}

// NATSConfig holds settings for the embedded NATS server and the
// JetStream telemetry pipeline.
type NATSConfig struct {
	Enabled             bool          `koanf:"enabled"`
	URL                 string        `koanf:"url"`
	EmbeddedServer      bool          `koanf:"embedded_server"`
	StoreDir            string        `koanf:"store_dir"`
	MaxMemory           int64         `koanf:"max_memory"`
	MaxStore            int64         `koanf:"max_store"`
	StreamRetentionDays int           `koanf:"stream_retention_days"`
	BatchSize           int           `koanf:"batch_size"`
	FlushInterval       time.Duration `koanf:"flush_interval"`
	SubscribersCount    int           `koanf:"subscribers_count"`
	DurableName         string        `koanf:"durable_name"`
	QueueGroup          string        `koanf:"queue_group"`
}

// IngestConfig holds telemetry intake settings.
type IngestConfig struct {
	MaxBatchSize       int           `koanf:"max_batch_size"`
	DeviceRateLimit    float64       `koanf:"device_rate_limit"` // readings/sec per device
	DeviceRateBurst    int           `koanf:"device_rate_burst"`
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
	BreakerInterval    time.Duration `koanf:"breaker_interval"`
}

// APIConfig holds query API settings.
type APIConfig struct {
	DefaultChartPoints int           `koanf:"default_chart_points"`
	MaxChartPoints     int           `koanf:"max_chart_points"`
	MaxQueryRows       int           `koanf:"max_query_rows"` // 0 = storage default
	CORSOrigins        []string      `koanf:"cors_origins"`
	CacheTTL           time.Duration `koanf:"cache_ttl"`
	CacheMaxEntries    int           `koanf:"cache_max_entries"`
}

// ExportConfig holds CSV export job settings.
type ExportConfig struct {
	Path    string        `koanf:"path"` // Badger job store directory
	OutDir  string        `koanf:"out_dir"`
	Workers int           `koanf:"workers"`
	MaxRows int           `koanf:"max_rows"`
	JobTTL  time.Duration `koanf:"job_ttl"`
}

// LoggingConfig holds zerolog settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// TierLimitsConfig defines the capabilities of one subscription tier.
type TierLimitsConfig struct {
	MaxChartPoints  int  `koanf:"max_chart_points"`
	MaxRangeDays    int  `koanf:"max_range_days"`
	RateLimitPerMin int  `koanf:"rate_limit_per_min"`
	ExportEnabled   bool `koanf:"export_enabled"`
	LiveEnabled     bool `koanf:"live_enabled"`
}

// TiersConfig maps API keys to tier names and defines the per-tier
// limits. Unknown or missing keys resolve to Default unless RequireKey
// is set, in which case the API rejects them with 401.
type TiersConfig struct {
	Default      string            `koanf:"default"`
	RequireKey   bool              `koanf:"require_key"`
	Keys         map[string]string `koanf:"keys"`
	Free         TierLimitsConfig  `koanf:"free"`
	Professional TierLimitsConfig  `koanf:"professional"`
}

// KnownKey reports whether the key is a configured API key.
func (tc *TiersConfig) KnownKey(key string) bool {
	_, ok := tc.Keys[key]
	return key != "" && ok
}

// TierForKey resolves an API key to a tier name. An empty or unknown
// key falls back to the default tier.
func (tc *TiersConfig) TierForKey(key string) string {
	if key != "" {
		if name, ok := tc.Keys[key]; ok {
			return name
		}
	}
	return tc.Default
}

// Limits returns the limits for a named tier, falling back to the free
// tier for unknown names.
func (tc *TiersConfig) Limits(name string) TierLimitsConfig {
	switch name {
	case "professional":
		return tc.Professional
	default:
		return tc.Free
	}
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
