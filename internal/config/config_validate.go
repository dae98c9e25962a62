// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package config

import (
	"fmt"
	"strings"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateNATS(); err != nil {
		return err
	}

	if err := c.validateIngest(); err != nil {
		return err
	}

	if err := c.validateAPI(); err != nil {
		return err
	}

	if err := c.validateExport(); err != nil {
		return err
	}

	if err := c.validateTiers(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("VOLTAIC_SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("VOLTAIC_SERVER_READ_TIMEOUT must be positive, got %v", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("VOLTAIC_SERVER_WRITE_TIMEOUT must be positive, got %v", c.Server.WriteTimeout)
	}
	switch c.Server.Environment {
	case "development", "production":
		return nil
	default:
		return fmt.Errorf("VOLTAIC_SERVER_ENVIRONMENT must be development or production, got %q", c.Server.Environment)
	}
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("VOLTAIC_DATABASE_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("VOLTAIC_DATABASE_THREADS must be >= 0, got %d", c.Database.Threads)
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("VOLTAIC_DATABASE_MAX_OPEN_CONNS must be >= 1, got %d", c.Database.MaxOpenConns)
	}
	if c.Database.MaxIdleConns < 0 || c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("VOLTAIC_DATABASE_MAX_IDLE_CONNS must be between 0 and max_open_conns, got %d", c.Database.MaxIdleConns)
	}
	if c.Database.RetentionDays < 0 {
		return fmt.Errorf("VOLTAIC_DATABASE_RETENTION_DAYS must be >= 0, got %d", c.Database.RetentionDays)
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if c.NATS.URL == "" {
		return fmt.Errorf("VOLTAIC_NATS_URL is required when NATS is enabled")
	}
	if !strings.HasPrefix(c.NATS.URL, "nats://") && !strings.HasPrefix(c.NATS.URL, "tls://") {
		return fmt.Errorf("VOLTAIC_NATS_URL must start with nats:// or tls://, got %q", c.NATS.URL)
	}
	if c.NATS.EmbeddedServer && c.NATS.StoreDir == "" {
		return fmt.Errorf("VOLTAIC_NATS_STORE_DIR is required for the embedded server")
	}
	if c.NATS.BatchSize < 1 {
		return fmt.Errorf("VOLTAIC_NATS_BATCH_SIZE must be >= 1, got %d", c.NATS.BatchSize)
	}
	if c.NATS.FlushInterval <= 0 {
		return fmt.Errorf("VOLTAIC_NATS_FLUSH_INTERVAL must be positive, got %v", c.NATS.FlushInterval)
	}
	if c.NATS.SubscribersCount < 1 {
		return fmt.Errorf("VOLTAIC_NATS_SUBSCRIBERS_COUNT must be >= 1, got %d", c.NATS.SubscribersCount)
	}
	if c.NATS.DurableName == "" {
		return fmt.Errorf("VOLTAIC_NATS_DURABLE_NAME is required when NATS is enabled")
	}
	return nil
}

func (c *Config) validateIngest() error {
	if c.Ingest.MaxBatchSize < 1 {
		return fmt.Errorf("VOLTAIC_INGEST_MAX_BATCH_SIZE must be >= 1, got %d", c.Ingest.MaxBatchSize)
	}
	if c.Ingest.DeviceRateLimit <= 0 {
		return fmt.Errorf("VOLTAIC_INGEST_DEVICE_RATE_LIMIT must be positive, got %v", c.Ingest.DeviceRateLimit)
	}
	if c.Ingest.DeviceRateBurst < 1 {
		return fmt.Errorf("VOLTAIC_INGEST_DEVICE_RATE_BURST must be >= 1, got %d", c.Ingest.DeviceRateBurst)
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.DefaultChartPoints < 2 {
		return fmt.Errorf("VOLTAIC_API_DEFAULT_CHART_POINTS must be >= 2, got %d", c.API.DefaultChartPoints)
	}
	if c.API.MaxChartPoints < c.API.DefaultChartPoints {
		return fmt.Errorf("VOLTAIC_API_MAX_CHART_POINTS must be >= default_chart_points, got %d", c.API.MaxChartPoints)
	}
	if c.API.CacheMaxEntries < 0 {
		return fmt.Errorf("VOLTAIC_API_CACHE_MAX_ENTRIES must be >= 0, got %d", c.API.CacheMaxEntries)
	}
	return nil
}

func (c *Config) validateExport() error {
	if c.Export.Workers < 1 {
		return fmt.Errorf("VOLTAIC_EXPORT_WORKERS must be >= 1, got %d", c.Export.Workers)
	}
	if c.Export.MaxRows < 1 {
		return fmt.Errorf("VOLTAIC_EXPORT_MAX_ROWS must be >= 1, got %d", c.Export.MaxRows)
	}
	if c.Export.Path == "" {
		return fmt.Errorf("VOLTAIC_EXPORT_PATH is required")
	}
	if c.Export.OutDir == "" {
		return fmt.Errorf("VOLTAIC_EXPORT_OUT_DIR is required")
	}
	return nil
}

func (c *Config) validateTiers() error {
	switch c.Tiers.Default {
	case "free", "professional":
	default:
		return fmt.Errorf("VOLTAIC_TIERS_DEFAULT must be free or professional, got %q", c.Tiers.Default)
	}

	for key, name := range c.Tiers.Keys {
		switch name {
		case "free", "professional":
		default:
			return fmt.Errorf("tier mapping for API key %q names unknown tier %q", key, name)
		}
	}

	for _, tl := range []struct {
		name   string
		limits TierLimitsConfig
	}{
		{"free", c.Tiers.Free},
		{"professional", c.Tiers.Professional},
	} {
		if tl.limits.MaxChartPoints < 2 {
			return fmt.Errorf("tier %s: max_chart_points must be >= 2, got %d", tl.name, tl.limits.MaxChartPoints)
		}
		if tl.limits.MaxRangeDays < 1 {
			return fmt.Errorf("tier %s: max_range_days must be >= 1, got %d", tl.name, tl.limits.MaxRangeDays)
		}
		if tl.limits.RateLimitPerMin < 1 {
			return fmt.Errorf("tier %s: rate_limit_per_min must be >= 1, got %d", tl.name, tl.limits.RateLimitPerMin)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("VOLTAIC_LOGGING_LEVEL must be one of trace, debug, info, warn, error, fatal; got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("VOLTAIC_LOGGING_FORMAT must be json or console, got %q", c.Logging.Format)
	}
}
