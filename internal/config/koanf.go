// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/voltaic/config.yaml",
	"/etc/voltaic/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "VOLTAIC_CONFIG_PATH"

// envPrefix is stripped from environment variables before mapping them
// to config paths.
const envPrefix = "VOLTAIC_"

// defaultConfig returns a Config with all defaults applied. These are
// loaded first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8480,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			Environment:     "development",
		},
		Database: DatabaseConfig{
			Path:            "/data/voltaic.duckdb",
			MaxMemory:       "2GB",
			Threads:         0, // 0 = runtime.NumCPU()
			MaxOpenConns:    8,
			MaxIdleConns:    4,
			ConnMaxLifetime: time.Hour,
			RetentionDays:   0,
		},
		NATS: NATSConfig{
			Enabled:             true,
			URL:                 "nats://127.0.0.1:4222",
			EmbeddedServer:      true,
			StoreDir:            "/data/nats/jetstream",
			MaxMemory:           1 << 30, // 1GB
			MaxStore:            8 << 30, // 8GB
			StreamRetentionDays: 7,
			BatchSize:           500,
			FlushInterval:       2 * time.Second,
			SubscribersCount:    2,
			DurableName:         "reading-processor",
			QueueGroup:          "processors",
		},
		Ingest: IngestConfig{
			MaxBatchSize:       1000,
			DeviceRateLimit:    50,
			DeviceRateBurst:    200,
			BreakerMaxFailures: 5,
			BreakerTimeout:     30 * time.Second,
			BreakerInterval:    time.Minute,
		},
		API: APIConfig{
			DefaultChartPoints: 500,
			MaxChartPoints:     5000,
			MaxQueryRows:       2_000_000,
			CORSOrigins:        []string{"*"},
			CacheTTL:           30 * time.Second,
			CacheMaxEntries:    1024,
		},
		Export: ExportConfig{
			Path:    "/data/export/jobs",
			OutDir:  "/data/export/files",
			Workers: 2,
			MaxRows: 1_000_000,
			JobTTL:  24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Tiers: TiersConfig{
			Default: "free",
			Keys:    map[string]string{},
			Free: TierLimitsConfig{
				MaxChartPoints:  500,
				MaxRangeDays:    31,
				RateLimitPerMin: 60,
				ExportEnabled:   false,
				LiveEnabled:     false,
			},
			Professional: TierLimitsConfig{
				MaxChartPoints:  5000,
				MaxRangeDays:    730,
				RateLimitPerMin: 600,
				ExportEnabled:   true,
				LiveEnabled:     true,
			},
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered
// sources: defaults, optional YAML file, then environment variables.
// Precedence: ENV > file > defaults.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// VOLTAIC_SERVER_PORT -> server.port, VOLTAIC_TIERS_DEFAULT -> tiers.default
	envProvider := env.Provider(envPrefix, ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file, honoring the env override
// first and then the default paths.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// configSections are the known top-level config sections. The env
// transform splits the variable name after the section prefix so that
// VOLTAIC_SERVER_READ_TIMEOUT maps to server.read_timeout rather than
// server.read.timeout.
var configSections = []string{
	"server",
	"database",
	"nats",
	"ingest",
	"api",
	"export",
	"logging",
	"tiers",
}

// envTransformFunc maps environment variable names to koanf paths.
//
// Examples:
//   - VOLTAIC_SERVER_PORT -> server.port
//   - VOLTAIC_DATABASE_MAX_OPEN_CONNS -> database.max_open_conns
//   - VOLTAIC_NATS_STREAM_RETENTION_DAYS -> nats.stream_retention_days
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))

	for _, section := range configSections {
		prefix := section + "_"
		if strings.HasPrefix(key, prefix) {
			return section + "." + strings.TrimPrefix(key, prefix)
		}
	}

	// Unknown section: ignore the variable rather than polluting the map.
	return ""
}

// sliceConfigPaths lists config paths parsed as comma-separated slices
// when they arrive as strings from the environment.
var sliceConfigPaths = []string{
	"api.cors_origins",
}

// processSliceFields converts comma-separated string values to slices
// for known slice fields. Env vars come in as strings but the config
// struct expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML or defaults).
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}
