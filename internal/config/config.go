package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries every tunable the process reads from the environment.
type Config struct {
	Profile  string
	HTTPAddr string

	// Persistence. Driver is sqlite or postgres; DSN is driver-specific.
	DatabaseDriver string
	DatabaseDSN    string

	// Recently-banned cache. Empty RedisAddr disables the redis store.
	RedisAddr   string
	BanCacheTTL time.Duration

	// Default severity applied when the issuing admin supplies none.
	DefaultSeverity string

	OTELMetricsEnabled        bool
	OTELTracesEnabled         bool
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELServiceName           string
	OTELEnvironment           string
	OTELMetricsExportInterval time.Duration
}

// Load reads the configuration from the environment, applying defaults and
// validating the result. Every error is wrapped so it can be classified for
// the config validation metric.
func Load(ctx context.Context) (*Config, error) {
	cfg := &Config{
		Profile:                  envString("APP_PROFILE", "dev"),
		HTTPAddr:                 envString("HTTP_ADDR", ":8080"),
		DatabaseDriver:           envString("DATABASE_DRIVER", "sqlite"),
		DatabaseDSN:              envString("DATABASE_DSN", "file:server_bans.db?cache=shared"),
		RedisAddr:                envString("REDIS_ADDR", ""),
		DefaultSeverity:          envString("BAN_DEFAULT_SEVERITY", "high"),
		OTELExporterOTLPEndpoint: envString("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELServiceName:          envString("OTEL_SERVICE_NAME", "server-bans"),
		OTELEnvironment:          envString("OTEL_ENVIRONMENT", "dev"),
	}

	var err error
	if cfg.BanCacheTTL, err = envDuration("BAN_CACHE_TTL", 5*time.Minute); err != nil {
		recordConfigValidationEvent(ctx, cfg.Profile, "failure", classifyConfigLoadError(err))
		return nil, err
	}
	if cfg.OTELMetricsEnabled, err = envBool("OTEL_METRICS_ENABLED", false); err != nil {
		recordConfigValidationEvent(ctx, cfg.Profile, "failure", classifyConfigLoadError(err))
		return nil, err
	}
	if cfg.OTELTracesEnabled, err = envBool("OTEL_TRACES_ENABLED", false); err != nil {
		recordConfigValidationEvent(ctx, cfg.Profile, "failure", classifyConfigLoadError(err))
		return nil, err
	}
	if cfg.OTELExporterOTLPInsecure, err = envBool("OTEL_EXPORTER_OTLP_INSECURE", true); err != nil {
		recordConfigValidationEvent(ctx, cfg.Profile, "failure", classifyConfigLoadError(err))
		return nil, err
	}
	if cfg.OTELMetricsExportInterval, err = envDuration("OTEL_METRICS_EXPORT_INTERVAL", 15*time.Second); err != nil {
		recordConfigValidationEvent(ctx, cfg.Profile, "failure", classifyConfigLoadError(err))
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		recordConfigValidationEvent(ctx, cfg.Profile, "failure", classifyConfigLoadError(err))
		return nil, err
	}
	recordConfigValidationEvent(ctx, cfg.Profile, "success", "none")
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("validate config: unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.DatabaseDSN == "" {
		return fmt.Errorf("validate config: DATABASE_DSN is required")
	}
	if c.BanCacheTTL <= 0 {
		return fmt.Errorf("validate config: BAN_CACHE_TTL must be positive")
	}
	return nil
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
