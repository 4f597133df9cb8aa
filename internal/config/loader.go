package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "rainmaker.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "RAINMAKER_PORT")
	setString(&cfg.Server.CORSOrigin, "RAINMAKER_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "RAINMAKER_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "RAINMAKER_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "RAINMAKER_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "RAINMAKER_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "RAINMAKER_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Scribe.URL, "RAINMAKER_SCRIBE_URL")
	setString(&cfg.Scribe.APIKey, "RAINMAKER_SCRIBE_API_KEY")
	setDuration(&cfg.Scribe.Timeout, "RAINMAKER_SCRIBE_TIMEOUT")
	setString(&cfg.CRM.URL, "RAINMAKER_CRM_URL")
	setString(&cfg.CRM.APIKey, "RAINMAKER_CRM_API_KEY")
	setDuration(&cfg.CRM.Timeout, "RAINMAKER_CRM_TIMEOUT")
	setString(&cfg.Logging.Level, "RAINMAKER_LOG_LEVEL")
	setString(&cfg.Logging.Service, "RAINMAKER_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "RAINMAKER_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "RAINMAKER_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "RAINMAKER_BREAKER_TIMEOUT")
	setInt(&cfg.Pipeline.MaxParallelAgents, "RAINMAKER_PIPELINE_MAX_PARALLEL")
	setInt(&cfg.Signals.ScoreThreshold, "RAINMAKER_SIGNAL_THRESHOLD")
	setDuration(&cfg.Signals.Expiry, "RAINMAKER_SIGNAL_EXPIRY")
	setDuration(&cfg.Signals.SweepInterval, "RAINMAKER_SIGNAL_SWEEP_INTERVAL")
	setInt64(&cfg.Cache.MaxSizeMB, "RAINMAKER_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.TTL, "RAINMAKER_CACHE_TTL")
	setString(&cfg.Otel.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Pipeline.MaxParallelAgents < 1 {
		return errors.New("pipeline.max_parallel_agents must be >= 1")
	}
	if cfg.Signals.ScoreThreshold < 0 {
		return errors.New("signals.score_threshold must be >= 0")
	}
	if cfg.Signals.Expiry <= 0 {
		return errors.New("signals.expiry must be positive")
	}
	if cfg.Signals.SweepInterval <= 0 {
		return errors.New("signals.sweep_interval must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
