package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	OutagePolicyFailOpen   = "fail_open"
	OutagePolicyFailClosed = "fail_closed"
)

type Config struct {
	Env      string `env:"APP_ENV, default=development"`
	HTTPPort string `env:"HTTP_PORT, default=8080"`

	DatabaseURL       string        `env:"DATABASE_URL"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS, default=25"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS, default=10"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME, default=30m"`
	DBLogLevel        string        `env:"DB_LOG_LEVEL, default=warn"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS, default=http://localhost:8080"`
	HTTPBodyLimitBytes int64    `env:"HTTP_BODY_LIMIT_BYTES, default=1048576"`

	APIRateLimitPerMin    int    `env:"API_RATE_LIMIT_PER_MIN, default=120"`
	RateLimitRedisEnabled bool   `env:"RATE_LIMIT_REDIS_ENABLED, default=false"`
	RedisAddr             string `env:"REDIS_ADDR, default=localhost:6379"`
	RedisPassword         string `env:"REDIS_PASSWORD"`
	RedisDB               int    `env:"REDIS_DB, default=0"`
	RateLimitRedisPrefix  string `env:"RATE_LIMIT_REDIS_PREFIX, default=uc:rl"`
	RateLimitOutagePolicy string `env:"RATE_LIMIT_OUTAGE_POLICY, default=fail_open"`

	UserQueryCacheEnabled      bool          `env:"USER_QUERY_CACHE_ENABLED, default=false"`
	UserQueryCacheTTL          time.Duration `env:"USER_QUERY_CACHE_TTL, default=30s"`
	UserQueryCacheRedisEnabled bool          `env:"USER_QUERY_CACHE_REDIS_ENABLED, default=false"`
	UserQueryCacheRedisPrefix  string        `env:"USER_QUERY_CACHE_REDIS_PREFIX, default=uc:query"`

	StorageEnabled bool   `env:"STORAGE_ENABLED, default=false"`
	MinIOEndpoint  string `env:"MINIO_ENDPOINT, default=localhost:9000"`
	MinIOAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinIOSecretKey string `env:"MINIO_SECRET_KEY"`
	MinIOBucket    string `env:"MINIO_BUCKET, default=avatars"`
	MinIOUseSSL    bool   `env:"MINIO_USE_SSL, default=false"`

	SeedDemoUsers     bool `env:"SEED_DEMO_USERS, default=false"`
	PrometheusEnabled bool `env:"PROMETHEUS_ENABLED, default=true"`

	ReadinessProbeTimeout        time.Duration `env:"READINESS_PROBE_TIMEOUT, default=1s"`
	ServerStartGracePeriod       time.Duration `env:"SERVER_START_GRACE_PERIOD, default=2s"`
	ShutdownTimeout              time.Duration `env:"SHUTDOWN_TIMEOUT, default=20s"`
	ShutdownHTTPDrainTimeout     time.Duration `env:"SHUTDOWN_HTTP_DRAIN_TIMEOUT, default=10s"`
	ShutdownObservabilityTimeout time.Duration `env:"SHUTDOWN_OBSERVABILITY_TIMEOUT, default=8s"`

	OTELServiceName           string        `env:"OTEL_SERVICE_NAME, default=user-center"`
	OTELEnvironment           string        `env:"OTEL_ENVIRONMENT"`
	OTELExporterOTLPEndpoint  string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT, default=localhost:4317"`
	OTELExporterOTLPInsecure  bool          `env:"OTEL_EXPORTER_OTLP_INSECURE, default=true"`
	OTELMetricsExportInterval time.Duration `env:"OTEL_METRICS_EXPORT_INTERVAL, default=10s"`
	OTELTraceSamplingRatio    float64       `env:"OTEL_TRACE_SAMPLING_RATIO, default=1.0"`
	OTELMetricsEnabled        bool          `env:"OTEL_METRICS_ENABLED, default=false"`
	OTELTracingEnabled        bool          `env:"OTEL_TRACING_ENABLED, default=false"`
	OTELLogsEnabled           bool          `env:"OTEL_LOGS_ENABLED, default=false"`
	OTELLogLevel              string        `env:"OTEL_LOG_LEVEL, default=info"`
}

func Load() (*Config, error) {
	return LoadWithLookuper(context.Background(), envconfig.OsLookuper())
}

// LoadWithLookuper reads configuration from l instead of the process
// environment.
func LoadWithLookuper(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	if c.OTELEnvironment == "" {
		c.OTELEnvironment = c.Env
	}
	c.DBLogLevel = strings.ToLower(strings.TrimSpace(c.DBLogLevel))
	c.OTELLogLevel = strings.ToLower(strings.TrimSpace(c.OTELLogLevel))
	c.RateLimitOutagePolicy = strings.ToLower(strings.TrimSpace(c.RateLimitOutagePolicy))
	c.CORSAllowedOrigins = trimList(c.CORSAllowedOrigins)
}

func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	} else if c.DatabaseDialect() == "" {
		errs = append(errs, errors.New("DATABASE_URL must start with postgres://, postgresql://, sqlite:// or file:"))
	}
	if c.DBMaxOpenConns <= 0 {
		errs = append(errs, errors.New("DB_MAX_OPEN_CONNS must be > 0"))
	}
	if c.DBMaxIdleConns < 0 || c.DBMaxIdleConns > c.DBMaxOpenConns {
		errs = append(errs, errors.New("DB_MAX_IDLE_CONNS must be between 0 and DB_MAX_OPEN_CONNS"))
	}
	if c.DBConnMaxLifetime < 0 {
		errs = append(errs, errors.New("DB_CONN_MAX_LIFETIME must be >= 0"))
	}
	if !isValidDBLogLevel(c.DBLogLevel) {
		errs = append(errs, errors.New("DB_LOG_LEVEL must be one of silent, error, warn, info"))
	}
	if c.HTTPBodyLimitBytes <= 0 {
		errs = append(errs, errors.New("HTTP_BODY_LIMIT_BYTES must be > 0"))
	}
	if c.APIRateLimitPerMin <= 0 {
		errs = append(errs, errors.New("API_RATE_LIMIT_PER_MIN must be > 0"))
	}
	if c.RateLimitRedisEnabled && strings.TrimSpace(c.RedisAddr) == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required when RATE_LIMIT_REDIS_ENABLED=true"))
	}
	if c.UserQueryCacheEnabled && c.UserQueryCacheTTL <= 0 {
		errs = append(errs, errors.New("USER_QUERY_CACHE_TTL must be > 0 when USER_QUERY_CACHE_ENABLED=true"))
	}
	if c.UserQueryCacheRedisEnabled && strings.TrimSpace(c.RedisAddr) == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required when USER_QUERY_CACHE_REDIS_ENABLED=true"))
	}
	if c.RateLimitOutagePolicy != OutagePolicyFailOpen && c.RateLimitOutagePolicy != OutagePolicyFailClosed {
		errs = append(errs, errors.New("RATE_LIMIT_OUTAGE_POLICY must be fail_open or fail_closed"))
	}
	if c.StorageEnabled {
		if c.MinIOEndpoint == "" || c.MinIOAccessKey == "" || c.MinIOSecretKey == "" || c.MinIOBucket == "" {
			errs = append(errs, errors.New("MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY and MINIO_BUCKET are required when STORAGE_ENABLED=true"))
		}
	}
	if c.ReadinessProbeTimeout <= 0 {
		errs = append(errs, errors.New("READINESS_PROBE_TIMEOUT must be > 0"))
	}
	if c.ServerStartGracePeriod < 0 {
		errs = append(errs, errors.New("SERVER_START_GRACE_PERIOD must be >= 0"))
	}
	if c.ShutdownTimeout <= 0 || c.ShutdownHTTPDrainTimeout <= 0 || c.ShutdownObservabilityTimeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_* timeouts must be > 0"))
	} else if c.ShutdownHTTPDrainTimeout+c.ShutdownObservabilityTimeout > c.ShutdownTimeout {
		errs = append(errs, errors.New("SHUTDOWN_HTTP_DRAIN_TIMEOUT + SHUTDOWN_OBSERVABILITY_TIMEOUT must not exceed SHUTDOWN_TIMEOUT"))
	}
	if (c.OTELMetricsEnabled || c.OTELTracingEnabled || c.OTELLogsEnabled) && c.OTELExporterOTLPEndpoint == "" {
		errs = append(errs, errors.New("OTEL_EXPORTER_OTLP_ENDPOINT is required when OTel is enabled"))
	}
	if c.OTELTraceSamplingRatio < 0 || c.OTELTraceSamplingRatio > 1 {
		errs = append(errs, errors.New("OTEL_TRACE_SAMPLING_RATIO must be between 0 and 1"))
	}
	if c.OTELMetricsExportInterval <= 0 {
		errs = append(errs, errors.New("OTEL_METRICS_EXPORT_INTERVAL must be > 0"))
	}
	if !isValidLogLevel(c.OTELLogLevel) {
		errs = append(errs, errors.New("OTEL_LOG_LEVEL must be one of debug, info, warn, error"))
	}

	if c.IsProduction() {
		for _, origin := range c.CORSAllowedOrigins {
			if origin == "*" {
				errs = append(errs, errors.New("CORS_ALLOWED_ORIGINS must not contain * in production"))
				break
			}
		}
		if c.DatabaseDialect() == DialectSQLite {
			errs = append(errs, errors.New("DATABASE_URL must point at postgres in production"))
		}
		if c.StorageEnabled && !c.MinIOUseSSL {
			errs = append(errs, errors.New("MINIO_USE_SSL must be true in production"))
		}
	}
	return errors.Join(errs...)
}

// DatabaseDialect reports which GORM driver DATABASE_URL targets, or "" when
// the scheme is not recognised.
func (c *Config) DatabaseDialect() string {
	dsn := strings.ToLower(strings.TrimSpace(c.DatabaseURL))
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return DialectPostgres
	case strings.HasPrefix(dsn, "sqlite://"), strings.HasPrefix(dsn, "file:"):
		return DialectSQLite
	default:
		return ""
	}
}

// RedisRequired reports whether any feature needs the shared Redis client.
func (c *Config) RedisRequired() bool {
	return c.RateLimitRedisEnabled || (c.UserQueryCacheEnabled && c.UserQueryCacheRedisEnabled)
}

func (c *Config) IsProduction() bool {
	switch c.Env {
	case "production", "prod":
		return true
	default:
		return false
	}
}

func isValidDBLogLevel(v string) bool {
	switch v {
	case "silent", "error", "warn", "info":
		return true
	default:
		return false
	}
}

func isValidLogLevel(v string) bool {
	switch strings.ToLower(v) {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func trimList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		trim := strings.TrimSpace(p)
		if trim != "" {
			out = append(out, trim)
		}
	}
	return out
}
