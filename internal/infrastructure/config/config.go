// Package config loads docflow settings from defaults, config.toml, .env and
// DOCFLOW_ prefixed environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Search    SearchConfig    `mapstructure:"search"`
	Numbering NumberingConfig `mapstructure:"numbering"`
	Lifecycle LifecycleConfig `mapstructure:"lifecycle"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr or a file path
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

// DatabaseConfig selects PostgreSQL or SQLite and sizes the pool
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // postgres or sqlite
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	SQLitePath      string `mapstructure:"sqlite_path"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // minutes
	LogLevel        string `mapstructure:"log_level"`
}

// DSN returns a postgres URL with user and password escaped
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

// RedisConfig backs the sweep slot claim and the redis search backend
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type KafkaConfig struct {
	Brokers  []string `mapstructure:"brokers"`
	Topic    string   `mapstructure:"topic"`
	ClientID string   `mapstructure:"client_id"`
}

// SearchConfig selects where status changes are pushed for indexing
type SearchConfig struct {
	Backend   string        `mapstructure:"backend"`    // log, kafka, redis
	StreamKey string        `mapstructure:"stream_key"` // redis backend only
	MaxLen    int64         `mapstructure:"max_len"`    // approximate stream cap
	Timeout   time.Duration `mapstructure:"timeout"`
}

type NumberingConfig struct {
	Backend string `mapstructure:"backend"` // gorm or pgx
}

type LifecycleConfig struct {
	BulkConcurrency int `mapstructure:"bulk_concurrency"`
	MaxBulkSize     int `mapstructure:"max_bulk_size"`
	ConflictRetries int `mapstructure:"conflict_retries"`
}

// SchedulerConfig drives the in-process sweeps. SlotTTL defaults to the
// sweep interval.
type SchedulerConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	JobTimeout    time.Duration `mapstructure:"job_timeout"`
	SlotTTL       time.Duration `mapstructure:"slot_ttl"`
}

type HTTPConfig struct {
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	MaxHeaderBytes   int           `mapstructure:"max_header_bytes"`
	MaxBodySize      int64         `mapstructure:"max_body_size"`
	CORSAllowOrigins []string      `mapstructure:"cors_allow_origins"` // no wildcard fallback
	CORSAllowMethods []string      `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders []string      `mapstructure:"cors_allow_headers"`
	TrustedProxies   []string      `mapstructure:"trusted_proxies"`
}

// TelemetryConfig configures the OTLP exporters and database instrumentation
type TelemetryConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	CollectorEndpoint string        `mapstructure:"collector_endpoint"`
	SamplingRatio     float64       `mapstructure:"sampling_ratio"`
	ServiceName       string        `mapstructure:"service_name"`
	Insecure          bool          `mapstructure:"insecure"` // plaintext gRPC, development only
	MetricsInterval   time.Duration `mapstructure:"metrics_interval"`
	LogExportEnabled  bool          `mapstructure:"log_export_enabled"`
	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"` // bound query values, never in production
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`
}

// defaults registers every key, so AutomaticEnv also reaches keys whose
// default is the zero value.
var defaults = map[string]any{
	"app.name": "docflow",
	"app.env":  "development",
	"app.port": "8080",

	"database.driver":             "postgres",
	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "docflow",
	"database.sslmode":            "disable",
	"database.sqlite_path":        "docflow.db",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,
	"database.log_level":          "warn",

	"redis.enabled":  false,
	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"kafka.brokers":   []string{"localhost:9092"},
	"kafka.topic":     "docflow.document-status",
	"kafka.client_id": "docflow",

	"search.backend":    "log",
	"search.stream_key": "docflow:search-sync",
	"search.max_len":    100000,
	"search.timeout":    2 * time.Second,

	"numbering.backend": "gorm",

	"lifecycle.bulk_concurrency": 8,
	"lifecycle.max_bulk_size":    500,
	"lifecycle.conflict_retries": 3,

	"scheduler.enabled":        false,
	"scheduler.sweep_interval": 15 * time.Minute,
	"scheduler.job_timeout":    5 * time.Minute,
	"scheduler.slot_ttl":       time.Duration(0),

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"http.read_timeout":       15 * time.Second,
	"http.write_timeout":      15 * time.Second,
	"http.idle_timeout":       time.Minute,
	"http.request_timeout":    30 * time.Second,
	"http.max_header_bytes":   1 << 20,
	"http.max_body_size":      10 << 20,
	"http.cors_allow_origins": []string{},
	"http.cors_allow_methods": []string{"GET", "POST", "OPTIONS"},
	"http.cors_allow_headers": []string{"Content-Type", "Authorization", "X-Request-ID"},
	"http.trusted_proxies":    []string{},

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "docflow",
	"telemetry.insecure":                false,
	"telemetry.metrics_interval":        time.Minute,
	"telemetry.log_export_enabled":      false,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_log_full_sql":         false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,
}

// Load reads the configuration. Values from .env never override variables
// already present in the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	for _, dir := range []string{".", "/etc/docflow", "/app"} {
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("DOCFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if cfg.Scheduler.SlotTTL <= 0 {
		cfg.Scheduler.SlotTTL = cfg.Scheduler.SweepInterval
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate reports every inconsistent setting at once
func (c *Config) validate() error {
	var errs []error
	check := func(bad bool, format string, args ...any) {
		if bad {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	db := c.Database
	check(db.Driver != "postgres" && db.Driver != "sqlite",
		"database.driver must be postgres or sqlite, got %q", db.Driver)
	check(db.MaxOpenConns <= 0, "database.max_open_conns must be positive")
	check(db.MaxIdleConns < 0, "database.max_idle_conns cannot be negative")
	check(db.MaxIdleConns > db.MaxOpenConns,
		"database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)", db.MaxIdleConns, db.MaxOpenConns)

	switch c.Search.Backend {
	case "log", "kafka":
	case "redis":
		check(!c.Redis.Enabled, "search.backend=redis requires redis.enabled")
	default:
		check(true, "search.backend must be log, kafka or redis, got %q", c.Search.Backend)
	}

	switch c.Numbering.Backend {
	case "gorm":
	case "pgx":
		check(db.Driver != "postgres", "numbering.backend=pgx requires database.driver=postgres")
	default:
		check(true, "numbering.backend must be gorm or pgx, got %q", c.Numbering.Backend)
	}

	lc := c.Lifecycle
	check(lc.BulkConcurrency < 1, "lifecycle.bulk_concurrency must be positive")
	check(lc.MaxBulkSize < 1, "lifecycle.max_bulk_size must be positive")
	check(lc.ConflictRetries < 0, "lifecycle.conflict_retries cannot be negative")

	check(c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1,
		"telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)

	if c.App.Env == "production" {
		check(db.Driver == "sqlite", "database.driver cannot be sqlite in production")
		check(db.Password == "", "database.password is required in production")
		check(db.SSLMode == "disable", "database.sslmode cannot be 'disable' in production")
		check(slices.Contains(c.HTTP.CORSAllowOrigins, "*"),
			"http.cors_allow_origins cannot be '*' in production")
		check(c.Telemetry.DBLogFullSQL, "telemetry.db_log_full_sql must be false in production")
	}

	return errors.Join(errs...)
}
