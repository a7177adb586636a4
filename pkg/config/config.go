// Package config loads the search engine configuration from an optional YAML
// file with SP_* environment-variable overrides. Command-line flags are
// applied on top by the driver.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Workers  WorkersConfig  `yaml:"workers"`
	Crawler  CrawlerConfig  `yaml:"crawler"`
	Search   SearchConfig   `yaml:"search"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP front-end settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// Origins allowed to call the JSON API; empty allows any.
	AllowOrigins []string `yaml:"allowOrigins"`
}

// WorkersConfig sizes the work queue when threading is enabled.
type WorkersConfig struct {
	Threads int `yaml:"threads"`
}

// CrawlerConfig controls page fetching.
type CrawlerConfig struct {
	FetchTimeout  time.Duration `yaml:"fetchTimeout"`
	MaxRedirects  int           `yaml:"maxRedirects"`
	UserAgent     string        `yaml:"userAgent"`
	MaxBodyBytes  int64         `yaml:"maxBodyBytes"`
	RetryAttempts int           `yaml:"retryAttempts"`
	// Consecutive failures before a host is skipped for HostCooldown.
	HostFailureThreshold int           `yaml:"hostFailureThreshold"`
	HostCooldown         time.Duration `yaml:"hostCooldown"`
}

// SearchConfig controls the HTTP search endpoints.
type SearchConfig struct {
	DefaultLimit int `yaml:"defaultLimit"`
	MaxResults   int `yaml:"maxResults"`
	HistorySize  int `yaml:"historySize"`
	// Requests per RateWindow per client IP on /api/; 0 disables limiting.
	RateLimit  int           `yaml:"rateLimit"`
	RateWindow time.Duration `yaml:"rateWindow"`
}

// PostgresConfig holds PostgreSQL connection parameters for search history.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds broker settings. An empty broker list disables analytics.
type KafkaConfig struct {
	Brokers     []string      `yaml:"brokers"`
	SearchTopic string        `yaml:"searchTopic"`
	BatchSize   int           `yaml:"batchSize"`
	FlushEvery  time.Duration `yaml:"flushEvery"`
}

// RedisConfig holds the response cache connection. An empty Addr disables it.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig enables logging of the stage span tree at exit.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig controls the standalone Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Default returns the built-in configuration without reading the environment.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Workers: WorkersConfig{
			Threads: 5,
		},
		Crawler: CrawlerConfig{
			FetchTimeout:         10 * time.Second,
			MaxRedirects:         3,
			UserAgent:            "search-engine-crawler/1.0",
			MaxBodyBytes:         10 << 20,
			RetryAttempts:        2,
			HostFailureThreshold: 5,
			HostCooldown:         30 * time.Second,
		},
		Search: SearchConfig{
			DefaultLimit: 10,
			MaxResults:   100,
			HistorySize:  50,
			RateLimit:    600,
			RateWindow:   time.Minute,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "searchengine",
			User:            "searchengine",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			SearchTopic: "search-events",
			BatchSize:   100,
			FlushEvery:  5 * time.Second,
		},
		Redis: RedisConfig{
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Port: 9090,
		},
	}
}

// applyEnvOverrides reads SP_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	setInt("SP_SERVER_PORT", &cfg.Server.Port)
	setInt("SP_WORKERS_THREADS", &cfg.Workers.Threads)
	setString("SP_CRAWLER_USER_AGENT", &cfg.Crawler.UserAgent)
	setDuration("SP_CRAWLER_FETCH_TIMEOUT", &cfg.Crawler.FetchTimeout)
	setInt("SP_CRAWLER_RETRY_ATTEMPTS", &cfg.Crawler.RetryAttempts)
	setInt("SP_SEARCH_HISTORY_SIZE", &cfg.Search.HistorySize)
	setInt("SP_SEARCH_RATE_LIMIT", &cfg.Search.RateLimit)
	setBool("SP_POSTGRES_ENABLED", &cfg.Postgres.Enabled)
	setString("SP_POSTGRES_HOST", &cfg.Postgres.Host)
	setInt("SP_POSTGRES_PORT", &cfg.Postgres.Port)
	setString("SP_POSTGRES_DATABASE", &cfg.Postgres.Database)
	setString("SP_POSTGRES_USER", &cfg.Postgres.User)
	setString("SP_POSTGRES_PASSWORD", &cfg.Postgres.Password)
	setString("SP_POSTGRES_SSLMODE", &cfg.Postgres.SSLMode)
	if v := os.Getenv("SP_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	setString("SP_KAFKA_SEARCH_TOPIC", &cfg.Kafka.SearchTopic)
	setString("SP_REDIS_ADDR", &cfg.Redis.Addr)
	setString("SP_REDIS_PASSWORD", &cfg.Redis.Password)
	setDuration("SP_REDIS_CACHE_TTL", &cfg.Redis.CacheTTL)
	setString("SP_LOGGING_LEVEL", &cfg.Logging.Level)
	setString("SP_LOGGING_FORMAT", &cfg.Logging.Format)
	setBool("SP_TRACING_ENABLED", &cfg.Tracing.Enabled)
	setBool("SP_METRICS_ENABLED", &cfg.Metrics.Enabled)
	setInt("SP_METRICS_PORT", &cfg.Metrics.Port)
}

func setString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
