// Package config provides configuration management for ScienceSwipe.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/helixir/scienceswipe/internal/domain"
)

// SSL mode constants for database connections.
const (
	// SSLModeDisable disables SSL (use only for local development).
	SSLModeDisable = "disable"
	// SSLModeRequire requires SSL but does not verify certificates.
	SSLModeRequire = "require"
	// SSLModeVerifyCA verifies the server certificate against a CA.
	SSLModeVerifyCA = "verify-ca"
	// SSLModeVerifyFull verifies the server certificate and hostname.
	SSLModeVerifyFull = "verify-full"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "SCISWIPE"

// Config holds all configuration for the ScienceSwipe server and client.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Database contains PostgreSQL connection settings for the row store.
	Database DatabaseConfig `mapstructure:"database"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Feed contains data access settings.
	Feed FeedConfig `mapstructure:"feed"`
	// Redis contains feed cache settings.
	Redis RedisConfig `mapstructure:"redis"`
	// Kafka contains event publisher settings.
	Kafka KafkaConfig `mapstructure:"kafka"`
	// Images contains image generation settings.
	Images ImagesConfig `mapstructure:"images"`
	// Client contains terminal client settings.
	Client ClientConfig `mapstructure:"client"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	// Image generation is slow, so this is longer than a typical API timeout.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password (loaded from SCISWIPE_DATABASE_PASSWORD only).
	Password string `mapstructure:"-"`
	// Name is the database name.
	Name string `mapstructure:"name"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	SSLMode string `mapstructure:"ssl_mode"`
	// MaxConns is the maximum number of connections in the pool.
	MaxConns int32 `mapstructure:"max_conns"`
	// MinConns is the minimum number of connections to keep open.
	MinConns int32 `mapstructure:"min_conns"`
	// MaxConnLifetime is the maximum lifetime of a connection before it's closed.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum time a connection can be idle before it's closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// HealthCheckPeriod is the interval between health checks of idle connections.
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationPath overrides the schema compiled into the binary with a
	// directory of migration files. Empty uses the embedded schema.
	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun enables automatic migration on startup (default: false).
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr, file path).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
	// Namespace prefixes every metric name.
	Namespace string `mapstructure:"namespace"`
}

// FeedConfig holds data access settings.
type FeedConfig struct {
	// DefaultSource is used when neither the request nor the preferences name a source.
	DefaultSource string `mapstructure:"default_source"`
	// QueryTimeout bounds each row store read.
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
	// MaxPapers caps the number of rows read per fetch.
	MaxPapers int `mapstructure:"max_papers"`
}

// RedisConfig holds feed cache settings.
type RedisConfig struct {
	// Enabled turns on caching of normalized feeds.
	Enabled bool `mapstructure:"enabled"`
	// Addr is the Redis address (host:port).
	Addr string `mapstructure:"addr"`
	// Password is the Redis password (loaded from SCISWIPE_REDIS_PASSWORD only).
	Password string `mapstructure:"-"`
	// DB is the Redis logical database.
	DB int `mapstructure:"db"`
	// TTL is how long a cached feed stays valid.
	TTL time.Duration `mapstructure:"ttl"`
	// KeyPrefix namespaces cache keys.
	KeyPrefix string `mapstructure:"key_prefix"`
}

// KafkaConfig holds event publisher settings.
type KafkaConfig struct {
	// Enabled controls whether Kafka publishing is active.
	Enabled bool `mapstructure:"enabled"`
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`
	// Topic is the Kafka topic reaction and image events are published to.
	Topic string `mapstructure:"topic"`
	// BatchSize is the maximum number of messages to batch before sending.
	BatchSize int `mapstructure:"batch_size"`
	// BatchTimeout is the maximum time to wait for a batch to fill before sending.
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// ImagesConfig holds image generation settings.
type ImagesConfig struct {
	// Model is the image model name.
	Model string `mapstructure:"model"`
	// DefaultWidth is the width used by the basic generation endpoint.
	DefaultWidth int `mapstructure:"default_width"`
	// DefaultHeight is the height used by the basic generation endpoint.
	DefaultHeight int `mapstructure:"default_height"`
	// Timeout bounds a single provider call.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum provider requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// RateBurst is the provider rate limiter burst size.
	RateBurst int `mapstructure:"rate_burst"`
	// OpenAI contains OpenAI-specific settings.
	OpenAI OpenAIConfig `mapstructure:"openai"`
	// Storage contains settings for re-hosting generated images.
	Storage StorageConfig `mapstructure:"storage"`
}

// OpenAIConfig holds OpenAI-specific settings.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key (loaded from SCISWIPE_IMAGES_OPENAI_API_KEY env var).
	APIKey string `mapstructure:"-"`
	// BaseURL is the OpenAI API base URL (for custom endpoints).
	BaseURL string `mapstructure:"base_url"`
}

// StorageConfig holds Google Cloud Storage settings.
type StorageConfig struct {
	// Bucket is the GCS bucket generated images are copied to. Empty keeps provider URLs.
	Bucket string `mapstructure:"bucket"`
	// Prefix is the object name prefix.
	Prefix string `mapstructure:"prefix"`
	// PublicBaseURL is the URL prefix under which bucket objects are served.
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// ClientConfig holds terminal client settings.
type ClientConfig struct {
	// APIBaseURL is the base URL of the ScienceSwipe server (image generation endpoints).
	APIBaseURL string `mapstructure:"api_base_url"`
	// RequestTimeout bounds calls to the server.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// PrefsPath overrides the preferences file location.
	PrefsPath string `mapstructure:"prefs_path"`
	// AutoGenerateImages requests an illustration when a card without one is shown.
	AutoGenerateImages bool `mapstructure:"auto_generate_images"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/scienceswipe")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
// These fields are tagged with mapstructure:"-" to prevent loading from config files.
func loadSecrets(cfg *Config) {
	cfg.Database.Password = os.Getenv(EnvPrefix + "_DATABASE_PASSWORD")
	cfg.Redis.Password = os.Getenv(EnvPrefix + "_REDIS_PASSWORD")
	cfg.Images.OpenAI.APIKey = os.Getenv(EnvPrefix + "_IMAGES_OPENAI_API_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "2m")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "scienceswipe")
	v.SetDefault("database.name", "scienceswipe")
	// Use SCISWIPE_DATABASE_SSL_MODE=disable for local development.
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_path", "")
	v.SetDefault("database.migration_auto_run", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "scienceswipe")

	// Feed defaults
	v.SetDefault("feed.default_source", string(domain.SourcePapers))
	v.SetDefault("feed.query_timeout", "10s")
	v.SetDefault("feed.max_papers", 500)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "5m")
	v.SetDefault("redis.key_prefix", "scienceswipe")

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "events.scienceswipe")
	v.SetDefault("kafka.batch_size", 100)
	v.SetDefault("kafka.batch_timeout", "10ms")

	// Image generation defaults
	v.SetDefault("images.model", "dall-e-3")
	v.SetDefault("images.default_width", 1024)
	v.SetDefault("images.default_height", 1024)
	v.SetDefault("images.timeout", "90s")
	v.SetDefault("images.rate_limit", 1.0)
	v.SetDefault("images.rate_burst", 2)
	// API keys are loaded exclusively from environment variables (see loadSecrets).
	v.SetDefault("images.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("images.storage.bucket", "")
	v.SetDefault("images.storage.prefix", "paper-images")
	v.SetDefault("images.storage.public_base_url", "https://storage.googleapis.com")

	// Client defaults
	v.SetDefault("client.api_base_url", "http://localhost:8080")
	v.SetDefault("client.request_timeout", "2m")
	v.SetDefault("client.prefs_path", "")
	v.SetDefault("client.auto_generate_images", false)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if _, err := domain.ParseSource(c.Feed.DefaultSource); err != nil {
		return fmt.Errorf("feed default_source: %w", err)
	}
	if c.Feed.MaxPapers <= 0 {
		return fmt.Errorf("feed max_papers must be positive")
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required when redis is enabled")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("kafka brokers and topic are required when kafka is enabled")
	}

	if c.Images.DefaultWidth <= 0 || c.Images.DefaultHeight <= 0 {
		return fmt.Errorf("image default size must be positive")
	}
	if c.Images.RateLimit <= 0 {
		return fmt.Errorf("image rate_limit must be positive")
	}

	if _, err := url.Parse(c.Client.APIBaseURL); err != nil {
		return fmt.Errorf("invalid client api_base_url: %w", err)
	}

	return nil
}
