// Package config provides centralized configuration management for the
// inventory service. Everything is read from environment variables with
// defaults, and validated once on startup so misconfiguration fails fast.
package config

import (
	"strconv"
	"time"
)

// Store drivers.
const (
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
	DriverDynamo   = "dynamodb"
)

// Cache drivers.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Database DatabaseConfig
	Bolt     BoltConfig
	Dynamo   DynamoConfig
	S3       S3Config
	Cache    CacheConfig
	Events   EventsConfig
	Lookup   LookupConfig
	Import   ImportConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout bounds every request, including store and blob calls.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`
}

// StoreConfig selects the product store implementation.
type StoreConfig struct {
	// Driver is one of: bolt, postgres, dynamodb (default: bolt)
	Driver string `env:"STORE_DRIVER" default:"bolt"`
}

// DatabaseConfig holds PostgreSQL settings, used when STORE_DRIVER=postgres.
type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL" envAlt:"DB_URL"`
	MaxConns        int           `env:"DB_MAX_CONNS" default:"20"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// BoltConfig holds the embedded store settings, used when STORE_DRIVER=bolt.
type BoltConfig struct {
	Path    string        `env:"BOLT_PATH" default:"inventory.db"`
	Timeout time.Duration `env:"BOLT_OPEN_TIMEOUT" default:"5s"`
}

// DynamoConfig holds DynamoDB settings, used when STORE_DRIVER=dynamodb.
type DynamoConfig struct {
	Table        string `env:"PRODUCTS_TABLE" envAlt:"TABLE_NAME" default:"products"`
	BarcodeTable string `env:"BARCODES_TABLE" default:"product-barcodes"`

	// Endpoint overrides the service endpoint (DynamoDB Local).
	Endpoint string `env:"DYNAMO_ENDPOINT"`
}

// S3Config holds image bucket settings.
type S3Config struct {
	Bucket string `env:"S3_BUCKET" envAlt:"BUCKET_NAME"`
	Region string `env:"AWS_REGION" default:"us-east-1"`

	// Endpoint and UsePathStyle support MinIO and other S3-compatible stores.
	Endpoint     string `env:"S3_ENDPOINT"`
	UsePathStyle bool   `env:"S3_USE_PATH_STYLE" default:"false"`

	// URLExpiry is the lifetime of pre-signed upload and download URLs (default: 60s)
	URLExpiry time.Duration `env:"S3_URL_EXPIRY" default:"60s"`
}

// CacheConfig holds signed-URL cache settings.
type CacheConfig struct {
	// Driver is one of: memory, redis (default: memory)
	Driver string `env:"URL_CACHE_DRIVER" default:"memory"`

	// TTL must stay below S3_URL_EXPIRY so cached URLs are never stale.
	TTL           time.Duration `env:"URL_CACHE_TTL" default:"50s"`
	SweepInterval time.Duration `env:"URL_CACHE_SWEEP_INTERVAL" default:"1m"`

	RedisAddr     string `env:"REDIS_ADDR" default:"localhost:6379"`
	RedisUsername string `env:"REDIS_USERNAME"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" default:"0"`
	RedisPrefix   string `env:"REDIS_KEY_PREFIX" default:"inventory:imgurl:"`
}

// EventsConfig holds product change event settings. Events are disabled
// when no brokers are configured.
type EventsConfig struct {
	Brokers      []string      `env:"KAFKA_BROKERS"`
	Topic        string        `env:"KAFKA_PRODUCT_TOPIC" default:"inventory.products"`
	WriteTimeout time.Duration `env:"KAFKA_WRITE_TIMEOUT" default:"5s"`

	// BatchTimeout bounds how long a write waits for a batch to fill.
	// Every product write publishes synchronously, so keep it short.
	BatchTimeout time.Duration `env:"KAFKA_BATCH_TIMEOUT" default:"10ms"`
}

// LookupConfig holds settings for the barcode and image proxies.
type LookupConfig struct {
	BarcodeBaseURL string `env:"BARCODE_LOOKUP_URL" default:"https://api.barcodelookup.com/v3/products"`

	// BarcodeAPIKey is used when the caller does not send apiKey.
	BarcodeAPIKey  string        `env:"BARCODE_LOOKUP_API_KEY"`
	BarcodeTimeout time.Duration `env:"BARCODE_LOOKUP_TIMEOUT" default:"10s"`

	ImageTimeout  time.Duration `env:"IMAGE_PROXY_TIMEOUT" default:"12s"`
	ImageMaxBytes int64         `env:"IMAGE_PROXY_MAX_BYTES" default:"5242880"`
}

// ImportConfig holds bulk import settings.
type ImportConfig struct {
	// MaxFileSize is the maximum accepted upload in bytes (default: 10MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"10485760"`

	// MaxConcurrent is the number of imports allowed to run at once (default: 2)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"2"`

	// MaxWaitTime is how long an import waits for a slot (default: 10s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"10s"`

	// Timeout bounds a single import run (default: 5m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"5m"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"300"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey gates /api behind the X-Api-Key header
	RequireAPIKey bool     `env:"REQUIRE_API_KEY" default:"false"`
	APIKeys       []string `env:"API_KEYS"`

	// AllowedOrigins for CORS (default: *)
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`

	// File enables a rotated log file in addition to stdout
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" default:"50"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" default:"5"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" default:"14"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
