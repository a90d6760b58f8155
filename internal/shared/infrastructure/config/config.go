package config

import (
	"os"
	"strconv"
	"time"

	"github.com/saransh1220/notification-service/internal/shared/infrastructure/database"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database database.PostgresConfig
	Redis    database.RedisConfig
	JWT      JWTConfig
	Cache    CacheConfig
	Events   EventsConfig
	Archive  ArchiveConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           string
	AllowedOrigins string
	MigrationsPath string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

// CacheConfig holds key names and timings of the Redis cache layer
type CacheConfig struct {
	KeyPrefix   string
	RecentKey   string
	EntityTTL   time.Duration
	RecentLimit int
	LockTTL     time.Duration
	LockBackoff time.Duration
}

// EventsConfig holds the Redis stream the service publishes to and consumes from
type EventsConfig struct {
	Topic    string
	Group    string
	Consumer string
	MaxLen   int64
}

// ArchiveConfig holds S3/MinIO settings for the event archive
type ArchiveConfig struct {
	Enabled   bool
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Load reads configuration from environment variables
func Load() Config {
	return Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:4200"),
			MigrationsPath: getEnv("MIGRATIONS_PATH", ""),
		},
		Database: database.PostgresConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "notifications"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: database.RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "default-dev-secret"),
			Expiry: parseDuration(getEnv("JWT_EXPIRATION", "24h"), 24*time.Hour),
		},
		Cache: CacheConfig{
			KeyPrefix:   getEnv("CACHE_KEY_PREFIX", "notification:"),
			RecentKey:   getEnv("CACHE_RECENT_KEY", "recent_notifications"),
			EntityTTL:   parseDuration(getEnv("CACHE_ENTITY_TTL", "10m"), 10*time.Minute),
			RecentLimit: parseInt(getEnv("CACHE_RECENT_LIMIT", "10"), 10),
			LockTTL:     parseDuration(getEnv("CACHE_LOCK_TTL", "30s"), 30*time.Second),
			LockBackoff: parseDuration(getEnv("CACHE_LOCK_BACKOFF", "100ms"), 100*time.Millisecond),
		},
		Events: EventsConfig{
			Topic:    getEnv("EVENTS_TOPIC", "notification-events"),
			Group:    getEnv("EVENTS_GROUP", "notification-consumers"),
			Consumer: getEnv("EVENTS_CONSUMER", ""),
			MaxLen:   int64(parseInt(getEnv("EVENTS_MAX_LEN", "10000"), 10000)),
		},
		Archive: ArchiveConfig{
			Enabled:   parseBool(getEnv("ARCHIVE_ENABLED", "false"), false),
			Bucket:    getEnv("ARCHIVE_BUCKET", ""),
			Prefix:    getEnv("ARCHIVE_PREFIX", "events"),
			Region:    getEnv("S3_REGION", "us-east-1"),
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
			UseSSL:    parseBool(getEnv("S3_USE_SSL", "true"), true),
		},
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration string or returns a default value
func parseDuration(value string, defaultValue time.Duration) time.Duration {
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	return defaultValue
}

func parseInt(value string, defaultValue int) int {
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	return defaultValue
}

func parseBool(value string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return defaultValue
}
