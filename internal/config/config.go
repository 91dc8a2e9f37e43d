package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	Env         string
	LogLevel    string
	PublicURL   string // absolute base for page image URLs and og:url
	DatabaseURL string
	SQLitePath  string // used when DatabaseURL is empty
	RedisURL    string

	StorageDir string
	StaticDir  string

	// Sync
	HeartbeatInterval time.Duration

	// Upload pipeline
	MaxUploadBytes int64
	RenderWidth    int

	// Rate limiting
	RateLimitWhitelist []string // IPs or CIDRs exempt from rate limiting
	AutoBlockEnabled   bool     // Enable auto-blocking after repeated violations
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		SQLitePath:         getEnv("SQLITE_PATH", "./data/slidr.db"),
		RedisURL:           os.Getenv("REDIS_URL"),
		StorageDir:         getEnv("STORAGE_DIR", "./data/files"),
		StaticDir:          getEnv("STATIC_DIR", "web/static"),
		HeartbeatInterval:  getDuration("HEARTBEAT_INTERVAL", 5*time.Second),
		MaxUploadBytes:     int64(getInt("MAX_UPLOAD_MB", 50)) << 20,
		RenderWidth:        getInt("RENDER_WIDTH", 1920),
		AutoBlockEnabled:   getBool("AUTO_BLOCK_ENABLED", false),
		RateLimitWhitelist: getList("RATE_LIMIT_WHITELIST"),
	}
	cfg.PublicURL = strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:"+cfg.Port), "/")

	// Sync across instances needs Redis, and SQLite is per-machine.
	if cfg.Env == "production" {
		if cfg.DatabaseURL == "" {
			panic("DATABASE_URL is required in production")
		}
		if cfg.RedisURL == "" {
			panic("REDIS_URL is required in production")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

// getList splits a comma-separated variable, dropping empty entries.
func getList(key string) []string {
	var out []string
	for _, entry := range strings.Split(os.Getenv(key), ",") {
		if entry = strings.TrimSpace(entry); entry != "" {
			out = append(out, entry)
		}
	}
	return out
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
