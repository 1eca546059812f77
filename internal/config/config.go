package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

type Config struct {
	Env      string // "dev", "prod"
	Port     string
	LogLevel string

	StoreDriver   string
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string

	// Redis is optional; an empty address disables caching and queues.
	RedisAddr string
	RedisDB   int

	TokenExpire        time.Duration // 0 => tokens never expire
	AuthPrivateKeyPath string
	AuthPublicKeyPath  string

	CORSOrigins []string
	PublicURL   string

	ResetTokenTTL     time.Duration
	SuggestionTTL     time.Duration
	ActivityQueueName string
	MailQueueName     string

	HistorianBatchSize int
	HistorianFlush     time.Duration
}

// Load reads the configuration from the environment, falling back to defaults.
func Load() (*Config, error) {
	tokenExpire, err := parseTokenExpire(getEnv("TOKEN_EXPIRE_TIME", "2160h"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Env:      getEnv("APP_ENV", "dev"),
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreDriver:   strings.ToLower(getEnv("STORE_DRIVER", DriverPostgres)),
		DatabaseURL:   getEnv("DATABASE_URL", postgresURLFromParts()),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "circle"),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:   getEnvInt("REDIS_DB", 0),

		TokenExpire:        tokenExpire,
		AuthPrivateKeyPath: getEnv("AUTH_PRIVATE_KEY_PATH", ""),
		AuthPublicKeyPath:  getEnv("AUTH_PUBLIC_KEY_PATH", ""),

		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
		PublicURL:   strings.TrimSuffix(getEnv("PUBLIC_URL", "http://localhost:8080"), "/"),

		ResetTokenTTL:     getEnvDuration("RESET_TOKEN_TTL", 10*time.Minute),
		SuggestionTTL:     getEnvDuration("SUGGESTION_TTL", time.Minute),
		ActivityQueueName: getEnv("ACTIVITY_QUEUE_NAME", "circle_activity"),
		MailQueueName:     getEnv("MAIL_QUEUE_NAME", "circle_mail"),

		HistorianBatchSize: getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		HistorianFlush:     time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
	}

	switch cfg.StoreDriver {
	case DriverPostgres, DriverMongo, DriverMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	if cfg.Env == "prod" && cfg.StoreDriver == DriverMemory {
		return nil, fmt.Errorf("STORE_DRIVER=memory is not allowed in production")
	}
	if cfg.Env == "prod" && !explicitOrigins(cfg.CORSOrigins) {
		return nil, fmt.Errorf("CORS_ORIGINS must list explicit origins in production")
	}
	if (cfg.AuthPrivateKeyPath == "") != (cfg.AuthPublicKeyPath == "") {
		return nil, fmt.Errorf("AUTH_PRIVATE_KEY_PATH and AUTH_PUBLIC_KEY_PATH must be set together")
	}

	return cfg, nil
}

// explicitOrigins reports whether origins is non-empty and has no wildcard entry.
func explicitOrigins(origins []string) bool {
	if len(origins) == 0 {
		return false
	}
	for _, o := range origins {
		if strings.Contains(o, "*") {
			return false
		}
	}
	return true
}

// postgresURLFromParts builds a connection string from the discrete PG_* variables.
func postgresURLFromParts() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		os.Getenv("POSTGRES_USER"),
		os.Getenv("POSTGRES_PASSWORD"),
		getEnv("PG_HOST", "localhost"),
		getEnv("PG_PORT", "5432"),
		getEnv("PG_DATABASE", "circle"),
	)
}

// parseTokenExpire accepts a Go duration, or "never"/"0" for non-expiring tokens.
func parseTokenExpire(s string) (time.Duration, error) {
	if s == "never" || s == "0" || s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse TOKEN_EXPIRE_TIME: %w", err)
	}
	return d, nil
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
