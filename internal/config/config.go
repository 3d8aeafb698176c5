package config

import (
	"os"
	"strconv"
	"time"

	"skylane/internal/cache"
	"skylane/internal/database"
	"skylane/internal/external"
	"skylane/internal/messaging"
	"skylane/internal/search"
)

// Config holds the full application configuration.
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	// How long an idle check-in session is kept before it is dropped.
	SessionTTL time.Duration

	Database      database.Config
	NATS          messaging.Config
	Valkey        cache.Config
	Elasticsearch search.Config
	Airline       external.AirlineConfig
	Payment       external.PaymentConfig
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8082"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,
		SessionTTL:     time.Duration(getEnvInt("SESSION_TTL_MIN", 45)) * time.Minute,

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "skylane"),
			Password:           getEnv("DB_PASSWORD", "skylane123"),
			DBName:             getEnv("DB_NAME", "skylane"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "skylane"),
			ClientID:  getEnv("NATS_CLIENT_ID", "skylane-api"),
		},

		Valkey: cache.Config{
			Addr:           getEnv("VALKEY_ADDR", "localhost:6379"),
			Password:       getEnv("VALKEY_PASSWORD", ""),
			SearchCacheTTL: time.Duration(getEnvInt("VALKEY_SEARCH_TTL_SEC", 60)) * time.Second,
			SeatHoldTTL:    time.Duration(getEnvInt("VALKEY_SEAT_HOLD_MIN", 15)) * time.Minute,
		},

		Elasticsearch: search.Config{
			Addresses: []string{getEnv("ELASTICSEARCH_URL", "http://localhost:9200")},
			Username:  getEnv("ELASTICSEARCH_USER", ""),
			Password:  getEnv("ELASTICSEARCH_PASSWORD", ""),
			Index:     getEnv("ELASTICSEARCH_FLIGHTS_INDEX", "flights"),
		},

		Airline: external.AirlineConfig{
			BaseURL: getEnv("AIRLINE_API_URL", "http://localhost:8080"),
			Timeout: time.Duration(getEnvInt("AIRLINE_TIMEOUT_SEC", 30)) * time.Second,
		},

		Payment: external.PaymentConfig{
			BaseURL: getEnv("PAYMENT_API_URL", "http://localhost:8080"),
			Timeout: time.Duration(getEnvInt("PAYMENT_TIMEOUT_SEC", 30)) * time.Second,
		},
	}
}

// getEnv returns the environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
