package config

import (
	"os"
	"strings"
	"time"
)

type Config struct {
	Env      string
	HTTPAddr string

	// Upstream order service (authoritative state and transitions).
	OrderAPIURL   string
	OrderAPIToken string

	// Change feed transport: ws | rabbitmq | postgres | kafka.
	FeedDriver   string
	WSFeedURL    string
	RabbitMQURL  string
	DatabaseURL  string
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	// Local persistent storage for the tracked-order registry.
	RedisAddr string

	JWTSecret          string
	CorsAllowedOrigins []string

	FallbackPollInterval time.Duration
	ETARefreshInterval   time.Duration
	WSHeartbeatInterval  time.Duration
}

func Load() Config {
	return Config{
		Env:      getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8087"),

		OrderAPIURL:   getEnv("ORDER_API_URL", "http://localhost:8000"),
		OrderAPIToken: getEnv("ORDER_API_TOKEN", ""),

		FeedDriver:   getEnv("FEED_DRIVER", "ws"),
		WSFeedURL:    getEnv("WS_FEED_URL", ""),
		RabbitMQURL:  getEnv("RABBITMQ_URL", ""),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		KafkaBrokers: splitCSV(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "dinesync.order-events"),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", ""),

		RedisAddr: getEnv("REDIS_ADDR", ""),

		JWTSecret:          getEnv("JWT_SECRET", ""),
		CorsAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),

		FallbackPollInterval: getEnvDuration("FALLBACK_POLL_INTERVAL", 30*time.Second),
		ETARefreshInterval:   getEnvDuration("ETA_REFRESH_INTERVAL", 30*time.Second),
		WSHeartbeatInterval:  getEnvDuration("WS_HEARTBEAT_INTERVAL", 30*time.Second),
	}
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func splitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
