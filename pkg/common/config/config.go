package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerPort   string
	ServerHost   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers    []string
	KafkaEventTopic string

	// X API
	XAPIBaseURL     string
	XBearerToken    string
	XBotAccessToken string
	XAPITimeout     time.Duration

	// Bot
	CronSecret        string
	AdminSecret       string
	PollInterval      time.Duration
	PollLockTTL       time.Duration
	ReplyTemplatePath string
	SiteURL           string
}

func Load() *Config {
	return &Config{
		ServerPort:   getEnv("SERVER_PORT", "8080"),
		ServerHost:   getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:  getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout: getDuration("WRITE_TIMEOUT", 30*time.Second),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "tracker"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "tracker123"),
		PostgresDB:       getEnv("POSTGRES_DB", "tracker"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:    getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaEventTopic: getEnv("KAFKA_EVENT_TOPIC", "tracker-events"),

		XAPIBaseURL:     getEnv("X_API_BASE_URL", "https://api.x.com/2"),
		XBearerToken:    getEnv("X_BEARER_TOKEN", ""),
		XBotAccessToken: getEnv("X_BOT_ACCESS_TOKEN", ""),
		XAPITimeout:     getDuration("X_API_TIMEOUT", 10*time.Second),

		CronSecret:        getEnv("CRON_SECRET", ""),
		AdminSecret:       getEnv("ADMIN_SECRET", ""),
		PollInterval:      getDuration("POLL_INTERVAL", 0),
		PollLockTTL:       getDuration("POLL_LOCK_TTL", 4*time.Minute),
		ReplyTemplatePath: getEnv("REPLY_TEMPLATE_PATH", ""),
		SiteURL:           getEnv("SITE_URL", "https://aisafetyragequit.vercel.app"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
