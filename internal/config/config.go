package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          int
	NatsURL       string
	NatsToken     string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	DedupTTL      time.Duration
	S3Endpoint    string
	S3Region      string
	S3Bucket      string
	S3AccessKey   string
	S3SecretKey   string
	LogLevel      string
	APIToken      string

	// Slack review of low-confidence extractions (optional)
	SlackBotToken   string
	SlackChannel    string
	ReviewThreshold float64
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first; variables already set are not overridden.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:          envInt("LEGALINTEL_PORT", 8760),
		NatsURL:       envStr("NATS_URL", "nats://localhost:4222"),
		NatsToken:     envStr("NATS_TOKEN", ""),
		DatabaseURL:   envStr("DATABASE_URL", ""),
		RedisAddr:     envStr("REDIS_ADDR", ""),
		RedisPassword: envStr("REDIS_PASSWORD", ""),
		DedupTTL:      envDuration("DEDUP_TTL", 24*time.Hour),
		S3Endpoint:    envStr("S3_ENDPOINT", ""),
		S3Region:      envStr("S3_REGION", "us-east-1"),
		S3Bucket:      envStr("S3_BUCKET", "legal-documents"),
		S3AccessKey:   envStr("S3_ACCESS_KEY", ""),
		S3SecretKey:   envStr("S3_SECRET_KEY", ""),
		LogLevel:      envStr("LOG_LEVEL", "info"),
		APIToken:      envStr("LEGALINTEL_API_TOKEN", ""),

		SlackBotToken:   envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:    envStr("SLACK_REVIEW_CHANNEL", ""),
		ReviewThreshold: envFloat("REVIEW_THRESHOLD", 0.5),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
