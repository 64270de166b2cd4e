package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	ListenAddr  string
	StoreMode   string
	DatabaseURL string

	JWTSecret  string
	SessionTTL time.Duration
	BcryptCost int

	LogLevel string

	CartWebhookURL     string
	CartWebhookTimeout time.Duration
	CartWebhookRetries int
	CartWebhookBackoff time.Duration
	CartWebhookMaxWait time.Duration

	TelegramBotToken string
	TelegramChatID   string
}

func Load() Config {
	return Config{
		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		StoreMode:   getEnv("STORE_MODE", "postgres"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		JWTSecret:  getEnv("JWT_SECRET", "change-this-secret"),
		SessionTTL: getDuration("SESSION_TTL", 12*time.Hour),
		BcryptCost: getInt("BCRYPT_COST", 10),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		CartWebhookURL:     getEnv("CART_WEBHOOK_URL", ""),
		CartWebhookTimeout: getDuration("CART_WEBHOOK_TIMEOUT", 5*time.Second),
		CartWebhookRetries: getInt("CART_WEBHOOK_MAX_RETRIES", 3),
		CartWebhookBackoff: getDuration("CART_WEBHOOK_RETRY_BASE", 500*time.Millisecond),
		CartWebhookMaxWait: getDuration("CART_WEBHOOK_RETRY_MAX", 5*time.Second),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
	}
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
