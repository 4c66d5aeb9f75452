package config

import (
	"os"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Gateway  GatewayConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret string
	AccessExpiry time.Duration
	Issuer       string
}

// GatewayConfig holds credentials for the payment gateway (order/verify/webhook
// flow). KeySecret signs the client checkout verification string, WebhookSecret
// signs webhook bodies - the gateway issues them separately.
type GatewayConfig struct {
	BaseURL        string
	KeyID          string
	KeySecret      string
	WebhookSecret  string
	Currency       string
	RequestTimeout time.Duration
	PendingTTL     time.Duration // pending payments older than this are swept to expired
	SweepInterval  time.Duration
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getenv("PORT", "8088"),
			Env:          getenv("APP_ENV", "development"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             getenv("DATABASE_DSN", "pawmart:pawmart@tcp(localhost:3306)/pawmart?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			AccessSecret: getenv("JWT_ACCESS_SECRET", "change-me-in-production"),
			AccessExpiry: 15 * time.Minute,
			Issuer:       "pawmart",
		},
		Gateway: GatewayConfig{
			BaseURL:        getenv("GATEWAY_BASE_URL", "https://api.razorpay.com"),
			KeyID:          os.Getenv("GATEWAY_KEY_ID"),
			KeySecret:      os.Getenv("GATEWAY_KEY_SECRET"),
			WebhookSecret:  os.Getenv("GATEWAY_WEBHOOK_SECRET"),
			Currency:       getenv("GATEWAY_CURRENCY", "INR"),
			RequestTimeout: 30 * time.Second,
			PendingTTL:     30 * time.Minute,
			SweepInterval:  5 * time.Minute,
		},
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
