package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string
	Backend     BackendConfig
	Redis       RedisConfig
	Session     SessionConfig
	Database    DatabaseConfig
	Payment     PaymentConfig
	OTP         OTPConfig
	Admin       AdminConfig
	LogLevel    string
}

// BackendConfig is used to call the storefront backend REST API
type BackendConfig struct {
	BaseURL string // BACKEND_API_URL, e.g. https://api.example.com/api
	Timeout time.Duration
}

type RedisConfig struct {
	URL string // REDIS_URL, e.g. redis://localhost:6379/0
}

type SessionConfig struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// DatabaseConfig is optional; an empty Host disables the Postgres event log
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Enabled reports whether a Postgres database is configured
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

type PaymentConfig struct {
	Currency     string
	MerchantName string
}

type OTPConfig struct {
	Cooldown time.Duration
}

type AdminConfig struct {
	KeyHash string // ADMIN_KEY_HASH: bcrypt hash produced by `storefrontctl hash-key`
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("LOG_LEVEL", "info")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read .env file (optional)
	if err := viper.ReadInConfig(); err != nil {
		// It's okay if .env doesn't exist, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	environment := getEnvOrViper("ENVIRONMENT", "development")

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "8080"),
		Environment: environment,
		Backend: BackendConfig{
			BaseURL: getEnvOrViper("BACKEND_API_URL", ""),
			Timeout: time.Duration(getIntOrDefault("BACKEND_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Redis: RedisConfig{
			URL: getEnvOrViper("REDIS_URL", "redis://localhost:6379/0"),
		},
		Session: SessionConfig{
			CookieName: getEnvOrViper("SESSION_COOKIE_NAME", "sf_session"),
			TTL:        time.Duration(getIntOrDefault("SESSION_TTL_HOURS", 72)) * time.Hour,
			Secure:     environment == "production",
		},
		Database: DatabaseConfig{
			Host:     getEnvOrViper("DB_HOST", ""),
			Port:     getEnvOrViper("DB_PORT", "5432"),
			User:     getEnvOrViper("DB_USER", "postgres"),
			Password: getEnvOrViper("DB_PASSWORD", "postgres"),
			DBName:   getEnvOrViper("DB_NAME", "storefront"),
			SSLMode:  getEnvOrViper("DB_SSLMODE", "disable"),
		},
		Payment: PaymentConfig{
			Currency:     getEnvOrViper("RAZORPAY_CURRENCY", "INR"),
			MerchantName: getEnvOrViper("MERCHANT_NAME", "Storefront"),
		},
		OTP: OTPConfig{
			Cooldown: time.Duration(getIntOrDefault("OTP_COOLDOWN_SECONDS", 600)) * time.Second,
		},
		Admin: AdminConfig{
			KeyHash: getEnvOrViper("ADMIN_KEY_HASH", ""),
		},
		LogLevel: getEnvOrViper("LOG_LEVEL", "info"),
	}

	// Validate required fields
	if cfg.Backend.BaseURL == "" {
		return nil, fmt.Errorf("BACKEND_API_URL is required")
	}

	return cfg, nil
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	raw := getEnvOrViper(key, "")
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}
