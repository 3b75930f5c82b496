package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Mail     MailConfig
	Security SecurityConfig
	Store    StoreConfig
}

type ServerConfig struct {
	Port     string
	PushAddr string // websocket listener, e.g. ":8082"
	BaseURL  string // used to build links in emails
	MediaDir string
}

type DatabaseConfig struct {
	DSN string
}

type LoggerConfig struct {
	File   string
	Level  string
	Format string // "json" or "console"
}

// MailConfig is optional; an empty Host means outbound email is not configured.
type MailConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	SenderEmail string
	SenderName  string
}

func (m MailConfig) Configured() bool { return m.Host != "" && m.SenderEmail != "" }

type SecurityConfig struct {
	TokenSecret  string
	FlashKey     string
	CookieSecure bool
}

type StoreConfig struct {
	DiscountTieBreak  string
	CancelWindow      time.Duration
	PageSize          int
	LowStockThreshold int
}

// Load reads an optional .env file, then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read .env: %w", err)
	}

	cfg := Config{
		Server: ServerConfig{
			Port:     getEnv("PORT", "8080"),
			PushAddr: getEnv("PUSH_ADDR", ":8082"),
			BaseURL:  strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),
			MediaDir: getEnv("MEDIA_DIR", "./web/media"),
		},
		Database: DatabaseConfig{
			DSN: getEnv("DB_DSN", "booknook.db"), // sqlite file in project root
		},
		Logger: LoggerConfig{
			File:   getEnv("LOG_FILE", "./booknook.log"),
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
		Mail: MailConfig{
			Host:        getEnv("SMTP_HOST", ""),
			Port:        getEnvAsInt("SMTP_PORT", 587),
			Username:    getEnv("SMTP_USERNAME", ""),
			Password:    getEnv("SMTP_PASSWORD", ""),
			SenderEmail: getEnv("SMTP_SENDER_EMAIL", ""),
			SenderName:  getEnv("SMTP_SENDER_NAME", "BookNook"),
		},
		Security: SecurityConfig{
			TokenSecret:  getEnv("TOKEN_SECRET", "dev-token-secret-change-me-0123456789"),
			FlashKey:     getEnv("FLASH_KEY", "dev-flash-key-change-me-0123456789ab"),
			CookieSecure: getEnvAsBool("COOKIE_SECURE", false),
		},
		Store: StoreConfig{
			DiscountTieBreak:  strings.ToLower(getEnv("DISCOUNT_TIE_BREAK", "first")),
			CancelWindow:      getEnvAsDuration("CANCEL_WINDOW", 24*time.Hour),
			PageSize:          getEnvAsInt("PAGE_SIZE", 12),
			LowStockThreshold: getEnvAsInt("LOW_STOCK_THRESHOLD", 5),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if p, err := strconv.Atoi(c.Server.Port); err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid server port: %s", c.Server.Port)
	}
	if c.Server.PushAddr == "" {
		return fmt.Errorf("push listener address is required")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}
	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.Mail.Host != "" && (c.Mail.Port < 1 || c.Mail.Port > 65535) {
		return fmt.Errorf("invalid smtp port: %d", c.Mail.Port)
	}

	if len(c.Security.TokenSecret) < 32 {
		return fmt.Errorf("token secret must be at least 32 bytes")
	}
	if n := len(c.Security.FlashKey); n < 32 {
		return fmt.Errorf("flash key must be at least 32 bytes, got %d", n)
	}

	switch c.Store.DiscountTieBreak {
	case "first", "latest", "largest":
	default:
		return fmt.Errorf("invalid discount tie-break: %s (must be first, latest, or largest)", c.Store.DiscountTieBreak)
	}
	if c.Store.CancelWindow <= 0 {
		return fmt.Errorf("cancel window must be positive")
	}
	if c.Store.PageSize < 1 || c.Store.PageSize > 100 {
		return fmt.Errorf("invalid page size: %d", c.Store.PageSize)
	}
	if c.Store.LowStockThreshold < 1 {
		return fmt.Errorf("low stock threshold must be at least 1")
	}
	return nil
}

// Address is the web listener address.
func (s ServerConfig) Address() string { return ":" + s.Port }

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
