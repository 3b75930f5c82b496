package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Server:   ServerConfig{Port: "8080", PushAddr: ":8082", BaseURL: "http://localhost:8080"},
		Database: DatabaseConfig{DSN: ":memory:"},
		Logger:   LoggerConfig{Level: "info", Format: "json"},
		Security: SecurityConfig{
			TokenSecret: "0123456789abcdef0123456789abcdef",
			FlashKey:    "fedcba9876543210fedcba9876543210",
		},
		Store: StoreConfig{DiscountTieBreak: "first", CancelWindow: time.Hour, PageSize: 12, LowStockThreshold: 5},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, func() error { c := validConfig(); return c.Validate() }())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Server.Port = "http" }},
		{"push addr", func(c *Config) { c.Server.PushAddr = "" }},
		{"dsn", func(c *Config) { c.Database.DSN = "" }},
		{"log level", func(c *Config) { c.Logger.Level = "loud" }},
		{"log format", func(c *Config) { c.Logger.Format = "xml" }},
		{"smtp port", func(c *Config) { c.Mail.Host = "smtp.test"; c.Mail.Port = 0 }},
		{"token secret", func(c *Config) { c.Security.TokenSecret = "short" }},
		{"flash key", func(c *Config) { c.Security.FlashKey = "short" }},
		{"tie break", func(c *Config) { c.Store.DiscountTieBreak = "random" }},
		{"cancel window", func(c *Config) { c.Store.CancelWindow = 0 }},
		{"page size", func(c *Config) { c.Store.PageSize = 500 }},
		{"low stock", func(c *Config) { c.Store.LowStockThreshold = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("BASE_URL", "https://books.example/")
	t.Setenv("DISCOUNT_TIE_BREAK", "LARGEST")
	t.Setenv("CANCEL_WINDOW", "2h")
	t.Setenv("COOKIE_SECURE", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Address())
	assert.Equal(t, "https://books.example", cfg.Server.BaseURL)
	assert.Equal(t, "largest", cfg.Store.DiscountTieBreak)
	assert.Equal(t, 2*time.Hour, cfg.Store.CancelWindow)
	assert.True(t, cfg.Security.CookieSecure)
	assert.False(t, cfg.Mail.Configured())
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LOG_LEVEL", "verbose")
	_, err := Load()
	assert.Error(t, err)
}
