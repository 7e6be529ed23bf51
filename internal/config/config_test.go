package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("BCRYPT_COST", "")
	t.Setenv("OTP_TTL", "")
	t.Setenv("JWT_OTP_TTL", "")

	cfg := Load()
	assert.Equal(t, StoreDynamo, cfg.StoreDriver)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, 5*time.Minute, cfg.OTPTTL)
	assert.Equal(t, 168*time.Hour, cfg.JWTOTPTTL)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("STORE_DRIVER", StorePostgres)
	t.Setenv("DB_MAX_CONNS", "25")
	t.Setenv("JWT_ACCESS_TTL", "30m")
	t.Setenv("OTP_ECHO_CODE", "true")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg := Load()
	assert.Equal(t, StorePostgres, cfg.StoreDriver)
	assert.Equal(t, 25, cfg.DBMaxConns)
	assert.Equal(t, 30*time.Minute, cfg.JWTAccessTTL)
	assert.True(t, cfg.OTPEchoCode)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoad_UnparseableFallsBack(t *testing.T) {
	t.Setenv("DB_MAX_CONNS", "many")
	t.Setenv("STORE_TIMEOUT", "soon")

	cfg := Load()
	assert.Equal(t, 10, cfg.DBMaxConns)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
}

func validConfig() *Config {
	return &Config{
		AppEnv:       "development",
		StoreDriver:  StoreMemory,
		StoreTimeout: time.Second,
		JWTSecret:    validSecret,
		JWTAccessTTL: time.Hour,
		JWTOTPTTL:    time.Hour,
		BcryptCost:   10,
		OTPTTL:       5 * time.Minute,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"short secret", func(c *Config) { c.JWTSecret = "short" }, "JWT_SECRET"},
		{"unknown driver", func(c *Config) { c.StoreDriver = "redis" }, "unknown STORE_DRIVER"},
		{"postgres without url", func(c *Config) { c.StoreDriver = StorePostgres; c.DBMaxConns = 5 }, "DATABASE_URL"},
		{"zero otp ttl", func(c *Config) { c.OTPTTL = 0 }, "OTP_TTL"},
		{"cheap bcrypt in production", func(c *Config) { c.AppEnv = "production"; c.BcryptCost = 4 }, "BCRYPT_COST"},
		{"echo in production", func(c *Config) { c.AppEnv = "production"; c.OTPEchoCode = true }, "OTP_ECHO_CODE"},
		{"cheap bcrypt outside production", func(c *Config) { c.BcryptCost = 4 }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	c := validConfig()
	c.JWTSecret = ""
	c.StoreTimeout = 0
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "STORE_TIMEOUT")
}
