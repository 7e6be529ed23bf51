package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreDynamo   = "dynamo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	minJWTSecretLen = 32
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	LogLevel       slog.Level
	AllowedOrigins []string // CORS allowed origins
	RequestTimeout time.Duration

	StoreDriver  string // "dynamo" | "postgres" | "memory"
	StoreTimeout time.Duration

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	DatabaseURL       string
	DBMaxConns        int
	DBMaxConnLifetime time.Duration
	DBMaxConnIdleTime time.Duration
	DBConnectTimeout  time.Duration
	DBRunMigrations   bool

	JWTSecret    string
	JWTAccessTTL time.Duration
	JWTOTPTTL    time.Duration

	BcryptCost int

	OTPTTL      time.Duration
	OTPEchoCode bool // include the issued code in send-otp responses; testing only

	SMSEnabled bool
	SNSRegion  string
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Accounts      string
	AccountKeys   string
	OTPChallenges string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		LogLevel:       getEnvLevel("LOG_LEVEL", slog.LevelInfo),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 15*time.Second),

		StoreDriver:  getEnv("STORE_DRIVER", StoreDynamo),
		StoreTimeout: getEnvDuration("STORE_TIMEOUT", 5*time.Second),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Accounts:      getEnv("DYNAMO_TABLE_ACCOUNTS", "accounts"),
			AccountKeys:   getEnv("DYNAMO_TABLE_ACCOUNT_KEYS", "account_keys"),
			OTPChallenges: getEnv("DYNAMO_TABLE_OTP_CHALLENGES", "otp_challenges"),
		},

		DatabaseURL:       getEnv("DATABASE_URL", ""),
		DBMaxConns:        getEnvInt("DB_MAX_CONNS", 10),
		DBMaxConnLifetime: getEnvDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
		DBMaxConnIdleTime: getEnvDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Second),
		DBConnectTimeout:  getEnvDuration("DB_CONNECT_TIMEOUT", 30*time.Second),
		DBRunMigrations:   getEnvBool("DB_RUN_MIGRATIONS", true),

		JWTSecret:    getEnv("JWT_SECRET", ""),
		JWTAccessTTL: getEnvDuration("JWT_ACCESS_TTL", time.Hour),
		JWTOTPTTL:    getEnvDuration("JWT_OTP_TTL", 7*24*time.Hour),

		BcryptCost: getEnvInt("BCRYPT_COST", 10),

		OTPTTL:      getEnvDuration("OTP_TTL", 5*time.Minute),
		OTPEchoCode: getEnvBool("OTP_ECHO_CODE", false),

		SMSEnabled: getEnvBool("SMS_ENABLED", false),
		SNSRegion:  getEnv("SNS_REGION", "us-east-1"),
	}
}

// Validate reports every configuration problem that would make the service unusable.
func (c *Config) Validate() error {
	var errs []error
	if len(c.JWTSecret) < minJWTSecretLen {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", minJWTSecretLen))
	}
	switch c.StoreDriver {
	case StoreDynamo, StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORE_DRIVER=postgres"))
		}
		if c.DBMaxConns < 1 {
			errs = append(errs, errors.New("DB_MAX_CONNS must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	if c.StoreTimeout <= 0 {
		errs = append(errs, errors.New("STORE_TIMEOUT must be positive"))
	}
	if c.JWTAccessTTL <= 0 || c.JWTOTPTTL <= 0 {
		errs = append(errs, errors.New("JWT_ACCESS_TTL and JWT_OTP_TTL must be positive"))
	}
	if c.OTPTTL <= 0 {
		errs = append(errs, errors.New("OTP_TTL must be positive"))
	}
	if c.IsProduction() && (c.BcryptCost < 10 || c.BcryptCost > 14) {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 10 and 14 in production, got %d", c.BcryptCost))
	}
	if c.IsProduction() && c.OTPEchoCode {
		errs = append(errs, errors.New("OTP_ECHO_CODE must be disabled in production"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvLevel(key string, fallback slog.Level) slog.Level {
	if v := os.Getenv(key); v != "" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(v)); err == nil {
			return l
		}
	}
	return fallback
}
