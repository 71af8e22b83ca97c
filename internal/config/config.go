// internal/config/config.go
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Storage     StorageConfig
	Ledger      LedgerConfig
	Access      AccessConfig
	Locator     LocatorConfig
}

type ServerConfig struct {
	Port          string
	Host          string
	PublicBaseURL string
	ReadTimeout   int
	WriteTimeout  int
	IdleTimeout   int
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

type JWTConfig struct {
	SecretKey      string
	AccessTokenTTL int // in hours
}

// StorageConfig selects exactly one object-store backend per process.
type StorageConfig struct {
	Backend         string // "local" or "s3"
	LocalPath       string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	S3Endpoint      string
}

type LedgerConfig struct {
	Network        string
	RPCURL         string
	TimeoutSeconds int
}

type AccessConfig struct {
	TokenSecret      string
	TokenTTLSeconds  int
	IntentTTLSeconds int
}

type LocatorConfig struct {
	KeyHex string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:          getEnv("SERVER_PORT", "8080"),
			Host:          getEnv("SERVER_HOST", "localhost"),
			PublicBaseURL: getEnv("SERVER_PUBLIC_BASE_URL", "http://localhost:8080"),
			ReadTimeout:   getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout:  getEnvAsInt("SERVER_WRITE_TIMEOUT", 30),
			IdleTimeout:   getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "unlockd"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "silent"),
		},
		JWT: JWTConfig{
			SecretKey:      getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			AccessTokenTTL: getEnvAsInt("JWT_ACCESS_TTL", 24),
		},
		Storage: StorageConfig{
			Backend:         getEnv("STORAGE_BACKEND", "local"),
			LocalPath:       getEnv("STORAGE_LOCAL_PATH", "./data/objects"),
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3Bucket:        getEnv("AWS_S3_BUCKET", "unlockd-content"),
			S3Endpoint:      getEnv("AWS_S3_ENDPOINT", ""),
		},
		Ledger: LedgerConfig{
			Network:        getEnv("LEDGER_NETWORK", "devnet"),
			RPCURL:         getEnv("LEDGER_RPC_URL", "http://localhost:8899"),
			TimeoutSeconds: getEnvAsInt("LEDGER_RPC_TIMEOUT", 15),
		},
		Access: AccessConfig{
			TokenSecret:      getEnv("ACCESS_TOKEN_SECRET", "access-token-secret-change-in-production"),
			TokenTTLSeconds:  getEnvAsInt("ACCESS_TOKEN_TTL", 300),
			IntentTTLSeconds: getEnvAsInt("PAYMENT_INTENT_TTL", 600),
		},
		Locator: LocatorConfig{
			KeyHex: getEnv("LOCATOR_KEY", strings.Repeat("00", 32)),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.Environment == "production" {
		if c.JWT.SecretKey == "your-secret-key-change-in-production" {
			return fmt.Errorf("JWT secret key must be changed in production")
		}
		if c.Access.TokenSecret == "access-token-secret-change-in-production" {
			return fmt.Errorf("access token secret must be changed in production")
		}
		if c.Locator.KeyHex == strings.Repeat("00", 32) {
			return fmt.Errorf("locator key must be changed in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database password is required in production")
		}
	}

	if c.Storage.Backend != "local" && c.Storage.Backend != "s3" {
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if _, err := c.LocatorKey(); err != nil {
		return err
	}

	return nil
}

// LocatorKey decodes the shared locator key. It must be 32 bytes of hex.
func (c *Config) LocatorKey() ([]byte, error) {
	key, err := hex.DecodeString(c.Locator.KeyHex)
	if err != nil {
		return nil, fmt.Errorf("LOCATOR_KEY is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("LOCATOR_KEY must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

// Helper functions
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
