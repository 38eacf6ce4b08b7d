package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Storage  StorageConfig
	Purchase PurchaseConfig
	LogLevel string
	AppEnv   string
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Port int
}

// DatabaseConfig holds the database configuration
type DatabaseConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	DBName     string
	SSLMode    string
	TestDBName string // Separate database for testing
}

// AuthConfig holds the authentication configuration
type AuthConfig struct {
	JWTSecret string
}

// StorageConfig selects and configures the image store backend
type StorageConfig struct {
	Driver          string // "local" or "s3"
	LocalDir        string
	S3Bucket        string
	S3Region        string
	S3AccessKey     string
	S3SecretKey     string
	CDNDomain       string
	UsePublicACL    bool
	PresignDuration time.Duration
}

// PurchaseConfig tunes the purchase transaction
type PurchaseConfig struct {
	// LockTimeout bounds how long a purchase waits on a row lock held by a
	// concurrent transaction before failing with a concurrency conflict.
	LockTimeout time.Duration
	// MaxRetries bounds restarts after serialization failures or deadlocks.
	MaxRetries int
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.DBName, c.SSLMode,
	)
}

// LoadConfig loads the configuration from environment variables.
// A .env file in the working directory is applied first when present.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnvAsInt("DB_PORT", 5432),
			Username:   getEnv("DB_USERNAME", "postgres"),
			Password:   getEnv("DB_PASSWORD", "password"),
			DBName:     getEnv("DB_NAME", "artgallery"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			TestDBName: getEnv("TEST_DB_NAME", "artgallery_test"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "your-secret-key-here"),
		},
		Storage: StorageConfig{
			Driver:          getEnv("STORAGE_DRIVER", "local"),
			LocalDir:        getEnv("LOCAL_UPLOAD_DIR", "./storage/uploads"),
			S3Bucket:        getEnv("S3_BUCKET_NAME", ""),
			S3Region:        getEnv("AWS_REGION", "us-east-1"),
			S3AccessKey:     getEnv("AWS_ACCESS_KEY_ID", ""),
			S3SecretKey:     getEnv("AWS_SECRET_ACCESS_KEY", ""),
			CDNDomain:       getEnv("CDN_DOMAIN", ""),
			UsePublicACL:    getEnvAsBool("S3_USE_PUBLIC_READ_ACL", false),
			PresignDuration: getEnvAsDuration("S3_PRESIGN_DURATION", time.Hour),
		},
		Purchase: PurchaseConfig{
			LockTimeout: getEnvAsDuration("PURCHASE_LOCK_TIMEOUT", 3*time.Second),
			MaxRetries:  getEnvAsInt("PURCHASE_MAX_RETRIES", 3),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
		AppEnv:   getEnv("APP_ENV", "development"),
	}
}

// Helper functions to read environment variables
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
