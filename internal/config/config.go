package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Create a new instance of the logger
// Configure it to log at the desired level
// and format it as JSON for structured logging
var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	environment := GetEnvWithDefault("APP_ENV", "development")
	switch environment {
	case "development":
		log.SetLevel(logrus.DebugLevel)
	case "production":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}
}

// Config used for the application configuration, loading the input from environment variables
type Config struct {
	// Server Configuration
	Env         string   `json:"env"`
	Port        int      `json:"port"`
	Host        string   `json:"host"`
	CORSOrigins []string `json:"cors_origins"`

	// Database configuration
	DatabaseURL string `json:"database_url"`
	DBDriver    string `json:"db_driver"`
	DBPath      string `json:"db_path"`
	DBHost      string `json:"db_host"`
	DBPort      string `json:"db_port"`
	DBName      string `json:"db_name"`
	DBUser      string `json:"db_user"`
	DBPassword  string `json:"db_password"`
	DBSSLMode   string `json:"db_sslmode"`

	// Redis backs the recipe creation rate limiter; empty disables it
	RedisURL          string `json:"redis_url"`
	RecipeCreateLimit int    `json:"recipe_create_limit"`

	// Image storage configuration
	StorageDriver string `json:"storage_driver"`
	MediaRoot     string `json:"media_root"`
	MediaURL      string `json:"media_url"`
	S3Bucket      string `json:"s3_bucket"`
	AWSRegion     string `json:"aws_region"`
	S3Endpoint    string `json:"s3_endpoint"`
	S3PublicURL   string `json:"s3_public_url"`

	// Listing configuration
	PageSize int `json:"page_size"`

	// Logging configuration
	LogLevel string `json:"log_level"`

	// Security Configuration
	JWTSecret   string        `json:"jwt_secret"`
	TokenTTL    time.Duration `json:"token_ttl"`
	WebClientID string        `json:"web_client_id"`
}

// String returns a string representation of Config with sensitive data masked
func (c *Config) String() string {
	return fmt.Sprintf("Config{Env: %s, Port: %d, Host: %s, DatabaseURL: %s, DBDriver: %s, DBPath: %s, DBHost: %s, DBName: %s, DBUser: %s, DBPassword: [REDACTED], RedisURL: %s, StorageDriver: %s, S3Bucket: %s, PageSize: %d, LogLevel: %s, JWTSecret: [REDACTED], TokenTTL: %s}",
		c.Env, c.Port, c.Host, maskDatabaseURL(c.DatabaseURL), c.DBDriver, c.DBPath, c.DBHost, c.DBName, c.DBUser,
		maskDatabaseURL(c.RedisURL), c.StorageDriver, c.S3Bucket, c.PageSize, c.LogLevel, c.TokenTTL)
}

// maskDatabaseURL masks password in database URL
func maskDatabaseURL(dbURL string) string {
	if dbURL == "" {
		return ""
	}

	parsed, err := url.Parse(dbURL)
	if err != nil {
		return "[REDACTED_INVALID_URL]"
	}

	if parsed.User != nil {
		parsed.User = url.UserPassword(parsed.User.Username(), "[REDACTED]")
	}

	return parsed.String()
}

// LoadConfig read the proper configuration from environment variables and returns a Config struct
// It also validates formats like DatabaseURL and the storage driver
// Returns an error if any environment variable is invalid
func LoadConfig() (*Config, error) {
	log.Info("Loading configuration from environment variables")
	port, err := strconv.Atoi(GetEnvWithDefault("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	dbURL := GetEnvWithDefault("DATABASE_URL", "")
	if dbURL != "" {
		if _, err := url.ParseRequestURI(dbURL); err != nil {
			return nil, fmt.Errorf("invalid DATABASE_URL format: %w", err)
		}
	}

	storageDriver := strings.ToLower(GetEnvWithDefault("STORAGE_DRIVER", "local"))
	if storageDriver != "local" && storageDriver != "s3" {
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q (supported: local, s3)", storageDriver)
	}
	if storageDriver == "s3" && os.Getenv("S3_BUCKET_NAME") == "" {
		return nil, fmt.Errorf("S3_BUCKET_NAME is required when STORAGE_DRIVER is s3")
	}

	pageSize := GetEnvAsType("PAGE_SIZE", 6)
	if pageSize < 1 {
		return nil, fmt.Errorf("PAGE_SIZE must be positive, got %d", pageSize)
	}

	recipeCreateLimit := GetEnvAsType("RECIPE_CREATE_LIMIT", 30)
	if recipeCreateLimit < 1 {
		return nil, fmt.Errorf("RECIPE_CREATE_LIMIT must be positive, got %d", recipeCreateLimit)
	}

	config := &Config{
		Env:               GetEnvWithDefault("APP_ENV", "development"),
		Port:              port,
		Host:              GetEnvWithDefault("APP_HOST", "localhost"),
		CORSOrigins:       splitList(GetEnvWithDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		DatabaseURL:       dbURL,
		DBDriver:          GetEnvWithDefault("DB_DRIVER", "sqlite"),
		DBPath:            GetEnvWithDefault("DB_PATH", "foodgram.sqlite"),
		DBHost:            GetEnvWithDefault("DB_HOST", "localhost"),
		DBPort:            GetEnvWithDefault("DB_PORT", "5432"),
		DBName:            GetEnvWithDefault("DB_NAME", "foodgram"),
		DBUser:            GetEnvWithDefault("DB_USER", "foodgram"),
		DBPassword:        GetEnvWithDefault("DB_PASSWORD", "foodgram"),
		DBSSLMode:         GetEnvWithDefault("DB_SSLMODE", "disable"),
		RedisURL:          GetEnvWithDefault("REDIS_URL", ""),
		RecipeCreateLimit: recipeCreateLimit,
		StorageDriver:     storageDriver,
		MediaRoot:         GetEnvWithDefault("MEDIA_ROOT", "media"),
		MediaURL:          strings.TrimRight(GetEnvWithDefault("MEDIA_URL", "/media"), "/"),
		S3Bucket:          GetEnvWithDefault("S3_BUCKET_NAME", ""),
		AWSRegion:         GetEnvWithDefault("AWS_REGION", "us-east-1"),
		S3Endpoint:        GetEnvWithDefault("S3_ENDPOINT", ""),
		S3PublicURL:       GetEnvWithDefault("S3_PUBLIC_URL", ""),
		PageSize:          pageSize,
		LogLevel:          GetEnvWithDefault("LOG_LEVEL", "info"),
		JWTSecret:         GetEnvWithDefault("JWT_SECRET", "secret"),
		TokenTTL:          time.Duration(GetEnvAsType("TOKEN_TTL_HOURS", 24)) * time.Hour,
		WebClientID:       GetEnvWithDefault("WEB_CLIENT_ID", "foodgram-web"),
	}
	log.Infof("Configuration loaded: %s", config.String())
	return config, nil
}

// splitList turns a comma separated value into trimmed, non-empty items
func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Helper to get environment with default values
func GetEnvWithDefault(key, defaultValue string) string {
	log.Tracef("Getting environment variable: %s", key)
	value := os.Getenv(key)
	if value == "" {
		log.Debugf("Environment variable %s not set, using default value", key)
		return defaultValue
	}
	return value
}

// GetEnvAsType retrieves an environment variable and converts it to the specified type
// using generic type handling.
func GetEnvAsType[T any](key string, defaultValue T) T {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result T
	switch any(result).(type) {
	case int:
		intValue, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return any(intValue).(T)
	case string:
		return any(value).(T)
	case bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return any(boolValue).(T)
	default:
		return defaultValue
	}
}
