package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DatabaseConfig holds metadata store connection settings.
// Driver selects the backend: "postgres" (default) or "sqlite".
type DatabaseConfig struct {
	Driver             string `env:"DB_DRIVER" env-default:"postgres"`
	Host               string `env:"DB_HOST"`
	Port               string `env:"DB_PORT" env-default:"5432"`
	User               string `env:"DB_USER"`
	Password           string `env:"DB_PASSWORD"`
	Name               string `env:"DB_NAME"`
	SSLMode            string `env:"DB_SSLMODE" env-default:"disable"`
	Path               string `env:"DB_PATH" env-default:"dms.db"` // sqlite only
	MaxOpenConns       int    `env:"DB_MAX_OPEN_CONNS" env-default:"10"`
	MaxIdleConns       int    `env:"DB_MAX_IDLE_CONNS" env-default:"5"`
	ConnMaxLifetimeSec int    `env:"DB_CONN_MAX_LIFETIME_SEC" env-default:"300"`
}

// RetryConfig controls retries of blob store calls.
type RetryConfig struct {
	MaxAttempts     uint          `env:"STORAGE_RETRY_MAX_ATTEMPTS" env-default:"3"`
	InitialInterval time.Duration `env:"STORAGE_RETRY_INITIAL_INTERVAL" env-default:"100ms"`
	MaxInterval     time.Duration `env:"STORAGE_RETRY_MAX_INTERVAL" env-default:"2s"`
}

// StorageConfig selects the object storage backend: "minio" (default), "s3" or "memory".
type StorageConfig struct {
	Driver string `env:"STORAGE_DRIVER" env-default:"minio"`
	Retry  RetryConfig
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string `env:"MINIO_ENDPOINT"`
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	Bucket    string `env:"MINIO_BUCKET"`
	Region    string `env:"MINIO_REGION"`
	UseSSL    bool   `env:"MINIO_USE_SSL" env-default:"false"`
}

// S3Config holds settings for the AWS SDK backed S3 store.
type S3Config struct {
	Region          string `env:"S3_REGION" env-default:"us-east-1"`
	Bucket          string `env:"S3_BUCKET"`
	Endpoint        string `env:"S3_ENDPOINT"`
	AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `env:"S3_USE_PATH_STYLE" env-default:"false"`
}

// UploadConfig holds the document upload policy.
type UploadConfig struct {
	MaxSizeBytes        int64         `env:"UPLOAD_MAX_SIZE_BYTES" env-default:"10485760"`
	AllowedContentTypes []string      `env:"UPLOAD_ALLOWED_CONTENT_TYPES" env-default:"application/pdf,application/msword,application/vnd.openxmlformats-officedocument.wordprocessingml.document,text/plain"`
	DownloadURLTTL      time.Duration `env:"DOWNLOAD_URL_TTL" env-default:"10m"`
	CleanupTimeout      time.Duration `env:"CLEANUP_TIMEOUT" env-default:"30s"`
}

// HTTPConfig holds transport toggles.
type HTTPConfig struct {
	CORSEnabled      bool   `env:"HTTP_CORS_ENABLED" env-default:"false"`
	CORSAllowOrigins string `env:"HTTP_CORS_ALLOW_ORIGINS" env-default:"*"`
	SecurityHeaders  bool   `env:"HTTP_SECURITY_HEADERS" env-default:"true"`
	BodyLimitBytes   int    `env:"HTTP_BODY_LIMIT_BYTES" env-default:"12582912"`
}

// TracingConfig holds settings not already covered by the standard OTEL_* variables.
type TracingConfig struct {
	ServiceName string `env:"OTEL_SERVICE_NAME" env-default:"dms"`
	Disabled    bool   `env:"OTEL_SDK_DISABLED" env-default:"false"`
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost  string `env:"APP_HOST" env-default:"localhost:8080"`
	Port     string `env:"PORT" env-default:"8080"`
	Env      string `env:"APP_ENV" env-default:"dev"`
	LogLevel string `env:"LOG_LEVEL"`
	Database DatabaseConfig
	Storage  StorageConfig
	MinIO    MinIOConfig
	S3       S3Config
	Upload   UploadConfig
	HTTP     HTTPConfig
	Tracing  TracingConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() (*AppConfig, error) {
	var cfg AppConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsProduction reports whether the service runs with production defaults.
func (c *AppConfig) IsProduction() bool {
	env := strings.ToLower(c.Env)
	return env == "prod" || env == "production"
}

// Validate rejects settings the service cannot start with.
func (c *AppConfig) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("invalid config: unknown DB_DRIVER %q", c.Database.Driver)
	}
	switch c.Storage.Driver {
	case "minio", "s3", "memory":
	default:
		return fmt.Errorf("invalid config: unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.Upload.MaxSizeBytes <= 0 {
		return fmt.Errorf("invalid config: UPLOAD_MAX_SIZE_BYTES must be positive")
	}
	if c.Upload.DownloadURLTTL <= 0 {
		return fmt.Errorf("invalid config: DOWNLOAD_URL_TTL must be positive")
	}
	if len(c.Upload.AllowedContentTypes) == 0 {
		return fmt.Errorf("invalid config: UPLOAD_ALLOWED_CONTENT_TYPES must not be empty")
	}
	return nil
}
