package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
// An explicit Config is passed into each component at wiring time; there is
// no process-wide configuration singleton.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"  validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"      validate:"required"`
	Storage   StorageConfig   `mapstructure:"storage"   validate:"required"`
	Grading   GradingConfig   `mapstructure:"grading"   validate:"required"`
	Ingestion IngestionConfig `mapstructure:"ingestion" validate:"required"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"  validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains authentication settings. Identity is supplied by an
// external provider; this service only verifies the signed claims.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// StorageConfig contains object storage settings for the artifact store.
type StorageConfig struct {
	Endpoint   string        `mapstructure:"endpoint"    validate:"required"`
	AccessKey  string        `mapstructure:"access_key"  validate:"required"`
	SecretKey  string        `mapstructure:"secret_key"  validate:"required"`
	UseSSL     bool          `mapstructure:"use_ssl"`
	Bucket     string        `mapstructure:"bucket"      validate:"required"`
	PresignTTL time.Duration `mapstructure:"presign_ttl"`
}

// GradingConfig contains grading engine settings.
type GradingConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName    string `mapstructure:"model_name"     validate:"required"`
	MaxRetries   int    `mapstructure:"max_retries"    validate:"gte=0"`
}

// IngestionConfig contains submission validation limits.
type IngestionConfig struct {
	MaxUploadBytes   int64    `mapstructure:"max_upload_bytes"   validate:"required,gt=0"`
	AllowedMimeTypes []string `mapstructure:"allowed_mime_types" validate:"required,min=1"`
}

// PipelineConfig contains orchestrator settings: worker pool sizing, the
// watchdog deadline, and analytics retry bounds.
type PipelineConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0"`
	QueueSize   int `mapstructure:"queue_size"   validate:"required,gt=0"`

	// MaxProcessingTime is the watchdog deadline: no sheet may remain in
	// processing longer than this before a terminal transition is forced.
	MaxProcessingTime time.Duration `mapstructure:"max_processing_time" validate:"required"`

	// SweepInterval is how often the runner scans for sheets stuck in
	// processing (crash recovery leg of the watchdog).
	SweepInterval time.Duration `mapstructure:"sweep_interval"`

	// AnalyticsMaxRetries bounds the exponential backoff applied to a
	// contended analytics update before it is surfaced as a conflict.
	AnalyticsMaxRetries int `mapstructure:"analytics_max_retries" validate:"gte=0"`

	// TrackFailures enables counting failed grading tasks in the runner.
	// Failed sheets are not folded into analytics snapshots either way.
	TrackFailures bool `mapstructure:"track_failures"`
}
