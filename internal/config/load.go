package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config file. Environment variables (GRADEFLOW_ prefix) take precedence
// over values from the config file.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("GRADEFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; the environment can carry
		// everything. Any other read error is fatal.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers default values for settings that have sensible
// out-of-the-box behavior. Secrets and connection URLs have no defaults.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.presign_ttl", 15*time.Minute)

	v.SetDefault("grading.model_name", "gemini-2.0-flash")
	v.SetDefault("grading.max_retries", 3)

	v.SetDefault("ingestion.max_upload_bytes", int64(10<<20))
	v.SetDefault("ingestion.allowed_mime_types", []string{
		"image/jpeg",
		"image/png",
		"image/webp",
		"application/pdf",
	})

	v.SetDefault("pipeline.worker_count", 4)
	v.SetDefault("pipeline.queue_size", 100)
	v.SetDefault("pipeline.max_processing_time", 2*time.Minute)
	v.SetDefault("pipeline.sweep_interval", 30*time.Second)
	v.SetDefault("pipeline.analytics_max_retries", 5)
	v.SetDefault("pipeline.track_failures", false)
}
