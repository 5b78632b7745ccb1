package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable Load reads,
// e.g. INKPIPE_DATABASE_URL for database.url.
const EnvPrefix = "INKPIPE"

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// AutomaticEnv only resolves keys viper already knows about, so every
	// required key without a default must be bound explicitly.
	for _, key := range []string{
		"database.url",
		"llm.gemini_api_key",
		"blob.bucket",
		"blob.endpoint",
		"trigger.secret",
		"worker.runner_id",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the struct tags of a populated Config.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("worker.batch_limit", 20)
	v.SetDefault("worker.max_attempts", 3)
	v.SetDefault("worker.stale_after", 5*time.Minute)
	v.SetDefault("worker.job_timeout", 2*time.Minute)
	v.SetDefault("worker.poll_interval", time.Duration(0))

	v.SetDefault("llm.classify_model", "gemini-2.0-flash")
	v.SetDefault("llm.embed_model", "text-embedding-004")
	v.SetDefault("llm.caption_model", "gemini-2.0-flash")
	v.SetDefault("llm.summary_model", "gemini-2.0-flash")
	v.SetDefault("llm.requests_per_second", 2.0)
	v.SetDefault("llm.burst", 4)

	v.SetDefault("blob.region", "us-east-1")
	v.SetDefault("blob.path_style", false)
	v.SetDefault("blob.download_timeout", 20*time.Second)
	v.SetDefault("blob.max_image_edge", 1024)
}
