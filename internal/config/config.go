package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm" validate:"required"`
	Blob     BlobConfig     `mapstructure:"blob" validate:"required"`
	Trigger  TriggerConfig  `mapstructure:"trigger" validate:"required"`
}

// ServerConfig contains the run-trigger HTTP server settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url" validate:"required,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
}

// WorkerConfig controls how the runner claims and executes jobs.
type WorkerConfig struct {
	// BatchLimit is the default number of jobs a single run may claim.
	BatchLimit int `mapstructure:"batch_limit" validate:"gte=1,lte=1000"`

	// MaxAttempts is applied to jobs enqueued without an explicit ceiling.
	MaxAttempts int `mapstructure:"max_attempts" validate:"gte=1,lte=50"`

	// StaleAfter is the lease age after which a running job may be reclaimed.
	StaleAfter time.Duration `mapstructure:"stale_after" validate:"gte=1s"`

	// JobTimeout bounds a single executor call. It must stay below StaleAfter,
	// otherwise a slow but healthy runner could lose its lease mid-execution.
	JobTimeout time.Duration `mapstructure:"job_timeout" validate:"gte=1s,ltfield=StaleAfter"`

	// PollInterval enables the built-in ticker in serve mode; zero disables it.
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gte=0"`

	// RunnerID replaces the hostname prefix of the runner identity. Each run
	// still appends its own uuid.
	RunnerID string `mapstructure:"runner_id"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey      string  `mapstructure:"gemini_api_key" validate:"required"`
	ClassifyModel     string  `mapstructure:"classify_model" validate:"required"`
	EmbedModel        string  `mapstructure:"embed_model" validate:"required"`
	CaptionModel      string  `mapstructure:"caption_model" validate:"required"`
	SummaryModel      string  `mapstructure:"summary_model" validate:"required"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gt=0"`
	Burst             int     `mapstructure:"burst" validate:"gte=1"`
}

// BlobConfig describes where handwritten ink images are stored.
type BlobConfig struct {
	Bucket          string        `mapstructure:"bucket" validate:"required"`
	Region          string        `mapstructure:"region" validate:"required"`
	Endpoint        string        `mapstructure:"endpoint" validate:"omitempty,url"`
	PathStyle       bool          `mapstructure:"path_style"`
	DownloadTimeout time.Duration `mapstructure:"download_timeout" validate:"gte=1s"`
	MaxImageEdge    int           `mapstructure:"max_image_edge" validate:"gte=64"`
}

// TriggerConfig secures the endpoint an external scheduler calls to run jobs.
type TriggerConfig struct {
	Secret string `mapstructure:"secret" validate:"required,min=32"`
}
