// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RegistryConfig holds settings for the SEC EDGAR filings registry.
type RegistryConfig struct {
	// BaseURL is the data.sec.gov API root.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// UserAgent is sent on every request. EDGAR rejects anonymous clients,
	// so it should name the operator and a contact address.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// RateLimit caps requests per second across all concurrent accounts.
	RateLimit int `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"`

	// MaxAttempts bounds attempts per document, including the first.
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`
}

// StorageBackend selects the object store implementation.
type StorageBackend string

const (
	StorageFS StorageBackend = "fs"
	StorageS3 StorageBackend = "s3"
)

// StorageConfig holds object store settings.
type StorageConfig struct {
	Backend StorageBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Dir is the root directory for the fs backend.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	Bucket string `json:"bucket" yaml:"bucket" mapstructure:"bucket"`
	Prefix string `json:"prefix" yaml:"prefix" mapstructure:"prefix"`
	Region string `json:"region" yaml:"region" mapstructure:"region"`

	// Endpoint overrides the S3 endpoint for S3-compatible stores.
	Endpoint string `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`
}

// ModelProvider selects how the language model is reached.
type ModelProvider string

const (
	ProviderBedrock   ModelProvider = "bedrock"
	ProviderAnthropic ModelProvider = "anthropic"
)

// ModelConfig holds shared settings for the language-model call.
type ModelConfig struct {
	Provider ModelProvider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// ModelID is the model identifier, e.g. a Bedrock model id.
	ModelID string `json:"model_id" yaml:"model_id" mapstructure:"model_id"`

	// Region is the default Bedrock region when the run input names none.
	Region string `json:"region" yaml:"region" mapstructure:"region"`

	// APIKey authenticates the direct Anthropic provider.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL overrides the Anthropic API endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	MaxTokens   int           `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64       `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// EmailBackend selects the notifier implementation.
type EmailBackend string

const (
	EmailSES  EmailBackend = "ses"
	EmailSMTP EmailBackend = "smtp"
	EmailLog  EmailBackend = "log"
)

// EmailConfig holds notifier settings. Sender and recipient come from the
// run input.
type EmailConfig struct {
	Backend EmailBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Region is the SES region; empty uses the AWS default chain.
	Region string `json:"region" yaml:"region" mapstructure:"region"`

	SMTPHost     string `json:"smtp_host" yaml:"smtp_host" mapstructure:"smtp_host"`
	SMTPPort     int    `json:"smtp_port" yaml:"smtp_port" mapstructure:"smtp_port"`
	SMTPUsername string `json:"smtp_username" yaml:"smtp_username" mapstructure:"smtp_username"`
	SMTPPassword string `json:"smtp_password,omitempty" yaml:"smtp_password,omitempty" mapstructure:"smtp_password"`
}

// RunConfig holds orchestrator settings.
type RunConfig struct {
	// Parallelism bounds concurrently processed accounts.
	Parallelism int `json:"parallelism" yaml:"parallelism" mapstructure:"parallelism"`

	// Timeout is the run-level deadline. Zero disables it.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// LedgerConfig holds settings for the run history database.
type LedgerConfig struct {
	// Path is the SQLite file. Empty disables the ledger.
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// PipelineConfig groups all configuration for the pipeline.
type PipelineConfig struct {
	Registry RegistryConfig `json:"registry" yaml:"registry" mapstructure:"registry"`
	Storage  StorageConfig  `json:"storage" yaml:"storage" mapstructure:"storage"`
	Model    ModelConfig    `json:"model" yaml:"model" mapstructure:"model"`
	Email    EmailConfig    `json:"email" yaml:"email" mapstructure:"email"`
	Run      RunConfig      `json:"run" yaml:"run" mapstructure:"run"`
	Ledger   LedgerConfig   `json:"ledger" yaml:"ledger" mapstructure:"ledger"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging" mapstructure:"logging"`
}
