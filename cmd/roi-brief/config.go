// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/roi-brief/internal/fetch"
	"github.com/pdiddy/roi-brief/internal/httputil"
	"github.com/pdiddy/roi-brief/internal/insight"
	"github.com/pdiddy/roi-brief/internal/orchestrate"
	"github.com/pdiddy/roi-brief/internal/secrets"
	"github.com/pdiddy/roi-brief/pkg/types"
)

const (
	defaultSecretsDir   = ".secrets"
	defaultStorageDir   = "data"
	defaultLedgerPath   = "data/ledger.db"
	defaultRunTimeout   = 15 * time.Minute
	defaultModelTimeout = 2 * time.Minute
)

// setDefaults registers a default for every configuration key. Environment
// overrides only reach keys viper knows about, so each field needs one.
func setDefaults(v *viper.Viper) {
	v.SetDefault("secrets_dir", defaultSecretsDir)

	v.SetDefault("registry.base_url", fetch.DefaultBaseURL)
	v.SetDefault("registry.user_agent", "")
	v.SetDefault("registry.timeout", fetch.DefaultTimeout)
	v.SetDefault("registry.rate_limit", fetch.DefaultRateLimit)
	v.SetDefault("registry.max_attempts", httputil.DefaultMaxAttempts)

	v.SetDefault("storage.backend", string(types.StorageFS))
	v.SetDefault("storage.dir", defaultStorageDir)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.endpoint", "")

	v.SetDefault("model.provider", string(types.ProviderBedrock))
	v.SetDefault("model.model_id", "")
	v.SetDefault("model.region", insight.DefaultRegion)
	v.SetDefault("model.api_key", "")
	v.SetDefault("model.base_url", "")
	v.SetDefault("model.max_tokens", insight.DefaultMaxTokens)
	v.SetDefault("model.temperature", insight.DefaultTemperature)
	v.SetDefault("model.timeout", defaultModelTimeout)

	v.SetDefault("email.backend", string(types.EmailSES))
	v.SetDefault("email.region", "")
	v.SetDefault("email.smtp_host", "")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.smtp_username", "")
	v.SetDefault("email.smtp_password", "")

	v.SetDefault("run.parallelism", orchestrate.DefaultParallelism)
	v.SetDefault("run.timeout", defaultRunTimeout)

	v.SetDefault("ledger.path", defaultLedgerPath)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// loadConfig decodes the viper settings and fills credentials the config
// leaves empty from the secrets directory.
func loadConfig(v *viper.Viper, s secrets.Secrets) (types.PipelineConfig, error) {
	var cfg types.PipelineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}

	cfg.Model.APIKey = s.Get(secrets.AnthropicAPIKey, cfg.Model.APIKey)
	cfg.Email.SMTPPassword = s.Get(secrets.SMTPPassword, cfg.Email.SMTPPassword)
	cfg.Registry.UserAgent = s.Get(secrets.SECUserAgent, cfg.Registry.UserAgent)

	switch cfg.Model.Provider {
	case types.ProviderBedrock, types.ProviderAnthropic:
	default:
		return cfg, fmt.Errorf("model.provider: unknown provider %q", cfg.Model.Provider)
	}
	return cfg, nil
}
