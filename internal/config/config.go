// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads the tool configuration from defaults, an optional
// YAML file and QA_EXTRACTOR_* environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/qa-extractor/internal/secrets"
	"github.com/pdiddy/qa-extractor/pkg/types"
)

const (
	configName = "config"
	configType = "yaml"
	envPrefix  = "QA_EXTRACTOR"

	// HomeDir is the per-user config directory under $HOME.
	HomeDir = ".qa-extractor"

	// DefaultPath is where init writes the config file.
	DefaultPath = "config.yaml"

	// APIKeyPlaceholder is written in place of a real key by Write.
	APIKeyPlaceholder = "sk-your-api-key-here"
)

var (
	ErrMissingAPIKey      = errors.New("LLM API key not set (llm.api_key, QA_EXTRACTOR_API_KEY or .secrets/llm-api-key)")
	ErrInvalidTemperature = errors.New("llm.temperature must be between 0 and 2")
	ErrInvalidMaxTokens   = errors.New("llm.max_tokens must be positive")
	ErrInvalidTimeout     = errors.New("llm.timeout must be positive")
	ErrInvalidRetry       = errors.New("llm.retry_attempts and llm.retry_delay must not be negative")
	ErrQARange            = errors.New("qa_settings: need 0 < max_qa_per_paper and min_qa_per_paper <= max_qa_per_paper")
	ErrNoCategories       = errors.New("categories must not be empty")
	ErrConfigExists       = errors.New("config file already exists")
)

// Short environment names bound alongside the prefixed nested names.
var envAliases = map[string]string{
	"llm.api_key":         "QA_EXTRACTOR_API_KEY",
	"llm.base_url":        "QA_EXTRACTOR_BASE_URL",
	"llm.model":           "QA_EXTRACTOR_MODEL",
	"pipeline.input_dir":  "QA_EXTRACTOR_INPUT_DIR",
	"pipeline.output_dir": "QA_EXTRACTOR_OUTPUT_DIR",
}

// Load reads the configuration. When path is empty, config.yaml (or
// config.yml) is looked up in the working directory and then in
// $HOME/.qa-extractor. A missing file is not an error.
func Load(path string) (types.Config, error) {
	v := viper.New()
	setDefaults(v, types.DefaultConfig())

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		if err := v.BindEnv(key, "QA_EXTRACTOR_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return types.Config{}, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, HomeDir))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return types.Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return types.Config{}, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d types.Config) {
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.temperature", d.LLM.Temperature)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.retry_attempts", d.LLM.RetryAttempts)
	v.SetDefault("llm.retry_delay", d.LLM.RetryDelay)

	v.SetDefault("pipeline.input_dir", d.Pipeline.InputDir)
	v.SetDefault("pipeline.output_dir", d.Pipeline.OutputDir)
	v.SetDefault("pipeline.batch_size", d.Pipeline.BatchSize)
	v.SetDefault("pipeline.checkpoint_interval", d.Pipeline.CheckpointInterval)
	v.SetDefault("pipeline.extensions", d.Pipeline.Extensions)
	v.SetDefault("pipeline.max_content_chars", d.Pipeline.MaxContentChars)

	v.SetDefault("qa_settings.min_qa_per_paper", d.QASettings.MinQAPerPaper)
	v.SetDefault("qa_settings.max_qa_per_paper", d.QASettings.MaxQAPerPaper)
	v.SetDefault("qa_settings.enable_cross_doc", d.QASettings.EnableCrossDoc)
	v.SetDefault("qa_settings.cross_doc_sample_size", d.QASettings.CrossDocSampleSize)
	v.SetDefault("qa_settings.cross_doc_seed", d.QASettings.CrossDocSeed)

	v.SetDefault("monitoring.show_live_log", d.Monitoring.ShowLiveLog)
	v.SetDefault("monitoring.log_file", d.Monitoring.LogFile)
	v.SetDefault("monitoring.log_level", d.Monitoring.LogLevel)
	v.SetDefault("monitoring.log_format", d.Monitoring.LogFormat)
	v.SetDefault("monitoring.save_token_stats", d.Monitoring.SaveTokenStats)
	v.SetDefault("monitoring.write_metrics", d.Monitoring.WriteMetrics)

	v.SetDefault("pricing.input_per_1k", d.Pricing.InputPer1K)
	v.SetDefault("pricing.output_per_1k", d.Pricing.OutputPer1K)

	v.SetDefault("categories", d.Categories)
}

// Validate checks value ranges. Retry attempts below one behave as a
// single attempt and are accepted.
func Validate(cfg types.Config) error {
	switch {
	case cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2:
		return fmt.Errorf("%w: got %g", ErrInvalidTemperature, cfg.LLM.Temperature)
	case cfg.LLM.MaxTokens <= 0:
		return fmt.Errorf("%w: got %d", ErrInvalidMaxTokens, cfg.LLM.MaxTokens)
	case cfg.LLM.Timeout <= 0:
		return fmt.Errorf("%w: got %d", ErrInvalidTimeout, cfg.LLM.Timeout)
	case cfg.LLM.RetryAttempts < 0 || cfg.LLM.RetryDelay < 0:
		return ErrInvalidRetry
	case cfg.QASettings.MaxQAPerPaper <= 0 || cfg.QASettings.MinQAPerPaper > cfg.QASettings.MaxQAPerPaper:
		return fmt.Errorf("%w: got min %d, max %d", ErrQARange, cfg.QASettings.MinQAPerPaper, cfg.QASettings.MaxQAPerPaper)
	case len(cfg.Categories) == 0:
		return ErrNoCategories
	}
	return nil
}

// ResolveAPIKey fills cfg.LLM.APIKey from the configured value, the
// environment or the secrets directory. It returns ErrMissingAPIKey
// when none of them holds a key.
func ResolveAPIKey(cfg *types.Config, secretsDir string) error {
	key := secrets.APIKey(cfg.LLM.APIKey, secretsDir)
	if key == "" || key == APIKeyPlaceholder {
		return ErrMissingAPIKey
	}
	cfg.LLM.APIKey = key
	return nil
}

// Write emits cfg as YAML at path with the API key replaced by a
// placeholder. An existing file is kept unless force is set.
func Write(path string, cfg types.Config, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}
	cfg.LLM.APIKey = APIKeyPlaceholder

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
