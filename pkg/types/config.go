// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// DefaultCategories is the canonical category set, in match priority order.
var DefaultCategories = []string{
	"Materials Design & Synthesis",
	"Performance Metrics",
	"Structure-Property Relationships",
	"Device Architecture & Physics",
	"Processing & Fabrication",
	"Characterization Methods",
	"Stability & Degradation",
	"Computational & Machine Learning",
}

// LLMConfig holds settings for the chat completion backend.
type LLMConfig struct {
	// BaseURL is the API root; requests go to BaseURL + "/chat/completions".
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// APIKey is the bearer token. May be written as ${ENV_VAR}.
	APIKey string `json:"api_key,omitempty" yaml:"api_key" mapstructure:"api_key"`

	// Model is the model identifier sent with each request (e.g. "gpt-4o").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// Timeout is the per-request timeout in seconds (default 120).
	Timeout int `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// RetryAttempts is the total number of attempts per call (default 3).
	RetryAttempts int `json:"retry_attempts" yaml:"retry_attempts" mapstructure:"retry_attempts"`

	// RetryDelay is the base backoff delay in seconds (default 5).
	RetryDelay int `json:"retry_delay" yaml:"retry_delay" mapstructure:"retry_delay"`
}

// TimeoutDuration returns Timeout as a duration.
func (c LLMConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// RetryDelayDuration returns RetryDelay as a duration.
func (c LLMConfig) RetryDelayDuration() time.Duration {
	return time.Duration(c.RetryDelay) * time.Second
}

// PipelineConfig holds input and output locations and run pacing.
type PipelineConfig struct {
	// InputDir is searched recursively for documents.
	InputDir string `json:"input_dir" yaml:"input_dir" mapstructure:"input_dir"`

	// OutputDir holds knowledge/, qa_pairs/, final/, stats/ and the checkpoint.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// BatchSize is the number of items between progress log lines.
	BatchSize int `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`

	// CheckpointInterval is the number of items between token stats flushes.
	CheckpointInterval int `json:"checkpoint_interval" yaml:"checkpoint_interval" mapstructure:"checkpoint_interval"`

	// Extensions lists the document extensions to discover (default [".md"]).
	Extensions []string `json:"extensions" yaml:"extensions" mapstructure:"extensions"`

	// MaxContentChars caps the document text sent to the model (default 50000).
	MaxContentChars int `json:"max_content_chars" yaml:"max_content_chars" mapstructure:"max_content_chars"`
}

// QASettings bounds generation.
type QASettings struct {
	MinQAPerPaper int `json:"min_qa_per_paper" yaml:"min_qa_per_paper" mapstructure:"min_qa_per_paper"`

	// MaxQAPerPaper truncates each paper's validated pairs.
	MaxQAPerPaper int `json:"max_qa_per_paper" yaml:"max_qa_per_paper" mapstructure:"max_qa_per_paper"`

	EnableCrossDoc bool `json:"enable_cross_doc" yaml:"enable_cross_doc" mapstructure:"enable_cross_doc"`

	// CrossDocSampleSize is the maximum number of papers fed to the
	// cross-document prompt (default 50).
	CrossDocSampleSize int `json:"cross_doc_sample_size" yaml:"cross_doc_sample_size" mapstructure:"cross_doc_sample_size"`

	// CrossDocSeed fixes the paper sample when non-zero.
	CrossDocSeed int64 `json:"cross_doc_seed" yaml:"cross_doc_seed" mapstructure:"cross_doc_seed"`
}

// MonitoringConfig controls logging and stats output.
type MonitoringConfig struct {
	ShowLiveLog bool `json:"show_live_log" yaml:"show_live_log" mapstructure:"show_live_log"`

	// LogFile receives a copy of diagnostic logs. Empty disables it.
	LogFile string `json:"log_file" yaml:"log_file" mapstructure:"log_file"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `json:"log_level" yaml:"log_level" mapstructure:"log_level"`

	// LogFormat is text or json.
	LogFormat string `json:"log_format" yaml:"log_format" mapstructure:"log_format"`

	SaveTokenStats bool `json:"save_token_stats" yaml:"save_token_stats" mapstructure:"save_token_stats"`

	// WriteMetrics writes stats/metrics.prom at the end of a run.
	WriteMetrics bool `json:"write_metrics" yaml:"write_metrics" mapstructure:"write_metrics"`
}

// Config is the complete tool configuration.
type Config struct {
	LLM        LLMConfig        `json:"llm" yaml:"llm" mapstructure:"llm"`
	Pipeline   PipelineConfig   `json:"pipeline" yaml:"pipeline" mapstructure:"pipeline"`
	QASettings QASettings       `json:"qa_settings" yaml:"qa_settings" mapstructure:"qa_settings"`
	Monitoring MonitoringConfig `json:"monitoring" yaml:"monitoring" mapstructure:"monitoring"`
	Pricing    Pricing          `json:"pricing" yaml:"pricing" mapstructure:"pricing"`

	// Categories is the closed category set, in match priority order.
	Categories []string `json:"categories" yaml:"categories" mapstructure:"categories"`
}

// DefaultConfig returns the configuration used when no file or
// environment override is present.
func DefaultConfig() Config {
	return Config{
		LLM: LLMConfig{
			BaseURL:       "https://api.openai.com/v1",
			Model:         "gpt-4o",
			Temperature:   0.7,
			MaxTokens:     4096,
			Timeout:       120,
			RetryAttempts: 3,
			RetryDelay:    5,
		},
		Pipeline: PipelineConfig{
			InputDir:           "./MDs",
			OutputDir:          "./output",
			BatchSize:          10,
			CheckpointInterval: 5,
			Extensions:         []string{".md"},
			MaxContentChars:    50000,
		},
		QASettings: QASettings{
			MinQAPerPaper:      8,
			MaxQAPerPaper:      12,
			EnableCrossDoc:     true,
			CrossDocSampleSize: 50,
		},
		Monitoring: MonitoringConfig{
			ShowLiveLog:    true,
			LogFile:        "./output/qa_extractor.log",
			LogLevel:       "info",
			LogFormat:      "text",
			SaveTokenStats: true,
			WriteMetrics:   true,
		},
		Pricing:    DefaultPricing,
		Categories: append([]string(nil), DefaultCategories...),
	}
}
