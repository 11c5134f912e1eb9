// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/qa-extractor/pkg/types"
)

// isolate runs the test in an empty working directory with an empty home.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	return dir
}

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, types.DefaultConfig(), cfg)
}

func TestLoad_File(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	writeConfig(t, path, `
llm:
  model: gpt-4o-mini
  temperature: 0.2
pipeline:
  input_dir: ./papers
  extensions: [".md", ".pdf"]
qa_settings:
  min_qa_per_paper: 2
  max_qa_per_paper: 4
  enable_cross_doc: false
categories:
  - Alpha
  - Beta
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.InDelta(t, 0.2, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, "./papers", cfg.Pipeline.InputDir)
	assert.Equal(t, []string{".md", ".pdf"}, cfg.Pipeline.Extensions)
	assert.Equal(t, 2, cfg.QASettings.MinQAPerPaper)
	assert.Equal(t, 4, cfg.QASettings.MaxQAPerPaper)
	assert.False(t, cfg.QASettings.EnableCrossDoc)
	assert.Equal(t, []string{"Alpha", "Beta"}, cfg.Categories)

	// Keys absent from the file keep their defaults.
	assert.Equal(t, 4096, cfg.LLM.MaxTokens)
	assert.Equal(t, "./output", cfg.Pipeline.OutputDir)
}

func TestLoad_SearchPath(t *testing.T) {
	t.Run("working directory", func(t *testing.T) {
		dir := isolate(t)
		writeConfig(t, filepath.Join(dir, "config.yml"), "llm:\n  model: from-cwd\n")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "from-cwd", cfg.LLM.Model)
	})
	t.Run("home directory", func(t *testing.T) {
		dir := isolate(t)
		writeConfig(t, filepath.Join(dir, HomeDir, "config.yaml"), "llm:\n  model: from-home\n")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "from-home", cfg.LLM.Model)
	})
}

func TestLoad_Environment(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, filepath.Join(dir, "config.yaml"), "llm:\n  model: from-file\n")

	t.Setenv("QA_EXTRACTOR_LLM_MODEL", "from-env")
	t.Setenv("QA_EXTRACTOR_PIPELINE_BATCH_SIZE", "3")
	t.Setenv("QA_EXTRACTOR_API_KEY", "sk-alias")
	t.Setenv("QA_EXTRACTOR_OUTPUT_DIR", "/tmp/qa-out")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.LLM.Model)
	assert.Equal(t, 3, cfg.Pipeline.BatchSize)
	assert.Equal(t, "sk-alias", cfg.LLM.APIKey)
	assert.Equal(t, "/tmp/qa-out", cfg.Pipeline.OutputDir)
}

func TestLoad_Errors(t *testing.T) {
	dir := isolate(t)

	bad := filepath.Join(dir, "bad.yaml")
	writeConfig(t, bad, "llm:\n  temperature: 3\n")
	_, err := Load(bad)
	assert.ErrorIs(t, err, ErrInvalidTemperature)

	broken := filepath.Join(dir, "broken.yaml")
	writeConfig(t, broken, "llm: [unclosed\n")
	_, err = Load(broken)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*types.Config)
		want   error
	}{
		{"defaults", func(*types.Config) {}, nil},
		{"negative temperature", func(c *types.Config) { c.LLM.Temperature = -0.1 }, ErrInvalidTemperature},
		{"temperature above two", func(c *types.Config) { c.LLM.Temperature = 2.1 }, ErrInvalidTemperature},
		{"zero max tokens", func(c *types.Config) { c.LLM.MaxTokens = 0 }, ErrInvalidMaxTokens},
		{"zero timeout", func(c *types.Config) { c.LLM.Timeout = 0 }, ErrInvalidTimeout},
		{"negative retries", func(c *types.Config) { c.LLM.RetryAttempts = -1 }, ErrInvalidRetry},
		{"zero retries allowed", func(c *types.Config) { c.LLM.RetryAttempts = 0 }, nil},
		{"min above max", func(c *types.Config) { c.QASettings.MinQAPerPaper = 20 }, ErrQARange},
		{"zero max", func(c *types.Config) {
			c.QASettings.MinQAPerPaper = 0
			c.QASettings.MaxQAPerPaper = 0
		}, ErrQARange},
		{"no categories", func(c *types.Config) { c.Categories = nil }, ErrNoCategories},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := types.DefaultConfig()
			tt.modify(&cfg)
			err := Validate(cfg)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("QA_EXTRACTOR_API_KEY", "")
	secretsDir := t.TempDir()

	cfg := types.DefaultConfig()
	assert.ErrorIs(t, ResolveAPIKey(&cfg, secretsDir), ErrMissingAPIKey)

	cfg.LLM.APIKey = APIKeyPlaceholder
	assert.ErrorIs(t, ResolveAPIKey(&cfg, secretsDir), ErrMissingAPIKey)

	t.Setenv("PROVIDER_KEY", "sk-provider")
	cfg.LLM.APIKey = "${PROVIDER_KEY}"
	require.NoError(t, ResolveAPIKey(&cfg, secretsDir))
	assert.Equal(t, "sk-provider", cfg.LLM.APIKey)

	require.NoError(t, os.WriteFile(filepath.Join(secretsDir, "llm-api-key"), []byte("sk-file\n"), 0o600))
	cfg.LLM.APIKey = ""
	require.NoError(t, ResolveAPIKey(&cfg, secretsDir))
	assert.Equal(t, "sk-file", cfg.LLM.APIKey)
}

func TestWrite(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "conf", "config.yaml")

	cfg := types.DefaultConfig()
	cfg.LLM.APIKey = "sk-real-secret"
	require.NoError(t, Write(path, cfg, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), APIKeyPlaceholder)
	assert.NotContains(t, string(data), "sk-real-secret")

	assert.ErrorIs(t, Write(path, cfg, false), ErrConfigExists)
	require.NoError(t, Write(path, cfg, true))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, APIKeyPlaceholder, loaded.LLM.APIKey)
	assert.Equal(t, cfg.Categories, loaded.Categories)
	assert.Equal(t, cfg.Pricing, loaded.Pricing)
}
