// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/qa-extractor/internal/config"
)

func TestExecute_FailingCommandClosesLogFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	t.Setenv("QA_EXTRACTOR_API_KEY", "")

	logPath := filepath.Join(dir, "logs", "qa.log")
	cfgPath := filepath.Join(dir, "config.yaml")
	body := "llm:\n  api_key: " + config.APIKeyPlaceholder + "\nmonitoring:\n  log_file: " + logPath + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))

	rootCmd.SetArgs([]string{"run", "--config", cfgPath})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	require.ErrorIs(t, err, config.ErrMissingAPIKey)
	assert.FileExists(t, logPath)
	assert.Nil(t, logCloser)
}

func TestCloseLog_WithoutLogFile(t *testing.T) {
	logCloser = nil
	assert.NotPanics(t, closeLog)
	assert.Nil(t, logCloser)
}
