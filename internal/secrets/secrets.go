// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets resolves the LLM API key. A configured value may name
// an environment variable as ${VAR}; an empty key falls back to the
// environment (after .env is loaded) and then to a file in a secrets
// directory, where each file holds one secret named by its filename.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// DefaultDir is the secrets directory relative to the working directory.
	DefaultDir = ".secrets"

	// APIKeyFile is the secrets file holding the LLM API key.
	APIKeyFile = "llm-api-key"

	// APIKeyEnv is consulted when no key is configured.
	APIKeyEnv = "QA_EXTRACTOR_API_KEY"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// LoadDotenv loads each existing env file into the process environment.
// Variables already set are left alone. Missing files are skipped.
func LoadDotenv(paths ...string) error {
	for _, p := range paths {
		err := godotenv.Load(p)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return fmt.Errorf("loading %s: %w", p, err)
	}
	return nil
}

// Expand resolves a value written as ${VAR} to the variable's value.
// Any other value is returned unchanged.
func Expand(value string) string {
	v := strings.TrimSpace(value)
	if strings.HasPrefix(v, "${") && strings.HasSuffix(v, "}") {
		return os.Getenv(v[2 : len(v)-1])
	}
	return value
}

// APIKey resolves the LLM API key: the expanded configured value, then
// $QA_EXTRACTOR_API_KEY, then <dir>/llm-api-key. It returns "" when
// none is set.
func APIKey(configured, dir string) string {
	if k := strings.TrimSpace(Expand(configured)); k != "" {
		return k
	}
	if k := strings.TrimSpace(os.Getenv(APIKeyEnv)); k != "" {
		return k
	}
	s, err := Load(dir)
	if err != nil {
		return ""
	}
	return s[APIKeyFile]
}
