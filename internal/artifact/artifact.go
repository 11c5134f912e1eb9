// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package artifact owns the output directory layout and the JSON files
// written into it. Writes are atomic: a reader sees either the previous
// file or the complete new one.
package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/qa-extractor/pkg/types"
)

// Directory names under the output root.
const (
	KnowledgeDirName  = "knowledge"
	QADirName         = "qa_pairs"
	FinalDirName      = "final"
	ByCategoryDirName = "qa_by_category"
	StatsDirName      = "stats"
	IndexDirName      = "index"
)

// Layout resolves paths under an output root.
type Layout struct {
	Root string
}

// NewLayout returns the layout rooted at dir.
func NewLayout(dir string) Layout {
	return Layout{Root: dir}
}

func (l Layout) KnowledgeDir() string  { return filepath.Join(l.Root, KnowledgeDirName) }
func (l Layout) QADir() string         { return filepath.Join(l.Root, QADirName) }
func (l Layout) FinalDir() string      { return filepath.Join(l.Root, FinalDirName) }
func (l Layout) ByCategoryDir() string { return filepath.Join(l.FinalDir(), ByCategoryDirName) }
func (l Layout) StatsDir() string      { return filepath.Join(l.Root, StatsDirName) }
func (l Layout) IndexDir() string      { return filepath.Join(l.Root, IndexDirName) }

// KnowledgePath is where the extraction result for paperID lives.
func (l Layout) KnowledgePath(paperID string) string {
	return filepath.Join(l.KnowledgeDir(), paperID+".json")
}

// QAPath is where the generation result for paperID lives.
func (l Layout) QAPath(paperID string) string {
	return filepath.Join(l.QADir(), paperID+".json")
}

// CrossDocPath is where the cross-document result lives.
func (l Layout) CrossDocPath() string {
	return l.QAPath(types.CrossDocID)
}

// StatsPath returns a file path under stats/.
func (l Layout) StatsPath(name string) string {
	return filepath.Join(l.StatsDir(), name)
}

// EnsureDirs creates every output directory.
func (l Layout) EnsureDirs() error {
	for _, dir := range []string{l.KnowledgeDir(), l.QADir(), l.ByCategoryDir(), l.StatsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// Marshal encodes v as indented UTF-8 JSON without HTML escaping,
// terminated by a newline.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteJSON atomically replaces path with the JSON encoding of v. The
// data goes to a temporary file in the same directory which is then
// renamed over path.
func WriteJSON(path string, v any) error {
	data, err := Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return WriteFile(path, data)
}

// WriteFile atomically replaces path with data.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("setting mode on %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming into %s: %w", path, err)
	}
	return nil
}

// ReadJSON decodes the file at path into v.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// ListJSON returns the .json files directly under dir, sorted. A
// missing directory yields an empty list.
func ListJSON(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, ".") {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}

// Stem returns the file name of path without directory or extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
