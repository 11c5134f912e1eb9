// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export aggregates the per-paper QA files into a single
// dataset file, optionally split by category and lz4-compressed.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pierrec/lz4/v4"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/qa-extractor/internal/artifact"
	"github.com/pdiddy/qa-extractor/internal/category"
	"github.com/pdiddy/qa-extractor/pkg/types"
)

// Format selects the dataset encoding.
type Format string

const (
	JSON  Format = "json"
	JSONL Format = "jsonl"
	YAML  Format = "yaml"
)

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	return f == JSON || f == JSONL || f == YAML
}

// ErrNoQAPairs is returned when there is nothing to export.
var ErrNoQAPairs = errors.New("no QA pairs to export")

// DefaultFileName is the dataset name under final/ when no path is given.
const DefaultFileName = "qa_dataset"

// compressedExt is appended to compressed outputs.
const compressedExt = ".lz4"

// Meta describes an exported dataset.
type Meta struct {
	ExportID     string         `json:"export_id" yaml:"export_id"`
	ExportedAt   string         `json:"exported_at" yaml:"exported_at"`
	Model        string         `json:"model,omitempty" yaml:"model,omitempty"`
	TotalPapers  int            `json:"total_papers" yaml:"total_papers"`
	TotalQAPairs int            `json:"total_qa_pairs" yaml:"total_qa_pairs"`
	Categories   map[string]int `json:"categories" yaml:"categories"`
	SourcePapers []string       `json:"source_papers" yaml:"source_papers"`
}

// Dataset is the exported document.
type Dataset struct {
	Meta    Meta           `json:"meta" yaml:"meta"`
	QAPairs []types.QAPair `json:"qa_pairs" yaml:"qa_pairs"`
}

// Options controls Write.
type Options struct {
	Format Format

	// Path is the output file. Empty means final/qa_dataset.<format>.
	Path string

	// ByCategory also writes final/qa_by_category/<slug>.json.
	ByCategory bool

	// Compress wraps every written file in an lz4 frame.
	Compress bool
}

// Collect loads every QA file under layout in name order, skips failed
// results and numbers the remaining pairs qa_0001, qa_0002, ...
func Collect(layout artifact.Layout, model string, now time.Time) (*Dataset, error) {
	results, _, err := layout.LoadGenerations()
	if err != nil {
		return nil, err
	}

	ds := &Dataset{
		Meta: Meta{
			ExportID:     uuid.NewString(),
			ExportedAt:   now.Format("2006-01-02T15:04:05"),
			Model:        model,
			Categories:   map[string]int{},
			SourcePapers: []string{},
		},
		QAPairs: []types.QAPair{},
	}
	for _, r := range results {
		if r.Failed() {
			continue
		}
		if r.PaperID != types.CrossDocID {
			ds.Meta.TotalPapers++
			ds.Meta.SourcePapers = append(ds.Meta.SourcePapers, r.PaperTitle)
		}
		for _, qa := range r.QAPairs {
			qa.ID = fmt.Sprintf("qa_%04d", len(ds.QAPairs)+1)
			ds.QAPairs = append(ds.QAPairs, qa)
			ds.Meta.Categories[qa.Category]++
		}
	}
	if len(ds.QAPairs) == 0 {
		return nil, ErrNoQAPairs
	}
	ds.Meta.TotalQAPairs = len(ds.QAPairs)
	return ds, nil
}

// Write encodes ds per opts and returns the paths written.
func Write(layout artifact.Layout, ds *Dataset, opts Options) ([]string, error) {
	if opts.Format == "" {
		opts.Format = JSON
	}
	if !opts.Format.Valid() {
		return nil, fmt.Errorf("unknown export format %q", opts.Format)
	}
	path := opts.Path
	if path == "" {
		path = filepath.Join(layout.FinalDir(), DefaultFileName+"."+string(opts.Format))
	}

	var written []string
	emit := func(p string, data []byte) error {
		if opts.Compress {
			var err error
			if data, err = compress(data); err != nil {
				return fmt.Errorf("compressing %s: %w", p, err)
			}
			p += compressedExt
		}
		if err := artifact.WriteFile(p, data); err != nil {
			return err
		}
		written = append(written, p)
		return nil
	}

	switch opts.Format {
	case JSON:
		data, err := artifact.Marshal(ds)
		if err != nil {
			return nil, err
		}
		if err := emit(path, data); err != nil {
			return nil, err
		}
	case YAML:
		data, err := yaml.Marshal(ds)
		if err != nil {
			return nil, fmt.Errorf("marshaling YAML: %w", err)
		}
		if err := emit(path, data); err != nil {
			return nil, err
		}
	case JSONL:
		data, err := encodeLines(ds.QAPairs)
		if err != nil {
			return nil, err
		}
		if err := emit(path, data); err != nil {
			return nil, err
		}
		meta, err := artifact.Marshal(ds.Meta)
		if err != nil {
			return nil, err
		}
		if err := emit(strings.TrimSuffix(path, filepath.Ext(path))+".meta.json", meta); err != nil {
			return nil, err
		}
	}

	if opts.ByCategory {
		if err := writeByCategory(layout, ds.QAPairs, emit); err != nil {
			return nil, err
		}
	}
	return written, nil
}

// writeByCategory emits one JSON array per category, categories in
// name order and pairs in dataset order.
func writeByCategory(layout artifact.Layout, pairs []types.QAPair, emit func(string, []byte) error) error {
	groups := map[string][]types.QAPair{}
	for _, qa := range pairs {
		groups[qa.Category] = append(groups[qa.Category], qa)
	}
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := artifact.Marshal(groups[name])
		if err != nil {
			return err
		}
		if err := emit(filepath.Join(layout.ByCategoryDir(), category.Slug(name)+".json"), data); err != nil {
			return err
		}
	}
	return nil
}

func encodeLines(pairs []types.QAPair) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, qa := range pairs {
		if err := enc.Encode(qa); err != nil {
			return nil, fmt.Errorf("encoding QA pair %s: %w", qa.ID, err)
		}
	}
	return buf.Bytes(), nil
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
