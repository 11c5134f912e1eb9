// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert discovers source documents and turns them into plain
// text for extraction. Markdown and text files are read as UTF-8; PDF
// files go through a text extractor.
package convert

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// Converter turns a document file into text.
type Converter interface {
	Convert(path string) (string, error)
}

// TextConverter reads UTF-8 Markdown or plain text.
type TextConverter struct{}

// Convert returns the file content, rejecting invalid UTF-8.
func (TextConverter) Convert(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s is not valid UTF-8", path)
	}
	return string(data), nil
}

// ErrUnsupported is returned for extensions with no converter.
var ErrUnsupported = errors.New("unsupported document type")

// Registry maps lower-case extensions (with the dot) to converters.
type Registry map[string]Converter

// DefaultRegistry handles .md, .markdown, .txt and .pdf.
func DefaultRegistry() Registry {
	return Registry{
		".md":       TextConverter{},
		".markdown": TextConverter{},
		".txt":      TextConverter{},
		".pdf":      PDFConverter{},
	}
}

// Convert dispatches on the file extension.
func (r Registry) Convert(path string) (string, error) {
	c, ok := r[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, path)
	}
	return c.Convert(path)
}

// Discover walks root and returns every file whose extension is in exts,
// sorted lexicographically by path. Extensions are compared without case.
func Discover(root string, exts []string) ([]string, error) {
	want := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		want[e] = true
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if want[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discovering documents in %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Converted int
	Skipped   int
	Failed    int
}

// Total returns the total number of documents processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Skipped + r.Failed
}

// HasFailures reports whether any document failed conversion.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// ToMarkdown converts each path with c and writes <stem>.md into outDir,
// skipping documents whose Markdown already exists. Per-file status goes
// to w.
func ToMarkdown(c Converter, paths []string, outDir string, w io.Writer) BatchResult {
	var result BatchResult
	for _, p := range paths {
		base := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		mdPath := filepath.Join(outDir, base+".md")

		if _, err := os.Stat(mdPath); err == nil {
			fmt.Fprintf(w, "skipped:   %s (already exists)\n", base)
			result.Skipped++
			continue
		}

		text, err := c.Convert(p)
		if err == nil {
			err = writeMarkdown(mdPath, p, text)
		}
		if err != nil {
			fmt.Fprintf(w, "failed:    %s (%v)\n", base, err)
			result.Failed++
			continue
		}
		fmt.Fprintf(w, "converted: %s\n", base)
		result.Converted++
	}
	fmt.Fprintf(w, "\nBatch summary: %d converted, %d skipped, %d failed (total: %d)\n",
		result.Converted, result.Skipped, result.Failed, result.Total())
	return result
}

// writeMarkdown writes text with a provenance comment ahead of it.
func writeMarkdown(mdPath, source, text string) error {
	if err := os.MkdirAll(filepath.Dir(mdPath), 0o755); err != nil {
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<!-- source: %s, converted: %s -->\n\n", filepath.Base(source), time.Now().UTC().Format(time.RFC3339))
	b.WriteString(text)
	return os.WriteFile(mdPath, []byte(b.String()), 0o644)
}
