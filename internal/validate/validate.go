// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package validate checks the knowledge and QA artifacts of an output
// directory against their JSON schemas and finds the files the next run
// would reprocess. Fix deletes those files.
package validate

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/pdiddy/qa-extractor/internal/artifact"
	"github.com/pdiddy/qa-extractor/pkg/types"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	knowledgeSchema = mustSchema("schemas/knowledge.schema.json")
	qaSchema        = mustSchema("schemas/qa.schema.json")
)

func mustSchema(name string) *gojsonschema.Schema {
	data, err := schemaFS.ReadFile(name)
	if err != nil {
		panic(err)
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		panic(fmt.Sprintf("compiling %s: %v", name, err))
	}
	return s
}

// Kind names the artifact family of a file.
type Kind string

const (
	Knowledge Kind = "knowledge"
	QA        Kind = "qa"
	CrossDoc  Kind = "cross_doc"
)

// maxSchemaErrors bounds the schema messages kept per file.
const maxSchemaErrors = 3

// Problem is a file the pipeline would reprocess.
type Problem struct {
	Kind   Kind
	Path   string
	Reason string
}

// File returns the base name of the problem file.
func (p Problem) File() string { return filepath.Base(p.Path) }

// Report is the outcome of validating one output directory.
type Report struct {
	KnowledgeOK     int
	QAOK            int
	KnowledgePoints int
	QAPairs         int

	// Difficulties and ReasoningTypes count the pairs of valid QA files.
	Difficulties   map[string]int
	ReasoningTypes map[string]int

	Problems []Problem
	Warnings []string
}

// HasProblems reports whether any file needs reprocessing.
func (r *Report) HasProblems() bool { return len(r.Problems) > 0 }

// Count returns the problems of kind k.
func (r *Report) Count(k Kind) int {
	n := 0
	for _, p := range r.Problems {
		if p.Kind == k {
			n++
		}
	}
	return n
}

// Run validates the output directory under layout. categories are the
// configured canonical categories.
func Run(layout artifact.Layout, categories []string) (*Report, error) {
	r := &Report{
		Difficulties:   map[string]int{},
		ReasoningTypes: map[string]int{},
	}

	if _, err := os.Stat(layout.KnowledgeDir()); errors.Is(err, os.ErrNotExist) {
		r.Warnings = append(r.Warnings, "knowledge directory not found")
	}

	knowledgePaths, err := artifact.ListJSON(layout.KnowledgeDir())
	if err != nil {
		return nil, err
	}
	validKnowledge := map[string]bool{}
	for _, path := range knowledgePaths {
		var ex types.ExtractionResult
		reason := check(path, knowledgeSchema, &ex)
		if reason == "" {
			switch {
			case ex.TokenUsage.Failed():
				reason = ex.TokenUsage.Error
			case len(ex.KnowledgePoints) == 0:
				reason = "no knowledge points extracted"
			}
		}
		if reason != "" {
			r.Problems = append(r.Problems, Problem{Kind: Knowledge, Path: path, Reason: reason})
			continue
		}
		r.KnowledgeOK++
		r.KnowledgePoints += len(ex.KnowledgePoints)
		validKnowledge[artifact.Stem(path)] = true
	}

	qaPaths, err := artifact.ListJSON(layout.QADir())
	if err != nil {
		return nil, err
	}
	categoryCounts := map[string]int{}
	qaStems := map[string]bool{}
	for _, path := range qaPaths {
		kind := QA
		if artifact.Stem(path) == types.CrossDocID {
			kind = CrossDoc
		} else {
			qaStems[artifact.Stem(path)] = true
		}

		var gen types.GenerationResult
		reason := check(path, qaSchema, &gen)
		if reason == "" {
			switch {
			case gen.TokenUsage.Failed():
				reason = gen.TokenUsage.Error
			case len(gen.QAPairs) == 0:
				reason = "no QA pairs generated"
			}
		}
		if reason != "" {
			r.Problems = append(r.Problems, Problem{Kind: kind, Path: path, Reason: reason})
			continue
		}
		if kind == QA {
			r.QAOK++
		}
		r.QAPairs += len(gen.QAPairs)
		for _, qa := range gen.QAPairs {
			categoryCounts[qa.Category]++
			r.Difficulties[string(qa.Difficulty)]++
			r.ReasoningTypes[string(qa.ReasoningType)]++
		}
	}

	if r.QAPairs > 0 {
		var missing []string
		for _, c := range categories {
			if categoryCounts[c] == 0 {
				missing = append(missing, c)
			}
		}
		if len(missing) > 0 {
			r.Warnings = append(r.Warnings, "categories with no QA pairs: "+strings.Join(missing, ", "))
		}
	}

	orphans := 0
	for stem := range validKnowledge {
		if !qaStems[stem] {
			orphans++
		}
	}
	if orphans > 0 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("%d knowledge files have no QA file", orphans))
	}
	return r, nil
}

// check schema-validates the file at path and decodes it into v. It
// returns a non-empty reason when the file is unreadable or invalid.
func check(path string, schema *gojsonschema.Schema, v any) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "failed to load: " + err.Error()
	}

	res, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return "failed to load: " + err.Error()
	}
	if !res.Valid() {
		var msgs []string
		for i, e := range res.Errors() {
			if i == maxSchemaErrors {
				msgs = append(msgs, fmt.Sprintf("and %d more", len(res.Errors())-maxSchemaErrors))
				break
			}
			msgs = append(msgs, e.String())
		}
		return "schema: " + strings.Join(msgs, "; ")
	}

	if err := artifact.ReadJSON(path, v); err != nil {
		return "failed to load: " + err.Error()
	}
	return ""
}

// Fix deletes every problem file so the next run reprocesses it, and
// returns the paths removed. Files already gone are skipped.
func (r *Report) Fix() ([]string, error) {
	var removed []string
	for _, p := range r.Problems {
		if err := os.Remove(p.Path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return removed, fmt.Errorf("removing %s: %w", p.Path, err)
		}
		removed = append(removed, p.Path)
	}
	return removed, nil
}
