// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns one source document into a validated set of
// categorized knowledge points. Failures are recorded in the result,
// never returned, so a run can move on to the next document.
package extract

import (
	"context"
	"encoding/json"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pdiddy/qa-extractor/internal/category"
	"github.com/pdiddy/qa-extractor/internal/convert"
	"github.com/pdiddy/qa-extractor/internal/llm"
	"github.com/pdiddy/qa-extractor/pkg/types"
)

// UnknownTitle is used when a document has no level-one heading.
const UnknownTitle = "Unknown Title"

const (
	// DefaultMaxChars bounds the text sent to the model.
	DefaultMaxChars = 50000

	maxKeyLength      = 100
	titleScanLines    = 20
	figurePlaceholder = "[Figure: $1]"
)

var (
	nonWord   = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	spaceRun  = regexp.MustCompile(`\s+`)
	blankRun  = regexp.MustCompile(`\n{3,}`)
	imageLink = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
)

// ChatClient is the part of the LLM gateway the extractor needs.
type ChatClient interface {
	ChatJSON(ctx context.Context, messages []llm.Message, out any) (*llm.Response, error)
}

// Extractor runs Stage 1 for single documents.
type Extractor struct {
	client     ChatClient
	converter  convert.Converter
	categories []string
	maxChars   int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithConverter replaces the document reader.
func WithConverter(c convert.Converter) Option {
	return func(e *Extractor) { e.converter = c }
}

// WithMaxChars sets the content budget. Values <= 0 keep the default.
func WithMaxChars(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxChars = n
		}
	}
}

// New returns an Extractor that validates against categories.
func New(client ChatClient, categories []string, opts ...Option) *Extractor {
	e := &Extractor{
		client:     client,
		converter:  convert.DefaultRegistry(),
		categories: categories,
		maxChars:   DefaultMaxChars,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// candidate is a knowledge point as the model reports it.
type candidate struct {
	Category   string   `json:"category"`
	Content    string   `json:"content"`
	Evidence   string   `json:"evidence"`
	Complexity string   `json:"complexity"`
	Keywords   []string `json:"keywords"`
}

// response is the JSON body the extraction prompt asks for. Points are
// decoded one at a time so a malformed point does not sink the others.
type response struct {
	PaperTitle      any               `json:"paper_title"`
	KnowledgePoints []json.RawMessage `json:"knowledge_points"`
}

// ExtractFile reads the document at path and extracts its knowledge
// points. Read failures and LLM failures produce an error-marked result.
func (e *Extractor) ExtractFile(ctx context.Context, path string) *types.ExtractionResult {
	result := &types.ExtractionResult{
		PaperID:         PaperID(path),
		PaperTitle:      UnknownTitle,
		SourceFile:      path,
		KnowledgePoints: []types.KnowledgePoint{},
	}

	text, err := e.converter.Convert(path)
	if err != nil {
		result.TokenUsage = types.ErrorUsage(err.Error())
		return result
	}
	result.PaperTitle = Title(text)

	messages, err := buildMessages(e.categories, Preprocess(text, e.maxChars))
	if err != nil {
		result.TokenUsage = types.ErrorUsage(err.Error())
		return result
	}

	var raw response
	resp, err := e.client.ChatJSON(ctx, messages, &raw)
	if err != nil {
		result.TokenUsage = types.ErrorUsage(err.Error())
		return result
	}

	if t, ok := raw.PaperTitle.(string); ok && strings.TrimSpace(t) != "" {
		result.PaperTitle = strings.TrimSpace(t)
	}
	cands, _ := llm.DecodeEach[candidate](raw.KnowledgePoints)
	result.KnowledgePoints = e.validate(cands)
	result.TokenUsage = types.UsageOf(resp.Usage)
	return result
}

// validate keeps candidates with content and a recognizable category,
// remapping near-miss categories to their canonical names.
func (e *Extractor) validate(cands []candidate) []types.KnowledgePoint {
	points := make([]types.KnowledgePoint, 0, len(cands))
	for _, c := range cands {
		if strings.TrimSpace(c.Content) == "" || strings.TrimSpace(c.Category) == "" {
			continue
		}
		cat, ok := category.Match(c.Category, e.categories)
		if !ok {
			continue
		}

		complexity := types.Complexity(c.Complexity)
		if !complexity.Valid() {
			complexity = types.SingleHop
		}
		keywords := c.Keywords
		if keywords == nil {
			keywords = []string{}
		}

		points = append(points, types.KnowledgePoint{
			Category:   cat,
			Content:    c.Content,
			Evidence:   c.Evidence,
			Complexity: complexity,
			Keywords:   keywords,
		})
	}
	return points
}

// PaperID derives the stable key for a document from its file name:
// punctuation removed, whitespace runs turned into underscores, lower
// case, at most 100 characters.
func PaperID(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	s := nonWord.ReplaceAllString(stem, "")
	s = spaceRun.ReplaceAllString(s, "_")
	s = strings.ToLower(s)
	if r := []rune(s); len(r) > maxKeyLength {
		s = string(r[:maxKeyLength])
	}
	return s
}

// Title returns the first "# " heading within the first 20 lines, or
// UnknownTitle.
func Title(content string) string {
	lines := strings.SplitN(content, "\n", titleScanLines+1)
	for i, line := range lines {
		if i >= titleScanLines {
			break
		}
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return UnknownTitle
}

// Preprocess collapses runs of blank lines, replaces image embeds with a
// placeholder that keeps the alt text, and cuts the text to maxChars
// characters. maxChars <= 0 disables the cut.
func Preprocess(content string, maxChars int) string {
	s := blankRun.ReplaceAllString(content, "\n\n")
	s = imageLink.ReplaceAllString(s, figurePlaceholder)
	if maxChars > 0 {
		if r := []rune(s); len(r) > maxChars {
			s = string(r[:maxChars])
		}
	}
	return strings.TrimSpace(s)
}
