// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package generate turns extracted knowledge points into question-answer
// pairs, per paper and across papers. Like extraction, failures are
// recorded in the returned result rather than returned as errors.
package generate

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/pdiddy/qa-extractor/internal/category"
	"github.com/pdiddy/qa-extractor/internal/llm"
	"github.com/pdiddy/qa-extractor/pkg/types"
)

// Error markers for results that never reached the model.
const (
	ErrNoKnowledgePoints = "No knowledge points available"
	ErrNotEnoughPapers   = "Not enough papers for cross-document QA"
)

const (
	// DefaultSampleSize bounds the papers sent to the cross-document prompt.
	DefaultSampleSize = 50

	// pointsPerPaper bounds each paper's share of the cross-document prompt.
	pointsPerPaper = 5

	// multiplePapers is the source title when the model names no sources.
	multiplePapers = "Multiple Papers"

	sourceSeparator = " | "
)

// ChatClient is the part of the LLM gateway the generator needs.
type ChatClient interface {
	ChatJSON(ctx context.Context, messages []llm.Message, out any) (*llm.Response, error)
}

// Sampler picks k distinct indices from [0, n).
type Sampler func(n, k int) []int

// RandomSampler returns a Sampler backed by r.
func RandomSampler(r *rand.Rand) Sampler {
	return func(n, k int) []int {
		return r.Perm(n)[:k]
	}
}

// Generator runs Stage 2.
type Generator struct {
	client     ChatClient
	categories []string
	minQA      int
	maxQA      int
	sampleSize int
	sample     Sampler
	logger     *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithSampler replaces the cross-document paper sampler.
func WithSampler(s Sampler) Option {
	return func(g *Generator) { g.sample = s }
}

// WithSeed makes cross-document sampling reproducible.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.sample = RandomSampler(rand.New(rand.NewPCG(uint64(seed), uint64(seed))))
	}
}

// WithLogger sets the logger for validation warnings.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// New returns a Generator bounded by settings. A non-zero
// settings.CrossDocSeed fixes the sampler.
func New(client ChatClient, categories []string, settings types.QASettings, opts ...Option) *Generator {
	g := &Generator{
		client:     client,
		categories: categories,
		minQA:      settings.MinQAPerPaper,
		maxQA:      settings.MaxQAPerPaper,
		sampleSize: settings.CrossDocSampleSize,
		sample: func(n, k int) []int {
			return rand.Perm(n)[:k]
		},
		logger: slog.Default(),
	}
	if g.sampleSize <= 0 {
		g.sampleSize = DefaultSampleSize
	}
	if settings.CrossDocSeed != 0 {
		WithSeed(settings.CrossDocSeed)(g)
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// candidate is a QA pair as the model reports it.
type candidate struct {
	Question      string   `json:"question"`
	Answer        string   `json:"answer"`
	Category      string   `json:"category"`
	Difficulty    string   `json:"difficulty"`
	ReasoningType string   `json:"reasoning_type"`
	SourcePapers  []string `json:"source_papers"`
}

// response is the JSON body both generation prompts ask for. Pairs are
// decoded one at a time so a malformed pair does not sink the others.
type response struct {
	QAPairs []json.RawMessage `json:"qa_pairs"`
}

func (r response) candidates() []candidate {
	cands, _ := llm.DecodeEach[candidate](r.QAPairs)
	return cands
}

// FromExtraction writes QA pairs for one paper. A result with no
// knowledge points is answered without calling the model.
func (g *Generator) FromExtraction(ctx context.Context, ex *types.ExtractionResult) *types.GenerationResult {
	result := &types.GenerationResult{
		PaperID:    ex.PaperID,
		PaperTitle: ex.PaperTitle,
		QAPairs:    []types.QAPair{},
	}
	if len(ex.KnowledgePoints) == 0 {
		result.TokenUsage = types.ErrorUsage(ErrNoKnowledgePoints)
		return result
	}

	messages, err := buildMessages(ex.PaperTitle, ex.KnowledgePoints)
	if err != nil {
		result.TokenUsage = types.ErrorUsage(err.Error())
		return result
	}

	var raw response
	resp, err := g.client.ChatJSON(ctx, messages, &raw)
	if err != nil {
		result.TokenUsage = types.ErrorUsage(err.Error())
		return result
	}

	pairs := g.validate(raw.candidates(), ex.PaperTitle)
	if g.maxQA > 0 && len(pairs) > g.maxQA {
		pairs = pairs[:g.maxQA]
	}
	if len(pairs) < g.minQA {
		g.logger.Warn("fewer QA pairs than requested",
			"paper_id", ex.PaperID, "got", len(pairs), "min", g.minQA)
	}

	result.QAPairs = pairs
	result.TokenUsage = types.UsageOf(resp.Usage)
	return result
}

// validate drops pairs without a question or answer and defaults the
// other fields.
func (g *Generator) validate(cands []candidate, sourceTitle string) []types.QAPair {
	pairs := make([]types.QAPair, 0, len(cands))
	for _, c := range cands {
		if strings.TrimSpace(c.Question) == "" || strings.TrimSpace(c.Answer) == "" {
			continue
		}

		difficulty := types.Difficulty(c.Difficulty)
		if !difficulty.Valid() {
			difficulty = types.Medium
		}
		reasoning := types.ReasoningType(c.ReasoningType)
		if !reasoning.Valid() {
			reasoning = types.ReasoningSingleHop
		}

		pairs = append(pairs, types.QAPair{
			Question:      c.Question,
			Answer:        c.Answer,
			Category:      category.MatchOrFirst(c.Category, g.categories),
			SourceTitle:   sourceTitle,
			Difficulty:    difficulty,
			ReasoningType: reasoning,
		})
	}
	return pairs
}

// CrossDoc writes QA pairs that span papers. When there are more
// results than sampleSize, a random subset is used; sampleSize <= 0
// uses the configured size. Each paper contributes at least one and at
// most five knowledge points, and at least two papers must contribute.
func (g *Generator) CrossDoc(ctx context.Context, results []*types.ExtractionResult, sampleSize int) *types.GenerationResult {
	out := &types.GenerationResult{
		PaperID:    types.CrossDocID,
		PaperTitle: types.CrossDocTitle,
		QAPairs:    []types.QAPair{},
	}

	if sampleSize <= 0 {
		sampleSize = g.sampleSize
	}
	if len(results) > sampleSize {
		idx := g.sample(len(results), sampleSize)
		sort.Ints(idx)
		picked := make([]*types.ExtractionResult, len(idx))
		for i, j := range idx {
			picked[i] = results[j]
		}
		results = picked
	}

	papers := groupByTitle(results)
	if len(papers) < 2 {
		out.TokenUsage = types.ErrorUsage(ErrNotEnoughPapers)
		return out
	}

	messages, err := buildCrossDocMessages(papers)
	if err != nil {
		out.TokenUsage = types.ErrorUsage(err.Error())
		return out
	}

	var raw response
	resp, err := g.client.ChatJSON(ctx, messages, &raw)
	if err != nil {
		out.TokenUsage = types.ErrorUsage(err.Error())
		return out
	}

	for _, c := range raw.candidates() {
		if strings.TrimSpace(c.Question) == "" || strings.TrimSpace(c.Answer) == "" {
			continue
		}
		source := multiplePapers
		if len(c.SourcePapers) > 0 {
			source = strings.Join(c.SourcePapers, sourceSeparator)
		}
		out.QAPairs = append(out.QAPairs, types.QAPair{
			Question:      c.Question,
			Answer:        c.Answer,
			Category:      category.MatchOrFirst(c.Category, g.categories),
			SourceTitle:   source,
			Difficulty:    types.Hard,
			ReasoningType: types.ReasoningCrossDoc,
		})
	}
	out.TokenUsage = types.UsageOf(resp.Usage)
	return out
}

// groupByTitle collects up to pointsPerPaper points for each titled
// paper with points. A repeated title replaces the earlier entry's
// points and keeps its position.
func groupByTitle(results []*types.ExtractionResult) orderedPapers {
	var papers orderedPapers
	pos := map[string]int{}
	for _, r := range results {
		if len(r.KnowledgePoints) == 0 {
			continue
		}
		points := r.KnowledgePoints
		if len(points) > pointsPerPaper {
			points = points[:pointsPerPaper]
		}
		if i, ok := pos[r.PaperTitle]; ok {
			papers[i].points = points
			continue
		}
		pos[r.PaperTitle] = len(papers)
		papers = append(papers, paperPoints{title: r.PaperTitle, points: points})
	}
	return papers
}
