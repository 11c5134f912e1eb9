// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences extraction, generation and cross-document
// generation over an input directory. Items run one at a time in path
// order. After every item the result is written and the checkpoint
// updated, so an interrupted run resumes at the next item. A result is
// reused on resume only when it was recorded, its file exists, and the
// file loads cleanly with a non-empty result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pdiddy/qa-extractor/internal/artifact"
	"github.com/pdiddy/qa-extractor/internal/checkpoint"
	"github.com/pdiddy/qa-extractor/internal/extract"
	"github.com/pdiddy/qa-extractor/internal/generate"
	"github.com/pdiddy/qa-extractor/pkg/types"
)

const tracerName = "github.com/pdiddy/qa-extractor/internal/pipeline"

// TokenStatsFile is written under stats/ when token stats are enabled.
const TokenStatsFile = "token_stats.json"

// ErrInputDirMissing is returned before any work when the input
// directory does not exist.
var ErrInputDirMissing = errors.New("input directory does not exist")

// Gateway is the LLM client the pipeline drives.
type Gateway interface {
	extract.ChatClient
	Snapshot() types.TokenSnapshot
}

// Pipeline runs the stages for one configuration.
type Pipeline struct {
	cfg       types.Config
	layout    artifact.Layout
	client    Gateway
	extractor *extract.Extractor
	generator *generate.Generator
	store     *checkpoint.Store
	logger    *slog.Logger
	out       io.Writer
	tracer    trace.Tracer
	now       func() time.Time

	runID    string
	genOpts  []generate.Option
	extOpts  []extract.Option
	stage    types.Stage
	progress int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithOutput sets where per-item progress lines go.
func WithOutput(w io.Writer) Option {
	return func(p *Pipeline) { p.out = w }
}

// WithTracerProvider sets the OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Pipeline) { p.tracer = tp.Tracer(tracerName) }
}

// WithRunID stamps the checkpoint with id.
func WithRunID(id string) Option {
	return func(p *Pipeline) { p.runID = id }
}

// WithGeneratorOptions passes options to the Stage 2 generator.
func WithGeneratorOptions(opts ...generate.Option) Option {
	return func(p *Pipeline) { p.genOpts = append(p.genOpts, opts...) }
}

// WithExtractorOptions passes options to the Stage 1 extractor.
func WithExtractorOptions(opts ...extract.Option) Option {
	return func(p *Pipeline) { p.extOpts = append(p.extOpts, opts...) }
}

// New builds a Pipeline over cfg that calls the model through client.
func New(cfg types.Config, client Gateway, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:    cfg,
		layout: artifact.NewLayout(cfg.Pipeline.OutputDir),
		client: client,
		logger: slog.Default(),
		out:    io.Discard,
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	extOpts := append([]extract.Option{extract.WithMaxChars(cfg.Pipeline.MaxContentChars)}, p.extOpts...)
	p.extractor = extract.New(client, cfg.Categories, extOpts...)
	genOpts := append([]generate.Option{generate.WithLogger(p.logger)}, p.genOpts...)
	p.generator = generate.New(client, cfg.Categories, cfg.QASettings, genOpts...)
	p.store = checkpoint.NewStore(cfg.Pipeline.OutputDir, p.runID)
	return p
}

// Layout returns the output layout.
func (p *Pipeline) Layout() artifact.Layout { return p.layout }

// Checkpoint returns the checkpoint store.
func (p *Pipeline) Checkpoint() *checkpoint.Store { return p.store }

// Run executes every stage. With resume, work recorded in an existing
// checkpoint is reused when its artifact is intact; without it the
// checkpoint is replaced and every document is extracted again.
func (p *Pipeline) Run(ctx context.Context, resume bool) (*Summary, error) {
	start := p.now()
	if err := p.checkInput(); err != nil {
		return nil, err
	}
	if err := p.layout.EnsureDirs(); err != nil {
		return nil, err
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(attribute.Bool("pipeline.resume", resume)))
	defer span.End()

	p.stage = ""
	extractions, exSum, err := p.Extract(ctx, resume)
	if err != nil {
		return nil, err
	}
	generations, genSum, err := p.Generate(ctx, extractions, resume)
	if err != nil {
		return nil, err
	}
	cross, outcome, err := p.CrossDoc(ctx, extractions, countPairs(generations))
	if err != nil {
		return nil, err
	}
	if err := p.complete(); err != nil {
		return nil, err
	}

	summary := p.summarize(extractions, generations, cross, start)
	summary.Extract, summary.Generate, summary.CrossDoc = exSum, genSum, outcome
	span.SetAttributes(
		attribute.Int("pipeline.papers", summary.Papers),
		attribute.Int("pipeline.qa_pairs", summary.QAPairs),
	)
	return summary, nil
}

// RunGenerate runs Stage 2 over the extraction results already on disk,
// followed by Stage 3 when crossDoc is set. Intact QA files are reused.
func (p *Pipeline) RunGenerate(ctx context.Context, crossDoc bool) (*Summary, error) {
	start := p.now()
	if err := p.layout.EnsureDirs(); err != nil {
		return nil, err
	}
	p.store.Load()
	p.stage = ""

	extractions, skipped, err := p.layout.LoadExtractions()
	if err != nil {
		return nil, err
	}
	for _, path := range skipped {
		p.logger.Warn("skipping unreadable knowledge file", "path", path)
	}

	generations, genSum, err := p.Generate(ctx, extractions, true)
	if err != nil {
		return nil, err
	}

	var cross *types.GenerationResult
	outcome := CrossDocDisabled
	if crossDoc {
		cross, outcome, err = p.CrossDoc(ctx, extractions, countPairs(generations))
		if err != nil {
			return nil, err
		}
		if err := p.complete(); err != nil {
			return nil, err
		}
	}

	summary := p.summarize(extractions, generations, cross, start)
	summary.Generate, summary.CrossDoc = genSum, outcome
	return summary, nil
}

// checkInput fails when the input directory is missing.
func (p *Pipeline) checkInput() error {
	info, err := os.Stat(p.cfg.Pipeline.InputDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrInputDirMissing, p.cfg.Pipeline.InputDir)
	}
	return nil
}

// advance moves the checkpoint to stage. Stages only move forward
// within a run.
func (p *Pipeline) advance(stage types.Stage) error {
	if p.stage != "" && !p.stage.Before(stage) {
		return nil
	}
	p.stage = stage
	p.logger.Info("stage started", "stage", stage)
	return p.store.Update(
		checkpoint.WithStage(stage),
		checkpoint.WithTokenStats(p.client.Snapshot()),
	)
}

func (p *Pipeline) complete() error {
	if err := p.advance(types.StageComplete); err != nil {
		return err
	}
	p.flushTokenStats()
	return nil
}

// tick logs progress every batch_size items and flushes token stats
// every checkpoint_interval items.
func (p *Pipeline) tick(stage types.Stage, done, total int) {
	p.progress++
	if n := p.cfg.Pipeline.BatchSize; n > 0 && (done%n == 0 || done == total) {
		p.logger.Info("progress", "stage", stage, "done", done, "total", total)
	}
	if n := p.cfg.Pipeline.CheckpointInterval; n > 0 && p.progress%n == 0 {
		p.flushTokenStats()
	}
}

// flushTokenStats writes the gateway snapshot to stats/token_stats.json.
func (p *Pipeline) flushTokenStats() {
	if !p.cfg.Monitoring.SaveTokenStats {
		return
	}
	path := p.layout.StatsPath(TokenStatsFile)
	if err := artifact.WriteJSON(path, p.client.Snapshot()); err != nil {
		p.logger.Warn("writing token stats", "path", path, "error", err)
	}
}

func countPoints(results []*types.ExtractionResult) int {
	n := 0
	for _, r := range results {
		n += len(r.KnowledgePoints)
	}
	return n
}

func countPairs(results []*types.GenerationResult) int {
	n := 0
	for _, r := range results {
		n += len(r.QAPairs)
	}
	return n
}
