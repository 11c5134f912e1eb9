// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pdiddy/qa-extractor/internal/artifact"
	"github.com/pdiddy/qa-extractor/internal/checkpoint"
	"github.com/pdiddy/qa-extractor/internal/convert"
	"github.com/pdiddy/qa-extractor/internal/extract"
	"github.com/pdiddy/qa-extractor/pkg/types"
)

// Extract runs Stage 1 over every document under the input directory.
// With resume, a document recorded in the checkpoint whose knowledge
// file is intact is loaded instead of extracted again.
func (p *Pipeline) Extract(ctx context.Context, resume bool) ([]*types.ExtractionResult, StageSummary, error) {
	var sum StageSummary
	if err := p.checkInput(); err != nil {
		return nil, sum, err
	}
	if err := p.layout.EnsureDirs(); err != nil {
		return nil, sum, err
	}
	ctx, span := p.tracer.Start(ctx, "pipeline.extract")
	defer span.End()

	files, err := convert.Discover(p.cfg.Pipeline.InputDir, p.cfg.Pipeline.Extensions)
	if err != nil {
		return nil, sum, err
	}

	processed := map[string]bool{}
	if resume {
		if cp := p.store.Load(); cp != nil {
			for _, k := range cp.ProcessedFiles {
				processed[k] = true
			}
			p.logger.Info("resuming from checkpoint", "stage", cp.Stage, "processed", len(cp.ProcessedFiles))
		}
	}
	if err := p.advance(types.StageExtract); err != nil {
		return nil, sum, err
	}

	results := make([]*types.ExtractionResult, 0, len(files))
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return results, sum, err
		}

		key := extract.PaperID(file)
		path := p.layout.KnowledgePath(key)
		if processed[key] {
			if r, ok := artifact.ReusableExtraction(path); ok {
				results = append(results, r)
				sum.Skipped++
				fmt.Fprintf(p.out, "skipped   %s\n", key)
				continue
			}
		}

		r := p.extractOne(ctx, file)
		if err := artifact.WriteJSON(path, r); err != nil {
			return results, sum, fmt.Errorf("writing %s: %w", path, err)
		}
		results = append(results, r)

		fields := []checkpoint.Field{
			checkpoint.WithStage(types.StageExtract),
			checkpoint.WithProcessedFile(key),
			checkpoint.WithTokenStats(p.client.Snapshot()),
			checkpoint.WithKnowledgeCount(countPoints(results)),
		}
		if r.Failed() {
			sum.Failed++
			msg := failureReason(r.TokenUsage, "no knowledge points extracted")
			fields = append(fields, checkpoint.WithError(fmt.Sprintf("extract %s: %s", key, msg)))
			fmt.Fprintf(p.out, "failed    %s: %s\n", key, msg)
			p.logger.Warn("extraction failed", "paper_id", key, "error", msg)
		} else {
			sum.Processed++
			fmt.Fprintf(p.out, "extracted %s (%d points)\n", key, len(r.KnowledgePoints))
		}
		if err := p.store.Update(fields...); err != nil {
			return results, sum, err
		}
		p.tick(types.StageExtract, i+1, len(files))
	}

	p.flushTokenStats()
	span.SetAttributes(
		attribute.Int("pipeline.processed", sum.Processed),
		attribute.Int("pipeline.skipped", sum.Skipped),
		attribute.Int("pipeline.failed", sum.Failed),
	)
	return results, sum, nil
}

func (p *Pipeline) extractOne(ctx context.Context, file string) *types.ExtractionResult {
	ctx, span := p.tracer.Start(ctx, "pipeline.extract.item", trace.WithAttributes(attribute.String("paper.source", file)))
	defer span.End()
	r := p.extractor.ExtractFile(ctx, file)
	span.SetAttributes(
		attribute.String("paper.id", r.PaperID),
		attribute.Int("paper.knowledge_points", len(r.KnowledgePoints)),
		attribute.Bool("paper.failed", r.Failed()),
	)
	return r
}

// Generate runs Stage 2 for each extraction result, in order. With
// resume, a paper whose QA file already exists and is intact is loaded
// instead; without it every paper is generated again.
func (p *Pipeline) Generate(ctx context.Context, extractions []*types.ExtractionResult, resume bool) ([]*types.GenerationResult, StageSummary, error) {
	var sum StageSummary
	ctx, span := p.tracer.Start(ctx, "pipeline.generate")
	defer span.End()

	if err := p.advance(types.StageGenerate); err != nil {
		return nil, sum, err
	}
	existing := map[string]bool{}
	if resume {
		stems, err := p.layout.QAStems()
		if err != nil {
			return nil, sum, err
		}
		existing = stems
	}

	results := make([]*types.GenerationResult, 0, len(extractions))
	for i, ex := range extractions {
		if err := ctx.Err(); err != nil {
			return results, sum, err
		}

		key := ex.PaperID
		path := p.layout.QAPath(key)
		if existing[key] {
			if r, ok := artifact.ReusableGeneration(path); ok {
				results = append(results, r)
				sum.Skipped++
				fmt.Fprintf(p.out, "skipped   %s\n", key)
				continue
			}
		}

		r := p.generateOne(ctx, ex)
		if err := artifact.WriteJSON(path, r); err != nil {
			return results, sum, fmt.Errorf("writing %s: %w", path, err)
		}
		results = append(results, r)

		fields := []checkpoint.Field{
			checkpoint.WithStage(types.StageGenerate),
			checkpoint.WithProcessedFile(key),
			checkpoint.WithTokenStats(p.client.Snapshot()),
			checkpoint.WithQACount(countPairs(results)),
		}
		if r.Failed() {
			sum.Failed++
			msg := failureReason(r.TokenUsage, "no QA pairs generated")
			fields = append(fields, checkpoint.WithError(fmt.Sprintf("generate %s: %s", key, msg)))
			fmt.Fprintf(p.out, "failed    %s: %s\n", key, msg)
			p.logger.Warn("generation failed", "paper_id", key, "error", msg)
		} else {
			sum.Processed++
			fmt.Fprintf(p.out, "generated %s (%d pairs)\n", key, len(r.QAPairs))
		}
		if err := p.store.Update(fields...); err != nil {
			return results, sum, err
		}
		p.tick(types.StageGenerate, i+1, len(extractions))
	}

	p.flushTokenStats()
	span.SetAttributes(
		attribute.Int("pipeline.processed", sum.Processed),
		attribute.Int("pipeline.skipped", sum.Skipped),
		attribute.Int("pipeline.failed", sum.Failed),
	)
	return results, sum, nil
}

func (p *Pipeline) generateOne(ctx context.Context, ex *types.ExtractionResult) *types.GenerationResult {
	ctx, span := p.tracer.Start(ctx, "pipeline.generate.item", trace.WithAttributes(attribute.String("paper.id", ex.PaperID)))
	defer span.End()
	r := p.generator.FromExtraction(ctx, ex)
	span.SetAttributes(
		attribute.Int("paper.qa_pairs", len(r.QAPairs)),
		attribute.Bool("paper.failed", r.Failed()),
	)
	return r
}

// CrossDocOutcome reports what Stage 3 did.
type CrossDocOutcome string

const (
	CrossDocDisabled CrossDocOutcome = "disabled"
	CrossDocTooFew   CrossDocOutcome = "too_few_papers"
	CrossDocReused   CrossDocOutcome = "reused"
	CrossDocDone     CrossDocOutcome = "done"
	CrossDocFailed   CrossDocOutcome = "failed"
)

// CrossDoc runs Stage 3 when it is enabled and there are at least two
// extraction results. An existing cross-document file is reused as is.
// qaCount is the number of per-paper pairs already produced.
func (p *Pipeline) CrossDoc(ctx context.Context, extractions []*types.ExtractionResult, qaCount int) (*types.GenerationResult, CrossDocOutcome, error) {
	if !p.cfg.QASettings.EnableCrossDoc {
		return nil, CrossDocDisabled, nil
	}
	if len(extractions) < 2 {
		return nil, CrossDocTooFew, nil
	}

	path := p.layout.CrossDocPath()
	if r, err := artifact.LoadGeneration(path); err == nil {
		fmt.Fprintf(p.out, "skipped   %s\n", types.CrossDocID)
		return r, CrossDocReused, nil
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.cross_doc")
	defer span.End()

	if err := p.advance(types.StageCrossDoc); err != nil {
		return nil, "", err
	}

	r := p.generator.CrossDoc(ctx, extractions, 0)
	if err := artifact.WriteJSON(path, r); err != nil {
		return nil, "", fmt.Errorf("writing %s: %w", path, err)
	}

	fields := []checkpoint.Field{
		checkpoint.WithStage(types.StageCrossDoc),
		checkpoint.WithProcessedFile(types.CrossDocID),
		checkpoint.WithTokenStats(p.client.Snapshot()),
		checkpoint.WithQACount(qaCount + len(r.QAPairs)),
	}
	outcome := CrossDocDone
	if r.Failed() {
		outcome = CrossDocFailed
		msg := failureReason(r.TokenUsage, "no QA pairs generated")
		fields = append(fields, checkpoint.WithError(fmt.Sprintf("cross_doc: %s", msg)))
		fmt.Fprintf(p.out, "failed    %s: %s\n", types.CrossDocID, msg)
	} else {
		fmt.Fprintf(p.out, "generated %s (%d pairs)\n", types.CrossDocID, len(r.QAPairs))
	}
	span.SetAttributes(attribute.Int("pipeline.qa_pairs", len(r.QAPairs)))
	if err := p.store.Update(fields...); err != nil {
		return nil, "", err
	}
	return r, outcome, nil
}

func failureReason(u types.UsageRecord, fallback string) string {
	if u.Error != "" {
		return u.Error
	}
	return fallback
}
