// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/pdiddy/qa-extractor/internal/artifact"
	"github.com/pdiddy/qa-extractor/internal/llm"
	"github.com/pdiddy/qa-extractor/pkg/types"
)

// failMarker in a document makes the fake gateway fail its extraction.
const failMarker = "FAIL-ME"

var testCategories = []string{
	"Materials Design & Synthesis",
	"Performance Metrics",
	"Structure-Property Relationships",
	"Device Architecture & Physics",
}

// fakeGateway answers each prompt kind with canned JSON and counts calls.
type fakeGateway struct {
	extractCalls  int
	generateCalls int
	crossCalls    int
	extracted     []string
	usage         types.TokenUsage
	requests      int
}

func (f *fakeGateway) ChatJSON(_ context.Context, messages []llm.Message, out any) (*llm.Response, error) {
	prompt := messages[len(messages)-1].Content
	var body string
	switch {
	case strings.HasPrefix(prompt, "Extract knowledge points from"):
		f.extractCalls++
		f.extracted = append(f.extracted, heading(prompt))
		if strings.Contains(prompt, failMarker) {
			return nil, &llm.APIError{StatusCode: 500, Message: "upstream exploded"}
		}
		body = knowledgeBody(10)
	case strings.HasPrefix(prompt, "Write cross-document question-answer pairs"):
		f.crossCalls++
		body = qaBody(4, true)
	case strings.HasPrefix(prompt, "Write question-answer pairs from"):
		f.generateCalls++
		body = qaBody(10, false)
	default:
		return nil, fmt.Errorf("unexpected prompt %q", prompt[:min(40, len(prompt))])
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return nil, err
	}
	u := types.TokenUsage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150}
	f.usage = f.usage.Add(u)
	f.requests++
	return &llm.Response{Content: body, Usage: u}, nil
}

func (f *fakeGateway) Snapshot() types.TokenSnapshot {
	return types.TokenSnapshot{Usage: f.usage, RequestCount: f.requests}
}

func (f *fakeGateway) calls() int {
	return f.extractCalls + f.generateCalls + f.crossCalls
}

func heading(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimPrefix(line, "# ")
		}
	}
	return ""
}

func knowledgeBody(n int) string {
	points := make([]map[string]any, n)
	for i := range points {
		points[i] = map[string]any{
			"category":   testCategories[i%len(testCategories)],
			"content":    fmt.Sprintf("Point %d", i),
			"evidence":   "quoted",
			"complexity": "single-hop",
			"keywords":   []string{"k"},
		}
	}
	b, _ := json.Marshal(map[string]any{"knowledge_points": points})
	return string(b)
}

func qaBody(n int, cross bool) string {
	pairs := make([]map[string]any, n)
	for i := range pairs {
		p := map[string]any{
			"question":       fmt.Sprintf("Question %d?", i),
			"answer":         fmt.Sprintf("Answer %d.", i),
			"category":       testCategories[i%len(testCategories)],
			"difficulty":     "medium",
			"reasoning_type": "single-hop",
		}
		if cross {
			p["source_papers"] = []string{"Paper A", "Paper B"}
		}
		pairs[i] = p
	}
	b, _ := json.Marshal(map[string]any{"qa_pairs": pairs})
	return string(b)
}

type fixture struct {
	cfg     types.Config
	gateway *fakeGateway
}

func newFixture(t *testing.T, docs ...string) *fixture {
	t.Helper()
	root := t.TempDir()
	cfg := types.DefaultConfig()
	cfg.Categories = testCategories
	cfg.Pipeline.InputDir = filepath.Join(root, "MDs")
	cfg.Pipeline.OutputDir = filepath.Join(root, "output")
	cfg.Pipeline.BatchSize = 1
	cfg.Pipeline.CheckpointInterval = 1
	require.NoError(t, os.MkdirAll(cfg.Pipeline.InputDir, 0o755))
	for _, name := range docs {
		writeDoc(t, cfg, name, "")
	}
	return &fixture{cfg: cfg, gateway: &fakeGateway{}}
}

// writeDoc writes paper_<name>.md titled "Paper <NAME>".
func writeDoc(t *testing.T, cfg types.Config, name, extra string) {
	t.Helper()
	body := fmt.Sprintf("# Paper %s\n\nBody of paper %s.\n%s\n", strings.ToUpper(name), name, extra)
	path := filepath.Join(cfg.Pipeline.InputDir, "paper_"+name+".md")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func (f *fixture) pipeline(opts ...Option) *Pipeline {
	return New(f.cfg, f.gateway, append([]Option{WithRunID("test-run")}, opts...)...)
}

func TestRun_EndToEnd(t *testing.T) {
	f := newFixture(t, "a", "b", "c")
	p := f.pipeline()

	sum, err := p.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Papers)
	assert.Equal(t, 30, sum.KnowledgePoints)
	assert.Equal(t, 4, sum.CrossDocPairs)
	assert.Equal(t, 34, sum.QAPairs)
	assert.Equal(t, StageSummary{Processed: 3}, sum.Extract)
	assert.Equal(t, StageSummary{Processed: 3}, sum.Generate)
	assert.Equal(t, CrossDocDone, sum.CrossDoc)
	assert.Equal(t, 7, sum.Tokens.RequestCount)
	assert.Equal(t, 3, f.gateway.extractCalls)
	assert.Equal(t, 3, f.gateway.generateCalls)
	assert.Equal(t, 1, f.gateway.crossCalls)

	cp := p.Checkpoint().Load()
	require.NotNil(t, cp)
	assert.Equal(t, types.StageComplete, cp.Stage)
	assert.Equal(t, []string{"paper_a", "paper_b", "paper_c", types.CrossDocID}, cp.ProcessedFiles)
	assert.Equal(t, 30, cp.KnowledgeCount)
	assert.Equal(t, 34, cp.QACount)
	assert.Equal(t, "test-run", cp.RunID)
	assert.Empty(t, cp.Errors)

	layout := p.Layout()
	for _, id := range []string{"paper_a", "paper_b", "paper_c"} {
		ex, err := artifact.LoadExtraction(layout.KnowledgePath(id))
		require.NoError(t, err)
		assert.Len(t, ex.KnowledgePoints, 10)
		assert.Equal(t, "Paper "+strings.ToUpper(strings.TrimPrefix(id, "paper_")), ex.PaperTitle)

		gen, err := artifact.LoadGeneration(layout.QAPath(id))
		require.NoError(t, err)
		assert.Len(t, gen.QAPairs, 10)
	}
	cross, err := artifact.LoadGeneration(layout.CrossDocPath())
	require.NoError(t, err)
	assert.Equal(t, "Paper A | Paper B", cross.QAPairs[0].SourceTitle)
	assert.FileExists(t, layout.StatsPath(TokenStatsFile))
}

func TestExtract_LeavesStageAtExtract(t *testing.T) {
	f := newFixture(t, "a", "b")
	p := f.pipeline()

	results, sum, err := p.Extract(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, 2, sum.Processed)

	cp := p.Checkpoint().Load()
	require.NotNil(t, cp)
	assert.Equal(t, types.StageExtract, cp.Stage)
	assert.Equal(t, 20, cp.KnowledgeCount)
	assert.Equal(t, 0, f.gateway.generateCalls)
}

func TestExtract_ResumeReprocessesDeletedArtifact(t *testing.T) {
	f := newFixture(t, "a", "b")
	_, _, err := f.pipeline().Extract(context.Background(), false)
	require.NoError(t, err)

	p := f.pipeline()
	require.NoError(t, os.Remove(p.Layout().KnowledgePath("paper_b")))
	f.gateway.extracted = nil

	results, sum, err := p.Extract(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, StageSummary{Processed: 1, Skipped: 1}, sum)
	assert.Equal(t, []string{"Paper B"}, f.gateway.extracted)
	assert.Len(t, results, 2)

	cp := p.Checkpoint().Load()
	require.NotNil(t, cp)
	assert.Equal(t, []string{"paper_a", "paper_b"}, cp.ProcessedFiles)
	assert.Equal(t, 20, cp.KnowledgeCount)
}

func TestExtract_ResumeReprocessesCorruptArtifact(t *testing.T) {
	f := newFixture(t, "a", "b")
	_, _, err := f.pipeline().Extract(context.Background(), false)
	require.NoError(t, err)

	p := f.pipeline()
	require.NoError(t, os.WriteFile(p.Layout().KnowledgePath("paper_a"), []byte(`{"paper_id": `), 0o644))
	f.gateway.extracted = nil

	_, sum, err := p.Extract(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, StageSummary{Processed: 1, Skipped: 1}, sum)
	assert.Equal(t, []string{"Paper A"}, f.gateway.extracted)
}

func TestExtract_FailureIsRecordedAndRetriedOnResume(t *testing.T) {
	f := newFixture(t, "a")
	writeDoc(t, f.cfg, "b", failMarker)

	p := f.pipeline()
	results, sum, err := p.Extract(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, StageSummary{Processed: 1, Failed: 1}, sum)
	require.Len(t, results, 2)
	assert.True(t, results[1].TokenUsage.Failed())

	stored, err := artifact.LoadExtraction(p.Layout().KnowledgePath("paper_b"))
	require.NoError(t, err)
	assert.Contains(t, stored.TokenUsage.Error, "upstream exploded")

	cp := p.Checkpoint().Load()
	require.NotNil(t, cp)
	assert.Contains(t, cp.ProcessedFiles, "paper_b")
	require.Len(t, cp.Errors, 1)
	assert.True(t, strings.HasPrefix(cp.Errors[0], "extract paper_b: "))

	writeDoc(t, f.cfg, "b", "")
	f.gateway.extracted = nil
	_, sum, err = f.pipeline().Extract(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, StageSummary{Processed: 1, Skipped: 1}, sum)
	assert.Equal(t, []string{"Paper B"}, f.gateway.extracted)
}

func TestExtract_WithoutResumeReprocessesEverything(t *testing.T) {
	f := newFixture(t, "a", "b")
	_, _, err := f.pipeline().Extract(context.Background(), false)
	require.NoError(t, err)

	_, sum, err := f.pipeline().Extract(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, StageSummary{Processed: 2}, sum)
	assert.Equal(t, 4, f.gateway.extractCalls)
}

func TestRun_ResumeAfterCompleteMakesNoCalls(t *testing.T) {
	f := newFixture(t, "a", "b")
	_, err := f.pipeline().Run(context.Background(), false)
	require.NoError(t, err)
	before := f.gateway.calls()

	sum, err := f.pipeline().Run(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, before, f.gateway.calls())
	assert.Equal(t, StageSummary{Skipped: 2}, sum.Extract)
	assert.Equal(t, StageSummary{Skipped: 2}, sum.Generate)
	assert.Equal(t, CrossDocReused, sum.CrossDoc)
	assert.Equal(t, 2*10+4, sum.QAPairs)
}

func TestRun_WithoutResumeRegeneratesQA(t *testing.T) {
	f := newFixture(t, "a", "b")
	_, err := f.pipeline().Run(context.Background(), false)
	require.NoError(t, err)

	sum, err := f.pipeline().Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 4, f.gateway.extractCalls)
	assert.Equal(t, 4, f.gateway.generateCalls)
	assert.Equal(t, StageSummary{Processed: 2}, sum.Extract)
	assert.Equal(t, StageSummary{Processed: 2}, sum.Generate)
}

func TestRunGenerate_ReusesIntactQAFiles(t *testing.T) {
	f := newFixture(t, "a", "b")
	_, err := f.pipeline().Run(context.Background(), false)
	require.NoError(t, err)

	sum, err := f.pipeline().RunGenerate(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, f.gateway.generateCalls)
	assert.Equal(t, StageSummary{Skipped: 2}, sum.Generate)
}

func TestGenerate_RegeneratesFailedQAFile(t *testing.T) {
	f := newFixture(t, "a", "b")
	p := f.pipeline()
	extractions, _, err := p.Extract(context.Background(), false)
	require.NoError(t, err)

	failed := &types.GenerationResult{
		PaperID:    "paper_a",
		PaperTitle: "Paper A",
		QAPairs:    []types.QAPair{},
		TokenUsage: types.ErrorUsage("timeout"),
	}
	require.NoError(t, artifact.WriteJSON(p.Layout().QAPath("paper_a"), failed))

	_, sum, err := p.Generate(context.Background(), extractions, true)
	require.NoError(t, err)
	assert.Equal(t, StageSummary{Processed: 2}, sum)
	assert.Equal(t, 2, f.gateway.generateCalls)

	_, sum, err = p.Generate(context.Background(), extractions, true)
	require.NoError(t, err)
	assert.Equal(t, StageSummary{Skipped: 2}, sum)
	assert.Equal(t, 2, f.gateway.generateCalls)
}

func TestGenerate_EmptyExtractionFailsWithoutCall(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline()
	require.NoError(t, p.Layout().EnsureDirs())

	empty := &types.ExtractionResult{PaperID: "paper_x", PaperTitle: "Paper X"}
	results, sum, err := p.Generate(context.Background(), []*types.ExtractionResult{empty}, false)
	require.NoError(t, err)
	assert.Equal(t, StageSummary{Failed: 1}, sum)
	assert.Equal(t, 0, f.gateway.generateCalls)
	assert.Equal(t, "No knowledge points available", results[0].TokenUsage.Error)

	cp := p.Checkpoint().Current()
	require.NotNil(t, cp)
	assert.Equal(t, []string{"generate paper_x: No knowledge points available"}, cp.Errors)
}

func TestCrossDoc_Outcomes(t *testing.T) {
	tests := []struct {
		name    string
		docs    []string
		enabled bool
		want    CrossDocOutcome
		calls   int
	}{
		{name: "disabled", docs: []string{"a", "b"}, enabled: false, want: CrossDocDisabled},
		{name: "one paper", docs: []string{"a"}, enabled: true, want: CrossDocTooFew},
		{name: "two papers", docs: []string{"a", "b"}, enabled: true, want: CrossDocDone, calls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.docs...)
			f.cfg.QASettings.EnableCrossDoc = tt.enabled

			sum, err := f.pipeline().Run(context.Background(), false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sum.CrossDoc)
			assert.Equal(t, tt.calls, f.gateway.crossCalls)
		})
	}
}

func TestCrossDoc_ExistingErrorMarkedFileIsKept(t *testing.T) {
	f := newFixture(t, "a", "b")
	p := f.pipeline()
	require.NoError(t, p.Layout().EnsureDirs())
	marked := &types.GenerationResult{
		PaperID:    types.CrossDocID,
		PaperTitle: types.CrossDocTitle,
		QAPairs:    []types.QAPair{},
		TokenUsage: types.ErrorUsage("rate limited"),
	}
	require.NoError(t, artifact.WriteJSON(p.Layout().CrossDocPath(), marked))

	sum, err := p.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, CrossDocReused, sum.CrossDoc)
	assert.Equal(t, 0, f.gateway.crossCalls)
}

func TestRun_MissingInputDir(t *testing.T) {
	f := newFixture(t)
	f.cfg.Pipeline.InputDir = filepath.Join(t.TempDir(), "nope")

	_, err := f.pipeline().Run(context.Background(), false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInputDirMissing))
	assert.Equal(t, 0, f.gateway.calls())
}

func TestRun_CanceledContext(t *testing.T) {
	f := newFixture(t, "a", "b")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.pipeline().Run(ctx, false)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, f.gateway.calls())
}

func TestRunGenerate_UsesExtractionsOnDisk(t *testing.T) {
	f := newFixture(t, "a", "b")
	_, _, err := f.pipeline().Extract(context.Background(), false)
	require.NoError(t, err)

	p := f.pipeline()
	sum, err := p.RunGenerate(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Papers)
	assert.Equal(t, 20, sum.QAPairs)
	assert.Equal(t, CrossDocDisabled, sum.CrossDoc)
	assert.Equal(t, 2, f.gateway.generateCalls)
	assert.Equal(t, 0, f.gateway.crossCalls)

	cp := p.Checkpoint().Load()
	require.NotNil(t, cp)
	assert.Equal(t, types.StageGenerate, cp.Stage)
	assert.Equal(t, 20, cp.QACount)
}

func TestRun_ProgressOutput(t *testing.T) {
	f := newFixture(t, "a")
	writeDoc(t, f.cfg, "b", failMarker)
	var out strings.Builder

	_, err := f.pipeline(WithOutput(&out)).Run(context.Background(), false)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "extracted paper_a (10 points)")
	assert.Contains(t, out.String(), "failed    paper_b: ")
	assert.Contains(t, out.String(), "generated paper_a (10 pairs)")
}

func TestRun_Spans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	f := newFixture(t, "a", "b")
	_, err := f.pipeline(WithTracerProvider(tp)).Run(context.Background(), false)
	require.NoError(t, err)

	counts := map[string]int{}
	for _, s := range exporter.GetSpans() {
		counts[s.Name]++
	}
	assert.Equal(t, 1, counts["pipeline.run"])
	assert.Equal(t, 1, counts["pipeline.extract"])
	assert.Equal(t, 2, counts["pipeline.extract.item"])
	assert.Equal(t, 1, counts["pipeline.generate"])
	assert.Equal(t, 2, counts["pipeline.generate.item"])
	assert.Equal(t, 1, counts["pipeline.cross_doc"])
}
