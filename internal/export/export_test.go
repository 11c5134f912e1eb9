// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/qa-extractor/internal/artifact"
	"github.com/pdiddy/qa-extractor/pkg/types"
)

var exportedAt = time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)

func qa(q, cat string) types.QAPair {
	return types.QAPair{Question: q, Answer: "A.", Category: cat, Difficulty: types.Easy, ReasoningType: types.ReasoningSingleHop}
}

func seed(t *testing.T) artifact.Layout {
	t.Helper()
	l := artifact.NewLayout(t.TempDir())
	require.NoError(t, l.EnsureDirs())
	require.NoError(t, artifact.WriteJSON(l.QAPath("a"), &types.GenerationResult{
		PaperID: "a", PaperTitle: "Paper A",
		QAPairs: []types.QAPair{qa("Q1?", "Performance Metrics"), qa("Q2?", "Materials Design & Synthesis")},
	}))
	require.NoError(t, artifact.WriteJSON(l.QAPath("b"), &types.GenerationResult{
		PaperID: "b", PaperTitle: "Paper B", QAPairs: []types.QAPair{},
		TokenUsage: types.ErrorUsage("timeout"),
	}))
	require.NoError(t, artifact.WriteJSON(l.QAPath("c"), &types.GenerationResult{
		PaperID: "c", PaperTitle: "Paper C",
		QAPairs: []types.QAPair{qa("Q3?", "Performance Metrics")},
	}))
	return l
}

func TestCollect(t *testing.T) {
	ds, err := Collect(seed(t), "gpt-4o", exportedAt)
	require.NoError(t, err)

	require.Len(t, ds.QAPairs, 3)
	assert.Equal(t, []string{"qa_0001", "qa_0002", "qa_0003"}, []string{ds.QAPairs[0].ID, ds.QAPairs[1].ID, ds.QAPairs[2].ID})
	assert.Equal(t, "Q3?", ds.QAPairs[2].Question)
	assert.Equal(t, 3, ds.Meta.TotalQAPairs)
	assert.Equal(t, 2, ds.Meta.TotalPapers)
	assert.Equal(t, []string{"Paper A", "Paper C"}, ds.Meta.SourcePapers)
	assert.Equal(t, map[string]int{"Performance Metrics": 2, "Materials Design & Synthesis": 1}, ds.Meta.Categories)
	assert.Equal(t, "2026-05-06T07:08:09", ds.Meta.ExportedAt)
	assert.Len(t, ds.Meta.ExportID, 36)
}

func TestCollect_Empty(t *testing.T) {
	_, err := Collect(artifact.NewLayout(t.TempDir()), "", exportedAt)
	assert.ErrorIs(t, err, ErrNoQAPairs)
}

func TestWrite_JSON(t *testing.T) {
	l := seed(t)
	ds, err := Collect(l, "gpt-4o", exportedAt)
	require.NoError(t, err)

	paths, err := Write(l, ds, Options{})
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(l.FinalDir(), "qa_dataset.json")}, paths)

	var got Dataset
	require.NoError(t, artifact.ReadJSON(paths[0], &got))
	assert.Equal(t, ds.Meta.ExportID, got.Meta.ExportID)
	assert.Equal(t, ds.QAPairs, got.QAPairs)

	raw, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Materials Design & Synthesis")
}

func TestWrite_JSONLWithMeta(t *testing.T) {
	l := seed(t)
	ds, err := Collect(l, "gpt-4o", exportedAt)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "dataset.jsonl")
	paths, err := Write(l, ds, Options{Format: JSONL, Path: out})
	require.NoError(t, err)
	assert.Equal(t, []string{out, filepath.Join(filepath.Dir(out), "dataset.meta.json")}, paths)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	var lines []types.QAPair
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var qa types.QAPair
		require.NoError(t, json.Unmarshal(sc.Bytes(), &qa))
		lines = append(lines, qa)
	}
	assert.Equal(t, ds.QAPairs, lines)

	var meta Meta
	require.NoError(t, artifact.ReadJSON(paths[1], &meta))
	assert.Equal(t, 3, meta.TotalQAPairs)
}

func TestWrite_YAML(t *testing.T) {
	l := seed(t)
	ds, err := Collect(l, "gpt-4o", exportedAt)
	require.NoError(t, err)

	paths, err := Write(l, ds, Options{Format: YAML})
	require.NoError(t, err)
	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)

	var got Dataset
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, ds.QAPairs, got.QAPairs)
	assert.Equal(t, ds.Meta.SourcePapers, got.Meta.SourcePapers)
}

func TestWrite_ByCategory(t *testing.T) {
	l := seed(t)
	ds, err := Collect(l, "gpt-4o", exportedAt)
	require.NoError(t, err)

	paths, err := Write(l, ds, Options{ByCategory: true})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(l.FinalDir(), "qa_dataset.json"),
		filepath.Join(l.ByCategoryDir(), "materials_design_synthesis.json"),
		filepath.Join(l.ByCategoryDir(), "performance_metrics.json"),
	}, paths)

	var perf []types.QAPair
	require.NoError(t, artifact.ReadJSON(paths[2], &perf))
	require.Len(t, perf, 2)
	assert.Equal(t, "qa_0001", perf[0].ID)
	assert.Equal(t, "qa_0003", perf[1].ID)
}

func TestWrite_Compressed(t *testing.T) {
	l := seed(t)
	ds, err := Collect(l, "gpt-4o", exportedAt)
	require.NoError(t, err)

	paths, err := Write(l, ds, Options{Compress: true})
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, ".lz4", filepath.Ext(paths[0]))

	raw, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	plain, err := io.ReadAll(lz4.NewReader(bytes.NewReader(raw)))
	require.NoError(t, err)

	var got Dataset
	require.NoError(t, json.Unmarshal(plain, &got))
	assert.Len(t, got.QAPairs, 3)
}

func TestWrite_UnknownFormat(t *testing.T) {
	_, err := Write(artifact.NewLayout(t.TempDir()), &Dataset{}, Options{Format: "csv"})
	assert.Error(t, err)
}
