// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/qa-extractor/pkg/types"
)

func sampleExtraction(id string) *types.ExtractionResult {
	return &types.ExtractionResult{
		PaperID:    id,
		PaperTitle: "Title <" + id + ">",
		KnowledgePoints: []types.KnowledgePoint{
			{Category: "Performance Metrics", Content: "PCE of 18.5%", Complexity: types.SingleHop, Keywords: []string{}},
		},
		TokenUsage: types.UsageOf(types.TokenUsage{PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2}),
	}
}

func TestWriteJSON_Atomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "a.json")

	require.NoError(t, WriteJSON(path, sampleExtraction("a")))
	require.NoError(t, WriteJSON(path, sampleExtraction("a")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Title <a>", "HTML characters are not escaped")
	assert.Contains(t, string(data), "\n  \"paper_id\"")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestReusableExtraction(t *testing.T) {
	l := NewLayout(t.TempDir())
	require.NoError(t, l.EnsureDirs())

	good := l.KnowledgePath("good")
	require.NoError(t, WriteJSON(good, sampleExtraction("good")))

	errored := sampleExtraction("errored")
	errored.TokenUsage = types.ErrorUsage("timeout")
	require.NoError(t, WriteJSON(l.KnowledgePath("errored"), errored))

	empty := sampleExtraction("empty")
	empty.KnowledgePoints = nil
	require.NoError(t, WriteJSON(l.KnowledgePath("empty"), empty))

	require.NoError(t, os.WriteFile(l.KnowledgePath("corrupt"), []byte("{not json"), 0o644))

	r, ok := ReusableExtraction(good)
	require.True(t, ok)
	assert.Equal(t, "good", r.PaperID)

	for _, id := range []string{"errored", "empty", "corrupt", "missing"} {
		_, ok := ReusableExtraction(l.KnowledgePath(id))
		assert.False(t, ok, id)
	}
}

func TestReusableGeneration(t *testing.T) {
	l := NewLayout(t.TempDir())
	ok := &types.GenerationResult{PaperID: "p", QAPairs: []types.QAPair{{Question: "q", Answer: "a"}}}
	require.NoError(t, WriteJSON(l.QAPath("p"), ok))
	require.NoError(t, WriteJSON(l.QAPath("bad"), &types.GenerationResult{PaperID: "bad", TokenUsage: types.ErrorUsage("x")}))

	_, reusable := ReusableGeneration(l.QAPath("p"))
	assert.True(t, reusable)
	_, reusable = ReusableGeneration(l.QAPath("bad"))
	assert.False(t, reusable)
}

func TestListJSONAndStems(t *testing.T) {
	l := NewLayout(t.TempDir())
	for _, name := range []string{"b", "a", types.CrossDocID} {
		require.NoError(t, WriteJSON(l.QAPath(name), &types.GenerationResult{PaperID: name}))
	}
	require.NoError(t, os.WriteFile(filepath.Join(l.QADir(), "notes.txt"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(l.QADir(), "sub.json"), 0o755))

	paths, err := ListJSON(l.QADir())
	require.NoError(t, err)
	require.Len(t, paths, 3)
	assert.Equal(t, "a", Stem(paths[0]))
	assert.Equal(t, "b", Stem(paths[1]))

	stems, err := l.QAStems()
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"a": true, "b": true}, stems)

	missing, err := ListJSON(filepath.Join(l.Root, "nope"))
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestLoadExtractions_SkipsCorrupt(t *testing.T) {
	l := NewLayout(t.TempDir())
	require.NoError(t, WriteJSON(l.KnowledgePath("one"), sampleExtraction("one")))
	require.NoError(t, os.WriteFile(l.KnowledgePath("two"), []byte("]"), 0o644))

	results, skipped, err := l.LoadExtractions()
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "one", results[0].PaperID)
	assert.Equal(t, []string{l.KnowledgePath("two")}, skipped)
}
