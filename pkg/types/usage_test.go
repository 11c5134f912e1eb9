// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenStats_RecordIsOrderIndependent(t *testing.T) {
	a := TokenUsage{PromptTokens: 100, CompletionTokens: 40, TotalTokens: 140}
	b := TokenUsage{PromptTokens: 7, CompletionTokens: 3, TotalTokens: 10}

	var forward, reverse TokenStats
	forward.Record(a)
	forward.Record(b)
	reverse.Record(b)
	reverse.Record(a)

	assert.Equal(t, forward, reverse)
	assert.Equal(t, TokenUsage{PromptTokens: 107, CompletionTokens: 43, TotalTokens: 150}, forward.Usage)
	assert.Equal(t, 2, forward.RequestCount)
}

func TestTokenStats_Snapshot(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := TokenStats{StartTime: start}
	s.Record(TokenUsage{PromptTokens: 2000, CompletionTokens: 1000, TotalTokens: 3000})

	snap := s.Snapshot(start.Add(2*time.Minute), DefaultPricing)
	assert.Equal(t, 1, snap.RequestCount)
	assert.InDelta(t, 120.0, snap.ElapsedSeconds, 1e-9)
	assert.InDelta(t, 1500.0, snap.TokensPerMinute, 1e-9)
	assert.InDelta(t, 0.02+0.03, snap.EstimatedCostUSD, 1e-9)
}

func TestUsageRecord_JSON(t *testing.T) {
	ok, err := json.Marshal(UsageOf(TokenUsage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}`, string(ok))

	failed, err := json.Marshal(ErrorUsage("boom"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"boom"}`, string(failed))

	var back UsageRecord
	require.NoError(t, json.Unmarshal(failed, &back))
	assert.True(t, back.Failed())
	assert.Equal(t, "boom", back.Error)
}

func TestResultFailed(t *testing.T) {
	point := KnowledgePoint{Category: "c", Content: "x"}

	assert.True(t, (&ExtractionResult{}).Failed(), "empty points")
	assert.True(t, (&ExtractionResult{
		KnowledgePoints: []KnowledgePoint{point},
		TokenUsage:      ErrorUsage("x"),
	}).Failed(), "error marker")
	assert.False(t, (&ExtractionResult{KnowledgePoints: []KnowledgePoint{point}}).Failed())

	assert.True(t, (&GenerationResult{}).Failed())
	assert.False(t, (&GenerationResult{QAPairs: []QAPair{{Question: "q", Answer: "a"}}}).Failed())
}

func TestStageOrder(t *testing.T) {
	assert.True(t, StageExtract.Before(StageGenerate))
	assert.True(t, StageGenerate.Before(StageCrossDoc))
	assert.True(t, StageCrossDoc.Before(StageComplete))
	assert.False(t, StageComplete.Before(StageExtract))
	assert.False(t, StageGenerate.Before(StageGenerate))
}
