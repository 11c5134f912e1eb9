// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"time"

	"github.com/pdiddy/qa-extractor/pkg/types"
)

// StageSummary counts what happened to the items of one stage.
type StageSummary struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Total returns the number of items the stage saw.
func (s StageSummary) Total() int {
	return s.Processed + s.Skipped + s.Failed
}

// HasFailures reports whether any item failed.
func (s StageSummary) HasFailures() bool {
	return s.Failed > 0
}

// Summary holds the final aggregate statistics of a run, summed over
// the in-memory results.
type Summary struct {
	Papers          int                 `json:"papers"`
	KnowledgePoints int                 `json:"knowledge_points"`
	QAPairs         int                 `json:"qa_pairs"`
	CrossDocPairs   int                 `json:"cross_doc_pairs"`
	Extract         StageSummary        `json:"extract"`
	Generate        StageSummary        `json:"generate"`
	CrossDoc        CrossDocOutcome     `json:"cross_doc"`
	Tokens          types.TokenSnapshot `json:"tokens"`
	Duration        time.Duration       `json:"duration"`
}

func (p *Pipeline) summarize(extractions []*types.ExtractionResult, generations []*types.GenerationResult, cross *types.GenerationResult, start time.Time) *Summary {
	s := &Summary{
		Papers:          len(extractions),
		KnowledgePoints: countPoints(extractions),
		QAPairs:         countPairs(generations),
		Tokens:          p.client.Snapshot(),
		Duration:        p.now().Sub(start),
	}
	if cross != nil {
		s.CrossDocPairs = len(cross.QAPairs)
		s.QAPairs += s.CrossDocPairs
	}
	return s
}
