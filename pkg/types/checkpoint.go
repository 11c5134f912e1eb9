// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Stage names a pipeline phase.
type Stage string

const (
	StageExtract  Stage = "extract"
	StageGenerate Stage = "generate"
	StageCrossDoc Stage = "cross_doc"
	StageComplete Stage = "complete"
)

var stageOrder = map[Stage]int{
	StageExtract:  1,
	StageGenerate: 2,
	StageCrossDoc: 3,
	StageComplete: 4,
}

// Before reports whether s comes strictly before o in pipeline order.
// Unknown stages sort first.
func (s Stage) Before(o Stage) bool {
	return stageOrder[s] < stageOrder[o]
}

// Checkpoint records pipeline progress for one output directory.
type Checkpoint struct {
	// Stage is the phase the pipeline was in at the last update.
	Stage Stage `json:"stage"`

	// ProcessedFiles lists item keys in first-processed order, without duplicates.
	ProcessedFiles []string `json:"processed_files"`

	// LastFile is the key of the most recently processed item.
	LastFile string `json:"last_file"`

	// TokenStats is the gateway usage snapshot at the last update.
	TokenStats TokenSnapshot `json:"token_stats"`

	// KnowledgeCount is the total knowledge points held by the run.
	KnowledgeCount int `json:"knowledge_count"`

	// QACount is the total QA pairs held by the run.
	QACount int `json:"qa_count"`

	// Timestamp is the local time of the last update (2006-01-02T15:04:05).
	Timestamp string `json:"timestamp"`

	// Errors accumulates per-item failure messages.
	Errors []string `json:"errors"`

	// RunID identifies the run that last wrote the checkpoint.
	RunID string `json:"run_id,omitempty"`
}

// HasProcessed reports whether key is in ProcessedFiles.
func (c *Checkpoint) HasProcessed(key string) bool {
	for _, k := range c.ProcessedFiles {
		if k == key {
			return true
		}
	}
	return false
}
