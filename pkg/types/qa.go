// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Difficulty grades a QA pair.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Valid reports whether d is a recognized difficulty.
func (d Difficulty) Valid() bool {
	return d == Easy || d == Medium || d == Hard
}

// ReasoningType describes what a QA pair requires of the reader.
type ReasoningType string

const (
	ReasoningSingleHop ReasoningType = "single-hop"
	ReasoningMultiHop  ReasoningType = "multi-hop"
	ReasoningCrossDoc  ReasoningType = "cross-doc"
)

// Valid reports whether r is a recognized reasoning type.
func (r ReasoningType) Valid() bool {
	return r == ReasoningSingleHop || r == ReasoningMultiHop || r == ReasoningCrossDoc
}

// Identity of the single cross-document generation result.
const (
	CrossDocID    = "cross_doc"
	CrossDocTitle = "Cross-Document QA"
)

// QAPair is one generated question with its answer.
type QAPair struct {
	// ID is assigned at export time (qa_0001, qa_0002, ...). Empty in
	// per-paper artifacts.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`

	// Category is one of the configured canonical categories.
	Category string `json:"category" yaml:"category"`

	// SourceTitle is the paper title, or the joined titles for cross-document pairs.
	SourceTitle string `json:"source_title" yaml:"source_title"`

	Difficulty    Difficulty    `json:"difficulty" yaml:"difficulty"`
	ReasoningType ReasoningType `json:"reasoning_type" yaml:"reasoning_type"`
}

// GenerationResult is the Stage 2 output for one paper, or the single
// cross-document result, persisted at qa_pairs/<paper_id>.json.
type GenerationResult struct {
	// PaperID is the paper key, or CrossDocID.
	PaperID string `json:"paper_id" yaml:"paper_id"`

	PaperTitle string   `json:"paper_title" yaml:"paper_title"`
	QAPairs    []QAPair `json:"qa_pairs" yaml:"qa_pairs"`

	// TokenUsage carries the call's token counts or an error marker.
	TokenUsage UsageRecord `json:"token_usage" yaml:"token_usage"`
}

// Failed reports whether the result carries an error marker or has no pairs.
func (r *GenerationResult) Failed() bool {
	return r.TokenUsage.Failed() || len(r.QAPairs) == 0
}
