// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Complexity describes how much of a paper a knowledge point draws on.
type Complexity string

const (
	SingleHop Complexity = "single-hop"
	MultiHop  Complexity = "multi-hop"
)

// Valid reports whether c is one of the recognized complexity values.
func (c Complexity) Valid() bool {
	return c == SingleHop || c == MultiHop
}

// KnowledgePoint is a single categorized fact extracted from a paper.
type KnowledgePoint struct {
	// Category is one of the configured canonical categories.
	Category string `json:"category" yaml:"category"`

	// Content is the self-contained statement of the knowledge point.
	Content string `json:"content" yaml:"content"`

	// Evidence is a quote or paraphrase that traces the point back to the paper.
	Evidence string `json:"evidence" yaml:"evidence"`

	// Complexity is single-hop or multi-hop.
	Complexity Complexity `json:"complexity" yaml:"complexity"`

	// Keywords aid retrieval and categorization. Never nil after validation.
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// ExtractionResult is the Stage 1 output for one document, persisted at
// knowledge/<paper_id>.json.
type ExtractionResult struct {
	// PaperID is the stable key derived from the source file name.
	PaperID string `json:"paper_id" yaml:"paper_id"`

	// PaperTitle is the human-readable title of the document.
	PaperTitle string `json:"paper_title" yaml:"paper_title"`

	// SourceFile is the path of the document the result was extracted from.
	SourceFile string `json:"source_file" yaml:"source_file"`

	// KnowledgePoints holds the validated points. Empty on failure.
	KnowledgePoints []KnowledgePoint `json:"knowledge_points" yaml:"knowledge_points"`

	// TokenUsage carries the call's token counts or an error marker.
	TokenUsage UsageRecord `json:"token_usage" yaml:"token_usage"`
}

// Failed reports whether the result carries an error marker or has no
// knowledge points. Failed results are reprocessed on resume.
func (r *ExtractionResult) Failed() bool {
	return r.TokenUsage.Failed() || len(r.KnowledgePoints) == 0
}
