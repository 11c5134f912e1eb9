// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pdiddy/qa-extractor/internal/artifact"
	"github.com/pdiddy/qa-extractor/pkg/types"
)

// SummaryInput is everything the Markdown summary renders.
type SummaryInput struct {
	Stats *Stats

	// Tokens is the usage snapshot of the last run, if known.
	Tokens *types.TokenSnapshot

	Config      types.Config
	GeneratedAt time.Time
}

// RenderSummary writes the Markdown summary report to w.
func RenderSummary(w io.Writer, in SummaryInput) error {
	s := in.Stats
	var b strings.Builder

	fmt.Fprintf(&b, "# QA Extraction Summary Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", in.GeneratedAt.Format("2006-01-02 15:04:05"))

	b.WriteString("## Overview\n\n")
	b.WriteString("| Metric | Value |\n|--------|-------|\n")
	fmt.Fprintf(&b, "| Papers processed | %d |\n", s.Papers)
	fmt.Fprintf(&b, "| Failed extractions | %d |\n", s.FailedExtractions)
	fmt.Fprintf(&b, "| Knowledge points | %d |\n", s.KnowledgePoints)
	fmt.Fprintf(&b, "| QA pairs | %d |\n", s.QAPairs)
	fmt.Fprintf(&b, "| Cross-document QA pairs | %d |\n", s.CrossDocPairs)
	fmt.Fprintf(&b, "| Average QA per paper | %.1f |\n\n", s.AverageQAPerPaper())

	writeDistribution(&b, "Category Distribution", "Category", s.Categories, s.QAPairs)
	writeDistribution(&b, "Difficulty Distribution", "Difficulty", s.Difficulties, s.QAPairs)
	writeDistribution(&b, "Reasoning Type Distribution", "Reasoning Type", s.ReasoningTypes, s.QAPairs)

	if t := in.Tokens; t != nil {
		b.WriteString("## Token Usage\n\n")
		b.WriteString("| Metric | Value |\n|--------|-------|\n")
		fmt.Fprintf(&b, "| Prompt tokens | %d |\n", t.Usage.PromptTokens)
		fmt.Fprintf(&b, "| Completion tokens | %d |\n", t.Usage.CompletionTokens)
		fmt.Fprintf(&b, "| Total tokens | %d |\n", t.Usage.TotalTokens)
		fmt.Fprintf(&b, "| Requests | %d |\n", t.RequestCount)
		fmt.Fprintf(&b, "| Estimated cost | $%.4f |\n\n", t.EstimatedCostUSD)
	}

	c := in.Config
	b.WriteString("## Configuration\n\n")
	fmt.Fprintf(&b, "- Model: %s\n", c.LLM.Model)
	fmt.Fprintf(&b, "- QA per paper: %d-%d\n", c.QASettings.MinQAPerPaper, c.QASettings.MaxQAPerPaper)
	fmt.Fprintf(&b, "- Cross-document QA: %t\n", c.QASettings.EnableCrossDoc)
	fmt.Fprintf(&b, "- Categories: %s\n", strings.Join(c.Categories, ", "))

	_, err := io.WriteString(w, b.String())
	return err
}

func writeDistribution(b *strings.Builder, title, label string, dist map[string]int, total int) {
	fmt.Fprintf(b, "## %s\n\n", title)
	if len(dist) == 0 {
		b.WriteString("No QA pairs.\n\n")
		return
	}
	fmt.Fprintf(b, "| %s | Count | Percentage |\n|---|---|---|\n", label)
	for _, c := range Sorted(dist) {
		fmt.Fprintf(b, "| %s | %d | %.1f%% |\n", c.Name, c.Count, Percent(c.Count, total))
	}
	b.WriteString("\n")
}

// WriteSummary renders the summary to stats/summary_report.md and
// returns its path.
func WriteSummary(layout artifact.Layout, in SummaryInput) (string, error) {
	var buf bytes.Buffer
	if err := RenderSummary(&buf, in); err != nil {
		return "", err
	}
	path := layout.StatsPath(SummaryFile)
	if err := artifact.WriteFile(path, buf.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}
