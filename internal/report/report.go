// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report computes statistics over a pipeline output directory
// and renders them as a Markdown summary, HTML charts and a Prometheus
// textfile.
package report

import (
	"sort"

	"github.com/pdiddy/qa-extractor/internal/artifact"
	"github.com/pdiddy/qa-extractor/pkg/types"
)

// File names written under stats/.
const (
	SummaryFile = "summary_report.md"
	ChartsFile  = "distribution.html"
	MetricsFile = "metrics.prom"
)

// PaperCount is the per-paper row of the detailed statistics.
type PaperCount struct {
	PaperID         string `json:"paper_id"`
	Title           string `json:"title"`
	KnowledgePoints int    `json:"knowledge_points"`
	QAPairs         int    `json:"qa_pairs"`
	Failed          bool   `json:"failed"`
}

// Stats summarizes the artifacts under one output directory.
type Stats struct {
	Papers            int `json:"papers"`
	FailedExtractions int `json:"failed_extractions"`
	KnowledgePoints   int `json:"knowledge_points"`

	// QAFiles counts per-paper QA files, the cross-document file excluded.
	QAFiles           int  `json:"qa_files"`
	FailedGenerations int  `json:"failed_generations"`
	QAPairs           int  `json:"qa_pairs"`
	CrossDocPairs     int  `json:"cross_doc_pairs"`
	CrossDocPresent   bool `json:"cross_doc_present"`
	CrossDocFailed    bool `json:"cross_doc_failed"`

	Categories     map[string]int `json:"categories"`
	Difficulties   map[string]int `json:"difficulties"`
	ReasoningTypes map[string]int `json:"reasoning_types"`
	PerPaper       []PaperCount   `json:"per_paper"`

	// Unreadable lists artifact files that failed to decode.
	Unreadable []string `json:"unreadable,omitempty"`
}

// AverageQAPerPaper is the per-paper pair count averaged over papers
// with a QA file.
func (s *Stats) AverageQAPerPaper() float64 {
	if s.QAFiles == 0 {
		return 0
	}
	return float64(s.QAPairs-s.CrossDocPairs) / float64(s.QAFiles)
}

// Collect scans knowledge/ and qa_pairs/ under layout.
func Collect(layout artifact.Layout) (*Stats, error) {
	s := &Stats{
		Categories:     map[string]int{},
		Difficulties:   map[string]int{},
		ReasoningTypes: map[string]int{},
	}

	extractions, skipped, err := layout.LoadExtractions()
	if err != nil {
		return nil, err
	}
	s.Unreadable = append(s.Unreadable, skipped...)

	rows := map[string]*PaperCount{}
	for _, ex := range extractions {
		s.Papers++
		s.KnowledgePoints += len(ex.KnowledgePoints)
		if ex.Failed() {
			s.FailedExtractions++
		}
		row := &PaperCount{
			PaperID:         ex.PaperID,
			Title:           ex.PaperTitle,
			KnowledgePoints: len(ex.KnowledgePoints),
			Failed:          ex.Failed(),
		}
		rows[ex.PaperID] = row
		s.PerPaper = append(s.PerPaper, *row)
	}

	generations, skipped, err := layout.LoadGenerations()
	if err != nil {
		return nil, err
	}
	s.Unreadable = append(s.Unreadable, skipped...)

	for _, gen := range generations {
		s.QAPairs += len(gen.QAPairs)
		for _, qa := range gen.QAPairs {
			s.Categories[qa.Category]++
			s.Difficulties[string(qa.Difficulty)]++
			s.ReasoningTypes[string(qa.ReasoningType)]++
		}

		if gen.PaperID == types.CrossDocID {
			s.CrossDocPresent = true
			s.CrossDocFailed = gen.Failed()
			s.CrossDocPairs = len(gen.QAPairs)
			continue
		}
		s.QAFiles++
		if gen.Failed() {
			s.FailedGenerations++
		}
		if row, ok := rows[gen.PaperID]; ok {
			row.QAPairs = len(gen.QAPairs)
		}
	}

	for i := range s.PerPaper {
		s.PerPaper[i].QAPairs = rows[s.PerPaper[i].PaperID].QAPairs
	}
	return s, nil
}

// Count is one bucket of a distribution.
type Count struct {
	Name  string
	Count int
}

// Sorted orders a distribution by count, largest first, then by name.
func Sorted(dist map[string]int) []Count {
	out := make([]Count, 0, len(dist))
	for name, n := range dist {
		out = append(out, Count{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Percent returns n as a percentage of total, or 0 when total is 0.
func Percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(total)
}

// MissingCategories returns the configured categories with no QA pair.
func (s *Stats) MissingCategories(categories []string) []string {
	var out []string
	for _, c := range categories {
		if s.Categories[c] == 0 {
			out = append(out, c)
		}
	}
	return out
}
