// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/pdiddy/qa-extractor/internal/category"
	"github.com/pdiddy/qa-extractor/internal/llm"
)

// systemPromptTmpl frames the extraction task and enumerates the
// configured categories.
var systemPromptTmpl = template.Must(template.New("extraction-system").Parse(`You are an expert in optoelectronic polymer materials: organic solar cells (OSCs), organic light-emitting diodes (OLEDs), organic field-effect transistors (OFETs) and related conjugated polymer systems.

Extract the key knowledge points from an academic paper in this field. Each knowledge point must stand on its own, because it will be used to write question-answer pairs for a retrieval-augmented generation (RAG) benchmark.

## Knowledge Categories

Use only these categories, and only the ones the paper actually covers:

{{range .Categories}}{{.Number}}. **{{.Name}}**{{if .Hint}}: {{.Hint}}{{end}}
{{end}}
## Output Format

Return a JSON object shaped like this:
{"paper_title": "Full title of the paper", "knowledge_points": [{"category": "One category name from the list above", "content": "Clear, concise statement of the knowledge point", "evidence": "Quote or close paraphrase from the paper", "complexity": "single-hop or multi-hop", "keywords": ["keyword1", "keyword2"]}]}

## Guidelines

1. Extract 8-15 knowledge points, spread over as many relevant categories as possible.
2. Be specific and factual. Keep numbers with their units (e.g. "PCE of 18.48%", "bandgap of 1.28 eV").
3. Use "single-hop" when one paragraph supports the point and "multi-hop" when it combines several parts of the paper.
4. Evidence must be traceable to the paper.
5. Focus on the paper's novel findings and avoid overlapping points.
`))

// userPromptTmpl carries the preprocessed paper.
var userPromptTmpl = template.Must(template.New("extraction-user").Parse(`Extract knowledge points from the following academic paper on optoelectronic polymer materials.

## Paper Content

{{.Content}}

---

Follow the system instructions and return a valid JSON object.`))

// buildMessages renders the system and user turns for one paper.
func buildMessages(categories []string, content string) ([]llm.Message, error) {
	var sys, user bytes.Buffer
	if err := systemPromptTmpl.Execute(&sys, struct{ Categories []category.Entry }{category.Entries(categories)}); err != nil {
		return nil, fmt.Errorf("rendering extraction system prompt: %w", err)
	}
	if err := userPromptTmpl.Execute(&user, struct{ Content string }{content}); err != nil {
		return nil, fmt.Errorf("rendering extraction prompt: %w", err)
	}
	return []llm.Message{llm.System(sys.String()), llm.User(user.String())}, nil
}
