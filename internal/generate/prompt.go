// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/pdiddy/qa-extractor/internal/llm"
	"github.com/pdiddy/qa-extractor/pkg/types"
)

var systemPrompt = `You are an expert in optoelectronic polymer materials writing question-answer pairs for a retrieval-augmented generation (RAG) evaluation benchmark.

Using only the knowledge points provided, write varied QA pairs that test different levels of understanding.

## Question Types

- Single-hop (easy): direct factual recall from one knowledge point, e.g. "What is the optical bandgap of BS3TSe-4F?"
- Multi-hop (medium): combines several knowledge points from the same paper, e.g. "How does asymmetric selenium substitution affect both the dielectric constant and exciton dissociation?"
- Comparative: contrasts materials, methods or results, e.g. "What advantages does the PMHJ architecture offer over a conventional BHJ?"
- Mechanistic: asks why or how something happens, e.g. "Why does face-on orientation benefit charge transport?"

## Output Format

Return a JSON object shaped like this:
{"qa_pairs": [{"question": "Clear, well-formed question in English", "answer": "Complete answer grounded in the knowledge points", "category": "Category of the underlying knowledge point", "difficulty": "easy, medium or hard", "reasoning_type": "single-hop or multi-hop"}]}

## Guidelines

1. Write 8-12 QA pairs covering different question types and categories.
2. Avoid yes/no questions.
3. Answers run 2-5 sentences and keep numerical values with units.
4. Easy means recall, medium means relating facts, hard means analysis or mechanism.
5. Every answer must be supported by the knowledge points.`

var crossDocSystemPrompt = `You are an expert in optoelectronic polymer materials writing cross-document question-answer pairs. Each question must need information from at least two of the papers provided.

## Question Types

1. Comparison: contrast materials, methods or results across papers.
2. Trend analysis: identify patterns shared by several studies.
3. Synthesis: combine insights from several papers to answer a broader question.

## Output Format

{"qa_pairs": [{"question": "Cross-document question", "answer": "Answer that synthesizes the sources and names them", "category": "Primary category", "difficulty": "hard", "reasoning_type": "cross-doc", "source_papers": ["Paper title 1", "Paper title 2"]}]}

## Guidelines

1. Write 10-20 cross-document QA pairs.
2. Prefer meaningful comparisons over trivial differences.
3. List in source_papers the exact titles of the papers each answer draws on.`

var userPromptTmpl = template.Must(template.New("generation-user").Parse(`Write question-answer pairs from the following knowledge points, extracted from one academic paper.

## Paper Title
{{.Title}}

## Knowledge Points
{{.Points}}

---

Write 8-12 varied QA pairs following the system instructions. Return a valid JSON object.`))

var crossDocUserPromptTmpl = template.Must(template.New("cross-doc-user").Parse(`Write cross-document question-answer pairs from the following knowledge points, grouped by paper title.

## Knowledge Points by Paper

{{.Papers}}

---

Write 10-20 cross-document QA pairs that each draw on at least two papers. Return a valid JSON object.`))

// paperPoints is one entry of the cross-document prompt.
type paperPoints struct {
	title  string
	points []types.KnowledgePoint
}

// orderedPapers encodes as a JSON object keyed by paper title, keeping
// insertion order.
type orderedPapers []paperPoints

func (o orderedPapers) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(p.title)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(p.points)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// indentJSON renders v with two-space indentation and no HTML escaping.
func indentJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

func buildMessages(title string, points []types.KnowledgePoint) ([]llm.Message, error) {
	rendered, err := indentJSON(points)
	if err != nil {
		return nil, fmt.Errorf("encoding knowledge points: %w", err)
	}
	var user bytes.Buffer
	if err := userPromptTmpl.Execute(&user, struct{ Title, Points string }{title, rendered}); err != nil {
		return nil, fmt.Errorf("rendering generation prompt: %w", err)
	}
	return []llm.Message{llm.System(systemPrompt), llm.User(user.String())}, nil
}

func buildCrossDocMessages(papers orderedPapers) ([]llm.Message, error) {
	rendered, err := indentJSON(papers)
	if err != nil {
		return nil, fmt.Errorf("encoding knowledge by paper: %w", err)
	}
	var user bytes.Buffer
	if err := crossDocUserPromptTmpl.Execute(&user, struct{ Papers string }{rendered}); err != nil {
		return nil, fmt.Errorf("rendering cross-document prompt: %w", err)
	}
	return []llm.Message{llm.System(crossDocSystemPrompt), llm.User(user.String())}, nil
}
