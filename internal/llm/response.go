// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"fmt"
	"strings"

	"github.com/pdiddy/qa-extractor/pkg/types"
)

// extracted is the text and finish reason pulled out of a response envelope.
type extracted struct {
	content      string
	finishReason string
}

// extractor tries one response shape. ok is false when the shape does
// not apply to env.
type extractor func(env map[string]any) (out extracted, ok bool)

// extractors are tried in order; the first applicable shape wins.
var extractors = []extractor{
	fromChoices,
	fromCandidates,
}

// normalize turns a decoded response envelope into its text content.
func normalize(env map[string]any) (extracted, error) {
	if e, ok := env["error"]; ok && e != nil {
		return extracted{}, &APIError{Message: errorMessage(e)}
	}

	for _, ex := range extractors {
		out, ok := ex(env)
		if !ok {
			continue
		}
		if strings.TrimSpace(out.content) == "" {
			return extracted{}, ErrEmptyContent
		}
		return out, nil
	}
	return extracted{}, ErrNoChoices
}

// fromChoices reads choices[0].message.content, falling back to
// choices[0].delta and then choices[0].text.
func fromChoices(env map[string]any) (extracted, bool) {
	first, ok := firstMap(env["choices"])
	if !ok {
		return extracted{}, false
	}

	msg, ok := first["message"].(map[string]any)
	if !ok || len(msg) == 0 {
		msg, _ = first["delta"].(map[string]any)
	}

	content, _ := msg["content"].(string)
	if content == "" {
		content, _ = first["text"].(string)
	}
	reason, _ := first["finish_reason"].(string)
	return extracted{content: content, finishReason: reason}, true
}

// fromCandidates reads candidates[0].content.parts[0].text.
func fromCandidates(env map[string]any) (extracted, bool) {
	first, ok := firstMap(env["candidates"])
	if !ok {
		return extracted{}, false
	}

	var text string
	if content, ok := first["content"].(map[string]any); ok {
		if part, ok := firstMap(content["parts"]); ok {
			text, _ = part["text"].(string)
		}
	}
	reason, _ := first["finishReason"].(string)
	if reason == "" {
		reason = "stop"
	}
	return extracted{content: text, finishReason: reason}, true
}

// reportedUsage reads the usage object. ok is false when it is absent.
func reportedUsage(env map[string]any) (types.TokenUsage, bool) {
	u, ok := env["usage"].(map[string]any)
	if !ok {
		return types.TokenUsage{}, false
	}
	usage := types.TokenUsage{
		PromptTokens:     intField(u, "prompt_tokens"),
		CompletionTokens: intField(u, "completion_tokens"),
		TotalTokens:      intField(u, "total_tokens"),
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	return usage, true
}

func firstMap(v any) (map[string]any, bool) {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return nil, false
	}
	m, ok := list[0].(map[string]any)
	return m, ok
}

func intField(m map[string]any, key string) int {
	switch n := m[key].(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}

func errorMessage(e any) string {
	switch v := e.(type) {
	case string:
		return v
	case map[string]any:
		if msg, ok := v["message"].(string); ok && msg != "" {
			return msg
		}
	}
	return fmt.Sprint(e)
}
