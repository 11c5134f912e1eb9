// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"time"
)

// TokenUsage counts tokens for one or more LLM calls.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens" yaml:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens" yaml:"completion_tokens"`
	TotalTokens      int `json:"total_tokens" yaml:"total_tokens"`
}

// Add returns the field-wise sum of u and o.
func (u TokenUsage) Add(o TokenUsage) TokenUsage {
	return TokenUsage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
		TotalTokens:      u.TotalTokens + o.TotalTokens,
	}
}

// UsageRecord is the token_usage field of a persisted result. It holds
// either token counts or, when the call failed, an error marker.
type UsageRecord struct {
	TokenUsage `yaml:",inline"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}

// UsageOf wraps successful call usage.
func UsageOf(u TokenUsage) UsageRecord {
	return UsageRecord{TokenUsage: u}
}

// ErrorUsage builds an error-marked record.
func ErrorUsage(msg string) UsageRecord {
	return UsageRecord{Error: msg}
}

// Failed reports whether the record is an error marker.
func (r UsageRecord) Failed() bool {
	return r.Error != ""
}

// MarshalJSON writes {"error": msg} for error markers and the plain
// counts otherwise.
func (r UsageRecord) MarshalJSON() ([]byte, error) {
	if r.Failed() {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{r.Error})
	}
	return json.Marshal(r.TokenUsage)
}

// Pricing holds USD prices per 1000 tokens.
type Pricing struct {
	InputPer1K  float64 `json:"input_per_1k" yaml:"input_per_1k" mapstructure:"input_per_1k"`
	OutputPer1K float64 `json:"output_per_1k" yaml:"output_per_1k" mapstructure:"output_per_1k"`
}

// DefaultPricing matches the list price the tool has always estimated with.
var DefaultPricing = Pricing{InputPer1K: 0.01, OutputPer1K: 0.03}

// Cost estimates the USD cost of u.
func (p Pricing) Cost(u TokenUsage) float64 {
	return float64(u.PromptTokens)/1000*p.InputPer1K + float64(u.CompletionTokens)/1000*p.OutputPer1K
}

// TokenStats accumulates usage across calls. It is owned by a single
// gateway instance.
type TokenStats struct {
	Usage        TokenUsage
	RequestCount int
	StartTime    time.Time
}

// Record adds one successful call.
func (s *TokenStats) Record(u TokenUsage) {
	s.Usage = s.Usage.Add(u)
	s.RequestCount++
}

// Snapshot renders the accumulated counts with derived rate and cost.
func (s TokenStats) Snapshot(now time.Time, p Pricing) TokenSnapshot {
	elapsed := now.Sub(s.StartTime).Seconds()
	if s.StartTime.IsZero() || elapsed < 0 {
		elapsed = 0
	}
	var rate float64
	if elapsed > 0 {
		rate = float64(s.Usage.TotalTokens) / (elapsed / 60)
	}
	return TokenSnapshot{
		Usage:            s.Usage,
		RequestCount:     s.RequestCount,
		ElapsedSeconds:   elapsed,
		TokensPerMinute:  rate,
		EstimatedCostUSD: p.Cost(s.Usage),
	}
}

// TokenSnapshot is the persisted view of TokenStats, stored in the
// checkpoint and in stats/token_stats.json.
type TokenSnapshot struct {
	Usage            TokenUsage `json:"usage" yaml:"usage"`
	RequestCount     int        `json:"request_count" yaml:"request_count"`
	ElapsedSeconds   float64    `json:"elapsed_seconds" yaml:"elapsed_seconds"`
	TokensPerMinute  float64    `json:"tokens_per_minute" yaml:"tokens_per_minute"`
	EstimatedCostUSD float64    `json:"estimated_cost_usd" yaml:"estimated_cost_usd"`
}
