// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm is the gateway to an OpenAI-compatible chat completion API.
// It retries failed calls with capped exponential backoff, normalizes the
// response shapes different backends return, and keeps a running total of
// token usage for the lifetime of a Client.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pdiddy/qa-extractor/internal/httputil"
	"github.com/pdiddy/qa-extractor/pkg/types"
)

const tracerName = "github.com/pdiddy/qa-extractor/internal/llm"

// maxErrorContent bounds how much response text is quoted in errors.
const maxErrorContent = 500

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// System returns a system message.
func System(content string) Message { return Message{Role: "system", Content: content} }

// User returns a user message.
func User(content string) Message { return Message{Role: "user", Content: content} }

// Response is a normalized chat completion.
type Response struct {
	Content      string
	Usage        types.TokenUsage
	Model        string
	FinishReason string

	// Estimated is true when Usage was computed locally because the
	// backend did not report it.
	Estimated bool
}

// Client calls the chat completion endpoint. A Client is not safe for
// concurrent use; the pipeline issues one call at a time.
type Client struct {
	cfg      types.LLMConfig
	endpoint string
	http     *http.Client
	logger   *slog.Logger
	counter  TokenCounter
	pricing  types.Pricing
	tracer   trace.Tracer
	now      func() time.Time

	stats types.TokenStats
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for retries and call summaries.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTokenCounter replaces the tokenizer used when usage is not reported.
func WithTokenCounter(tc TokenCounter) Option {
	return func(c *Client) { c.counter = tc }
}

// WithPricing sets the prices used by Snapshot.
func WithPricing(p types.Pricing) Option {
	return func(c *Client) { c.pricing = p }
}

// WithTracerProvider sets the OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracer = tp.Tracer(tracerName) }
}

// New returns a Client for cfg.
func New(cfg types.LLMConfig, opts ...Option) *Client {
	c := &Client{
		cfg:      cfg,
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
		http:     &http.Client{Timeout: cfg.TimeoutDuration()},
		logger:   slog.Default(),
		pricing:  types.DefaultPricing,
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.counter == nil {
		c.counter = NewTokenCounter(cfg.Model)
	}
	c.stats.StartTime = c.now()
	return c
}

// Chat sends messages and returns the normalized response. Failed
// attempts, including responses with empty content, are retried up to
// the configured attempt count. Usage of a successful call is added to
// the Client's running totals.
func (c *Client) Chat(ctx context.Context, messages []Message) (*Response, error) {
	ctx, span := c.tracer.Start(ctx, "llm.chat", trace.WithAttributes(
		attribute.String("llm.model", c.cfg.Model),
		attribute.Int("llm.messages", len(messages)),
	))
	defer span.End()

	policy := httputil.RetryPolicy{
		Attempts:  c.cfg.RetryAttempts,
		BaseDelay: c.cfg.RetryDelayDuration(),
		OnRetry: func(attempt int, err error, wait time.Duration) {
			c.logger.Warn("llm call failed, retrying",
				"attempt", attempt,
				"wait", wait,
				"class", Classify(err),
				"error", err)
		},
	}

	start := c.now()
	var resp *Response
	err := httputil.Retry(ctx, policy, func(ctx context.Context) error {
		r, err := c.send(ctx, messages)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	c.stats.Record(resp.Usage)
	span.SetAttributes(
		attribute.Int("llm.prompt_tokens", resp.Usage.PromptTokens),
		attribute.Int("llm.completion_tokens", resp.Usage.CompletionTokens),
		attribute.Bool("llm.usage_estimated", resp.Estimated),
	)
	c.logger.Debug("llm call",
		"model", resp.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"estimated", resp.Estimated,
		"duration", c.now().Sub(start))
	return resp, nil
}

// ChatJSON calls Chat and decodes the content into out after stripping a
// surrounding Markdown code fence. A decode failure returns
// ErrMalformedJSON with the start of the content attached. The response
// is returned whenever the call itself succeeded.
func (c *Client) ChatJSON(ctx context.Context, messages []Message, out any) (*Response, error) {
	resp, err := c.Chat(ctx, messages)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(StripCodeFence(resp.Content)), out); err != nil {
		return resp, fmt.Errorf("%w: %v; content: %s", ErrMalformedJSON, err, truncate(resp.Content, maxErrorContent))
	}
	return resp, nil
}

// DecodeEach decodes every element of raws into a T, dropping elements
// that do not decode. It returns the decoded values and the number
// dropped.
func DecodeEach[T any](raws []json.RawMessage) ([]T, int) {
	out := make([]T, 0, len(raws))
	dropped := 0
	for _, r := range raws {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			dropped++
			continue
		}
		out = append(out, v)
	}
	return out, dropped
}

// Stats returns a copy of the running usage totals.
func (c *Client) Stats() types.TokenStats {
	return c.stats
}

// Snapshot renders the running totals with rate and cost.
func (c *Client) Snapshot() types.TokenSnapshot {
	return c.stats.Snapshot(c.now(), c.pricing)
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// send performs a single request.
func (c *Client) send(ctx context.Context, messages []Message) (*Response, error) {
	payload := map[string]any{
		"model":       c.cfg.Model,
		"messages":    messages,
		"temperature": c.cfg.Temperature,
		"max_tokens":  c.cfg.MaxTokens,
	}
	headers := map[string]string{}
	if c.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.cfg.APIKey
	}

	status, body, err := httputil.PostJSON(ctx, c.http, c.endpoint, headers, payload)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		msg := truncate(string(body), maxErrorContent)
		var env map[string]any
		if json.Unmarshal(body, &env) == nil && env["error"] != nil {
			msg = errorMessage(env["error"])
		}
		return nil, &APIError{StatusCode: status, Message: msg}
	}

	var env map[string]any
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decoding response envelope: %w", err)
	}

	out, err := normalize(env)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Content:      out.content,
		FinishReason: out.finishReason,
		Model:        c.cfg.Model,
	}
	if m, ok := env["model"].(string); ok && m != "" {
		resp.Model = m
	}
	if usage, ok := reportedUsage(env); ok {
		resp.Usage = usage
	} else {
		resp.Usage = c.estimate(messages, out.content)
		resp.Estimated = true
	}
	return resp, nil
}

// estimate counts tokens locally: prompt over the joined message
// contents, completion over the generated text.
func (c *Client) estimate(messages []Message, completion string) types.TokenUsage {
	parts := make([]string, len(messages))
	for i, m := range messages {
		parts[i] = m.Content
	}
	prompt := c.counter.Count(strings.Join(parts, " "))
	comp := c.counter.Count(completion)
	return types.TokenUsage{
		PromptTokens:     prompt,
		CompletionTokens: comp,
		TotalTokens:      prompt + comp,
	}
}

// StripCodeFence removes a leading ```json or ``` fence and a trailing
// ``` fence.
func StripCodeFence(content string) string {
	s := strings.TrimSpace(content)
	switch {
	case strings.HasPrefix(s, "```json"):
		s = s[len("```json"):]
	case strings.HasPrefix(s, "```"):
		s = s[len("```"):]
	}
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
