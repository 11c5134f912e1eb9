// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pdiddy/qa-extractor/internal/artifact"
	"github.com/pdiddy/qa-extractor/pkg/types"
)

// ItemCount is how many items of a stage ended with an outcome.
type ItemCount struct {
	Stage   string
	Outcome string
	Count   int
}

// RunMetrics is what a run exports to the Prometheus textfile.
type RunMetrics struct {
	Tokens   types.TokenSnapshot
	Items    []ItemCount
	Duration time.Duration
}

// Registry builds a fresh registry holding the run's gauges.
func (m RunMetrics) Registry() *prometheus.Registry {
	reg := prometheus.NewRegistry()

	tokens := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "qa_extractor_tokens_total",
		Help: "Tokens consumed by the run, by kind.",
	}, []string{"kind"})
	requests := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "qa_extractor_requests_total",
		Help: "Successful LLM requests made by the run.",
	})
	items := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "qa_extractor_items",
		Help: "Work items by stage and outcome.",
	}, []string{"stage", "outcome"})
	cost := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "qa_extractor_estimated_cost_usd",
		Help: "Estimated USD cost of the run.",
	})
	duration := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "qa_extractor_run_duration_seconds",
		Help: "Wall-clock duration of the run.",
	})
	reg.MustRegister(tokens, requests, items, cost, duration)

	tokens.WithLabelValues("prompt").Set(float64(m.Tokens.Usage.PromptTokens))
	tokens.WithLabelValues("completion").Set(float64(m.Tokens.Usage.CompletionTokens))
	tokens.WithLabelValues("total").Set(float64(m.Tokens.Usage.TotalTokens))
	requests.Set(float64(m.Tokens.RequestCount))
	for _, ic := range m.Items {
		items.WithLabelValues(ic.Stage, ic.Outcome).Set(float64(ic.Count))
	}
	cost.Set(m.Tokens.EstimatedCostUSD)
	duration.Set(m.Duration.Seconds())
	return reg
}

// WriteMetrics writes the run's gauges to stats/metrics.prom in the
// node exporter textfile format and returns its path.
func WriteMetrics(layout artifact.Layout, m RunMetrics) (string, error) {
	path := layout.StatsPath(MetricsFile)
	if err := prometheus.WriteToTextfile(path, m.Registry()); err != nil {
		return "", err
	}
	return path, nil
}
