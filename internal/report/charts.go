// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"bytes"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/pdiddy/qa-extractor/internal/artifact"
)

const chartHeight = "420px"

// RenderCharts writes an HTML page with one bar chart per distribution.
func RenderCharts(w io.Writer, s *Stats) error {
	page := components.NewPage()
	page.PageTitle = "QA Distribution"
	page.AddCharts(
		distributionBar("Categories", s.Categories),
		distributionBar("Difficulty", s.Difficulties),
		distributionBar("Reasoning Type", s.ReasoningTypes),
	)
	return page.Render(w)
}

func distributionBar(title string, dist map[string]int) *charts.Bar {
	counts := Sorted(dist)
	labels := make([]string, len(counts))
	data := make([]opts.BarData, len(counts))
	for i, c := range counts {
		labels[i] = c.Name
		data[i] = opts.BarData{Value: c.Count}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: 20}}),
	)
	bar.SetXAxis(labels).AddSeries("QA pairs", data)
	return bar
}

// WriteCharts renders the charts to stats/distribution.html and returns
// its path.
func WriteCharts(layout artifact.Layout, s *Stats) (string, error) {
	var buf bytes.Buffer
	if err := RenderCharts(&buf, s); err != nil {
		return "", err
	}
	path := layout.StatsPath(ChartsFile)
	if err := artifact.WriteFile(path, buf.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}
