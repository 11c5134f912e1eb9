// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/pdiddy/qa-extractor/internal/report"
	"github.com/pdiddy/qa-extractor/pkg/types"
)

var (
	okColor      = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	headingColor = color.New(color.FgCyan, color.Bold)
)

// newTable returns a light-style table writing to stdout.
func newTable(title string) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(os.Stdout)
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle(title)
	return tbl
}

func heading(format string, args ...any) {
	headingColor.Printf("\n"+format+"\n", args...)
}

func comma(n int) string { return humanize.Comma(int64(n)) }

// truncate shortens s to n runes with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// stateColor paints a stage state for the status view.
func stateColor(s report.State) string {
	switch s {
	case report.Done:
		return okColor.Sprint(s)
	case report.InProgress, report.Partial:
		return warnColor.Sprint(s)
	default:
		return string(s)
	}
}

// printDistribution renders one distribution table with percentages.
func printDistribution(title, label string, dist map[string]int, total int) {
	if len(dist) == 0 {
		return
	}
	tbl := newTable(title)
	tbl.AppendHeader(table.Row{label, "Count", "Share"})
	for _, c := range report.Sorted(dist) {
		tbl.AppendRow(table.Row{c.Name, comma(c.Count), fmt.Sprintf("%.1f%%", report.Percent(c.Count, total))})
	}
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	tbl.Render()
}

// printTokens renders a token usage snapshot.
func printTokens(w io.Writer, snap types.TokenSnapshot) {
	tbl := newTable("Token Usage")
	tbl.SetOutputMirror(w)
	tbl.AppendRows([]table.Row{
		{"Prompt tokens", comma(snap.Usage.PromptTokens)},
		{"Completion tokens", comma(snap.Usage.CompletionTokens)},
		{"Total tokens", comma(snap.Usage.TotalTokens)},
		{"Requests", comma(snap.RequestCount)},
		{"Tokens per minute", humanize.FormatFloat("#,###.", snap.TokensPerMinute)},
		{"Estimated cost", fmt.Sprintf("$%.4f", snap.EstimatedCostUSD)},
		{"Elapsed", (time.Duration(snap.ElapsedSeconds * float64(time.Second))).Round(time.Second).String()},
	})
	tbl.Render()
}
