// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pdiddy/qa-extractor/internal/artifact"
	"github.com/pdiddy/qa-extractor/internal/checkpoint"
	"github.com/pdiddy/qa-extractor/internal/report"
	"github.com/pdiddy/qa-extractor/pkg/types"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dataset statistics and regenerate the summary report",
	Long: `Stats scans the knowledge and QA files under the output directory and
prints the category, difficulty and reasoning type distributions. With
--detailed it adds per-paper counts. The summary report is rewritten.`,
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	applyDirFlags(cmd)
	detailed, _ := cmd.Flags().GetBool("detailed")

	layout := artifact.NewLayout(cfg.Pipeline.OutputDir)
	s, err := report.Collect(layout)
	if err != nil {
		return err
	}
	if s.Papers == 0 && s.QAFiles == 0 && !s.CrossDocPresent {
		warnColor.Printf("No results found in %s.\n", layout.Root)
		return nil
	}

	tbl := newTable("Overview")
	tbl.AppendRows([]table.Row{
		{"Papers", comma(s.Papers)},
		{"Failed extractions", comma(s.FailedExtractions)},
		{"Knowledge points", comma(s.KnowledgePoints)},
		{"QA files", comma(s.QAFiles)},
		{"Failed generations", comma(s.FailedGenerations)},
		{"QA pairs", comma(s.QAPairs)},
		{"Cross-document QA pairs", comma(s.CrossDocPairs)},
		{"Average QA per paper", humanize.FtoaWithDigits(s.AverageQAPerPaper(), 1)},
	})
	tbl.Render()

	printDistribution("Categories", "Category", s.Categories, s.QAPairs)
	printDistribution("Difficulty", "Difficulty", s.Difficulties, s.QAPairs)
	printDistribution("Reasoning Types", "Reasoning Type", s.ReasoningTypes, s.QAPairs)

	if missing := s.MissingCategories(cfg.Categories); len(missing) > 0 {
		warnColor.Printf("Categories with no QA pairs: %v\n", missing)
	}

	if detailed {
		per := newTable("Per Paper")
		per.AppendHeader(table.Row{"Paper", "Title", "Knowledge Points", "QA Pairs", ""})
		for _, p := range s.PerPaper {
			mark := ""
			if p.Failed {
				mark = errorColor.Sprint("failed")
			}
			per.AppendRow(table.Row{p.PaperID, truncate(p.Title, 48), p.KnowledgePoints, p.QAPairs, mark})
		}
		per.Render()
	}

	for _, path := range s.Unreadable {
		warnColor.Fprintf(os.Stderr, "unreadable: %s\n", path)
	}

	in := report.SummaryInput{Stats: s, Config: cfg, GeneratedAt: time.Now()}
	if cp := checkpoint.NewStore(cfg.Pipeline.OutputDir, "").Load(); cp != nil {
		in.Tokens = &cp.TokenStats
	}
	path, err := report.WriteSummary(layout, in)
	if err != nil {
		return err
	}
	fmt.Printf("\nwrote %s\n", path)
	return nil
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-stage progress and checkpoint details",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	applyDirFlags(cmd)
	layout := artifact.NewLayout(cfg.Pipeline.OutputDir)
	s, err := report.Collect(layout)
	if err != nil {
		return err
	}
	cp := checkpoint.NewStore(cfg.Pipeline.OutputDir, "").Load()

	tbl := newTable("Pipeline Status")
	tbl.AppendHeader(table.Row{"Stage", "State", "Detail"})
	for _, st := range report.Status(s, cp) {
		tbl.AppendRow(table.Row{st.Name, stateColor(st.State), st.Detail})
	}
	tbl.Render()

	if cp == nil {
		fmt.Println("No checkpoint found.")
		return nil
	}
	printCheckpoint(cp)
	return nil
}

// recentErrors is how many checkpoint errors status shows.
const recentErrors = 5

func printCheckpoint(cp *types.Checkpoint) {
	tbl := newTable("Checkpoint")
	tbl.AppendRows([]table.Row{
		{"Stage", cp.Stage},
		{"Processed", comma(len(cp.ProcessedFiles))},
		{"Last file", cp.LastFile},
		{"Knowledge points", comma(cp.KnowledgeCount)},
		{"QA pairs", comma(cp.QACount)},
		{"Total tokens", comma(cp.TokenStats.Usage.TotalTokens)},
		{"Estimated cost", fmt.Sprintf("$%.4f", cp.TokenStats.EstimatedCostUSD)},
		{"Run ID", cp.RunID},
		{"Updated", updatedAt(cp.Timestamp)},
	})
	tbl.Render()

	if len(cp.Errors) == 0 {
		return
	}
	errs := cp.Errors
	if len(errs) > recentErrors {
		errs = errs[len(errs)-recentErrors:]
	}
	warnColor.Printf("%d error(s) recorded, most recent:\n", len(cp.Errors))
	for _, e := range errs {
		fmt.Printf("  - %s\n", e)
	}
}

// updatedAt renders the checkpoint timestamp with a relative time.
func updatedAt(ts string) string {
	t, err := time.ParseInLocation(checkpoint.TimestampLayout, ts, time.Local)
	if err != nil {
		return ts
	}
	return fmt.Sprintf("%s (%s)", ts, humanize.Time(t))
}

func init() {
	addDirFlags(statsCmd, false, true)
	statsCmd.Flags().Bool("detailed", false, "include per-paper counts")

	addDirFlags(statusCmd, false, true)

	rootCmd.AddCommand(statsCmd, statusCmd)
}
