// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pdiddy/qa-extractor/internal/artifact"
	"github.com/pdiddy/qa-extractor/internal/checkpoint"
	"github.com/pdiddy/qa-extractor/internal/pipeline"
	"github.com/pdiddy/qa-extractor/internal/report"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run extraction, QA generation and cross-document generation",
	Long: `Run processes every document under the input directory: knowledge
extraction, then QA generation per paper, then cross-document QA generation.
Results already on disk from an earlier run are reused unless --no-resume is
given. At the end the summary report, charts, metrics and token statistics
are written under the output directory.`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	applyDirFlags(cmd)
	noResume, _ := cmd.Flags().GetBool("no-resume")
	if noCross, _ := cmd.Flags().GetBool("no-cross-doc"); noCross {
		cfg.QASettings.EnableCrossDoc = false
	}
	if err := setupLogger(); err != nil {
		return err
	}
	client, err := newGateway()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, stop := signalContext()
	defer stop()

	p := newPipeline(client)
	summary, err := p.Run(ctx, !noResume)
	if err != nil {
		return interrupted(err)
	}

	printRunSummary(summary)
	return writeRunReports(p.Layout(), summary)
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Run stage 1 only: extract knowledge points",
	Long: `Extract reads every document under the input directory and writes one
knowledge file per paper to <output>/knowledge/. Papers already extracted are
skipped unless --no-resume is given.`,
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	applyDirFlags(cmd)
	noResume, _ := cmd.Flags().GetBool("no-resume")
	if err := setupLogger(); err != nil {
		return err
	}
	client, err := newGateway()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, stop := signalContext()
	defer stop()

	start := time.Now()
	results, sum, err := newPipeline(client).Extract(ctx, !noResume)
	if err != nil {
		return interrupted(err)
	}

	points := 0
	for _, r := range results {
		points += len(r.KnowledgePoints)
	}
	printStage("Extraction", sum)
	fmt.Printf("%s papers, %s knowledge points in %s\n", comma(len(results)), comma(points), time.Since(start).Round(time.Second))
	printTokens(os.Stdout, client.Snapshot())
	return nil
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run stage 2 over the knowledge files already on disk",
	Long: `Generate writes QA pairs for every knowledge file under
<output>/knowledge/. Papers with an intact QA file are skipped. With
--cross-doc the cross-document stage runs afterwards.`,
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	applyDirFlags(cmd)
	crossDoc, _ := cmd.Flags().GetBool("cross-doc")
	if crossDoc {
		cfg.QASettings.EnableCrossDoc = true
	}
	if err := setupLogger(); err != nil {
		return err
	}
	client, err := newGateway()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, stop := signalContext()
	defer stop()

	summary, err := newPipeline(client).RunGenerate(ctx, crossDoc)
	if err != nil {
		return interrupted(err)
	}
	if summary.Papers == 0 {
		warnColor.Printf("No knowledge files found in %s; run extract first.\n", artifact.NewLayout(cfg.Pipeline.OutputDir).KnowledgeDir())
		return nil
	}
	printRunSummary(summary)
	return nil
}

func init() {
	addDirFlags(runCmd, true, true)
	runCmd.Flags().Bool("no-resume", false, "ignore the checkpoint and reprocess every document")
	runCmd.Flags().Bool("no-cross-doc", false, "skip cross-document QA generation")

	addDirFlags(extractCmd, true, true)
	extractCmd.Flags().Bool("no-resume", false, "ignore the checkpoint and reprocess every document")

	addDirFlags(generateCmd, false, true)
	generateCmd.Flags().Bool("cross-doc", false, "also generate cross-document QA pairs")

	rootCmd.AddCommand(runCmd, extractCmd, generateCmd)
}

// interrupted turns a canceled run into a resumable message.
func interrupted(err error) error {
	if errors.Is(err, context.Canceled) {
		warnColor.Fprintln(os.Stderr, "\nInterrupted. Progress is saved; run again to resume.")
	}
	return err
}

func printStage(name string, s pipeline.StageSummary) {
	c := okColor
	if s.HasFailures() {
		c = warnColor
	}
	c.Printf("%s: %d processed, %d skipped, %d failed (total: %d)\n", name, s.Processed, s.Skipped, s.Failed, s.Total())
}

func printRunSummary(s *pipeline.Summary) {
	heading("Run complete")
	tbl := newTable("")
	tbl.AppendRows([]table.Row{
		{"Papers", comma(s.Papers)},
		{"Knowledge points", comma(s.KnowledgePoints)},
		{"QA pairs", comma(s.QAPairs)},
		{"Cross-document QA pairs", comma(s.CrossDocPairs)},
		{"Extraction", fmt.Sprintf("%d processed, %d skipped, %d failed", s.Extract.Processed, s.Extract.Skipped, s.Extract.Failed)},
		{"Generation", fmt.Sprintf("%d processed, %d skipped, %d failed", s.Generate.Processed, s.Generate.Skipped, s.Generate.Failed)},
		{"Cross-document", string(s.CrossDoc)},
		{"Duration", s.Duration.Round(time.Second).String()},
	})
	tbl.Render()
	printTokens(os.Stdout, s.Tokens)
}

// writeRunReports writes the summary report, charts and metrics for a
// finished run.
func writeRunReports(layout artifact.Layout, s *pipeline.Summary) error {
	stats, err := report.Collect(layout)
	if err != nil {
		return err
	}
	for _, path := range stats.Unreadable {
		logger.Warn("skipping unreadable result file", "path", path)
	}

	var written []string
	path, err := report.WriteSummary(layout, report.SummaryInput{
		Stats:       stats,
		Tokens:      &s.Tokens,
		Config:      cfg,
		GeneratedAt: time.Now(),
	})
	if err != nil {
		return err
	}
	written = append(written, path)

	if path, err = report.WriteCharts(layout, stats); err != nil {
		return err
	}
	written = append(written, path)

	if cfg.Monitoring.WriteMetrics {
		path, err = report.WriteMetrics(layout, report.RunMetrics{
			Tokens:   s.Tokens,
			Items:    itemCounts(s),
			Duration: s.Duration,
		})
		if err != nil {
			return err
		}
		written = append(written, path)
	}

	if cp := checkpoint.NewStore(cfg.Pipeline.OutputDir, "").Load(); cp != nil && len(cp.Errors) > 0 {
		warnColor.Printf("%d error(s) recorded in the checkpoint; see `qa-extractor status`.\n", len(cp.Errors))
	}
	for _, p := range written {
		fmt.Printf("wrote %s\n", p)
	}
	return nil
}

func itemCounts(s *pipeline.Summary) []report.ItemCount {
	items := []report.ItemCount{
		{Stage: "extract", Outcome: "processed", Count: s.Extract.Processed},
		{Stage: "extract", Outcome: "skipped", Count: s.Extract.Skipped},
		{Stage: "extract", Outcome: "failed", Count: s.Extract.Failed},
		{Stage: "generate", Outcome: "processed", Count: s.Generate.Processed},
		{Stage: "generate", Outcome: "skipped", Count: s.Generate.Skipped},
		{Stage: "generate", Outcome: "failed", Count: s.Generate.Failed},
	}
	if s.CrossDoc != "" {
		items = append(items, report.ItemCount{Stage: "cross_doc", Outcome: string(s.CrossDoc), Count: 1})
	}
	return items
}
