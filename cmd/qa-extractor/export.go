// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pdiddy/qa-extractor/internal/artifact"
	"github.com/pdiddy/qa-extractor/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all QA pairs as one dataset",
	Long: `Export collects the QA pairs of every successful QA file, numbers them,
and writes a single dataset to <output>/final/. Formats are json, jsonl (one
pair per line plus a .meta.json file) and yaml. --by-category also writes one
file per category, and --compress wraps every file in an lz4 frame.`,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	applyDirFlags(cmd)
	format, _ := cmd.Flags().GetString("format")
	byCategory, _ := cmd.Flags().GetBool("by-category")
	compress, _ := cmd.Flags().GetBool("compress")
	file, _ := cmd.Flags().GetString("file")

	opts := export.Options{Format: export.Format(format), Path: file, ByCategory: byCategory, Compress: compress}
	if !opts.Format.Valid() {
		return fmt.Errorf("unknown format %q (json, jsonl or yaml)", format)
	}

	layout := artifact.NewLayout(cfg.Pipeline.OutputDir)
	ds, err := export.Collect(layout, cfg.LLM.Model, time.Now())
	if err != nil {
		return err
	}
	paths, err := export.Write(layout, ds, opts)
	if err != nil {
		return err
	}

	okColor.Printf("Exported %s QA pairs from %s papers\n", comma(ds.Meta.TotalQAPairs), comma(ds.Meta.TotalPapers))
	for _, p := range paths {
		size := ""
		if info, err := os.Stat(p); err == nil {
			size = " (" + humanize.Bytes(uint64(info.Size())) + ")"
		}
		fmt.Printf("  %s%s\n", p, size)
	}
	return nil
}

func init() {
	addDirFlags(exportCmd, false, true)
	exportCmd.Flags().String("format", string(export.JSON), "output format: json, jsonl or yaml")
	exportCmd.Flags().Bool("by-category", false, "also write one file per category")
	exportCmd.Flags().Bool("compress", false, "compress output files with lz4")
	exportCmd.Flags().String("file", "", "output file (default: <output>/final/qa_dataset.<format>)")

	rootCmd.AddCommand(exportCmd)
}
