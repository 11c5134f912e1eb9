// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/qa-extractor/internal/convert"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert PDF papers to Markdown ready for extraction",
	Long: `Convert finds every PDF under --input and writes <name>.md for each into
--output (default: pipeline.input_dir). Documents whose Markdown file already
exists are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		in, _ := cmd.Flags().GetString("input")
		out, _ := cmd.Flags().GetString("output")
		if out == "" {
			out = cfg.Pipeline.InputDir
		}

		paths, err := convert.Discover(in, []string{".pdf"})
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			fmt.Printf("No PDF files found in %s.\n", in)
			return nil
		}

		result := convert.ToMarkdown(convert.DefaultRegistry(), paths, out, os.Stdout)
		if result.HasFailures() {
			return fmt.Errorf("%d document(s) failed conversion", result.Failed)
		}
		return nil
	},
}

func init() {
	convertCmd.Flags().String("input", "papers", "directory of PDF files")
	convertCmd.Flags().String("output", "", "directory for Markdown files (default: pipeline.input_dir)")

	rootCmd.AddCommand(convertCmd)
}
