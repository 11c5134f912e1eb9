// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pdiddy/qa-extractor/internal/artifact"
	"github.com/pdiddy/qa-extractor/internal/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check every knowledge and QA file against its schema",
	Long: `Validate loads every knowledge and QA file under the output directory,
checks it against the result schema, and reports files that failed, are
empty or cannot be read. With --fix those files are deleted so the next run
processes them again.`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	applyDirFlags(cmd)
	fix, _ := cmd.Flags().GetBool("fix")

	r, err := validate.Run(artifact.NewLayout(cfg.Pipeline.OutputDir), cfg.Categories)
	if err != nil {
		return err
	}

	tbl := newTable("Validation")
	tbl.AppendHeader(table.Row{"Kind", "Valid", "Problems", "Items"})
	tbl.AppendRows([]table.Row{
		{"Knowledge", r.KnowledgeOK, r.Count(validate.Knowledge), comma(r.KnowledgePoints) + " points"},
		{"QA", r.QAOK, r.Count(validate.QA) + r.Count(validate.CrossDoc), comma(r.QAPairs) + " pairs"},
	})
	tbl.Render()

	printDistribution("Difficulty", "Difficulty", r.Difficulties, r.QAPairs)
	printDistribution("Reasoning Types", "Reasoning Type", r.ReasoningTypes, r.QAPairs)

	for _, w := range r.Warnings {
		warnColor.Printf("warning: %s\n", w)
	}

	if !r.HasProblems() {
		okColor.Println("All files are valid.")
		return nil
	}

	problems := newTable("Problems")
	problems.AppendHeader(table.Row{"Kind", "File", "Reason"})
	for _, p := range r.Problems {
		problems.AppendRow(table.Row{p.Kind, p.File(), truncate(p.Reason, 80)})
	}
	problems.Render()

	if !fix {
		return fmt.Errorf("%d file(s) need reprocessing; rerun with --fix to delete them", len(r.Problems))
	}
	removed, err := r.Fix()
	for _, path := range removed {
		fmt.Printf("removed %s\n", path)
	}
	if err != nil {
		return err
	}
	okColor.Printf("Removed %d file(s); run again to reprocess them.\n", len(removed))
	return nil
}

func init() {
	addDirFlags(validateCmd, false, true)
	validateCmd.Flags().Bool("fix", false, "delete failed, empty and unreadable files")

	rootCmd.AddCommand(validateCmd)
}
