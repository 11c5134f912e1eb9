// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pdiddy/qa-extractor/internal/artifact"
	"github.com/pdiddy/qa-extractor/internal/knowledge"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index knowledge points and QA pairs for search",
	Long: `Index reads the knowledge and QA files under the output directory into a
SQLite database at <output>/index/qa.db with full-text indexing. Files that
have not changed since the last index are skipped.`,
	RunE: runIndex,
}

func runIndex(cmd *cobra.Command, args []string) error {
	applyDirFlags(cmd)
	store, err := knowledge.NewStore(artifact.NewLayout(cfg.Pipeline.OutputDir))
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Ingest(context.Background(), os.Stdout)
	if err != nil {
		return err
	}
	fmt.Printf("\n%d indexed, %d updated, %d unchanged, %d failed (total: %d)\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed, summary.Total())
	return nil
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed knowledge points and QA pairs",
	Long: `Search queries the index built by the index command using full-text
search, structured filters (--kind, --category, --difficulty, --paper), or
both.`,
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	applyDirFlags(cmd)
	opts := knowledge.QueryOptions{Query: strings.Join(args, " ")}
	kind, _ := cmd.Flags().GetString("kind")
	opts.Kind = knowledge.Kind(kind)
	opts.Category, _ = cmd.Flags().GetString("category")
	opts.Difficulty, _ = cmd.Flags().GetString("difficulty")
	opts.PaperID, _ = cmd.Flags().GetString("paper")
	opts.MaxResults, _ = cmd.Flags().GetInt("limit")
	if opts.IsEmpty() {
		return fmt.Errorf("query or filter required: provide a search query, --kind, --category, --difficulty or --paper")
	}

	store, err := knowledge.NewStore(artifact.NewLayout(cfg.Pipeline.OutputDir))
	if err != nil {
		return err
	}
	defer store.Close()

	results, err := store.Search(context.Background(), opts)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	tbl := newTable("")
	tbl.AppendHeader(table.Row{"#", "Kind", "Text", "Category", "Paper"})
	for i, r := range results {
		tbl.AppendRow(table.Row{i + 1, r.Kind, truncate(r.Text, 60), truncate(r.Category, 28), truncate(r.PaperID, 24)})
	}
	tbl.AppendFooter(table.Row{"", "", fmt.Sprintf("%d results", len(results))})
	tbl.Render()
	return nil
}

func init() {
	addDirFlags(indexCmd, false, true)

	addDirFlags(searchCmd, false, true)
	searchCmd.Flags().String("kind", "", "filter by item kind: knowledge or qa")
	searchCmd.Flags().String("category", "", "filter by category")
	searchCmd.Flags().String("difficulty", "", "filter by difficulty")
	searchCmd.Flags().String("paper", "", "filter by paper ID")
	searchCmd.Flags().Int("limit", 0, "maximum number of results (default 20)")
	searchCmd.Flags().Bool("json", false, "print results as JSON")

	rootCmd.AddCommand(indexCmd, searchCmd)
}
