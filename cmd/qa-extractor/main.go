// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the qa-extractor CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pdiddy/qa-extractor/internal/config"
	"github.com/pdiddy/qa-extractor/internal/llm"
	"github.com/pdiddy/qa-extractor/internal/logging"
	"github.com/pdiddy/qa-extractor/internal/pipeline"
	"github.com/pdiddy/qa-extractor/internal/secrets"
	"github.com/pdiddy/qa-extractor/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// skipConfig marks commands that run without loading the configuration.
const skipConfig = "skip-config"

var (
	// cfg is the configuration loaded before every command.
	cfg types.Config

	logger    = slog.New(slog.DiscardHandler)
	logCloser io.Closer
)

// rootCmd is the base command for the qa-extractor CLI.
var rootCmd = &cobra.Command{
	Use:   "qa-extractor",
	Short: "Extract knowledge points and QA pairs from research papers",
	Long: `qa-extractor turns a directory of research papers into a question-answer
dataset in two LLM stages. Stage 1 extracts categorized knowledge points from
each paper; stage 2 writes QA pairs from them, plus an optional set of
cross-document pairs spanning several papers.

Every result is written as soon as it is produced and progress is checkpointed
after each paper, so an interrupted run picks up where it stopped.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[skipConfig] != "" {
			return nil
		}
		if err := secrets.LoadDotenv(".env"); err != nil {
			return err
		}
		path, _ := cmd.Flags().GetString("config")
		c, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = c
		return nil
	},
}

func init() {
	cobra.OnFinalize(closeLog)
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./config.yaml or ~/.qa-extractor/config.yaml)")
}

// addDirFlags registers --input and/or --output overrides on cmd.
func addDirFlags(cmd *cobra.Command, input, output bool) {
	if input {
		cmd.Flags().String("input", "", "directory of source documents (overrides pipeline.input_dir)")
	}
	if output {
		cmd.Flags().String("output", "", "output directory (overrides pipeline.output_dir)")
	}
}

// applyDirFlags copies --input and --output into cfg when given.
func applyDirFlags(cmd *cobra.Command) {
	if v, _ := cmd.Flags().GetString("input"); v != "" {
		cfg.Pipeline.InputDir = v
	}
	if v, _ := cmd.Flags().GetString("output"); v != "" {
		cfg.Pipeline.OutputDir = v
	}
}

// setupLogger replaces the discard logger with the configured one.
func setupLogger() error {
	l, closer, err := logging.New(cfg.Monitoring, os.Stderr)
	if err != nil {
		return err
	}
	logger, logCloser = l, closer
	slog.SetDefault(l)
	return nil
}

// closeLog releases the log file opened by setupLogger. It runs after
// every command, including ones that fail.
func closeLog() {
	if logCloser == nil {
		return
	}
	if err := logCloser.Close(); err != nil {
		fmt.Fprintln(os.Stderr, errorColor.Sprint("closing log file: "+err.Error()))
	}
	logCloser = nil
}

// newGateway resolves the API key and builds the LLM client.
func newGateway() (*llm.Client, error) {
	if err := config.ResolveAPIKey(&cfg, secrets.DefaultDir); err != nil {
		return nil, err
	}
	return llm.New(cfg.LLM, llm.WithLogger(logger), llm.WithPricing(cfg.Pricing)), nil
}

// newPipeline wires the pipeline for one command invocation.
func newPipeline(client pipeline.Gateway) *pipeline.Pipeline {
	runID := uuid.NewString()
	logger.Info("run started", "run_id", runID, "model", cfg.LLM.Model, "input", cfg.Pipeline.InputDir, "output", cfg.Pipeline.OutputDir)
	return pipeline.New(cfg, client,
		pipeline.WithLogger(logger),
		pipeline.WithOutput(os.Stdout),
		pipeline.WithRunID(runID),
	)
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorColor.Sprint("error: ")+err.Error())
		os.Exit(1)
	}
}
