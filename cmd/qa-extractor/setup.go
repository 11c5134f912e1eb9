// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/qa-extractor/internal/checkpoint"
	"github.com/pdiddy/qa-extractor/internal/config"
	"github.com/pdiddy/qa-extractor/internal/secrets"
	"github.com/pdiddy/qa-extractor/pkg/types"
)

var initCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write a default configuration file",
	Annotations: map[string]string{skipConfig: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("path")
		force, _ := cmd.Flags().GetBool("force")

		if err := config.Write(path, types.DefaultConfig(), force); err != nil {
			return err
		}
		okColor.Printf("Wrote %s\n", path)
		fmt.Printf(`
Next steps:
  1. Set llm.api_key in %s, export QA_EXTRACTOR_API_KEY,
     or put the key in %s/%s
  2. Place papers under pipeline.input_dir (default ./MDs)
  3. qa-extractor run
`, path, secrets.DefaultDir, secrets.APIKeyFile)
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the checkpoint so the next run starts over",
	Long: `Clear removes the checkpoint file from the output directory. Knowledge
and QA files are kept; without a checkpoint, the next run extracts every
document again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyDirFlags(cmd)
		yes, _ := cmd.Flags().GetBool("yes")

		store := checkpoint.NewStore(cfg.Pipeline.OutputDir, "")
		if !store.Exists() {
			fmt.Println("No checkpoint found.")
			return nil
		}
		if !yes && !confirm(fmt.Sprintf("Delete %s?", store.Path())) {
			fmt.Println("Aborted.")
			return nil
		}
		if err := store.Clear(); err != nil {
			return err
		}
		okColor.Printf("Removed %s\n", store.Path())
		return nil
	},
}

// confirm asks a yes/no question on stdin.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func init() {
	initCmd.Flags().String("path", config.DefaultPath, "where to write the config file")
	initCmd.Flags().Bool("force", false, "overwrite an existing file")

	addDirFlags(clearCmd, false, true)
	clearCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")

	rootCmd.AddCommand(initCmd, clearCmd)
}
