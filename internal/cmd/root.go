package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "plastering",
	Short: "Active learning of Brick point types from building metadata",
	Long: `plastering drives the Zodiac and Scrabble classifier engines against a
metadata store of building sensor points and scores how well they infer
Brick point tagsets from raw naming metadata.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.HiddenDefaultCmd = false
}
