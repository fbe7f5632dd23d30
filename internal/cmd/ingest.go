package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jkatofsky/plastering/internal/config"
	"github.com/jkatofsky/plastering/internal/db"
	"github.com/jkatofsky/plastering/internal/metadata"
)

var (
	ingestDB     string
	ingestRaw    string
	ingestLabels string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load raw metadata and labels into the store",
	Long: `Load newline-delimited JSON dumps of raw point metadata and of labels
into the DuckDB metadata store. Records with an existing srcid are replaced.`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestDB, "db", config.DefaultDatabase, "Path to the DuckDB metadata store")
	ingestCmd.Flags().StringVar(&ingestRaw, "raw", "", "Raw metadata dump (JSONL)")
	ingestCmd.Flags().StringVar(&ingestLabels, "labels", "", "Label dump (JSONL)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestRaw == "" && ingestLabels == "" {
		return fmt.Errorf("nothing to ingest: pass --raw and/or --labels")
	}

	conn, err := db.Open(ingestDB)
	if err != nil {
		return err
	}
	defer conn.Close()

	stats, err := metadata.Ingest(cmd.Context(), conn, ingestRaw, ingestLabels)
	if err != nil {
		return err
	}

	fmt.Printf("Ingested into %s:\n", ingestDB)
	fmt.Printf("  - %d raw records\n", stats.Raw)
	fmt.Printf("  - %d labels\n", stats.Labels)
	return nil
}
