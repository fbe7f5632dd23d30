package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jkatofsky/plastering/internal/config"
	"github.com/jkatofsky/plastering/internal/db"
	"github.com/jkatofsky/plastering/internal/metadata"
)

var (
	statsDB       string
	statsBuilding string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show raw and labeled record counts per building",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringVar(&statsDB, "db", config.DefaultDatabase, "Path to the DuckDB metadata store")
	statsCmd.Flags().StringVarP(&statsBuilding, "building", "b", "", "Only show this building")
}

func runStats(cmd *cobra.Command, args []string) error {
	conn, err := db.Open(statsDB)
	if err != nil {
		return err
	}
	defer conn.Close()

	store, err := metadata.NewDuckStore(conn)
	if err != nil {
		return err
	}

	buildings := []string{statsBuilding}
	if statsBuilding == "" {
		buildings, err = store.Buildings(cmd.Context())
		if err != nil {
			return err
		}
	}
	if len(buildings) == 0 {
		fmt.Println("No buildings in store")
		return nil
	}

	for _, building := range buildings {
		stats, err := store.BuildingStats(cmd.Context(), building)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d raw, %d labeled\n", stats.Building, stats.Raw, stats.Labeled)
	}
	return nil
}
