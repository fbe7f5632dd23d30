package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/jkatofsky/plastering/internal/config"
	"github.com/jkatofsky/plastering/internal/db"
	"github.com/jkatofsky/plastering/internal/engine"
	"github.com/jkatofsky/plastering/internal/metadata"
	"github.com/jkatofsky/plastering/internal/metrics"
	"github.com/jkatofsky/plastering/internal/output"
	"github.com/jkatofsky/plastering/internal/pipeline"
)

var (
	runConfig      string
	runMetricsAddr string
	runVerbose     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an active-learning experiment",
	Long: `Run the experiment described by a YAML config: build the selected
framework against its engine, learn, evaluate every round, and write the
report and predictions to <output_dir>/<run id>/.`,
	RunE: runExperiment,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfig, "config", "c", "", "Experiment config file (YAML)")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address during the run")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Log engine calls and per-round details")
	_ = runCmd.MarkFlagRequired("config")
}

func runExperiment(cmd *cobra.Command, args []string) error {
	exp, err := config.Load(runConfig)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if runVerbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	m := metrics.New()
	if runMetricsAddr != "" {
		srv := &http.Server{Addr: runMetricsAddr, Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		fmt.Printf("Serving metrics on %s\n", runMetricsAddr)
	}

	conn, err := db.Open(exp.Database)
	if err != nil {
		return err
	}
	defer conn.Close()

	store, err := metadata.NewDuckStore(conn)
	if err != nil {
		return err
	}

	fmt.Printf("Framework: %s\n", exp.Framework)
	fmt.Printf("Target building: %s\n", exp.TargetBuilding)
	if exp.Prior != nil {
		fmt.Printf("Prior: %s\n", exp.Prior.Framework)
	}

	p, err := pipeline.New(pipeline.Config{
		Registry: pipeline.RemoteRegistry(engine.Config{
			URL:     exp.Engine.URL,
			Timeout: exp.EngineTimeout(),
			Metrics: m,
			Logger:  logger,
		}),
		Store:   store,
		Logger:  logger,
		Metrics: m,
	})
	if err != nil {
		return err
	}

	res, err := p.Run(ctx, exp)
	if err != nil {
		return err
	}

	fmt.Printf("Finished %d rounds with %d training srcids\n", res.Stats.Iterations, res.Stats.TrainingSrcids)
	fmt.Printf("  - F1: %.4f\n", res.Final.Metrics.F1)
	fmt.Printf("  - Macro F1: %.4f\n", res.Final.Metrics.MacroF1)

	files, err := output.NewGenerator(exp.OutputDir).Generate(output.Report{
		RunID:           res.Stats.RunID,
		Framework:       res.Stats.Framework,
		PriorFramework:  res.Stats.PriorFramework,
		TargetBuilding:  exp.TargetBuilding,
		SourceBuildings: exp.SourceBuildings,
		Started:         res.Stats.Started,
		Finished:        res.Stats.Finished,
		TrainingSrcids:  res.Stats.TrainingSrcids,
		History:         res.History,
		PriorHistory:    res.PriorHistory,
		Final:           res.Final,
		Predictions:     res.Predictions,
	})
	if err != nil {
		return fmt.Errorf("failed to generate output: %w", err)
	}

	fmt.Printf("Generated %d files:\n", len(files))
	for _, f := range files {
		fmt.Printf("  - %s\n", f)
	}
	return nil
}
