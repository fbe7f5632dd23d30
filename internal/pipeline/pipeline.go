// Package pipeline drives an experiment: it builds the selected framework,
// optionally learns a prior with another one first, runs the learning loop
// and collects the final predictions.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jkatofsky/plastering/internal/config"
	"github.com/jkatofsky/plastering/internal/graph"
	"github.com/jkatofsky/plastering/internal/inferencer"
	"github.com/jkatofsky/plastering/internal/metadata"
	"github.com/jkatofsky/plastering/internal/metrics"
)

var ErrUnknownFramework = errors.New("unknown framework")

type Pipeline struct {
	registry Registry
	store    metadata.Store
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Config struct {
	Registry Registry
	Store    metadata.Store
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

func New(cfg Config) (*Pipeline, error) {
	if len(cfg.Registry) == 0 {
		return nil, fmt.Errorf("framework registry is empty")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("metadata store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		registry: cfg.Registry,
		store:    cfg.Store,
		logger:   logger,
		metrics:  cfg.Metrics,
	}, nil
}

type Stats struct {
	RunID          string
	Framework      string
	PriorFramework string
	Iterations     int
	PriorRounds    int
	TrainingSrcids int
	Predictions    int
	Started        time.Time
	Finished       time.Time
}

type Result struct {
	Stats        Stats
	History      []inferencer.HistoryEntry
	PriorHistory []inferencer.HistoryEntry
	Final        inferencer.HistoryEntry
	Predictions  *graph.Graph
}

func (p *Pipeline) Run(ctx context.Context, exp *config.Experiment) (*Result, error) {
	stats := Stats{
		RunID:     uuid.NewString(),
		Framework: exp.Framework,
		Started:   time.Now(),
	}
	logger := p.logger.With("run_id", stats.RunID)
	deps := inferencer.Deps{Store: p.store, Logger: logger, Metrics: p.metrics}
	result := &Result{}

	var (
		prior       *graph.Graph
		confidences graph.Confidences
	)
	if exp.Prior != nil {
		stats.PriorFramework = exp.Prior.Framework
		var err error
		prior, confidences, result.PriorHistory, err = p.learnPrior(ctx, deps, exp)
		if err != nil {
			return nil, fmt.Errorf("prior failed: %w", err)
		}
		stats.PriorRounds = len(result.PriorHistory)
	}

	fw, err := p.build(ctx, exp.Framework, deps, exp)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		fw.UpdatePrior(prior, confidences)
	}

	logger.Info("learning", "framework", fw.Name(), "targets", len(fw.TargetSrcids()), "training_srcids", len(fw.TrainingSrcids()))
	if err := fw.LearnAuto(ctx, exp.Learn.Options()); err != nil {
		return nil, fmt.Errorf("learning failed: %w", err)
	}

	result.History = fw.History()
	if len(result.History) == 0 {
		entry, err := fw.Evaluate(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("evaluation failed: %w", err)
		}
		result.History = append(result.History, entry)
	}
	result.Final = result.History[len(result.History)-1]

	result.Predictions, err = fw.Predict(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("prediction failed: %w", err)
	}

	stats.Iterations = len(result.History)
	stats.TrainingSrcids = len(fw.TrainingSrcids())
	stats.Predictions = result.Predictions.Len()
	stats.Finished = time.Now()
	result.Stats = stats

	logger.Info("run finished",
		"framework", fw.Name(),
		"f1", result.Final.Metrics.F1,
		"macrof1", result.Final.Metrics.MacroF1,
		"duration", stats.Finished.Sub(stats.Started))
	return result, nil
}

// learnPrior trains the prior framework and returns its predictions over
// the target set with their confidences.
func (p *Pipeline) learnPrior(ctx context.Context, deps inferencer.Deps, exp *config.Experiment) (*graph.Graph, graph.Confidences, []inferencer.HistoryEntry, error) {
	fw, err := p.build(ctx, exp.Prior.Framework, deps, exp)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := fw.LearnAuto(ctx, exp.Prior.Learn.Options()); err != nil {
		return nil, nil, nil, err
	}

	g, err := fw.Predict(ctx, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	confidences, err := fw.PredictProba(ctx, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	return g, confidences, fw.History(), nil
}

func (p *Pipeline) build(ctx context.Context, name string, deps inferencer.Deps, exp *config.Experiment) (inferencer.Framework, error) {
	construct, ok := p.registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFramework, name)
	}
	fw, err := construct(ctx, deps, exp)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", name, err)
	}
	return fw, nil
}
