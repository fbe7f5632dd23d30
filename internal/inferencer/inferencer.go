// Package inferencer is the evaluation harness shared by the classifier
// adapters. It owns the bookkeeping every adapter needs (target set,
// training set, prior graph, metric history) and exposes it as explicit
// hooks that adapters call before their own side effects.
package inferencer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jkatofsky/plastering/internal/aggregator"
	"github.com/jkatofsky/plastering/internal/graph"
	"github.com/jkatofsky/plastering/internal/metadata"
	"github.com/jkatofsky/plastering/internal/metrics"
)

type LabelType string

const (
	LabelPointTagset LabelType = "point_tagset"
	LabelFullParsing LabelType = "fullparsing"
	LabelAllTagsets  LabelType = "tagsets"
)

// Params describe what an adapter learns on.
type Params struct {
	TargetBuilding string
	// TargetSrcids defaults to every raw record of TargetBuilding.
	TargetSrcids    []string
	SourceBuildings []string
	// Hotstart seeds the training set with the labels that already exist
	// for the target building.
	Hotstart bool
}

// Deps are the collaborators injected into every adapter.
type Deps struct {
	Store   metadata.Store
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

type Options struct {
	Name               string
	RequiredLabelTypes []LabelType
	TargetLabelType    LabelType
}

type HistoryEntry struct {
	Iteration      int               `json:"iteration"`
	TrainingSrcids int               `json:"training_srcids"`
	Metrics        aggregator.Scores `json:"metrics"`
	Time           time.Time         `json:"time"`
}

// LearnOptions bound an automatic learning loop. Zero values select the
// adapter's defaults.
type LearnOptions struct {
	Iterations int
	SampleNum  int
}

// Predictor produces a result graph for srcids.
type Predictor interface {
	Predict(ctx context.Context, srcids []string) (*graph.Graph, error)
}

type Inferencer struct {
	name               string
	targetBuilding     string
	targetSrcids       []string
	sourceBuildings    []string
	hotstart           bool
	requiredLabelTypes []LabelType
	targetLabelType    LabelType

	store      metadata.Store
	logger     *slog.Logger
	metrics    *metrics.Metrics
	aggregator *aggregator.Aggregator

	training         map[string]struct{}
	history          []HistoryEntry
	prior            *graph.Graph
	priorConfidences graph.Confidences
}

func New(ctx context.Context, opts Options, params Params, deps Deps) (*Inferencer, error) {
	if params.TargetBuilding == "" {
		return nil, fmt.Errorf("target building is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("metadata store is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	targets := append([]string(nil), params.TargetSrcids...)
	if len(targets) == 0 {
		raws, err := deps.Store.RawByBuilding(ctx, params.TargetBuilding)
		if err != nil {
			return nil, fmt.Errorf("failed to load target srcids: %w", err)
		}
		for _, raw := range raws {
			targets = append(targets, raw.SrcID)
		}
	}

	return &Inferencer{
		name:               opts.Name,
		targetBuilding:     params.TargetBuilding,
		targetSrcids:       targets,
		sourceBuildings:    append([]string(nil), params.SourceBuildings...),
		hotstart:           params.Hotstart,
		requiredLabelTypes: opts.RequiredLabelTypes,
		targetLabelType:    opts.TargetLabelType,
		store:              deps.Store,
		logger:             logger.With("framework", opts.Name),
		metrics:            deps.Metrics,
		aggregator:         aggregator.NewAggregator(aggregator.DefaultConfig()),
		training:           make(map[string]struct{}),
	}, nil
}

func (i *Inferencer) Name() string                             { return i.name }
func (i *Inferencer) TargetBuilding() string                   { return i.targetBuilding }
func (i *Inferencer) Hotstart() bool                           { return i.hotstart }
func (i *Inferencer) Store() metadata.Store                    { return i.store }
func (i *Inferencer) Logger() *slog.Logger                     { return i.logger }
func (i *Inferencer) Metrics() *metrics.Metrics                { return i.metrics }
func (i *Inferencer) RequiredLabelTypes() []LabelType          { return i.requiredLabelTypes }
func (i *Inferencer) TargetLabelType() LabelType               { return i.targetLabelType }
func (i *Inferencer) TargetSrcids() []string                   { return append([]string(nil), i.targetSrcids...) }
func (i *Inferencer) SourceBuildings() []string                { return append([]string(nil), i.sourceBuildings...) }
func (i *Inferencer) Prior() (*graph.Graph, graph.Confidences) { return i.prior, i.priorConfidences }

// SetSourceBuildings replaces the source building list, which adapters may
// extend during construction.
func (i *Inferencer) SetSourceBuildings(buildings []string) {
	i.sourceBuildings = append([]string(nil), buildings...)
}

// TrainingSrcids returns the training set in sorted order.
func (i *Inferencer) TrainingSrcids() []string {
	out := make([]string, 0, len(i.training))
	for srcid := range i.training {
		out = append(out, srcid)
	}
	sort.Strings(out)
	return out
}

func (i *Inferencer) InTraining(srcid string) bool {
	_, ok := i.training[srcid]
	return ok
}

func (i *Inferencer) TrainingSize() int {
	return len(i.training)
}

// ResolveTargets returns srcids, or the full target set when srcids is empty.
func (i *Inferencer) ResolveTargets(srcids []string) []string {
	if len(srcids) == 0 {
		return i.TargetSrcids()
	}
	return srcids
}

// ResolvePointTagsets looks up the point tagset of every srcid. It fails on
// the first srcid without a label or without a point tagset and never
// touches the training set.
func (i *Inferencer) ResolvePointTagsets(ctx context.Context, srcids []string) ([]string, error) {
	points := make([]string, 0, len(srcids))
	for _, srcid := range srcids {
		label, err := i.label(ctx, srcid)
		if err != nil {
			return nil, err
		}
		point := label.Point()
		if point == "" {
			return nil, fmt.Errorf("%w at %s: %v", ErrMissingPointTagset, srcid, label.Tagsets)
		}
		points = append(points, point)
	}
	return points, nil
}

// RecordTraining adds srcids to the training set. Re-adding a member is a no-op.
func (i *Inferencer) RecordTraining(srcids []string) {
	for _, srcid := range srcids {
		i.training[srcid] = struct{}{}
	}
	i.metrics.SetTrainingSize(i.name, len(i.training))
}

// ProbaTargets resolves srcids like ResolveTargets and requires a label
// record for each of them.
func (i *Inferencer) ProbaTargets(ctx context.Context, srcids []string) ([]string, error) {
	srcids = i.ResolveTargets(srcids)
	for _, srcid := range srcids {
		if _, err := i.label(ctx, srcid); err != nil {
			return nil, err
		}
	}
	return srcids, nil
}

// QueryLabels returns every label of building.
func (i *Inferencer) QueryLabels(ctx context.Context, building string) ([]metadata.LabeledMetadata, error) {
	labels, err := i.store.LabelsByBuilding(ctx, building)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels of %s: %w", building, err)
	}
	return labels, nil
}

// UpdatePrior installs a previously computed result graph and the
// confidences of its instance triples.
func (i *Inferencer) UpdatePrior(g *graph.Graph, confidences graph.Confidences) {
	i.prior = g
	i.priorConfidences = confidences
}

// EvaluateWith predicts srcids through p, scores the point tagsets against
// the store labels, and appends the result to the history.
func (i *Inferencer) EvaluateWith(ctx context.Context, p Predictor, srcids []string) (HistoryEntry, error) {
	srcids = i.ResolveTargets(srcids)

	truthPoints, err := i.ResolvePointTagsets(ctx, srcids)
	if err != nil {
		return HistoryEntry{}, err
	}
	truth := make(map[string]string, len(srcids))
	for n, srcid := range srcids {
		truth[srcid] = truthPoints[n]
	}

	g, err := p.Predict(ctx, srcids)
	if err != nil {
		return HistoryEntry{}, err
	}
	pred := make(map[string]string, len(srcids))
	for _, srcid := range srcids {
		if point, ok := g.PointType(srcid); ok {
			pred[srcid] = point
		}
	}

	entry := HistoryEntry{
		Iteration:      len(i.history),
		TrainingSrcids: len(i.training),
		Metrics:        i.aggregator.Aggregate(truth, pred),
		Time:           time.Now(),
	}
	i.history = append(i.history, entry)
	i.metrics.SetScores(i.name, entry.Metrics.F1, entry.Metrics.MacroF1)
	return entry, nil
}

func (i *Inferencer) History() []HistoryEntry {
	return append([]HistoryEntry(nil), i.history...)
}

// LastEntry returns the most recent evaluation.
func (i *Inferencer) LastEntry() (HistoryEntry, bool) {
	if len(i.history) == 0 {
		return HistoryEntry{}, false
	}
	return i.history[len(i.history)-1], true
}

func (i *Inferencer) label(ctx context.Context, srcid string) (*metadata.LabeledMetadata, error) {
	label, err := i.store.LabelBySrcID(ctx, srcid)
	if errors.Is(err, metadata.ErrNotFound) {
		return nil, fmt.Errorf("%w for %s", ErrMissingLabel, srcid)
	}
	if err != nil {
		return nil, err
	}
	return label, nil
}

// FreshSamples keeps at most n distinct srcids that are not in the
// training set, preserving order.
func (i *Inferencer) FreshSamples(srcids []string, n int) []string {
	seen := make(map[string]struct{}, len(srcids))
	out := make([]string, 0, len(srcids))
	for _, srcid := range srcids {
		if len(out) >= n {
			break
		}
		if _, dup := seen[srcid]; dup || i.InTraining(srcid) {
			continue
		}
		seen[srcid] = struct{}{}
		out = append(out, srcid)
	}
	return out
}
