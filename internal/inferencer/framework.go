package inferencer

import (
	"context"

	"github.com/jkatofsky/plastering/internal/graph"
)

// Framework is the classifier capability the experiment driver works
// against. The Zodiac and Scrabble adapters both implement it.
type Framework interface {
	Name() string
	TargetSrcids() []string
	TrainingSrcids() []string
	History() []HistoryEntry

	SelectInformativeSamples(ctx context.Context, n int) ([]string, error)
	UpdateModel(ctx context.Context, srcids []string) error
	Predict(ctx context.Context, srcids []string) (*graph.Graph, error)
	PredictProba(ctx context.Context, srcids []string) (graph.Confidences, error)
	Evaluate(ctx context.Context, srcids []string) (HistoryEntry, error)
	LearnAuto(ctx context.Context, opts LearnOptions) error
	UpdatePrior(g *graph.Graph, confidences graph.Confidences)
}

// LogRound reports the outcome of one learning round.
func (i *Inferencer) LogRound(iteration, newSrcids int, entry HistoryEntry, attrs ...any) {
	i.metrics.IncIteration(i.name)
	args := []any{
		"iteration", iteration,
		"new_srcids", newSrcids,
		"training_srcids", len(i.training),
		"f1", entry.Metrics.F1,
		"macrof1", entry.Metrics.MacroF1,
	}
	i.logger.Info("learning round", append(args, attrs...)...)
}
