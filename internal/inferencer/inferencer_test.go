package inferencer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jkatofsky/plastering/internal/graph"
	"github.com/jkatofsky/plastering/internal/metadata"
)

func newStore(t *testing.T) *metadata.MemoryStore {
	t.Helper()
	ctx := context.Background()
	store := metadata.NewMemoryStore()
	for _, srcid := range []string{"A", "B", "C"} {
		require.NoError(t, store.PutRaw(ctx, metadata.RawMetadata{
			SrcID: srcid, Building: "ap_m",
			Metadata: map[string]string{metadata.KeyBACnetName: srcid},
		}))
	}
	require.NoError(t, store.PutLabel(ctx, metadata.LabeledMetadata{
		SrcID: "A", Building: "ap_m", Tagsets: []string{"Zone_Temperature_Sensor"}, PointTagset: "Zone_Temperature_Sensor",
	}))
	require.NoError(t, store.PutLabel(ctx, metadata.LabeledMetadata{
		SrcID: "C", Building: "ap_m", Tagsets: []string{"Room"},
	}))
	return store
}

func newInferencer(t *testing.T, store metadata.Store, targets ...string) *Inferencer {
	t.Helper()
	inf, err := New(context.Background(),
		Options{Name: "test", RequiredLabelTypes: []LabelType{LabelPointTagset}, TargetLabelType: LabelPointTagset},
		Params{TargetBuilding: "ap_m", TargetSrcids: targets},
		Deps{Store: store})
	require.NoError(t, err)
	return inf
}

type staticPredictor map[string]string

func (p staticPredictor) Predict(_ context.Context, srcids []string) (*graph.Graph, error) {
	g := graph.New()
	for _, srcid := range srcids {
		if point, ok := p[srcid]; ok {
			g.AddPredPoint(srcid, point, 1)
		}
	}
	return g, nil
}

func TestNew_Validation(t *testing.T) {
	ctx := context.Background()
	_, err := New(ctx, Options{}, Params{}, Deps{Store: metadata.NewMemoryStore()})
	assert.Error(t, err)

	_, err = New(ctx, Options{}, Params{TargetBuilding: "ap_m"}, Deps{})
	assert.Error(t, err)
}

func TestNew_DefaultTargets(t *testing.T) {
	inf := newInferencer(t, newStore(t))
	assert.Equal(t, []string{"A", "B", "C"}, inf.TargetSrcids())
	assert.Equal(t, []string{"A", "B", "C"}, inf.ResolveTargets(nil))
	assert.Equal(t, []string{"B"}, inf.ResolveTargets([]string{"B"}))
}

func TestRecordTraining_Union(t *testing.T) {
	inf := newInferencer(t, newStore(t))

	inf.RecordTraining([]string{"A"})
	inf.RecordTraining([]string{"A", "B"})
	inf.RecordTraining(nil)

	assert.Equal(t, []string{"A", "B"}, inf.TrainingSrcids())
	assert.Equal(t, 2, inf.TrainingSize())
	assert.True(t, inf.InTraining("B"))
	assert.False(t, inf.InTraining("C"))
}

func TestResolvePointTagsets(t *testing.T) {
	ctx := context.Background()
	inf := newInferencer(t, newStore(t))

	points, err := inf.ResolvePointTagsets(ctx, []string{"A"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Zone_Temperature_Sensor"}, points)

	_, err = inf.ResolvePointTagsets(ctx, []string{"A", "B"})
	assert.ErrorIs(t, err, ErrMissingLabel)

	_, err = inf.ResolvePointTagsets(ctx, []string{"C"})
	assert.ErrorIs(t, err, ErrMissingPointTagset)

	assert.Empty(t, inf.TrainingSrcids())
}

func TestProbaTargets(t *testing.T) {
	ctx := context.Background()
	inf := newInferencer(t, newStore(t), "A", "C")

	srcids, err := inf.ProbaTargets(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, srcids)

	_, err = inf.ProbaTargets(ctx, []string{"B"})
	assert.ErrorIs(t, err, ErrMissingLabel)
}

func TestEvaluateWith(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.PutLabel(ctx, metadata.LabeledMetadata{
		SrcID: "B", Building: "ap_m", Tagsets: []string{"Supply_Air_Temperature_Setpoint"},
	}))
	inf := newInferencer(t, store, "A", "B")
	inf.RecordTraining([]string{"A"})

	entry, err := inf.EvaluateWith(ctx, staticPredictor{
		"A": "Zone_Temperature_Sensor",
		"B": "Zone_Temperature_Sensor",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, entry.Iteration)
	assert.Equal(t, 1, entry.TrainingSrcids)
	assert.InDelta(t, 0.5, entry.Metrics.Accuracy, 1e-9)

	entry, err = inf.EvaluateWith(ctx, staticPredictor{
		"A": "Zone_Temperature_Sensor",
		"B": "Supply_Air_Temperature_Setpoint",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Iteration)
	assert.Equal(t, 1.0, entry.Metrics.F1)

	require.Len(t, inf.History(), 2)
	last, ok := inf.LastEntry()
	require.True(t, ok)
	assert.Equal(t, 1.0, last.Metrics.MacroF1)
}

func TestEvaluateWith_MissingLabel(t *testing.T) {
	inf := newInferencer(t, newStore(t), "A", "B")
	_, err := inf.EvaluateWith(context.Background(), staticPredictor{}, nil)
	assert.ErrorIs(t, err, ErrMissingLabel)
	assert.Empty(t, inf.History())
}

func TestUpdatePrior(t *testing.T) {
	inf := newInferencer(t, newStore(t))
	g := graph.New()
	tr := g.AddPredPoint("A", "Zone_Temperature_Sensor", 0.95)

	inf.UpdatePrior(g, graph.Confidences{tr: 0.95})

	prior, conf := inf.Prior()
	assert.Same(t, g, prior)
	assert.Equal(t, 0.95, conf[tr])
}

func TestFreshSamples(t *testing.T) {
	inf := newInferencer(t, newStore(t))
	inf.RecordTraining([]string{"A"})

	assert.Equal(t, []string{"B", "C"}, inf.FreshSamples([]string{"A", "B", "B", "C", "D"}, 2))
	assert.Empty(t, inf.FreshSamples([]string{"A"}, 5))
	assert.Empty(t, inf.FreshSamples([]string{"B"}, 0))
}
