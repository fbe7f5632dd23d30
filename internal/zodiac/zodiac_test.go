package zodiac

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jkatofsky/plastering/internal/engine"
	"github.com/jkatofsky/plastering/internal/graph"
	"github.com/jkatofsky/plastering/internal/inferencer"
	"github.com/jkatofsky/plastering/internal/metadata"
)

type fakeEngine struct {
	init         engine.ZodiacInit
	updateSrcids [][]string
	updateLabels [][]string
	predictions  map[string]string
	probas       map[string][]float64
	samples      [][]string
	random       []string
	grays        []int
	grayCalls    int
}

func (f *fakeEngine) UpdateModel(_ context.Context, srcids, labels []string) error {
	f.updateSrcids = append(f.updateSrcids, append([]string(nil), srcids...))
	f.updateLabels = append(f.updateLabels, append([]string(nil), labels...))
	return nil
}

func (f *fakeEngine) Predict(_ context.Context, srcids []string) ([]string, error) {
	out := make([]string, len(srcids))
	for n, srcid := range srcids {
		if p, ok := f.predictions[srcid]; ok {
			out[n] = p
		} else {
			out[n] = "none"
		}
	}
	return out, nil
}

func (f *fakeEngine) PredictProba(_ context.Context, srcids []string) ([][]float64, error) {
	out := make([][]float64, len(srcids))
	for n, srcid := range srcids {
		if p, ok := f.probas[srcid]; ok {
			out[n] = p
		} else {
			out[n] = []float64{1}
		}
	}
	return out, nil
}

func (f *fakeEngine) SelectInformativeSamples(_ context.Context, n int) ([]string, error) {
	if len(f.samples) == 0 {
		return nil, nil
	}
	next := f.samples[0]
	f.samples = f.samples[1:]
	return next, nil
}

func (f *fakeEngine) RandomLearningSrcids(_ context.Context, n int) ([]string, error) {
	if n < len(f.random) {
		return f.random[:n], nil
	}
	return f.random, nil
}

func (f *fakeEngine) NumSensorsInGray(_ context.Context) (int, error) {
	f.grayCalls++
	if len(f.grays) == 0 {
		return 0, nil
	}
	next := f.grays[0]
	f.grays = f.grays[1:]
	return next, nil
}

func factoryFor(f *fakeEngine) EngineFactory {
	return func(_ context.Context, init engine.ZodiacInit) (engine.Zodiac, error) {
		f.init = init
		return f, nil
	}
}

func intPtr(v int) *int { return &v }

// newStore holds four points of ap_m; "B" has no label.
func newStore(t *testing.T) *metadata.MemoryStore {
	t.Helper()
	ctx := context.Background()
	store := metadata.NewMemoryStore()

	raws := []metadata.RawMetadata{
		{SrcID: "A", Building: "ap_m", Metadata: map[string]string{
			metadata.KeyBACnetName:        "RM-101.ZNT",
			metadata.KeyVendorGivenName:   "NAE1/RM101.ZN-T",
			metadata.KeyBACnetDescription: "Zone Temp",
			metadata.KeyBACnetUnit:        "64",
			metadata.KeyBACnetTypeStr:     "Analog Input",
			metadata.KeyBACnetType:        "0",
		}},
		{SrcID: "B", Building: "ap_m", Metadata: map[string]string{metadata.KeyBACnetName: "RM-102.ZNT"}},
		{SrcID: "C", Building: "ap_m", Metadata: map[string]string{metadata.KeyBACnetName: "AHU-1.SAT-SP"}},
		{SrcID: "D", Building: "ap_m", Metadata: map[string]string{metadata.KeyBACnetName: "AHU-1.SAT"}},
		{SrcID: "X", Building: "ebu3b", Metadata: map[string]string{metadata.KeyBACnetName: "EBU3B.ZNT"}},
	}
	for _, r := range raws {
		require.NoError(t, store.PutRaw(ctx, r))
	}

	labels := []metadata.LabeledMetadata{
		{SrcID: "A", Building: "ap_m", Tagsets: []string{"Room", "Zone_Temperature_Sensor"}, PointTagset: "Zone_Temperature_Sensor"},
		{SrcID: "C", Building: "ap_m", Tagsets: []string{"Supply_Air_Temperature_Setpoint"}},
		{SrcID: "D", Building: "ap_m", Tagsets: []string{"Supply_Air_Temperature_Sensor"}},
	}
	for _, l := range labels {
		require.NoError(t, store.PutLabel(ctx, l))
	}
	return store
}

func newZodiac(t *testing.T, store metadata.Store, f *fakeEngine, params inferencer.Params, cfg Config) *Zodiac {
	t.Helper()
	if params.TargetBuilding == "" {
		params.TargetBuilding = "ap_m"
	}
	z, err := New(context.Background(), inferencer.Deps{Store: store}, params, cfg, factoryFor(f))
	require.NoError(t, err)
	return z
}

func TestConfig_Resolve(t *testing.T) {
	s := Config{}.Resolve()
	assert.Equal(t, Settings{SeedNum: 10, NEstimators: 400, RandomState: 0}, s)

	s = Config{SeedNum: intPtr(3), NEstimators: intPtr(50), RandomState: intPtr(7), SeedSrcids: []string{"A"}}.Resolve()
	assert.Equal(t, Settings{SeedNum: 3, SeedSrcids: []string{"A"}, NEstimators: 50, RandomState: 7}, s)
}

func TestNew_BuildsFeaturesAndSeeds(t *testing.T) {
	f := &fakeEngine{random: []string{"A", "C", "D"}}
	z := newZodiac(t, newStore(t), f, inferencer.Params{}, Config{SeedNum: intPtr(2)})

	assert.Equal(t, []string{"A", "B", "C", "D"}, z.TargetSrcids())
	assert.Equal(t, "RM-101.ZNT", f.init.Names["A"])
	assert.Equal(t, "NAE1/RM101.ZN-T", f.init.JCINames["A"])
	assert.Equal(t, "Zone Temp", f.init.Descs["A"])
	assert.Equal(t, map[string]int{"64": 1}, f.init.Units["A"])
	assert.Equal(t, map[string]int{"Analog Input": 1}, f.init.TypeStrs["A"])
	assert.Equal(t, map[string]int{"0": 1}, f.init.Types["A"])
	assert.Equal(t, map[string]int{}, f.init.Units["B"])
	assert.Equal(t, "", f.init.Descs["B"])
	assert.NotContains(t, f.init.Names, "X")
	assert.Equal(t, 400, f.init.Conf["n_estimators"])

	require.Len(t, f.updateSrcids, 1)
	assert.Equal(t, []string{"A", "C"}, f.updateSrcids[0])
	assert.Equal(t, []string{"Zone_Temperature_Sensor", "Supply_Air_Temperature_Setpoint"}, f.updateLabels[0])
	assert.Equal(t, []string{"A", "C"}, z.TrainingSrcids())
}

func TestNew_SeedSrcidsAndHotstart(t *testing.T) {
	f := &fakeEngine{random: []string{"A"}}
	z := newZodiac(t, newStore(t), f, inferencer.Params{}, Config{SeedSrcids: []string{"D"}})
	assert.Equal(t, []string{"D"}, z.TrainingSrcids())

	f = &fakeEngine{random: []string{"A"}}
	z = newZodiac(t, newStore(t), f, inferencer.Params{Hotstart: true}, Config{})
	assert.Equal(t, []string{"A", "C", "D"}, z.TrainingSrcids())
}

func TestNew_MissingMetadata(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.PutRaw(ctx, metadata.RawMetadata{SrcID: "E", Building: "ap_m"}))

	_, err := New(ctx, inferencer.Deps{Store: store},
		inferencer.Params{TargetBuilding: "ap_m", TargetSrcids: []string{"A", "E"}},
		Config{SeedSrcids: []string{"A"}}, factoryFor(&fakeEngine{}))
	assert.ErrorIs(t, err, inferencer.ErrMissingMetadata)

	_, err = New(ctx, inferencer.Deps{Store: store},
		inferencer.Params{TargetBuilding: "ap_m", TargetSrcids: []string{"A", "nope"}},
		Config{SeedSrcids: []string{"A"}}, factoryFor(&fakeEngine{}))
	assert.ErrorIs(t, err, inferencer.ErrMissingMetadata)
}

func TestUpdateModel(t *testing.T) {
	ctx := context.Background()
	f := &fakeEngine{}
	z := newZodiac(t, newStore(t), f, inferencer.Params{}, Config{SeedNum: intPtr(0)})
	require.Empty(t, z.TrainingSrcids())
	forwarded := len(f.updateSrcids)

	require.NoError(t, z.UpdateModel(ctx, []string{"A"}))
	assert.Equal(t, []string{"A"}, z.TrainingSrcids())
	assert.Equal(t, []string{"A"}, f.updateSrcids[forwarded])
	assert.Equal(t, []string{"Zone_Temperature_Sensor"}, f.updateLabels[forwarded])

	err := z.UpdateModel(ctx, []string{"A", "B"})
	assert.ErrorIs(t, err, inferencer.ErrMissingLabel)
	assert.Equal(t, []string{"A"}, z.TrainingSrcids())
	assert.Len(t, f.updateSrcids, forwarded+1, "failed update must not reach the engine")

	require.NoError(t, z.UpdateModel(ctx, []string{"A", "C"}))
	assert.Equal(t, []string{"A", "C"}, z.TrainingSrcids())

	require.NoError(t, z.UpdateModel(ctx, []string{"A"}))
	assert.Equal(t, []string{"A", "C"}, z.TrainingSrcids())
	assert.Equal(t, []string{"A"}, f.updateSrcids[len(f.updateSrcids)-1], "re-sent to the engine")
}

func TestUpdateModel_MissingPointTagset(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.PutLabel(ctx, metadata.LabeledMetadata{SrcID: "B", Building: "ap_m", Tagsets: []string{"Room"}}))
	z := newZodiac(t, store, &fakeEngine{}, inferencer.Params{}, Config{SeedNum: intPtr(0)})

	err := z.UpdateModel(ctx, []string{"B"})
	assert.ErrorIs(t, err, inferencer.ErrMissingPointTagset)
	assert.Empty(t, z.TrainingSrcids())
}

func TestSelectInformativeSamples(t *testing.T) {
	f := &fakeEngine{random: []string{"A"}, samples: [][]string{{"A", "B", "C", "C", "D"}}}
	z := newZodiac(t, newStore(t), f, inferencer.Params{}, Config{SeedNum: intPtr(1)})

	samples, err := z.SelectInformativeSamples(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, samples)
}

func TestPredict(t *testing.T) {
	ctx := context.Background()
	f := &fakeEngine{predictions: map[string]string{"A": "Zone_Temperature_Sensor", "C": "Supply_Air_Temperature_Setpoint"}}
	z := newZodiac(t, newStore(t), f, inferencer.Params{}, Config{SeedNum: intPtr(0)})

	g, err := z.Predict(ctx, []string{"A", "C"})
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())
	point, ok := g.PointType("C")
	require.True(t, ok)
	assert.Equal(t, "Supply_Air_Temperature_Setpoint", point)

	g, err = z.Predict(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, len(z.TargetSrcids()), g.Len())
	assert.Len(t, g.InstanceTuples(), 4)
}

func TestPredictProba(t *testing.T) {
	ctx := context.Background()
	f := &fakeEngine{
		predictions: map[string]string{"A": "Zone_Temperature_Sensor", "C": "Supply_Air_Temperature_Setpoint"},
		probas:      map[string][]float64{"A": {0.05, 0.9, 0.05}, "C": {0.3, 0.3, 0.4}},
	}
	z := newZodiac(t, newStore(t), f, inferencer.Params{}, Config{SeedNum: intPtr(0)})

	conf, err := z.PredictProba(ctx, []string{"A", "C"})
	require.NoError(t, err)
	assert.Equal(t, graph.Confidences{
		graph.InstanceTriple("A", "Zone_Temperature_Sensor"):         0.9,
		graph.InstanceTriple("C", "Supply_Air_Temperature_Setpoint"): 0.4,
	}, conf)

	_, err = z.PredictProba(ctx, []string{"B"})
	assert.ErrorIs(t, err, inferencer.ErrMissingLabel)
}

func TestLearnAuto_StopsWhenGrayIsEmpty(t *testing.T) {
	ctx := context.Background()
	f := &fakeEngine{
		random:      []string{"A"},
		samples:     [][]string{{"C"}, {"D"}, {"A"}},
		grays:       []int{5, 0, 3},
		predictions: map[string]string{"A": "Zone_Temperature_Sensor", "C": "Supply_Air_Temperature_Setpoint"},
	}
	z := newZodiac(t, newStore(t), f, inferencer.Params{TargetSrcids: []string{"A", "C", "D"}}, Config{SeedNum: intPtr(1)})

	require.NoError(t, z.LearnAuto(ctx, inferencer.LearnOptions{}))

	assert.Equal(t, 2, f.grayCalls)
	assert.Equal(t, []string{"A", "C", "D"}, z.TrainingSrcids())
	history := z.History()
	require.Len(t, history, 2)
	assert.InDelta(t, 2.0/3.0, history[1].Metrics.Accuracy, 1e-9)
	assert.Equal(t, 3, history[1].TrainingSrcids)
}

func TestLearnAuto_IterationBudget(t *testing.T) {
	f := &fakeEngine{
		random:  []string{"A"},
		samples: [][]string{{"C"}, {"D"}, {}},
		grays:   []int{10, 10, 10, 10},
	}
	z := newZodiac(t, newStore(t), f, inferencer.Params{TargetSrcids: []string{"A", "C", "D"}}, Config{SeedNum: intPtr(1)})

	require.NoError(t, z.LearnAuto(context.Background(), inferencer.LearnOptions{Iterations: 2, SampleNum: 1}))
	assert.Equal(t, 2, f.grayCalls)
	assert.Len(t, z.History(), 2)
}
