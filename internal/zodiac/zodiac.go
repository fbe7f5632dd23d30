// Package zodiac adapts a Zodiac engine to the evaluation harness. Zodiac
// learns one point tagset per srcid from BACnet naming features.
package zodiac

import (
	"context"
	"fmt"
	"math"

	"github.com/jkatofsky/plastering/internal/engine"
	"github.com/jkatofsky/plastering/internal/graph"
	"github.com/jkatofsky/plastering/internal/inferencer"
	"github.com/jkatofsky/plastering/internal/metadata"
)

const Name = "zodiac"

// EngineFactory constructs the wrapped engine from its construction payload.
type EngineFactory func(ctx context.Context, init engine.ZodiacInit) (engine.Zodiac, error)

// RemoteFactory builds engines through the HTTP engine client.
func RemoteFactory(cfg engine.Config) EngineFactory {
	return func(ctx context.Context, init engine.ZodiacInit) (engine.Zodiac, error) {
		return engine.NewZodiacClient(ctx, cfg, init)
	}
}

type Zodiac struct {
	*inferencer.Inferencer

	engine   engine.Zodiac
	settings Settings
}

var _ inferencer.Framework = (*Zodiac)(nil)

// New reads the raw metadata of every target srcid, constructs the engine,
// and trains it on the seed srcids.
func New(ctx context.Context, deps inferencer.Deps, params inferencer.Params, cfg Config, factory EngineFactory) (*Zodiac, error) {
	base, err := inferencer.New(ctx, inferencer.Options{
		Name:               Name,
		RequiredLabelTypes: []inferencer.LabelType{inferencer.LabelPointTagset},
		TargetLabelType:    inferencer.LabelPointTagset,
	}, params, deps)
	if err != nil {
		return nil, err
	}

	z := &Zodiac{
		Inferencer: base,
		settings:   cfg.Resolve(),
	}

	init, err := z.buildInit(ctx)
	if err != nil {
		return nil, err
	}

	z.engine, err = factory(ctx, init)
	if err != nil {
		return nil, fmt.Errorf("failed to create zodiac engine: %w", err)
	}

	seeds, err := z.seedSrcids(ctx)
	if err != nil {
		return nil, err
	}
	if err := z.UpdateModel(ctx, seeds); err != nil {
		return nil, fmt.Errorf("failed to train on seed srcids: %w", err)
	}
	return z, nil
}

func (z *Zodiac) Settings() Settings {
	return z.settings
}

func (z *Zodiac) buildInit(ctx context.Context) (engine.ZodiacInit, error) {
	init := engine.ZodiacInit{
		Names:    make(map[string]string),
		Descs:    make(map[string]string),
		Units:    make(map[string]map[string]int),
		TypeStrs: make(map[string]map[string]int),
		Types:    make(map[string]map[string]int),
		JCINames: make(map[string]string),
		Labels:   make(map[string]string),
		Conf:     z.settings.engineConf(),
	}

	targets := make(map[string]bool)
	for _, srcid := range z.TargetSrcids() {
		targets[srcid] = false
	}

	raws, err := z.Store().RawByBuilding(ctx, z.TargetBuilding())
	if err != nil {
		return init, fmt.Errorf("failed to read raw metadata: %w", err)
	}

	for _, raw := range raws {
		if _, ok := targets[raw.SrcID]; !ok {
			continue
		}
		if len(raw.Metadata) == 0 {
			return init, fmt.Errorf("%w for %s", inferencer.ErrMissingMetadata, raw.SrcID)
		}
		targets[raw.SrcID] = true

		srcid := raw.SrcID
		init.Names[srcid] = raw.Metadata[metadata.KeyBACnetName]
		init.JCINames[srcid] = raw.Metadata[metadata.KeyVendorGivenName]
		init.Descs[srcid] = raw.Metadata[metadata.KeyBACnetDescription]
		init.TypeStrs[srcid] = presence(raw, metadata.KeyBACnetTypeStr)
		init.Types[srcid] = presence(raw, metadata.KeyBACnetType)
		init.Units[srcid] = presence(raw, metadata.KeyBACnetUnit)
	}

	for _, srcid := range z.TargetSrcids() {
		if !targets[srcid] {
			return init, fmt.Errorf("%w for %s", inferencer.ErrMissingMetadata, srcid)
		}
	}
	return init, nil
}

// presence encodes an optional categorical field as a one-hot dictionary.
func presence(raw metadata.RawMetadata, key string) map[string]int {
	if v, ok := raw.Field(key); ok {
		return map[string]int{v: 1}
	}
	return map[string]int{}
}

func (z *Zodiac) seedSrcids(ctx context.Context) ([]string, error) {
	if len(z.settings.SeedSrcids) > 0 {
		return z.settings.SeedSrcids, nil
	}
	if z.Hotstart() {
		labels, err := z.QueryLabels(ctx, z.TargetBuilding())
		if err != nil {
			return nil, err
		}
		seeds := make([]string, 0, len(labels))
		for _, label := range labels {
			seeds = append(seeds, label.SrcID)
		}
		return seeds, nil
	}
	seeds, err := z.engine.RandomLearningSrcids(ctx, z.settings.SeedNum)
	if err != nil {
		return nil, fmt.Errorf("failed to draw seed srcids: %w", err)
	}
	return seeds, nil
}

func (z *Zodiac) SelectInformativeSamples(ctx context.Context, n int) ([]string, error) {
	srcids, err := z.engine.SelectInformativeSamples(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("failed to select samples: %w", err)
	}
	return z.FreshSamples(srcids, n), nil
}

// UpdateModel resolves the point tagset of every srcid before touching any
// state, then records them as trained and forwards the batch to the engine.
func (z *Zodiac) UpdateModel(ctx context.Context, srcids []string) error {
	points, err := z.ResolvePointTagsets(ctx, srcids)
	if err != nil {
		return err
	}
	z.RecordTraining(srcids)
	if err := z.engine.UpdateModel(ctx, srcids, points); err != nil {
		return fmt.Errorf("failed to update zodiac: %w", err)
	}
	return nil
}

func (z *Zodiac) Predict(ctx context.Context, srcids []string) (*graph.Graph, error) {
	srcids = z.ResolveTargets(srcids)

	points, err := z.engine.Predict(ctx, srcids)
	if err != nil {
		return nil, fmt.Errorf("failed to predict: %w", err)
	}
	if len(points) != len(srcids) {
		return nil, fmt.Errorf("zodiac returned %d predictions for %d srcids", len(points), len(srcids))
	}

	g := graph.New()
	for n, srcid := range srcids {
		g.AddPredPoint(srcid, points[n], 1)
	}
	return g, nil
}

func (z *Zodiac) PredictProba(ctx context.Context, srcids []string) (graph.Confidences, error) {
	srcids, err := z.ProbaTargets(ctx, srcids)
	if err != nil {
		return nil, err
	}

	points, err := z.engine.Predict(ctx, srcids)
	if err != nil {
		return nil, fmt.Errorf("failed to predict: %w", err)
	}
	probas, err := z.engine.PredictProba(ctx, srcids)
	if err != nil {
		return nil, fmt.Errorf("failed to predict probabilities: %w", err)
	}
	return inferencer.TopConfidences(srcids, points, probas)
}

func (z *Zodiac) Evaluate(ctx context.Context, srcids []string) (inferencer.HistoryEntry, error) {
	return z.EvaluateWith(ctx, z, srcids)
}

// LearnAuto runs rounds of sampling and training until the engine reports
// no sensors left in the gray zone, or opts.Iterations rounds have run
// when it is positive.
func (z *Zodiac) LearnAuto(ctx context.Context, opts inferencer.LearnOptions) error {
	sampleNum := opts.SampleNum
	if sampleNum <= 0 {
		sampleNum = DefaultSampleNum
	}

	gray := math.MaxInt
	for it := 0; gray > 0 && (opts.Iterations <= 0 || it < opts.Iterations); it++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		newSrcids, err := z.SelectInformativeSamples(ctx, sampleNum)
		if err != nil {
			return err
		}
		if err := z.UpdateModel(ctx, newSrcids); err != nil {
			return err
		}

		gray, err = z.engine.NumSensorsInGray(ctx)
		if err != nil {
			return fmt.Errorf("failed to count sensors in gray: %w", err)
		}

		entry, err := z.Evaluate(ctx, nil)
		if err != nil {
			return err
		}
		z.LogRound(it, len(newSrcids), entry, "num_sensors_in_gray", gray)
	}
	return nil
}
