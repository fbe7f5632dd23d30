// Package scrabble adapts a Scrabble engine to the evaluation harness.
// Scrabble parses metadata strings character by character and learns every
// tagset of a point, optionally transferring from other buildings.
package scrabble

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jkatofsky/plastering/internal/brick"
	"github.com/jkatofsky/plastering/internal/engine"
	"github.com/jkatofsky/plastering/internal/graph"
	"github.com/jkatofsky/plastering/internal/inferencer"
	"github.com/jkatofsky/plastering/internal/metadata"
)

const Name = "scrabble"

type EngineFactory func(ctx context.Context, init engine.ScrabbleInit) (engine.Scrabble, error)

// RemoteFactory builds engines through the HTTP engine client.
func RemoteFactory(cfg engine.Config) EngineFactory {
	return func(ctx context.Context, init engine.ScrabbleInit) (engine.Scrabble, error) {
		return engine.NewScrabbleClient(ctx, cfg, init)
	}
}

type Scrabble struct {
	*inferencer.Inferencer

	engine   engine.Scrabble
	settings Settings

	// sentences of the target srcids, used to cluster steering candidates.
	sentences  map[string]string
	totalFixed int
}

var _ inferencer.Framework = (*Scrabble)(nil)

func New(ctx context.Context, deps inferencer.Deps, params inferencer.Params, cfg Config, factory EngineFactory) (*Scrabble, error) {
	base, err := inferencer.New(ctx, inferencer.Options{
		Name: Name,
		RequiredLabelTypes: []inferencer.LabelType{
			inferencer.LabelPointTagset,
			inferencer.LabelFullParsing,
			inferencer.LabelAllTagsets,
		},
		TargetLabelType: inferencer.LabelAllTagsets,
	}, params, deps)
	if err != nil {
		return nil, err
	}

	settings := cfg.Resolve(params.TargetBuilding, params.SourceBuildings)
	base.SetSourceBuildings(settings.SourceBuildings)

	s := &Scrabble{
		Inferencer: base,
		settings:   settings,
		sentences:  make(map[string]string),
	}

	init, err := s.buildInit(ctx)
	if err != nil {
		return nil, err
	}
	s.engine, err = factory(ctx, init)
	if err != nil {
		return nil, fmt.Errorf("failed to create scrabble engine: %w", err)
	}

	seeds, err := s.seedSrcids(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.engine.ClearTrainingSamples(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear training samples: %w", err)
	}
	if err := s.UpdateModel(ctx, seeds); err != nil {
		return nil, fmt.Errorf("failed to train on seed srcids: %w", err)
	}
	return s, nil
}

func (s *Scrabble) Settings() Settings {
	return s.settings
}

// TotalFixed counts the predictions overwritten by the prior so far.
func (s *Scrabble) TotalFixed() int {
	return s.totalFixed
}

func (s *Scrabble) buildInit(ctx context.Context) (engine.ScrabbleInit, error) {
	init := engine.ScrabbleInit{
		TargetBuilding:       s.TargetBuilding(),
		TargetSrcids:         s.TargetSrcids(),
		BuildingLabelDict:    make(map[string]map[string]map[string][]string),
		BuildingSentenceDict: make(map[string]map[string]map[string][]string),
		BuildingTagsetsDict:  make(map[string]map[string][]string),
		SourceBuildings:      s.SourceBuildings(),
		SampleNumList:        append([]int(nil), s.settings.SampleNumList...),
		KnownTagsDict:        make(map[string][]string),
		Conf:                 s.settings.engineConf(),
	}

	targets := make(map[string]bool)
	for _, srcid := range s.TargetSrcids() {
		targets[srcid] = false
	}

	for _, building := range s.SourceBuildings() {
		isTarget := building == s.TargetBuilding()

		raws, err := s.Store().RawByBuilding(ctx, building)
		if err != nil {
			return init, fmt.Errorf("failed to read raw metadata of %s: %w", building, err)
		}
		sentences := make(map[string]map[string][]string)
		for _, raw := range raws {
			if isTarget {
				if _, ok := targets[raw.SrcID]; !ok {
					continue
				}
				if len(raw.Metadata) == 0 {
					return init, fmt.Errorf("%w for %s", inferencer.ErrMissingMetadata, raw.SrcID)
				}
				targets[raw.SrcID] = true
			}
			chars, joined := sentenceOf(raw)
			sentences[raw.SrcID] = chars
			if isTarget {
				s.sentences[raw.SrcID] = joined
			}
		}
		init.BuildingSentenceDict[building] = sentences

		labels, err := s.QueryLabels(ctx, building)
		if err != nil {
			return init, err
		}
		labelDict := make(map[string]map[string][]string)
		tagsetsDict := make(map[string][]string)
		for _, label := range labels {
			if _, ok := sentences[label.SrcID]; !ok {
				continue
			}
			tagsetsDict[label.SrcID] = append([]string(nil), label.Tagsets...)
			if len(label.FullParsing) == 0 {
				continue
			}
			tags := make(map[string][]string, len(label.FullParsing))
			for key, parsed := range label.FullParsing {
				for _, cl := range parsed {
					tags[key] = append(tags[key], cl.Tag)
				}
			}
			labelDict[label.SrcID] = tags
			if s.settings.UseKnownTags {
				init.KnownTagsDict[label.SrcID] = knownTags(label.FullParsing)
			}
		}
		init.BuildingLabelDict[building] = labelDict
		init.BuildingTagsetsDict[building] = tagsetsDict
	}

	for _, srcid := range s.TargetSrcids() {
		if !targets[srcid] {
			return init, fmt.Errorf("%w for %s", inferencer.ErrMissingMetadata, srcid)
		}
	}
	return init, nil
}

// sentenceOf splits every sentence field of raw into characters. It also
// returns the fields joined by a space.
func sentenceOf(raw metadata.RawMetadata) (map[string][]string, string) {
	chars := make(map[string][]string)
	var parts []string
	for _, key := range metadata.SentenceKeys {
		v, ok := raw.Field(key)
		if !ok || v == "" {
			continue
		}
		chars[key] = strings.Split(v, "")
		parts = append(parts, v)
	}
	return chars, strings.Join(parts, " ")
}

// knownTags collects the distinct tags of a full parsing, without BIO
// prefixes and without the outside tag.
func knownTags(parsing map[string][]metadata.CharLabel) []string {
	seen := make(map[string]struct{})
	for _, parsed := range parsing {
		for _, cl := range parsed {
			tag := strings.TrimPrefix(strings.TrimPrefix(cl.Tag, "B_"), "I_")
			if tag == "" || tag == "O" {
				continue
			}
			seen[tag] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for tag := range seen {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

func (s *Scrabble) seedSrcids(ctx context.Context) ([]string, error) {
	if s.Hotstart() {
		labels, err := s.QueryLabels(ctx, s.TargetBuilding())
		if err != nil {
			return nil, err
		}
		seeds := make([]string, 0, len(labels))
		for _, label := range labels {
			seeds = append(seeds, label.SrcID)
		}
		return seeds, nil
	}
	seeds, err := s.engine.LearningSrcids(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read learning srcids: %w", err)
	}
	return seeds, nil
}

// UpdateModel resolves the point tagset of every srcid before touching any
// state, then records them as trained and forwards the batch to the engine.
func (s *Scrabble) UpdateModel(ctx context.Context, srcids []string) error {
	points, err := s.ResolvePointTagsets(ctx, srcids)
	if err != nil {
		return err
	}
	s.RecordTraining(srcids)
	if err := s.engine.UpdateModel(ctx, srcids, points); err != nil {
		return fmt.Errorf("failed to update scrabble: %w", err)
	}
	return nil
}

// SelectInformativeSamples asks the engine for new srcids. When validating
// samples are enabled, candidates steered by the prior come first.
func (s *Scrabble) SelectInformativeSamples(ctx context.Context, n int) ([]string, error) {
	var out []string
	if s.settings.ApplyValidating {
		steered, err := s.SamplesFromPrior(ctx, n)
		if err != nil {
			return nil, err
		}
		out = s.FreshSamples(steered, n)
	}
	if len(out) < n {
		srcids, err := s.engine.SelectInformativeSamples(ctx, n-len(out))
		if err != nil {
			return nil, fmt.Errorf("failed to select samples: %w", err)
		}
		out = append(out, srcids...)
	}
	return s.FreshSamples(out, n), nil
}

// PredictTagsets returns every predicted tagset per srcid, filtered by the
// prior when the filter is enabled.
func (s *Scrabble) PredictTagsets(ctx context.Context, srcids []string) (map[string][]string, error) {
	srcids = s.ResolveTargets(srcids)
	pred, err := s.engine.Predict(ctx, srcids)
	if err != nil {
		return nil, fmt.Errorf("failed to predict: %w", err)
	}
	if s.settings.ApplyFilterFlag {
		pred = s.FilterByPrior(pred)
	}
	return pred, nil
}

// Predict writes the point tagset of every srcid into a new graph.
func (s *Scrabble) Predict(ctx context.Context, srcids []string) (*graph.Graph, error) {
	srcids = s.ResolveTargets(srcids)
	pred, err := s.PredictTagsets(ctx, srcids)
	if err != nil {
		return nil, err
	}
	g := graph.New()
	for _, srcid := range srcids {
		g.AddPredPoint(srcid, pointOf(pred[srcid]), 1)
	}
	return g, nil
}

func (s *Scrabble) PredictProba(ctx context.Context, srcids []string) (graph.Confidences, error) {
	srcids, err := s.ProbaTargets(ctx, srcids)
	if err != nil {
		return nil, err
	}
	pred, err := s.engine.Predict(ctx, srcids)
	if err != nil {
		return nil, fmt.Errorf("failed to predict: %w", err)
	}
	probas, err := s.engine.PredictProba(ctx, srcids)
	if err != nil {
		return nil, fmt.Errorf("failed to predict probabilities: %w", err)
	}
	points := make([]string, len(srcids))
	for n, srcid := range srcids {
		points[n] = pointOf(pred[srcid])
	}
	return inferencer.TopConfidences(srcids, points, probas)
}

func (s *Scrabble) Evaluate(ctx context.Context, srcids []string) (inferencer.HistoryEntry, error) {
	return s.EvaluateWith(ctx, s, srcids)
}

// LearnAuto runs a fixed number of sampling and training rounds.
func (s *Scrabble) LearnAuto(ctx context.Context, opts inferencer.LearnOptions) error {
	iterations := opts.Iterations
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	sampleNum := opts.SampleNum
	if sampleNum <= 0 {
		sampleNum = DefaultSampleNum
	}

	for it := 0; it < iterations; it++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		newSrcids, err := s.SelectInformativeSamples(ctx, sampleNum)
		if err != nil {
			return err
		}
		if err := s.UpdateModel(ctx, newSrcids); err != nil {
			return err
		}

		entry, err := s.Evaluate(ctx, nil)
		if err != nil {
			return err
		}
		s.LogRound(it, len(newSrcids), entry)
	}
	return nil
}

// pointOf picks the point tagset out of a prediction, or none.
func pointOf(tagsets []string) string {
	if point := brick.SelectPointTagset(tagsets); point != "" {
		return point
	}
	return brick.TagsetNone
}
