package scrabble

import (
	"context"
	"sort"

	"github.com/jkatofsky/plastering/internal/brick"
	"github.com/jkatofsky/plastering/internal/graph"
	"github.com/jkatofsky/plastering/internal/sampler"
)

// Confidence thresholds above which a prior prediction is trusted. Steering
// asks for more certainty than overwriting.
const (
	SteeringThreshold = 0.9
	FilterThreshold   = 0.8
)

// goodPredictions returns the prior point tagsets whose confidence exceeds
// threshold, keyed by srcid.
func (s *Scrabble) goodPredictions(threshold float64) map[string]string {
	prior, confidences := s.Prior()
	if prior == nil {
		return nil
	}
	good := make(map[string]string)
	for srcid, point := range prior.InstanceTuples() {
		if confidences[graph.InstanceTriple(srcid, point)] > threshold {
			good[srcid] = point
		}
	}
	return good
}

// FilterByPrior overwrites the point tagset of every prediction that
// disagrees with a confident prior prediction. Other tagsets are kept.
func (s *Scrabble) FilterByPrior(pred map[string][]string) map[string][]string {
	good := s.goodPredictions(FilterThreshold)
	if good == nil {
		return pred
	}

	srcids := make([]string, 0, len(pred))
	for srcid := range pred {
		srcids = append(srcids, srcid)
	}
	sort.Strings(srcids)

	out := make(map[string][]string, len(pred))
	fixed := 0
	for _, srcid := range srcids {
		tagsets := pred[srcid]
		out[srcid] = tagsets

		goodPoint, ok := good[srcid]
		if !ok {
			continue
		}
		predPoint := pointOf(tagsets)
		if brick.SameTagset(predPoint, goodPoint) {
			continue
		}

		kept := make([]string, 0, len(tagsets)+1)
		for _, tagset := range tagsets {
			if !brick.IsPointTagset(tagset) {
				kept = append(kept, tagset)
			}
		}
		out[srcid] = append(kept, goodPoint)
		fixed++
		s.Logger().Info("fixed point tagset", "srcid", srcid, "from", predPoint, "to", goodPoint)
	}

	s.totalFixed += fixed
	s.Metrics().AddPriorCorrections(s.Name(), fixed)
	s.Logger().Info("prior filter applied", "fixed", fixed, "total_fixed", s.totalFixed)
	return out
}

// SamplesFromPrior draws up to n srcids whose current prediction disagrees
// with a confident prior prediction, one per sentence cluster.
func (s *Scrabble) SamplesFromPrior(ctx context.Context, n int) ([]string, error) {
	good := s.goodPredictions(SteeringThreshold)
	if len(good) == 0 {
		return nil, nil
	}

	g, err := s.Predict(ctx, nil)
	if err != nil {
		return nil, err
	}

	var incorrect []string
	for srcid, goodPoint := range good {
		predPoint, ok := g.PointType(srcid)
		if !ok {
			continue
		}
		if !brick.SameTagset(goodPoint, predPoint) {
			incorrect = append(incorrect, srcid)
		}
	}
	if len(incorrect) == 0 {
		return nil, nil
	}
	sort.Strings(incorrect)

	return sampler.SelectRandom(incorrect, n, sampler.Options{
		UseCluster:     true,
		UniqueClusters: true,
		Sentences:      s.sentences,
	}), nil
}
