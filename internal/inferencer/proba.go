package inferencer

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/jkatofsky/plastering/internal/graph"
)

// TopConfidences keys each srcid's instance triple (srcid, point) by the
// maximum of its class distribution.
func TopConfidences(srcids, points []string, probas [][]float64) (graph.Confidences, error) {
	if len(points) != len(srcids) || len(probas) != len(srcids) {
		return nil, fmt.Errorf("got %d predictions and %d distributions for %d srcids",
			len(points), len(probas), len(srcids))
	}

	confidences := make(graph.Confidences, len(srcids))
	for n, srcid := range srcids {
		if len(probas[n]) == 0 {
			return nil, fmt.Errorf("empty distribution for %s", srcid)
		}
		top := floats.Max(probas[n])
		if top < 0 || top > 1 {
			return nil, fmt.Errorf("confidence %v for %s is outside [0, 1]", top, srcid)
		}
		confidences[graph.InstanceTriple(srcid, points[n])] = top
	}
	return confidences, nil
}
