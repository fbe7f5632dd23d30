// Package aggregator turns per-srcid point tagset predictions into
// classification scores.
package aggregator

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

type Config struct {
	// Match decides whether a prediction agrees with the truth.
	Match func(truth, pred string) bool
}

func DefaultConfig() Config {
	return Config{
		Match: func(truth, pred string) bool { return truth == pred },
	}
}

type ClassScore struct {
	Class     string  `json:"class"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

type Scores struct {
	Accuracy float64      `json:"accuracy"`
	F1       float64      `json:"f1"`
	MacroF1  float64      `json:"macrof1"`
	Total    int          `json:"total"`
	PerClass []ClassScore `json:"per_class,omitempty"`
}

type Aggregator struct {
	config Config
}

func NewAggregator(cfg Config) *Aggregator {
	if cfg.Match == nil {
		cfg.Match = DefaultConfig().Match
	}
	return &Aggregator{config: cfg}
}

type counts struct {
	tp, fp, fn, support int
}

// Aggregate scores pred against truth over the srcids present in truth.
// A srcid missing from pred counts as a miss for its true class. F1 is the
// micro average over classes, MacroF1 the unweighted mean of per-class F1
// over classes that occur in truth or pred.
func (a *Aggregator) Aggregate(truth, pred map[string]string) Scores {
	scores := Scores{Total: len(truth)}
	if len(truth) == 0 {
		return scores
	}

	byClass := make(map[string]*counts)
	get := func(class string) *counts {
		c, ok := byClass[class]
		if !ok {
			c = &counts{}
			byClass[class] = c
		}
		return c
	}

	correct := 0
	var tp, fp, fn int
	for srcid, want := range truth {
		get(want).support++
		got, ok := pred[srcid]
		if ok && a.config.Match(want, got) {
			correct++
			get(want).tp++
			tp++
			continue
		}
		get(want).fn++
		fn++
		if ok {
			get(got).fp++
			fp++
		}
	}

	scores.Accuracy = float64(correct) / float64(len(truth))
	scores.F1 = f1(tp, fp, fn)

	classes := make([]string, 0, len(byClass))
	for class := range byClass {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	perClassF1 := make([]float64, 0, len(classes))
	for _, class := range classes {
		c := byClass[class]
		score := ClassScore{
			Class:     class,
			Precision: ratio(c.tp, c.tp+c.fp),
			Recall:    ratio(c.tp, c.tp+c.fn),
			F1:        f1(c.tp, c.fp, c.fn),
			Support:   c.support,
		}
		scores.PerClass = append(scores.PerClass, score)
		perClassF1 = append(perClassF1, score.F1)
	}
	scores.MacroF1 = stat.Mean(perClassF1, nil)

	return scores
}

func f1(tp, fp, fn int) float64 {
	return ratio(2*tp, 2*tp+fp+fn)
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
