// Package engine is the client side of the external classifier engines.
// The active-learning algorithms run out of process; this package only
// carries requests to them and decodes their answers.
package engine

import "context"

// Zodiac is the surface of a Zodiac engine instance.
type Zodiac interface {
	UpdateModel(ctx context.Context, srcids, labels []string) error
	// Predict returns one point tagset per srcid, in order.
	Predict(ctx context.Context, srcids []string) ([]string, error)
	// PredictProba returns one class distribution per srcid, in order.
	PredictProba(ctx context.Context, srcids []string) ([][]float64, error)
	SelectInformativeSamples(ctx context.Context, n int) ([]string, error)
	RandomLearningSrcids(ctx context.Context, n int) ([]string, error)
	NumSensorsInGray(ctx context.Context) (int, error)
}

// Scrabble is the surface of a Scrabble engine instance.
type Scrabble interface {
	UpdateModel(ctx context.Context, srcids, labels []string) error
	// Predict returns every predicted tagset per srcid.
	Predict(ctx context.Context, srcids []string) (map[string][]string, error)
	PredictProba(ctx context.Context, srcids []string) ([][]float64, error)
	SelectInformativeSamples(ctx context.Context, n int) ([]string, error)
	LearningSrcids(ctx context.Context) ([]string, error)
	ClearTrainingSamples(ctx context.Context) error
}

// ZodiacInit is the construction payload of a Zodiac engine: per-srcid
// feature dictionaries plus the model configuration.
type ZodiacInit struct {
	Names    map[string]string         `json:"names"`
	Descs    map[string]string         `json:"descs"`
	Units    map[string]map[string]int `json:"units"`
	TypeStrs map[string]map[string]int `json:"type_strs"`
	Types    map[string]map[string]int `json:"types"`
	JCINames map[string]string         `json:"jci_names"`
	Labels   map[string]string         `json:"labels"`
	Conf     map[string]any            `json:"conf"`
}

// ScrabbleInit is the construction payload of a Scrabble engine. The
// dictionaries are keyed by building, then srcid.
type ScrabbleInit struct {
	TargetBuilding       string                                    `json:"target_building"`
	TargetSrcids         []string                                  `json:"target_srcids"`
	BuildingLabelDict    map[string]map[string]map[string][]string `json:"building_label_dict"`
	BuildingSentenceDict map[string]map[string]map[string][]string `json:"building_sentence_dict"`
	BuildingTagsetsDict  map[string]map[string][]string            `json:"building_tagsets_dict"`
	SourceBuildings      []string                                  `json:"source_buildings"`
	SampleNumList        []int                                     `json:"sample_num_list"`
	KnownTagsDict        map[string][]string                       `json:"known_tags_dict"`
	Conf                 map[string]any                            `json:"conf"`
}
