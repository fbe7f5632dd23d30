package zodiac

// Config holds the options read from the experiment file. Nil fields take
// their defaults in Resolve.
type Config struct {
	SeedNum     *int     `yaml:"seed_num"`
	SeedSrcids  []string `yaml:"seed_srcids"`
	NEstimators *int     `yaml:"n_estimators"`
	RandomState *int     `yaml:"random_state"`
}

// Settings is a Config with every default applied.
type Settings struct {
	SeedNum     int
	SeedSrcids  []string
	NEstimators int
	RandomState int
}

const (
	DefaultSeedNum     = 10
	DefaultNEstimators = 400
	DefaultRandomState = 0
	DefaultSampleNum   = 10
)

func (c Config) Resolve() Settings {
	s := Settings{
		SeedNum:     DefaultSeedNum,
		SeedSrcids:  append([]string(nil), c.SeedSrcids...),
		NEstimators: DefaultNEstimators,
		RandomState: DefaultRandomState,
	}
	if c.SeedNum != nil {
		s.SeedNum = *c.SeedNum
	}
	if c.NEstimators != nil {
		s.NEstimators = *c.NEstimators
	}
	if c.RandomState != nil {
		s.RandomState = *c.RandomState
	}
	return s
}

// engineConf is the pass-through model configuration.
func (s Settings) engineConf() map[string]any {
	return map[string]any{
		"n_estimators": s.NEstimators,
		"random_state": s.RandomState,
		"seed_num":     s.SeedNum,
	}
}
