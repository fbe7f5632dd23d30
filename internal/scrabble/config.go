package scrabble

import "slices"

// Config holds the options read from the experiment file. Nil fields take
// their defaults in Resolve.
type Config struct {
	SeedNum              *int    `yaml:"seed_num"`
	SampleNumList        []int   `yaml:"sample_num_list"`
	UseClusterFlag       *bool   `yaml:"use_cluster_flag"`
	UseBrickFlag         *bool   `yaml:"use_brick_flag"`
	NegativeFlag         *bool   `yaml:"negative_flag"`
	TagsetClassifierType *string `yaml:"tagset_classifier_type"`
	CRFQS                *string `yaml:"crfqs"`
	EntQS                *string `yaml:"entqs"`
	NJobs                *int    `yaml:"n_jobs"`
	UseKnownTags         *bool   `yaml:"use_known_tags"`
	ApplyFilterFlag      *bool   `yaml:"apply_filter_flag"`
	ApplyValidating      *bool   `yaml:"apply_validating_samples"`
}

type Settings struct {
	SeedNum              int
	SampleNumList        []int
	SourceBuildings      []string
	UseClusterFlag       bool
	UseBrickFlag         bool
	NegativeFlag         bool
	TagsetClassifierType string
	CRFQS                string
	EntQS                string
	NJobs                int
	UseKnownTags         bool
	ApplyFilterFlag      bool
	ApplyValidating      bool
}

const (
	DefaultSeedNum              = 10
	DefaultTagsetClassifierType = "MLP"
	DefaultCRFQS                = "confidence"
	DefaultEntQS                = "phrase_util"
	DefaultNJobs                = 10
	DefaultIterations           = 25
	DefaultSampleNum            = 10
)

// Resolve applies the defaults. The target building joins the source
// buildings when absent, and the per-building sample counts gain a trailing
// zero when they are one short.
func (c Config) Resolve(target string, sources []string) Settings {
	s := Settings{
		SeedNum:              DefaultSeedNum,
		UseClusterFlag:       boolOr(c.UseClusterFlag, true),
		UseBrickFlag:         boolOr(c.UseBrickFlag, true),
		NegativeFlag:         boolOr(c.NegativeFlag, true),
		TagsetClassifierType: stringOr(c.TagsetClassifierType, DefaultTagsetClassifierType),
		CRFQS:                stringOr(c.CRFQS, DefaultCRFQS),
		EntQS:                stringOr(c.EntQS, DefaultEntQS),
		NJobs:                DefaultNJobs,
		UseKnownTags:         boolOr(c.UseKnownTags, false),
		ApplyFilterFlag:      boolOr(c.ApplyFilterFlag, false),
		ApplyValidating:      boolOr(c.ApplyValidating, false),
	}
	if c.SeedNum != nil {
		s.SeedNum = *c.SeedNum
	}
	if c.NJobs != nil {
		s.NJobs = *c.NJobs
	}

	buildings := make(map[string]struct{})
	for _, b := range sources {
		buildings[b] = struct{}{}
	}
	buildings[target] = struct{}{}

	if c.SampleNumList != nil {
		s.SampleNumList = append([]int(nil), c.SampleNumList...)
	} else {
		s.SampleNumList = make([]int, len(buildings))
		for n := range s.SampleNumList {
			s.SampleNumList[n] = s.SeedNum
		}
	}

	s.SourceBuildings = append([]string(nil), sources...)
	if !slices.Contains(sources, target) {
		s.SourceBuildings = append(s.SourceBuildings, target)
	}
	if len(s.SourceBuildings) > len(s.SampleNumList) {
		s.SampleNumList = append(s.SampleNumList, 0)
	}
	return s
}

func (s Settings) engineConf() map[string]any {
	return map[string]any{
		"use_cluster_flag":       s.UseClusterFlag,
		"use_brick_flag":         s.UseBrickFlag,
		"negative_flag":          s.NegativeFlag,
		"tagset_classifier_type": s.TagsetClassifierType,
		"crfqs":                  s.CRFQS,
		"entqs":                  s.EntQS,
		"n_jobs":                 s.NJobs,
		"use_known_tags":         s.UseKnownTags,
	}
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func stringOr(v *string, def string) string {
	if v == nil {
		return def
	}
	return *v
}
