// Package config loads experiment files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/jkatofsky/plastering/internal/inferencer"
	"github.com/jkatofsky/plastering/internal/scrabble"
	"github.com/jkatofsky/plastering/internal/zodiac"
)

const (
	DefaultDatabase  = "plastering.duckdb"
	DefaultOutputDir = "results"

	maxFileSize = 1 << 20
)

var ErrInvalidConfig = errors.New("invalid config")

// Frameworks are the adapter names an experiment can select.
var Frameworks = []string{zodiac.Name, scrabble.Name}

// Experiment describes one active-learning run.
type Experiment struct {
	Framework       string   `yaml:"framework"`
	TargetBuilding  string   `yaml:"target_building"`
	TargetSrcids    []string `yaml:"target_srcids"`
	SourceBuildings []string `yaml:"source_buildings"`
	Database        string   `yaml:"database"`
	Hotstart        bool     `yaml:"hotstart"`
	OutputDir       string   `yaml:"output_dir"`

	Engine Engine `yaml:"engine"`
	Learn  Learn  `yaml:"learn"`
	Prior  *Prior `yaml:"prior"`

	Zodiac   zodiac.Config   `yaml:"zodiac"`
	Scrabble scrabble.Config `yaml:"scrabble"`
}

type Engine struct {
	URL     string `yaml:"url"`
	Timeout string `yaml:"timeout"` // duration string like "30s"
}

// Learn bounds the learning loop. Nil fields select the adapter defaults.
type Learn struct {
	Iterations *int `yaml:"iterations"`
	SampleNum  *int `yaml:"sample_num"`
}

// Prior trains another framework first and hands its predictions to the
// selected one as a prior.
type Prior struct {
	Framework string `yaml:"framework"`
	Learn     Learn  `yaml:"learn"`
}

// Load reads an experiment file, applies defaults and validates it.
func Load(path string) (*Experiment, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("%w: config file must have .yaml extension, got %q", ErrInvalidConfig, ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("%w: config file too large: %d bytes (max %d)", ErrInvalidConfig, info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Experiment, error) {
	var exp Experiment
	if err := yaml.Unmarshal(data, &exp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	exp.applyDefaults()
	if err := exp.Validate(); err != nil {
		return nil, err
	}
	return &exp, nil
}

func (e *Experiment) applyDefaults() {
	if e.Database == "" {
		e.Database = DefaultDatabase
	}
	if e.OutputDir == "" {
		e.OutputDir = DefaultOutputDir
	}
}

func (e *Experiment) Validate() error {
	if !slices.Contains(Frameworks, e.Framework) {
		return fmt.Errorf("%w: framework must be one of %v, got %q", ErrInvalidConfig, Frameworks, e.Framework)
	}
	if e.TargetBuilding == "" {
		return fmt.Errorf("%w: target_building is required", ErrInvalidConfig)
	}
	if e.Engine.Timeout != "" {
		if _, err := time.ParseDuration(e.Engine.Timeout); err != nil {
			return fmt.Errorf("%w: invalid engine timeout %q: %w", ErrInvalidConfig, e.Engine.Timeout, err)
		}
	}
	if err := e.Learn.validate("learn"); err != nil {
		return err
	}
	if e.Prior != nil {
		if e.Prior.Framework != zodiac.Name || e.Framework != scrabble.Name {
			return fmt.Errorf("%w: only a %s prior for %s is supported", ErrInvalidConfig, zodiac.Name, scrabble.Name)
		}
		if err := e.Prior.Learn.validate("prior.learn"); err != nil {
			return err
		}
	}
	return nil
}

func (l Learn) validate(section string) error {
	if l.Iterations != nil && *l.Iterations < 0 {
		return fmt.Errorf("%w: %s.iterations must not be negative", ErrInvalidConfig, section)
	}
	if l.SampleNum != nil && *l.SampleNum < 0 {
		return fmt.Errorf("%w: %s.sample_num must not be negative", ErrInvalidConfig, section)
	}
	return nil
}

// EngineTimeout is zero when no timeout is configured.
func (e *Experiment) EngineTimeout() time.Duration {
	d, _ := time.ParseDuration(e.Engine.Timeout)
	return d
}

func (e *Experiment) Params() inferencer.Params {
	return inferencer.Params{
		TargetBuilding:  e.TargetBuilding,
		TargetSrcids:    e.TargetSrcids,
		SourceBuildings: e.SourceBuildings,
		Hotstart:        e.Hotstart,
	}
}

func (l Learn) Options() inferencer.LearnOptions {
	var opts inferencer.LearnOptions
	if l.Iterations != nil {
		opts.Iterations = *l.Iterations
	}
	if l.SampleNum != nil {
		opts.SampleNum = *l.SampleNum
	}
	return opts
}
