package pipeline

import (
	"context"

	"github.com/jkatofsky/plastering/internal/config"
	"github.com/jkatofsky/plastering/internal/engine"
	"github.com/jkatofsky/plastering/internal/inferencer"
	"github.com/jkatofsky/plastering/internal/scrabble"
	"github.com/jkatofsky/plastering/internal/zodiac"
)

// Constructor builds a framework for an experiment.
type Constructor func(ctx context.Context, deps inferencer.Deps, exp *config.Experiment) (inferencer.Framework, error)

// Registry maps framework names to their constructors.
type Registry map[string]Constructor

// RemoteRegistry builds both adapters on top of HTTP engines.
func RemoteRegistry(cfg engine.Config) Registry {
	return Registry{
		zodiac.Name: func(ctx context.Context, deps inferencer.Deps, exp *config.Experiment) (inferencer.Framework, error) {
			return zodiac.New(ctx, deps, exp.Params(), exp.Zodiac, zodiac.RemoteFactory(cfg))
		},
		scrabble.Name: func(ctx context.Context, deps inferencer.Deps, exp *config.Experiment) (inferencer.Framework, error) {
			return scrabble.New(ctx, deps, exp.Params(), exp.Scrabble, scrabble.RemoteFactory(cfg))
		},
	}
}
