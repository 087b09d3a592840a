package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/polyglot/internal/catalog"
	"github.com/MeKo-Tech/polyglot/internal/config"
	"github.com/MeKo-Tech/polyglot/internal/detect"
	"github.com/MeKo-Tech/polyglot/internal/history"
	"github.com/MeKo-Tech/polyglot/internal/pipeline"
	"github.com/MeKo-Tech/polyglot/internal/resolve"
	"github.com/MeKo-Tech/polyglot/internal/translate"
)

// services is everything a command may need, built from one Config.
type services struct {
	catalog  *catalog.Catalog
	detector *detect.Detector
	resolver *resolve.Resolver
	history  *history.Store
	pipeline *pipeline.Pipeline
}

// buildOptions selects the optional parts of buildServices.
type buildOptions struct {
	history bool
	workers int
}

func buildServices(ctx context.Context, cfg *config.Config, opts buildOptions) (*services, error) {
	cat, err := catalog.LoadExtensionsFile(catalog.Default(), cfg.Detection.CatalogFile)
	if err != nil {
		return nil, err
	}

	profiles, err := cfg.Profiles()
	if err != nil {
		return nil, err
	}
	det, err := detect.New(detect.WithCatalog(cat), detect.WithProfiles(profiles...))
	if err != nil {
		return nil, err
	}

	backend, err := translate.New(cfg.ToTranslateConfig(), cat)
	if err != nil {
		return nil, err
	}
	remote, err := translate.NewRemoteDetector(cfg.RemoteDetectorName(), backend, cat, cfg.Detection.LinguaMinDistance)
	if err != nil {
		return nil, err
	}
	res := &resolve.Resolver{Detector: det, Remote: remote, Catalog: cat, Timeout: cfg.RemoteTimeout()}

	s := &services{catalog: cat, detector: det, resolver: res}

	b := pipeline.NewBuilder().
		WithCatalog(cat).
		WithResolver(res).
		WithWorkers(opts.workers)
	if backend != nil {
		b = b.WithTranslator(backend)
	}
	if opts.history && cfg.History.Enabled {
		store, err := history.Open(ctx, cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		s.history = store
		b = b.WithHistory(store)
	}
	s.pipeline = b.Build()

	slog.Debug("Services ready",
		"languages", cat.Len(), "translator", cfg.Translator.Provider,
		"remote_detector", cfg.RemoteDetectorName(), "history", s.history != nil)
	return s, nil
}

// Close releases the history store.
func (s *services) Close() error {
	if s.history == nil {
		return nil
	}
	return s.history.Close()
}
