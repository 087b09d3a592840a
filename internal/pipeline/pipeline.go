// Package pipeline runs translation requests end to end: it validates the
// language pair, resolves an "auto" source language, calls the translator
// and records the outcome in history.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/MeKo-Tech/polyglot/internal/catalog"
	"github.com/MeKo-Tech/polyglot/internal/history"
	"github.com/MeKo-Tech/polyglot/internal/resolve"
	"github.com/MeKo-Tech/polyglot/internal/translate"
)

var (
	// ErrEmptyText is returned for requests whose text is blank.
	ErrEmptyText = errors.New("text is empty")
	// ErrUnsupportedLanguage is returned for codes outside the catalog and
	// for "auto" used as a target.
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrNoTranslator is returned when a translation is needed but no
	// backend is configured.
	ErrNoTranslator = errors.New("no translation provider configured")
)

// Config holds the pipeline's tunables.
type Config struct {
	Workers int // parallel batch workers (0 = runtime.NumCPU())
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{Workers: runtime.NumCPU()}
}

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg        Config
	translator translate.Translator
	resolver   *resolve.Resolver
	catalog    *catalog.Catalog
	history    *history.Store
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithTranslator sets the translation backend.
func (b *Builder) WithTranslator(t translate.Translator) *Builder {
	b.translator = t
	return b
}

// WithResolver sets the resolver used for "auto" source languages.
func (b *Builder) WithResolver(r *resolve.Resolver) *Builder {
	b.resolver = r
	return b
}

// WithCatalog sets the language catalog requests are validated against.
func (b *Builder) WithCatalog(c *catalog.Catalog) *Builder {
	b.catalog = c
	return b
}

// WithHistory enables recording translations.
func (b *Builder) WithHistory(s *history.Store) *Builder {
	b.history = s
	return b
}

// WithWorkers sets the batch worker count (if > 0).
func (b *Builder) WithWorkers(n int) *Builder {
	if n > 0 {
		b.cfg.Workers = n
	}
	return b
}

// Build returns the configured pipeline.
func (b *Builder) Build() *Pipeline {
	cat := b.catalog
	if cat == nil {
		cat = catalog.Default()
	}
	res := b.resolver
	if res == nil {
		res = &resolve.Resolver{Catalog: cat}
	}
	cfg := b.cfg
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Pipeline{cfg: cfg, translator: b.translator, resolver: res, catalog: cat, history: b.history}
}

// Pipeline is safe for concurrent use.
type Pipeline struct {
	cfg        Config
	translator translate.Translator
	resolver   *resolve.Resolver
	catalog    *catalog.Catalog
	history    *history.Store
}

// Catalog returns the catalog requests are validated against.
func (p *Pipeline) Catalog() *catalog.Catalog { return p.catalog }

// History returns the history store, or nil when history is disabled.
func (p *Pipeline) History() *history.Store { return p.history }

// Resolver returns the resolver used for "auto" sources.
func (p *Pipeline) Resolver() *resolve.Resolver { return p.resolver }

// Request is one translation to perform.
type Request struct {
	Text     string `json:"text"`
	Source   string `json:"source"` // catalog code or "auto"
	Target   string `json:"target"`
	ThreadID string `json:"thread_id,omitempty"`
	Speaker  string `json:"speaker,omitempty"`
}

// Result is a completed translation.
type Result struct {
	Text           string              `json:"text"`
	TranslatedText string              `json:"translated_text"`
	Source         catalog.Language    `json:"source"`
	Target         catalog.Language    `json:"target"`
	Detected       bool                `json:"detected"`
	Resolution     *resolve.Resolution `json:"resolution,omitempty"`
	HistoryID      string              `json:"history_id,omitempty"`
	Duration       time.Duration       `json:"duration_ns"`
}

// Translate runs one request. An "auto" source that cannot be resolved
// halts with resolve.ErrAmbiguous and no translation is attempted. The
// returned Result is partially filled in that case so callers can show
// what was detected.
func (p *Pipeline) Translate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyText
	}
	target, err := p.lookup(req.Target, false)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	source, err := p.lookup(req.Source, true)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}

	res := &Result{Text: text, Source: source, Target: target}
	if source.IsAuto() {
		resolution, err := p.resolver.Resolve(ctx, text)
		res.Resolution = &resolution
		res.Source = resolution.Language
		res.Detected = true
		if err != nil {
			return res, err
		}
	}

	if res.Source.Code == res.Target.Code {
		res.TranslatedText = text
	} else {
		if p.translator == nil {
			return res, ErrNoTranslator
		}
		out, err := p.translator.Translate(ctx, text, res.Source.Code, res.Target.Code)
		if err != nil {
			return res, fmt.Errorf("translate %s->%s: %w", res.Source.Code, res.Target.Code, err)
		}
		res.TranslatedText = out
	}

	p.record(ctx, req, res)
	res.Duration = time.Since(start)
	slog.Debug("Translated text",
		"source", res.Source.Code, "target", res.Target.Code, "detected", res.Detected,
		"chars", len([]rune(text)), "duration", res.Duration)
	return res, nil
}

// lookup validates a request code. Empty sources mean "auto".
func (p *Pipeline) lookup(code string, allowAuto bool) (catalog.Language, error) {
	if strings.TrimSpace(code) == "" {
		if !allowAuto {
			return catalog.Language{}, fmt.Errorf("%w: empty code", ErrUnsupportedLanguage)
		}
		code = catalog.AutoCode
	}
	l, ok := p.catalog.Lookup(code)
	if !ok {
		return catalog.Language{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, code)
	}
	if l.IsAuto() && !allowAuto {
		return catalog.Language{}, fmt.Errorf("%w: %q cannot be a target", ErrUnsupportedLanguage, code)
	}
	return l, nil
}

// record stores res in history. Failures are logged and otherwise ignored.
func (p *Pipeline) record(ctx context.Context, req Request, res *Result) {
	if p.history == nil {
		return
	}
	e, err := p.history.Add(ctx, history.Entry{
		ThreadID:       req.ThreadID,
		Speaker:        req.Speaker,
		SourceText:     res.Text,
		TranslatedText: res.TranslatedText,
		SourceLang:     res.Source.Code,
		TargetLang:     res.Target.Code,
		Detected:       res.Detected,
	})
	if err != nil {
		slog.Warn("Failed to record translation history", "error", err)
		return
	}
	res.HistoryID = e.ID
}
