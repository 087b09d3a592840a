package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/pemistahl/lingua-go"

	"github.com/MeKo-Tech/polyglot/internal/catalog"
)

// LinguaDetector is an offline RemoteDetector backed by lingua's n-gram
// models. It only considers the catalog languages lingua knows.
type LinguaDetector struct {
	detector lingua.LanguageDetector
	codes    map[lingua.Language]string
}

// NewLinguaDetector builds a detector over the real languages of cat.
// minDistance (0 to 0.99) makes lingua answer "unknown" when the top two
// candidates score too closely.
func NewLinguaDetector(cat *catalog.Catalog, minDistance float64) (*LinguaDetector, error) {
	if cat == nil {
		cat = catalog.Default()
	}
	if minDistance < 0 || minDistance > 0.99 {
		return nil, fmt.Errorf("translate: lingua minimum distance must be between 0 and 0.99, got %v", minDistance)
	}

	byISO := make(map[string]lingua.Language)
	for _, l := range lingua.AllLanguages() {
		byISO[strings.ToLower(l.IsoCode639_1().String())] = l
	}

	codes := make(map[lingua.Language]string)
	langs := make([]lingua.Language, 0, cat.Len())
	for _, l := range cat.Real() {
		ll, ok := byISO[l.Code]
		if !ok {
			continue
		}
		codes[ll] = l.Code
		langs = append(langs, ll)
	}
	if len(langs) < 2 {
		return nil, fmt.Errorf("translate: lingua needs at least two supported catalog languages, found %d", len(langs))
	}

	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(langs...).
		WithMinimumRelativeDistance(minDistance).
		Build()
	return &LinguaDetector{detector: detector, codes: codes}, nil
}

// DetectRemote implements RemoteDetector. Lingua runs in-process, so ctx is
// only checked before starting.
func (d *LinguaDetector) DetectRemote(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return Undetermined, nil
	}
	code, ok := d.codes[lang]
	if !ok {
		return Undetermined, nil
	}
	return code, nil
}
