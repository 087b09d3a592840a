// Package detect identifies the language of a short piece of text with
// hand-written rules. Rules are grouped in tiers that are tried in a fixed
// order; the first rule that fires decides the language:
//
//  1. transliteration profiles (romanized Hindi),
//  2. Unicode script ranges,
//  3. Latin diacritics and function words,
//  4. the default language (English).
//
// Every function here is total: empty or unrecognisable text yields the
// default language, never an error. Detectors are immutable once built and
// safe for concurrent use.
package detect

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/MeKo-Tech/polyglot/internal/catalog"
)

// Tier is a detection stage. Lower tiers pre-empt higher ones.
type Tier int

const (
	TierTransliteration Tier = iota
	TierScript
	TierLatin
	TierDefault
)

var tierNames = [...]string{"transliteration", "script", "latin", "default"}

func (t Tier) String() string {
	if t < 0 || int(t) >= len(tierNames) {
		return fmt.Sprintf("tier(%d)", int(t))
	}
	return tierNames[t]
}

// MarshalText renders the tier name in JSON and YAML output.
func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText parses a tier name.
func (t *Tier) UnmarshalText(b []byte) error {
	for i, name := range tierNames {
		if name == string(b) {
			*t = Tier(i)
			return nil
		}
	}
	return fmt.Errorf("detect: unknown tier %q", b)
}

// Result describes how a text was classified.
type Result struct {
	Language catalog.Language `json:"language"`
	Tier     Tier             `json:"tier"`
	// Rule names the rule that fired, e.g. "hi/vocabulary", "script/han",
	// "latin/fr" or "default".
	Rule string `json:"rule"`
}

// IsDefault reports whether no rule fired and the text fell through to the
// default language.
func (r Result) IsDefault() bool { return r.Tier == TierDefault }

// RuleInfo describes one entry of a detector's ordered rule list.
type RuleInfo struct {
	Name string `json:"name"`
	Tier Tier   `json:"tier"`
	Code string `json:"code"`
}

// rule is one (predicate, result) pair. match receives NFC-normalised,
// lowercased text and returns the name to report when it fires.
type rule struct {
	RuleInfo
	match func(lower string) (string, bool)
}

// Detector runs an ordered rule list. The zero value is not usable; call New.
type Detector struct {
	catalog  *catalog.Catalog
	rules    []rule
	fallback catalog.Language
}

// Option configures a Detector.
type Option func(*options)

type options struct {
	catalog  *catalog.Catalog
	profiles []*Profile
}

// WithCatalog sets the catalog rule codes resolve against.
func WithCatalog(c *catalog.Catalog) Option {
	return func(o *options) {
		if c != nil {
			o.catalog = c
		}
	}
}

// WithProfiles replaces the transliteration profiles. Profiles are tried in
// the given order. Passing none disables the transliteration tier.
func WithProfiles(p ...*Profile) Option {
	return func(o *options) { o.profiles = p }
}

// New builds a detector. Every rule's language must exist in the catalog.
func New(opts ...Option) (*Detector, error) {
	o := options{catalog: catalog.Default(), profiles: []*Profile{Hindi}}
	for _, opt := range opts {
		opt(&o)
	}

	d := &Detector{catalog: o.catalog, fallback: o.catalog.Fallback()}

	for _, p := range o.profiles {
		if p == nil {
			continue
		}
		d.rules = append(d.rules, rule{
			RuleInfo: RuleInfo{Name: p.Code, Tier: TierTransliteration, Code: p.Code},
			match: func(lower string) (string, bool) {
				stage := p.stage(lower)
				return p.Code + "/" + stage, stage != ""
			},
		})
	}
	for _, sr := range scriptRules {
		d.rules = append(d.rules, rule{
			RuleInfo: RuleInfo{Name: sr.name, Tier: TierScript, Code: sr.code},
			match:    func(lower string) (string, bool) { return sr.name, sr.matches(lower) },
		})
	}
	for _, lr := range latinRules {
		d.rules = append(d.rules, rule{
			RuleInfo: RuleInfo{Name: lr.name, Tier: TierLatin, Code: lr.code},
			match:    func(lower string) (string, bool) { return lr.name, lr.matches(lower) },
		})
	}

	for _, r := range d.rules {
		if !o.catalog.Contains(r.Code) {
			return nil, fmt.Errorf("detect: rule %s targets %q, which is not in the catalog", r.Name, r.Code)
		}
	}
	return d, nil
}

// MustNew is like New but panics on error.
func MustNew(opts ...Option) *Detector {
	d, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return d
}

// Classify runs the rules in order and reports the first that fires.
func (d *Detector) Classify(text string) Result {
	if strings.TrimSpace(text) == "" {
		return d.defaultResult()
	}
	lower := toLower(norm.NFC.String(text))
	for _, r := range d.rules {
		if name, ok := r.match(lower); ok {
			return Result{Language: d.catalog.MustLookup(r.Code), Tier: r.Tier, Rule: name}
		}
	}
	return d.defaultResult()
}

// DetectLanguage returns the language of text. It always returns a real
// catalog language, never the auto pseudo-language.
func (d *Detector) DetectLanguage(text string) catalog.Language {
	return d.Classify(text).Language
}

// Rules returns the ordered rule list, ending with the default rule.
func (d *Detector) Rules() []RuleInfo {
	out := make([]RuleInfo, 0, len(d.rules)+1)
	for _, r := range d.rules {
		out = append(out, r.RuleInfo)
	}
	return append(out, RuleInfo{Name: "default", Tier: TierDefault, Code: d.fallback.Code})
}

// Catalog returns the catalog the detector resolves codes against.
func (d *Detector) Catalog() *catalog.Catalog { return d.catalog }

func (d *Detector) defaultResult() Result {
	return Result{Language: d.fallback, Tier: TierDefault, Rule: "default"}
}

var defaultDetector = MustNew()

// Default returns the detector built from the default catalog and the
// built-in profiles.
func Default() *Detector { return defaultDetector }

// DetectLanguage classifies text with the default detector.
func DetectLanguage(text string) catalog.Language {
	return defaultDetector.DetectLanguage(text)
}

// Classify classifies text with the default detector.
func Classify(text string) Result {
	return defaultDetector.Classify(text)
}

// Rules lists the default detector's rules in evaluation order.
func Rules() []RuleInfo {
	return defaultDetector.Rules()
}

// toLower lowercases with Unicode rules. A Caser keeps state, so each call
// gets its own.
func toLower(s string) string {
	return cases.Lower(language.Und).String(s)
}
