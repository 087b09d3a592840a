// Package catalog holds the static, ordered table of languages polyglot can
// detect and translate between.
//
// A Catalog is built once and never mutated afterwards, so it is safe for
// concurrent use without locking.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

const (
	// AutoCode is the pseudo-language meaning "detect me".
	AutoCode = "auto"

	// DefaultCode is the fallback real language.
	DefaultCode = "en"
)

// Language is a catalog entry. It is a value type; callers own the copies
// they receive.
type Language struct {
	Code       string `json:"code" yaml:"code"`
	Name       string `json:"name" yaml:"name"`
	NativeName string `json:"native_name,omitempty" yaml:"native_name,omitempty"`
	RTL        bool   `json:"rtl,omitempty" yaml:"rtl,omitempty"`
}

// IsAuto reports whether l is the auto-detect pseudo-language.
func (l Language) IsAuto() bool { return l.Code == AutoCode }

// String returns the display name followed by the code, e.g. "Hindi (hi)".
func (l Language) String() string {
	if l.Code == "" {
		return "Unknown"
	}
	return fmt.Sprintf("%s (%s)", l.Name, l.Code)
}

// builtin is the supported-language table. Order is the display order.
var builtin = []Language{
	{Code: AutoCode, Name: "Detect language"},
	{Code: "en", Name: "English", NativeName: "English"},
	{Code: "hi", Name: "Hindi", NativeName: "हिन्दी"},
	{Code: "es", Name: "Spanish", NativeName: "Español"},
	{Code: "fr", Name: "French", NativeName: "Français"},
	{Code: "de", Name: "German", NativeName: "Deutsch"},
	{Code: "it", Name: "Italian", NativeName: "Italiano"},
	{Code: "pt", Name: "Portuguese", NativeName: "Português"},
	{Code: "ru", Name: "Russian", NativeName: "Русский"},
	{Code: "ar", Name: "Arabic", NativeName: "العربية", RTL: true},
	{Code: "ja", Name: "Japanese", NativeName: "日本語"},
	{Code: "ko", Name: "Korean", NativeName: "한국어"},
	{Code: "zh", Name: "Chinese", NativeName: "中文"},

	// Extension slots: translatable, no dedicated detection rule.
	{Code: "bn", Name: "Bengali", NativeName: "বাংলা"},
	{Code: "ur", Name: "Urdu", NativeName: "اردو", RTL: true},
	{Code: "ta", Name: "Tamil", NativeName: "தமிழ்"},
	{Code: "te", Name: "Telugu", NativeName: "తెలుగు"},
	{Code: "mr", Name: "Marathi", NativeName: "मराठी"},
	{Code: "tr", Name: "Turkish", NativeName: "Türkçe"},
	{Code: "nl", Name: "Dutch", NativeName: "Nederlands"},
	{Code: "pl", Name: "Polish", NativeName: "Polski"},
}

// Catalog is an immutable, ordered set of languages keyed by code.
type Catalog struct {
	langs  []Language
	byCode map[string]int
}

var defaultCatalog = mustNew(builtin)

// Default returns the built-in catalog.
func Default() *Catalog { return defaultCatalog }

// New builds a catalog from langs. Codes must be unique and the table must
// contain both the auto pseudo-language and the default language.
func New(langs []Language) (*Catalog, error) {
	c := &Catalog{
		langs:  make([]Language, 0, len(langs)),
		byCode: make(map[string]int, len(langs)),
	}
	for _, l := range langs {
		code := strings.ToLower(strings.TrimSpace(l.Code))
		if code == "" {
			return nil, errors.New("catalog: language with empty code")
		}
		if l.Name == "" {
			return nil, fmt.Errorf("catalog: language %q has no name", code)
		}
		if _, dup := c.byCode[code]; dup {
			return nil, fmt.Errorf("catalog: duplicate language code %q", code)
		}
		l.Code = code
		c.byCode[code] = len(c.langs)
		c.langs = append(c.langs, l)
	}
	if _, ok := c.byCode[AutoCode]; !ok {
		return nil, fmt.Errorf("catalog: missing %q pseudo-language", AutoCode)
	}
	if _, ok := c.byCode[DefaultCode]; !ok {
		return nil, fmt.Errorf("catalog: missing default language %q", DefaultCode)
	}
	return c, nil
}

func mustNew(langs []Language) *Catalog {
	c, err := New(langs)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the language for code. The code is normalised first, so
// "EN", "en-US" and "en" all resolve to English.
func (c *Catalog) Lookup(code string) (Language, bool) {
	i, ok := c.byCode[Normalize(code)]
	if !ok {
		return Language{}, false
	}
	return c.langs[i], true
}

// MustLookup is like Lookup but panics for codes missing from the catalog.
// It is meant for codes that are compiled into the binary.
func (c *Catalog) MustLookup(code string) Language {
	l, ok := c.Lookup(code)
	if !ok {
		panic(fmt.Sprintf("catalog: unknown language code %q", code))
	}
	return l
}

// Contains reports whether code resolves to a catalog entry.
func (c *Catalog) Contains(code string) bool {
	_, ok := c.Lookup(code)
	return ok
}

// Auto returns the auto-detect pseudo-language.
func (c *Catalog) Auto() Language { return c.MustLookup(AutoCode) }

// Fallback returns the default real language.
func (c *Catalog) Fallback() Language { return c.MustLookup(DefaultCode) }

// All returns every entry in catalog order, including auto.
func (c *Catalog) All() []Language {
	out := make([]Language, len(c.langs))
	copy(out, c.langs)
	return out
}

// Real returns every entry except the auto pseudo-language.
func (c *Catalog) Real() []Language {
	out := make([]Language, 0, len(c.langs)-1)
	for _, l := range c.langs {
		if !l.IsAuto() {
			out = append(out, l)
		}
	}
	return out
}

// Len returns the number of entries including auto.
func (c *Catalog) Len() int { return len(c.langs) }

// Normalize maps a user- or provider-supplied code onto the catalog's code
// space: it lowercases, trims, and reduces BCP-47 tags ("pt-BR", "zh-Hans")
// to their base language. Codes that do not parse are returned lowercased.
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" || code == AutoCode {
		return code
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	// Only an explicit base counts; inferring "und" to English would turn a
	// provider's undetermined answer into a confident one.
	base, conf := tag.Base()
	if conf != language.Exact {
		return code
	}
	return base.String()
}
