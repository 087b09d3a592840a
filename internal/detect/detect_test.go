package detect

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/polyglot/internal/catalog"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"romanized hindi greeting", "namaste, aap kaise ho", "hi"},
		{"french function words", "bonjour, merci beaucoup", "fr"},
		{"no evidence", "xyz123", "en"},
		{"empty", "", "en"},
		{"whitespace", "  \t\n ", "en"},
		{"english sentence", "The quick brown fox jumps over the lazy cat", "en"},
		{"devanagari", "नमस्ते", "hi"},
		{"arabic", "مرحبا", "ar"},
		{"cyrillic", "Привет, как дела?", "ru"},
		{"hiragana", "こんにちは", "ja"},
		{"kana with ideographs", "日本語を話します", "ja"},
		{"ideographs only", "你好世界", "zh"},
		{"hangul", "안녕하세요", "ko"},
		{"spanish punctuation", "Hola, ¿cómo estás?", "es"},
		{"spanish words", "el perro come la comida", "es"},
		{"german words", "Guten Tag, wie geht es dir?", "de"},
		{"german umlaut", "Grüße aus München", "de"},
		{"italian words", "Ciao, grazie mille", "it"},
		{"italian grave accent", "Per favore, parla più lentamente", "it"},
		{"portuguese words", "Muito bem", "pt"},
		{"portuguese tilde", "Não entendi", "pt"},
		{"french sentence", "C'était une journée très spéciale", "fr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectLanguage(tt.text)
			assert.Equal(t, tt.want, got.Code)
			assert.False(t, got.IsAuto())
		})
	}
}

func TestClassify_TierPrecedence(t *testing.T) {
	// Transliteration evidence beats the French diacritic in "très".
	r := Classify("namaste, très bien")
	assert.Equal(t, "hi", r.Language.Code)
	assert.Equal(t, TierTransliteration, r.Tier)
	assert.Equal(t, "hi/vocabulary", r.Rule)

	// Script beats Latin words.
	r = Classify("bonjour Привет")
	assert.Equal(t, "ru", r.Language.Code)
	assert.Equal(t, TierScript, r.Tier)
	assert.Equal(t, "script/cyrillic", r.Rule)

	// Spanish precedes Portuguese when both word lists match.
	r = Classify("por favor, muito bem")
	assert.Equal(t, "es", r.Language.Code)
	assert.Equal(t, "latin/es", r.Rule)
}

func TestClassify_VocabularySubstringFalsePositives(t *testing.T) {
	// Vocabulary entries match anywhere in the text, so ordinary words in
	// other languages that contain one are classified as romanized Hindi.
	tests := []struct {
		text  string
		entry string
	}{
		{"I moved to America last year", "meri"},
		{"My camera is broken", "mera"},
		{"Es ist heute sehr kalt", "kal"},
		{"Das ist gut", "das"},
		{"obrigado", "do"},
		{"Thank you", "tha"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			require.Contains(t, toLower(tt.text), tt.entry)
			r := Classify(tt.text)
			assert.Equal(t, "hi", r.Language.Code)
			assert.Equal(t, "hi/vocabulary", r.Rule)
		})
	}
}

func TestClassify_Default(t *testing.T) {
	r := Classify("xyz123")
	assert.True(t, r.IsDefault())
	assert.Equal(t, "default", r.Rule)
	assert.Equal(t, catalog.DefaultCode, r.Language.Code)
}

func TestClassify_DecomposedDiacritics(t *testing.T) {
	// "Grüße" with U+0308 COMBINING DIAERESIS instead of a precomposed ü.
	r := Classify("Gru\u0308\u00dfe")
	assert.Equal(t, "de", r.Language.Code)
	assert.Equal(t, TierLatin, r.Tier)
}

func TestClassify_CaseInsensitive(t *testing.T) {
	assert.Equal(t, "hi", DetectLanguage("NAMASTE").Code)
	assert.Equal(t, "fr", DetectLanguage("BONJOUR").Code)
}

func TestRules_Order(t *testing.T) {
	rules := Rules()
	require.NotEmpty(t, rules)

	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name
	}
	assert.Equal(t, []string{
		"hi",
		"script/devanagari", "script/arabic", "script/cyrillic", "script/kana", "script/hangul", "script/han",
		"latin/es", "latin/fr", "latin/de", "latin/it", "latin/pt",
		"default",
	}, names)

	// Tiers never decrease along the list.
	for i := 1; i < len(rules); i++ {
		assert.GreaterOrEqual(t, rules[i].Tier, rules[i-1].Tier, "rule %s", rules[i].Name)
	}
}

func TestNew_WithoutProfiles(t *testing.T) {
	d, err := New(WithProfiles())
	require.NoError(t, err)
	assert.Equal(t, "en", d.DetectLanguage("namaste, aap kaise ho").Code)
	assert.Equal(t, "hi", d.DetectLanguage("नमस्ते").Code)
}

func TestNew_RejectsCatalogWithoutRuleLanguage(t *testing.T) {
	small, err := catalog.New([]catalog.Language{
		{Code: "auto", Name: "Detect"},
		{Code: "en", Name: "English"},
	})
	require.NoError(t, err)

	_, err = New(WithCatalog(small))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in the catalog")
}

func TestTier_String(t *testing.T) {
	assert.Equal(t, "transliteration", TierTransliteration.String())
	assert.Equal(t, "default", TierDefault.String())
	assert.Equal(t, "tier(9)", Tier(9).String())
}

func TestResult_JSON(t *testing.T) {
	data, err := json.Marshal(Classify("नमस्ते"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"language":{"code":"hi","name":"Hindi","native_name":"हिन्दी"},"tier":"script","rule":"script/devanagari"}`, string(data))
}

func TestTier_UnmarshalText(t *testing.T) {
	var r Result
	require.NoError(t, json.Unmarshal([]byte(`{"tier":"latin","rule":"latin/fr"}`), &r))
	assert.Equal(t, TierLatin, r.Tier)

	var tier Tier
	assert.Error(t, tier.UnmarshalText([]byte("bogus")))
}
