package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWordsRE_WholeWords(t *testing.T) {
	re := wordsRE("le", "très")
	assert.True(t, re.MatchString("le chat"))
	assert.True(t, re.MatchString("c'est très bien"))
	assert.True(t, re.MatchString("le"))
	assert.False(t, re.MatchString("lemon"))
	assert.False(t, re.MatchString("apple"))
	// Accented letters are word characters: "trèsé" is not "très".
	assert.False(t, re.MatchString("trèsé"))
}

func TestLatinRules_Individually(t *testing.T) {
	tests := []struct {
		code string
		text string
	}{
		{"es", "mañana"},
		{"es", "¿qué?"},
		{"es", "muy bien"},
		{"fr", "garçon"},
		{"fr", "je suis là"},
		{"de", "straße"},
		{"de", "danke sehr"},
		{"it", "la città"},
		{"it", "molto bene"},
		{"pt", "irmão"},
		{"pt", "você"},
	}
	byCode := map[string]latinRule{}
	for _, r := range latinRules {
		byCode[r.code] = r
	}
	for _, tt := range tests {
		t.Run(tt.code+"/"+tt.text, func(t *testing.T) {
			assert.True(t, byCode[tt.code].matches(tt.text))
		})
	}
}

func TestClassify_DiacriticTieBreak(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		// Grave è is checked as French before Italian.
		{"père", "fr"},
		{"è vero", "fr"},
		// Other Italian graves stay Italian.
		{"la città", "it"},
		// Acute vowels fall through to Portuguese, the last Latin rule.
		{"café", "pt"},
		{"école", "pt"},
		// Words win over a later language's diacritics.
		{"el café", "es"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			r := Classify(tt.text)
			assert.Equal(t, tt.want, r.Language.Code)
			assert.Equal(t, TierLatin, r.Tier)
		})
	}
}

func TestLooksLikeDefault(t *testing.T) {
	assert.True(t, LooksLikeDefault("Hello, how are you?"))
	assert.True(t, LooksLikeDefault("THANK YOU"))
	assert.False(t, LooksLikeDefault("xyz123"))
	assert.False(t, LooksLikeDefault("asdf qwerty"))
	assert.False(t, LooksLikeDefault(""))
}
