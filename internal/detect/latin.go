package detect

import (
	"regexp"
	"strings"
)

// latinRule recognises one Latin-script language by a diacritic class or a
// list of short function words. Either signal is enough.
type latinRule struct {
	name      string
	code      string
	diacritic *regexp.Regexp
	words     *regexp.Regexp
}

func (r latinRule) matches(lower string) bool {
	return r.diacritic.MatchString(lower) || r.words.MatchString(lower)
}

// wordsRE matches any of words as a whole word. Word edges are non-letters
// rather than \b so accented letters count as part of a word.
func wordsRE(words ...string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?:^|[^\p{L}])(?:` + strings.Join(quoted, "|") + `)(?:[^\p{L}]|$)`)
}

// latinRules are evaluated in order; the first hit wins. Diacritic classes
// hold the marks most characteristic of each language. The grave è is
// French before Italian. Acute vowels are shared by Spanish, French,
// Italian and Portuguese, so they sit in the last class and only decide
// when no earlier language matched on words: "café" is Portuguese.
// Words that double as common English words (die, come, pour, um) or as
// another listed language's words (German "es") are left out.
var latinRules = []latinRule{
	{
		name:      "latin/es",
		code:      "es",
		diacritic: regexp.MustCompile(`[ñ¿¡]`),
		words: wordsRE("el", "los", "las", "que", "en", "una", "por", "con", "para", "yo", "soy",
			"hola", "gracias", "buenos", "buenas", "días", "dias", "como", "cómo", "muy", "pero",
			"estoy", "estás", "usted"),
	},
	{
		name:      "latin/fr",
		code:      "fr",
		diacritic: regexp.MustCompile(`[çœæâêîôûëïÿè]`),
		words: wordsRE("le", "les", "et", "est", "une", "je", "vous", "nous", "bonjour", "merci",
			"oui", "très", "beaucoup", "avec", "dans", "pas", "ce", "ça", "bonsoir", "salut"),
	},
	{
		name:      "latin/de",
		code:      "de",
		diacritic: regexp.MustCompile(`[äöüß]`),
		words: wordsRE("der", "das", "und", "ist", "nicht", "ich", "guten", "tag", "danke", "hallo",
			"ein", "eine", "wie", "geht", "mit", "auf", "bitte", "sehr"),
	},
	{
		name:      "latin/it",
		code:      "it",
		diacritic: regexp.MustCompile(`[àìòù]`),
		words: wordsRE("il", "lo", "gli", "che", "di", "sono", "ciao", "grazie", "buongiorno",
			"per", "molto", "questo", "bene", "prego", "sei"),
	},
	{
		name:      "latin/pt",
		code:      "pt",
		diacritic: regexp.MustCompile(`[ãõáéíóú]`),
		words: wordsRE("os", "uma", "não", "obrigado", "olá", "bom", "dia", "você",
			"tudo", "bem", "muito", "isso", "está", "eu", "estou", "obrigada"),
	},
}

// defaultWords are frequent English words. LooksLikeDefault uses them to
// tell text that is English apart from text that merely fell through every
// rule.
var defaultWords = wordsRE("the", "is", "are", "was", "were", "and", "you", "your", "what",
	"how", "hello", "hi", "this", "that", "with", "have", "has", "for", "of", "to", "in", "it",
	"please", "thank", "thanks", "good", "morning", "my", "me", "we", "they", "can", "do",
	"not", "be", "will", "would", "where", "when", "why", "who")

// LooksLikeDefault reports whether text carries positive evidence of being
// English, as opposed to being classified English only because nothing
// else matched.
func LooksLikeDefault(text string) bool {
	return defaultWords.MatchString(toLower(text))
}
