package detect

import (
	"regexp"
	"strings"
)

// Profile fingerprints one language written in Latin letters instead of its
// native script. Text matches when any vocabulary entry occurs as a
// substring, when any grammatical pattern matches, or when at least
// MinFragments distinct phonetic fragments occur.
//
// Vocabulary matching is plain substring search, not word matching: short
// entries fire inside unrelated words ("do" in "window", "kal" in "kalt").
// Those false positives are accepted in exchange for recall.
type Profile struct {
	Code         string
	Vocabulary   []string
	Patterns     []*regexp.Regexp
	Fragments    []string
	MinFragments int
}

// Stage names reported by Profile.Stage.
const (
	StageVocabulary = "vocabulary"
	StagePattern    = "pattern"
	StagePhonetic   = "phonetic"
)

// Matches reports whether text looks like romanized text of p's language.
func (p *Profile) Matches(text string) bool {
	return p.Stage(text) != ""
}

// Stage returns the first stage that recognised text, or "" when none did.
func (p *Profile) Stage(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return p.stage(toLower(text))
}

// stage expects already-lowered, non-blank input.
func (p *Profile) stage(lower string) string {
	for _, w := range p.Vocabulary {
		if strings.Contains(lower, w) {
			return StageVocabulary
		}
	}
	for _, re := range p.Patterns {
		if re.MatchString(lower) {
			return StagePattern
		}
	}
	if p.fragmentCount(lower) >= p.MinFragments {
		return StagePhonetic
	}
	return ""
}

// fragmentCount counts distinct fragments present in lower. Each fragment is
// counted once regardless of how often it occurs.
func (p *Profile) fragmentCount(lower string) int {
	n := 0
	for _, f := range p.Fragments {
		if strings.Contains(lower, f) {
			n++
		}
	}
	return n
}

// Hindi is the romanized Hindi ("Hinglish") profile.
var Hindi = &Profile{
	Code: "hi",
	Vocabulary: []string{
		// greetings and courtesy
		"namaste", "namaskar", "pranam", "dhanyavaad", "dhanyavad", "dhanyawad",
		"shukriya", "alvida", "phir milenge",
		// pronouns and possessives
		"aap", "tumhara", "tumhari", "tumhe", "tumko", "hamara", "hamari", "humko",
		"mujhe", "mujhko", "mera", "meri", "tera", "teri", "unka", "unki", "uska", "uski", "woh",
		// copulas
		"hai", "hain", "hoon", "tha", "thi",
		// question words
		"kaise", "kaisa", "kaisi", "kya", "kyun", "kyon", "kahan", "kaun", "kitna", "kitne",
		// kin
		"bhai", "behen", "behan", "didi", "pitaji", "mataji", "dadi", "chacha", "beti", "bachcha",
		// numerals
		"ek", "do", "teen", "char", "chaar", "paanch", "chhah", "saat", "aath", "nau", "das",
		// time
		"aaj", "kal", "abhi", "subah", "shaam", "raat", "dopahar", "hafta",
		// common verbs
		"karna", "karo", "karta", "karti", "jaana", "jao", "aana", "aao", "khana", "khaana",
		"peena", "piyo", "dekho", "dekhna", "bolo", "bolna", "suno", "sunna", "samajh",
		"chalo", "batao", "ruko", "likho", "padho", "sochna",
		// everyday words
		"accha", "achha", "theek", "bahut", "nahi", "haan", "yaar", "dost", "paani",
		"ghar", "pyaar", "zindagi", "duniya", "khush",
	},
	Patterns: []*regexp.Regexp{
		// possessive particle between two words: "ram ka ghar"
		regexp.MustCompile(`\b[a-z]+\s+(?:ka|ki|ke)\s+[a-z]+\b`),
		// locative particle after a noun: "ghar mein"
		regexp.MustCompile(`\b[a-z]+\s+(?:mein|mai)\b`),
		// ablative after an oblique pronoun or place word: "mujhse", "ghar se"
		regexp.MustCompile(`\b(?:mujh|tujh|us|is|un|in|kis|jis|ghar|yahan|wahan|kahan)\s?se\b`),
		// respectful-address suffix: "pitaji", "guruji"
		regexp.MustCompile(`\b[a-z]{3,}ji\b`),
		// agentive suffix: "chaiwala", "dilliwali"
		regexp.MustCompile(`\b[a-z]{2,}wal[aie]\b`),
		// progressive aspect: "kar raha hai"
		regexp.MustCompile(`\b(?:raha|rahi|rahe)\s+(?:hai|hain|hoon|ho|tha|thi|the)\b`),
		// completive aspect: "ho gaya", "kar liya"
		regexp.MustCompile(`\b(?:ho|kar|kha|pi|aa|ja|de|le|so)\s+(?:gaya|gayi|gaye|liya|liye|diya|diye|chuka|chuki|chuke)\b`),
	},
	Fragments: []string{
		// aspirated consonants
		"bh", "chh", "dh", "jh", "kh",
		// long vowels
		"aa", "ii", "uu",
	},
	MinFragments: 2,
}

var profiles = map[string]*Profile{
	Hindi.Code: Hindi,
}

// LookupProfile returns the built-in transliteration profile for code.
func LookupProfile(code string) (*Profile, bool) {
	p, ok := profiles[code]
	return p, ok
}
