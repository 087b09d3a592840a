package detect

import "unicode"

// scriptRule maps the presence of characters from one or more Unicode
// scripts onto a language. A rule fires when any rune of the text belongs
// to one of its tables.
type scriptRule struct {
	name   string
	code   string
	tables []*unicode.RangeTable
}

// scriptRules are evaluated in order. Japanese must precede Chinese: Han
// ideographs occur in both, and only kana tell Japanese apart, so a text
// with kana (with or without ideographs) is Japanese while ideographs alone
// are Chinese.
var scriptRules = []scriptRule{
	{name: "script/devanagari", code: "hi", tables: []*unicode.RangeTable{unicode.Devanagari}},
	{name: "script/arabic", code: "ar", tables: []*unicode.RangeTable{unicode.Arabic}},
	{name: "script/cyrillic", code: "ru", tables: []*unicode.RangeTable{unicode.Cyrillic}},
	{name: "script/kana", code: "ja", tables: []*unicode.RangeTable{unicode.Hiragana, unicode.Katakana}},
	{name: "script/hangul", code: "ko", tables: []*unicode.RangeTable{unicode.Hangul}},
	{name: "script/han", code: "zh", tables: []*unicode.RangeTable{unicode.Han}},
}

func (r scriptRule) matches(text string) bool {
	for _, c := range text {
		if c < unicode.MaxLatin1 {
			continue
		}
		if unicode.In(c, r.tables...) {
			return true
		}
	}
	return false
}
