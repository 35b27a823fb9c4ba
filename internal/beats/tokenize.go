package beats

import (
	"strings"
	"unicode"
)

// Languages whose scripts carry no word spacing and are timed per character.
var perCharacterLangs = map[string]bool{
	"zh": true,
	"ja": true,
	"ko": true,
	"th": true,
}

// Tokenize splits text into timing tokens. CJK and Thai text (detected by
// script, or forced via langHint) tokenizes per character so each glyph can
// carry its own beat; everything else tokenizes into letter/digit runs with
// punctuation as single-symbol tokens.
func Tokenize(text, langHint string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if perCharacterLangs[normalizeHint(langHint)] || containsCJKOrThai(text) {
		return tokenizePerCharacter(text)
	}
	return tokenizeWords(text)
}

func normalizeHint(langHint string) string {
	hint := strings.ToLower(strings.TrimSpace(langHint))
	if idx := strings.IndexAny(hint, "-_"); idx > 0 {
		hint = hint[:idx]
	}
	return hint
}

func containsCJKOrThai(text string) bool {
	for _, r := range text {
		if unicode.Is(unicode.Han, r) ||
			unicode.Is(unicode.Hiragana, r) ||
			unicode.Is(unicode.Katakana, r) ||
			unicode.Is(unicode.Hangul, r) ||
			unicode.Is(unicode.Thai, r) {
			return true
		}
	}
	return false
}

func tokenizePerCharacter(text string) []string {
	tokens := make([]string, 0, len(text))
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		tokens = append(tokens, string(r))
	}
	return tokens
}

func tokenizeWords(text string) []string {
	var tokens []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			current.WriteRune(r)
		case unicode.IsSpace(r):
			flush()
		default:
			flush()
			tokens = append(tokens, string(r))
		}
	}
	flush()
	return tokens
}
