package scrub

import (
	"regexp"
	"strings"
	"unicode"
)

// Locale comma variants restored to the ASCII comma.
var commaReplacer = strings.NewReplacer(
	"，", ",", // fullwidth comma
	"、", ",", // ideographic comma
	"،", ",", // Arabic comma
)

var (
	multiSpaceRe   = regexp.MustCompile(`[ \t]{2,}`)
	spacedDigitRe  = regexp.MustCompile(`(\d),\s+(\d{3})`)
	danglingComma  = regexp.MustCompile(`(\d)\s+,(\d{3})`)
	commaBeforeEnd = regexp.MustCompile(`\s+([.,!?;:])`)
)

// cleanLine applies the deterministic local cleanup pass that runs on every
// scrubbed line, whether the model rewrote it or the original was retained:
// emoji/pictographs are stripped, runs of three or more repeated symbol
// characters collapse to one, locale comma variants become ASCII commas,
// digit-group commas are re-joined, and whitespace is normalized.
func cleanLine(text string) string {
	text = stripPictographs(text)
	text = collapseSymbolRuns(text)
	text = commaReplacer.Replace(text)
	for {
		next := spacedDigitRe.ReplaceAllString(text, "$1,$2")
		next = danglingComma.ReplaceAllString(next, "$1,$2")
		if next == text {
			break
		}
		text = next
	}
	text = commaBeforeEnd.ReplaceAllString(text, "$1")
	text = multiSpaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func stripPictographs(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if isPictograph(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isPictograph(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF: // emoji, symbols, pictographs
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r >= 0x2B00 && r <= 0x2BFF: // stars, misc symbols and arrows
		return true
	case r >= 0xFE00 && r <= 0xFE0F: // variation selectors
		return true
	case r == 0x200D: // zero-width joiner
		return true
	}
	return false
}

// collapseSymbolRuns reduces runs of three or more identical symbol characters
// to a single occurrence. Word characters, whitespace, and sentence
// punctuation are left alone.
func collapseSymbolRuns(text string) string {
	runes := []rune(text)
	var b strings.Builder
	b.Grow(len(runes))
	for i := 0; i < len(runes); {
		r := runes[i]
		runEnd := i + 1
		for runEnd < len(runes) && runes[runEnd] == r {
			runEnd++
		}
		runLen := runEnd - i
		if runLen >= 3 && isCollapsibleSymbol(r) {
			b.WriteRune(r)
		} else {
			for j := 0; j < runLen; j++ {
				b.WriteRune(r)
			}
		}
		i = runEnd
	}
	return b.String()
}

func isCollapsibleSymbol(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
		return false
	}
	switch r {
	case '.', ',', '!', '?', ';', ':', '\'', '"', '-':
		return false
	}
	return true
}
