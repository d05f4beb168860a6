package usecase

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases text and strips accents. Punctuation and digits are
// kept, so the result is usable as a comparison key for every textual match.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	if isASCII(text) {
		return strings.ToLower(text)
	}

	// A transform chain keeps state, so each call builds its own.
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, text)
	if err != nil {
		folded = text
	}

	return strings.ToLower(folded)
}

// normalizeTokens normalizes, trims and de-duplicates tokens, keeping the
// first occurrence order.
func normalizeTokens(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		n := strings.TrimSpace(Normalize(t))
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
