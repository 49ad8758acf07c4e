package turn

import "unicode"

// DetectLanguage guesses the conversation language from the script of
// the user's text. Latin text defaults to English; mixed text follows
// the dominant non-Latin script.
func DetectLanguage(text string) string {
	counts := map[string]int{}
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			counts["zh"]++
		case unicode.Is(unicode.Hiragana, r), unicode.Is(unicode.Katakana, r):
			counts["ja"]++
		case unicode.Is(unicode.Hangul, r):
			counts["ko"]++
		case unicode.Is(unicode.Cyrillic, r):
			counts["ru"]++
		case unicode.Is(unicode.Arabic, r):
			counts["ar"]++
		}
	}

	best, bestCount := "en", 0
	for lang, n := range counts {
		if n > bestCount {
			best, bestCount = lang, n
		}
	}

	// Japanese text mixes kana with Han characters; any kana at all
	// outweighs the Han count.
	if counts["ja"] > 0 && best == "zh" {
		return "ja"
	}
	return best
}
