package turn

import "strings"

// Openers that mark a sentence as a standing directive rather than a
// one-off request.
var directiveOpeners = []string{
	"from now on",
	"from now on,",
	"going forward",
	"going forward,",
	"in the future",
	"in the future,",
	"always",
	"never",
	"please always",
	"please never",
}

// ExtractDirectives pulls standing "from now on..." style statements
// out of a user turn. The returned directives keep the opener so the
// model sees the full instruction when replayed as system context.
func ExtractDirectives(text string) []string {
	var directives []string
	for _, sentence := range splitSentences(text) {
		lower := strings.ToLower(sentence)
		for _, opener := range directiveOpeners {
			if strings.HasPrefix(lower, opener) {
				// "always"/"never" need a real instruction after them.
				if len(strings.Fields(sentence)) >= 3 {
					directives = append(directives, sentence)
				}
				break
			}
		}
	}
	return directives
}

func splitSentences(text string) []string {
	var sentences []string
	for _, part := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n' || r == ';'
	}) {
		if part = strings.TrimSpace(part); part != "" {
			sentences = append(sentences, part)
		}
	}
	return sentences
}
