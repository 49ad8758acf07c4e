// Package turn drives one conversational turn end to end: classify
// the input, dispatch to the image job, file pipeline, or text stream,
// splice tool continuations, and finalize the shared message list.
package turn

import "strings"

// Intent is the pipeline a classified turn runs through.
type Intent string

const (
	IntentText             Intent = "text"
	IntentImage            Intent = "image"
	IntentFileDescribe     Intent = "file_describe"
	IntentFileChat         Intent = "file_chat"
	IntentDescribeFollowup Intent = "describe_followup"
)

var imageRequestVerbs = map[string]bool{
	"draw":     true,
	"generate": true,
	"create":   true,
	"make":     true,
	"paint":    true,
	"render":   true,
	"imagine":  true,
	"sketch":   true,
}

var imageNouns = map[string]bool{
	"image":        true,
	"picture":      true,
	"photo":        true,
	"illustration": true,
	"logo":         true,
	"drawing":      true,
	"painting":     true,
	"wallpaper":    true,
}

var describeVerbs = map[string]bool{
	"describe":  true,
	"explain":   true,
	"summarize": true,
	"analyze":   true,
	"read":      true,
}

// Phrases that point a turn with no attachments back at the most
// recent visual in the conversation.
var followupPhrases = []string{
	"describe it",
	"describe that",
	"describe this",
	"what's this",
	"what is this",
	"what's that",
	"what is that",
	"what am i looking at",
	"describe this image",
	"describe the image",
	"describe the picture",
	"describe the photo",
	"describe the last image",
	"what is in the image",
	"what's in the image",
	"what is in the picture",
	"what's in the picture",
	"what does it show",
	"what do you see",
}

// Classify decides the pipeline for a turn. First match wins: explicit
// image request, then ready attachments, then a describe-the-last-visual
// follow-up, then plain text.
func Classify(text string, readyAttachments int, hasVisual bool) Intent {
	lower := strings.ToLower(strings.TrimSpace(text))

	if isImageRequest(lower) {
		return IntentImage
	}
	if readyAttachments > 0 {
		if isDescribeIntent(lower) {
			return IntentFileDescribe
		}
		return IntentFileChat
	}
	if hasVisual && isVisualFollowup(lower) {
		return IntentDescribeFollowup
	}
	return IntentText
}

// isImageRequest sniffs a generation request with one pass over the
// words: an imperative generation verb near the front, or an explicit
// "image of" style noun phrase.
func isImageRequest(lower string) bool {
	words := strings.Fields(lower)
	if len(words) == 0 {
		return false
	}

	verbAt := -1
	for i, w := range words {
		w = strings.Trim(w, ".,!?:;\"'")
		if verbAt == -1 && imageRequestVerbs[w] && i <= 2 {
			verbAt = i
		}
		if imageNouns[w] {
			if verbAt >= 0 {
				return true
			}
			// "an image of ..." without a verb still counts.
			if i+1 < len(words) && strings.Trim(words[i+1], ".,!?") == "of" {
				return true
			}
		}
	}

	// Bare "draw a dragon" with no image noun.
	if verbAt == 0 {
		w := strings.Trim(words[0], ".,!?:;\"'")
		return w == "draw" || w == "sketch" || w == "paint" || w == "imagine"
	}
	return false
}

func isDescribeIntent(lower string) bool {
	if lower == "" {
		return true // files with no text default to describe
	}
	for _, phrase := range followupPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	words := strings.Fields(lower)
	for i, w := range words {
		if describeVerbs[strings.Trim(w, ".,!?:;\"'")] && i <= 2 {
			return true
		}
	}
	return false
}

func isVisualFollowup(lower string) bool {
	for _, phrase := range followupPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
