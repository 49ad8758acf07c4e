// Package imagegen runs a single cancelable image-synthesis request
// and publishes a rotating progress readout while it is outstanding.
package imagegen

import (
	"fmt"
	"strings"
)

// Leading request verbs stripped before subject extraction. Matching is
// per-word so "drawing" the noun is untouched.
var imperativeVerbs = map[string]bool{
	"draw":     true,
	"generate": true,
	"create":   true,
	"make":     true,
	"paint":    true,
	"render":   true,
	"imagine":  true,
	"sketch":   true,
	"design":   true,
	"produce":  true,
}

// Fixed style vocabulary for the cosmetic readout. Order matters: the
// first keyword found in the prompt wins.
var styleKeywords = []string{
	"photorealistic", "watercolor", "oil painting", "pixel art",
	"anime", "cyberpunk", "minimalist", "abstract", "vintage",
	"3d", "cartoon", "noir",
}

var cameraKeywords = []string{
	"close-up", "wide angle", "aerial", "portrait", "macro",
	"panoramic", "bokeh", "low angle",
}

// DeriveSteps builds the ordered progress labels shown while a job is
// outstanding. Purely cosmetic: the labels never reach the request
// payload.
func DeriveSteps(prompt string) []string {
	subject := extractSubject(prompt)

	steps := []string{
		"Interpreting your prompt",
		"Sketching the composition",
	}
	if subject != "" {
		steps = append(steps, fmt.Sprintf("Drawing %s", subject))
	}
	if style := firstKeyword(prompt, styleKeywords); style != "" {
		steps = append(steps, fmt.Sprintf("Applying a %s style", style))
	}
	if camera := firstKeyword(prompt, cameraKeywords); camera != "" {
		steps = append(steps, fmt.Sprintf("Framing a %s shot", camera))
	}
	steps = append(steps,
		"Refining lighting and detail",
		"Rendering the final image",
	)
	return steps
}

// extractSubject strips leading imperative verbs and filler, then
// prefers the clause after the first "of". Returns a short phrase or
// "" when the prompt yields nothing usable.
func extractSubject(prompt string) string {
	words := strings.Fields(strings.ToLower(prompt))

	for len(words) > 0 {
		w := strings.Trim(words[0], ".,!?")
		if imperativeVerbs[w] || w == "a" || w == "an" || w == "the" ||
			w == "please" || w == "me" || w == "image" || w == "picture" || w == "photo" {
			words = words[1:]
			continue
		}
		break
	}

	for i, w := range words {
		if strings.Trim(w, ".,!?") == "of" && i+1 < len(words) {
			words = words[i+1:]
			break
		}
	}

	if len(words) == 0 {
		return ""
	}
	if len(words) > 6 {
		words = words[:6]
	}
	return strings.Trim(strings.Join(words, " "), ".,!? ")
}

func firstKeyword(prompt string, vocab []string) string {
	lower := strings.ToLower(prompt)
	for _, kw := range vocab {
		if strings.Contains(lower, kw) {
			return kw
		}
	}
	return ""
}
