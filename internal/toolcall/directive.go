// Package toolcall implements the continuation protocol: a completed
// assistant reply is scanned once for tool directives, each directive's
// side-channel fetch is executed, and the results are folded into a
// second completion pass.
package toolcall

import "strings"

// Kind identifies a tool directive.
type Kind string

const (
	KindWebSearch Kind = "web_search"
	KindStocks    Kind = "stocks"
	KindWeather   Kind = "weather"
)

// kindOrder fixes the execution order when one reply carries several
// distinct directives.
var kindOrder = []Kind{KindWebSearch, KindStocks, KindWeather}

var markerPrefixes = map[Kind]string{
	KindWebSearch: "##WEB_SEARCH:",
	KindStocks:    "##STOCKS:",
	KindWeather:   "##WEATHER:",
}

// Directive is a tagged tool request decoded from the reply text.
type Directive struct {
	Kind Kind
	Arg  string
}

// ParseDirectives scans the completed reply a single time, line by
// line. The first marker of each kind wins; repeats of the same kind
// are ignored. The result is ordered by kindOrder regardless of where
// the markers appeared in the text.
func ParseDirectives(text string) []Directive {
	found := make(map[Kind]string, len(markerPrefixes))

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		for kind, prefix := range markerPrefixes {
			if _, taken := found[kind]; taken {
				continue
			}
			if rest, ok := strings.CutPrefix(line, prefix); ok {
				if arg := strings.TrimSpace(rest); arg != "" {
					found[kind] = arg
				}
			}
		}
	}

	var directives []Directive
	for _, kind := range kindOrder {
		if arg, ok := found[kind]; ok {
			directives = append(directives, Directive{Kind: kind, Arg: arg})
		}
	}
	return directives
}

// StripDirectives removes marker lines from a reply, leaving the
// user-visible text.
func StripDirectives(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if isMarkerLine(strings.TrimSpace(line)) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func isMarkerLine(line string) bool {
	for _, prefix := range markerPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
