// Package stream implements the completion transport: a cancelable
// request to the model vendor endpoint whose response is decoded
// incrementally into (fullText, delta) pairs, regardless of whether the
// vendor answered with event-stream framing or a single body.
package stream

import "context"

// Message is one entry of the ordered completion context.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request carries the full conversation context plus model/plan
// metadata that is opaque to this package.
type Request struct {
	Plan             string    `json:"plan"`
	Model            string    `json:"model"`
	ResolvedModel    string    `json:"resolvedModel,omitempty"`
	Capabilities     []string  `json:"capabilities,omitempty"`
	Mode             string    `json:"mode,omitempty"`
	ContentMode      string    `json:"contentMode,omitempty"`
	Stream           bool      `json:"stream"`
	AllowControlTags bool      `json:"allowControlTags"`
	Messages         []Message `json:"messages"`
}

// Sink receives each extracted delta together with the accumulated
// text so far. No Sink call happens after the context is canceled.
type Sink func(fullText, delta string)

// Client streams one completion. The returned string is the final
// accumulated text, equal to the concatenation of all deltas passed to
// the sink in arrival order.
type Client interface {
	Stream(ctx context.Context, req Request, onDelta Sink) (string, error)
}
