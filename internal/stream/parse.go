package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
)

// doneSentinel terminates a framed response.
const doneSentinel = "[DONE]"

// deltaFrame covers the vendor-shaped JSON payloads a data line may
// carry. The accepted shapes, in extraction order:
//
//	{"choices":[{"delta":{"content":"..."}}]}
//	{"choices":[{"text":"..."}]}
//	{"delta":{"content":"..."}}
//	{"content":"..."}
//
// Anything that does not decode is treated as raw literal text.
type deltaFrame struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		Text string `json:"text"`
	} `json:"choices"`
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
	Content string `json:"content"`
}

// extractDelta pulls the text fragment out of one data payload.
// Unparseable payloads come back verbatim; structural frames (valid
// JSON with no text content, e.g. role announcements) yield "".
func extractDelta(data string) string {
	trimmed := strings.TrimSpace(data)
	if trimmed == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, "{") {
		var frame deltaFrame
		if err := json.Unmarshal([]byte(trimmed), &frame); err != nil {
			return data
		}
		if len(frame.Choices) > 0 {
			if c := frame.Choices[0].Delta.Content; c != "" {
				return c
			}
			if c := frame.Choices[0].Text; c != "" {
				return c
			}
		}
		if frame.Delta.Content != "" {
			return frame.Delta.Content
		}
		return frame.Content
	}

	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal([]byte(trimmed), &s); err == nil {
			return s
		}
	}

	return data
}

// processBlock applies the per-block rules to one blank-line-delimited
// block: comment lines (":" prefix) are ignored, every "data:" line is
// a payload, and a block without any "data:" line is treated as one
// payload in its entirety (this is what makes a single non-incremental
// body produce the same deltas as its framed equivalent). Returns true
// once the done sentinel is seen.
func processBlock(block string, emit func(delta string)) bool {
	var datas []string
	var plain []string

	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if rest, ok := strings.CutPrefix(line, "data:"); ok {
			datas = append(datas, strings.TrimSpace(rest))
			continue
		}
		// Other SSE fields (event:, id:, retry:) carry no text.
		if isSSEField(line) {
			continue
		}
		plain = append(plain, line)
	}

	if len(datas) == 0 {
		payload := strings.TrimSpace(strings.Join(plain, "\n"))
		if payload == "" {
			return false
		}
		if payload == doneSentinel {
			return true
		}
		if delta := extractDelta(payload); delta != "" {
			emit(delta)
		}
		return false
	}

	for _, data := range datas {
		if data == doneSentinel {
			return true
		}
		if delta := extractDelta(data); delta != "" {
			emit(delta)
		}
	}
	return false
}

func isSSEField(line string) bool {
	for _, prefix := range []string{"event:", "id:", "retry:"} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// decode reads blank-line-delimited blocks from r and feeds extracted
// deltas to the sink until EOF, the done sentinel, or context
// cancellation. It returns the accumulated text; after cancellation no
// further sink calls are made.
func decode(ctx context.Context, r io.Reader, onDelta Sink) (string, error) {
	var full strings.Builder

	emit := func(delta string) {
		if ctx.Err() != nil {
			return
		}
		full.WriteString(delta)
		if onDelta != nil {
			onDelta(full.String(), delta)
		}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var block strings.Builder
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return full.String(), err
		}

		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" {
			if block.Len() > 0 {
				done := processBlock(block.String(), emit)
				block.Reset()
				if done {
					return full.String(), nil
				}
			}
			continue
		}

		if block.Len() > 0 {
			block.WriteByte('\n')
		}
		block.WriteString(line)
	}

	if err := ctx.Err(); err != nil {
		return full.String(), err
	}
	if err := scanner.Err(); err != nil {
		return full.String(), err
	}

	if block.Len() > 0 {
		processBlock(block.String(), emit)
	}

	return full.String(), nil
}
