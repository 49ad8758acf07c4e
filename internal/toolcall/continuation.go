package toolcall

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/6ixplatform/6ix-sub001/common/logger"
	"github.com/6ixplatform/6ix-sub001/internal/stream"
)

const continuationInstruction = "The tool results below were fetched for your previous reply. " +
	"Rewrite your answer incorporating them where relevant, keep the answer self-contained, " +
	"and append a \"Sources\" section listing where the information came from. " +
	"Do not emit any further tool markers."

// Runner executes a directive's side-channel fetch and drives the
// continuation pass. Strictly one continuation round per directive;
// the protocol does not recurse.
type Runner struct {
	llm   stream.Client
	fetch Fetcher
}

func NewRunner(llm stream.Client, fetch Fetcher) *Runner {
	return &Runner{llm: llm, fetch: fetch}
}

// Execute runs the side-channel fetch for one directive and renders
// the deterministic markdown block fed to the continuation pass.
func (r *Runner) Execute(ctx context.Context, d Directive) (string, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "six.toolcall.runner",
	})

	switch d.Kind {
	case KindWebSearch:
		results, err := r.fetch.Search(ctx, d.Arg, 0)
		if err != nil {
			return "", fmt.Errorf("executing web search: %w", err)
		}
		return FormatSearch(d.Arg, results), nil

	case KindStocks:
		quotes, err := r.fetch.Quotes(ctx, splitSymbols(d.Arg))
		if err != nil {
			return "", fmt.Errorf("executing stock lookup: %w", err)
		}
		return FormatQuotes(quotes), nil

	case KindWeather:
		w, err := r.fetch.Weather(ctx, d.Arg)
		if err != nil {
			return "", fmt.Errorf("executing weather lookup: %w", err)
		}
		return FormatWeather(w), nil

	default:
		return "", fmt.Errorf("unknown directive kind: %s", d.Kind)
	}
}

// Continue opens the second streamed completion: the original context,
// the assistant's first-pass reply, and a system instruction carrying
// the tool block. The sink replaces (not appends to) the message slot,
// so the caller passes a sink with replace semantics.
func (r *Runner) Continue(ctx context.Context, base stream.Request, firstPass, toolBlock string, onDelta stream.Sink) (string, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "six.toolcall.runner",
	})

	req := base
	req.Stream = true
	req.AllowControlTags = false
	req.Messages = make([]stream.Message, 0, len(base.Messages)+2)
	req.Messages = append(req.Messages, base.Messages...)
	req.Messages = append(req.Messages,
		stream.Message{Role: "assistant", Content: firstPass},
		stream.Message{Role: "system", Content: continuationInstruction + "\n\n" + toolBlock},
	)

	slog.InfoContext(ctx, "starting tool continuation",
		"context_messages", len(req.Messages),
		"tool_block_chars", len(toolBlock))

	return r.llm.Stream(ctx, req, onDelta)
}

func splitSymbols(arg string) []string {
	fields := strings.FieldsFunc(arg, func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})
	symbols := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.ToUpper(strings.TrimSpace(f)); f != "" {
			symbols = append(symbols, f)
		}
	}
	return symbols
}
