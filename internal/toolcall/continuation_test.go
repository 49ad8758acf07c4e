package toolcall_test

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/6ixplatform/6ix-sub001/internal/stream"
	"github.com/6ixplatform/6ix-sub001/internal/toolcall"
)

var _ = Describe("Runner", func() {
	var (
		fetcher *mockFetcher
		llm     *mockStreamClient
		runner  *toolcall.Runner
		ctx     context.Context
	)

	BeforeEach(func() {
		fetcher = &mockFetcher{}
		llm = &mockStreamClient{}
		runner = toolcall.NewRunner(llm, fetcher)
		ctx = context.Background()
	})

	Describe("Execute", func() {
		It("renders search results as a numbered block", func() {
			var gotQuery string
			fetcher.searchFn = func(_ context.Context, query string, _ int) ([]toolcall.SearchResult, error) {
				gotQuery = query
				return []toolcall.SearchResult{
					{Title: "Go Blog", URL: "https://go.dev/blog", Snippet: "Release notes."},
				}, nil
			}

			block, err := runner.Execute(ctx, toolcall.Directive{
				Kind: toolcall.KindWebSearch,
				Arg:  "go release notes",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(gotQuery).To(Equal("go release notes"))
			Expect(block).To(ContainSubstring("1. **Go Blog**"))
			Expect(block).To(ContainSubstring("https://go.dev/blog"))
		})

		It("splits and upcases stock symbols", func() {
			var gotSymbols []string
			fetcher.quotesFn = func(_ context.Context, symbols []string) ([]toolcall.Quote, error) {
				gotSymbols = symbols
				return []toolcall.Quote{{Symbol: "AAPL", Price: 210.11, Change: 1.2, ChangePct: 0.57}}, nil
			}

			block, err := runner.Execute(ctx, toolcall.Directive{
				Kind: toolcall.KindStocks,
				Arg:  "aapl, msft",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(gotSymbols).To(Equal([]string{"AAPL", "MSFT"}))
			Expect(block).To(ContainSubstring("| AAPL | 210.11 USD |"))
		})

		It("renders weather conditions", func() {
			fetcher.weatherFn = func(_ context.Context, location string) (*toolcall.Weather, error) {
				Expect(location).To(Equal("Lagos"))
				return &toolcall.Weather{Name: "Lagos", Temp: 29.4, Description: "scattered clouds"}, nil
			}

			block, err := runner.Execute(ctx, toolcall.Directive{
				Kind: toolcall.KindWeather,
				Arg:  "Lagos",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(block).To(Equal("Current weather for Lagos: 29.4°C, scattered clouds.\n"))
		})

		It("propagates fetch failures", func() {
			fetcher.searchFn = func(context.Context, string, int) ([]toolcall.SearchResult, error) {
				return nil, errors.New("upstream down")
			}

			_, err := runner.Execute(ctx, toolcall.Directive{
				Kind: toolcall.KindWebSearch,
				Arg:  "anything",
			})

			Expect(err).To(MatchError(ContainSubstring("upstream down")))
		})
	})

	Describe("Continue", func() {
		It("appends the first pass and the tool block to the original context", func() {
			base := stream.Request{
				Model: "six-chat",
				Messages: []stream.Message{
					{Role: "system", Content: "You are helpful."},
					{Role: "user", Content: "What moved the market today?"},
				},
			}

			var gotReq stream.Request
			llm.streamFn = func(_ context.Context, req stream.Request, sink stream.Sink) (string, error) {
				gotReq = req
				sink("The market", "The market")
				sink("The market moved on earnings.", " moved on earnings.")
				return "The market moved on earnings.", nil
			}

			var lastFull string
			final, err := runner.Continue(ctx, base, "##STOCKS: SPY", "Latest quotes:\n| SPY | ...",
				func(full, _ string) { lastFull = full })

			Expect(err).NotTo(HaveOccurred())
			Expect(final).To(Equal("The market moved on earnings."))
			Expect(lastFull).To(Equal("The market moved on earnings."))

			Expect(gotReq.Stream).To(BeTrue())
			Expect(gotReq.AllowControlTags).To(BeFalse())
			Expect(gotReq.Messages).To(HaveLen(4))
			Expect(gotReq.Messages[2].Role).To(Equal("assistant"))
			Expect(gotReq.Messages[2].Content).To(Equal("##STOCKS: SPY"))
			Expect(gotReq.Messages[3].Role).To(Equal("system"))
			Expect(gotReq.Messages[3].Content).To(ContainSubstring("Sources"))
			Expect(gotReq.Messages[3].Content).To(HaveSuffix("Latest quotes:\n| SPY | ..."))
		})

		It("does not mutate the caller's request", func() {
			base := stream.Request{
				Messages: make([]stream.Message, 1, 4),
			}
			base.Messages[0] = stream.Message{Role: "user", Content: "hi"}

			llm.streamFn = func(_ context.Context, req stream.Request, _ stream.Sink) (string, error) {
				Expect(req.Messages).To(HaveLen(3))
				return "", nil
			}

			_, err := runner.Continue(ctx, base, "first pass", "tool block", func(string, string) {})
			Expect(err).NotTo(HaveOccurred())
			Expect(base.Messages).To(HaveLen(1))
		})

		It("returns the stream error unchanged", func() {
			streamErr := errors.New("connection reset")
			llm.streamFn = func(context.Context, stream.Request, stream.Sink) (string, error) {
				return "", streamErr
			}

			_, err := runner.Continue(ctx, stream.Request{}, "", "", func(string, string) {})
			Expect(errors.Is(err, streamErr)).To(BeTrue())
		})

		It("never re-enables control tags on the continuation pass", func() {
			base := stream.Request{AllowControlTags: true}
			llm.streamFn = func(_ context.Context, req stream.Request, _ stream.Sink) (string, error) {
				Expect(req.AllowControlTags).To(BeFalse())
				return "done", nil
			}

			final, err := runner.Continue(ctx, base, "", "", func(string, string) {})
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.TrimSpace(final)).To(Equal("done"))
		})
	})
})
