package attach_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/6ixplatform/6ix-sub001/internal/attach"
	"github.com/6ixplatform/6ix-sub001/internal/model"
)

var _ = Describe("Pipeline", func() {
	var (
		store    *mockBlobStore
		analyzer *mockAnalyzer
		pipeline *attach.Pipeline
		ctx      context.Context
	)

	newPipeline := func(plan model.Plan) *attach.Pipeline {
		return attach.NewPipeline(store, analyzer, attach.Config{
			Plan:     plan,
			Model:    "six-vision",
			Debounce: 10 * time.Millisecond,
		})
	}

	BeforeEach(func() {
		store = &mockBlobStore{}
		analyzer = &mockAnalyzer{}
		pipeline = newPipeline(model.PlanPro)
		ctx = context.Background()
	})

	Describe("Upload", func() {
		It("moves a pending attachment to ready and revokes its preview", func() {
			ref := pipeline.Add(1, "notes.pdf", "application/pdf", 2048, "blob:local-preview")
			Expect(ref.Status).To(Equal(model.AttachmentPending))
			Expect(ref.PreviewURL).NotTo(BeNil())

			err := pipeline.Upload(ctx, 1, strings.NewReader("pdf bytes"))
			Expect(err).NotTo(HaveOccurred())

			Expect(ref.Status).To(Equal(model.AttachmentReady))
			Expect(ref.RemoteURL).NotTo(BeNil())
			Expect(*ref.RemoteURL).To(ContainSubstring("notes.pdf"))
			Expect(ref.PreviewURL).To(BeNil())
		})

		It("marks the attachment error on upload failure and leaves no remote url", func() {
			store.putFn = func(context.Context, string, string, int64, io.Reader) (string, error) {
				return "", errors.New("bucket unavailable")
			}
			ref := pipeline.Add(2, "photo.png", "image/png", 512, "")

			err := pipeline.Upload(ctx, 2, strings.NewReader("png bytes"))
			Expect(err).To(MatchError(ContainSubstring("bucket unavailable")))
			Expect(ref.Status).To(Equal(model.AttachmentError))
			Expect(ref.RemoteURL).To(BeNil())
		})

		It("rejects uploading an unknown attachment", func() {
			err := pipeline.Upload(ctx, 99, strings.NewReader(""))
			Expect(err).To(MatchError(ContainSubstring("not found")))
		})

		It("does not block other attachments when one errors", func() {
			store.putFn = func(_ context.Context, key, _ string, _ int64, _ io.Reader) (string, error) {
				if strings.Contains(key, "bad") {
					return "", errors.New("corrupt")
				}
				return "https://blob.example.com/" + key, nil
			}
			bad := pipeline.Add(3, "bad.bin", "application/octet-stream", 1, "")
			good := pipeline.Add(4, "good.txt", "text/plain", 1, "")

			Expect(pipeline.Upload(ctx, 3, strings.NewReader("x"))).NotTo(Succeed())
			Expect(pipeline.Upload(ctx, 4, strings.NewReader("y"))).To(Succeed())

			Expect(bad.Status).To(Equal(model.AttachmentError))
			Expect(good.Status).To(Equal(model.AttachmentReady))
		})
	})

	Describe("analysis", func() {
		It("analyzes the ready batch and merges follow-ups into hints", func() {
			analyzer.analyzeFn = func(_ context.Context, files []attach.AnalysisRequestFile, plan, _, _ string) (*attach.AnalysisResponse, error) {
				Expect(plan).To(Equal("pro"))
				Expect(files).To(HaveLen(1))
				return &attach.AnalysisResponse{
					Summary:   "quarterly report",
					FollowUps: []string{"Chart the revenue", "chart the revenue", "List the risks"},
				}, nil
			}

			ref := pipeline.Add(5, "q3.xlsx", "application/vnd.spreadsheet", 900, "")
			Expect(pipeline.Upload(ctx, 5, strings.NewReader("cells"))).To(Succeed())

			Eventually(func() model.AnalysisStatus { return ref.AnalysisStatus }).
				Should(Equal(model.AnalysisDone))
			Expect(ref.Analysis.Summary).To(Equal("quarterly report"))
			Expect(pipeline.Hints()).To(Equal([]string{"Chart the revenue", "List the risks"}))
		})

		It("falls back to generic hints when analysis suggests nothing", func() {
			analyzer.analyzeFn = func(context.Context, []attach.AnalysisRequestFile, string, string, string) (*attach.AnalysisResponse, error) {
				return &attach.AnalysisResponse{Summary: "blank page", Blank: true}, nil
			}

			pipeline.Add(6, "empty.txt", "text/plain", 0, "")
			Expect(pipeline.Upload(ctx, 6, strings.NewReader(""))).To(Succeed())

			Eventually(pipeline.Hints).Should(HaveLen(3))
			Expect(pipeline.Hints()).To(ContainElement("Summarize these files"))
		})

		It("caps the hint list at eight", func() {
			analyzer.analyzeFn = func(context.Context, []attach.AnalysisRequestFile, string, string, string) (*attach.AnalysisResponse, error) {
				return &attach.AnalysisResponse{
					Summary: "dense",
					FollowUps: []string{
						"h1", "h2", "h3", "h4", "h5", "h6", "h7", "h8", "h9", "h10",
					},
				}, nil
			}

			pipeline.Add(7, "dense.md", "text/markdown", 10, "")
			Expect(pipeline.Upload(ctx, 7, strings.NewReader("#"))).To(Succeed())

			Eventually(pipeline.Hints).Should(HaveLen(8))
		})

		It("marks the batch error when the analysis call fails", func() {
			analyzer.analyzeFn = func(context.Context, []attach.AnalysisRequestFile, string, string, string) (*attach.AnalysisResponse, error) {
				return nil, errors.New("analysis backend down")
			}

			ref := pipeline.Add(8, "doc.pdf", "application/pdf", 50, "")
			Expect(pipeline.Upload(ctx, 8, strings.NewReader("pdf"))).To(Succeed())

			Eventually(func() model.AnalysisStatus { return ref.AnalysisStatus }).
				Should(Equal(model.AnalysisError))
			Expect(pipeline.Hints()).To(BeEmpty())
		})
	})

	Describe("pre-analysis", func() {
		readyOne := func() {
			pipeline.Add(9, "brief.txt", "text/plain", 10, "")
			Expect(pipeline.Upload(ctx, 9, strings.NewReader("brief"))).To(Succeed())
			// Wait out the batch analysis kicked off by the upload so the
			// call counts below only see pre-analysis traffic.
			Eventually(analyzer.callCount).Should(BeNumerically(">=", 1))
		}

		It("caches a debounced result and consumes it once", func() {
			analyzer.analyzeFn = func(_ context.Context, _ []attach.AnalysisRequestFile, _, _, prompt string) (*attach.AnalysisResponse, error) {
				return &attach.AnalysisResponse{Summary: "brief", Reply: "draft for: " + prompt}, nil
			}
			readyOne()

			pipeline.OfferContext(ctx, "please compare with last year")

			Eventually(func() *attach.AnalysisResponse {
				if r := pipeline.ConsumePreAnalysis(); r != nil {
					return r
				}
				return nil
			}).ShouldNot(BeNil())
			Expect(pipeline.ConsumePreAnalysis()).To(BeNil())
		})

		It("collapses rapid typing into one analysis call", func() {
			readyOne()
			before := analyzer.callCount()

			for range 5 {
				pipeline.OfferContext(ctx, "typing...")
			}

			Eventually(analyzer.callCount).Should(Equal(before + 1))
			Consistently(analyzer.callCount, 50*time.Millisecond).Should(Equal(before + 1))
		})

		It("never pre-analyzes on the free plan", func() {
			pipeline = newPipeline(model.PlanFree)
			readyOne()
			before := analyzer.callCount()

			pipeline.OfferContext(ctx, "free tier typing")

			Consistently(analyzer.callCount, 50*time.Millisecond).Should(Equal(before))
			Expect(pipeline.ConsumePreAnalysis()).To(BeNil())
		})
	})

	Describe("Manifest", func() {
		It("lists ready files with their summaries", func() {
			analyzer.analyzeFn = func(context.Context, []attach.AnalysisRequestFile, string, string, string) (*attach.AnalysisResponse, error) {
				return &attach.AnalysisResponse{Summary: "travel itinerary"}, nil
			}

			ref := pipeline.Add(10, "trip.pdf", "application/pdf", 300, "")
			Expect(pipeline.Upload(ctx, 10, strings.NewReader("pdf"))).To(Succeed())
			Eventually(func() model.AnalysisStatus { return ref.AnalysisStatus }).
				Should(Equal(model.AnalysisDone))

			manifest := pipeline.Manifest()
			Expect(manifest).To(ContainSubstring("trip.pdf"))
			Expect(manifest).To(ContainSubstring("travel itinerary"))
		})

		It("is empty with nothing ready", func() {
			pipeline.Add(11, "pending.txt", "text/plain", 1, "")
			Expect(pipeline.Manifest()).To(BeEmpty())
		})
	})

	It("reports uploading while any attachment is pending or in flight", func() {
		Expect(pipeline.Uploading()).To(BeFalse())
		pipeline.Add(12, "slow.bin", "application/octet-stream", 1, "")
		Expect(pipeline.Uploading()).To(BeTrue())
	})

	It("drains the set for the outgoing turn", func() {
		pipeline.Add(13, "send.txt", "text/plain", 1, "blob:preview")
		refs := pipeline.Drain()

		Expect(refs).To(HaveLen(1))
		Expect(refs[0].PreviewURL).To(BeNil())
		Expect(pipeline.Uploading()).To(BeFalse())
		Expect(pipeline.Hints()).To(BeEmpty())
	})
})
