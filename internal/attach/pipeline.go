// Package attach moves a turn's files through upload and background
// content analysis, and surfaces suggested follow-up hints to the
// composer.
package attach

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/6ixplatform/6ix-sub001/common/logger"
	"github.com/6ixplatform/6ix-sub001/internal/model"
)

const maxHints = 8

// Shown when analysis yields no follow-ups of its own.
var genericHints = []string{
	"Summarize these files",
	"What are the key points?",
	"What should I do with this?",
}

// BlobStore persists uploaded bytes and returns a read URL.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, size int64, r io.Reader) (string, error)
}

// Config holds the per-session pipeline settings.
type Config struct {
	Plan     model.Plan
	Model    string
	Debounce time.Duration // pre-analysis delay; zero picks the plan default
}

// Pipeline owns one conversation's attachment set. Uploads and
// analyses run concurrently; each updates only its own record, so a
// single mutex over the set is enough.
type Pipeline struct {
	store    BlobStore
	analyzer Analyzer
	cfg      Config

	mu          sync.Mutex
	attachments []*model.AttachmentRef
	hints       []string
	preResult   *AnalysisResponse
	preTimer    *time.Timer
}

func NewPipeline(store BlobStore, analyzer Analyzer, cfg Config) *Pipeline {
	if cfg.Debounce <= 0 {
		cfg.Debounce = debounceFor(cfg.Plan)
	}
	return &Pipeline{store: store, analyzer: analyzer, cfg: cfg}
}

// Pre-analysis re-runs as the user types; higher tiers get a snappier
// debounce.
func debounceFor(plan model.Plan) time.Duration {
	switch plan {
	case model.PlanMax:
		return 350 * time.Millisecond
	case model.PlanPro:
		return 600 * time.Millisecond
	default:
		return 1200 * time.Millisecond
	}
}

// Add registers a selected file in the pending state.
func (p *Pipeline) Add(id int64, name, mime string, size int64, previewURL string) *model.AttachmentRef {
	ref := model.NewAttachment(id, name, mime, size)
	if previewURL != "" {
		ref.PreviewURL = &previewURL
	}

	p.mu.Lock()
	p.attachments = append(p.attachments, ref)
	p.mu.Unlock()
	return ref
}

// Remove drops an attachment before the turn is sent, revoking its
// preview.
func (p *Pipeline) Remove(id int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, ref := range p.attachments {
		if ref.ID == id {
			ref.PreviewURL = nil
			p.attachments = append(p.attachments[:i], p.attachments[i+1:]...)
			return
		}
	}
}

// Upload moves one pending attachment through uploading to ready, then
// kicks off analysis for the full ready batch in the background. On
// failure the attachment lands in error without blocking the others.
func (p *Pipeline) Upload(ctx context.Context, id int64, r io.Reader) error {
	ref := p.find(id)
	if ref == nil {
		return fmt.Errorf("attachment %d not found", id)
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "six.attach.pipeline"})

	p.mu.Lock()
	if ref.Status != model.AttachmentPending {
		p.mu.Unlock()
		return fmt.Errorf("attachment %d is %s, not pending", id, ref.Status)
	}
	ref.Status = model.AttachmentUploading
	p.mu.Unlock()

	key := fmt.Sprintf("attachments/%d/%s", ref.ID, ref.Name)
	url, err := p.store.Put(ctx, key, ref.Mime, ref.Size, r)

	p.mu.Lock()
	if err != nil {
		ref.Status = model.AttachmentError
		p.mu.Unlock()
		slog.ErrorContext(ctx, "attachment upload failed", "attachment_id", ref.ID, "error", err)
		return fmt.Errorf("uploading %s: %w", ref.Name, err)
	}
	ref.Status = model.AttachmentReady
	ref.RemoteURL = &url
	ref.PreviewURL = nil
	p.mu.Unlock()

	go p.analyzeReady(context.WithoutCancel(ctx), "")
	return nil
}

// analyzeReady runs content analysis over every ready attachment and
// folds suggested follow-ups into the shared hint list.
func (p *Pipeline) analyzeReady(ctx context.Context, prompt string) {
	batch, files := p.markAnalysisPending()
	if len(files) == 0 {
		return
	}

	result, err := p.analyzer.Analyze(ctx, files, string(p.cfg.Plan), p.cfg.Model, prompt)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		for _, ref := range batch {
			ref.AnalysisStatus = model.AnalysisError
		}
		slog.ErrorContext(ctx, "attachment analysis failed", "files", len(files), "error", err)
		return
	}

	for _, ref := range batch {
		ref.AnalysisStatus = model.AnalysisDone
		ref.Analysis = &model.AnalysisResult{Summary: result.Summary, FollowUps: result.FollowUps}
	}

	if len(result.FollowUps) > 0 {
		p.mergeHints(result.FollowUps)
	} else {
		p.mergeHints(genericHints)
	}
}

// markAnalysisPending snapshots the ready batch under the lock.
func (p *Pipeline) markAnalysisPending() ([]*model.AttachmentRef, []AnalysisRequestFile) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var batch []*model.AttachmentRef
	var files []AnalysisRequestFile
	for _, ref := range p.attachments {
		if ref.Status != model.AttachmentReady || ref.RemoteURL == nil {
			continue
		}
		if ref.AnalysisStatus == model.AnalysisPending || ref.AnalysisStatus == model.AnalysisDone {
			continue
		}
		ref.AnalysisStatus = model.AnalysisPending
		batch = append(batch, ref)
		files = append(files, AnalysisRequestFile{Name: ref.Name, Mime: ref.Mime, URL: *ref.RemoteURL})
	}
	return batch, files
}

// mergeHints dedups case-insensitively and caps the list. Caller holds
// the lock.
func (p *Pipeline) mergeHints(extra []string) {
	for _, hint := range extra {
		hint = strings.TrimSpace(hint)
		if hint == "" || len(p.hints) >= maxHints {
			continue
		}
		duplicate := false
		for _, have := range p.hints {
			if strings.EqualFold(have, hint) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			p.hints = append(p.hints, hint)
		}
	}
}

// Hints returns the composer suggestions collected so far.
func (p *Pipeline) Hints() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.hints...)
}

// OfferContext schedules a debounced pre-analysis pass with the text
// the user has typed so far. Free plans never pre-analyze. The result
// lands in a cache the orchestrator consumes opportunistically.
func (p *Pipeline) OfferContext(ctx context.Context, text string) {
	if !model.HasCapability(p.cfg.Plan, model.CapabilityPreAnalysis) {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.preTimer != nil {
		p.preTimer.Stop()
	}
	ctx = context.WithoutCancel(ctx)
	p.preTimer = time.AfterFunc(p.cfg.Debounce, func() {
		p.preAnalyze(ctx, text)
	})
}

func (p *Pipeline) preAnalyze(ctx context.Context, prompt string) {
	p.mu.Lock()
	var files []AnalysisRequestFile
	for _, ref := range p.attachments {
		if ref.Status == model.AttachmentReady && ref.RemoteURL != nil {
			files = append(files, AnalysisRequestFile{Name: ref.Name, Mime: ref.Mime, URL: *ref.RemoteURL})
		}
	}
	p.mu.Unlock()

	if len(files) == 0 {
		return
	}

	result, err := p.analyzer.Analyze(ctx, files, string(p.cfg.Plan), p.cfg.Model, prompt)
	if err != nil {
		slog.DebugContext(ctx, "pre-analysis skipped", "error", err)
		return
	}

	p.mu.Lock()
	p.preResult = result
	p.mu.Unlock()
}

// ConsumePreAnalysis hands the cached pre-analysis to the caller, at
// most once per result.
func (p *Pipeline) ConsumePreAnalysis() *AnalysisResponse {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := p.preResult
	p.preResult = nil
	return result
}

// Ready returns the attachments that finished uploading.
func (p *Pipeline) Ready() []*model.AttachmentRef {
	p.mu.Lock()
	defer p.mu.Unlock()

	var ready []*model.AttachmentRef
	for _, ref := range p.attachments {
		if ref.Status == model.AttachmentReady {
			ready = append(ready, ref)
		}
	}
	return ready
}

// Uploading reports whether any attachment is still in flight. The
// orchestrator defers the turn while this holds.
func (p *Pipeline) Uploading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ref := range p.attachments {
		if ref.Status == model.AttachmentPending || ref.Status == model.AttachmentUploading {
			return true
		}
	}
	return false
}

// Manifest renders the compact file block injected as system context
// on file turns.
func (p *Pipeline) Manifest() string {
	ready := p.Ready()
	if len(ready) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Attached files:\n")
	for _, ref := range ready {
		fmt.Fprintf(&b, "- %s (%s, %d bytes): %s\n", ref.Name, ref.Kind, ref.Size, *ref.RemoteURL)
		if ref.Analysis != nil && ref.Analysis.Summary != "" {
			fmt.Fprintf(&b, "  Summary: %s\n", ref.Analysis.Summary)
		}
	}
	return b.String()
}

// Drain detaches and returns the current set for the outgoing turn,
// clearing previews and hints for the next compose cycle.
func (p *Pipeline) Drain() []*model.AttachmentRef {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := p.attachments
	for _, ref := range out {
		ref.PreviewURL = nil
	}
	p.attachments = nil
	p.hints = nil
	if p.preTimer != nil {
		p.preTimer.Stop()
		p.preTimer = nil
	}
	return out
}

func (p *Pipeline) find(id int64) *model.AttachmentRef {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ref := range p.attachments {
		if ref.ID == id {
			return ref
		}
	}
	return nil
}
