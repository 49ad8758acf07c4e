package turn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/6ixplatform/6ix-sub001/common/id"
	"github.com/6ixplatform/6ix-sub001/common/logger"
	"github.com/6ixplatform/6ix-sub001/internal/attach"
	"github.com/6ixplatform/6ix-sub001/internal/guard"
	"github.com/6ixplatform/6ix-sub001/internal/imagegen"
	"github.com/6ixplatform/6ix-sub001/internal/model"
	"github.com/6ixplatform/6ix-sub001/internal/store"
	"github.com/6ixplatform/6ix-sub001/internal/stream"
	"github.com/6ixplatform/6ix-sub001/internal/toolcall"
)

// EventType discriminates the events a turn emits to its caller.
type EventType string

const (
	EventMessage  EventType = "message"  // a message was created or rewritten
	EventDelta    EventType = "delta"    // incremental text for the active slot
	EventProgress EventType = "progress" // image job readout update
	EventNotice   EventType = "notice"   // transient, e.g. files still uploading
	EventUpsell   EventType = "upsell"   // quota or capability gate hit
	EventError    EventType = "error"    // turn-level failure, already resolved into a message
	EventDone     EventType = "done"
)

// Event is one item on a turn's outbound event stream.
type Event struct {
	Type      EventType       `json:"type"`
	MessageID int64           `json:"message_id,omitempty"`
	Delta     string          `json:"delta,omitempty"`
	Content   string          `json:"content,omitempty"`
	Message   *model.Message  `json:"message,omitempty"`
	Progress  *model.Progress `json:"progress,omitempty"`
}

// Emitter receives turn events in order.
type Emitter func(Event)

// Config carries the orchestrator's tunables.
type Config struct {
	Model         string
	ResolvedModel string
	ImageModel    string
	HistoryWindow int
	HUDInterval   time.Duration
}

// Deps are the collaborators one orchestrator drives.
type Deps struct {
	LLM           stream.Client
	Tools         *toolcall.Runner
	Image         imagegen.Client
	Analyzer      attach.Analyzer
	Pipeline      *attach.Pipeline
	Quota         *guard.Quota
	Conversations store.ConversationStore
	Preferences   store.PreferenceStore
}

// Orchestrator runs one conversation's turns. A turn is classified,
// dispatched to the image job, the file pipeline, or the text stream,
// and finalized back into the shared message list. One orchestrator is
// single-writer for its conversation: the slot locks reject a new turn
// while a stream or image job is outstanding.
type Orchestrator struct {
	cfg  Config
	deps Deps
	user *model.User

	streamSlot guard.SlotLock
	imageSlot  guard.SlotLock

	mu            sync.Mutex
	conv          *model.Conversation
	stopRequested bool
	cancelStream  context.CancelFunc
	activeJob     *imagegen.Job
	lang          string
}

func New(user *model.User, conv *model.Conversation, deps Deps, cfg Config) *Orchestrator {
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 24
	}
	return &Orchestrator{cfg: cfg, deps: deps, user: user, conv: conv, lang: "en"}
}

// Conversation returns the live conversation. Callers must treat it as
// read-only while the orchestrator is busy.
func (o *Orchestrator) Conversation() *model.Conversation {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.conv
}

// Pipeline returns the session's attachment pipeline.
func (o *Orchestrator) Pipeline() *attach.Pipeline {
	return o.deps.Pipeline
}

// Busy reports whether any operation that writes message slots is
// outstanding. Advisory readers skip hydration while this holds.
func (o *Orchestrator) Busy() bool {
	return o.streamSlot.Held() || o.imageSlot.Held() || o.deps.Pipeline.Uploading()
}

// Offer proposes externally loaded conversation state (cross-tab or
// periodic refresh). It is applied synchronously only when no turn is
// busy, so an in-progress placeholder is never clobbered.
func (o *Orchestrator) Offer(conv *model.Conversation) bool {
	if o.Busy() {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.conv = conv
	return true
}

// Turn runs one user turn to completion. It returns guard.ErrBusy when
// a previous stream or image job still owns the message slot; every
// other failure is resolved into a deterministic message and emitted,
// not returned.
func (o *Orchestrator) Turn(ctx context.Context, text string, emit Emitter) error {
	if emit == nil {
		emit = func(Event) {}
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SessionID: &o.conv.SessionID,
		UserID:    &o.user.ID,
		Plan:      (*string)(&o.user.Plan),
		Component: "six.turn.orchestrator",
	})

	o.mu.Lock()
	o.stopRequested = false
	if lang := DetectLanguage(text); lang != "en" || o.lang == "" {
		o.lang = lang
	}
	lang := o.lang
	o.mu.Unlock()

	intent := Classify(text, len(o.deps.Pipeline.Ready()), o.Conversation().LastVisual() != nil)
	slog.InfoContext(ctx, "turn classified", "intent", intent, "lang", lang)

	switch intent {
	case IntentImage:
		return o.imageTurn(ctx, text, lang, emit)
	case IntentFileDescribe, IntentFileChat:
		return o.fileTurn(ctx, text, lang, intent, emit)
	case IntentDescribeFollowup:
		return o.describeFollowup(ctx, text, lang, emit)
	default:
		return o.textTurn(ctx, text, lang, "", nil, emit)
	}
}

// Stop cancels whatever is outstanding and synchronously rewrites the
// most recent incomplete placeholder into the localized stopped
// message. Safe to call when nothing is active.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	o.stopRequested = true
	cancel := o.cancelStream
	job := o.activeJob
	lang := o.lang

	if m := o.conv.LastIncomplete(); m != nil {
		m.Kind = model.MessageKindText
		m.Content = StoppedMessage(lang)
		m.Progress = nil
		m.URL = nil
	}
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if job != nil {
		job.Stop()
	}
}

// --- Image branch -----------------------------------------------------------

func (o *Orchestrator) imageTurn(ctx context.Context, prompt, lang string, emit Emitter) error {
	err := o.deps.Quota.CheckAvailable(ctx, o.user.ID, o.user.Plan, model.QuotaImage)
	if errors.Is(err, guard.ErrQuotaExceeded) {
		emit(Event{Type: EventUpsell, Content: UpsellMessage(lang)})
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking image quota: %w", err)
	}

	release, err := o.imageSlot.TryAcquire()
	if err != nil {
		return err
	}
	defer release()

	userMsg := model.NewUserMessage(id.New(), prompt, nil)
	placeholderID := id.New()

	job := imagegen.NewJob(placeholderID, prompt, o.cfg.HUDInterval, func(p model.Progress) {
		o.mu.Lock()
		placeholder := o.conv.Find(placeholderID)
		// A stop clears the placeholder's progress; a tick that lost
		// that race must not reach the client either.
		live := placeholder != nil && placeholder.Progress != nil
		if live {
			placeholder.Progress = &p
		}
		o.mu.Unlock()
		if live {
			emit(Event{Type: EventProgress, MessageID: placeholderID, Progress: &p})
		}
	})
	placeholder := model.NewImagePlaceholder(placeholderID, prompt, job.Steps())

	o.mu.Lock()
	o.conv.Messages = append(o.conv.Messages, userMsg, placeholder)
	o.activeJob = job
	o.mu.Unlock()
	emit(Event{Type: EventMessage, MessageID: userMsg.ID, Message: userMsg})
	emit(Event{Type: EventMessage, MessageID: placeholderID, Message: placeholder})

	url, runErr := job.Run(ctx, o.deps.Image, string(o.user.Plan), o.cfg.ImageModel)

	o.mu.Lock()
	o.activeJob = nil
	stopped := o.stopRequested
	switch {
	case runErr == nil:
		placeholder.URL = &url
		placeholder.Progress = nil
	case stopped || errors.Is(runErr, context.Canceled):
		if placeholder.Progress != nil {
			placeholder.Kind = model.MessageKindText
			placeholder.Content = StoppedMessage(lang)
			placeholder.Progress = nil
		}
	default:
		placeholder.Kind = model.MessageKindText
		placeholder.Content = ApologyMessage(lang, runErr.Error())
		placeholder.Progress = nil
	}
	o.mu.Unlock()

	if runErr == nil {
		if err := o.deps.Quota.Commit(ctx, o.user.ID, model.QuotaImage); err != nil {
			slog.ErrorContext(ctx, "committing image quota", "error", err)
		}
	} else if !stopped && !errors.Is(runErr, context.Canceled) {
		emit(Event{Type: EventError, MessageID: placeholderID, Content: runErr.Error()})
	}

	emit(Event{Type: EventMessage, MessageID: placeholderID, Message: placeholder})
	o.persist(ctx)
	emit(Event{Type: EventDone, MessageID: placeholderID})
	return nil
}

// --- File branch ------------------------------------------------------------

func (o *Orchestrator) fileTurn(ctx context.Context, text, lang string, intent Intent, emit Emitter) error {
	if o.deps.Pipeline.Uploading() {
		emit(Event{Type: EventNotice, Content: UploadingNotice(lang)})
		return nil
	}

	manifest := o.deps.Pipeline.Manifest()
	refs := o.deps.Pipeline.Drain()
	attachments := make([]model.AttachmentRef, 0, len(refs))
	var files []attach.AnalysisRequestFile
	for _, ref := range refs {
		attachments = append(attachments, *ref)
		if ref.Status == model.AttachmentReady && ref.RemoteURL != nil {
			files = append(files, attach.AnalysisRequestFile{Name: ref.Name, Mime: ref.Mime, URL: *ref.RemoteURL})
		}
	}

	if intent == IntentFileChat {
		return o.textTurn(ctx, text, lang, manifest, attachments, emit)
	}
	return o.describeFiles(ctx, text, lang, attachments, files, emit)
}

// describeFiles answers a descriptive file turn with a direct analysis
// call instead of a full model stream.
func (o *Orchestrator) describeFiles(ctx context.Context, text, lang string, attachments []model.AttachmentRef, files []attach.AnalysisRequestFile, emit Emitter) error {
	err := o.deps.Quota.CheckAvailable(ctx, o.user.ID, o.user.Plan, model.QuotaChat)
	if errors.Is(err, guard.ErrQuotaExceeded) {
		emit(Event{Type: EventUpsell, Content: UpsellMessage(lang)})
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking chat quota: %w", err)
	}

	release, err := o.streamSlot.TryAcquire()
	if err != nil {
		return err
	}
	defer release()

	userMsg := model.NewUserMessage(id.New(), text, attachments)
	ghost := model.NewGhostMessage(id.New())

	o.mu.Lock()
	o.conv.Messages = append(o.conv.Messages, userMsg, ghost)
	o.mu.Unlock()
	emit(Event{Type: EventMessage, MessageID: userMsg.ID, Message: userMsg})
	emit(Event{Type: EventMessage, MessageID: ghost.ID, Message: ghost})

	result, err := o.deps.Analyzer.Analyze(ctx, files, string(o.user.Plan), o.cfg.Model, text)

	o.mu.Lock()
	switch {
	case err != nil:
		ghost.Content = ApologyMessage(lang, err.Error())
	case result.Reply != "":
		ghost.Content = result.Reply
	default:
		ghost.Content = result.Summary
	}
	o.mu.Unlock()

	if err != nil {
		emit(Event{Type: EventError, MessageID: ghost.ID, Content: err.Error()})
	} else if err := o.deps.Quota.Commit(ctx, o.user.ID, model.QuotaChat); err != nil {
		slog.ErrorContext(ctx, "committing chat quota", "error", err)
	}

	emit(Event{Type: EventMessage, MessageID: ghost.ID, Message: ghost})
	o.persist(ctx)
	emit(Event{Type: EventDone, MessageID: ghost.ID})
	return nil
}

// describeFollowup resolves "describe it" against the most recent
// visual in the conversation.
func (o *Orchestrator) describeFollowup(ctx context.Context, text, lang string, emit Emitter) error {
	visual := o.Conversation().LastVisual()
	if visual == nil {
		return o.textTurn(ctx, text, lang, "", nil, emit)
	}

	var files []attach.AnalysisRequestFile
	if visual.Kind == model.MessageKindImage && visual.URL != nil {
		name := "generated image"
		if visual.Prompt != nil {
			name = *visual.Prompt
		}
		files = append(files, attach.AnalysisRequestFile{Name: name, Mime: "image/png", URL: *visual.URL})
	} else {
		for _, a := range visual.Attachments {
			if a.Kind == model.AttachmentKindImage && a.Status == model.AttachmentReady && a.RemoteURL != nil {
				files = append(files, attach.AnalysisRequestFile{Name: a.Name, Mime: a.Mime, URL: *a.RemoteURL})
			}
		}
	}
	if len(files) == 0 {
		return o.textTurn(ctx, text, lang, "", nil, emit)
	}
	return o.describeFiles(ctx, text, lang, nil, files, emit)
}

// --- Text branch ------------------------------------------------------------

func (o *Orchestrator) textTurn(ctx context.Context, text, lang, manifest string, attachments []model.AttachmentRef, emit Emitter) error {
	err := o.deps.Quota.CheckAvailable(ctx, o.user.ID, o.user.Plan, model.QuotaChat)
	if errors.Is(err, guard.ErrQuotaExceeded) {
		emit(Event{Type: EventUpsell, Content: UpsellMessage(lang)})
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking chat quota: %w", err)
	}

	release, err := o.streamSlot.TryAcquire()
	if err != nil {
		return err
	}
	defer release()

	prefs := o.loadPreferences(ctx, text, lang)

	// Context is built before this turn's messages join the
	// conversation; BuildContext appends the user turn itself.
	req := stream.Request{
		Plan:             string(o.user.Plan),
		Model:            o.cfg.Model,
		ResolvedModel:    o.cfg.ResolvedModel,
		Capabilities:     capabilityStrings(o.user.Plan),
		Mode:             "chat",
		Stream:           true,
		AllowControlTags: true,
		Messages:         BuildContext(o.Conversation(), prefs, o.user.Plan, lang, manifest, text, o.cfg.HistoryWindow),
	}

	userMsg := model.NewUserMessage(id.New(), text, attachments)
	ghost := model.NewGhostMessage(id.New())

	// A cached pre-analysis pre-fills the ghost so the user sees a
	// draft before the model call lands.
	if pre := o.deps.Pipeline.ConsumePreAnalysis(); pre != nil && pre.Reply != "" {
		ghost.Content = pre.Reply
	}

	o.mu.Lock()
	o.conv.Messages = append(o.conv.Messages, userMsg, ghost)
	o.mu.Unlock()
	emit(Event{Type: EventMessage, MessageID: userMsg.ID, Message: userMsg})
	emit(Event{Type: EventMessage, MessageID: ghost.ID, Message: ghost})

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	o.mu.Lock()
	o.cancelStream = cancel
	o.mu.Unlock()

	final, streamErr := o.deps.LLM.Stream(streamCtx, req, func(full, delta string) {
		o.mu.Lock()
		ghost.Content = toolcall.StripDirectives(full)
		o.mu.Unlock()
		emit(Event{Type: EventDelta, MessageID: ghost.ID, Delta: delta, Content: ghost.Content})
	})

	o.mu.Lock()
	stopped := o.stopRequested
	o.mu.Unlock()

	if streamErr != nil {
		o.mu.Lock()
		o.cancelStream = nil
		o.mu.Unlock()
		o.finishErroredStream(ctx, streamErr, stopped, lang, ghost, emit)
		return nil
	}

	// The cancel func stays armed through the continuation rounds; a
	// stop must abort a second-pass stream too.
	final = o.runContinuations(streamCtx, req, final, lang, ghost, emit)

	o.mu.Lock()
	o.cancelStream = nil
	stopped = o.stopRequested
	if stopped {
		ghost.Content = StoppedMessage(lang)
	} else {
		ghost.Content = toolcall.StripDirectives(final)
	}
	o.mu.Unlock()

	if !stopped {
		if err := o.deps.Quota.Commit(ctx, o.user.ID, model.QuotaChat); err != nil {
			slog.ErrorContext(ctx, "committing chat quota", "error", err)
		}
	}

	emit(Event{Type: EventMessage, MessageID: ghost.ID, Message: ghost})
	o.persist(ctx)
	emit(Event{Type: EventDone, MessageID: ghost.ID})
	return nil
}

// finishErroredStream resolves a failed or canceled stream into its
// deterministic message. Partial text survives a transport error; a
// stop always lands on the stopped template.
func (o *Orchestrator) finishErroredStream(ctx context.Context, streamErr error, stopped bool, lang string, ghost *model.Message, emit Emitter) {
	canceled := errors.Is(streamErr, context.Canceled)

	o.mu.Lock()
	switch {
	case stopped || canceled:
		ghost.Content = StoppedMessage(lang)
	case ghost.Content == "":
		ghost.Content = ApologyMessage(lang, streamErr.Error())
	}
	o.mu.Unlock()

	if !stopped && !canceled {
		if terr, ok := stream.AsTransportError(streamErr); ok {
			slog.ErrorContext(ctx, "stream transport failed", "status", terr.Status)
		} else {
			slog.ErrorContext(ctx, "stream failed", "error", streamErr)
		}
		emit(Event{Type: EventError, MessageID: ghost.ID, Content: streamErr.Error()})
	}

	emit(Event{Type: EventMessage, MessageID: ghost.ID, Message: ghost})
	o.persist(ctx)
	emit(Event{Type: EventDone, MessageID: ghost.ID})
}

// runContinuations executes each detected directive in fixed order,
// one continuation round per directive. A failed fetch or continuation
// skips silently and the latest good text stands.
func (o *Orchestrator) runContinuations(ctx context.Context, base stream.Request, final, lang string, ghost *model.Message, emit Emitter) string {
	current := final
	for _, d := range toolcall.ParseDirectives(final) {
		if o.stopFlag() {
			break
		}
		if !model.HasCapability(o.user.Plan, capabilityForKind(d.Kind)) {
			emit(Event{Type: EventUpsell, Content: UpsellMessage(lang)})
			continue
		}

		block, err := o.deps.Tools.Execute(ctx, d)
		if err != nil {
			slog.WarnContext(ctx, "tool fetch failed, keeping first-pass answer",
				"kind", d.Kind, "error", err)
			continue
		}

		next, err := o.deps.Tools.Continue(ctx, base, current, block, func(full, delta string) {
			o.mu.Lock()
			ghost.Content = toolcall.StripDirectives(full)
			o.mu.Unlock()
			emit(Event{Type: EventDelta, MessageID: ghost.ID, Delta: delta, Content: ghost.Content})
		})
		if err != nil {
			slog.WarnContext(ctx, "tool continuation failed, keeping previous answer",
				"kind", d.Kind, "error", err)
			o.mu.Lock()
			ghost.Content = toolcall.StripDirectives(current)
			o.mu.Unlock()
			continue
		}
		current = next
	}
	return current
}

// loadPreferences merges any standing directives from this turn into
// the persistent record and returns it.
func (o *Orchestrator) loadPreferences(ctx context.Context, text, lang string) *model.Preferences {
	prefs, err := o.deps.Preferences.Get(ctx, o.user.ID)
	if errors.Is(err, store.ErrNotFound) {
		prefs = &model.Preferences{UserID: o.user.ID}
	} else if err != nil {
		slog.WarnContext(ctx, "loading preferences", "error", err)
		return nil
	}

	changed := prefs.Merge(ExtractDirectives(text))
	if prefs.Language != lang {
		prefs.Language = lang
		changed = true
	}
	if changed {
		if err := o.deps.Preferences.Upsert(ctx, prefs); err != nil {
			slog.WarnContext(ctx, "saving preferences", "error", err)
		}
	}
	return prefs
}

func (o *Orchestrator) persist(ctx context.Context) {
	o.mu.Lock()
	conv := o.conv
	o.mu.Unlock()
	if err := o.deps.Conversations.Save(ctx, conv); err != nil {
		slog.ErrorContext(ctx, "saving conversation", "error", err)
	}
}

func (o *Orchestrator) stopFlag() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stopRequested
}

func capabilityForKind(k toolcall.Kind) model.Capability {
	switch k {
	case toolcall.KindWebSearch:
		return model.CapabilityWebSearch
	case toolcall.KindStocks:
		return model.CapabilityStocks
	default:
		return model.CapabilityWeather
	}
}

func capabilityStrings(plan model.Plan) []string {
	caps := model.Capabilities(plan)
	out := make([]string, len(caps))
	for i, c := range caps {
		out[i] = string(c)
	}
	return out
}
