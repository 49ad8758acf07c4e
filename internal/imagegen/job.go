package imagegen

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/6ixplatform/6ix-sub001/common/logger"
	"github.com/6ixplatform/6ix-sub001/internal/model"
)

const defaultHUDInterval = 3 * time.Second

// ProgressFunc publishes the current readout onto the owning message.
type ProgressFunc func(p model.Progress)

// Job is one image generation. Each job owns its readout ticker;
// stopping is idempotent, so Stop racing normal completion is safe.
type Job struct {
	ID     int64
	Prompt string

	steps    []string
	interval time.Duration
	publish  ProgressFunc

	mu       sync.Mutex
	cancel   context.CancelFunc
	stopOnce sync.Once
	done     chan struct{}
}

func NewJob(id int64, prompt string, interval time.Duration, publish ProgressFunc) *Job {
	if interval <= 0 {
		interval = defaultHUDInterval
	}
	return &Job{
		ID:       id,
		Prompt:   prompt,
		steps:    DeriveSteps(prompt),
		interval: interval,
		publish:  publish,
		done:     make(chan struct{}),
	}
}

// Steps returns the derived readout labels.
func (j *Job) Steps() []string { return j.steps }

// Run issues the request and blocks until it finishes or the job is
// stopped. The readout ticker is started here and is always stopped
// before Run returns. On cancellation the context error is returned;
// the caller rewrites the placeholder, no quota is committed here.
func (j *Job) Run(ctx context.Context, client Client, plan, modelName string) (string, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		MessageID: &j.ID,
		Component: "six.imagegen.job",
	})

	ctx, cancel := context.WithCancel(ctx)
	j.mu.Lock()
	j.cancel = cancel
	j.mu.Unlock()
	defer cancel()

	go j.tick(ctx)
	defer j.stopTicker()

	slog.InfoContext(ctx, "starting image generation",
		"steps", len(j.steps), "interval", j.interval)

	url, err := client.Generate(ctx, j.Prompt, plan, modelName)
	j.stopTicker()
	if err != nil {
		if ctx.Err() != nil {
			slog.InfoContext(ctx, "image generation canceled")
			return "", ctx.Err()
		}
		slog.ErrorContext(ctx, "image generation failed", "error", err)
		return "", err
	}
	return url, nil
}

// Stop cancels the outstanding request and silences the readout.
// Safe to call at any time, any number of times, including before Run.
func (j *Job) Stop() {
	j.stopTicker()
	j.mu.Lock()
	if j.cancel != nil {
		j.cancel()
	}
	j.mu.Unlock()
}

func (j *Job) stopTicker() {
	j.stopOnce.Do(func() { close(j.done) })
}

func (j *Job) tick(ctx context.Context) {
	select {
	case <-j.done:
		return
	default:
	}

	j.publish(model.Progress{Label: j.steps[0], Index: 0, Steps: j.steps})

	t := time.NewTicker(j.interval)
	defer t.Stop()

	idx := 0
	for {
		select {
		case <-j.done:
			return
		case <-ctx.Done():
			return
		case <-t.C:
			idx = (idx + 1) % len(j.steps)
			j.publish(model.Progress{Label: j.steps[idx], Index: idx, Steps: j.steps})
		}
	}
}
