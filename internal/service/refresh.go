package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/6ixplatform/6ix-sub001/common/logger"
	"github.com/6ixplatform/6ix-sub001/internal/store"
	"github.com/6ixplatform/6ix-sub001/internal/turn"
)

// Refresher keeps live sessions in sync with externally written
// conversation state: a periodic sweep over every live session plus a
// Redis channel other replicas publish session ids to after saving.
// Both paths are advisory readers; a busy session is skipped entirely
// so an in-progress placeholder is never clobbered.
type Refresher struct {
	rdb      *redis.Client
	channel  string
	interval time.Duration
	convs    store.ConversationStore
	manager  *turn.Manager
}

func NewRefresher(rdb *redis.Client, channel string, interval time.Duration, convs store.ConversationStore, manager *turn.Manager) *Refresher {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Refresher{rdb: rdb, channel: channel, interval: interval, convs: convs, manager: manager}
}

// Run blocks until the context is canceled.
func (r *Refresher) Run(ctx context.Context) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "six.service.refresher"})

	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()
	updates := sub.Channel()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "refresher started", "channel", r.channel, "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-updates:
			if !ok {
				return nil
			}
			r.hydrate(ctx, msg.Payload)
		case <-ticker.C:
			for _, sessionID := range r.manager.Sessions() {
				r.hydrate(ctx, sessionID)
			}
		}
	}
}

// Publish notifies other replicas that a session's conversation was
// saved.
func (r *Refresher) Publish(ctx context.Context, sessionID string) {
	if err := r.rdb.Publish(ctx, r.channel, sessionID).Err(); err != nil {
		slog.WarnContext(ctx, "publishing hydration notice", "session_id", sessionID, "error", err)
	}
}

func (r *Refresher) hydrate(ctx context.Context, sessionID string) {
	orch, ok := r.manager.Lookup(sessionID)
	if !ok || orch.Busy() {
		return
	}

	conv, err := r.convs.Load(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.WarnContext(ctx, "loading conversation for hydration",
				"session_id", sessionID, "error", err)
		}
		return
	}

	if !r.manager.Offer(sessionID, conv) {
		slog.DebugContext(ctx, "hydration skipped, session busy", "session_id", sessionID)
	}
}
