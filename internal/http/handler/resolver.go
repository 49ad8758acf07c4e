// Package handler implements the HTTP endpoints.
package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/6ixplatform/6ix-sub001/internal/model"
	"github.com/6ixplatform/6ix-sub001/internal/store"
	"github.com/6ixplatform/6ix-sub001/internal/turn"
)

// sessionResolver maps a session id onto its live orchestrator,
// loading the conversation from the store on first touch.
type sessionResolver struct {
	manager *turn.Manager
	convs   store.ConversationStore
}

func (r *sessionResolver) orchestrator(ctx context.Context, user *model.User, sessionID string) (*turn.Orchestrator, error) {
	if orch, ok := r.manager.Lookup(sessionID); ok {
		return orch, nil
	}

	conv, err := r.convs.Load(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		conv = &model.Conversation{SessionID: sessionID, UserID: user.ID}
	} else if err != nil {
		return nil, fmt.Errorf("loading conversation: %w", err)
	}

	return r.manager.GetOrCreate(sessionID, user, conv), nil
}
