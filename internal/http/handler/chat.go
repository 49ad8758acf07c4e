package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/6ixplatform/6ix-sub001/internal/guard"
	"github.com/6ixplatform/6ix-sub001/internal/http/dto"
	"github.com/6ixplatform/6ix-sub001/internal/http/middleware"
	"github.com/6ixplatform/6ix-sub001/internal/model"
	"github.com/6ixplatform/6ix-sub001/internal/store"
	"github.com/6ixplatform/6ix-sub001/internal/turn"
)

type ChatHandler struct {
	resolver sessionResolver
}

func NewChatHandler(manager *turn.Manager, convs store.ConversationStore) *ChatHandler {
	return &ChatHandler{resolver: sessionResolver{manager: manager, convs: convs}}
}

// Turn runs one user turn and streams its events to the client as
// server-sent events.
func (h *ChatHandler) Turn(c *gin.Context) {
	var req dto.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user := middleware.CurrentUser(c)
	orch, err := h.resolver.orchestrator(c.Request.Context(), user, req.SessionID)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "resolving session", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversation"})
		return
	}
	if orch.Busy() {
		c.JSON(http.StatusConflict, gin.H{"error": "a turn is already in progress"})
		return
	}

	events := make(chan turn.Event, 32)
	turnErr := make(chan error, 1)
	go func() {
		defer close(events)
		turnErr <- orch.Turn(c.Request.Context(), req.Text, func(ev turn.Event) {
			events <- ev
		})
	}()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		ev, ok := <-events
		if !ok {
			if err := <-turnErr; err != nil {
				if errors.Is(err, guard.ErrBusy) {
					c.SSEvent(string(turn.EventError), gin.H{"error": "a turn is already in progress"})
				} else {
					slog.ErrorContext(c.Request.Context(), "turn failed", "error", err)
					c.SSEvent(string(turn.EventError), gin.H{"error": "turn failed"})
				}
			}
			return false
		}
		c.SSEvent(string(ev.Type), ev)
		return true
	})
}

// Stop cancels whatever the session has outstanding. Safe to call when
// nothing is active.
func (h *ChatHandler) Stop(c *gin.Context) {
	var req dto.StopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if orch, ok := h.resolver.manager.Lookup(req.SessionID); ok {
		orch.Stop()
	}
	c.Status(http.StatusNoContent)
}

// Conversation returns the session's full message list.
func (h *ChatHandler) Conversation(c *gin.Context) {
	sessionID := c.Param("session_id")
	user := middleware.CurrentUser(c)

	orch, err := h.resolver.orchestrator(c.Request.Context(), user, sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversation"})
		return
	}

	conv := orch.Conversation()
	c.JSON(http.StatusOK, dto.ConversationResponse{
		SessionID: conv.SessionID,
		Messages:  conv.Messages,
	})
}

// Reset wipes the session's conversation.
func (h *ChatHandler) Reset(c *gin.Context) {
	sessionID := c.Param("session_id")
	user := middleware.CurrentUser(c)

	if err := h.resolver.convs.Reset(c.Request.Context(), sessionID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reset conversation"})
		return
	}
	h.resolver.manager.Offer(sessionID, &model.Conversation{SessionID: sessionID, UserID: user.ID})
	c.Status(http.StatusNoContent)
}

// Feedback records a like or dislike on a finished message.
func (h *ChatHandler) Feedback(c *gin.Context) {
	var req dto.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.Feedback != model.FeedbackLike && req.Feedback != model.FeedbackDislike && req.Feedback != model.FeedbackNone {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid feedback"})
		return
	}

	user := middleware.CurrentUser(c)
	orch, err := h.resolver.orchestrator(c.Request.Context(), user, req.SessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversation"})
		return
	}

	conv := orch.Conversation()
	msg := conv.Find(req.MessageID)
	if msg == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}

	msg.Feedback = req.Feedback
	if err := h.resolver.convs.Save(c.Request.Context(), conv); err != nil {
		slog.ErrorContext(c.Request.Context(), "saving feedback", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save feedback"})
		return
	}
	c.Status(http.StatusNoContent)
}
