// Package dto defines the HTTP request and response shapes.
package dto

import "github.com/6ixplatform/6ix-sub001/internal/model"

// TurnRequest starts one conversational turn.
type TurnRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Text      string `json:"text"`
}

// StopRequest cancels whatever the session has outstanding.
type StopRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// FeedbackRequest records a like/dislike on a finished message.
type FeedbackRequest struct {
	SessionID string         `json:"session_id" binding:"required"`
	MessageID int64          `json:"message_id" binding:"required"`
	Feedback  model.Feedback `json:"feedback" binding:"required"`
}

// ConversationResponse returns the full message list for a session.
type ConversationResponse struct {
	SessionID string           `json:"session_id"`
	Messages  []*model.Message `json:"messages"`
}
