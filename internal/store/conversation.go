package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/6ixplatform/6ix-sub001/core/db"
	"github.com/6ixplatform/6ix-sub001/internal/model"
)

// conversationStore persists each conversation as one JSONB row: the
// whole message array is read and written together, matching the
// load/save-full-history access pattern.
type conversationStore struct {
	db *db.DB
}

func (s *conversationStore) Load(ctx context.Context, sessionID string) (*model.Conversation, error) {
	var (
		userID    int64
		raw       []byte
		updatedAt time.Time
	)
	err := s.db.Pool().QueryRow(ctx,
		`SELECT user_id, messages, updated_at FROM conversations WHERE session_id = $1`,
		sessionID,
	).Scan(&userID, &raw, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading conversation %s: %w", sessionID, err)
	}

	conv := &model.Conversation{SessionID: sessionID, UserID: userID, UpdatedAt: updatedAt}
	if err := json.Unmarshal(raw, &conv.Messages); err != nil {
		return nil, fmt.Errorf("decoding conversation %s: %w", sessionID, err)
	}
	return conv, nil
}

func (s *conversationStore) Save(ctx context.Context, conv *model.Conversation) error {
	raw, err := json.Marshal(conv.Messages)
	if err != nil {
		return fmt.Errorf("encoding conversation %s: %w", conv.SessionID, err)
	}

	conv.UpdatedAt = time.Now().UTC()
	_, err = s.db.Pool().Exec(ctx, `
		INSERT INTO conversations (session_id, user_id, messages, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id) DO UPDATE
		SET messages = EXCLUDED.messages, updated_at = EXCLUDED.updated_at`,
		conv.SessionID, conv.UserID, raw, conv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving conversation %s: %w", conv.SessionID, err)
	}
	return nil
}

func (s *conversationStore) Reset(ctx context.Context, sessionID string) error {
	_, err := s.db.Pool().Exec(ctx,
		`DELETE FROM conversations WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("resetting conversation %s: %w", sessionID, err)
	}
	return nil
}
