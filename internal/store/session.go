package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/6ixplatform/6ix-sub001/core/db"
	"github.com/6ixplatform/6ix-sub001/internal/model"
)

type sessionStore struct {
	db *db.DB
}

func (s *sessionStore) Create(ctx context.Context, session *model.Session) error {
	_, err := s.db.Pool().Exec(ctx, `
		INSERT INTO sessions (id, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)`,
		session.ID, session.UserID, session.CreatedAt, session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("creating session %d: %w", session.ID, err)
	}
	return nil
}

func (s *sessionStore) Get(ctx context.Context, id int64) (*model.Session, error) {
	var session model.Session
	err := s.db.Pool().QueryRow(ctx,
		`SELECT id, user_id, created_at, expires_at FROM sessions WHERE id = $1`, id,
	).Scan(&session.ID, &session.UserID, &session.CreatedAt, &session.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading session %d: %w", id, err)
	}
	return &session, nil
}

func (s *sessionStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.Pool().Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting session %d: %w", id, err)
	}
	return nil
}

func (s *sessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := s.db.Pool().Exec(ctx, `DELETE FROM sessions WHERE expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
