package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/6ixplatform/6ix-sub001/core/db"
	"github.com/6ixplatform/6ix-sub001/internal/model"
)

type preferenceStore struct {
	db *db.DB
}

func (s *preferenceStore) Get(ctx context.Context, userID int64) (*model.Preferences, error) {
	prefs := &model.Preferences{UserID: userID}
	err := s.db.Pool().QueryRow(ctx,
		`SELECT directives, language, updated_at FROM preferences WHERE user_id = $1`,
		userID,
	).Scan(&prefs.Directives, &prefs.Language, &prefs.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading preferences for user %d: %w", userID, err)
	}
	return prefs, nil
}

func (s *preferenceStore) Upsert(ctx context.Context, prefs *model.Preferences) error {
	prefs.UpdatedAt = time.Now().UTC()
	_, err := s.db.Pool().Exec(ctx, `
		INSERT INTO preferences (user_id, directives, language, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET directives = EXCLUDED.directives,
		    language = EXCLUDED.language,
		    updated_at = EXCLUDED.updated_at`,
		prefs.UserID, prefs.Directives, prefs.Language, prefs.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving preferences for user %d: %w", prefs.UserID, err)
	}
	return nil
}
