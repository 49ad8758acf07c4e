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

type userStore struct {
	db *db.DB
}

const userColumns = `id, name, email, plan, avatar_url, workos_id, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	var plan string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &plan, &u.AvatarURL, &u.WorkOSID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.Plan = model.ParsePlan(plan)
	return &u, nil
}

func (s *userStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return scanUser(s.db.Pool().QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *userStore) GetByWorkOSID(ctx context.Context, workosID string) (*model.User, error) {
	return scanUser(s.db.Pool().QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE workos_id = $1`, workosID))
}

func (s *userStore) Upsert(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := s.db.Pool().Exec(ctx, `
		INSERT INTO users (id, name, email, plan, avatar_url, workos_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (workos_id) DO UPDATE
		SET name = EXCLUDED.name,
		    email = EXCLUDED.email,
		    plan = EXCLUDED.plan,
		    avatar_url = EXCLUDED.avatar_url,
		    updated_at = EXCLUDED.updated_at`,
		user.ID, user.Name, user.Email, string(user.Plan),
		user.AvatarURL, user.WorkOSID, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting user %d: %w", user.ID, err)
	}
	return nil
}

func (s *userStore) UpdatePlan(ctx context.Context, id int64, plan model.Plan) error {
	tag, err := s.db.Pool().Exec(ctx,
		`UPDATE users SET plan = $2, updated_at = $3 WHERE id = $1`,
		id, string(plan), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("updating plan for user %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
