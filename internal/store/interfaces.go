package store

import (
	"context"
	"errors"

	"github.com/6ixplatform/6ix-sub001/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ConversationStore defines the contract for chat history persistence.
// A conversation is loaded and saved as the full message array keyed
// by its session id.
type ConversationStore interface {
	Load(ctx context.Context, sessionID string) (*model.Conversation, error)
	Save(ctx context.Context, conv *model.Conversation) error
	Reset(ctx context.Context, sessionID string) error
}

// PreferenceStore defines the contract for standing user directives.
type PreferenceStore interface {
	Get(ctx context.Context, userID int64) (*model.Preferences, error)
	Upsert(ctx context.Context, prefs *model.Preferences) error
}

// UserStore defines the contract for user data access
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByWorkOSID(ctx context.Context, workosID string) (*model.User, error)
	Upsert(ctx context.Context, user *model.User) error
	UpdatePlan(ctx context.Context, id int64, plan model.Plan) error
}

// SessionStore defines the contract for login session persistence.
type SessionStore interface {
	Create(ctx context.Context, session *model.Session) error
	Get(ctx context.Context, id int64) (*model.Session, error)
	Delete(ctx context.Context, id int64) error
	DeleteExpired(ctx context.Context) (int64, error)
}
