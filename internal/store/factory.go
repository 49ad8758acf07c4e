package store

import (
	"github.com/6ixplatform/6ix-sub001/core/db"
)

type Stores struct {
	db *db.DB
}

func NewStores(database *db.DB) *Stores {
	return &Stores{db: database}
}

func (s *Stores) Conversations() ConversationStore {
	return &conversationStore{db: s.db}
}

func (s *Stores) Preferences() PreferenceStore {
	return &preferenceStore{db: s.db}
}

func (s *Stores) Users() UserStore {
	return &userStore{db: s.db}
}

func (s *Stores) Sessions() SessionStore {
	return &sessionStore{db: s.db}
}
