package turn

import (
	"sync"

	"github.com/6ixplatform/6ix-sub001/internal/model"
)

// Factory builds an orchestrator for a session the manager has not
// seen yet.
type Factory func(user *model.User, conv *model.Conversation) *Orchestrator

// Manager keeps one orchestrator per live session.
type Manager struct {
	factory Factory

	mu       sync.Mutex
	sessions map[string]*Orchestrator
}

func NewManager(factory Factory) *Manager {
	return &Manager{factory: factory, sessions: make(map[string]*Orchestrator)}
}

// GetOrCreate returns the session's orchestrator, building it from the
// loaded conversation on first use.
func (m *Manager) GetOrCreate(sessionID string, user *model.User, conv *model.Conversation) *Orchestrator {
	m.mu.Lock()
	defer m.mu.Unlock()

	if o, ok := m.sessions[sessionID]; ok {
		return o
	}
	o := m.factory(user, conv)
	m.sessions[sessionID] = o
	return o
}

// Lookup returns the orchestrator for a session, if one is live.
func (m *Manager) Lookup(sessionID string) (*Orchestrator, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.sessions[sessionID]
	return o, ok
}

// Offer proposes refreshed conversation state to a live session. It
// reports whether the orchestrator accepted it; busy sessions skip
// hydration entirely.
func (m *Manager) Offer(sessionID string, conv *model.Conversation) bool {
	o, ok := m.Lookup(sessionID)
	if !ok {
		return false
	}
	return o.Offer(conv)
}

// Sessions lists the live session ids.
func (m *Manager) Sessions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sessions))
	for sessionID := range m.sessions {
		out = append(out, sessionID)
	}
	return out
}

// Remove drops a session's orchestrator, e.g. on logout.
func (m *Manager) Remove(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}
