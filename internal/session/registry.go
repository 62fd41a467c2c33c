package session

import (
	"sync"

	"github.com/google/uuid"
)

// Registry tracks the active in-process session managers, keyed by
// session ID, with a one-active-session-per-user side index.
type Registry struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*Manager
	byUser map[uuid.UUID]uuid.UUID
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[uuid.UUID]*Manager),
		byUser: make(map[uuid.UUID]uuid.UUID),
	}
}

// Add registers a manager. A previous active session of the same user is
// cancelled and evicted first.
func (r *Registry) Add(m *Manager) {
	sessionID, userID := m.SessionID(), m.UserID()

	r.mu.Lock()
	if prevID, ok := r.byUser[userID]; ok && prevID != sessionID {
		if prev, found := r.byID[prevID]; found {
			prev.Cancel()
			delete(r.byID, prevID)
		}
	}
	r.byID[sessionID] = m
	r.byUser[userID] = sessionID
	r.mu.Unlock()
}

// Get looks a manager up by session ID.
func (r *Registry) Get(sessionID uuid.UUID) (*Manager, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byID[sessionID]
	return m, ok
}

// GetForUser looks the user's active manager up.
func (r *Registry) GetForUser(userID uuid.UUID) (*Manager, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sessionID, ok := r.byUser[userID]
	if !ok {
		return nil, false
	}
	m, ok := r.byID[sessionID]
	return m, ok
}

// Remove evicts a manager without cancelling it.
func (r *Registry) Remove(sessionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[sessionID]
	if !ok {
		return
	}
	delete(r.byID, sessionID)
	if current, found := r.byUser[m.UserID()]; found && current == sessionID {
		delete(r.byUser, m.UserID())
	}
}

// Len reports the number of active managers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
