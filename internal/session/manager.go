// Package session tracks the SSH sessions currently held by in-flight
// requests and optionally caps how many may be open at once.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// ErrSessionNotFound is returned when releasing an unknown session.
var ErrSessionNotFound = errors.New("session not found")

// Session represents one in-flight SSH session. Sessions are never reused.
type Session struct {
	ID        string
	Host      string
	Username  string
	CreatedAt time.Time
}

// Manager handles SSH session tracking and capacity
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	sem      *semaphore.Weighted
	limit    int64
}

// NewManager creates a new session manager. A maxSessions of zero or less
// means no limit.
func NewManager(maxSessions int64) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
	}
	if maxSessions > 0 {
		m.sem = semaphore.NewWeighted(maxSessions)
		m.limit = maxSessions
	}
	return m
}

// Acquire registers a new session, waiting for a free slot when a limit is
// configured. It fails only if ctx is done before a slot frees up.
func (m *Manager) Acquire(ctx context.Context, host, username string) (*Session, error) {
	if m.sem != nil {
		if err := m.sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("waiting for a session slot: %w", err)
		}
	}

	session := &Session{
		ID:        uuid.NewString(),
		Host:      host,
		Username:  username,
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()

	return session, nil
}

// Release removes a session and frees its slot
func (m *Manager) Release(id string) error {
	m.mu.Lock()
	_, exists := m.sessions[id]
	if exists {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !exists {
		return ErrSessionNotFound
	}

	if m.sem != nil {
		m.sem.Release(1)
	}
	return nil
}

// ListSessions returns a list of all in-flight sessions
func (m *Manager) ListSessions() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}

	return sessions
}

// Count returns the number of in-flight sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Limit returns the configured capacity, or zero when unlimited
func (m *Manager) Limit() int64 {
	return m.limit
}
