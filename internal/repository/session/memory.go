package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kailas-cloud/docchat/internal/domain"
	"github.com/kailas-cloud/docchat/internal/domain/conversation"
	domsession "github.com/kailas-cloud/docchat/internal/domain/session"
)

// MemoryRepo keeps sessions in process memory. Sessions idle longer than
// ttl are dropped on access, and Save sweeps all idle sessions at most once per ttl.
type MemoryRepo struct {
	mu        sync.RWMutex
	sessions  map[string]domsession.Session
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

// NewMemory creates an in-memory repository. ttl <= 0 disables expiry.
func NewMemory(ttl time.Duration) *MemoryRepo {
	return &MemoryRepo{
		sessions: make(map[string]domsession.Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns a copy of the stored session.
func (m *MemoryRepo) Get(_ context.Context, id string) (domsession.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return domsession.Session{}, fmt.Errorf("session %s: %w", id, domain.ErrSessionNotFound)
	}
	if m.ttl > 0 && m.now().Sub(s.UpdatedAt) > m.ttl {
		delete(m.sessions, id)
		return domsession.Session{}, fmt.Errorf("session %s expired: %w", id, domain.ErrSessionNotFound)
	}
	return copySession(s)
}

// Save stores a copy of the session.
func (m *MemoryRepo) Save(_ context.Context, s domsession.Session) error {
	stored, err := copySession(s)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = stored
	m.sweepLocked(s.ID)
	return nil
}

// sweepLocked drops idle sessions other than keep.
func (m *MemoryRepo) sweepLocked(keep string) {
	if m.ttl <= 0 {
		return
	}
	now := m.now()
	if now.Sub(m.lastSweep) < m.ttl {
		return
	}
	m.lastSweep = now
	for id, s := range m.sessions {
		if id != keep && now.Sub(s.UpdatedAt) > m.ttl {
			delete(m.sessions, id)
		}
	}
}

// Delete removes a session.
func (m *MemoryRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Ping always succeeds.
func (m *MemoryRepo) Ping(_ context.Context) error { return nil }

// Len returns the number of stored sessions, expired ones included.
func (m *MemoryRepo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func copySession(s domsession.Session) (domsession.Session, error) {
	ctx, err := s.Context.Clone()
	if err != nil {
		return domsession.Session{}, fmt.Errorf("copy session %s: %w", s.ID, err)
	}
	s.Context = ctx
	s.Turns = append([]conversation.Turn(nil), s.Turns...)
	return s, nil
}
