package sessions

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"humming/meet/internal/orchestrator"
)

// Session is one orchestrator bound to a mount point. A mount carries at
// most one active call session.
type Session struct {
	ID        string                     `json:"id"`
	Mount     string                     `json:"mount"`
	CreatedAt time.Time                  `json:"created_at"`
	Orch      *orchestrator.Orchestrator `json:"-"`
}

// Factory builds the orchestrator for a mount.
type Factory func(mount string) *orchestrator.Orchestrator

type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	factory  Factory
}

func NewManager(f Factory) *Manager {
	return &Manager{sessions: make(map[string]*Session), factory: f}
}

// GetOrCreate returns the session for mount, creating it on first use.
func (m *Manager) GetOrCreate(mount string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.sessions[mount]; s != nil {
		return s
	}
	s := &Session{
		ID:        uuid.NewString(),
		Mount:     mount,
		CreatedAt: time.Now().UTC(),
		Orch:      m.factory(mount),
	}
	m.sessions[mount] = s
	return s
}

func (m *Manager) Get(mount string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[mount]
}

// List returns sessions ordered by mount.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Mount < out[j].Mount })
	return out
}

// Dispose closes and forgets the session for mount. It reports whether one
// existed.
func (m *Manager) Dispose(mount string) bool {
	m.mu.Lock()
	s := m.sessions[mount]
	delete(m.sessions, mount)
	m.mu.Unlock()
	if s == nil {
		return false
	}
	s.Orch.Close()
	return true
}

// CloseAll disposes every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range all {
		s.Orch.Close()
	}
}
