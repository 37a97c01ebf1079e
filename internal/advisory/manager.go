package advisory

import (
	"context"
	"sync"
	"time"
)

// Manager keeps live sessions for the network surfaces.
type Manager struct {
	advisor *Advisor
	idleTTL time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager evicts sessions idle for longer than idleTTL when Sweep runs.
// A zero idleTTL keeps sessions until deleted.
func NewManager(a *Advisor, idleTTL time.Duration) *Manager {
	return &Manager{
		advisor:  a,
		idleTTL:  idleTTL,
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Advisor() *Advisor { return m.advisor }

func (m *Manager) Create() *Session {
	s := m.advisor.NewSession()
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	return s
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes sessions idle since before now-idleTTL and returns how many
// were removed.
func (m *Manager) Sweep(now time.Time) int {
	if m.idleTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-m.idleTTL)
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if m.idleTTL <= 0 || interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := m.Sweep(now); n > 0 {
				m.advisor.logger.Info("expired idle sessions", "count", n)
			}
		}
	}
}
