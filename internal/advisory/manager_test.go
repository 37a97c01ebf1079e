package advisory

import (
	"errors"
	"testing"
	"time"

	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/llm"
)

func TestManagerCreateGetDelete(t *testing.T) {
	m := NewManager(newAdvisor(t, llm.NewMock()), 0)
	s := m.Create()

	got, err := m.Get(s.ID())
	if err != nil || got != s {
		t.Fatalf("Get(%s) = %v, %v", s.ID(), got, err)
	}
	if err := m.Delete(s.ID()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Get(s.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := m.Delete(s.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on second delete, got %v", err)
	}
}

func TestManagerSweepExpiresIdleSessions(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := newAdvisor(t, llm.NewMock(), WithClock(func() time.Time { return now }))
	m := NewManager(a, time.Hour)

	old := m.Create()
	now = now.Add(90 * time.Minute)
	fresh := m.Create()

	if n := m.Sweep(now); n != 1 {
		t.Fatalf("expected 1 expired session, got %d", n)
	}
	if _, err := m.Get(old.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("idle session should be gone")
	}
	if _, err := m.Get(fresh.ID()); err != nil {
		t.Fatalf("fresh session should remain: %v", err)
	}
}

func TestManagerWithoutTTLNeverSweeps(t *testing.T) {
	m := NewManager(newAdvisor(t, llm.NewMock()), 0)
	m.Create()
	if n := m.Sweep(time.Now().Add(24 * time.Hour)); n != 0 {
		t.Fatalf("expected no sweep, got %d", n)
	}
	if m.Len() != 1 {
		t.Fatalf("expected session to remain")
	}
}
