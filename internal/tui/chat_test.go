package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/advisory"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/catalog"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/llm"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/models"
)

type downGenerator struct{}

func (downGenerator) Generate(context.Context, string) (string, error) {
	return "", llm.Unavailable("stub", errors.New("connection refused"))
}

// chattyGenerator streams many chunks and reports when it returns.
type chattyGenerator struct {
	chunks   int
	returned chan struct{}
}

func (g chattyGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.GenerateStream(ctx, prompt, func(string) error { return nil })
}

func (g chattyGenerator) GenerateStream(ctx context.Context, _ string, onChunk func(string) error) (string, error) {
	defer close(g.returned)
	var b strings.Builder
	for range g.chunks {
		if err := onChunk("word "); err != nil {
			return "", err
		}
		b.WriteString("word ")
	}
	return b.String(), nil
}

func newSession(t *testing.T, gen llm.Generator) *advisory.Session {
	t.Helper()
	schema := models.Schema{
		Categories: []models.Category{models.CategoryCafe},
		Franchise:  []bool{false},
		NewStore:   []bool{true},
		Sizes:      []models.StoreSize{models.SizeSmall},
		AgeBands:   []models.AgeBand{models.Age20s},
		Segments:   []models.Segment{models.SegmentStudents},
	}
	b := catalog.Builder{Describer: catalog.TemplateDescriber{}}
	cat, _, err := b.Build(context.Background(), schema)
	if err != nil {
		t.Fatal(err)
	}
	a, err := advisory.NewAdvisor(cat, gen, advisory.WithTimeout(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	s := a.NewSession()
	if _, err := s.SubmitProfile(context.Background(), schema.Combinations()[0]); err != nil {
		t.Fatal(err)
	}
	return s
}

// drain feeds streamed messages into the model until the turn completes.
func drain(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			return
		}
		_, cmd = m.Update(msg)
		if _, done := msg.(doneMsg); done {
			return
		}
	}
}

func TestOpeningStrategyStreams(t *testing.T) {
	m := New(context.Background(), newSession(t, llm.NewMock()))
	drain(t, m, m.ask(""))

	if m.busy {
		t.Fatalf("model should be idle after the turn")
	}
	if len(m.entries) != 1 || !strings.Contains(m.entries[0].answer, "Mock strategy") {
		t.Fatalf("unexpected entries %+v", m.entries)
	}
	if !strings.Contains(m.View(), "Franchise Marketing Advisor") {
		t.Fatalf("view should show the header")
	}
	if m.entries[0].suggested != "How do I collect more map reviews?" || !strings.Contains(m.View(), "Try asking:") {
		t.Fatalf("view should offer the suggested follow-up, entry=%+v", m.entries[0])
	}
}

func TestSendIgnoredWhileBusy(t *testing.T) {
	m := New(context.Background(), newSession(t, llm.NewMock()))
	m.busy = true
	m.input.SetValue("hello")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil || len(m.entries) != 0 {
		t.Fatalf("enter must be ignored while a turn is running")
	}
}

func TestFollowUpQuestion(t *testing.T) {
	s := newSession(t, llm.NewMock())
	m := New(context.Background(), s)
	m.input.SetValue("How do I get reviews?")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	drain(t, m, cmd)

	if len(s.History()) != 1 || s.History()[0].Question != "How do I get reviews?" {
		t.Fatalf("question should reach the session, history=%+v", s.History())
	}
	if m.input.Value() != "" {
		t.Fatalf("input should be cleared after sending")
	}
}

func TestFailureShownAndRetryable(t *testing.T) {
	m := New(context.Background(), newSession(t, downGenerator{}))
	drain(t, m, m.ask(""))
	if !m.entries[0].failed || !strings.Contains(m.entries[0].answer, "retry") {
		t.Fatalf("expected a retryable failure message, got %+v", m.entries[0])
	}
	if m.busy {
		t.Fatalf("failure must end the turn")
	}
}

func TestQuitMidStreamReleasesTurn(t *testing.T) {
	gen := chattyGenerator{chunks: 500, returned: make(chan struct{})}
	m := New(context.Background(), newSession(t, gen))
	m.ask("")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("quit should return a command")
	}
	select {
	case <-gen.returned:
	case <-time.After(2 * time.Second):
		t.Fatal("streaming turn still blocked after quit")
	}
}
