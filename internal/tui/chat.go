// Package tui is the terminal chat front end for one advisory session.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/advisory"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/prompt"
)

type keyMap struct {
	Send key.Binding
	Quit key.Binding
}

var keys = keyMap{
	Send: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "send"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "esc"),
		key.WithHelp("esc", "quit"),
	),
}

type entry struct {
	question  string
	answer    string
	suggested string
	failed    bool
}

type chunkMsg string

type doneMsg struct {
	ex  advisory.Exchange
	err error
}

// Model is a bubbletea model around a session whose profile is already
// submitted. The opening strategy is requested on start.
type Model struct {
	ctx     context.Context
	session *advisory.Session

	input   textinput.Model
	entries []entry
	pending strings.Builder
	stream  chan tea.Msg
	cancel  context.CancelFunc
	busy    bool
	width   int
}

func New(ctx context.Context, s *advisory.Session) *Model {
	ti := textinput.New()
	ti.Placeholder = "Ask a follow-up question..."
	ti.Focus()
	ti.CharLimit = 2000
	ti.Width = 70
	return &Model{ctx: ctx, session: s, input: ti, width: 80}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.ask(""))
}

// ask runs the turn in a goroutine and feeds chunks back through a channel.
// Quitting cancels the turn so the goroutine never outlives the program.
func (m *Model) ask(question string) tea.Cmd {
	m.busy = true
	m.pending.Reset()
	m.entries = append(m.entries, entry{question: question})
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel
	ch := make(chan tea.Msg, 64)
	m.stream = ch
	send := func(msg tea.Msg) error {
		select {
		case ch <- msg:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	go func() {
		defer close(ch)
		defer cancel()
		ex, err := m.session.AskStream(ctx, question, func(chunk string) error {
			return send(chunkMsg(chunk))
		})
		_ = send(doneMsg{ex: ex, err: err})
	}()
	return waitFor(ch)
}

func waitFor(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(20, msg.Width-4)
		return m, nil

	case chunkMsg:
		m.pending.WriteString(string(msg))
		return m, waitFor(m.stream)

	case doneMsg:
		m.busy = false
		last := &m.entries[len(m.entries)-1]
		if msg.err != nil {
			last.answer = describeError(msg.err)
			last.failed = true
		} else {
			last.answer = msg.ex.Response
			last.suggested = msg.ex.Suggested
		}
		m.pending.Reset()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case key.Matches(msg, keys.Send):
			q := strings.TrimSpace(m.input.Value())
			if m.busy || q == "" {
				return m, nil
			}
			m.input.SetValue("")
			return m, m.ask(q)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func describeError(err error) string {
	switch {
	case errors.Is(err, advisory.ErrServiceUnavailable):
		return "The advisory service did not answer in time. Ask again to retry."
	case errors.Is(err, advisory.ErrServiceRejected):
		return "The advisory service rejected the request. Check the API key and quota."
	case errors.Is(err, prompt.ErrPromptTooLong):
		return "That question is too long. Please shorten it."
	default:
		return err.Error()
	}
}

func (m *Model) View() string {
	var b strings.Builder

	if persona, ok := m.session.Persona(); ok {
		header := TitleStyle.Render("Franchise Marketing Advisor") + "\n" +
			MutedStyle.Render(persona.Profile.String())
		b.WriteString(HeaderStyle.Render(header))
		b.WriteString("\n\n")
	}

	for i, e := range m.entries {
		if e.question != "" {
			b.WriteString(OwnerStyle.Render("You: "))
			b.WriteString(e.question)
			b.WriteString("\n")
		}
		switch {
		case e.failed:
			b.WriteString(ErrorStyle.Render(e.answer))
			b.WriteString("\n\n")
		case e.answer != "":
			rendered, err := renderMarkdown(e.answer, m.width-4)
			if err != nil {
				rendered = e.answer
			}
			b.WriteString(rendered)
			b.WriteString("\n")
			if e.suggested != "" && i == len(m.entries)-1 {
				b.WriteString(MutedStyle.Render("Try asking: " + e.suggested))
				b.WriteString("\n\n")
			}
		case i == len(m.entries)-1 && m.busy:
			if m.pending.Len() > 0 {
				b.WriteString(m.pending.String())
				b.WriteString("\n")
			}
			b.WriteString(MutedStyle.Render("Thinking..."))
			b.WriteString("\n\n")
		}
	}

	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(MutedStyle.Render(fmt.Sprintf("%s %s  %s %s",
		keys.Send.Help().Key, keys.Send.Help().Desc, keys.Quit.Help().Key, keys.Quit.Help().Desc)))
	return b.String()
}

// Run starts the chat program on the terminal.
func Run(ctx context.Context, s *advisory.Session) error {
	p := tea.NewProgram(New(ctx, s), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
