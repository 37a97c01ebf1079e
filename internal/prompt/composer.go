// Package prompt assembles the text sent to the generative model.
package prompt

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/models"
)

var ErrPromptTooLong = errors.New("prompt too long")

// TooLongError reports the composed size against the accepted limit, both in
// characters.
type TooLongError struct {
	Length int
	Limit  int
}

func (e *TooLongError) Error() string {
	return fmt.Sprintf("%v: %d characters exceeds limit of %d", ErrPromptTooLong, e.Length, e.Limit)
}

func (e *TooLongError) Unwrap() error { return ErrPromptTooLong }

// Turn is one earlier question and answer in a session.
type Turn struct {
	Question string
	Answer   string
}

// Compose builds a single prompt from the persona, the template instructions
// and an optional question appended verbatim.
func Compose(persona models.Persona, tmpl Template, question string) (string, error) {
	return ComposeTurn(persona, tmpl, nil, question)
}

// ComposeTurn is Compose with the earlier turns of a session. With
// tmpl.MaxHistory set, the first turn and the most recent ones fill the
// window; turn text itself is never cut.
func ComposeTurn(persona models.Persona, tmpl Template, history []Turn, question string) (string, error) {
	history = window(history, tmpl.MaxHistory)

	var b strings.Builder
	if tmpl.Preamble != "" {
		b.WriteString(strings.TrimSpace(tmpl.Preamble))
		b.WriteString("\n\n")
	}

	b.WriteString("=== Store persona ===\n")
	for _, line := range persona.Profile.Lines() {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.WriteString(strings.TrimSpace(persona.Description))
	b.WriteByte('\n')
	if len(persona.Tactics) > 0 {
		b.WriteString("\nExample tactics for stores like this:\n")
		for _, t := range persona.Tactics {
			b.WriteString("- ")
			b.WriteString(t)
			b.WriteByte('\n')
		}
	}

	if len(history) > 0 {
		b.WriteString("\n=== Conversation so far ===\n")
		for _, turn := range history {
			q := turn.Question
			if q == "" {
				q = "(asked for the initial marketing strategy)"
			}
			b.WriteString("Owner: ")
			b.WriteString(q)
			b.WriteString("\nAdvisor: ")
			b.WriteString(turn.Answer)
			b.WriteString("\n\n")
		}
	}

	b.WriteString("\n=== Instructions ===\n")
	b.WriteString(strings.TrimSpace(tmpl.Instructions))
	b.WriteByte('\n')
	if len(history) > 0 && tmpl.FollowUp != "" {
		b.WriteByte('\n')
		b.WriteString(strings.TrimSpace(tmpl.FollowUp))
		b.WriteByte('\n')
	}

	if question != "" {
		b.WriteString("\n=== Owner question ===\n")
		b.WriteString(question)
		b.WriteByte('\n')
	}

	out := b.String()
	if tmpl.MaxChars > 0 {
		if n := utf8.RuneCountInString(out); n > tmpl.MaxChars {
			return "", &TooLongError{Length: n, Limit: tmpl.MaxChars}
		}
	}
	return out, nil
}

// window keeps history[0] plus the last limit-1 turns.
func window(history []Turn, limit int) []Turn {
	if limit <= 0 || len(history) <= limit {
		return history
	}
	out := make([]Turn, 0, limit)
	out = append(out, history[0])
	return append(out, history[len(history)-(limit-1):]...)
}
