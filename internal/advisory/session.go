package advisory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/catalog"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/llm"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/models"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/observability"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/prompt"
)

// Exchange is one completed turn. Suggested is a question the owner could
// ask next.
type Exchange struct {
	ID        string        `json:"id"`
	Question  string        `json:"question"`
	Prompt    string        `json:"prompt"`
	Response  string        `json:"response"`
	Suggested string        `json:"suggested,omitempty"`
	At        time.Time     `json:"at"`
	Latency   time.Duration `json:"latency"`
}

// Session holds the persona fixed at profile submission and the exchanges
// that followed. Turns are serialized; reads may run alongside a turn.
type Session struct {
	id      string
	advisor *Advisor

	turn sync.Mutex

	mu         sync.RWMutex
	profile    *models.StoreProfile
	match      catalog.MatchResult
	history    []Exchange
	createdAt  time.Time
	lastActive time.Time
}

func (s *Session) ID() string { return s.id }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}

// SubmitProfile matches the profile once and fixes the persona for the rest
// of the session.
func (s *Session) SubmitProfile(ctx context.Context, profile models.StoreProfile) (models.Persona, error) {
	if err := profile.Validate(); err != nil {
		return models.Persona{}, err
	}
	s.turn.Lock()
	defer s.turn.Unlock()

	s.mu.RLock()
	set := s.profile != nil
	s.mu.RUnlock()
	if set {
		return models.Persona{}, ErrProfileAlreadySet
	}

	log := observability.LoggerFromContext(ctx).With("session_id", s.id, "profile", profile.Key())
	res, err := s.advisor.catalog.Match(profile)
	if err != nil {
		if errors.Is(err, catalog.ErrNoMatchFound) {
			log.Error("catalog has no persona for profile; catalog is incomplete", "error", err)
		}
		return models.Persona{}, err
	}
	if !res.Exact {
		log.Warn("no exact persona, using fallback", "persona", res.Persona.Key, "agreed", res.Agreed)
	}

	s.mu.Lock()
	s.profile = &profile
	s.match = res
	s.lastActive = s.advisor.now()
	s.mu.Unlock()

	log.Info("profile submitted", "persona", res.Persona.Key, "exact", res.Exact)
	return res.Persona, nil
}

// Persona returns the fixed persona, if a profile was submitted.
func (s *Session) Persona() (models.Persona, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return models.Persona{}, false
	}
	return s.match.Persona, true
}

// Match returns the full match result for the submitted profile.
func (s *Session) Match() (catalog.MatchResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.match, s.profile != nil
}

// Profile returns the submitted store profile.
func (s *Session) Profile() (models.StoreProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return models.StoreProfile{}, false
	}
	return *s.profile, true
}

// History returns a copy of the completed exchanges.
func (s *Session) History() []Exchange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Exchange, len(s.history))
	copy(out, s.history)
	return out
}

// Ask sends the next question (empty for the opening strategy) and returns
// the model text unmodified. On error the session is unchanged.
func (s *Session) Ask(ctx context.Context, question string) (string, error) {
	ex, err := s.ask(ctx, question, nil)
	if err != nil {
		return "", err
	}
	return ex.Response, nil
}

// AskStream is Ask with partial output delivered to onChunk. Generators
// without streaming support deliver the whole reply as one chunk. Chunks
// already delivered are not recalled if the call fails later.
func (s *Session) AskStream(ctx context.Context, question string, onChunk func(string) error) (Exchange, error) {
	return s.ask(ctx, question, onChunk)
}

// AskExchange is Ask returning the recorded exchange.
func (s *Session) AskExchange(ctx context.Context, question string) (Exchange, error) {
	return s.ask(ctx, question, nil)
}

func (s *Session) ask(ctx context.Context, question string, onChunk func(string) error) (Exchange, error) {
	s.turn.Lock()
	defer s.turn.Unlock()

	s.mu.RLock()
	if s.profile == nil {
		s.mu.RUnlock()
		return Exchange{}, ErrNoProfile
	}
	persona := s.match.Persona
	turns := make([]prompt.Turn, 0, len(s.history))
	for _, ex := range s.history {
		turns = append(turns, prompt.Turn{Question: ex.Question, Answer: ex.Response})
	}
	s.mu.RUnlock()

	a := s.advisor
	log := observability.LoggerFromContext(ctx).With("session_id", s.id, "turn", len(turns)+1)

	text, err := prompt.ComposeTurn(persona, a.template, turns, question)
	if err != nil {
		log.Warn("prompt rejected before sending", "error", err)
		return Exchange{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := a.now()
	reply, err := s.generate(callCtx, text, onChunk)
	latency := a.now().Sub(start)
	if err != nil {
		err = classify(callCtx, err)
		log.Error("model call failed", "error", err, "latency", latency)
		return Exchange{}, err
	}

	ex := Exchange{
		ID:        uuid.New().String(),
		Question:  question,
		Prompt:    text,
		Response:  reply,
		Suggested: suggestFollowUp(reply, question, persona.Profile),
		At:        a.now(),
		Latency:   latency,
	}
	s.mu.Lock()
	s.history = append(s.history, ex)
	s.lastActive = ex.At
	s.mu.Unlock()

	if err := a.recorder.Record(ctx, s.id, persona, ex); err != nil {
		log.Warn("failed to archive exchange", "error", err)
	}
	log.Info("advice generated", "latency", latency, "response_chars", len(reply))
	return ex, nil
}

func (s *Session) generate(ctx context.Context, text string, onChunk func(string) error) (string, error) {
	gen := s.advisor.gen
	if onChunk == nil {
		return gen.Generate(ctx, text)
	}
	if sg, ok := gen.(llm.StreamGenerator); ok {
		return sg.GenerateStream(ctx, text, onChunk)
	}
	reply, err := gen.Generate(ctx, text)
	if err != nil {
		return "", err
	}
	if err := onChunk(reply); err != nil {
		return "", err
	}
	return reply, nil
}

// classify maps a generator failure onto the advisory error kinds.
func classify(callCtx context.Context, err error) error {
	if llm.IsRejected(err) {
		return fmt.Errorf("%w: %w", ErrServiceRejected, err)
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: timed out: %w", ErrServiceUnavailable, err)
	}
	return fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
}
