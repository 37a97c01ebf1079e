// Package advisory runs advisory sessions: one matched persona per session
// and a linear history of questions and model answers.
package advisory

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/catalog"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/llm"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/prompt"
)

var (
	ErrServiceUnavailable = errors.New("advisory service unavailable")
	ErrServiceRejected    = errors.New("advisory service rejected the request")
	ErrNoProfile          = errors.New("no store profile submitted")
	ErrProfileAlreadySet  = errors.New("store profile already submitted for this session")
	ErrSessionNotFound    = errors.New("advisory session not found")
)

const DefaultTimeout = 60 * time.Second

// Advisor creates sessions over a shared, read-only catalog.
type Advisor struct {
	catalog  *catalog.Catalog
	gen      llm.Generator
	template prompt.Template
	timeout  time.Duration
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Advisor)

func WithTemplate(t prompt.Template) Option {
	return func(a *Advisor) { a.template = t }
}

// WithTimeout bounds each model call.
func WithTimeout(d time.Duration) Option {
	return func(a *Advisor) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(a *Advisor) {
		if r != nil {
			a.recorder = r
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Advisor) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Advisor) { a.now = now }
}

// NewAdvisor fails with catalog.ErrCatalogUnavailable when cat is nil or
// empty.
func NewAdvisor(cat *catalog.Catalog, gen llm.Generator, opts ...Option) (*Advisor, error) {
	if cat.Len() == 0 {
		return nil, catalog.ErrCatalogUnavailable
	}
	if gen == nil {
		return nil, errors.New("advisory: nil generator")
	}
	a := &Advisor{
		catalog:  cat,
		gen:      gen,
		template: prompt.DefaultTemplate(),
		timeout:  DefaultTimeout,
		recorder: NopRecorder{},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Advisor) Catalog() *catalog.Catalog { return a.catalog }

// NewSession starts an empty session with a fresh id.
func (a *Advisor) NewSession() *Session {
	now := a.now()
	return &Session{
		id:         uuid.New().String(),
		advisor:    a,
		createdAt:  now,
		lastActive: now,
	}
}
