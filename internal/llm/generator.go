package llm

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnavailable covers network failures, timeouts and provider outages.
	ErrUnavailable = errors.New("model service unavailable")
	// ErrRejected covers quota, credential and content-policy refusals.
	ErrRejected = errors.New("model service rejected request")
)

// Generator is an opaque text-in/text-out model call.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// StreamGenerator is implemented by generators that can deliver partial
// output. onChunk is called in order; the full text is also returned.
type StreamGenerator interface {
	Generator
	GenerateStream(ctx context.Context, prompt string, onChunk func(string) error) (string, error)
}

// Options tune a generator. Zero values fall back to provider defaults.
type Options struct {
	Model             string
	Temperature       float32
	TopP              float32
	MaxOutputTokens   int32
	SystemInstruction string
}

// Error is a classified model failure. errors.Is matches both Kind and Cause.
type Error struct {
	Kind     error
	Provider string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v: %v", e.Provider, e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Kind)
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func Unavailable(provider string, cause error) *Error {
	return &Error{Kind: ErrUnavailable, Provider: provider, Cause: cause}
}

func Rejected(provider string, cause error) *Error {
	return &Error{Kind: ErrRejected, Provider: provider, Cause: cause}
}

// IsRejected reports whether retrying err with the same input is pointless.
func IsRejected(err error) bool {
	return errors.Is(err, ErrRejected)
}

// classifyStatus maps an HTTP status to a failure kind.
func classifyStatus(provider string, status int, cause error) *Error {
	switch status {
	case 400, 401, 403, 404, 422, 429:
		return Rejected(provider, cause)
	default:
		return Unavailable(provider, cause)
	}
}
