package llm

import (
	"context"
	"fmt"
	"io"
)

const (
	ProviderGemini = providerGemini
	ProviderOpenAI = providerOpenAI
	ProviderMock   = "mock"
)

// Settings select and configure a provider.
type Settings struct {
	Provider string
	APIKey   string
	BaseURL  string
	Options  Options
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds the generator named by s.Provider. The returned closer releases
// provider resources and is never nil.
func New(ctx context.Context, s Settings) (StreamGenerator, io.Closer, error) {
	switch s.Provider {
	case ProviderGemini, "":
		g, err := NewGeminiClient(ctx, s.APIKey, s.Options)
		if err != nil {
			return nil, nil, err
		}
		return g, g, nil
	case ProviderOpenAI:
		o, err := NewOpenAIClient(s.APIKey, s.BaseURL, s.Options)
		if err != nil {
			return nil, nil, err
		}
		return o, nopCloser{}, nil
	case ProviderMock:
		return NewMock(), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown model provider %q", s.Provider)
	}
}
