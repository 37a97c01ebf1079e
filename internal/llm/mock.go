package llm

import (
	"context"
	"fmt"
	"strings"
)

// Mock is an offline generator for local development. It answers with a
// canned strategy that quotes the last line of the prompt.
type Mock struct{}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", Unavailable(ProviderMock, err)
	}
	lines := strings.Split(strings.TrimSpace(prompt), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	return fmt.Sprintf("# Summary\nMock strategy for: %s\n\n## Channel priority\n1. Instagram\n2. Naver Place reviews\n3. In-store flyers\n\nSuggested follow-up: How do I collect more map reviews?", last), nil
}

func (m *Mock) GenerateStream(ctx context.Context, prompt string, onChunk func(string) error) (string, error) {
	text, err := m.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		if err := onChunk(line); err != nil {
			return "", err
		}
	}
	return text, nil
}
