package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
)

const (
	providerGemini     = "gemini"
	DefaultGeminiModel = "gemini-2.5-flash"
)

type GeminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiClient(ctx context.Context, apiKey string, opts Options) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, Rejected(providerGemini, errors.New("missing API key"))
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	name := opts.Model
	if name == "" {
		name = DefaultGeminiModel
	}
	model := client.GenerativeModel(name)
	if opts.Temperature > 0 {
		model.SetTemperature(opts.Temperature)
	}
	if opts.TopP > 0 {
		model.SetTopP(opts.TopP)
	}
	if opts.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(opts.MaxOutputTokens)
	}
	if opts.SystemInstruction != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(opts.SystemInstruction))
	}

	return &GeminiClient{
		client: client,
		model:  model,
	}, nil
}

func (g *GeminiClient) Close() error {
	return g.client.Close()
}

func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", classifyGemini(ctx, err)
	}
	text := responseText(resp)
	if text == "" {
		return "", Unavailable(providerGemini, errors.New("no content generated"))
	}
	return text, nil
}

func (g *GeminiClient) GenerateStream(ctx context.Context, prompt string, onChunk func(string) error) (string, error) {
	iter := g.model.GenerateContentStream(ctx, genai.Text(prompt))

	var full strings.Builder
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return "", classifyGemini(ctx, err)
		}
		piece := responseText(resp)
		if piece == "" {
			continue
		}
		full.WriteString(piece)
		if err := onChunk(piece); err != nil {
			return "", err
		}
	}

	if full.Len() == 0 {
		return "", Unavailable(providerGemini, errors.New("no content generated"))
	}
	return full.String(), nil
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

func classifyGemini(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Unavailable(providerGemini, err)
	}

	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return Rejected(providerGemini, err)
	}

	var ae *apierror.APIError
	if errors.As(err, &ae) {
		if code := ae.HTTPCode(); code > 0 {
			return classifyStatus(providerGemini, code, err)
		}
		switch ae.GRPCStatus().Code() {
		case codes.InvalidArgument, codes.PermissionDenied, codes.Unauthenticated,
			codes.ResourceExhausted, codes.FailedPrecondition, codes.NotFound:
			return Rejected(providerGemini, err)
		}
	}
	return Unavailable(providerGemini, err)
}
