package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const (
	providerOpenAI     = "openai"
	DefaultOpenAIModel = "gpt-4o-mini"
)

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	client *openai.Client
	opts   Options
}

func NewOpenAIClient(apiKey, baseURL string, opts Options) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, Rejected(providerOpenAI, errors.New("missing API key"))
	}
	// Advisory calls are not idempotent; a failure is reported, not retried.
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(reqOpts...)
	if opts.Model == "" {
		opts.Model = DefaultOpenAIModel
	}
	return &OpenAIClient{client: &client, opts: opts}, nil
}

func (o *OpenAIClient) params(prompt string) openai.ChatCompletionNewParams {
	var messages []openai.ChatCompletionMessageParamUnion
	if o.opts.SystemInstruction != "" {
		messages = append(messages, openai.ChatCompletionMessageParamUnion{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(o.opts.SystemInstruction),
				},
			},
		})
	}
	messages = append(messages, openai.ChatCompletionMessageParamUnion{
		OfUser: &openai.ChatCompletionUserMessageParam{
			Content: openai.ChatCompletionUserMessageParamContentUnion{
				OfString: openai.String(prompt),
			},
		},
	})

	p := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.opts.Model),
		Messages: messages,
	}
	if o.opts.MaxOutputTokens > 0 {
		p.MaxTokens = openai.Int(int64(o.opts.MaxOutputTokens))
	}
	if o.opts.Temperature > 0 {
		p.Temperature = openai.Float(float64(o.opts.Temperature))
	}
	if o.opts.TopP > 0 {
		p.TopP = openai.Float(float64(o.opts.TopP))
	}
	return p
}

func (o *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, o.params(prompt))
	if err != nil {
		return "", classifyOpenAI(ctx, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", Unavailable(providerOpenAI, errors.New("empty response"))
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAIClient) GenerateStream(ctx context.Context, prompt string, onChunk func(string) error) (string, error) {
	stream := o.client.Chat.Completions.NewStreaming(ctx, o.params(prompt))
	defer stream.Close()

	var full strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		piece := chunk.Choices[0].Delta.Content
		full.WriteString(piece)
		if err := onChunk(piece); err != nil {
			return "", err
		}
	}
	if err := stream.Err(); err != nil {
		return "", classifyOpenAI(ctx, err)
	}
	if full.Len() == 0 {
		return "", Unavailable(providerOpenAI, errors.New("empty response"))
	}
	return full.String(), nil
}

func classifyOpenAI(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Unavailable(providerOpenAI, err)
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(providerOpenAI, apiErr.StatusCode, err)
	}
	return Unavailable(providerOpenAI, err)
}
