package llm

import (
	"context"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAICompleter talks to any OpenAI-compatible chat completions endpoint.
type OpenAICompleter struct {
	client    openai.Client
	model     string
	maxTokens int64
	timeout   time.Duration
}

func NewOpenAICompleter(apiKey, baseURL, model string, maxTokens int, timeout time.Duration) *OpenAICompleter {
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &OpenAICompleter{
		client:    openai.NewClient(opts...),
		model:     model,
		maxTokens: int64(maxTokens),
		timeout:   timeout,
	}
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(c.maxTokens),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
