package text

import (
	"context"
	"errors"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/jonathanprocter/insight-atlas-server/internal/providers"
)

// OpenAIClient implements Client using the official openai-go SDK
// (streaming chat completions).
type OpenAIClient struct {
	client openai.Client
}

// NewOpenAIClient builds a client from the provider configuration.
func NewOpenAIClient(apiKey, baseURL string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key missing; provide provider.api_key")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIClient{client: openai.NewClient(opts...)}, nil
}

// Generate streams a chat completion, forwarding each content delta to
// onDelta. Cancelling ctx aborts the underlying HTTP stream.
func (c *OpenAIClient) Generate(ctx context.Context, req Request, onDelta func(string)) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.Prompt),
		},
	}

	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
	acc := openai.ChatCompletionAccumulator{}
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)
		if len(chunk.Choices) > 0 {
			if delta := chunk.Choices[0].Delta.Content; delta != "" {
				onDelta(delta)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return "", providers.Classify(err)
	}
	if len(acc.Choices) == 0 {
		return "", providers.Classify(errors.New("openai: empty choices"))
	}
	return acc.Choices[0].Message.Content, nil
}
