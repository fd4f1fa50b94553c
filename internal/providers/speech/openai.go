package speech

import (
	"context"
	"errors"
	"io"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/jonathanprocter/insight-atlas-server/internal/providers"
)

// OpenAIClient implements Client using the openai-go speech endpoint.
type OpenAIClient struct {
	client openai.Client
	model  string
}

// NewOpenAIClient builds a speech client from the provider configuration.
func NewOpenAIClient(apiKey, baseURL, model string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key missing; provide provider.api_key")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIClient{client: openai.NewClient(opts...), model: model}, nil
}

func (c *OpenAIClient) Synthesize(ctx context.Context, text, voice string) (*Audio, error) {
	resp, err := c.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model: openai.SpeechModel(c.model),
		Input: text,
		Voice: openai.AudioSpeechNewParamsVoice(voice),
	})
	if err != nil {
		return nil, providers.Classify(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, providers.Classify(err)
	}

	return &Audio{
		Bytes:    data,
		Duration: EstimateDuration(len(strings.Fields(text))),
		Voice:    voice,
	}, nil
}
