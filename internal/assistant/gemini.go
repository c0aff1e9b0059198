package assistant

import (
	"context"
	"fmt"
	"iter"

	"google.golang.org/genai"
)

const geminiModel = "gemini-1.5-flash"

// GeminiClient adapts the Gemini streaming API to ModelClient.
type GeminiClient struct {
	client *genai.Client
}

func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiClient{client: client}, nil
}

// StreamComplete forwards model fragments in arrival order. A model error is
// yielded once and ends the sequence; cancellation of ctx stops the pull and
// releases the underlying connection.
func (c *GeminiClient) StreamComplete(ctx context.Context, prompt string) iter.Seq2[string, error] {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.7),
		MaxOutputTokens: 1000,
	}

	return func(yield func(string, error) bool) {
		for resp, err := range c.client.Models.GenerateContentStream(ctx, geminiModel, genai.Text(prompt), config) {
			if err != nil {
				yield("", fmt.Errorf("gemini stream failed: %w", err))
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			if !yield(text, nil) {
				return
			}
		}
	}
}
