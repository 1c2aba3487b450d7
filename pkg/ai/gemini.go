package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const geminiDefaultModel = "gemini-1.5-flash"

// GeminiClient wraps the Gemini API client.
type GeminiClient struct {
	genaiClient *genai.Client
}

var _ Generator = (*GeminiClient)(nil)

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiClient{genaiClient: client}, nil
}

// Generate sends the prompts to Gemini and returns the generated text.
func (c *GeminiClient) Generate(ctx context.Context, system, user string) (string, error) {
	model := c.genaiClient.GenerativeModel(geminiDefaultModel)
	if system != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			return "", &APIError{Provider: "gemini", StatusCode: gerr.Code, Message: gerr.Message}
		}
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}

	return sb.String(), nil
}

// Close closes the underlying client.
func (c *GeminiClient) Close() error {
	return c.genaiClient.Close()
}
