package ai

import (
	"context"
	"net/http"
)

const (
	moonshotDefaultBaseURL = "https://api.moonshot.ai/v1"
	moonshotDefaultModel   = "kimi-k2.5"
)

// MoonshotClient implements the Generator interface using the Moonshot API
// (Kimi 2.5), which is OpenAI-compatible.
type MoonshotClient struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
}

var _ Generator = (*MoonshotClient)(nil)

// NewMoonshotClient creates a new Moonshot API client.
func NewMoonshotClient(apiKey string) *MoonshotClient {
	return &MoonshotClient{
		httpClient: &http.Client{},
		apiKey:     apiKey,
		model:      moonshotDefaultModel,
		baseURL:    moonshotDefaultBaseURL,
	}
}

// Generate sends the prompts to the Moonshot API and returns the generated text.
func (c *MoonshotClient) Generate(ctx context.Context, system, user string) (string, error) {
	return generateChat(ctx, c.httpClient, "moonshot", c.baseURL, c.apiKey, c.model, system, user)
}

// Close is a no-op for the HTTP-based Moonshot client.
func (c *MoonshotClient) Close() error {
	return nil
}
