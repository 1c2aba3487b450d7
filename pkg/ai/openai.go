package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	openAIDefaultBaseURL = "https://api.openai.com/v1"
	openAIDefaultModel   = "gpt-4o-mini"
)

// OpenAIClient implements the Generator interface using the OpenAI chat
// completions API.
type OpenAIClient struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
}

var _ Generator = (*OpenAIClient)(nil)

// NewOpenAIClient creates a new OpenAI API client.
func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		httpClient: &http.Client{},
		apiKey:     apiKey,
		model:      openAIDefaultModel,
		baseURL:    openAIDefaultBaseURL,
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *chatError   `json:"error,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Generate sends the prompts to OpenAI and returns the generated text.
func (c *OpenAIClient) Generate(ctx context.Context, system, user string) (string, error) {
	return generateChat(ctx, c.httpClient, "openai", c.baseURL, c.apiKey, c.model, system, user)
}

// Close is a no-op for the HTTP-based OpenAI client.
func (c *OpenAIClient) Close() error {
	return nil
}

// generateChat implements the OpenAI-compatible chat completions exchange
// shared by the OpenAI and Moonshot clients.
func generateChat(ctx context.Context, httpClient *http.Client, provider, baseURL, apiKey, model, system, user string) (string, error) {
	messages := []chatMessage{}
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: user})

	reqBody := chatRequest{Model: model, Messages: messages}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var result chatResponse
	if err := json.Unmarshal(respBytes, &result); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", &APIError{Provider: provider, StatusCode: resp.StatusCode, Message: string(respBytes)}
		}
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || result.Error != nil {
		apiErr := &APIError{Provider: provider, StatusCode: resp.StatusCode}
		if result.Error != nil {
			apiErr.Type = result.Error.Type
			apiErr.Message = result.Error.Message
		} else {
			apiErr.Message = string(respBytes)
		}
		return "", apiErr
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}

	return result.Choices[0].Message.Content, nil
}
