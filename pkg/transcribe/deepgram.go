package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	deepgramDefaultBaseURL = "https://api.deepgram.com/v1"
	deepgramDefaultModel   = "nova-2"
)

// Result is the transcription outcome consumed by the pipeline.
type Result struct {
	Transcript string
	Confidence float64
	Duration   float64 // seconds
}

// Error is a failure reported by the transcription service. Transcription
// failures are always fatal to the current recording; there is no fallback.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("deepgram API error (status %d): %s", e.StatusCode, e.Message)
}

// Client talks to the Deepgram prerecorded transcription API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
}

// NewClient creates a new Deepgram client.
func NewClient(apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{},
		apiKey:     apiKey,
		model:      deepgramDefaultModel,
		baseURL:    deepgramDefaultBaseURL,
	}
}

type deepgramResponse struct {
	Metadata struct {
		Duration float64 `json:"duration"`
	} `json:"metadata"`
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe submits raw audio bytes with their MIME type.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (Result, error) {
	if len(audio) == 0 {
		return Result{}, fmt.Errorf("no audio data provided")
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return c.listen(ctx, bytes.NewReader(audio), mimeType)
}

// TranscribeURL submits a publicly reachable audio URL.
func (c *Client) TranscribeURL(ctx context.Context, audioURL string) (Result, error) {
	if !strings.HasPrefix(audioURL, "http") {
		return Result{}, fmt.Errorf("invalid audio URL %q", audioURL)
	}
	body, err := json.Marshal(map[string]string{"url": audioURL})
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.listen(ctx, bytes.NewReader(body), "application/json")
}

func (c *Client) listen(ctx context.Context, body io.Reader, contentType string) (Result, error) {
	q := url.Values{}
	q.Set("model", c.model)
	q.Set("smart_format", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/listen?"+q.Encode(), body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Token "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Result{}, &Error{StatusCode: resp.StatusCode, Message: string(respBytes)}
	}

	var parsed deepgramResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return Result{}, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(parsed.Results.Channels) == 0 || len(parsed.Results.Channels[0].Alternatives) == 0 {
		return Result{}, fmt.Errorf("no transcript in response")
	}
	alt := parsed.Results.Channels[0].Alternatives[0]
	if strings.TrimSpace(alt.Transcript) == "" {
		return Result{}, fmt.Errorf("no usable transcript in audio")
	}

	return Result{
		Transcript: alt.Transcript,
		Confidence: alt.Confidence,
		Duration:   parsed.Metadata.Duration,
	}, nil
}
