package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Generator defines the interface for the generative extraction step. The
// system prompt carries the merge instructions, the user prompt carries the
// new transcript.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
	Close() error
}

// APIError is a classified failure from a hosted provider. The session layer
// uses the classification to decide between deterministic fallback and a hard
// extraction failure.
type APIError struct {
	Provider   string
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d, type %q): %s", e.Provider, e.StatusCode, e.Type, e.Message)
}

// IsUnavailable reports whether err represents a missing-credentials or
// credit/quota condition. Only these error classes may be recovered by the
// deterministic fallback extractor; anything else must surface to the caller.
func IsUnavailable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case 401, 402, 403, 429:
		return true
	}
	switch apiErr.Type {
	case "authentication_error", "insufficient_quota", "rate_limit_error", "invalid_request_error":
		return true
	}
	return strings.Contains(apiErr.Message, "credit balance")
}
