package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CredentialPrefix is the prefix every provider key must carry.
const CredentialPrefix = "sk-"

// ErrInvalidCredential is returned for missing or malformed provider keys.
var ErrInvalidCredential = errors.New("invalid API key format")

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest describes a single chat completion call.
type ChatRequest struct {
	// Purpose names the pipeline step for logs and metrics.
	Purpose     string
	Model       string
	Messages    []Message
	Temperature float32
	MaxTokens   int
	// JSON asks the provider for a JSON object response.
	JSON bool
}

// Client performs chat completions and returns the first choice's text.
type Client interface {
	Chat(ctx context.Context, req ChatRequest) (string, error)
}

// Provider is a Client that can also list models, which is how a credential
// is verified against the live API.
type Provider interface {
	Client
	ListModels(ctx context.Context) ([]string, error)
}

// Factory builds a Provider bound to the caller's key.
type Factory func(apiKey string) (Provider, error)

// ValidateAPIKey checks a key locally without contacting the provider.
func ValidateAPIKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: API key is required", ErrInvalidCredential)
	}
	if !strings.HasPrefix(key, CredentialPrefix) {
		return fmt.Errorf("%w: API key should start with %q", ErrInvalidCredential, CredentialPrefix)
	}
	return nil
}

// ProviderError is a non-2xx response from the model provider.
type ProviderError struct {
	StatusCode int
	Type       string
	Code       string
	Message    string
	RetryAfter time.Duration
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "request failed"
	}
	if e.Type != "" {
		return fmt.Sprintf("provider http status %d: %s (%s)", e.StatusCode, msg, e.Type)
	}
	return fmt.Sprintf("provider http status %d: %s", e.StatusCode, msg)
}

// Unauthorized reports whether the provider rejected the credential.
func (e *ProviderError) Unauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// CleanJSON strips markdown code fences models sometimes wrap JSON in.
func CleanJSON(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag line, e.g. ```json
		if tag := strings.TrimSpace(s[:nl]); !strings.ContainsAny(tag, "{[") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
