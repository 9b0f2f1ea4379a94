package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cvposts-backend/internal/llm"
	"cvposts-backend/internal/shared/telemetry"
	"cvposts-backend/internal/shared/util"
)

const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultModel      = "gpt-4o-2024-11-20"
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 2

	defaultRetryBaseDelay = 500 * time.Millisecond
	maxErrorBody          = 4 << 10
)

// Options configures a Client. Zero values take the package defaults.
type Options struct {
	BaseURL        string
	Model          string
	Timeout        time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// Client implements llm.Provider against the OpenAI REST API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	maxRetries int
	baseDelay  time.Duration
	httpClient *http.Client
}

// NewClient validates apiKey and constructs a client bound to opts.
func NewClient(apiKey string, opts Options) (*Client, error) {
	if err := llm.ValidateAPIKey(apiKey); err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(opts.Model) == "" {
		opts.Model = DefaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = defaultRetryBaseDelay
	}

	telemetry.Debug("llm.client_created", map[string]any{
		"base_url":        opts.BaseURL,
		"model":           opts.Model,
		"timeout_s":       opts.Timeout.Seconds(),
		"max_retries":     opts.MaxRetries,
		"key_fingerprint": util.Fingerprint(apiKey),
	})

	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		model:      opts.Model,
		maxRetries: opts.MaxRetries,
		baseDelay:  opts.RetryBaseDelay,
		httpClient: &http.Client{Timeout: opts.Timeout},
	}, nil
}

// NewFactory returns an llm.Factory producing clients with opts.
func NewFactory(opts Options) llm.Factory {
	return func(apiKey string) (llm.Provider, error) {
		return NewClient(apiKey, opts)
	}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []llm.Message   `json:"messages"`
	Temperature    *float32        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message llm.Message `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

type errorEnvelope struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

type modelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Chat sends one chat completion and returns the first choice's trimmed text.
func (c *Client) Chat(ctx context.Context, in llm.ChatRequest) (string, error) {
	model := in.Model
	if strings.TrimSpace(model) == "" {
		model = c.model
	}
	temp := in.Temperature
	body := chatRequest{
		Model:       model,
		Messages:    in.Messages,
		Temperature: &temp,
		MaxTokens:   in.MaxTokens,
	}
	if in.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var parsed chatResponse
	err := c.withRetry(ctx, in.Purpose, func() error {
		return c.do(ctx, http.MethodPost, "/chat/completions", body, &parsed)
	})
	if err != nil && body.Temperature != nil && isUnsupportedTemperature(err) {
		// Some models only accept their default temperature.
		body.Temperature = nil
		err = c.withRetry(ctx, in.Purpose, func() error {
			return c.do(ctx, http.MethodPost, "/chat/completions", body, &parsed)
		})
	}
	if err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai response missing choices")
	}

	if parsed.Usage != nil {
		telemetry.Debug("llm.response", map[string]any{
			"request_id":        telemetry.RequestID(ctx),
			"purpose":           in.Purpose,
			"model":             parsed.Model,
			"prompt_tokens":     parsed.Usage.PromptTokens,
			"completion_tokens": parsed.Usage.CompletionTokens,
			"total_tokens":      parsed.Usage.TotalTokens,
		})
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// ListModels returns the model IDs visible to the key. A successful call
// proves the key is live.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	var parsed modelsResponse
	err := c.withRetry(ctx, "list_models", func() error {
		return c.do(ctx, http.MethodGet, "/models", nil, &parsed)
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(parsed.Data))
	for _, m := range parsed.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any, out any) error {
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return fmt.Errorf("openai request timeout: %w", err)
		}
		return fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("openai read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return providerError(resp, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("openai response parse: %w", err)
	}
	return nil
}

func providerError(resp *http.Response, body []byte) *llm.ProviderError {
	pe := &llm.ProviderError{StatusCode: resp.StatusCode}
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		pe.Message = env.Error.Message
		pe.Type = env.Error.Type
		if env.Error.Code != nil {
			pe.Code = fmt.Sprint(env.Error.Code)
		}
	} else {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		pe.Message = strings.TrimSpace(string(body))
	}
	if raw := resp.Header.Get("Retry-After"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			pe.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return pe
}

func isUnsupportedTemperature(err error) bool {
	var pe *llm.ProviderError
	if !errors.As(err, &pe) || pe.StatusCode != http.StatusBadRequest {
		return false
	}
	msg := strings.ToLower(pe.Message)
	return strings.Contains(msg, "temperature") && strings.Contains(msg, "unsupported")
}

var _ llm.Provider = (*Client)(nil)
