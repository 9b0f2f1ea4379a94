package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvposts-backend/internal/llm"
)

func newTestClient(t *testing.T, url string, retries int) *Client {
	t.Helper()
	c, err := NewClient("sk-test-key", Options{
		BaseURL:        url,
		Model:          "gpt-test",
		Timeout:        2 * time.Second,
		MaxRetries:     retries,
		RetryBaseDelay: time.Millisecond,
	})
	require.NoError(t, err)
	return c
}

func TestNewClientRejectsBadKey(t *testing.T) {
	_, err := NewClient("not-a-key", Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, llm.ErrInvalidCredential))

	_, err = NewClient("", Options{})
	assert.True(t, errors.Is(err, llm.ErrInvalidCredential))
}

func TestNewClientDefaults(t *testing.T) {
	c, err := NewClient("sk-abc", Options{MaxRetries: -1})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, DefaultModel, c.model)
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)
	assert.Equal(t, 0, c.maxRetries)
}

func TestChatSendsRequestAndReturnsFirstChoice(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"gpt-test","choices":[{"message":{"role":"assistant","content":"  hello world \n"}},{"message":{"content":"second"}}],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	out, err := c.Chat(context.Background(), llm.ChatRequest{
		Messages:    []llm.Message{{Role: "user", Content: "hi"}},
		Temperature: 0.7,
		MaxTokens:   500,
		JSON:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)

	assert.Equal(t, "gpt-test", payload["model"])
	assert.InDelta(t, 0.7, payload["temperature"], 1e-6)
	assert.EqualValues(t, 500, payload["max_tokens"])
	assert.Equal(t, map[string]any{"type": "json_object"}, payload["response_format"])
}

func TestChatOmitsResponseFormatWhenNotJSON(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&payload)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 0).Chat(context.Background(), llm.ChatRequest{Model: "override"})
	require.NoError(t, err)
	_, has := payload["response_format"]
	assert.False(t, has)
	assert.Equal(t, "override", payload["model"])
}

func TestChatRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests"}}`))
		case 2:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`upstream down`))
		default:
			_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"third time lucky"}}]}`))
		}
	}))
	defer srv.Close()

	out, err := newTestClient(t, srv.URL, 2).Chat(context.Background(), llm.ChatRequest{Purpose: "test"})
	require.NoError(t, err)
	assert.Equal(t, "third time lucky", out)
	assert.EqualValues(t, 3, calls.Load())
}

func TestChatGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 2).Chat(context.Background(), llm.ChatRequest{})
	require.Error(t, err)
	var pe *llm.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusServiceUnavailable, pe.StatusCode)
	assert.EqualValues(t, 3, calls.Load())
}

func TestChatDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 2).Chat(context.Background(), llm.ChatRequest{})
	var pe *llm.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.True(t, pe.Unauthorized())
	assert.Equal(t, "invalid_api_key", pe.Code)
	assert.Equal(t, "Incorrect API key provided", pe.Message)
	assert.EqualValues(t, 1, calls.Load())
}

func TestChatRetriesWithoutUnsupportedTemperature(t *testing.T) {
	var mu sync.Mutex
	var bodies []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		mu.Lock()
		bodies = append(bodies, payload)
		n := len(bodies)
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"Unsupported value: 'temperature' does not support 0.7 with this model.","type":"invalid_request_error"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	out, err := newTestClient(t, srv.URL, 0).Chat(context.Background(), llm.ChatRequest{Temperature: 0.7})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 2)
	_, first := bodies[0]["temperature"]
	_, second := bodies[1]["temperature"]
	assert.True(t, first)
	assert.False(t, second)
}

func TestChatMissingChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 0).Chat(context.Background(), llm.ChatRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing choices")
}

func TestChatHonorsCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewClient("sk-test", Options{BaseURL: srv.URL, MaxRetries: 5, RetryBaseDelay: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = c.Chat(ctx, llm.ChatRequest{})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[{"id":"gpt-4o"},{"id":"gpt-4o-mini"}]}`))
	}))
	defer srv.Close()

	ids, err := newTestClient(t, srv.URL, 0).ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini"}, ids)
}

func TestFactoryValidatesKey(t *testing.T) {
	f := NewFactory(Options{})
	_, err := f("bad")
	assert.True(t, errors.Is(err, llm.ErrInvalidCredential))
	p, err := f("sk-good")
	require.NoError(t, err)
	assert.NotNil(t, p)
}
