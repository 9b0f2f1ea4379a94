package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAPIKey(t *testing.T) {
	cases := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "valid", key: "sk-abc123"},
		{name: "project key", key: "sk-proj-abc123"},
		{name: "empty", key: "", wantErr: true},
		{name: "blank", key: "   ", wantErr: true},
		{name: "wrong prefix", key: "pk-abc123", wantErr: true},
		{name: "upper prefix", key: "SK-abc123", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateAPIKey(tc.key)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidCredential))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestCleanJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, CleanJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, CleanJSON("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, CleanJSON("  {\"a\":1}  "))
	assert.Equal(t, `{"a":1}`, CleanJSON("```{\"a\":1}```"))
}

func TestProviderError(t *testing.T) {
	err := error(&ProviderError{StatusCode: 401, Type: "invalid_request_error", Message: "Incorrect API key provided"})
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.True(t, pe.Unauthorized())
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "Incorrect API key provided")

	assert.False(t, (&ProviderError{StatusCode: 500}).Unauthorized())
	assert.Contains(t, (&ProviderError{StatusCode: 500}).Error(), "request failed")
}

type scriptedClient struct {
	errs []error
	n    int
}

func (s *scriptedClient) Chat(ctx context.Context, req ChatRequest) (string, error) {
	defer func() { s.n++ }()
	if s.n < len(s.errs) && s.errs[s.n] != nil {
		return "", s.errs[s.n]
	}
	return "ok", nil
}

func TestCountingClient(t *testing.T) {
	inner := &scriptedClient{errs: []error{nil, errors.New("boom"), nil}}
	c := NewCountingClient(inner)

	for i := 0; i < 3; i++ {
		_, _ = c.Chat(context.Background(), ChatRequest{Purpose: "test"})
	}
	assert.EqualValues(t, 3, c.Calls())
	assert.EqualValues(t, 1, c.Failures())
}
