package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tcerrors "github.com/mrz1836/taskclock/internal/errors"
)

func replyWith(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(b)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *ChatClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewChatClient(ChatOptions{
		BaseURL:    srv.URL + "/v1/",
		Model:      "test-model",
		APIKey:     "sk-test",
		MaxRetries: 3,
	}, zerolog.Nop())
	require.NoError(t, err)
	c.initialBackoff = time.Millisecond
	return c
}

func TestChatClient_SuggestDuration(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		if !assert.Len(t, req.Messages, 2) {
			return
		}
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "编写代码", req.Messages[1].Content)

		_, _ = w.Write([]byte(replyWith("45")))
	})

	minutes, err := c.SuggestDuration(context.Background(), "  编写代码 ")
	require.NoError(t, err)
	assert.Equal(t, 45, minutes)
}

func TestChatClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			_, _ = w.Write([]byte(replyWith("About 30 minutes")))
		}
	})

	minutes, err := c.SuggestDuration(context.Background(), "deploy")
	require.NoError(t, err)
	assert.Equal(t, 30, minutes)
	assert.Equal(t, int32(3), calls.Load())
}

func TestChatClient_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.SuggestDuration(context.Background(), "deploy")
	require.ErrorIs(t, err, tcerrors.ErrSuggestionFailed)
	assert.Contains(t, err.Error(), "max retries (3)")
	assert.Equal(t, int32(3), calls.Load())
}

func TestChatClient_ClientErrorFailsFast(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"auth"}}`))
	})

	_, err := c.SuggestDuration(context.Background(), "deploy")
	require.ErrorIs(t, err, tcerrors.ErrSuggestionFailed)
	assert.Contains(t, err.Error(), "bad key")
	assert.Equal(t, int32(1), calls.Load())
}

func TestChatClient_InvalidReplies(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no number", replyWith("a while")},
		{"zero", replyWith("0")},
		{"no choices", `{"choices":[]}`},
		{"not json", `<html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.SuggestDuration(context.Background(), "deploy")
			require.ErrorIs(t, err, tcerrors.ErrSuggestionInvalid)
		})
	}
}

func TestChatClient_EmptyTitle(t *testing.T) {
	c := newTestClient(t, func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected")
	})

	_, err := c.SuggestDuration(context.Background(), "   ")
	require.ErrorIs(t, err, tcerrors.ErrEmptyValue)
}

func TestChatClient_ContextCanceledDuringBackoff(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	c.initialBackoff = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.SuggestDuration(ctx, "deploy")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewChatClient(t *testing.T) {
	_, err := NewChatClient(ChatOptions{}, zerolog.Nop())
	require.ErrorIs(t, err, tcerrors.ErrMissingAPIKey)

	c, err := NewChatClient(ChatOptions{APIKey: "k"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", c.endpoint)
	assert.Equal(t, "gpt-4o-mini", c.model)
	assert.Equal(t, 3, c.maxRetries)
}

func TestParseMinutes(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"25", 25},
		{"  90\n", 90},
		{"建议 40 分钟", 40},
		{"15-20 minutes", 15},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseMinutes(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNopSuggester(t *testing.T) {
	var s Suggester = NopSuggester{}
	minutes, err := s.SuggestDuration(context.Background(), "x")
	require.NoError(t, err)
	assert.Zero(t, minutes)
}
