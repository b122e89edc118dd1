// Package ai asks a language-model service how long a task should take.
//
// The client speaks the OpenAI-compatible chat-completions protocol, so any
// provider exposing that endpoint can be configured through ai.base_url.
//
// Import rules:
//   - CAN import: internal/constants, internal/errors
//   - MUST NOT import: internal/tracker, internal/server, internal/cli
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/taskclock/internal/constants"
	tcerrors "github.com/mrz1836/taskclock/internal/errors"
)

// systemPrompt instructs the model to answer with a bare number of minutes.
const systemPrompt = "You estimate how long personal to-do items take. " +
	"Reply with a single positive integer: the number of minutes the task needs. " +
	"Do not add units or any other text."

// maxErrorBody caps how much of an error response is kept in the error text.
const maxErrorBody = 512

//nolint:gochecknoglobals // compiled once
var firstInteger = regexp.MustCompile(`\d+`)

// Suggester proposes a completion duration, in minutes, for a task title.
type Suggester interface {
	SuggestDuration(ctx context.Context, title string) (int, error)
}

// NopSuggester never suggests anything. It is used when suggestions are
// disabled or no API key is available.
type NopSuggester struct{}

// SuggestDuration implements Suggester and always returns 0.
func (NopSuggester) SuggestDuration(context.Context, string) (int, error) { return 0, nil }

// ChatOptions configures a ChatClient.
type ChatOptions struct {
	BaseURL    string
	Model      string
	APIKey     string //nolint:gosec // value is never logged
	Timeout    time.Duration
	MaxRetries int
}

// ChatClient is a Suggester backed by a chat-completions endpoint.
type ChatClient struct {
	endpoint       string
	model          string
	apiKey         string
	maxRetries     int
	initialBackoff time.Duration
	client         *http.Client
	logger         zerolog.Logger
}

// NewChatClient creates a ChatClient. It fails with ErrMissingAPIKey when
// opts.APIKey is empty.
func NewChatClient(opts ChatOptions, logger zerolog.Logger) (*ChatClient, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, tcerrors.ErrMissingAPIKey
	}
	if opts.BaseURL == "" {
		opts.BaseURL = constants.DefaultAIBaseURL
	}
	if opts.Model == "" {
		opts.Model = constants.DefaultAIModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = constants.DefaultAITimeout
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = constants.DefaultAIMaxRetries
	}

	return &ChatClient{
		endpoint:       strings.TrimRight(opts.BaseURL, "/") + "/chat/completions",
		model:          opts.Model,
		apiKey:         opts.APIKey,
		maxRetries:     opts.MaxRetries,
		initialBackoff: constants.AIInitialBackoff,
		client:         &http.Client{Timeout: opts.Timeout},
		logger:         logger.With().Str("component", "ai").Logger(),
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// SuggestDuration asks the model for a duration in minutes.
// Rate limits and server errors are retried with exponential backoff;
// other client errors fail immediately.
func (c *ChatClient) SuggestDuration(ctx context.Context, title string) (int, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return 0, fmt.Errorf("title: %w", tcerrors.ErrEmptyValue)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: title},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			// 1s, 2s, 4s, ...
			delay := c.initialBackoff << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}

		content, retry, err := c.complete(ctx, body)
		if err == nil {
			minutes, perr := parseMinutes(content)
			if perr != nil {
				return 0, perr
			}
			c.logger.Debug().Str("title", title).Int("minutes", minutes).Msg("duration suggested")
			return minutes, nil
		}
		if !retry || ctx.Err() != nil {
			return 0, err
		}

		lastErr = err
		c.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("suggestion request failed, retrying")
	}

	return 0, fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// complete performs one request and returns the reply text and whether a
// failure is worth retrying.
func (c *ChatClient) complete(ctx context.Context, body []byte) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("%w: %w", tcerrors.ErrSuggestionFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("%w: failed to read response: %w", tcerrors.ErrSuggestionFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError
		return "", retry, fmt.Errorf("%w: status %d: %s", tcerrors.ErrSuggestionFailed, resp.StatusCode, errorMessage(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", false, fmt.Errorf("%w: failed to decode response: %w", tcerrors.ErrSuggestionInvalid, err)
	}
	if len(parsed.Choices) == 0 {
		return "", false, fmt.Errorf("%w: no choices in response", tcerrors.ErrSuggestionInvalid)
	}
	return parsed.Choices[0].Message.Content, false, nil
}

func errorMessage(body []byte) string {
	var e chatError
	if json.Unmarshal(body, &e) == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return strings.TrimSpace(string(body))
}

// parseMinutes extracts the first integer in the reply.
func parseMinutes(content string) (int, error) {
	match := firstInteger.FindString(content)
	if match == "" {
		return 0, fmt.Errorf("%w: no number in %q", tcerrors.ErrSuggestionInvalid, content)
	}
	minutes, err := strconv.Atoi(match)
	if err != nil || minutes <= 0 {
		return 0, fmt.Errorf("%w: %q", tcerrors.ErrSuggestionInvalid, match)
	}
	return minutes, nil
}
