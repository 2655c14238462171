package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const apiURL = "https://api.anthropic.com/v1/messages"

var (
	// ErrConfiguration means the client cannot issue calls at all (missing credential).
	// No request is sent when it is returned.
	ErrConfiguration = errors.New("text generation not configured")
	// ErrGeneration wraps transport, auth, rate-limit and empty-response failures.
	ErrGeneration = errors.New("text generation failed")
)

// Completer is the text-generation collaborator used by the judge, the
// challenger, the evaluator and the committee.
type Completer interface {
	Complete(ctx context.Context, system string, messages []Message, maxTokens int) (string, error)
}

// CompleterFunc adapts a plain function to the Completer interface.
type CompleterFunc func(ctx context.Context, system string, messages []Message, maxTokens int) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, system string, messages []Message, maxTokens int) (string, error) {
	return f(ctx, system, messages, maxTokens)
}

type Client struct {
	apiKey  string
	model   string
	apiURL  string
	client  *http.Client
	retries int
	initial time.Duration
}

func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		apiURL:  apiURL,
		client:  &http.Client{Timeout: 120 * time.Second},
		retries: 2,
		initial: 500 * time.Millisecond,
	}
}

// SetTestTransport points the client at a test server.
func (c *Client) SetTestTransport(url string) {
	c.apiURL = url
}

// SetRetries configures how many times a retryable failure (transport error,
// 429, 5xx) is retried and the first backoff interval.
func (c *Client) SetRetries(retries int, initial time.Duration) {
	if retries < 0 {
		retries = 0
	}
	c.retries = retries
	if initial > 0 {
		c.initial = initial
	}
}

func (c *Client) Model() string {
	return c.model
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
}

type response struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends a message to the Anthropic API and returns the text response.
func (c *Client) Complete(ctx context.Context, system string, messages []Message, maxTokens int) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: ANTHROPIC_API_KEY is empty", ErrConfiguration)
	}

	body, err := json.Marshal(request{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  messages,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var text string
	op := func() error {
		t, err := c.send(ctx, body)
		if err != nil {
			return err
		}
		text = t
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initial
	policy.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.retries)), ctx)

	if err := backoff.Retry(op, b); err != nil {
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	return text, nil
}

// send performs one round-trip. Errors that a retry cannot fix are marked permanent.
func (c *Client) send(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", backoff.Permanent(fmt.Errorf("api call: %w", err))
		}
		return "", fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr error
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Type != "" {
			apiErr = fmt.Errorf("api error %d: %s: %s", resp.StatusCode, errResp.Error.Type, errResp.Error.Message)
		} else {
			apiErr = fmt.Errorf("api error %d: %s", resp.StatusCode, string(respBody))
		}
		if isRetryableStatus(resp.StatusCode) {
			return "", apiErr
		}
		return "", backoff.Permanent(apiErr)
	}

	var apiResp response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", backoff.Permanent(fmt.Errorf("unmarshal response: %w", err))
	}

	if len(apiResp.Content) == 0 || apiResp.Content[0].Text == "" {
		return "", backoff.Permanent(fmt.Errorf("empty response content"))
	}

	return apiResp.Content[0].Text, nil
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
