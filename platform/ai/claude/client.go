// Package claude is a minimal client for the Anthropic messages API.
// The pipeline only needs single-turn text completions, so the client
// exposes exactly that and nothing else.
package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"autolead_backend/platform/config"
)

const (
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 1024
)

// ErrDisabled is returned when no API key is configured. Callers treat it
// like any other failure and fall back to their degraded result.
var ErrDisabled = errors.New("claude: client disabled, no api key configured")

// Client calls the Anthropic messages endpoint.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// New creates a Client from config. The HTTP timeout doubles as the per-call
// budget; callers add their own context deadlines on top.
func New(cfg config.AIConfig) *Client {
	return &Client{
		apiKey:  cfg.GetAnthropicAPIKey(),
		baseURL: strings.TrimRight(cfg.GetAnthropicBaseURL(), "/"),
		model:   cfg.GetAnthropicModel(),
		client:  &http.Client{Timeout: cfg.GetAITimeout()},
	}
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends one user prompt with an optional system prompt and returns
// the model's text. Transient failures are retried once with a short backoff.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", ErrDisabled
	}

	text, err := c.complete(ctx, system, prompt)
	if err == nil {
		return text, nil
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(2 * time.Second):
	}

	return c.complete(ctx, system, prompt)
}

func (c *Client) complete(ctx context.Context, system, prompt string) (string, error) {
	payload := messageRequest{
		Model:     c.model,
		MaxTokens: defaultMaxTokens,
		System:    system,
		Messages:  []message{{Role: "user", Content: prompt}},
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result messageResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode claude response: %w", err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("claude api error (%s): %s", result.Error.Type, result.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("claude api error: status %d", resp.StatusCode)
	}

	var b strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", errors.New("claude api error: empty completion")
	}

	return text, nil
}
