package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrDisabled signals that the AI service is disabled via configuration.
var ErrDisabled = errors.New("ai: service disabled")

// Client defines the opaque text-in/text-out tutor collaborator.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Settings capture the runtime configuration for the HTTP client.
type Settings struct {
	Enabled bool
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type httpClient struct {
	cfg  Settings
	http *http.Client
}

// NewHTTPClient builds a Client that calls a chat-completion style endpoint.
func NewHTTPClient(cfg Settings) (Client, error) {
	if cfg.Enabled && strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("ai: base url is required when enabled")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &httpClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type completionRequest struct {
	Model    string              `json:"model,omitempty"`
	Messages []completionMessage `json:"messages"`
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionResponse struct {
	Choices []struct {
		Message completionMessage `json:"message"`
	} `json:"choices"`
}

func (c *httpClient) Complete(ctx context.Context, prompt string) (string, error) {
	if !c.cfg.Enabled {
		return "", ErrDisabled
	}
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("ai: prompt is required")
	}

	payload, err := json.Marshal(completionRequest{
		Model: c.cfg.Model,
		Messages: []completionMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("ai: encode request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("ai: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ai: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("ai: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ai: unexpected status %d", resp.StatusCode)
	}

	var completion completionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("ai: decode response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("ai: empty completion")
	}

	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}
