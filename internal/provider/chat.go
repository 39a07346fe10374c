package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"picbook/pkg/utils"
)

// ChatClient is the text-generation provider. Complete sends one
// system+user exchange and returns the model's answer verbatim.
type ChatClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// HTTPChatClient talks to an OpenAI-compatible chat-completions endpoint.
type HTTPChatClient struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client
}

func NewChatClient(cfg utils.ProviderConfig) *HTTPChatClient {
	return &HTTPChatClient{
		BaseURL: cfg.ChatBaseURL,
		APIKey:  cfg.ChatAPIKey,
		Model:   cfg.ChatModel,
		Client:  &http.Client{Timeout: cfg.ChatTimeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *HTTPChatClient) Complete(ctx context.Context, system, user string) (string, error) {
	if c.APIKey == "" {
		return "", &ConfigError{Provider: "chat", Missing: "PICBOOK_CHAT_API_KEY"}
	}

	payload := chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.8,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("chat: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("chat: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", &TransportError{Op: "chat: request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// read a bit of the body for the log line, then discard
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &TransportError{
			Op:  "chat: request",
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(b)),
		}
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("chat: decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("chat: response has no choices")
	}
	return decoded.Choices[0].Message.Content, nil
}

// WithTimeout returns a copy using the given HTTP timeout. Used by the
// theme suggester, which wants a much shorter wait than story generation.
func (c *HTTPChatClient) WithTimeout(d time.Duration) *HTTPChatClient {
	clone := *c
	clone.Client = &http.Client{Timeout: d}
	return &clone
}
