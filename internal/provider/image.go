package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"picbook/pkg/utils"
)

// ImageRequest carries one page's illustration prompt plus the style
// snapshot shared by the whole batch.
type ImageRequest struct {
	Prompt   string
	Style    string
	Substyle string
	Size     string
}

// ImageClient is the image-generation provider. Generate returns a URL
// for the rendered picture.
type ImageClient interface {
	Generate(ctx context.Context, req ImageRequest) (string, error)
}

// HTTPImageClient talks to a Recraft-style images/generations endpoint.
type HTTPImageClient struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewImageClient(cfg utils.ProviderConfig) *HTTPImageClient {
	return &HTTPImageClient{
		BaseURL: cfg.ImageBaseURL,
		APIKey:  cfg.ImageAPIKey,
		Client:  &http.Client{Timeout: cfg.ImageTimeout},
	}
}

type imageRequestBody struct {
	Prompt         string `json:"prompt"`
	Style          string `json:"style,omitempty"`
	Substyle       string `json:"substyle,omitempty"`
	Size           string `json:"size,omitempty"`
	N              int    `json:"n"`
	ResponseFormat string `json:"response_format"`
}

type imageResponseBody struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

func (c *HTTPImageClient) Generate(ctx context.Context, r ImageRequest) (string, error) {
	if c.APIKey == "" {
		return "", &ConfigError{Provider: "image", Missing: "PICBOOK_IMAGE_API_KEY"}
	}

	payload := imageRequestBody{
		Prompt:         r.Prompt,
		Style:          r.Style,
		Substyle:       r.Substyle,
		Size:           r.Size,
		N:              1,
		ResponseFormat: "url",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("image: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/images/generations", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("image: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", &TransportError{Op: "image: request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &TransportError{
			Op:  "image: request",
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(b)),
		}
	}

	var decoded imageResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("image: decode response: %w", err)
	}
	if len(decoded.Data) == 0 || decoded.Data[0].URL == "" {
		return "", fmt.Errorf("image: response has no image url")
	}
	return decoded.Data[0].URL, nil
}
