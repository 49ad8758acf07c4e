package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Client issues one image-synthesis request.
type Client interface {
	Generate(ctx context.Context, prompt, plan, model string) (string, error)
}

// Config holds the image endpoint settings.
type Config struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

type httpClient struct {
	cfg  Config
	http *http.Client
}

// New creates the image endpoint client. Like the completion client,
// no request timeout is set: cancellation is cooperative and driven by
// the job's context.
func New(cfg Config) (Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("image base URL is required")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &httpClient{cfg: cfg, http: hc}, nil
}

func (c *httpClient) Generate(ctx context.Context, prompt, plan, model string) (string, error) {
	body, err := json.Marshal(struct {
		Prompt string `json:"prompt"`
		Plan   string `json:"plan"`
		Model  string `json:"model,omitempty"`
	}{Prompt: prompt, Plan: plan, Model: model})
	if err != nil {
		return "", fmt.Errorf("encoding image request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building image request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("image request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("image endpoint status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var payload struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decoding image response: %w", err)
	}
	if payload.URL == "" {
		return "", fmt.Errorf("image endpoint returned no url")
	}
	return payload.URL, nil
}
