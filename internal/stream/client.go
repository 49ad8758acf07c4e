package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/6ixplatform/6ix-sub001/common/logger"
)

// Config holds completion transport configuration.
type Config struct {
	BaseURL       string // Required: completion endpoint URL
	APIKey        string // Optional: bearer token
	Model         string // Default model when the request leaves it empty
	ResolvedModel string
	HTTPClient    *http.Client // Optional: defaults to a client with no timeout (cancellation is cooperative)
}

type httpClient struct {
	cfg  Config
	http *http.Client
}

// New creates the completion transport.
func New(cfg Config) (Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("completion base URL is required")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		// No timeout: long generations are stopped by user-initiated
		// cancellation, not a deadline.
		hc = &http.Client{}
	}
	return &httpClient{cfg: cfg, http: hc}, nil
}

func (c *httpClient) Stream(ctx context.Context, req Request, onDelta Sink) (string, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "six.stream.transport",
	})

	if req.Model == "" {
		req.Model = c.cfg.Model
	}
	if req.ResolvedModel == "" {
		req.ResolvedModel = c.cfg.ResolvedModel
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encoding completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream, application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		// A canceled request surfaces as ctx.Err() so the caller can
		// distinguish a stop from a transport failure.
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("calling completion endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", &TransportError{Status: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}

	// Framed and single-body responses go through the same block
	// decoder, so callers observe identical delta semantics in both
	// transport modes.
	full, err := decode(ctx, resp.Body, onDelta)

	slog.DebugContext(ctx, "completion stream finished",
		"model", req.Model,
		"duration_ms", time.Since(start).Milliseconds(),
		"chars", len(full),
		"canceled", errors.Is(err, context.Canceled))

	return full, err
}
