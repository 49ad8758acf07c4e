package attach

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// AnalysisRequestFile describes one ready attachment sent for analysis.
type AnalysisRequestFile struct {
	Name string `json:"name"`
	Mime string `json:"mime"`
	URL  string `json:"url"`
}

// AnalysisResponse is the analysis endpoint's verdict over a file
// batch. Blank marks batches with no extractable content.
type AnalysisResponse struct {
	Summary   string   `json:"summary"`
	Reply     string   `json:"reply,omitempty"`
	FollowUps []string `json:"followups,omitempty"`
	Blank     bool     `json:"blank,omitempty"`
}

// Analyzer calls the file analysis endpoint.
type Analyzer interface {
	Analyze(ctx context.Context, files []AnalysisRequestFile, plan, model, prompt string) (*AnalysisResponse, error)
}

// AnalyzerConfig holds the analysis endpoint settings.
type AnalyzerConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

type httpAnalyzer struct {
	cfg  AnalyzerConfig
	http *http.Client
}

func NewAnalyzer(cfg AnalyzerConfig) (Analyzer, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("analysis base URL is required")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	return &httpAnalyzer{cfg: cfg, http: hc}, nil
}

func (a *httpAnalyzer) Analyze(ctx context.Context, files []AnalysisRequestFile, plan, model, prompt string) (*AnalysisResponse, error) {
	if model == "" {
		model = a.cfg.Model
	}

	body, err := json.Marshal(struct {
		Files  []AnalysisRequestFile `json:"files"`
		Plan   string                `json:"plan"`
		Model  string                `json:"model"`
		Prompt string                `json:"prompt,omitempty"`
	}{Files: files, Plan: plan, Model: model, Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("encoding analysis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building analysis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("analysis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("analysis endpoint status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out AnalysisResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding analysis response: %w", err)
	}
	return &out, nil
}
