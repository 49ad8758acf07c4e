package toolcall

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SearchResult is one hit from the search side-channel.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Quote is one symbol row from the quotes side-channel.
type Quote struct {
	Symbol     string  `json:"symbol"`
	Price      float64 `json:"price"`
	Change     float64 `json:"change"`
	ChangePct  float64 `json:"changePct"`
	Currency   string  `json:"currency"`
	MarketTime int64   `json:"marketTime"`
}

// Weather is the current-conditions response from the weather
// side-channel.
type Weather struct {
	Name        string
	Temp        float64
	Description string
}

// Fetcher executes the side-channel lookups a directive may request.
type Fetcher interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
	Quotes(ctx context.Context, symbols []string) ([]Quote, error)
	Weather(ctx context.Context, location string) (*Weather, error)
}

// FetchConfig holds the side-channel endpoint locations.
type FetchConfig struct {
	SearchURL   string
	SearchKey   string
	QuotesURL   string
	QuotesKey   string
	WeatherURL  string
	WeatherKey  string
	SearchLimit int
	HTTPClient  *http.Client
}

type httpFetcher struct {
	cfg  FetchConfig
	http *http.Client
}

// NewFetcher creates the HTTP side-channel fetcher.
func NewFetcher(cfg FetchConfig) Fetcher {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = 5
	}
	return &httpFetcher{cfg: cfg, http: hc}
}

func (f *httpFetcher) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = f.cfg.SearchLimit
	}

	q := url.Values{}
	q.Set("query", query)
	q.Set("limit", strconv.Itoa(limit))

	var payload struct {
		Results []SearchResult `json:"results"`
	}
	if err := f.getJSON(ctx, f.cfg.SearchURL, f.cfg.SearchKey, q, &payload); err != nil {
		return nil, fmt.Errorf("search lookup: %w", err)
	}
	return payload.Results, nil
}

func (f *httpFetcher) Quotes(ctx context.Context, symbols []string) ([]Quote, error) {
	q := url.Values{}
	q.Set("symbols", strings.Join(symbols, ","))

	var quotes []Quote
	if err := f.getJSON(ctx, f.cfg.QuotesURL, f.cfg.QuotesKey, q, &quotes); err != nil {
		return nil, fmt.Errorf("quotes lookup: %w", err)
	}
	return quotes, nil
}

func (f *httpFetcher) Weather(ctx context.Context, location string) (*Weather, error) {
	q := url.Values{}
	if lat, lon, ok := parseLatLon(location); ok {
		q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
		q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	} else {
		q.Set("q", location)
	}

	// OpenWeather-shaped body: name, main.temp, weather[].description.
	var payload struct {
		Name string `json:"name"`
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
	}
	if err := f.getJSON(ctx, f.cfg.WeatherURL, f.cfg.WeatherKey, q, &payload); err != nil {
		return nil, fmt.Errorf("weather lookup: %w", err)
	}

	w := &Weather{Name: payload.Name, Temp: payload.Main.Temp}
	if len(payload.Weather) > 0 {
		w.Description = payload.Weather[0].Description
	}
	return w, nil
}

func (f *httpFetcher) getJSON(ctx context.Context, baseURL, apiKey string, q url.Values, out any) error {
	if baseURL == "" {
		return fmt.Errorf("endpoint not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// parseLatLon accepts "lat,lon" with optional whitespace.
func parseLatLon(s string) (lat, lon float64, ok bool) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLat != nil || errLon != nil {
		return 0, 0, false
	}
	return lat, lon, true
}
