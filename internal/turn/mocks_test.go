package turn_test

import (
	"context"
	"io"
	"sync"

	"github.com/6ixplatform/6ix-sub001/internal/attach"
	"github.com/6ixplatform/6ix-sub001/internal/model"
	"github.com/6ixplatform/6ix-sub001/internal/store"
	"github.com/6ixplatform/6ix-sub001/internal/stream"
	"github.com/6ixplatform/6ix-sub001/internal/toolcall"
)

type mockStreamClient struct {
	mu       sync.Mutex
	calls    int
	streamFn func(ctx context.Context, req stream.Request, sink stream.Sink) (string, error)
}

func (m *mockStreamClient) Stream(ctx context.Context, req stream.Request, sink stream.Sink) (string, error) {
	m.mu.Lock()
	m.calls++
	fn := m.streamFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req, sink)
	}
	return "", nil
}

func (m *mockStreamClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockImageClient struct {
	mu         sync.Mutex
	calls      int
	generateFn func(ctx context.Context, prompt, plan, model string) (string, error)
}

func (m *mockImageClient) Generate(ctx context.Context, prompt, plan, model string) (string, error) {
	m.mu.Lock()
	m.calls++
	fn := m.generateFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, prompt, plan, model)
	}
	return "https://cdn.example.com/generated.png", nil
}

func (m *mockImageClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockAnalyzer struct {
	mu        sync.Mutex
	lastFiles []attach.AnalysisRequestFile
	analyzeFn func(ctx context.Context, files []attach.AnalysisRequestFile, plan, model, prompt string) (*attach.AnalysisResponse, error)
}

func (m *mockAnalyzer) Analyze(ctx context.Context, files []attach.AnalysisRequestFile, plan, model, prompt string) (*attach.AnalysisResponse, error) {
	m.mu.Lock()
	m.lastFiles = files
	fn := m.analyzeFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, files, plan, model, prompt)
	}
	return &attach.AnalysisResponse{Summary: "an image"}, nil
}

func (m *mockAnalyzer) analyzedFiles() []attach.AnalysisRequestFile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastFiles
}

type mockFetcher struct {
	mu       sync.Mutex
	searches int
	searchFn func(ctx context.Context, query string, limit int) ([]toolcall.SearchResult, error)
}

func (m *mockFetcher) Search(ctx context.Context, query string, limit int) ([]toolcall.SearchResult, error) {
	m.mu.Lock()
	m.searches++
	fn := m.searchFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, query, limit)
	}
	return []toolcall.SearchResult{{Title: "Result", URL: "https://example.com", Snippet: "snippet"}}, nil
}

func (m *mockFetcher) Quotes(context.Context, []string) ([]toolcall.Quote, error) {
	return nil, nil
}

func (m *mockFetcher) Weather(context.Context, string) (*toolcall.Weather, error) {
	return &toolcall.Weather{Name: "Nowhere", Temp: 20}, nil
}

func (m *mockFetcher) searchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.searches
}

type mockConversationStore struct {
	mu    sync.Mutex
	saves int
	last  *model.Conversation
}

func (m *mockConversationStore) Load(context.Context, string) (*model.Conversation, error) {
	return nil, store.ErrNotFound
}

func (m *mockConversationStore) Save(_ context.Context, conv *model.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.last = conv
	return nil
}

func (m *mockConversationStore) Reset(context.Context, string) error { return nil }

func (m *mockConversationStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

type mockPreferenceStore struct {
	mu    sync.Mutex
	prefs *model.Preferences
}

func (m *mockPreferenceStore) Get(_ context.Context, userID int64) (*model.Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prefs == nil {
		return nil, store.ErrNotFound
	}
	return m.prefs, nil
}

func (m *mockPreferenceStore) Upsert(_ context.Context, prefs *model.Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs = prefs
	return nil
}

func (m *mockPreferenceStore) stored() *model.Preferences {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prefs
}

type mockBlobStore struct{}

func (m *mockBlobStore) Put(_ context.Context, key, _ string, _ int64, _ io.Reader) (string, error) {
	return "https://blob.example.com/" + key, nil
}
