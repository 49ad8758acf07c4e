package handler_test

import (
	"context"
	"io"
	"net/http/httptest"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"github.com/6ixplatform/6ix-sub001/internal/attach"
	"github.com/6ixplatform/6ix-sub001/internal/guard"
	"github.com/6ixplatform/6ix-sub001/internal/model"
	"github.com/6ixplatform/6ix-sub001/internal/store"
	"github.com/6ixplatform/6ix-sub001/internal/stream"
	"github.com/6ixplatform/6ix-sub001/internal/toolcall"
	"github.com/6ixplatform/6ix-sub001/internal/turn"
)

// sseRecorder adds the CloseNotify method gin's Stream helper expects
// from the underlying writer.
type sseRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func newSSERecorder() *sseRecorder {
	return &sseRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}
}

func (r *sseRecorder) CloseNotify() <-chan bool { return r.closed }

type mockAuthService struct {
	getAuthorizationURLFn func(state string) (string, error)
	handleCallbackFn      func(ctx context.Context, code string) (*model.User, *model.Session, error)
	validateSessionFn     func(ctx context.Context, sessionID int64) (*model.User, error)
	logoutFn              func(ctx context.Context, sessionID int64) error
}

func (m *mockAuthService) GetAuthorizationURL(state string) (string, error) {
	if m.getAuthorizationURLFn != nil {
		return m.getAuthorizationURLFn(state)
	}
	return "https://auth.example.com/authorize?state=" + state, nil
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code string) (*model.User, *model.Session, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, code)
	}
	return nil, nil, nil
}

func (m *mockAuthService) ValidateSession(ctx context.Context, sessionID int64) (*model.User, error) {
	if m.validateSessionFn != nil {
		return m.validateSessionFn(ctx, sessionID)
	}
	return nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID int64) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

type mockConversationStore struct {
	loadFn  func(ctx context.Context, sessionID string) (*model.Conversation, error)
	saveFn  func(ctx context.Context, conv *model.Conversation) error
	resetFn func(ctx context.Context, sessionID string) error
}

func (m *mockConversationStore) Load(ctx context.Context, sessionID string) (*model.Conversation, error) {
	if m.loadFn != nil {
		return m.loadFn(ctx, sessionID)
	}
	return nil, store.ErrNotFound
}

func (m *mockConversationStore) Save(ctx context.Context, conv *model.Conversation) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, conv)
	}
	return nil
}

func (m *mockConversationStore) Reset(ctx context.Context, sessionID string) error {
	if m.resetFn != nil {
		return m.resetFn(ctx, sessionID)
	}
	return nil
}

type mockPreferenceStore struct {
	getFn    func(ctx context.Context, userID int64) (*model.Preferences, error)
	upsertFn func(ctx context.Context, prefs *model.Preferences) error
}

func (m *mockPreferenceStore) Get(ctx context.Context, userID int64) (*model.Preferences, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID)
	}
	return nil, store.ErrNotFound
}

func (m *mockPreferenceStore) Upsert(ctx context.Context, prefs *model.Preferences) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, prefs)
	}
	return nil
}

type mockStreamClient struct {
	streamFn func(ctx context.Context, req stream.Request, onDelta stream.Sink) (string, error)
}

func (m *mockStreamClient) Stream(ctx context.Context, req stream.Request, onDelta stream.Sink) (string, error) {
	if m.streamFn != nil {
		return m.streamFn(ctx, req, onDelta)
	}
	onDelta("Hello.", "Hello.")
	return "Hello.", nil
}

type mockFetcher struct{}

func (m *mockFetcher) Search(ctx context.Context, query string, limit int) ([]toolcall.SearchResult, error) {
	return nil, nil
}

func (m *mockFetcher) Quotes(ctx context.Context, symbols []string) ([]toolcall.Quote, error) {
	return nil, nil
}

func (m *mockFetcher) Weather(ctx context.Context, location string) (*toolcall.Weather, error) {
	return &toolcall.Weather{Name: location}, nil
}

type mockBlobStore struct {
	putFn func(ctx context.Context, key, contentType string, size int64, r io.Reader) (string, error)
}

func (m *mockBlobStore) Put(ctx context.Context, key, contentType string, size int64, r io.Reader) (string, error) {
	if m.putFn != nil {
		return m.putFn(ctx, key, contentType, size, r)
	}
	return "https://blob.example.com/" + key, nil
}

type mockAnalyzer struct {
	analyzeFn func(ctx context.Context, files []attach.AnalysisRequestFile, plan, model, prompt string) (*attach.AnalysisResponse, error)
}

func (m *mockAnalyzer) Analyze(ctx context.Context, files []attach.AnalysisRequestFile, plan, modelName, prompt string) (*attach.AnalysisResponse, error) {
	if m.analyzeFn != nil {
		return m.analyzeFn(ctx, files, plan, modelName, prompt)
	}
	return &attach.AnalysisResponse{Summary: "a file"}, nil
}

// newTestManager wires a real orchestrator factory over in-memory
// collaborators so the handlers exercise the same turn path production
// does.
func newTestManager(llm stream.Client, convs store.ConversationStore) *turn.Manager {
	mr, err := miniredis.Run()
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	DeferCleanup(func() { _ = rdb.Close() })

	quota := guard.NewQuota(rdb)
	return turn.NewManager(func(user *model.User, conv *model.Conversation) *turn.Orchestrator {
		pipeline := attach.NewPipeline(&mockBlobStore{}, &mockAnalyzer{}, attach.Config{
			Plan:  user.Plan,
			Model: "six-chat",
		})
		return turn.New(user, conv, turn.Deps{
			LLM:           llm,
			Tools:         toolcall.NewRunner(llm, &mockFetcher{}),
			Analyzer:      &mockAnalyzer{},
			Pipeline:      pipeline,
			Quota:         quota,
			Conversations: convs,
			Preferences:   &mockPreferenceStore{},
		}, turn.Config{Model: "six-chat"})
	})
}
