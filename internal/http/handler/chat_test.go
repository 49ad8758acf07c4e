package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/6ixplatform/6ix-sub001/common/id"
	"github.com/6ixplatform/6ix-sub001/internal/http/handler"
	"github.com/6ixplatform/6ix-sub001/internal/http/middleware"
	"github.com/6ixplatform/6ix-sub001/internal/model"
	"github.com/6ixplatform/6ix-sub001/internal/turn"
)

var _ = Describe("ChatHandler", func() {
	var (
		router  *gin.Engine
		llm     *mockStreamClient
		convs   *mockConversationStore
		manager *turn.Manager
		auth    *mockAuthService
	)

	authedRequest := func(method, path string, body []byte) *sseRecorder {
		var req *http.Request
		if body != nil {
			req = httptest.NewRequest(method, path, bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
		} else {
			req = httptest.NewRequest(method, path, nil)
		}
		req.Header.Set(middleware.SessionIDHeader, "100")
		w := newSSERecorder()
		router.ServeHTTP(w, req)
		return w
	}

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		llm = &mockStreamClient{}
		convs = &mockConversationStore{}
		manager = newTestManager(llm, convs)
		auth = &mockAuthService{
			validateSessionFn: func(_ context.Context, _ int64) (*model.User, error) {
				return &model.User{ID: 7, Name: "Ada", Plan: model.PlanPro}, nil
			},
		}

		h := handler.NewChatHandler(manager, convs)
		router = gin.New()
		group := router.Group("/", middleware.Auth(auth))
		group.POST("/turn", h.Turn)
		group.POST("/stop", h.Stop)
		group.POST("/feedback", h.Feedback)
		group.GET("/conversations/:session_id", h.Conversation)
		group.DELETE("/conversations/:session_id", h.Reset)
	})

	Describe("Turn", func() {
		It("streams deltas and a final done event", func() {
			body, _ := json.Marshal(map[string]string{
				"session_id": "sess-1",
				"text":       "hello there",
			})

			w := authedRequest(http.MethodPost, "/turn", body)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(ContainSubstring("text/event-stream"))
			Expect(w.Body.String()).To(ContainSubstring("event:" + string(turn.EventDelta)))
			Expect(w.Body.String()).To(ContainSubstring("Hello."))
			Expect(w.Body.String()).To(ContainSubstring("event:" + string(turn.EventDone)))
		})

		It("returns 400 on a malformed body", func() {
			w := authedRequest(http.MethodPost, "/turn", []byte(`{`))
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 401 without a session", func() {
			req := httptest.NewRequest(http.MethodPost, "/turn", bytes.NewBufferString(`{}`))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})

		It("returns 500 when the conversation cannot be loaded", func() {
			convs.loadFn = func(_ context.Context, _ string) (*model.Conversation, error) {
				return nil, errors.New("db down")
			}
			body, _ := json.Marshal(map[string]string{"session_id": "sess-1", "text": "hi"})
			w := authedRequest(http.MethodPost, "/turn", body)
			Expect(w.Code).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("Stop", func() {
		It("is a no-op for an unknown session", func() {
			body, _ := json.Marshal(map[string]string{"session_id": "nobody-home"})
			w := authedRequest(http.MethodPost, "/stop", body)
			Expect(w.Code).To(Equal(http.StatusNoContent))
		})
	})

	Describe("Conversation", func() {
		It("returns the stored message list", func() {
			convs.loadFn = func(_ context.Context, sessionID string) (*model.Conversation, error) {
				return &model.Conversation{
					SessionID: sessionID,
					UserID:    7,
					Messages:  []*model.Message{model.NewUserMessage(id.New(), "earlier turn", nil)},
				}, nil
			}

			w := authedRequest(http.MethodGet, "/conversations/sess-2", nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["session_id"]).To(Equal("sess-2"))
			Expect(resp["messages"]).To(HaveLen(1))
		})
	})

	Describe("Reset", func() {
		It("clears the store and the live session", func() {
			var resetSession string
			convs.resetFn = func(_ context.Context, sessionID string) error {
				resetSession = sessionID
				return nil
			}

			w := authedRequest(http.MethodDelete, "/conversations/sess-3", nil)

			Expect(w.Code).To(Equal(http.StatusNoContent))
			Expect(resetSession).To(Equal("sess-3"))
		})

		It("returns 500 when the store fails", func() {
			convs.resetFn = func(_ context.Context, _ string) error {
				return errors.New("db down")
			}
			w := authedRequest(http.MethodDelete, "/conversations/sess-3", nil)
			Expect(w.Code).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("Feedback", func() {
		It("records a like on an existing message", func() {
			messageID := id.New()
			conv := &model.Conversation{
				SessionID: "sess-4",
				UserID:    7,
				Messages:  []*model.Message{model.NewUserMessage(messageID, "rate me", nil)},
			}
			convs.loadFn = func(_ context.Context, _ string) (*model.Conversation, error) {
				return conv, nil
			}
			var saved *model.Conversation
			convs.saveFn = func(_ context.Context, c *model.Conversation) error {
				saved = c
				return nil
			}

			body, _ := json.Marshal(map[string]any{
				"session_id": "sess-4",
				"message_id": messageID,
				"feedback":   "like",
			})
			w := authedRequest(http.MethodPost, "/feedback", body)

			Expect(w.Code).To(Equal(http.StatusNoContent))
			Expect(saved).NotTo(BeNil())
			Expect(saved.Find(messageID).Feedback).To(Equal(model.FeedbackLike))
		})

		It("rejects an unknown feedback value", func() {
			body, _ := json.Marshal(map[string]any{
				"session_id": "sess-4",
				"message_id": 1,
				"feedback":   "meh",
			})
			w := authedRequest(http.MethodPost, "/feedback", body)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 404 for a message the conversation does not have", func() {
			body, _ := json.Marshal(map[string]any{
				"session_id": "sess-4",
				"message_id": 999,
				"feedback":   "dislike",
			})
			w := authedRequest(http.MethodPost, "/feedback", body)
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})
})
