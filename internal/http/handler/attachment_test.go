package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/6ixplatform/6ix-sub001/internal/http/handler"
	"github.com/6ixplatform/6ix-sub001/internal/http/middleware"
	"github.com/6ixplatform/6ix-sub001/internal/model"
	"github.com/6ixplatform/6ix-sub001/internal/turn"
)

var _ = Describe("AttachmentHandler", func() {
	var (
		router  *gin.Engine
		convs   *mockConversationStore
		manager *turn.Manager
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		convs = &mockConversationStore{}
		manager = newTestManager(&mockStreamClient{}, convs)
		auth := &mockAuthService{
			validateSessionFn: func(_ context.Context, _ int64) (*model.User, error) {
				return &model.User{ID: 7, Name: "Ada", Plan: model.PlanPro}, nil
			},
		}

		h := handler.NewAttachmentHandler(manager, convs)
		router = gin.New()
		group := router.Group("/", middleware.Auth(auth))
		group.POST("/upload", h.Upload)
		group.POST("/preanalyze", h.Preanalyze)
		group.GET("/hints/:session_id", h.Hints)
	})

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		req.Header.Set(middleware.SessionIDHeader, "100")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	multipartBody := func(sessionID string, files map[string]string) (*bytes.Buffer, string) {
		buf := &bytes.Buffer{}
		mw := multipart.NewWriter(buf)
		Expect(mw.WriteField("session_id", sessionID)).To(Succeed())
		for name, content := range files {
			part, err := mw.CreateFormFile("files", name)
			Expect(err).NotTo(HaveOccurred())
			_, err = part.Write([]byte(content))
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(mw.Close()).To(Succeed())
		return buf, mw.FormDataContentType()
	}

	Describe("Upload", func() {
		It("ingests a batch and returns ready attachments", func() {
			buf, contentType := multipartBody("sess-1", map[string]string{
				"notes.txt": "some notes",
			})
			req := httptest.NewRequest(http.MethodPost, "/upload", buf)
			req.Header.Set("Content-Type", contentType)

			w := serve(req)

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp struct {
				Attachments []*model.AttachmentRef `json:"attachments"`
			}
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Attachments).To(HaveLen(1))
			Expect(resp.Attachments[0].Name).To(Equal("notes.txt"))
			Expect(resp.Attachments[0].Status).To(Equal(model.AttachmentReady))
			Expect(resp.Attachments[0].RemoteURL).NotTo(BeNil())
			Expect(*resp.Attachments[0].RemoteURL).To(HavePrefix("https://blob.example.com/"))
		})

		It("requires a session id", func() {
			buf, contentType := multipartBody("", map[string]string{"a.txt": "x"})
			req := httptest.NewRequest(http.MethodPost, "/upload", buf)
			req.Header.Set("Content-Type", contentType)

			w := serve(req)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects a batch with no files", func() {
			buf, contentType := multipartBody("sess-1", nil)
			req := httptest.NewRequest(http.MethodPost, "/upload", buf)
			req.Header.Set("Content-Type", contentType)

			w := serve(req)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("Preanalyze", func() {
		It("accepts draft text for the debounce window", func() {
			body, _ := json.Marshal(map[string]string{
				"session_id": "sess-1",
				"text":       "what does this file say",
			})
			req := httptest.NewRequest(http.MethodPost, "/preanalyze", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")

			w := serve(req)
			Expect(w.Code).To(Equal(http.StatusAccepted))
		})
	})

	Describe("Hints", func() {
		It("returns the merged hint list after an upload", func() {
			buf, contentType := multipartBody("sess-1", map[string]string{
				"notes.txt": "some notes",
			})
			req := httptest.NewRequest(http.MethodPost, "/upload", buf)
			req.Header.Set("Content-Type", contentType)
			Expect(serve(req).Code).To(Equal(http.StatusOK))

			Eventually(func() []string {
				w := serve(httptest.NewRequest(http.MethodGet, "/hints/sess-1", nil))
				var resp struct {
					Hints []string `json:"hints"`
				}
				Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
				return resp.Hints
			}).ShouldNot(BeEmpty())
		})
	})
})
