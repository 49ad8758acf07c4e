package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/6ixplatform/6ix-sub001/common/id"
	"github.com/6ixplatform/6ix-sub001/internal/http/dto"
	"github.com/6ixplatform/6ix-sub001/internal/http/middleware"
	"github.com/6ixplatform/6ix-sub001/internal/model"
	"github.com/6ixplatform/6ix-sub001/internal/store"
	"github.com/6ixplatform/6ix-sub001/internal/turn"
)

type AttachmentHandler struct {
	resolver sessionResolver
}

func NewAttachmentHandler(manager *turn.Manager, convs store.ConversationStore) *AttachmentHandler {
	return &AttachmentHandler{resolver: sessionResolver{manager: manager, convs: convs}}
}

// Upload ingests a multipart batch. Each file moves through the
// pipeline independently; one failed upload does not fail the batch.
func (h *AttachmentHandler) Upload(c *gin.Context) {
	sessionID := c.PostForm("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
		return
	}

	user := middleware.CurrentUser(c)
	orch, err := h.resolver.orchestrator(c.Request.Context(), user, sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversation"})
		return
	}
	pipeline := orch.Pipeline()

	refs := make([]*model.AttachmentRef, 0, len(form.File["files"]))
	for _, fh := range form.File["files"] {
		ref := pipeline.Add(id.New(), fh.Filename, fh.Header.Get("Content-Type"), fh.Size, "")
		refs = append(refs, ref)

		src, err := fh.Open()
		if err != nil {
			slog.WarnContext(c.Request.Context(), "opening uploaded file",
				"name", fh.Filename, "error", err)
			continue
		}
		if err := pipeline.Upload(c.Request.Context(), ref.ID, src); err != nil {
			slog.WarnContext(c.Request.Context(), "attachment upload failed",
				"name", fh.Filename, "error", err)
		}
		src.Close()
	}

	c.JSON(http.StatusOK, dto.UploadResponse{Attachments: refs})
}

// Preanalyze offers the composer's draft text for the debounced
// pre-analysis pass. Always accepted; free plans simply ignore it.
func (h *AttachmentHandler) Preanalyze(c *gin.Context) {
	var req dto.PreanalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user := middleware.CurrentUser(c)
	orch, err := h.resolver.orchestrator(c.Request.Context(), user, req.SessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversation"})
		return
	}

	orch.Pipeline().OfferContext(c.Request.Context(), req.Text)
	c.Status(http.StatusAccepted)
}

// Hints returns the composer's suggested follow-ups.
func (h *AttachmentHandler) Hints(c *gin.Context) {
	sessionID := c.Param("session_id")
	user := middleware.CurrentUser(c)

	orch, err := h.resolver.orchestrator(c.Request.Context(), user, sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversation"})
		return
	}

	c.JSON(http.StatusOK, dto.HintsResponse{Hints: orch.Pipeline().Hints()})
}
