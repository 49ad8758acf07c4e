package router

import (
	"github.com/gin-gonic/gin"

	"github.com/6ixplatform/6ix-sub001/internal/http/handler"
)

func ChatRouter(rg *gin.RouterGroup, h *handler.ChatHandler) {
	rg.POST("/turn", h.Turn)
	rg.POST("/stop", h.Stop)
	rg.POST("/feedback", h.Feedback)
	rg.GET("/conversations/:session_id", h.Conversation)
	rg.DELETE("/conversations/:session_id", h.Reset)
}
