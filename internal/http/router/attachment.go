package router

import (
	"github.com/gin-gonic/gin"

	"github.com/6ixplatform/6ix-sub001/internal/http/handler"
)

func AttachmentRouter(rg *gin.RouterGroup, h *handler.AttachmentHandler) {
	rg.POST("/upload", h.Upload)
	rg.POST("/preanalyze", h.Preanalyze)
	rg.GET("/hints/:session_id", h.Hints)
}
