package router

import (
	"github.com/gin-gonic/gin"

	"github.com/6ixplatform/6ix-sub001/internal/http/handler"
	"github.com/6ixplatform/6ix-sub001/internal/http/middleware"
	"github.com/6ixplatform/6ix-sub001/internal/service"
	"github.com/6ixplatform/6ix-sub001/internal/store"
	"github.com/6ixplatform/6ix-sub001/internal/turn"
)

type RouterConfig struct {
	AppURL       string
	IsProduction bool
}

func SetupRoutes(router *gin.Engine, authService service.AuthService, manager *turn.Manager, stores *store.Stores, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	authHandler := handler.NewAuthHandler(authService, cfg.AppURL, cfg.IsProduction)
	AuthRouter(router.Group("/auth"), authHandler, middleware.Auth(authService))

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(authService))
	{
		chatHandler := handler.NewChatHandler(manager, stores.Conversations())
		ChatRouter(v1.Group("/chat"), chatHandler)

		attachmentHandler := handler.NewAttachmentHandler(manager, stores.Conversations())
		AttachmentRouter(v1.Group("/attachments"), attachmentHandler)
	}
}
