package router

import (
	"github.com/gin-gonic/gin"

	"github.com/6ixplatform/6ix-sub001/internal/http/handler"
)

func AuthRouter(rg *gin.RouterGroup, h *handler.AuthHandler, authRequired gin.HandlerFunc) {
	rg.GET("/login", h.Login)
	rg.GET("/callback", h.Callback)

	rg.GET("/me", authRequired, h.Me)
	rg.POST("/logout", authRequired, h.Logout)
}
