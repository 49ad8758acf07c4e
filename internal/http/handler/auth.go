package handler

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/6ixplatform/6ix-sub001/internal/http/middleware"
	"github.com/6ixplatform/6ix-sub001/internal/service"
)

const (
	stateCookieName = "six_oauth_state"
	sessionMaxAge   = 7 * 24 * 60 * 60
)

type AuthHandler struct {
	authService  service.AuthService
	appURL       string
	isProduction bool
}

func NewAuthHandler(authService service.AuthService, appURL string, isProduction bool) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		appURL:       appURL,
		isProduction: isProduction,
	}
}

func (h *AuthHandler) Login(c *gin.Context) {
	state, err := generateState()
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to generate state", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to initiate login"})
		return
	}

	authURL, err := h.authService.GetAuthorizationURL(state)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to get authorization URL", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to initiate login"})
		return
	}

	c.SetCookie(stateCookieName, state, 600, "/", "", h.isProduction, true)
	c.Redirect(http.StatusTemporaryRedirect, authURL)
}

func (h *AuthHandler) Callback(c *gin.Context) {
	ctx := c.Request.Context()

	code := c.Query("code")
	state := c.Query("state")
	errorParam := c.Query("error")

	if errorParam != "" {
		slog.WarnContext(ctx, "OAuth error", "error", errorParam,
			"description", c.Query("error_description"))
		c.Redirect(http.StatusTemporaryRedirect, h.appURL+"?auth_error="+errorParam)
		return
	}

	storedState, err := c.Cookie(stateCookieName)
	if err != nil || state != storedState {
		slog.WarnContext(ctx, "state mismatch")
		c.Redirect(http.StatusTemporaryRedirect, h.appURL+"?auth_error=invalid_state")
		return
	}
	h.clearStateCookie(c)

	if code == "" {
		c.Redirect(http.StatusTemporaryRedirect, h.appURL+"?auth_error=no_code")
		return
	}

	_, session, err := h.authService.HandleCallback(ctx, code)
	if err != nil {
		slog.ErrorContext(ctx, "auth callback failed", "error", err)
		c.Redirect(http.StatusTemporaryRedirect, h.appURL+"?auth_error=auth_failed")
		return
	}

	c.SetCookie(
		middleware.SessionCookieName,
		strconv.FormatInt(session.ID, 10),
		sessionMaxAge,
		"/",
		"",
		h.isProduction,
		true,
	)
	c.Redirect(http.StatusTemporaryRedirect, h.appURL)
}

// Me returns the authenticated user's profile and plan.
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.CurrentUser(c))
}

func (h *AuthHandler) Logout(c *gin.Context) {
	raw, err := c.Cookie(middleware.SessionCookieName)
	if err == nil {
		if sessionID, err := strconv.ParseInt(raw, 10, 64); err == nil {
			if err := h.authService.Logout(c.Request.Context(), sessionID); err != nil {
				slog.WarnContext(c.Request.Context(), "logout failed", "error", err)
			}
		}
	}
	c.SetCookie(middleware.SessionCookieName, "", -1, "/", "", h.isProduction, true)
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) clearStateCookie(c *gin.Context) {
	c.SetCookie(stateCookieName, "", -1, "/", "", h.isProduction, true)
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
