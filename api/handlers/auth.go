package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pompomputin/wwebjs-webui-docker/internal/auth"
	"github.com/pompomputin/wwebjs-webui-docker/internal/model"
)

// AuthHandler issues bearer tokens.
type AuthHandler struct {
	auth *auth.Service
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{auth: svc}
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	token, user, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, model.ErrUnauthorized) {
			sendError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid username or password")
			return
		}
		sendErr(c, err)
		return
	}

	sendOK(c, "Logged in", gin.H{
		"token": token,
		"user":  gin.H{"username": user.Username, "role": user.Role},
	})
}

// RegisterRoutes registers the unauthenticated auth routes.
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/login", h.Login)
}
