package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pompomputin/wwebjs-webui-docker/api/middleware"
	"github.com/pompomputin/wwebjs-webui-docker/internal/model"
	"github.com/pompomputin/wwebjs-webui-docker/internal/session"
)

// SessionHandler handles HTTP requests for session management and commands.
type SessionHandler struct {
	sessions       *session.Manager
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewSessionHandler creates a new SessionHandler. maxUploadBytes caps inline
// media payloads.
func NewSessionHandler(sessions *session.Manager, maxUploadBytes int64, logger *slog.Logger) *SessionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionHandler{
		sessions:       sessions,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With("component", "api"),
	}
}

// Init handles POST /session/init/:id.
func (h *SessionHandler) Init(c *gin.Context) {
	sessionID := c.Param("id")
	res, err := h.sessions.Init(c.Request.Context(), sessionID)
	if err != nil {
		sendErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    res.Message,
		"status":     res.Status,
		"inProgress": res.InProgress,
		"existing":   res.Existing,
		"state":      res.State,
	})
}

// List handles GET /sessions. Challenge payloads are never included.
func (h *SessionHandler) List(c *gin.Context) {
	sendOK(c, "OK", gin.H{"sessions": h.sessions.List()})
}

// Get handles GET /session/:id.
func (h *SessionHandler) Get(c *gin.Context) {
	sessionID := c.Param("id")
	summary, ok := h.sessions.Get(sessionID)
	if !ok {
		sendError(c, http.StatusNotFound, "SESSION_NOT_FOUND", "Session '"+sessionID+"' not found")
		return
	}
	sendOK(c, "OK", gin.H{"session": summary})
}

// Remove handles POST /session/remove/:id.
func (h *SessionHandler) Remove(c *gin.Context) {
	sessionID := c.Param("id")
	if err := h.sessions.Remove(c.Request.Context(), sessionID); err != nil {
		sendErr(c, err)
		return
	}
	sendOK(c, "Session '"+sessionID+"' removed.", gin.H{"ok": true})
}

// RegisterRoutes registers session routes on an authenticated group. Reads
// are open to every role; everything else needs an operator.
func (h *SessionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/sessions", h.List)
	rg.GET("/session/:id", h.Get)
	rg.GET("/session/:id/settings", h.GetSettings)
	rg.GET("/session/contact-info/:id/:contactId", h.ContactInfo)
	rg.GET("/session/is-registered/:id/:number", h.IsRegistered)

	op := rg.Group("", middleware.RequireRole(model.RoleOperator))
	op.POST("/session/init/:id", h.Init)
	op.POST("/session/remove/:id", h.Remove)
	op.POST("/session/send-message/:id", h.SendMessage)
	op.POST("/session/send-image/:id", h.SendImage)
	op.POST("/session/send-location/:id", h.SendLocation)
	op.POST("/session/set-status/:id", h.SetStatus)
	op.POST("/session/:id/set-presence-online", h.SetPresenceOnline)
	op.POST("/session/:id/settings/typing", h.SetTyping)
	op.POST("/session/:id/settings/autoseen", h.SetAutoSeen)
	op.POST("/session/:id/presence", h.Presence)
	op.POST("/session/:id/chat/:chatId/send-typing", h.SendTyping)
	op.POST("/session/:id/chat/:chatId/send-seen", h.SendSeen)
}
