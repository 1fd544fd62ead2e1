package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pompomputin/wwebjs-webui-docker/internal/model"
)

// ToggleRequest is the body of the settings toggles.
type ToggleRequest struct {
	Enabled *bool `json:"enabled"`
}

// PresenceRequest is the body of POST /session/:id/presence.
type PresenceRequest struct {
	Available *bool `json:"available"`
}

type toggleFunc func(ctx context.Context, sessionID string, enabled bool) (model.Settings, error)

func (h *SessionHandler) toggle(c *gin.Context, apply toggleFunc, label string) {
	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if req.Enabled == nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "enabled (boolean) required")
		return
	}
	settings, err := apply(c.Request.Context(), c.Param("id"), *req.Enabled)
	if err != nil {
		sendErr(c, err)
		return
	}
	state := "disabled"
	if *req.Enabled {
		state = "enabled"
	}
	sendOK(c, label+" "+state+".", gin.H{"settings": settings})
}

// SetPresenceOnline handles POST /session/:id/set-presence-online.
func (h *SessionHandler) SetPresenceOnline(c *gin.Context) {
	h.toggle(c, h.sessions.SetOnlinePresence, "Online presence")
}

// SetTyping handles POST /session/:id/settings/typing.
func (h *SessionHandler) SetTyping(c *gin.Context) {
	h.toggle(c, h.sessions.SetTypingIndicator, "Typing indicator")
}

// SetAutoSeen handles POST /session/:id/settings/autoseen.
func (h *SessionHandler) SetAutoSeen(c *gin.Context) {
	h.toggle(c, h.sessions.SetAutoSeen, "Auto seen")
}

// GetSettings handles GET /session/:id/settings.
func (h *SessionHandler) GetSettings(c *gin.Context) {
	settings, err := h.sessions.Settings(c.Request.Context(), c.Param("id"))
	if err != nil {
		sendErr(c, err)
		return
	}
	sendOK(c, "OK", gin.H{"settings": settings})
}

// Presence handles POST /session/:id/presence.
func (h *SessionHandler) Presence(c *gin.Context) {
	var req PresenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if req.Available == nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "available (boolean) required")
		return
	}
	if err := h.sessions.SetPresence(c.Request.Context(), c.Param("id"), *req.Available); err != nil {
		sendErr(c, err)
		return
	}
	msg := "Presence set to unavailable."
	if *req.Available {
		msg = "Presence set to available."
	}
	sendOK(c, msg, nil)
}

// SendTyping handles POST /session/:id/chat/:chatId/send-typing.
func (h *SessionHandler) SendTyping(c *gin.Context) {
	if err := h.sessions.SendTyping(c.Request.Context(), c.Param("id"), c.Param("chatId"), c.Query("regionCode")); err != nil {
		sendErr(c, err)
		return
	}
	sendOK(c, "Typing indicator sent.", nil)
}

// SendSeen handles POST /session/:id/chat/:chatId/send-seen.
func (h *SessionHandler) SendSeen(c *gin.Context) {
	if err := h.sessions.SendSeen(c.Request.Context(), c.Param("id"), c.Param("chatId"), c.Query("regionCode")); err != nil {
		sendErr(c, err)
		return
	}
	sendOK(c, "Chat marked as seen.", nil)
}
