package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/pompomputin/wwebjs-webui-docker/internal/ws"
)

// WebSocketHandler attaches clients to the real-time channel.
type WebSocketHandler struct {
	wsHandler *ws.Handler
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(wsHandler *ws.Handler) *WebSocketHandler {
	return &WebSocketHandler{wsHandler: wsHandler}
}

// Attach handles GET /ws. The token is checked during the handshake.
func (h *WebSocketHandler) Attach(c *gin.Context) {
	if err := h.wsHandler.HandleConnection(c.Writer, c.Request); err != nil {
		// The upgrader already replied.
		return
	}
}

// RegisterRoutes registers the WebSocket route on a group without RequireAuth;
// the handshake checks the token itself.
func (h *WebSocketHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ws", h.Attach)
}
