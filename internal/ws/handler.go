package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pompomputin/wwebjs-webui-docker/internal/auth"
	"github.com/pompomputin/wwebjs-webui-docker/internal/model"
	"github.com/pompomputin/wwebjs-webui-docker/internal/session"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192

	// Time allowed for an init requested over the socket to be accepted.
	initTimeout = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// SessionService is the part of the session manager the socket layer drives.
type SessionService interface {
	Init(ctx context.Context, sessionID string) (*model.InitResult, error)
	Replay(sessionID string) []session.Notice
}

// TokenVerifier validates a bearer token presented during the handshake.
type TokenVerifier interface {
	Verify(token string) (*auth.Identity, error)
}

// Handler handles WebSocket connections for real-time session updates.
type Handler struct {
	hubManager *HubManager
	sessions   SessionService
	verifier   TokenVerifier
	logger     *slog.Logger
}

// NewHandler creates a new WebSocket handler.
func NewHandler(hubManager *HubManager, verifier TokenVerifier, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		hubManager: hubManager,
		verifier:   verifier,
		logger:     logger.With("component", "ws"),
	}
}

// SetSessions attaches the session manager. The manager is built after the
// broadcaster it publishes through, so it is wired in late.
func (h *Handler) SetSessions(sessions SessionService) {
	h.sessions = sessions
}

// HandleConnection authenticates the handshake, upgrades the connection and
// starts the pumps. Handshakes without a valid token get 401 and no upgrade.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) error {
	token := auth.ExtractToken(r)
	if token == "" {
		http.Error(w, "Authentication token required", http.StatusUnauthorized)
		return nil
	}
	identity, err := h.verifier.Verify(token)
	if err != nil {
		h.logger.Warn("websocket handshake rejected", "remote", r.RemoteAddr, "error", err)
		http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		return nil
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := NewClient(conn, identity.Username, identity.Role)
	h.hubManager.Connect(client)
	h.logger.Info("websocket connected", "client", client.ID(), "user", client.User())

	go h.writePump(client)
	go h.readPump(client)
	return nil
}

// handleMessage processes incoming messages from clients.
func (h *Handler) handleMessage(client *Client, msg *Message) {
	switch msg.Event {
	case EventJoinSessionRoom:
		h.handleJoin(client, msg.SessionID)
	case EventLeaveSessionRoom:
		if msg.SessionID != "" {
			h.hubManager.Leave(client, msg.SessionID)
		}
	case EventRequestInitSession:
		h.handleInit(client, msg.SessionID)
	case EventPing:
		h.reply(client, EventPong, "", nil)
	default:
		h.reply(client, EventError, msg.SessionID, session.StatusPayload{Message: "Unknown event: " + msg.Event})
	}
}

func (h *Handler) handleJoin(client *Client, sessionID string) {
	if err := model.ValidateSessionID(sessionID); err != nil {
		h.reply(client, EventError, sessionID, session.StatusPayload{Message: err.Error()})
		return
	}
	h.hubManager.Join(client, sessionID)
	if h.sessions == nil {
		return
	}
	for _, n := range h.sessions.Replay(sessionID) {
		h.reply(client, n.Event, sessionID, n.Payload)
	}
}

// handleInit starts a session on behalf of the client. The outcome reaches
// the room through the usual lifecycle events.
func (h *Handler) handleInit(client *Client, sessionID string) {
	if !client.Role().AtLeast(model.RoleOperator) {
		h.reply(client, EventError, sessionID, session.StatusPayload{Message: "Operator role required"})
		return
	}
	if h.sessions == nil {
		return
	}
	h.hubManager.Join(client, sessionID)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
		defer cancel()
		res, err := h.sessions.Init(ctx, sessionID)
		if err != nil {
			message := err.Error()
			if errors.Is(err, model.ErrInvalidArgument) {
				message = "Invalid session id"
			}
			h.reply(client, EventError, sessionID, session.StatusPayload{ID: sessionID, Message: message})
			return
		}
		h.reply(client, session.EventStatusUpdate, sessionID, session.StatusPayload{ID: sessionID, Message: res.Message})
	}()
}

func (h *Handler) reply(client *Client, event, sessionID string, payload any) {
	data, err := NewMessage(event, sessionID, payload)
	if err != nil {
		h.logger.Error("marshal frame failed", "event", event, "error", err)
		return
	}
	client.Send(data)
}

// readPump pumps messages from the WebSocket connection to the handler.
func (h *Handler) readPump(client *Client) {
	defer func() {
		h.hubManager.Disconnect(client)
		client.Conn().Close()
		h.logger.Info("websocket disconnected", "client", client.ID())
	}()

	client.Conn().SetReadLimit(maxMessageSize)
	client.Conn().SetReadDeadline(time.Now().Add(pongWait))
	client.Conn().SetPongHandler(func(string) error {
		client.Conn().SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := client.Conn().ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket error", "client", client.ID(), "error", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			h.logger.Debug("unmarshal frame failed", "client", client.ID(), "error", err)
			continue
		}

		h.handleMessage(client, &msg)
	}
}

// writePump pumps messages from the send queue to the WebSocket connection.
func (h *Handler) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn().Close()
	}()

	for {
		select {
		case message, ok := <-client.SendChan():
			client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn().WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One frame per message so clients can JSON.parse each frame.
			if err := client.Conn().WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			n := len(client.SendChan())
			for i := 0; i < n; i++ {
				queued, ok := <-client.SendChan()
				if !ok {
					return
				}
				client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.Conn().WriteMessage(websocket.TextMessage, queued); err != nil {
					return
				}
			}
		case <-ticker.C:
			client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn().WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SetCheckOrigin sets a custom origin checker for the WebSocket upgrader.
func SetCheckOrigin(fn func(r *http.Request) bool) {
	upgrader.CheckOrigin = fn
}
